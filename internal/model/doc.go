// Package model defines the data structures shared by the benchmark packages.
//
// This package contains the following main types:
//   - Manifest: the module list and declared Merkle root of a domain
//   - Payload: the ArrayForm / SingleRecordForm union of a module document
//   - Module and PageExtraction: per-slot outcomes of the two phases
//   - PageResult and Summary: the cross-phase comparison
//   - DomainBenchmarkResult: the value returned for one domain
//   - ErrorKind and BenchError: the error taxonomy
//
// Models live in their own package so that crawler, compare, pipeline and
// report can share them without import cycles. Every type serializes to JSON
// for reports and the history database.
package model
