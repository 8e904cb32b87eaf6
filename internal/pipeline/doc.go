// Package pipeline coordinates a domain benchmark as a sequence of steps.
//
// Each Step owns one state of the benchmark state machine:
//
//	INIT -> FETCH_MANIFEST -> (ABORTED | CRAWL_REFERENCE) -> CRAWL_MODULES_DONE
//	     -> CRAWL_TRADITIONAL -> COMPARE -> DONE
//
// The Pipeline runs the steps strictly in order, so the reference phase never
// starts before the module phase has drained. Only the manifest step can
// fail; module and page failures are recorded on their slots and the run
// always reaches DONE with a complete result.
//
// Benchmark wires the crawlers, collectors and reporter for one domain and
// exposes the single entry point Run.
package pipeline
