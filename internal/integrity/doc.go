// Package integrity provides the hashing primitives used to verify LangShake data.
//
// Three operations are exposed:
//   - Canonicalize turns any JSON-like value into a deterministic string in which
//     object keys are sorted recursively while array order is preserved.
//   - ComputeChecksum hashes a record list with SHA-256 after canonicalization,
//     ignoring any top-level "checksum" field of each record.
//   - ComputeMerkleRoot folds an ordered list of hex digests into a single root.
//
// All functions are pure and perform no I/O, so they are safe for concurrent use.
package integrity
