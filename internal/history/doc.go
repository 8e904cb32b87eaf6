// Package history compares stored benchmark runs of a domain.
//
// Compare reports checksum drift and match changes per page, Merkle root
// changes, and phase duration and request deltas. The Write functions render
// a Comparison as text, JSON or Markdown.
package history
