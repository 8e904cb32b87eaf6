// Package compare cross-checks the records obtained by the two benchmark
// phases, per page and in aggregate through Merkle roots.
package compare
