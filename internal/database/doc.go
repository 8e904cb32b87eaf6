// Package database provides SQLite-based storage for benchmark history.
//
// BenchDB keeps one row per benchmark run in shakeproof.db under the XDG
// data directory. The full result is stored as JSON next to a few summary
// columns so that history listings do not decode every run.
//
// modernc.org/sqlite is used so the binary stays CGO-free.
package database
