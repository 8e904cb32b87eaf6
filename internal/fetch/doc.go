// Package fetch provides the shared HTTP GET helper used by both benchmark
// phases.
//
// Every request carries "Cache-Control: no-cache" and "Pragma: no-cache" so
// that measurements are not skewed by intermediary caches. Retries follow an
// explicit RetryPolicy (attempt count, per-attempt timeout, fixed delay),
// which is independent of how callers limit concurrency. An optional token
// bucket from golang.org/x/time/rate spaces requests out for politeness.
package fetch
