// Package log provides slog loggers that redact credentials before they reach
// the output.
//
// Benchmarks are often pointed at staging sites behind an Authorization header
// or a signed URL, and their logs end up in CI output. The SecureHandler masks
// attribute values whose key names a credential (authorization, cookie, token)
// and values that look like one (bearer strings, JWTs, AWS keys). URL values
// keep their host and path but lose userinfo and credential query parameters:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetched", "url", "https://u:p@example.com/x?token=abc")
//	// url=https://example.com/x?token=***REDACTED***
//
// SHA-256 checksums and Merkle roots are hex digests and pass through
// unchanged.
package log
