package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no domain is given.
	ErrNoTarget = errors.New("no target specified: provide at least one domain")

	// ErrInvalidTimeout is returned when the per-attempt timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidAttempts is returned when the attempt count is below one.
	ErrInvalidAttempts = errors.New("invalid attempts: must be at least 1")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Zero disables rate limiting.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrEmptyManifestName is returned when the manifest name is blank or
	// contains a path separator.
	ErrEmptyManifestName = errors.New("invalid manifest name: must be a plain file name")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrStealthWithoutRender is returned when --stealth is set without --render.
	ErrStealthWithoutRender = errors.New("--stealth requires --render")
)
