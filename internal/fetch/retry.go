package fetch

import (
	"context"
	"time"
)

// Default retry settings applied to manifest and module fetches.
const (
	DefaultMaxAttempts       = 3
	DefaultPerAttemptTimeout = 10 * time.Second
	DefaultRetryDelay        = 500 * time.Millisecond
)

// RetryPolicy describes a fixed-attempt retry with a constant delay.
// Each attempt gets its own timeout; the policy never shortens or extends
// the caller's context.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// PerAttemptTimeout bounds a single attempt. Zero means no bound.
	PerAttemptTimeout time.Duration

	// Delay is the pause between a failed attempt and the next one.
	Delay time.Duration
}

// DefaultRetryPolicy returns 3 attempts of 10s each, 500ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       DefaultMaxAttempts,
		PerAttemptTimeout: DefaultPerAttemptTimeout,
		Delay:             DefaultRetryDelay,
	}
}

// attempts returns MaxAttempts clamped to at least one.
func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it succeeds or the attempts are exhausted, returning the
// last error. fn receives a context bounded by PerAttemptTimeout and the
// 1-based attempt number. Cancellation of ctx stops retrying immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, p.Delay); err != nil {
				return lastErr
			}
		}

		attemptCtx, cancel := p.attemptContext(ctx)
		lastErr = fn(attemptCtx, attempt)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}

	return lastErr
}

// attemptContext derives the context for a single attempt.
func (p RetryPolicy) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.PerAttemptTimeout > 0 {
		return context.WithTimeout(ctx, p.PerAttemptTimeout)
	}
	return context.WithCancel(ctx)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
