package crawler

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of in-flight fetches per phase.
const DefaultConcurrency = 5

// BatchProcessor fans work out over index-addressed slots under a fixed
// concurrency limit.
//
// Tasks never return an error to the group, so one failing slot cannot
// cancel its siblings. Each task owns its slot exclusively.
type BatchProcessor struct {
	concurrency int
	inFlight    func(n int)
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithConcurrency sets the maximum number of concurrent tasks.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithInFlightObserver is called with the current in-flight count whenever a
// task starts or finishes.
func WithInFlightObserver(fn func(n int)) BatchOption {
	return func(b *BatchProcessor) {
		b.inFlight = fn
	}
}

// WithBatchLogger sets a custom logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// NewBatchProcessor creates a BatchProcessor with DefaultConcurrency.
func NewBatchProcessor(opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// Concurrency returns the configured limit.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// Process runs fn for every index in [0, n) and returns the results in index
// order, regardless of completion order.
func Process[T any](ctx context.Context, bp *BatchProcessor, n int, fn func(ctx context.Context, index int) T) []T {
	results := make([]T, n)
	if n == 0 {
		return results
	}

	bp.logger.Debug("starting batch", "items", n, "concurrency", bp.concurrency)

	var active atomic.Int32
	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i := range n {
		g.Go(func() error {
			bp.observe(int(active.Add(1)))
			defer func() { bp.observe(int(active.Add(-1))) }()

			results[i] = fn(ctx, i)
			return nil
		})
	}

	// Tasks never fail.
	_ = g.Wait()

	bp.logger.Debug("batch complete", "items", n)
	return results
}

func (bp *BatchProcessor) observe(n int) {
	if bp.inFlight != nil {
		bp.inFlight(n)
	}
}
