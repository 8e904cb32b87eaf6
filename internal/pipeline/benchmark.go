package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/langshake/shake-proof/internal/crawler"
	"github.com/langshake/shake-proof/internal/extract"
	"github.com/langshake/shake-proof/internal/fetch"
	"github.com/langshake/shake-proof/internal/metrics"
	"github.com/langshake/shake-proof/internal/model"
	"github.com/langshake/shake-proof/internal/progress"
)

// Benchmark runs the domain benchmark: manifest, module crawl, reference
// crawl and comparison, in that order. A Benchmark can be reused for several
// domains; every Run gets fresh collectors.
type Benchmark struct {
	client       *fetch.Client
	extractor    extract.Extractor
	concurrency  int
	manifestName string
	reporter     progress.Reporter
	artifacts    *crawler.ArtifactStore
	metricOpts   []metrics.Option
	now          func() time.Time
	logger       *slog.Logger
}

// BenchmarkOption configures a Benchmark.
type BenchmarkOption func(*Benchmark)

// WithConcurrency sets the in-flight limit of both phases.
func WithConcurrency(n int) BenchmarkOption {
	return func(b *Benchmark) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithClient sets the fetch client used for the manifest and modules, and for
// pages when no extractor is given.
func WithClient(c *fetch.Client) BenchmarkOption {
	return func(b *Benchmark) {
		b.client = c
	}
}

// WithExtractor sets the reference-phase extractor.
func WithExtractor(e extract.Extractor) BenchmarkOption {
	return func(b *Benchmark) {
		b.extractor = e
	}
}

// WithManifestName overrides the manifest file under /.well-known/.
func WithManifestName(name string) BenchmarkOption {
	return func(b *Benchmark) {
		b.manifestName = name
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r progress.Reporter) BenchmarkOption {
	return func(b *Benchmark) {
		if r != nil {
			b.reporter = r
		}
	}
}

// WithArtifacts writes the records of both phases under dir.
func WithArtifacts(dir string) BenchmarkOption {
	return func(b *Benchmark) {
		if dir != "" {
			b.artifacts = crawler.NewArtifactStore(dir)
		}
	}
}

// WithMetricsOptions passes options to every collector the benchmark creates.
func WithMetricsOptions(opts ...metrics.Option) BenchmarkOption {
	return func(b *Benchmark) {
		b.metricOpts = append(b.metricOpts, opts...)
	}
}

// WithClock replaces time.Now for the result timestamps.
func WithClock(now func() time.Time) BenchmarkOption {
	return func(b *Benchmark) {
		b.now = now
	}
}

// WithBenchmarkLogger sets a custom logger.
func WithBenchmarkLogger(l *slog.Logger) BenchmarkOption {
	return func(b *Benchmark) {
		b.logger = l
	}
}

// NewBenchmark creates a Benchmark. Without options it fetches with the
// default retry policy, extracts pages statically and runs
// crawler.DefaultConcurrency fetches at a time.
func NewBenchmark(opts ...BenchmarkOption) *Benchmark {
	b := &Benchmark{
		concurrency: crawler.DefaultConcurrency,
		reporter:    progress.NopReporter{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.client == nil {
		b.client = fetch.NewClient(fetch.WithLogger(b.logger))
	}
	if b.extractor == nil {
		b.extractor = extract.NewHTMLExtractor(extract.NewHTTPSource(b.client), extract.WithLogger(b.logger))
	}
	return b
}

// Run benchmarks one domain. When the manifest stage fails the returned
// result carries only its identity, the ABORTED state and Error, and the same
// error is returned. Otherwise the error is nil and the result is complete,
// with one page per manifest module even when slots failed.
func (b *Benchmark) Run(ctx context.Context, domainRoot string) (*model.DomainBenchmarkResult, error) {
	result := &model.DomainBenchmarkResult{
		RunID:     uuid.NewString(),
		StartedAt: b.now(),
		State:     model.StateInit,
	}
	b.reporter.StateChanged(domainRoot, model.StateInit)

	root, err := NormalizeDomainRoot(domainRoot)
	if err != nil {
		result.DomainRoot = domainRoot
		return b.abort(result, model.NewBenchError(model.ManifestUnreachable, domainRoot, "", err))
	}
	result.DomainRoot = root

	run := &Run{
		Result:               result,
		LangshakeCollector:   metrics.New(model.PhaseLangshake.String(), b.metricOpts...),
		TraditionalCollector: metrics.New(model.PhaseTraditional.String(), b.metricOpts...),
	}
	if err := run.LangshakeCollector.Start(); err != nil {
		return nil, err
	}

	crawlOpts := []crawler.Option{
		crawler.WithPhaseConcurrency(b.concurrency),
		crawler.WithReporter(b.reporter),
		crawler.WithArtifacts(b.artifacts),
		crawler.WithLogger(b.logger),
	}
	lc := crawler.NewLangshakeCrawler(b.client, run.LangshakeCollector, b.manifestName, crawlOpts...)
	tc := crawler.NewTraditionalCrawler(b.extractor, run.TraditionalCollector, crawlOpts...)

	p := New(WithLogger(b.logger), WithStateReporter(b.reporter))
	p.AddSteps(
		NewFetchManifestStep(lc),
		NewCrawlModulesStep(lc),
		NewModulesDoneStep(b.reporter),
		NewCrawlTraditionalStep(tc, b.reporter),
		CompareStep{},
		AssembleStep{now: b.now},
	)

	b.logger.Info("benchmark started",
		"domain", root,
		"runID", result.RunID,
		"concurrency", b.concurrency,
	)

	if err := p.Execute(ctx, run); err != nil {
		result.FinishedAt = b.now()
		return result, err
	}

	b.logger.Info("benchmark finished",
		"domain", root,
		"pages", result.Summary.TotalPages,
		"matched", result.Summary.MatchedPages,
		"allMatch", result.Summary.AllMatch,
	)
	return result, nil
}

func (b *Benchmark) abort(result *model.DomainBenchmarkResult, bErr *model.BenchError) (*model.DomainBenchmarkResult, error) {
	result.State = model.StateAborted
	result.Error = bErr
	result.FinishedAt = b.now()
	b.reporter.StateChanged(result.DomainRoot, model.StateAborted)
	return result, bErr
}

// NormalizeDomainRoot turns "example.com" or "https://example.com/" into
// "https://example.com". Paths are kept so that a site hosted under a prefix
// can be benchmarked.
func NormalizeDomainRoot(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty domain root")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid domain root %q: %w", s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q in domain root", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("domain root %q has no host", s)
	}
	u.RawQuery, u.Fragment = "", ""
	return strings.TrimRight(u.String(), "/"), nil
}
