package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/langshake/shake-proof/internal/fetch"
	"github.com/langshake/shake-proof/internal/integrity"
	"github.com/langshake/shake-proof/internal/metrics"
	"github.com/langshake/shake-proof/internal/model"
	"github.com/langshake/shake-proof/internal/progress"
)

// LangshakeResult is the output of the manifest-driven phase.
type LangshakeResult struct {
	Manifest    *model.Manifest
	ManifestURL string

	// Modules has one slot per manifest entry, in manifest order.
	Modules []model.Module

	// MerkleRoot covers the checksums of the modules that computed one.
	MerkleRoot string
}

// SubjectURLs returns the canonical subject URL of every slot, "" where the
// module failed or declared none.
func (r *LangshakeResult) SubjectURLs() []string {
	urls := make([]string, len(r.Modules))
	for i, m := range r.Modules {
		if m.OK() {
			urls[i] = m.CanonicalSubjectURL
		}
	}
	return urls
}

// Options shared by both phase crawlers.
type crawlerConfig struct {
	concurrency int
	reporter    progress.Reporter
	artifacts   *ArtifactStore
	logger      *slog.Logger
}

// Option configures a phase crawler.
type Option func(*crawlerConfig)

// WithPhaseConcurrency sets the fan-out limit of the phase.
func WithPhaseConcurrency(n int) Option {
	return func(c *crawlerConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithReporter sets the progress reporter notified per item.
func WithReporter(r progress.Reporter) Option {
	return func(c *crawlerConfig) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithArtifacts stores the records of every successful slot.
func WithArtifacts(s *ArtifactStore) Option {
	return func(c *crawlerConfig) {
		c.artifacts = s
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *crawlerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newCrawlerConfig(opts []Option) crawlerConfig {
	cfg := crawlerConfig{
		concurrency: DefaultConcurrency,
		reporter:    progress.NopReporter{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// LangshakeCrawler runs the manifest-driven phase. A crawler is bound to one
// collector and so to one benchmark run.
type LangshakeCrawler struct {
	client       *fetch.Client
	collector    *metrics.Collector
	manifestName string
	cfg          crawlerConfig
}

// NewLangshakeCrawler creates a crawler. An empty manifestName selects
// model.DefaultManifestName.
func NewLangshakeCrawler(client *fetch.Client, collector *metrics.Collector, manifestName string, opts ...Option) *LangshakeCrawler {
	if manifestName == "" {
		manifestName = model.DefaultManifestName
	}
	return &LangshakeCrawler{
		client:       client,
		collector:    collector,
		manifestName: manifestName,
		cfg:          newCrawlerConfig(opts),
	}
}

// FetchManifest downloads and parses the domain's manifest. The request is
// recorded as the first item of the phase. Every error is fatal for the run
// and carries ManifestUnreachable, ManifestMalformed or ManifestModulesEmpty.
func (c *LangshakeCrawler) FetchManifest(ctx context.Context, domainRoot string) (*LangshakeResult, error) {
	manifestURL := model.ManifestURL(domainRoot, c.manifestName)

	resp, err := timedGet(ctx, c.client, c.collector, manifestURL)
	if err != nil {
		bErr := model.NewBenchError(model.ManifestUnreachable, manifestURL,
			fmt.Sprintf("manifest unreachable: %v", err), err)
		c.collector.RecordError(manifestURL, bErr)
		return nil, bErr
	}

	manifest, err := model.ParseManifest(resp.Body)
	if err != nil {
		bErr := model.AsBenchError(err, model.ManifestMalformed, manifestURL).WithURL(manifestURL)
		c.collector.RecordError(manifestURL, bErr)
		return nil, bErr
	}

	c.cfg.logger.Debug("manifest fetched",
		"url", manifestURL,
		"modules", len(manifest.Modules),
		"declaredRoot", manifest.DeclaredMerkleRoot,
	)
	return &LangshakeResult{Manifest: manifest, ManifestURL: manifestURL}, nil
}

// CrawlModules validates every module of res.Manifest under the concurrency
// limit and fills res.Modules and res.MerkleRoot. It returns once every slot
// has settled.
func (c *LangshakeCrawler) CrawlModules(ctx context.Context, res *LangshakeResult) {
	base, baseErr := url.Parse(res.ManifestURL)
	validator := NewModuleValidator(c.client, c.collector, c.cfg.logger)

	bp := NewBatchProcessor(
		WithConcurrency(c.cfg.concurrency),
		WithInFlightObserver(c.collector.UpdateConcurrency),
		WithBatchLogger(c.cfg.logger),
	)

	paths := res.Manifest.Modules
	c.cfg.reporter.PhaseStarted(model.PhaseLangshake, len(paths))

	res.Modules = Process(ctx, bp, len(paths), func(ctx context.Context, i int) model.Module {
		mod := c.crawlOne(ctx, validator, base, baseErr, i, paths[i])
		var itemErr error
		if mod.Error != nil {
			itemErr = mod.Error
		}
		c.cfg.reporter.ItemDone(model.PhaseLangshake, i, mod.URL, itemErr)
		return mod
	})

	leaves := make([]string, 0, len(res.Modules))
	for _, m := range res.Modules {
		if m.ComputedChecksum != "" {
			leaves = append(leaves, m.ComputedChecksum)
		}
	}
	res.MerkleRoot = integrity.ComputeMerkleRoot(leaves)
}

func (c *LangshakeCrawler) crawlOne(ctx context.Context, v *ModuleValidator, base *url.URL, baseErr error, index int, path string) model.Module {
	moduleURL, err := resolveModuleURL(base, baseErr, path)
	if err != nil {
		mod := model.Module{Index: index, Path: path, URL: path,
			Error: model.NewBenchError(model.ModuleFetchError, path, "", err)}
		c.collector.RecordError(path, mod.Error)
		return mod
	}

	mod := v.Validate(ctx, index, path, moduleURL)
	if mod.OK() && c.cfg.artifacts != nil {
		n, err := c.cfg.artifacts.Write(model.PhaseLangshake, index, mod.Records)
		if err != nil {
			c.cfg.logger.Warn("failed to write artifact", "url", moduleURL, "error", err)
		}
		c.collector.RecordDiskUsage(n)
	}
	return mod
}

// resolveModuleURL resolves a manifest entry against the manifest URL.
// Absolute entries are kept; "/x.json" is relative to the domain root and
// "x.json" to the manifest's directory.
func resolveModuleURL(base *url.URL, baseErr error, path string) (string, error) {
	if baseErr != nil {
		return "", fmt.Errorf("invalid manifest url: %w", baseErr)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid module path %q: %w", path, err)
	}
	return base.ResolveReference(ref).String(), nil
}
