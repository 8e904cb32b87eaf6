package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/langshake/shake-proof/internal/compare"
	"github.com/langshake/shake-proof/internal/crawler"
	"github.com/langshake/shake-proof/internal/model"
	"github.com/langshake/shake-proof/internal/progress"
)

// FetchManifestStep downloads and parses the manifest. Its failure is the
// only fatal error of a benchmark.
type FetchManifestStep struct {
	crawler *crawler.LangshakeCrawler
}

// NewFetchManifestStep creates the manifest step.
func NewFetchManifestStep(c *crawler.LangshakeCrawler) *FetchManifestStep {
	return &FetchManifestStep{crawler: c}
}

// Name implements Step.
func (s *FetchManifestStep) Name() string { return "fetch-manifest" }

// State implements Step.
func (s *FetchManifestStep) State() model.State { return model.StateFetchManifest }

// Do implements Step.
func (s *FetchManifestStep) Do(ctx context.Context, run *Run) error {
	res, err := s.crawler.FetchManifest(ctx, run.Result.DomainRoot)
	if err != nil {
		var bErr *model.BenchError
		if !errors.As(err, &bErr) {
			bErr = model.NewBenchError(model.ManifestUnreachable, "", "", err)
		}
		run.Result.Error = bErr
		return bErr
	}
	run.Langshake = res
	run.Result.Summary.DeclaredMerkleRoot = res.Manifest.DeclaredMerkleRoot
	return nil
}

// CrawlModulesStep validates every module listed by the manifest.
type CrawlModulesStep struct {
	crawler *crawler.LangshakeCrawler
}

// NewCrawlModulesStep creates the module crawl step.
func NewCrawlModulesStep(c *crawler.LangshakeCrawler) *CrawlModulesStep {
	return &CrawlModulesStep{crawler: c}
}

// Name implements Step.
func (s *CrawlModulesStep) Name() string { return "crawl-modules" }

// State implements Step.
func (s *CrawlModulesStep) State() model.State { return model.StateCrawlReference }

// Do implements Step.
func (s *CrawlModulesStep) Do(ctx context.Context, run *Run) error {
	s.crawler.CrawlModules(ctx, run.Langshake)
	return nil
}

// ModulesDoneStep closes the manifest phase: its metrics are frozen and the
// page list for the reference phase is derived.
type ModulesDoneStep struct {
	reporter progress.Reporter
}

// NewModulesDoneStep creates the barrier step between the two phases.
func NewModulesDoneStep(r progress.Reporter) *ModulesDoneStep {
	return &ModulesDoneStep{reporter: r}
}

// Name implements Step.
func (s *ModulesDoneStep) Name() string { return "modules-done" }

// State implements Step.
func (s *ModulesDoneStep) State() model.State { return model.StateCrawlModulesDone }

// Do implements Step.
func (s *ModulesDoneStep) Do(_ context.Context, run *Run) error {
	run.LangshakeCollector.Finalize()
	s.reporter.PhaseDone(model.PhaseLangshake, run.LangshakeCollector.Snapshot())
	run.SubjectURLs = run.Langshake.SubjectURLs()
	return nil
}

// CrawlTraditionalStep extracts structured data from every subject page.
type CrawlTraditionalStep struct {
	crawler  *crawler.TraditionalCrawler
	reporter progress.Reporter
}

// NewCrawlTraditionalStep creates the reference crawl step.
func NewCrawlTraditionalStep(c *crawler.TraditionalCrawler, r progress.Reporter) *CrawlTraditionalStep {
	return &CrawlTraditionalStep{crawler: c, reporter: r}
}

// Name implements Step.
func (s *CrawlTraditionalStep) Name() string { return "crawl-traditional" }

// State implements Step.
func (s *CrawlTraditionalStep) State() model.State { return model.StateCrawlTraditional }

// Do implements Step.
func (s *CrawlTraditionalStep) Do(ctx context.Context, run *Run) error {
	// The collector starts here so that its clock covers this phase only.
	if err := run.TraditionalCollector.Start(); err != nil {
		return err
	}
	run.Pages = s.crawler.Crawl(ctx, run.SubjectURLs)
	run.TraditionalCollector.Finalize()
	s.reporter.PhaseDone(model.PhaseTraditional, run.TraditionalCollector.Snapshot())
	return nil
}

// CompareStep cross-checks the two phases.
type CompareStep struct{}

// Name implements Step.
func (CompareStep) Name() string { return "compare" }

// State implements Step.
func (CompareStep) State() model.State { return model.StateCompare }

// Do implements Step.
func (CompareStep) Do(_ context.Context, run *Run) error {
	run.Result.Pages, run.Result.Summary = compare.Compare(
		run.Langshake.Modules,
		run.Pages,
		run.Langshake.Manifest.DeclaredMerkleRoot,
	)
	return nil
}

// AssembleStep attaches the phase metrics and closes the result.
type AssembleStep struct {
	now func() time.Time
}

// Name implements Step.
func (AssembleStep) Name() string { return "assemble" }

// State implements Step.
func (AssembleStep) State() model.State { return model.StateDone }

// Do implements Step.
func (s AssembleStep) Do(_ context.Context, run *Run) error {
	run.Result.Metrics = &model.PhaseMetrics{
		Langshake:   run.LangshakeCollector.Snapshot(),
		Traditional: run.TraditionalCollector.Snapshot(),
	}
	run.Result.FinishedAt = s.now()
	return nil
}
