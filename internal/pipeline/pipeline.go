package pipeline

import (
	"context"
	"log/slog"

	"github.com/langshake/shake-proof/internal/crawler"
	"github.com/langshake/shake-proof/internal/metrics"
	"github.com/langshake/shake-proof/internal/model"
	"github.com/langshake/shake-proof/internal/progress"
)

// Run is the state of one domain benchmark as it moves through the steps.
// Each step reads what earlier steps left and adds its own part.
type Run struct {
	// Result is what the benchmark returns.
	Result *model.DomainBenchmarkResult

	// Langshake is set by the manifest step and filled by the module crawl.
	Langshake *crawler.LangshakeResult

	// SubjectURLs are the index-aligned pages for the reference phase.
	SubjectURLs []string

	// Pages is the output of the reference phase.
	Pages []model.PageExtraction

	LangshakeCollector   *metrics.Collector
	TraditionalCollector *metrics.Collector
}

// Step is one state of the benchmark state machine.
type Step interface {
	// Do executes the step. An error is fatal and aborts the benchmark;
	// per-slot failures must be recorded on the run instead.
	Do(ctx context.Context, run *Run) error

	// State is the state entered when the step starts.
	State() model.State

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps strictly in order.
type Pipeline struct {
	steps    []Step
	logger   *slog.Logger
	reporter progress.Reporter
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStateReporter sets the reporter notified on every state change.
func WithStateReporter(r progress.Reporter) Option {
	return func(p *Pipeline) {
		p.reporter = r
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.reporter == nil {
		p.reporter = progress.NopReporter{}
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step in sequence. The first failing step moves the run
// to ABORTED and its error is returned; the remaining steps are skipped.
//
// Cancellation is not checked between steps. A cancelled context makes every
// pending fetch fail on its own slot, so the result stays complete.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	for _, step := range p.steps {
		p.enter(run, step.State())

		p.logger.Debug("executing step",
			"step", step.Name(),
			"domain", run.Result.DomainRoot,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"domain", run.Result.DomainRoot,
				"error", err,
			)
			p.enter(run, model.StateAborted)
			return err
		}
	}
	return nil
}

func (p *Pipeline) enter(run *Run, state model.State) {
	run.Result.State = state
	p.reporter.StateChanged(run.Result.DomainRoot, state)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
