package progress

import (
	"log/slog"

	"github.com/langshake/shake-proof/internal/metrics"
	"github.com/langshake/shake-proof/internal/model"
)

// Reporter observes a benchmark as it runs. ItemDone is called from worker
// goroutines, so implementations must be safe for concurrent use.
type Reporter interface {
	// StateChanged is called when the coordinator enters a new state.
	StateChanged(domain string, state model.State)

	// PhaseStarted is called before the fan-out of a phase with its item count.
	PhaseStarted(phase model.Phase, total int)

	// ItemDone is called when one slot of a phase settles. err is nil on success.
	ItemDone(phase model.Phase, index int, url string, err error)

	// PhaseDone is called after a phase has drained.
	PhaseDone(phase model.Phase, snapshot metrics.Snapshot)
}

// NopReporter discards every event.
type NopReporter struct{}

// StateChanged implements Reporter.
func (NopReporter) StateChanged(string, model.State) {}

// PhaseStarted implements Reporter.
func (NopReporter) PhaseStarted(model.Phase, int) {}

// ItemDone implements Reporter.
func (NopReporter) ItemDone(model.Phase, int, string, error) {}

// PhaseDone implements Reporter.
func (NopReporter) PhaseDone(model.Phase, metrics.Snapshot) {}

// LogReporter writes events to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a LogReporter. A nil logger means slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// StateChanged implements Reporter.
func (r *LogReporter) StateChanged(domain string, state model.State) {
	r.logger.Debug("state changed", "domain", domain, "state", state)
}

// PhaseStarted implements Reporter.
func (r *LogReporter) PhaseStarted(phase model.Phase, total int) {
	r.logger.Info("phase started", "phase", phase, "items", total)
}

// ItemDone implements Reporter.
func (r *LogReporter) ItemDone(phase model.Phase, index int, url string, err error) {
	if err != nil {
		r.logger.Warn("item failed", "phase", phase, "index", index, "url", url, "error", err)
		return
	}
	r.logger.Debug("item done", "phase", phase, "index", index, "url", url)
}

// PhaseDone implements Reporter.
func (r *LogReporter) PhaseDone(phase model.Phase, s metrics.Snapshot) {
	r.logger.Info("phase done",
		"phase", phase,
		"duration", s.Duration,
		"requests", s.Requests.Count,
		"errors", s.Errors.Count,
	)
}

// Multi fans every event out to several reporters in order.
type Multi []Reporter

// StateChanged implements Reporter.
func (m Multi) StateChanged(domain string, state model.State) {
	for _, r := range m {
		r.StateChanged(domain, state)
	}
}

// PhaseStarted implements Reporter.
func (m Multi) PhaseStarted(phase model.Phase, total int) {
	for _, r := range m {
		r.PhaseStarted(phase, total)
	}
}

// ItemDone implements Reporter.
func (m Multi) ItemDone(phase model.Phase, index int, url string, err error) {
	for _, r := range m {
		r.ItemDone(phase, index, url, err)
	}
}

// PhaseDone implements Reporter.
func (m Multi) PhaseDone(phase model.Phase, s metrics.Snapshot) {
	for _, r := range m {
		r.PhaseDone(phase, s)
	}
}
