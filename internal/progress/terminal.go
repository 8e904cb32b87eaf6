package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/langshake/shake-proof/internal/metrics"
	"github.com/langshake/shake-proof/internal/model"
)

// barWidth is the number of cells in the progress bar.
const barWidth = 24

// Styles holds the lipgloss styles used by TerminalReporter.
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Bar     lipgloss.Style
}

// DefaultStyles returns the colour palette for the terminal reporter.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Bar:     lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
	}
}

// TerminalReporter draws a single-line progress bar per phase. The caller
// decides whether the output is a terminal; this type never checks.
type TerminalReporter struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles

	phase  model.Phase
	total  int
	done   int
	failed int
}

// NewTerminalReporter writes progress to w.
func NewTerminalReporter(w io.Writer) *TerminalReporter {
	return &TerminalReporter{w: w, styles: DefaultStyles()}
}

// StateChanged implements Reporter.
func (r *TerminalReporter) StateChanged(domain string, state model.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch state {
	case model.StateFetchManifest:
		fmt.Fprintf(r.w, "%s %s\n", r.styles.Title.Render("benchmarking"), domain)
	case model.StateAborted:
		fmt.Fprintf(r.w, "%s\n", r.styles.Error.Render("aborted: manifest stage failed"))
	case model.StateDone:
		fmt.Fprintf(r.w, "%s\n", r.styles.Success.Render("done"))
	default:
		fmt.Fprintf(r.w, "%s\n", r.styles.Muted.Render(string(state)))
	}
}

// PhaseStarted implements Reporter.
func (r *TerminalReporter) PhaseStarted(phase model.Phase, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.phase, r.total, r.done, r.failed = phase, total, 0, 0
	r.draw()
}

// ItemDone implements Reporter.
func (r *TerminalReporter) ItemDone(_ model.Phase, _ int, _ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done++
	if err != nil {
		r.failed++
	}
	r.draw()
}

// PhaseDone implements Reporter.
func (r *TerminalReporter) PhaseDone(phase model.Phase, s metrics.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draw()
	fmt.Fprintf(r.w, "\n%s %s in %s, %d requests, %d errors\n",
		r.styles.Muted.Render("phase"),
		phase,
		s.Duration.Round(time.Millisecond),
		s.Requests.Count,
		s.Errors.Count,
	)
}

// draw redraws the bar in place. Caller holds mu.
func (r *TerminalReporter) draw() {
	filled := 0
	if r.total > 0 {
		filled = min(barWidth, r.done*barWidth/r.total)
	}
	bar := r.styles.Bar.Render(strings.Repeat("█", filled)) + r.styles.Muted.Render(strings.Repeat("░", barWidth-filled))

	status := ""
	if r.failed > 0 {
		status = " " + r.styles.Error.Render(fmt.Sprintf("%d failed", r.failed))
	}
	fmt.Fprintf(r.w, "\r%-12s %s %d/%d%s", r.phase, bar, r.done, r.total, status)
}
