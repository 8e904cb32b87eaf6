package report

import (
	"io"

	"github.com/langshake/shake-proof/internal/model"
)

// Writer renders benchmark results.
type Writer interface {
	// Write outputs the result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.DomainBenchmarkResult) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.DomainBenchmarkResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// outcome classifies a page for display.
type outcome string

const (
	outcomeMatched    outcome = "matched"
	outcomeMismatched outcome = "mismatched"
	outcomeFailed     outcome = "failed"
)

func pageOutcome(p *model.PageResult) outcome {
	switch {
	case p.SchemasMatch:
		return outcomeMatched
	case p.Error != nil:
		return outcomeFailed
	default:
		return outcomeMismatched
	}
}

// mismatchedPages counts pages that compared but differ.
func mismatchedPages(s model.Summary) int {
	return s.TotalPages - s.MatchedPages - s.FailedPages
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// shortHash abbreviates a hex digest for tables.
func shortHash(s string) string {
	if len(s) <= 12 {
		return orDash(s)
	}
	return s[:12]
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
