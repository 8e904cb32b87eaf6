package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/langshake/shake-proof/internal/model"
	"golang.org/x/text/language"
)

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every page, not only the ones that did not match.
	verbose bool

	lang language.Tag
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists matched pages too.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLanguage sets the number formatting of the metrics section.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.lang = tag
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		lang:       language.English,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(result *model.DomainBenchmarkResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	if !result.Aborted() {
		w.writeSummary(&sb, result)
		w.writeMetrics(&sb, result)
		w.writePages(&sb, result)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.DomainBenchmarkResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      SHAKEPROOF BENCHMARK REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Domain:    %s\n", result.DomainRoot)
	fmt.Fprintf(sb, "Run ID:    %s\n", result.RunID)
	fmt.Fprintf(sb, "Started:   %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:  %s\n", formatDuration(result.FinishedAt.Sub(result.StartedAt)))

	if result.Aborted() {
		fmt.Fprintf(sb, "Status:    ABORTED - %s\n", result.Error.Error())
	} else {
		fmt.Fprintf(sb, "Status:    %s\n", result.State)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.DomainBenchmarkResult) {
	s := result.Summary
	section(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Pages:       %d\n", s.TotalPages)
	fmt.Fprintf(sb, "  Matched:     %d\n", s.MatchedPages)
	fmt.Fprintf(sb, "  Mismatched:  %d\n", mismatchedPages(s))
	fmt.Fprintf(sb, "  Failed:      %d\n", s.FailedPages)
	fmt.Fprintf(sb, "  All match:   %s\n", yesNo(s.AllMatch))
	sb.WriteString("\n")

	fmt.Fprintf(sb, "  Declared Merkle root:     %s\n", orDash(s.DeclaredMerkleRoot))
	fmt.Fprintf(sb, "  LangShake Merkle root:    %s (declared: %s)\n", orDash(s.LangshakeMerkleRoot), yesNo(s.MerkleRootLangshakeValid))
	fmt.Fprintf(sb, "  Traditional Merkle root:  %s (declared: %s)\n", orDash(s.TraditionalMerkleRoot), yesNo(s.MerkleRootTraditionalValid))
	fmt.Fprintf(sb, "  Roots match:              %s\n", yesNo(s.MerkleRootsMatch))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeMetrics(sb *strings.Builder, result *model.DomainBenchmarkResult) {
	if result.Metrics == nil {
		return
	}
	ls := FormatMetrics(result.Metrics.Langshake, w.lang)
	tr := FormatMetrics(result.Metrics.Traditional, w.lang)

	section(sb, "METRICS")
	fmt.Fprintf(sb, "  %-18s  %-18s  %-18s\n", "", ls.Phase, tr.Phase)
	for _, row := range metricRows(ls, tr) {
		fmt.Fprintf(sb, "  %-18s  %-18s  %-18s\n", row[0], row[1], row[2])
	}
	sb.WriteString("\n")
}

// metricRows pairs the two phases line by line.
func metricRows(ls, tr FormattedMetrics) [][3]string {
	return [][3]string{
		{"Duration", ls.Duration, tr.Duration},
		{"CPU user", ls.CPUUser, tr.CPUUser},
		{"CPU system", ls.CPUSystem, tr.CPUSystem},
		{"Memory peak", ls.MemoryPeak, tr.MemoryPeak},
		{"Requests", ls.Requests, tr.Requests},
		{"Avg latency", ls.AverageLatency, tr.AverageLatency},
		{"Bytes in", ls.BytesIn, tr.BytesIn},
		{"Bytes out", ls.BytesOut, tr.BytesOut},
		{"Throughput", ls.Throughput, tr.Throughput},
		{"Errors", ls.Errors, tr.Errors},
		{"Disk written", ls.DiskWritten, tr.DiskWritten},
		{"Max concurrency", ls.MaxConcurrency, tr.MaxConcurrency},
	}
}

func (w *SimpleWriter) writePages(sb *strings.Builder, result *model.DomainBenchmarkResult) {
	section(sb, "PAGES")

	shown := 0
	for i := range result.Pages {
		p := &result.Pages[i]
		oc := pageOutcome(p)
		if oc == outcomeMatched && !w.verbose && p.Warning == nil {
			continue
		}
		shown++

		fmt.Fprintf(sb, "  [%s] #%d %s\n", strings.ToUpper(string(oc)), p.Index, orDash(p.URL))
		fmt.Fprintf(sb, "    Module: %s\n", p.ModulePath)
		if !p.ChecksumValid && p.Error == nil {
			sb.WriteString("    Checksum: declared checksum does not match\n")
		}
		if p.Error != nil {
			fmt.Fprintf(sb, "    Error: %s\n", p.Error.Error())
		}
		if p.Warning != nil {
			fmt.Fprintf(sb, "    Warning: %s\n", p.Warning.Message)
		}
		if !p.Diff.Empty() {
			if len(p.Diff.OnlyInLangshake) > 0 {
				fmt.Fprintf(sb, "    Only in LangShake:   %s\n", strings.Join(p.Diff.OnlyInLangshake, ", "))
			}
			if len(p.Diff.OnlyInTraditional) > 0 {
				fmt.Fprintf(sb, "    Only in traditional: %s\n", strings.Join(p.Diff.OnlyInTraditional, ", "))
			}
		}
	}
	if shown == 0 {
		sb.WriteString("  All pages matched.\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by shakeproof\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
