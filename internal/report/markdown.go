package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/langshake/shake-proof/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs results in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.DomainBenchmarkResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	if !result.Aborted() {
		w.writeSummary(md, result)
		w.writeMetrics(md, result)
		w.writePages(md, result)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.DomainBenchmarkResult) {
	md.H1("shakeproof Benchmark Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + result.DomainRoot + "`"},
			{"Run ID", "`" + result.RunID + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", formatDuration(result.FinishedAt.Sub(result.StartedAt))},
			{"Status", w.statusText(result)},
		},
	})
	md.PlainText("")

	if result.Aborted() {
		md.Cautionf("Benchmark aborted: %s", result.Error.Error())
		md.PlainText("")
	}
}

func (w *MarkdownWriter) statusText(result *model.DomainBenchmarkResult) string {
	switch {
	case result.Aborted():
		return "❌ Aborted"
	case result.Summary.AllMatch:
		return "✅ All pages match"
	default:
		return "⚠️ Differences found"
	}
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.DomainBenchmarkResult) {
	s := result.Summary
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Pages"},
		Rows: [][]string{
			{"✅ Matched", strconv.Itoa(s.MatchedPages)},
			{"⚠️ Mismatched", strconv.Itoa(mismatchedPages(s))},
			{"❌ Failed", strconv.Itoa(s.FailedPages)},
			{"**Total**", "**" + strconv.Itoa(s.TotalPages) + "**"},
		},
	})
	md.PlainText("")

	if s.TotalPages > 0 {
		w.writePieChart(md, s)
	}

	md.H2("Merkle Roots")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Root", "Value", "Equals declared"},
		Rows: [][]string{
			{"Declared", "`" + orDash(s.DeclaredMerkleRoot) + "`", "-"},
			{"LangShake", "`" + orDash(s.LangshakeMerkleRoot) + "`", yesNo(s.MerkleRootLangshakeValid)},
			{"Traditional", "`" + orDash(s.TraditionalMerkleRoot) + "`", yesNo(s.MerkleRootTraditionalValid)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of page outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)

	if s.MatchedPages > 0 {
		chart.LabelAndIntValue("Matched", uint64(s.MatchedPages))
	}
	if n := mismatchedPages(s); n > 0 {
		chart.LabelAndIntValue("Mismatched", uint64(n))
	}
	if s.FailedPages > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.FailedPages))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s model.Summary) {
	switch {
	case s.FailedPages > 0:
		md.Cautionf("%d page(s) could not be compared.", s.FailedPages)
	case !s.AllMatch:
		md.Warningf("%d page(s) serve different structured data in the two phases.", mismatchedPages(s))
	case s.DeclaredMerkleRoot != "" && !s.MerkleRootLangshakeValid:
		md.Importantf("The declared Merkle root does not match the modules served.")
	case s.DeclaredMerkleRoot == "":
		md.Note("All pages match. The manifest declares no Merkle root.")
	default:
		md.Tip("All pages match and every Merkle root agrees.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeMetrics(md *markdown.Markdown, result *model.DomainBenchmarkResult) {
	if result.Metrics == nil {
		return
	}
	ls := FormatMetrics(result.Metrics.Langshake, language.English)
	tr := FormatMetrics(result.Metrics.Traditional, language.English)

	md.H2("Metrics")
	md.PlainText("")

	rows := metricRows(ls, tr)
	tableRows := make([][]string, len(rows))
	for i, r := range rows {
		tableRows[i] = []string{r[0], r[1], r[2]}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", ls.Phase, tr.Phase},
		Rows:   tableRows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, result *model.DomainBenchmarkResult) {
	md.H2("Pages")
	md.PlainText("")

	if len(result.Pages) == 0 {
		md.PlainText("No pages.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Pages))
	for i := range result.Pages {
		p := &result.Pages[i]
		rows[i] = []string{
			strconv.Itoa(p.Index),
			truncateString(orDash(p.URL), 60),
			string(pageOutcome(p)),
			yesNo(p.ChecksumValid),
			"`" + shortHash(p.LangshakeChecksum) + "`",
			"`" + shortHash(p.TraditionalChecksum) + "`",
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Outcome", "Checksum valid", "LangShake", "Traditional"},
		Rows:   rows,
	})
	md.PlainText("")

	for i := range result.Pages {
		p := &result.Pages[i]
		if detail := pageDetail(p); detail != "" {
			md.Details("#"+strconv.Itoa(p.Index)+" "+orDash(p.URL), detail)
		}
	}
	md.PlainText("")
}

// pageDetail describes what went wrong on a page, or "" when nothing did.
func pageDetail(p *model.PageResult) string {
	var lines []string
	if p.Error != nil {
		lines = append(lines, "Error: "+p.Error.Error())
	}
	if p.Warning != nil {
		lines = append(lines, "Warning: "+p.Warning.Message)
	}
	if !p.Diff.Empty() {
		if len(p.Diff.OnlyInLangshake) > 0 {
			lines = append(lines, "Only in LangShake: "+strings.Join(p.Diff.OnlyInLangshake, ", "))
		}
		if len(p.Diff.OnlyInTraditional) > 0 {
			lines = append(lines, "Only in traditional: "+strings.Join(p.Diff.OnlyInTraditional, ", "))
		}
	}
	return strings.Join(lines, "\n\n")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by shakeproof*")
}
