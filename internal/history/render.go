package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
)

// WriteJSON writes c as indented JSON.
func WriteJSON(w io.Writer, c *Comparison) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

// WriteText writes c as plain text.
func WriteText(w io.Writer, c *Comparison) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run Comparison: %s\n", c.Domain)
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "\nStatus: %s\n", formatDirection(c.Direction))
	fmt.Fprintf(&sb, "\nPrevious run: %s  %s\n", c.Previous.RunID, c.Previous.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current run:  %s  %s\n", c.Current.RunID, c.Current.StartedAt.Format("2006-01-02 15:04:05"))

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %-22s  %-14s  %-14s  %-10s\n", "Metric", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 64) + "\n")
	for _, row := range rows(c) {
		fmt.Fprintf(&sb, "  %-22s  %-14s  %-14s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	sb.WriteString("\nMerkle roots:\n")
	fmt.Fprintf(&sb, "  LangShake:   %s\n", rootChange(c.LangshakeRootChanged))
	fmt.Fprintf(&sb, "  Traditional: %s\n", rootChange(c.TraditionalRootChanged))

	if len(c.Changes) > 0 {
		fmt.Fprintf(&sb, "\nPage changes (%d):\n", len(c.Changes))
		for _, ch := range c.Changes {
			fmt.Fprintf(&sb, "  [%s] %s\n", kindsText(ch.Kinds), ch.URL)
			if ch.PreviousChecksum != ch.CurrentChecksum {
				fmt.Fprintf(&sb, "      checksum: %s -> %s\n", short(ch.PreviousChecksum), short(ch.CurrentChecksum))
			}
		}
	}
	if c.UnchangedPages > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d pages\n", c.UnchangedPages)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteMarkdown writes c as GitHub-flavored Markdown.
func WriteMarkdown(w io.Writer, c *Comparison) error {
	md := markdown.NewMarkdown(w)

	md.H1("Run Comparison: " + c.Domain)
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(c.Direction))
	md.PlainText("")

	tableRows := [][]string{{"Run", c.Previous.RunID, c.Current.RunID, "-"}}
	for _, r := range rows(c) {
		tableRows = append(tableRows, []string{r[0], r[1], r[2], r[3]})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   tableRows,
	})
	md.PlainText("")

	if c.LangshakeRootChanged || c.TraditionalRootChanged {
		md.Warningf("Merkle roots changed: LangShake %s, traditional %s.",
			rootChange(c.LangshakeRootChanged), rootChange(c.TraditionalRootChanged))
		md.PlainText("")
	}

	if len(c.Changes) > 0 {
		md.H2(fmt.Sprintf("Page Changes (%d)", len(c.Changes)))
		md.PlainText("")
		changeRows := make([][]string, len(c.Changes))
		for i, ch := range c.Changes {
			changeRows[i] = []string{
				ch.URL,
				kindsText(ch.Kinds),
				"`" + short(ch.PreviousChecksum) + "`",
				"`" + short(ch.CurrentChecksum) + "`",
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Change", "Previous checksum", "Current checksum"},
			Rows:   changeRows,
		})
		md.PlainText("")
	}

	if c.UnchangedPages > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d pages unchanged*", c.UnchangedPages)
	}
	return md.Build()
}

// rows lists the side-by-side metrics shared by text and Markdown.
func rows(c *Comparison) [][4]string {
	p, cur, d := c.Previous, c.Current, c.Deltas
	return [][4]string{
		{"Pages", strconv.Itoa(p.TotalPages), strconv.Itoa(cur.TotalPages), formatDelta(cur.TotalPages - p.TotalPages)},
		{"Matched", strconv.Itoa(p.MatchedPages), strconv.Itoa(cur.MatchedPages), formatDelta(d.MatchedPages)},
		{"Failed", strconv.Itoa(p.FailedPages), strconv.Itoa(cur.FailedPages), formatDelta(d.FailedPages)},
		{"LangShake duration", p.LangshakeDuration.String(), cur.LangshakeDuration.String(), formatDurationDelta(d.LangshakeDuration)},
		{"Traditional duration", p.TraditionalDuration.String(), cur.TraditionalDuration.String(), formatDurationDelta(d.TraditionalDuration)},
		{"LangShake requests", strconv.Itoa(p.LangshakeRequests), strconv.Itoa(cur.LangshakeRequests), formatDelta(d.LangshakeRequests)},
		{"Traditional requests", strconv.Itoa(p.TraditionalRequests), strconv.Itoa(cur.TraditionalRequests), formatDelta(d.TraditionalRequests)},
	}
}

func formatDirection(d Direction) string {
	switch d {
	case DirectionImproved:
		return "IMPROVED (more pages match)"
	case DirectionWorsened:
		return "WORSENED (fewer pages match)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func formatDurationDelta(d time.Duration) string {
	if d > 0 {
		return "+" + d.String()
	}
	return d.String()
}

func rootChange(changed bool) string {
	if changed {
		return "changed"
	}
	return "unchanged"
}

func kindsText(kinds []ChangeKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

func short(sum string) string {
	switch {
	case sum == "":
		return "-"
	case len(sum) > 12:
		return sum[:12]
	default:
		return sum
	}
}
