// Package report renders benchmark results.
//
// Writers for three formats share the Writer interface:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter and FullJSONWriter: structured output for tools
//   - MarkdownWriter: tables, alerts and a mermaid chart for sharing
//
// FormatMetrics turns a phase snapshot into display strings so that every
// format shows the same numbers.
package report
