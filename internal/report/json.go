package report

import (
	"encoding/json"
	"io"

	"github.com/langshake/shake-proof/internal/model"
	"golang.org/x/text/language"
)

// JSONWriter outputs results in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the raw result in JSON format.
func (w *JSONWriter) Write(result *model.DomainBenchmarkResult) (int, error) {
	return w.writeJSON(result)
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a result with the tool version and display-ready metrics.
type JSONReport struct {
	Version string                      `json:"version"`
	Result  *model.DomainBenchmarkResult `json:"result"`
	Metrics map[string]FormattedMetrics `json:"formatted_metrics,omitempty"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(result *model.DomainBenchmarkResult, version string) *JSONReport {
	r := &JSONReport{Version: version, Result: result}
	if result.Metrics != nil {
		r.Metrics = map[string]FormattedMetrics{
			model.PhaseLangshake.String():   FormatMetrics(result.Metrics.Langshake, language.English),
			model.PhaseTraditional.String(): FormatMetrics(result.Metrics.Traditional, language.English),
		}
	}
	return r
}

// FullJSONWriter outputs results inside a JSONReport.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for results with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the result wrapped with metadata.
func (w *FullJSONWriter) Write(result *model.DomainBenchmarkResult) (int, error) {
	return w.writeJSON(NewJSONReport(result, w.version))
}
