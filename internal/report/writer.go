package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/jsrecon/internal/model"
)

// Writer outputs crawl reports.
type Writer interface {
	// Write outputs the full report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)

	// WriteSimple outputs only the flattened issue view.
	WriteSimple(report *model.SimpleReport) (int, error)
}

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// NewWriter returns the writer for format. Unknown formats fall back to text.
func NewWriter(output io.Writer, format Format, color bool) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output, WithColor(color))
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSimple outputs the simple report to all configured Writers.
func (m *MultiWriter) WriteSimple(report *model.SimpleReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSimple(report)
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

// severityOrder lists severities from most to least severe.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}

var titleCaser = cases.Title(language.English)

// severityLabel turns "CRITICAL" into "Critical".
func severityLabel(s model.Severity) string {
	return titleCaser.String(strings.ToLower(s.String()))
}

// libraryLabel is the display name of an npm package, e.g. "chart.js" to
// "Chart.js".
func libraryLabel(name, version string) string {
	return fmt.Sprintf("%s %s", titleCaser.String(name), version)
}

// statusText summarizes how complete the report is.
func statusText(report *model.SimpleReport) string {
	switch {
	case report.TimedOut && report.AdvisoryLookupFailed:
		return "Timed out, advisory lookups incomplete (partial results)"
	case report.TimedOut:
		return "Timed out (partial results)"
	case report.AdvisoryLookupFailed:
		return "Complete, advisory lookups incomplete"
	default:
		return "Complete"
	}
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
