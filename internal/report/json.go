package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/jsrecon/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables indented output with two spaces.
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

// Document is the top-level JSON object: the report plus its severity
// summary.
type Document struct {
	Report  *model.Report       `json:"report"`
	Summary *model.SimpleReport `json:"summary"`
}

// Write outputs the report together with its summary.
func (w *JSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(Document{
		Report:  report,
		Summary: model.NewSimpleReport(report),
	})
}

// WriteSimple outputs only the simple report.
func (w *JSONWriter) WriteSimple(report *model.SimpleReport) (int, error) {
	return w.writeJSON(report)
}

// WriteReports outputs several reports as one JSON array.
func (w *JSONWriter) WriteReports(reports []*model.Report) (int, error) {
	docs := make([]Document, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		docs = append(docs, Document{Report: r, Summary: model.NewSimpleReport(r)})
	}
	return w.writeJSON(docs)
}

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
