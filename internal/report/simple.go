package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/jsrecon/internal/model"
)

// SimpleWriter outputs human-readable text reports for the terminal.
// Color is off by default so output can be piped to files.
type SimpleWriter struct {
	baseWriter

	showEmpty bool
	verbose   bool
	palette   map[model.Severity]*color.Color
	heading   *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables descriptions, impact and recommendations.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables ANSI colors for severities and headings.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range w.palette {
			setColor(c, enabled)
		}
		setColor(w.heading, enabled)
	}
}

func setColor(c *color.Color, enabled bool) {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		palette: map[model.Severity]*color.Color{
			model.SeverityCritical: color.New(color.FgRed, color.Bold),
			model.SeverityHigh:     color.New(color.FgRed),
			model.SeverityMedium:   color.New(color.FgYellow),
			model.SeverityLow:      color.New(color.FgCyan),
			model.SeverityInfo:     color.New(color.FgWhite),
		},
		heading: color.New(color.FgCyan, color.Bold),
	}
	WithColor(false)(w)

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	return w.WriteSimple(model.NewSimpleReport(report))
}

// WriteSimple outputs the simple report in human-readable format.
func (w *SimpleWriter) WriteSimple(report *model.SimpleReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeIssues(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) rule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	w.rule(sb, "-")
	sb.WriteString(w.heading.Sprint(title))
	sb.WriteString("\n")
	w.rule(sb, "-")
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.SimpleReport) {
	sb.WriteString("\n")
	w.rule(sb, "=")
	sb.WriteString(w.heading.Sprint("                          JSRECON REPORT"))
	sb.WriteString("\n")
	w.rule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Target:         %s\n", report.Target)
	fmt.Fprintf(sb, "Scan Date:      %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Pages Scanned:  %d\n", report.PagesScanned)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.SimpleReport) {
	w.section(sb, "SEVERITY SUMMARY")

	counts := report.RiskSummary()
	for _, sev := range severityOrder {
		label := fmt.Sprintf("%-9s", sev.String()+":")
		fmt.Fprintf(sb, "  %s %d\n", w.palette[sev].Sprint(label), counts[strings.ToLower(sev.String())])
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d issues\n\n", report.TotalIssues())
}

func (w *SimpleWriter) writeIssues(sb *strings.Builder, report *model.SimpleReport) {
	if !report.HasIssues() && !w.showEmpty {
		return
	}

	w.section(sb, "ISSUES")

	for _, sev := range severityOrder {
		issues := report.GetIssuesBySeverity(sev)
		if len(issues) == 0 && !w.showEmpty {
			continue
		}
		w.writeIssuesForSeverity(sb, sev, issues)
	}
}

func (w *SimpleWriter) writeIssuesForSeverity(sb *strings.Builder, sev model.Severity, issues []model.Issue) {
	fmt.Fprintf(sb, "[%s] %s\n", severityIndicator(sev), w.palette[sev].Sprint(sev.String()))

	if len(issues) == 0 {
		sb.WriteString("  No issues\n\n")
		return
	}

	for _, issue := range issues {
		fmt.Fprintf(sb, "  * %s\n", issue.Title)
		if issue.Value != "" {
			fmt.Fprintf(sb, "    Value: %s\n", issue.Value)
		}
		if issue.Location != "" {
			fmt.Fprintf(sb, "    Location: %s\n", issue.Location)
		}
		if w.verbose {
			if issue.Description != "" {
				fmt.Fprintf(sb, "    Description: %s\n", issue.Description)
			}
			if issue.Recommendation != "" {
				fmt.Fprintf(sb, "    Recommendation: %s\n", issue.Recommendation)
			}
		}
	}
	sb.WriteString("\n")
}

func severityIndicator(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	default:
		return "i"
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	w.rule(sb, "=")
	sb.WriteString("Report generated by jsrecon\n")
	w.rule(sb, "=")
}
