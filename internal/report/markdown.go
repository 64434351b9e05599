package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/jsrecon/internal/model"
)

// MarkdownWriter outputs reports as GitHub-flavored Markdown with a
// severity table, a mermaid pie chart and alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full report, including the vulnerable library table.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	return w.write(model.NewSimpleReport(report), report)
}

// WriteSimple outputs the simple report in Markdown format.
func (w *MarkdownWriter) WriteSimple(report *model.SimpleReport) (int, error) {
	return w.write(report, nil)
}

func (w *MarkdownWriter) write(simple *model.SimpleReport, full *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, simple)
	w.writeSummary(md, simple)
	if full != nil {
		w.writeLibraries(md, full)
	}
	w.writeIssues(md, simple)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SimpleReport) {
	md.H1("jsrecon Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target + "`"},
			{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Pages Scanned", strconv.Itoa(report.PagesScanned)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.SimpleReport) {
	md.H2("Severity Summary")
	md.PlainText("")

	counts := report.RiskSummary()
	rows := make([][]string, 0, len(severityOrder)+1)
	for _, sev := range severityOrder {
		rows = append(rows, []string{severityLabel(sev), strconv.Itoa(counts[strings.ToLower(sev.String())])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(report.TotalIssues()) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.HasIssues() {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.SimpleReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Issue Severity Distribution"),
		piechart.WithShowData(true),
	)

	counts := report.RiskSummary()
	for _, sev := range severityOrder {
		if n := counts[strings.ToLower(sev.String())]; n > 0 {
			chart.LabelAndIntValue(severityLabel(sev), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.SimpleReport) {
	switch {
	case report.CriticalCount > 0:
		md.Cautionf("Private key material is exposed. %d critical issue(s) require immediate rotation.",
			report.CriticalCount)
	case report.HighCount > 0:
		md.Warningf("%d high severity issue(s) found in client-side code.", report.HighCount)
	case report.MediumCount > 0:
		md.Importantf("%d possible secret(s) need manual review.", report.MediumCount)
	case report.TotalIssues() > 0:
		md.Note("Only informational issues were found.")
	default:
		md.Tip("No secrets or vulnerable libraries detected.")
	}
	md.PlainText("")

	if report.AdvisoryLookupFailed {
		md.Warning("At least one advisory lookup failed. The vulnerable library list may be incomplete.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeLibraries(md *markdown.Markdown, report *model.Report) {
	libs := report.FindingsOfKind(model.KindVulnerableLibrary)
	if len(libs) == 0 {
		return
	}

	md.H2("Vulnerable Libraries")
	md.PlainText("")

	rows := make([][]string, 0, len(libs))
	for _, f := range libs {
		ids := make([]string, 0, len(f.Library.Vulnerabilities))
		for _, v := range f.Library.Vulnerabilities {
			ids = append(ids, v.ID)
		}
		rows = append(rows, []string{
			libraryLabel(f.Library.Name, f.Library.Version),
			truncateString(f.Source, 60),
			strings.Join(ids, ", "),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Library", "Source", "Advisories"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeIssues(md *markdown.Markdown, report *model.SimpleReport) {
	md.H2("Issues")
	md.PlainText("")

	if !report.HasIssues() {
		md.PlainText("No issues detected.")
		md.PlainText("")
		return
	}

	for _, sev := range severityOrder {
		issues := report.GetIssuesBySeverity(sev)
		if len(issues) == 0 {
			continue
		}
		md.H3(severityLabel(sev))
		md.PlainText("")
		w.writeIssuesTable(md, issues)
	}
}

func (w *MarkdownWriter) writeIssuesTable(md *markdown.Markdown, issues []model.Issue) {
	rows := make([][]string, len(issues))
	for i, issue := range issues {
		rows[i] = []string{
			issue.Title,
			orDash(truncateString(issue.Value, 50)),
			orDash(truncateString(issue.Location, 60)),
			orDash(truncateString(issue.Recommendation, 60)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Title", "Value", "Location", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, issue := range issues {
		if issue.Description != "" {
			md.Details(issue.Title, issue.Description)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by jsrecon*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
