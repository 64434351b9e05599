// Package report renders crawl reports.
//
//   - SimpleWriter: human-readable text, optionally colored
//   - JSONWriter: the full report plus its severity summary
//   - MarkdownWriter: tables, a mermaid pie chart and GitHub alerts
//
// All writers work from model.Report and its flattened model.SimpleReport
// view. Redaction is applied by the caller (model.Report.Redacted) before a
// report reaches a writer.
package report
