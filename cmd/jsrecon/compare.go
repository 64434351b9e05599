package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/jsrecon/internal/config"
	"github.com/nao1215/jsrecon/internal/database"
	"github.com/nao1215/jsrecon/internal/model"
)

const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
	noFindingsMessage      = "No findings"

	sinceDateLayout = "2006-01-02"
)

// outputFormat selects how a comparison is printed.
type outputFormat int

const (
	outputText outputFormat = iota
	outputJSON
	outputMarkdown
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare scan results with stored history",
		Long: `Compare shows what changed between two stored scans of the same target:
- New findings that appeared since the earlier scan
- Resolved findings that are no longer present
- The change in issue counts per severity

Secrets are matched by fingerprint, so redacted history still compares
exactly. Scans are stored with 'jsrecon scan --save'.

Examples:
  # Compare the latest two scans of a target
  jsrecon compare https://example.com

  # List the stored scans of a target
  jsrecon compare --list https://example.com

  # Compare the latest scan with a specific stored scan
  jsrecon compare --with-scan-id 5 https://example.com

  # Compare the latest scan with the last scan taken before a date
  jsrecon compare --since 2026-01-01 https://example.com

  # List every target in the database
  jsrecon compare --list-targets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified target")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List all targets in the database")

	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the last scan taken at or before this date (format: YYYY-MM-DD)")

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	out := cmd.OutOrStdout()

	listTargets, err := flags.GetBool("list-targets")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var target string
	if !listTargets {
		if len(args) == 0 {
			return errors.New("target URL is required (use --list-targets to see stored targets)")
		}
		target = strings.TrimSpace(args[0])
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if listTargets {
		return listStoredTargets(ctx, db, out)
	}

	listHistory, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listScanHistory(ctx, db, target, out)
	}

	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	format := outputText
	switch {
	case jsonOutput:
		format = outputJSON
	case markdownOutput:
		format = outputMarkdown
	}

	withScanID, err := flags.GetInt64("with-scan-id")
	if err != nil {
		return err
	}
	sinceDate, err := flags.GetString("since")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, target, withScanID, sinceDate, format, out)
}

func listStoredTargets(ctx context.Context, db *database.HistoryDB, out io.Writer) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No scanned targets found in the database.")
		fmt.Fprintln(out, "\nUse 'jsrecon scan --save <url>' to store a scan.")
		return nil
	}

	fmt.Fprintf(out, "Scanned targets (%d):\n\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(out, "  • %s\n", t)
	}
	fmt.Fprintln(out, "\nUse 'jsrecon compare --list <url>' to see the scan history of a target.")

	return nil
}

func listScanHistory(ctx context.Context, db *database.HistoryDB, target string, out io.Writer) error {
	metas, err := db.GetHistoryWithMetadata(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(metas) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", target)
		fmt.Fprintln(out, "\nUse 'jsrecon scan --save' to store a scan of this target.")
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", target, len(metas))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %s\n", "ID", "Date", "Pages", "Risk Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 66))

	for _, meta := range metas {
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.PagesScanned,
			formatRiskSummary(meta.RiskSummary),
		)
	}

	fmt.Fprintln(out, "\nUse 'jsrecon compare <url>' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'jsrecon compare --with-scan-id <id> <url>' to compare with a specific scan.")

	return nil
}

// formatRiskSummary renders a risk summary map as "C:1 H:2".
func formatRiskSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	for _, sev := range []struct{ key, abbr string }{
		{"critical", "C"}, {"high", "H"}, {"medium", "M"}, {"low", "L"}, {"info", "I"},
	} {
		if v := summary[sev.key]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", sev.abbr, v))
		}
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison selects the two reports to compare and prints the result.
// The latest scan is always the current one.
func runComparison(ctx context.Context, db *database.HistoryDB, target string, withScanID int64, sinceDate string, format outputFormat, out io.Writer) error {
	reports, err := db.GetHistory(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", target)
	}
	if len(reports) < 2 && withScanID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	current := reports[0]
	var previous *model.Report

	switch {
	case withScanID > 0:
		previous, err = db.GetReportByID(ctx, withScanID)
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("scan with ID %d not found", withScanID)
		}
		if err != nil {
			return fmt.Errorf("failed to get scan with ID %d: %w", withScanID, err)
		}
		if previous.Target != target {
			return fmt.Errorf("scan ID %d belongs to %s, not %s", withScanID, previous.Target, target)
		}
	case sinceDate != "":
		since, err := time.Parse(sinceDateLayout, sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		previous, err = db.GetReportBefore(ctx, target, since)
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no scans found at or before %s", sinceDate)
		}
		if err != nil {
			return fmt.Errorf("failed to get scan before %s: %w", sinceDate, err)
		}
		if previous.CompletedAt.Equal(current.CompletedAt) {
			return fmt.Errorf("no scans found after %s; at least 2 scans are required for comparison", sinceDate)
		}
	default:
		previous = reports[1]
	}

	comparison := compareReports(previous, current)

	switch format {
	case outputJSON:
		return outputComparisonJSON(comparison, out)
	case outputMarkdown:
		return outputComparisonMarkdown(comparison, out)
	default:
		return outputComparisonText(comparison, out)
	}
}

// ComparisonResult holds the result of comparing two scan reports.
type ComparisonResult struct {
	Target string `json:"target"`

	PreviousScan ScanMetadata `json:"previous_scan"`
	CurrentScan  ScanMetadata `json:"current_scan"`

	// NewIssues are in the current scan but not in the previous one.
	NewIssues []model.Issue `json:"new_issues,omitempty"`

	// ResolvedIssues are in the previous scan but not in the current one.
	ResolvedIssues []model.Issue `json:"resolved_issues,omitempty"`

	UnchangedCount int `json:"unchanged_count"`

	RiskChange RiskChange `json:"risk_change"`
}

// ScanMetadata summarizes one side of a comparison.
type ScanMetadata struct {
	DateScanned   time.Time `json:"date_scanned"`
	PagesScanned  int       `json:"pages_scanned"`
	TotalIssues   int       `json:"total_issues"`
	CriticalCount int       `json:"critical_count"`
	HighCount     int       `json:"high_count"`
	MediumCount   int       `json:"medium_count"`
	LowCount      int       `json:"low_count"`
	InfoCount     int       `json:"info_count"`
}

// RiskChange describes the change in risk level between scans.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	CriticalDelta int `json:"critical_delta"`
	HighDelta     int `json:"high_delta"`
	MediumDelta   int `json:"medium_delta"`
	LowDelta      int `json:"low_delta"`
	InfoDelta     int `json:"info_delta"`
}

func scanMetadata(simple *model.SimpleReport) ScanMetadata {
	return ScanMetadata{
		DateScanned:   simple.DateScanned,
		PagesScanned:  simple.PagesScanned,
		TotalIssues:   simple.TotalIssues(),
		CriticalCount: simple.CriticalCount,
		HighCount:     simple.HighCount,
		MediumCount:   simple.MediumCount,
		LowCount:      simple.LowCount,
		InfoCount:     simple.InfoCount,
	}
}

// compareReports diffs two reports issue by issue.
// New and resolved issues keep report order.
func compareReports(previous, current *model.Report) *ComparisonResult {
	prev := model.NewSimpleReport(previous)
	curr := model.NewSimpleReport(current)

	result := &ComparisonResult{
		Target:       current.Target,
		PreviousScan: scanMetadata(prev),
		CurrentScan:  scanMetadata(curr),
	}

	previousKeys := make(map[string]struct{}, len(prev.Issues))
	for _, issue := range prev.Issues {
		previousKeys[issueKey(issue)] = struct{}{}
	}
	currentKeys := make(map[string]struct{}, len(curr.Issues))
	for _, issue := range curr.Issues {
		currentKeys[issueKey(issue)] = struct{}{}
	}

	for _, issue := range curr.Issues {
		if _, ok := previousKeys[issueKey(issue)]; !ok {
			result.NewIssues = append(result.NewIssues, issue)
		}
	}
	for _, issue := range prev.Issues {
		if _, ok := currentKeys[issueKey(issue)]; ok {
			result.UnchangedCount++
		} else {
			result.ResolvedIssues = append(result.ResolvedIssues, issue)
		}
	}

	result.RiskChange = calculateRiskChange(result.PreviousScan, result.CurrentScan)

	return result
}

// issueKey identifies an issue across scans. Secrets are keyed by
// fingerprint and source file so that masked values and moved lines still
// match.
func issueKey(issue model.Issue) string {
	if issue.Fingerprint != "" {
		source := issue.Location
		if i := strings.LastIndex(source, ":"); i > 0 {
			source = source[:i]
		}
		return issue.Type + "|" + issue.Fingerprint + "|" + source
	}
	return issue.Type + "|" + issue.Value + "|" + issue.Location
}

// calculateRiskChange weighs severity deltas into an overall direction.
func calculateRiskChange(previous, current ScanMetadata) RiskChange {
	change := RiskChange{
		CriticalDelta: current.CriticalCount - previous.CriticalCount,
		HighDelta:     current.HighCount - previous.HighCount,
		MediumDelta:   current.MediumCount - previous.MediumCount,
		LowDelta:      current.LowCount - previous.LowCount,
		InfoDelta:     current.InfoCount - previous.InfoCount,
	}

	score := func(m ScanMetadata) int {
		return m.CriticalCount*100 + m.HighCount*50 + m.MediumCount*10 + m.LowCount*5 + m.InfoCount
	}

	switch p, c := score(previous), score(current); {
	case c < p:
		change.Direction = riskDirectionImproved
	case c > p:
		change.Direction = riskDirectionWorsened
	default:
		change.Direction = riskDirectionUnchanged
	}

	return change
}

func outputComparisonJSON(result *ComparisonResult, out io.Writer) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputComparisonMarkdown(result *ComparisonResult, out io.Writer) error {
	md := markdown.NewMarkdown(out)

	md.H1("Scan Comparison: " + result.Target)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainText("**Risk Status:** " + formatRiskDirection(result.RiskChange.Direction))
	md.PlainText("")

	prev, curr, delta := result.PreviousScan, result.CurrentScan, result.RiskChange
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", prev.DateScanned.Format("2006-01-02 15:04"), curr.DateScanned.Format("2006-01-02 15:04"), "-"},
			{"Pages", strconv.Itoa(prev.PagesScanned), strconv.Itoa(curr.PagesScanned), formatDelta(curr.PagesScanned - prev.PagesScanned)},
			{"Critical", strconv.Itoa(prev.CriticalCount), strconv.Itoa(curr.CriticalCount), formatDelta(delta.CriticalDelta)},
			{"High", strconv.Itoa(prev.HighCount), strconv.Itoa(curr.HighCount), formatDelta(delta.HighDelta)},
			{"Medium", strconv.Itoa(prev.MediumCount), strconv.Itoa(curr.MediumCount), formatDelta(delta.MediumDelta)},
			{"Low", strconv.Itoa(prev.LowCount), strconv.Itoa(curr.LowCount), formatDelta(delta.LowDelta)},
			{"Info", strconv.Itoa(prev.InfoCount), strconv.Itoa(curr.InfoCount), formatDelta(delta.InfoDelta)},
			{"**Total**", "**" + strconv.Itoa(prev.TotalIssues) + "**", "**" + strconv.Itoa(curr.TotalIssues) + "**",
				"**" + formatDelta(curr.TotalIssues-prev.TotalIssues) + "**"},
		},
	})
	md.PlainText("")

	if len(result.NewIssues) > 0 {
		md.H2(fmt.Sprintf("New Issues (%d)", len(result.NewIssues)))
		md.PlainText("")
		items := make([]string, 0, len(result.NewIssues))
		for _, issue := range result.NewIssues {
			item := fmt.Sprintf("**[%s]** %s: %s", issue.SeverityText, issue.Title, issue.Value)
			if issue.Location != "" {
				item += " (`" + issue.Location + "`)"
			}
			items = append(items, item)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ResolvedIssues) > 0 {
		md.H2(fmt.Sprintf("Resolved Issues (%d)", len(result.ResolvedIssues)))
		md.PlainText("")
		items := make([]string, 0, len(result.ResolvedIssues))
		for _, issue := range result.ResolvedIssues {
			items = append(items, fmt.Sprintf("~~**[%s]** %s: %s~~", issue.SeverityText, issue.Title, issue.Value))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainText(fmt.Sprintf("*%d issues unchanged*", result.UnchangedCount))
	}

	return md.Build()
}

func outputComparisonText(result *ComparisonResult, out io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Scan Comparison: %s\n", result.Target)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "\nRisk Status: %s\n", formatRiskDirection(result.RiskChange.Direction))
	fmt.Fprintf(&sb, "\nPrevious scan: %s\n", result.PreviousScan.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current scan:  %s\n", result.CurrentScan.DateScanned.Format("2006-01-02 15:04:05"))

	prev, curr, delta := result.PreviousScan, result.CurrentScan, result.RiskChange
	rows := []struct {
		label      string
		prev, curr int
		delta      int
	}{
		{"Critical", prev.CriticalCount, curr.CriticalCount, delta.CriticalDelta},
		{"High", prev.HighCount, curr.HighCount, delta.HighDelta},
		{"Medium", prev.MediumCount, curr.MediumCount, delta.MediumDelta},
		{"Low", prev.LowCount, curr.LowCount, delta.LowDelta},
		{"Info", prev.InfoCount, curr.InfoCount, delta.InfoDelta},
	}

	sb.WriteString("\nIssues Summary:\n")
	fmt.Fprintf(&sb, "  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, row := range rows {
		fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", row.label, row.prev, row.curr, formatDelta(row.delta))
	}
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Total",
		prev.TotalIssues, curr.TotalIssues, formatDelta(curr.TotalIssues-prev.TotalIssues))

	if len(result.NewIssues) > 0 {
		fmt.Fprintf(&sb, "\nNew Issues (%d):\n", len(result.NewIssues))
		for _, issue := range result.NewIssues {
			fmt.Fprintf(&sb, "  [+] [%s] %s: %s\n", issue.SeverityText, issue.Title, issue.Value)
			if issue.Location != "" {
				fmt.Fprintf(&sb, "      Location: %s\n", issue.Location)
			}
		}
	}

	if len(result.ResolvedIssues) > 0 {
		fmt.Fprintf(&sb, "\nResolved Issues (%d):\n", len(result.ResolvedIssues))
		for _, issue := range result.ResolvedIssues {
			fmt.Fprintf(&sb, "  [-] [%s] %s: %s\n", issue.SeverityText, issue.Title, issue.Value)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d issues\n", result.UnchangedCount)
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

func formatRiskDirection(direction string) string {
	switch direction {
	case riskDirectionImproved:
		return "IMPROVED (risk decreased)"
	case riskDirectionWorsened:
		return "WORSENED (risk increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with its sign.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
