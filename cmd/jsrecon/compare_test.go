package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/jsrecon/internal/database"
	"github.com/nao1215/jsrecon/internal/model"
)

const compareTarget = "https://example.com"

var (
	firstScan  = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	secondScan = time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
)

func awsSecret(line int) model.SecretCandidate {
	return model.SecretCandidate{
		Value:       testAWSKey,
		Type:        "AWS_ACCESS_KEY_ID",
		Confidence:  model.ConfidenceHigh,
		LineNumber:  line,
		LineContent: `const awsKey = "` + testAWSKey + `";`,
	}
}

// previousReport has the AWS key on line 3 and a failed page.
func previousReport(target string) *model.Report {
	r := model.NewReport(target)
	r.StartedAt = firstScan.Add(-time.Minute)
	r.CompletedAt = firstScan
	r.PagesScanned = 2
	r.Append(
		model.NewSecretFinding(target+"/app.js", []model.SecretCandidate{awsSecret(3)}),
		model.NewErrorFinding(target+"/gone", errors.New("fetch failed")),
	)
	return r
}

// currentReport moved the AWS key to line 5, fixed the page and added a
// contextual secret.
func currentReport(target string) *model.Report {
	r := model.NewReport(target)
	r.StartedAt = secondScan.Add(-time.Minute)
	r.CompletedAt = secondScan
	r.PagesScanned = 3
	r.Append(model.NewSecretFinding(target+"/app.js", []model.SecretCandidate{
		awsSecret(5),
		{
			Value:       "q8Zr3LmX0vT7pW2nK5sB",
			Type:        "Contextual Secret",
			Confidence:  model.ConfidenceHigh,
			LineNumber:  9,
			LineContent: `const apiSecret = "q8Zr3LmX0vT7pW2nK5sB";`,
		},
	}))
	return r
}

func setupHistory(t *testing.T) *database.HistoryDB {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, r := range []*model.Report{previousReport(compareTarget), currentReport(compareTarget), previousReport("https://other.example")} {
		if _, err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
	}
	return db
}

func TestCompareReports(t *testing.T) {
	t.Parallel()

	result := compareReports(previousReport(compareTarget), currentReport(compareTarget))

	if len(result.NewIssues) != 1 || result.NewIssues[0].Type != "Contextual Secret" {
		t.Errorf("expected the contextual secret as the only new issue, got %+v", result.NewIssues)
	}
	if len(result.ResolvedIssues) != 1 || result.ResolvedIssues[0].Type != model.IssueTypeAnalysisError {
		t.Errorf("expected the analysis error as the only resolved issue, got %+v", result.ResolvedIssues)
	}
	if result.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged issue, got %d", result.UnchangedCount)
	}
	if result.RiskChange.Direction != riskDirectionWorsened {
		t.Errorf("expected worsened, got %s", result.RiskChange.Direction)
	}
	if result.RiskChange.HighDelta != 1 || result.RiskChange.InfoDelta != -1 {
		t.Errorf("expected high +1 and info -1, got %+v", result.RiskChange)
	}
	if result.PreviousScan.PagesScanned != 2 || result.CurrentScan.PagesScanned != 3 {
		t.Errorf("unexpected page counts: %d, %d", result.PreviousScan.PagesScanned, result.CurrentScan.PagesScanned)
	}
}

func TestCompareReports_RedactedMatchesRaw(t *testing.T) {
	t.Parallel()

	prev := previousReport(compareTarget).Redacted()
	curr := previousReport(compareTarget)

	result := compareReports(prev, curr)
	if len(result.NewIssues) != 0 || len(result.ResolvedIssues) != 0 {
		t.Errorf("expected redacted and raw reports to match, got new=%d resolved=%d",
			len(result.NewIssues), len(result.ResolvedIssues))
	}
	if result.RiskChange.Direction != riskDirectionUnchanged {
		t.Errorf("expected unchanged, got %s", result.RiskChange.Direction)
	}
}

func TestCalculateRiskChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		previous ScanMetadata
		current  ScanMetadata
		want     string
	}{
		{name: "fewer high issues", previous: ScanMetadata{HighCount: 2}, current: ScanMetadata{HighCount: 1}, want: riskDirectionImproved},
		{name: "new critical outweighs resolved highs", previous: ScanMetadata{HighCount: 1}, current: ScanMetadata{CriticalCount: 1}, want: riskDirectionWorsened},
		{name: "same counts", previous: ScanMetadata{MediumCount: 1}, current: ScanMetadata{MediumCount: 1}, want: riskDirectionUnchanged},
		{name: "errors only", previous: ScanMetadata{}, current: ScanMetadata{InfoCount: 2}, want: riskDirectionWorsened},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := calculateRiskChange(tt.previous, tt.current).Direction; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	if got := formatDelta(3); got != "+3" {
		t.Errorf("expected +3, got %s", got)
	}
	if got := formatDelta(-2); got != "-2" {
		t.Errorf("expected -2, got %s", got)
	}
	if got := formatDelta(0); got != "0" {
		t.Errorf("expected 0, got %s", got)
	}

	if got := formatRiskSummary(map[string]int{"high": 2, "info": 1}); got != "H:2 I:1" {
		t.Errorf("expected 'H:2 I:1', got %q", got)
	}
	if got := formatRiskSummary(map[string]int{}); got != noFindingsMessage {
		t.Errorf("expected %q, got %q", noFindingsMessage, got)
	}
	if got := formatRiskSummary(nil); got != "N/A" {
		t.Errorf("expected N/A, got %q", got)
	}
}

func TestRunComparison(t *testing.T) {
	t.Parallel()

	db := setupHistory(t)
	ctx := context.Background()

	t.Run("latest two scans as text", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runComparison(ctx, db, compareTarget, 0, "", outputText, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := out.String()
		for _, want := range []string{"Scan Comparison: " + compareTarget, "WORSENED", "New Issues (1)", "Resolved Issues (1)", "Unchanged: 1 issues"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, text)
			}
		}
		if strings.Contains(text, "q8Zr3LmX0vT7pW2nK5sB") {
			t.Error("expected stored secrets to stay redacted")
		}
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runComparison(ctx, db, compareTarget, 0, "", outputJSON, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var result ComparisonResult
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result.Target != compareTarget {
			t.Errorf("expected target %s, got %s", compareTarget, result.Target)
		}
		if len(result.NewIssues) != 1 || len(result.ResolvedIssues) != 1 {
			t.Errorf("expected 1 new and 1 resolved issue, got %d and %d", len(result.NewIssues), len(result.ResolvedIssues))
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runComparison(ctx, db, compareTarget, 0, "", outputMarkdown, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		md := out.String()
		for _, want := range []string{"# Scan Comparison: " + compareTarget, "## New Issues (1)", "## Resolved Issues (1)", "**Risk Status:**"} {
			if !strings.Contains(md, want) {
				t.Errorf("expected markdown to contain %q, got:\n%s", want, md)
			}
		}
	})

	t.Run("since a date between the scans", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runComparison(ctx, db, compareTarget, 0, "2026-01-02", outputJSON, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var result ComparisonResult
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result.PreviousScan.PagesScanned != 2 {
			t.Errorf("expected the first scan as baseline, got %+v", result.PreviousScan)
		}
	})

	errorTests := []struct {
		name       string
		target     string
		withScanID int64
		since      string
		wantErr    string
	}{
		{name: "unknown target", target: "https://nowhere.example", wantErr: "no scan history"},
		{name: "single scan", target: "https://other.example", wantErr: "at least 2 scans"},
		{name: "missing scan id", target: compareTarget, withScanID: 999, wantErr: "not found"},
		{name: "scan id of another target", target: compareTarget, withScanID: 3, wantErr: "belongs to"},
		{name: "invalid date", target: compareTarget, since: "01/02/2026", wantErr: "invalid date format"},
		{name: "date before any scan", target: compareTarget, since: "2025-12-31", wantErr: "no scans found at or before"},
		{name: "date after every scan", target: compareTarget, since: "2026-02-01", wantErr: "no scans found after"},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			err := runComparison(ctx, db, tt.target, tt.withScanID, tt.since, outputText, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestListCommands(t *testing.T) {
	t.Parallel()

	db := setupHistory(t)
	ctx := context.Background()

	t.Run("targets", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := listStoredTargets(ctx, db, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "Scanned targets (2)") {
			t.Errorf("expected two targets, got:\n%s", out.String())
		}
	})

	t.Run("history", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := listScanHistory(ctx, db, compareTarget, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := out.String()
		if !strings.Contains(text, "(2 scans)") {
			t.Errorf("expected two scans, got:\n%s", text)
		}
		if !strings.Contains(text, "2026-01-03 12:00:00") {
			t.Errorf("expected scan timestamp, got:\n%s", text)
		}
		if !strings.Contains(text, "H:2") {
			t.Errorf("expected risk summary of the latest scan, got:\n%s", text)
		}
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := listScanHistory(ctx, db, "https://nowhere.example", &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "No scan history found") {
			t.Errorf("expected empty history message, got:\n%s", out.String())
		}
	})
}

func TestCompareCmd_RequiresTarget(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()
	cmd.SetArgs([]string{"--db-dir", t.TempDir()})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "target URL is required") {
		t.Errorf("expected target required error, got %v", err)
	}
}
