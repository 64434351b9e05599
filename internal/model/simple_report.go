package model

import (
	"fmt"
	"strings"
	"time"
)

// SimpleReport is a flattened, severity-ranked view of a Report.
// Every secret candidate, vulnerable library and analysis error becomes one
// Issue. Report writers and the history store work from this view.
type SimpleReport struct {
	// Target is the scanned start URL.
	Target string `json:"target"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"date_scanned"`

	// === Severity Summary ===

	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`
	InfoCount     int `json:"info_count"`

	// === Issues ===

	// Issues contains all flattened issues in report order.
	Issues []Issue `json:"issues,omitempty"`

	// === Crawl Statistics ===

	// PagesScanned is the number of pages visited.
	PagesScanned int `json:"pages_scanned"`

	// TimedOut indicates the run deadline cut the crawl short.
	TimedOut bool `json:"timed_out"`

	// AdvisoryLookupFailed indicates vulnerability results are incomplete.
	AdvisoryLookupFailed bool `json:"advisory_lookup_failed"`
}

// Issue is a single row in the simple report.
type Issue struct {
	// Type is a secret type id or one of the IssueType constants.
	// It keys into findingInfoMapping.
	Type string `json:"type"`

	// Kind is the kind of the finding the issue was derived from.
	Kind FindingKind `json:"kind"`

	Severity     Severity `json:"severity"`
	SeverityText string   `json:"severity_text"`

	// Title is a short description of the issue.
	Title string `json:"title"`

	// Description provides more detail, such as the offending line.
	Description string `json:"description,omitempty"`

	Impact         string `json:"impact,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the secret, the advisory ids, or the error message.
	Value string `json:"value,omitempty"`

	// Location is where the issue was found (source and line).
	Location string `json:"location,omitempty"`

	// Fingerprint identifies a secret value across redaction.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// NewSimpleReport creates a SimpleReport from a Report.
func NewSimpleReport(report *Report) *SimpleReport {
	simple := &SimpleReport{
		Target:               report.Target,
		DateScanned:          report.StartedAt,
		PagesScanned:         report.PagesScanned,
		TimedOut:             report.TimedOut,
		AdvisoryLookupFailed: report.AdvisoryLookupFailed,
	}

	for _, f := range report.Vulnerabilities {
		switch f.Kind {
		case KindHardcodedSecret:
			simple.collectSecrets(f)
		case KindVulnerableLibrary:
			simple.collectLibrary(f)
		case KindAnalysisError:
			simple.collectError(f)
		}
	}

	simple.countBySeverity()

	return simple
}

// collectSecrets adds one issue per secret candidate.
func (s *SimpleReport) collectSecrets(f Finding) {
	for _, secret := range f.Secrets {
		location := fmt.Sprintf("%s:%d", f.Source, secret.LineNumber)
		description := fmt.Sprintf("%s confidence match on line %d: %s",
			secret.Confidence, secret.LineNumber, secret.LineContent)
		s.addIssue(secret.Type, KindHardcodedSecret, "", description,
			secret.Value, location, secret.Fingerprint)
	}
}

// collectLibrary adds one issue for a vulnerable library.
func (s *SimpleReport) collectLibrary(f Finding) {
	if f.Library == nil {
		return
	}
	lib := f.Library

	ids := make([]string, 0, len(lib.Vulnerabilities))
	summaries := make([]string, 0, len(lib.Vulnerabilities))
	for _, v := range lib.Vulnerabilities {
		ids = append(ids, v.ID)
		if v.Summary != "" {
			summaries = append(summaries, v.ID+": "+v.Summary)
		}
	}

	title := fmt.Sprintf("Vulnerable Library: %s %s", lib.Name, lib.Version)
	description := fmt.Sprintf("%d published advisories affect %s@%s", len(ids), lib.Name, lib.Version)
	if len(summaries) > 0 {
		description += "\n" + strings.Join(summaries, "\n")
	}
	s.addIssue(IssueTypeVulnerableLibrary, KindVulnerableLibrary, title, description,
		strings.Join(ids, ", "), f.Source, "")
}

// collectError adds one issue for a page analysis failure.
func (s *SimpleReport) collectError(f Finding) {
	msg := ""
	if f.Error != nil {
		msg = f.Error.Message
	}
	s.addIssue(IssueTypeAnalysisError, KindAnalysisError, "", "", msg, f.Source, "")
}

// addIssue adds an issue to the report. An empty title falls back to the
// title registered for the issue type.
func (s *SimpleReport) addIssue(issueType string, kind FindingKind, title, description, value, location, fingerprint string) {
	info := GetFindingInfo(issueType)
	if title == "" {
		title = info.Title
	}
	s.Issues = append(s.Issues, Issue{
		Type:           issueType,
		Kind:           kind,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          title,
		Description:    description,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
		Fingerprint:    fingerprint,
	})
}

// countBySeverity counts issues by severity level.
func (s *SimpleReport) countBySeverity() {
	for _, issue := range s.Issues {
		switch issue.Severity {
		case SeverityCritical:
			s.CriticalCount++
		case SeverityHigh:
			s.HighCount++
		case SeverityMedium:
			s.MediumCount++
		case SeverityLow:
			s.LowCount++
		case SeverityInfo:
			s.InfoCount++
		}
	}
}

// TotalIssues returns the total number of issues.
func (s *SimpleReport) TotalIssues() int {
	return len(s.Issues)
}

// HasIssues returns true if there are any issues.
func (s *SimpleReport) HasIssues() bool {
	return len(s.Issues) > 0
}

// GetIssuesBySeverity returns issues filtered by severity.
func (s *SimpleReport) GetIssuesBySeverity(severity Severity) []Issue {
	var result []Issue
	for _, issue := range s.Issues {
		if issue.Severity == severity {
			result = append(result, issue)
		}
	}
	return result
}

// RiskSummary returns issue counts keyed by lower-case severity name.
func (s *SimpleReport) RiskSummary() map[string]int {
	return map[string]int{
		"critical": s.CriticalCount,
		"high":     s.HighCount,
		"medium":   s.MediumCount,
		"low":      s.LowCount,
		"info":     s.InfoCount,
	}
}
