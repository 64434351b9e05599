package model

import "testing"

func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "INFO"},
		{SeverityLow, "LOW"},
		{SeverityMedium, "MEDIUM"},
		{SeverityHigh, "HIGH"},
		{SeverityCritical, "CRITICAL"},
		{Severity(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		issueType string
		expected  Severity
	}{
		{"PRIVATE_KEY", SeverityCritical},
		{"AWS_ACCESS_KEY_ID", SeverityHigh},
		{"GOOGLE_API_KEY", SeverityHigh},
		{"SLACK_TOKEN", SeverityHigh},
		{"GITHUB_TOKEN", SeverityHigh},
		{"GITLAB_TOKEN", SeverityHigh},
		{"STRIPE_SECRET_KEY", SeverityHigh},
		{"Contextual Secret", SeverityHigh},
		{IssueTypeVulnerableLibrary, SeverityHigh},
		{"Potential Secret", SeverityMedium},
		{IssueTypeAnalysisError, SeverityInfo},
		{"unknown_type", SeverityInfo},
		{"", SeverityInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.issueType, func(t *testing.T) {
			t.Parallel()
			if got := GetSeverity(tc.issueType); got != tc.expected {
				t.Errorf("GetSeverity(%q) = %v, expected %v", tc.issueType, got, tc.expected)
			}
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	t.Parallel()

	if !(SeverityInfo < SeverityLow && SeverityLow < SeverityMedium &&
		SeverityMedium < SeverityHigh && SeverityHigh < SeverityCritical) {
		t.Error("severity levels are not ordered from Info to Critical")
	}
}

func TestGetFindingInfo(t *testing.T) {
	t.Parallel()

	t.Run("known type", func(t *testing.T) {
		t.Parallel()
		info := GetFindingInfo("PRIVATE_KEY")
		if info.Severity != SeverityCritical {
			t.Errorf("expected CRITICAL, got %v", info.Severity)
		}
		if info.Title == "" || info.Impact == "" || info.Recommendation == "" {
			t.Errorf("expected populated info, got %+v", info)
		}
	})

	t.Run("unknown type falls back to type as title", func(t *testing.T) {
		t.Parallel()
		info := GetFindingInfo("SOMETHING_NEW")
		if info.Severity != SeverityInfo {
			t.Errorf("expected INFO, got %v", info.Severity)
		}
		if info.Title != "SOMETHING_NEW" {
			t.Errorf("expected title %q, got %q", "SOMETHING_NEW", info.Title)
		}
	})
}

func TestFindingInfoMappingCompleteness(t *testing.T) {
	t.Parallel()

	for issueType, info := range findingInfoMapping {
		if info.Title == "" {
			t.Errorf("%s: empty title", issueType)
		}
		if info.Impact == "" {
			t.Errorf("%s: empty impact", issueType)
		}
		if info.Recommendation == "" {
			t.Errorf("%s: empty recommendation", issueType)
		}
	}
}
