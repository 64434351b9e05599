package model

// Severity represents the risk level of a reported issue.
//
// iota-based constants keep comparisons and sorting cheap; String() gives the
// human-readable form.
type Severity int

const (
	// SeverityInfo indicates informational items with no direct security impact.
	// Examples: pages that could not be analysed.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues with limited impact.
	SeverityLow

	// SeverityMedium indicates issues that warrant review.
	// Examples: high-entropy literals that only look like a known key format.
	SeverityMedium

	// SeverityHigh indicates serious issues.
	// Examples: cloud or SaaS API keys, libraries with published advisories.
	SeverityHigh

	// SeverityCritical indicates issues that require immediate action.
	// Examples: private key material shipped to browsers.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Issue types that are not secret pattern ids.
const (
	// IssueTypeVulnerableLibrary is the issue type for vulnerable libraries.
	IssueTypeVulnerableLibrary = "vulnerable_library"

	// IssueTypeAnalysisError is the issue type for page analysis failures.
	IssueTypeAnalysisError = "analysis_error"
)

// FindingInfo contains metadata about an issue type including severity,
// a display title, impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Title          string
	Impact         string
	Recommendation string
}

// findingInfoMapping maps issue types (secret type ids, generic secret
// categories and the IssueType constants) to their metadata. It is the single
// source of truth for risk levels.
var findingInfoMapping = map[string]FindingInfo{
	// CRITICAL
	"PRIVATE_KEY": {
		Severity:       SeverityCritical,
		Title:          "Private Key Exposed",
		Impact:         "Private key material is delivered to every visitor. Anyone can impersonate the key owner or decrypt traffic protected by it.",
		Recommendation: "Revoke and rotate the key pair immediately and remove the key from client-side code.",
	},

	// HIGH
	"AWS_ACCESS_KEY_ID": {
		Severity:       SeverityHigh,
		Title:          "AWS Access Key ID",
		Impact:         "An AWS access key id is exposed. Combined with its secret it grants API access to the AWS account.",
		Recommendation: "Deactivate the key in IAM, rotate credentials, and use short-lived credentials issued by a backend instead.",
	},
	"GOOGLE_API_KEY": {
		Severity:       SeverityHigh,
		Title:          "Google API Key",
		Impact:         "A Google API key is exposed. Unrestricted keys can be abused for billable API calls.",
		Recommendation: "Restrict the key by HTTP referrer and API, or rotate it if restrictions are not possible.",
	},
	"SLACK_TOKEN": {
		Severity:       SeverityHigh,
		Title:          "Slack Token",
		Impact:         "A Slack token is exposed and may allow reading or posting messages in the workspace.",
		Recommendation: "Revoke the token in the Slack app settings and move Slack calls to a backend.",
	},
	"GITHUB_TOKEN": {
		Severity:       SeverityHigh,
		Title:          "GitHub Token",
		Impact:         "A GitHub token is exposed and may grant access to repositories and organization data.",
		Recommendation: "Revoke the token on GitHub and audit recent activity performed with it.",
	},
	"GITLAB_TOKEN": {
		Severity:       SeverityHigh,
		Title:          "GitLab Personal Access Token",
		Impact:         "A GitLab personal access token is exposed and may grant API access to projects.",
		Recommendation: "Revoke the token in GitLab and audit recent activity performed with it.",
	},
	"STRIPE_SECRET_KEY": {
		Severity:       SeverityHigh,
		Title:          "Stripe Live Secret Key",
		Impact:         "A live Stripe secret or restricted key is exposed and may allow charges, refunds or data access.",
		Recommendation: "Roll the key in the Stripe dashboard. Only publishable keys belong in client-side code.",
	},
	"Contextual Secret": {
		Severity:       SeverityHigh,
		Title:          "Contextual Secret",
		Impact:         "A high-entropy literal appears next to credential-related keywords and is likely a hardcoded secret.",
		Recommendation: "Verify the value, rotate it if it is a credential, and load it from a backend at runtime.",
	},
	IssueTypeVulnerableLibrary: {
		Severity:       SeverityHigh,
		Title:          "Vulnerable Library",
		Impact:         "A third-party library with published security advisories is served to visitors.",
		Recommendation: "Upgrade the library to a version that fixes the listed advisories.",
	},

	// MEDIUM
	"Potential Secret": {
		Severity:       SeverityMedium,
		Title:          "Potential Secret",
		Impact:         "A high-entropy literal contains a known key format but no credential keyword nearby.",
		Recommendation: "Review the literal and rotate it if it turns out to be a credential.",
	},

	// INFO
	IssueTypeAnalysisError: {
		Severity:       SeverityInfo,
		Title:          "Analysis Error",
		Impact:         "The page could not be analysed, so secrets or libraries on it may have been missed.",
		Recommendation: "Check that the page is reachable and re-run the scan.",
	},
}

// GetSeverity returns the severity level for an issue type.
// Returns SeverityInfo if the type is not in the mapping.
func GetSeverity(issueType string) Severity {
	if info, ok := findingInfoMapping[issueType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full information for an issue type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(issueType string) FindingInfo {
	if info, ok := findingInfoMapping[issueType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Title:          issueType,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess risk.",
	}
}
