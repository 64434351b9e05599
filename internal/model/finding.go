package model

// FindingKind identifies which payload a Finding carries.
type FindingKind string

const (
	// KindHardcodedSecret marks a finding that carries SecretCandidates.
	KindHardcodedSecret FindingKind = "HardcodedSecret"

	// KindVulnerableLibrary marks a finding that carries a VulnerableLibrary.
	KindVulnerableLibrary FindingKind = "VulnerableLibrary"

	// KindAnalysisError marks a page-level failure recorded during a crawl.
	KindAnalysisError FindingKind = "AnalysisError"
)

// Confidence is the qualitative certainty attached to a secret candidate.
type Confidence string

const (
	// ConfidenceHigh is used for signature matches and keyword-backed candidates.
	ConfidenceHigh Confidence = "High"

	// ConfidenceMedium is used for candidates supported only by a signature shape.
	ConfidenceMedium Confidence = "Medium"
)

// Code block origin descriptors for code that is not a downloaded script.
const (
	// SourceInlineScript tags the body of a <script> element without src.
	SourceInlineScript = "inline-script"

	// SourceAttributePrefix prefixes intrinsic event handler attributes,
	// e.g. "attribute:onclick".
	SourceAttributePrefix = "attribute:"
)

// CodeBlock is a piece of JavaScript text together with where it came from.
// Source is the absolute script URL, SourceInlineScript, or
// SourceAttributePrefix followed by the attribute name.
type CodeBlock struct {
	Source  string `json:"source"`
	Content string `json:"-"`
}

// SecretCandidate is a single suspected secret inside a code block.
type SecretCandidate struct {
	// Value is the matched substring.
	Value string `json:"value"`

	// Type is a named signature id (e.g. AWS_ACCESS_KEY_ID) or a generic
	// category such as "Contextual Secret".
	Type string `json:"type"`

	// Confidence is High or Medium.
	Confidence Confidence `json:"confidence"`

	// LineNumber is the 1-based line the value was first seen on.
	LineNumber int `json:"line_number"`

	// LineContent is the trimmed source line, truncated.
	LineContent string `json:"line_content"`

	// Fingerprint is a stable hash of Value. It survives redaction, so
	// stored reports can still be compared.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// LibrarySignature is a library name and version recognized in code.
// Name is the npm package name.
type LibrarySignature struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DetectedLibrary is a LibrarySignature attributed to the code block it was found in.
type DetectedLibrary struct {
	LibrarySignature
	Source string `json:"source"`
}

// Advisory is a published vulnerability record.
type Advisory struct {
	ID       string   `json:"id"`
	Modified string   `json:"modified,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Aliases  []string `json:"aliases,omitempty"`
}

// AdvisoryResult is one positional entry of an advisory batch response.
// An empty Vulns slice means no known vulnerability.
type AdvisoryResult struct {
	Vulns []Advisory `json:"vulns,omitempty"`
}

// VulnerableLibrary is the payload of a KindVulnerableLibrary finding.
type VulnerableLibrary struct {
	Name            string     `json:"name"`
	Version         string     `json:"version"`
	Vulnerabilities []Advisory `json:"vulnerabilities"`
}

// AnalysisError is the payload of a KindAnalysisError finding.
type AnalysisError struct {
	Message string `json:"message"`
}

// Finding is a tagged variant: Kind selects which one of Secrets, Library
// or Error is populated. Use the New*Finding constructors to build one.
type Finding struct {
	// Source is the code block origin descriptor, or the page URL for
	// analysis errors.
	Source string `json:"source"`

	// Kind selects the payload.
	Kind FindingKind `json:"kind"`

	// Secrets is set for KindHardcodedSecret.
	Secrets []SecretCandidate `json:"secrets,omitempty"`

	// Library is set for KindVulnerableLibrary.
	Library *VulnerableLibrary `json:"library,omitempty"`

	// Error is set for KindAnalysisError.
	Error *AnalysisError `json:"error,omitempty"`
}

// NewSecretFinding creates a KindHardcodedSecret finding. Candidates are
// fingerprinted on the way in.
func NewSecretFinding(source string, secrets []SecretCandidate) Finding {
	fingerprinted := make([]SecretCandidate, len(secrets))
	for i, s := range secrets {
		if s.Fingerprint == "" {
			s.Fingerprint = Fingerprint(s.Value)
		}
		fingerprinted[i] = s
	}
	return Finding{
		Source:  source,
		Kind:    KindHardcodedSecret,
		Secrets: fingerprinted,
	}
}

// NewLibraryFinding creates a KindVulnerableLibrary finding.
func NewLibraryFinding(lib DetectedLibrary, vulns []Advisory) Finding {
	return Finding{
		Source: lib.Source,
		Kind:   KindVulnerableLibrary,
		Library: &VulnerableLibrary{
			Name:            lib.Name,
			Version:         lib.Version,
			Vulnerabilities: vulns,
		},
	}
}

// NewErrorFinding creates a KindAnalysisError finding for a page.
func NewErrorFinding(pageURL string, err error) Finding {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Finding{
		Source: pageURL,
		Kind:   KindAnalysisError,
		Error:  &AnalysisError{Message: msg},
	}
}
