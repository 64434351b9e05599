package model

import "time"

// Report is the result of one crawl run against a single origin.
// It always has a coherent shape, even when individual pages failed:
// those failures are embedded as KindAnalysisError findings.
type Report struct {
	// Target is the start URL as given by the caller.
	Target string `json:"target"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the crawl reached Done.
	CompletedAt time.Time `json:"completed_at"`

	// Vulnerabilities holds all findings in crawl-then-within-page
	// discovery order. The slice is only ever appended to during a run.
	Vulnerabilities []Finding `json:"vulnerabilities"`

	// PagesScanned is the size of the visited set at termination.
	PagesScanned int `json:"pages_scanned"`

	// AdvisoryLookupFailed is true when at least one advisory batch lookup
	// failed. In that case "no vulnerable libraries" is not conclusive.
	AdvisoryLookupFailed bool `json:"advisory_lookup_failed"`

	// TimedOut is true when the run deadline cut the crawl short.
	TimedOut bool `json:"timed_out"`
}

// NewReport creates an empty report for target.
func NewReport(target string) *Report {
	return &Report{
		Target:          target,
		StartedAt:       time.Now(),
		Vulnerabilities: make([]Finding, 0),
	}
}

// Append adds findings to the report in order.
func (r *Report) Append(findings ...Finding) {
	r.Vulnerabilities = append(r.Vulnerabilities, findings...)
}

// FindingsOfKind returns the findings with the given kind, in report order.
func (r *Report) FindingsOfKind(kind FindingKind) []Finding {
	var result []Finding
	for _, f := range r.Vulnerabilities {
		if f.Kind == kind {
			result = append(result, f)
		}
	}
	return result
}

// SecretCount returns the number of secret candidates across all findings.
func (r *Report) SecretCount() int {
	n := 0
	for _, f := range r.Vulnerabilities {
		n += len(f.Secrets)
	}
	return n
}

// Duration returns how long the crawl took. Zero if it has not completed.
func (r *Report) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
