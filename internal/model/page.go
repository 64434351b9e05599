package model

// PageAnalysis accumulates everything the page pipeline learns about one
// crawled page. Each step reads what earlier steps filled in and adds its own
// part. It is owned by a single goroutine for the duration of the pipeline.
type PageAnalysis struct {
	// URL is the page URL as taken from the frontier.
	URL string

	// FinalURL is the URL after redirects; relative references on the page
	// are resolved against it.
	FinalURL string

	// Depth is the BFS level the page was discovered at (0-based).
	Depth int

	// HTML is the raw page body.
	HTML string

	// ScriptURLs are the absolute external script URLs found on the page.
	ScriptURLs []string

	// CodeBlocks are the downloaded scripts followed by inline and attribute
	// code, in that order.
	CodeBlocks []CodeBlock

	// Links are same-origin links discovered for the next crawl level.
	Links []string

	// Findings are this page's secret and library findings, in discovery order.
	Findings []Finding

	// Libraries are the libraries identified across all code blocks.
	Libraries []DetectedLibrary

	// AdvisoryLookupFailed is set when the advisory batch for this page failed.
	AdvisoryLookupFailed bool
}

// NewPageAnalysis creates an empty analysis for a frontier URL.
func NewPageAnalysis(url string, depth int) *PageAnalysis {
	return &PageAnalysis{
		URL:      url,
		FinalURL: url,
		Depth:    depth,
	}
}

// BaseURL returns the URL relative references should be resolved against.
func (p *PageAnalysis) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}
