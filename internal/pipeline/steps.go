package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/jsrecon/internal/extract"
	"github.com/nao1215/jsrecon/internal/fetcher"
	"github.com/nao1215/jsrecon/internal/library"
	"github.com/nao1215/jsrecon/internal/model"
	"github.com/nao1215/jsrecon/internal/secrets"
)

// PageFetcher retrieves pages and scripts. *fetcher.Fetcher implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*fetcher.Page, error)
	FetchScripts(ctx context.Context, urls []string) ([]model.CodeBlock, error)
}

// AdvisoryQuerier looks up advisories for a batch of libraries. The result
// at index i belongs to libs[i]. *osv.Client implements it.
type AdvisoryQuerier interface {
	QueryBatch(ctx context.Context, libs []model.LibrarySignature) ([]model.AdvisoryResult, error)
}

// ErrAlreadyVisited is returned by FetchStep when a redirect lands on a URL
// that another page of the run already owns.
var ErrAlreadyVisited = errors.New("redirect target already visited")

// FetchStep downloads the page HTML.
type FetchStep struct {
	fetcher PageFetcher
	claim   func(finalURL string) bool
}

// FetchStepOption configures a FetchStep.
type FetchStepOption func(*FetchStep)

// WithLandingClaim sets the function asked to take ownership of the URL a
// redirect lands on. It returns false when that URL was already visited.
func WithLandingClaim(claim func(finalURL string) bool) FetchStepOption {
	return func(s *FetchStep) {
		s.claim = claim
	}
}

// NewFetchStep creates a FetchStep.
func NewFetchStep(f PageFetcher, opts ...FetchStepOption) *FetchStep {
	s := &FetchStep{fetcher: f}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches page.URL and records the final URL and body. A redirect to a
// URL that cannot be claimed yields ErrAlreadyVisited.
func (s *FetchStep) Do(ctx context.Context, page *model.PageAnalysis) error {
	p, err := s.fetcher.FetchPage(ctx, page.URL)
	if err != nil {
		return err
	}
	page.FinalURL = p.FinalURL
	if s.claim != nil && p.FinalURL != "" {
		landed := extract.NormalizeURL(p.FinalURL)
		if landed != extract.NormalizeURL(page.URL) && !s.claim(landed) {
			return fmt.Errorf("%w: %s", ErrAlreadyVisited, landed)
		}
	}
	page.HTML = p.Body
	return nil
}

// ExtractStep pulls script references, inline code and same-origin links
// out of the page HTML. Malformed references are reported as skipped and
// do not fail the page.
type ExtractStep struct {
	scripts  *extract.JSExtractor
	links    *extract.LinkExtractor
	reporter model.Reporter
}

// ExtractStepOption configures an ExtractStep.
type ExtractStepOption func(*ExtractStep)

// WithExtractReporter sets the reporter that receives skipped items.
func WithExtractReporter(r model.Reporter) ExtractStepOption {
	return func(s *ExtractStep) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithExtractLogger sets the logger used by both extractors.
func WithExtractLogger(logger *slog.Logger) ExtractStepOption {
	return func(s *ExtractStep) {
		s.scripts = extract.NewJSExtractor(extract.WithLogger(logger))
		s.links = extract.NewLinkExtractor(extract.WithLogger(logger))
	}
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(opts ...ExtractStepOption) *ExtractStep {
	s := &ExtractStep{
		scripts:  extract.NewJSExtractor(),
		links:    extract.NewLinkExtractor(),
		reporter: model.NopReporter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do fills ScriptURLs, the inline part of CodeBlocks, and Links.
func (s *ExtractStep) Do(ctx context.Context, page *model.PageAnalysis) error {
	base := page.BaseURL()

	scripts, err := s.scripts.Extract(page.HTML, base)
	if err != nil {
		return err
	}
	links, err := s.links.ExtractAll(page.HTML, base)
	if err != nil {
		return err
	}

	page.ScriptURLs = scripts.ScriptURLs
	page.CodeBlocks = append(page.CodeBlocks, scripts.Inline...)
	page.Links = links.URLs

	for _, perr := range append(scripts.Skipped, links.Skipped...) {
		s.reporter.Report(ctx, model.Event{
			Type:  model.EventItemSkipped,
			URL:   perr.Input,
			Depth: page.Depth,
			Err:   perr,
		})
	}
	return nil
}

// DownloadStep fetches all external scripts of the page. One failed
// download fails the page.
type DownloadStep struct {
	fetcher PageFetcher
}

// NewDownloadStep creates a DownloadStep.
func NewDownloadStep(f PageFetcher) *DownloadStep {
	return &DownloadStep{fetcher: f}
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do prepends the downloaded scripts to the page's code blocks.
func (s *DownloadStep) Do(ctx context.Context, page *model.PageAnalysis) error {
	if len(page.ScriptURLs) == 0 {
		return nil
	}

	blocks, err := s.fetcher.FetchScripts(ctx, page.ScriptURLs)
	if err != nil {
		return err
	}
	page.CodeBlocks = append(blocks, page.CodeBlocks...)
	return nil
}

// ScanStep runs the secret scanner and the library identifier over every
// code block of the page.
type ScanStep struct {
	scanner    *secrets.Scanner
	identifier *library.Identifier
}

// NewScanStep creates a ScanStep. A nil scanner gets the default one.
func NewScanStep(scanner *secrets.Scanner) *ScanStep {
	if scanner == nil {
		scanner = secrets.NewScanner()
	}
	return &ScanStep{
		scanner:    scanner,
		identifier: library.NewIdentifier(),
	}
}

// Name returns the step name.
func (s *ScanStep) Name() string {
	return "scan"
}

// Do appends one HardcodedSecret finding per code block with candidates
// and records identified libraries against their code block.
func (s *ScanStep) Do(ctx context.Context, page *model.PageAnalysis) error {
	for _, block := range page.CodeBlocks {
		if err := ctx.Err(); err != nil {
			return err
		}

		if found := s.scanner.Scan(block.Content); len(found) > 0 {
			page.Findings = append(page.Findings, model.NewSecretFinding(block.Source, found))
		}

		for _, sig := range s.identifier.Identify(block.Content) {
			page.Libraries = append(page.Libraries, model.DetectedLibrary{
				LibrarySignature: sig,
				Source:           block.Source,
			})
		}
	}
	return nil
}

// AdvisoryStep issues one advisory batch for the libraries of the page.
// A failed lookup marks the page instead of failing it.
type AdvisoryStep struct {
	querier  AdvisoryQuerier
	reporter model.Reporter
}

// NewAdvisoryStep creates an AdvisoryStep.
func NewAdvisoryStep(q AdvisoryQuerier, reporter model.Reporter) *AdvisoryStep {
	if reporter == nil {
		reporter = model.NopReporter{}
	}
	return &AdvisoryStep{querier: q, reporter: reporter}
}

// Name returns the step name.
func (s *AdvisoryStep) Name() string {
	return "advisory"
}

// Do appends a VulnerableLibrary finding for every library with advisories.
func (s *AdvisoryStep) Do(ctx context.Context, page *model.PageAnalysis) error {
	if len(page.Libraries) == 0 {
		return nil
	}

	sigs := make([]model.LibrarySignature, len(page.Libraries))
	for i, lib := range page.Libraries {
		sigs[i] = lib.LibrarySignature
	}

	results, err := s.querier.QueryBatch(ctx, sigs)
	if err != nil {
		page.AdvisoryLookupFailed = true
		s.reporter.Report(ctx, model.Event{
			Type:  model.EventAdvisoryLookupFailed,
			URL:   page.URL,
			Depth: page.Depth,
			Count: len(sigs),
			Err:   err,
		})
		return nil
	}

	for i, result := range results {
		if i >= len(page.Libraries) {
			break
		}
		if len(result.Vulns) > 0 {
			page.Findings = append(page.Findings, model.NewLibraryFinding(page.Libraries[i], result.Vulns))
		}
	}
	return nil
}

// Components are the collaborators of the default page pipeline.
type Components struct {
	// Fetcher retrieves pages and scripts. Required.
	Fetcher PageFetcher

	// Querier looks up advisories. When nil the advisory step is left out.
	Querier AdvisoryQuerier

	// Scanner is the secret scanner. Nil uses the default scanner.
	Scanner *secrets.Scanner

	// Reporter receives skipped-item and advisory events.
	Reporter model.Reporter

	// Logger is used by the pipeline and the extractors.
	Logger *slog.Logger

	// ClaimLanding, when set, is asked to own the URL a redirect lands on.
	ClaimLanding func(finalURL string) bool
}

// DefaultPipeline builds the standard page pipeline:
// fetch, extract, download, scan and, when a querier is set, advisory.
func DefaultPipeline(c Components, opts ...Option) *Pipeline {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reporter := c.Reporter
	if reporter == nil {
		reporter = model.NopReporter{}
	}

	p := New(append([]Option{WithLogger(logger)}, opts...)...)
	p.AddSteps(
		NewFetchStep(c.Fetcher, WithLandingClaim(c.ClaimLanding)),
		NewExtractStep(WithExtractReporter(reporter), WithExtractLogger(logger)),
		NewDownloadStep(c.Fetcher),
		NewScanStep(c.Scanner),
	)
	if c.Querier != nil {
		p.AddStep(NewAdvisoryStep(c.Querier, reporter))
	}
	return p
}
