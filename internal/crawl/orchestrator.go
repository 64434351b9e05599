package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/jsrecon/internal/config"
	"github.com/nao1215/jsrecon/internal/extract"
	"github.com/nao1215/jsrecon/internal/model"
	"github.com/nao1215/jsrecon/internal/pipeline"
	"github.com/nao1215/jsrecon/internal/secrets"
)

// Orchestrator crawls one origin breadth-first and aggregates the findings
// of every page into a report. Run state lives inside Analyze, so one
// Orchestrator may serve concurrent Analyze calls.
type Orchestrator struct {
	fetcher     pipeline.PageFetcher
	querier     pipeline.AdvisoryQuerier
	scanner     *secrets.Scanner
	maxDepth    int
	maxPages    int
	concurrency int
	runTimeout  time.Duration
	ignore      []string
	follow      []string
	sites       *config.File
	reporter    model.Reporter
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxDepth sets the number of BFS levels crawled. The start page is
// level 0, so 1 analyzes the start page only.
func WithMaxDepth(depth int) Option {
	return func(o *Orchestrator) {
		if depth >= 0 {
			o.maxDepth = depth
		}
	}
}

// WithMaxPages sets the maximum number of pages visited per run.
func WithMaxPages(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

// WithConcurrency sets how many pages of one level are analyzed at a time.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRunTimeout bounds a whole run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.runTimeout = d
		}
	}
}

// WithIgnorePatterns sets path globs whose links are never enqueued.
func WithIgnorePatterns(patterns []string) Option {
	return func(o *Orchestrator) {
		o.ignore = patterns
	}
}

// WithFollowPatterns restricts enqueued links to paths matching one of the
// globs. The start page is always analyzed.
func WithFollowPatterns(patterns []string) Option {
	return func(o *Orchestrator) {
		o.follow = patterns
	}
}

// WithSiteConfigs applies per-host depth, page bound and patterns from a
// configuration file on top of the orchestrator settings.
func WithSiteConfigs(sites *config.File) Option {
	return func(o *Orchestrator) {
		o.sites = sites
	}
}

// WithScanner sets the secret scanner used for every code block.
func WithScanner(s *secrets.Scanner) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.scanner = s
		}
	}
}

// WithReporter sets the receiver of crawl events.
func WithReporter(r model.Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Orchestrator. A nil querier disables advisory lookups.
func New(f pipeline.PageFetcher, q pipeline.AdvisoryQuerier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:     f,
		querier:     q,
		scanner:     secrets.NewScanner(),
		maxDepth:    config.DefaultCrawlDepth,
		maxPages:    config.DefaultMaxPages,
		concurrency: config.DefaultConcurrency,
		runTimeout:  config.DefaultRunTimeout,
		reporter:    model.NopReporter{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runSettings are the bounds and filters of one run after site overrides.
type runSettings struct {
	maxDepth int
	maxPages int
	filter   pathFilter
}

// settingsFor resolves the limits for a start URL host, port included.
func (o *Orchestrator) settingsFor(host string) runSettings {
	rs := runSettings{
		maxDepth: o.maxDepth,
		maxPages: o.maxPages,
		filter:   pathFilter{ignore: o.ignore, follow: o.follow},
	}

	site := o.sites.GetSiteConfig(host)
	if site.Depth > 0 {
		rs.maxDepth = site.Depth
	}
	if site.MaxPages > 0 {
		rs.maxPages = site.MaxPages
	}
	if len(site.IgnorePatterns) > 0 {
		rs.filter.ignore = append(append([]string{}, o.ignore...), site.IgnorePatterns...)
	}
	if len(site.FollowPatterns) > 0 {
		rs.filter.follow = site.FollowPatterns
	}
	return rs
}

// parseTarget validates the start URL. A URL without a scheme is taken to
// be https.
func parseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !extract.IsHTTP(u) {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidURL, raw)
	}
	return u, nil
}

// pageResult is the outcome of one page of a level.
type pageResult struct {
	page *model.PageAnalysis
	err  error
}

// Analyze crawls the origin of rawURL and returns the report. Page failures
// are recorded as AnalysisError findings and never fail the call. When the
// run timeout expires the partial report is returned with TimedOut set.
// If ctx is cancelled the partial report is returned with ctx's error.
func (o *Orchestrator) Analyze(ctx context.Context, rawURL string) (*model.Report, error) {
	start, err := parseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}

	startURL := extract.NormalizeURL(start.String())
	settings := o.settingsFor(start.Host)
	report := model.NewReport(strings.TrimSpace(rawURL))
	reporter := &targetReporter{target: report.Target, next: o.reporter}

	st := newState(startURL, settings.maxPages)
	p := pipeline.DefaultPipeline(pipeline.Components{
		Fetcher:      o.fetcher,
		Querier:      o.querier,
		Scanner:      o.scanner,
		Reporter:     reporter,
		Logger:       o.logger,
		ClaimLanding: st.claimLanding,
	})

	reporter.Report(ctx, model.Event{Type: model.EventCrawlStarted, URL: startURL})

	for st.proceed(settings.maxDepth) {
		if runCtx.Err() != nil {
			break
		}

		batch := st.takeLevel()
		reporter.Report(ctx, model.Event{
			Type:  model.EventLevelStarted,
			Depth: st.depth,
			Count: len(batch),
		})

		results := o.analyzeLevel(runCtx, p, st, reporter, batch)
		st.frontier = o.merge(ctx, report, reporter, st, settings.filter, startURL, results)
		st.depth++
	}

	if err := runCtx.Err(); err != nil && errors.Is(err, context.DeadlineExceeded) {
		report.TimedOut = true
	}
	report.PagesScanned = st.pagesScanned()
	report.CompletedAt = time.Now()

	reporter.Report(ctx, model.Event{
		Type:  model.EventCrawlCompleted,
		URL:   startURL,
		Depth: st.depth,
		Count: report.PagesScanned,
	})

	if errors.Is(ctx.Err(), context.Canceled) {
		return report, ctx.Err()
	}
	return report, nil
}

// analyzeLevel runs the page pipeline for every URL of the level that this
// run still may visit. results[i] is nil when batch[i] was not visited.
func (o *Orchestrator) analyzeLevel(
	ctx context.Context,
	p *pipeline.Pipeline,
	st *state,
	reporter model.Reporter,
	batch []string,
) []*pageResult {
	results := make([]*pageResult, len(batch))
	depth := st.depth

	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for i, pageURL := range batch {
		g.Go(func() error {
			if ctx.Err() != nil || !st.tryVisit(pageURL) {
				return nil
			}
			reporter.Report(ctx, model.Event{Type: model.EventPageStarted, URL: pageURL, Depth: depth})

			page := model.NewPageAnalysis(pageURL, depth)
			results[i] = &pageResult{page: page, err: p.Execute(ctx, page)}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // page errors are carried in results

	return results
}

// merge appends the level's findings to the report in batch order and
// returns the next frontier.
func (o *Orchestrator) merge(
	ctx context.Context,
	report *model.Report,
	reporter model.Reporter,
	st *state,
	filter pathFilter,
	startURL string,
	results []*pageResult,
) []string {
	var next []string
	queued := make(map[string]bool)

	for _, r := range results {
		if r == nil {
			continue
		}
		page := r.page

		if errors.Is(r.err, pipeline.ErrAlreadyVisited) {
			o.logger.Debug("dropping page that redirected to a visited URL",
				"url", page.URL, "finalURL", page.FinalURL)
			continue
		}
		if r.err != nil {
			finding := model.NewErrorFinding(page.URL, r.err)
			report.Append(finding)
			reporter.Report(ctx, model.Event{Type: model.EventPageFailed, URL: page.URL, Depth: page.Depth, Err: r.err})
			reporter.Report(ctx, model.Event{Type: model.EventFinding, URL: page.URL, Depth: page.Depth, Finding: &finding})
			continue
		}

		report.Append(page.Findings...)
		for i := range page.Findings {
			reporter.Report(ctx, model.Event{
				Type:    model.EventFinding,
				URL:     page.URL,
				Depth:   page.Depth,
				Finding: &page.Findings[i],
			})
		}
		if page.AdvisoryLookupFailed {
			report.AdvisoryLookupFailed = true
		}
		reporter.Report(ctx, model.Event{
			Type:  model.EventPageCompleted,
			URL:   page.URL,
			Depth: page.Depth,
			Count: len(page.Findings),
		})

		for _, link := range page.Links {
			if queued[link] || st.isVisited(link) {
				continue
			}
			if !extract.SameOrigin(link, startURL) || !filter.allows(link) {
				continue
			}
			queued[link] = true
			next = append(next, link)
		}
	}

	o.logger.Debug("level merged",
		"target", report.Target,
		"depth", st.depth,
		"next", len(next),
		"findings", len(report.Vulnerabilities),
	)
	return next
}

// targetReporter stamps every event with the run's target.
type targetReporter struct {
	target string
	next   model.Reporter
}

func (r *targetReporter) Report(ctx context.Context, ev model.Event) {
	if ev.Target == "" {
		ev.Target = r.target
	}
	r.next.Report(ctx, ev)
}
