package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/jsrecon/internal/model"
)

// Default fetch limits.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultMaxBodySize       = 5 * 1024 * 1024
	DefaultScriptConcurrency = 8
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Page is a fetched HTML document.
type Page struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after same-origin redirects.
	FinalURL string

	// StatusCode is the final HTTP status.
	StatusCode int

	// ContentType is the Content-Type response header.
	ContentType string

	// Body is the response body, truncated to the configured maximum size.
	Body string

	// Truncated is set when the response was longer than the maximum size.
	Truncated bool
}

// Fetcher retrieves pages and scripts over HTTP with a fixed browser identity.
// It is safe for concurrent use.
type Fetcher struct {
	client            *http.Client
	customClient      bool
	timeout           time.Duration
	maxBodySize       int64
	scriptConcurrency int
	userAgent         string
	proxyAddress      string
	limiter           *rate.Limiter
	logger            *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithScriptConcurrency sets how many scripts of one page are downloaded at a time.
func WithScriptConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.scriptConcurrency = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRateLimit limits requests to rps per second across all fetches made by
// this Fetcher. Zero or negative means unlimited.
func WithRateLimit(rps float64) Option {
	return func(f *Fetcher) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithProxy routes all requests through a SOCKS5 proxy at host:port.
func WithProxy(address string) Option {
	return func(f *Fetcher) {
		f.proxyAddress = address
	}
}

// WithHTTPClient replaces the underlying transport and client settings.
// The identity headers and the redirect policy are still applied.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
			f.customClient = true
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher. It fails only for an invalid proxy address.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:           DefaultTimeout,
		maxBodySize:       DefaultMaxBodySize,
		scriptConcurrency: DefaultScriptConcurrency,
		userAgent:         DefaultUserAgent,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	var base http.RoundTripper
	if f.customClient {
		base = f.client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
	} else {
		transport, err := newTransport(f.proxyAddress)
		if err != nil {
			return nil, err
		}
		base = transport
	}

	f.client = &http.Client{
		Transport:     &identityTransport{base: base, userAgent: f.userAgent},
		Timeout:       f.timeout,
		CheckRedirect: sameOriginRedirects,
	}

	return f, nil
}

// FetchPage retrieves an HTML page. Any non-2xx final status is a *NetworkError,
// including a redirect that would have left the origin.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	resp, body, truncated, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	return &Page{
		URL:         pageURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}, nil
}

// FetchScripts downloads scripts concurrently. The returned code blocks are
// in the same order as urls. If any download fails, no blocks are returned
// and the first error is reported: a page is analyzed with all of its
// scripts or not at all.
func (f *Fetcher) FetchScripts(ctx context.Context, urls []string) ([]model.CodeBlock, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	blocks := make([]model.CodeBlock, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.scriptConcurrency)

	for i, scriptURL := range urls {
		g.Go(func() error {
			_, body, _, err := f.get(gctx, scriptURL)
			if err != nil {
				return err
			}
			blocks[i] = model.CodeBlock{Source: scriptURL, Content: body}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// get performs a rate-limited GET and reads the bounded body. truncated
// reports that the body was cut at maxBodySize.
func (f *Fetcher) get(ctx context.Context, target string) (resp *http.Response, body string, truncated bool, err error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, "", false, &NetworkError{URL: target, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", false, &NetworkError{URL: target, Err: err}
	}

	f.logger.Debug("fetching", "url", target)

	resp, err = f.client.Do(req)
	if err != nil {
		return nil, "", false, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", false, &NetworkError{URL: target, StatusCode: resp.StatusCode}
	}

	// One byte past the limit tells a body of exactly maxBodySize from a longer one.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, "", false, &NetworkError{URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(raw)) > f.maxBodySize {
		raw = raw[:f.maxBodySize]
		truncated = true
		f.logger.Warn("response body truncated, content past the limit is not scanned",
			"url", target, "limit_bytes", f.maxBodySize)
	}

	return resp, string(raw), truncated, nil
}
