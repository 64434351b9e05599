package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/jsrecon/internal/model"
)

// DefaultEndpoint is the public OSV API.
const DefaultEndpoint = "https://api.osv.dev"

// Ecosystem is the OSV ecosystem all identified libraries belong to.
const Ecosystem = "npm"

const (
	querybatchPath    = "/v1/querybatch"
	vulnPath          = "/v1/vulns/"
	defaultTimeout    = 30 * time.Second
	maxResponseSize   = 10 * 1024 * 1024
	detailConcurrency = 8
)

// ErrAdvisoryLookup is returned when a batch lookup fails for any reason.
// The accompanying result slice is always empty.
var ErrAdvisoryLookup = errors.New("advisory lookup failed")

// Client queries the OSV vulnerability database. It is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
	details    bool
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithDetails enables fetching summary and aliases of each advisory.
func WithDetails(enabled bool) Option {
	return func(c *Client) {
		c.details = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type packageRef struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type query struct {
	Version string     `json:"version"`
	Package packageRef `json:"package"`
}

type batchRequest struct {
	Queries []query `json:"queries"`
}

type batchResponse struct {
	Results []model.AdvisoryResult `json:"results"`
}

// QueryBatch looks up all libraries in one request. The result at index i
// belongs to libs[i]. Empty input returns an empty result without a request.
// On failure the result is empty and the error wraps ErrAdvisoryLookup.
func (c *Client) QueryBatch(ctx context.Context, libs []model.LibrarySignature) ([]model.AdvisoryResult, error) {
	if len(libs) == 0 {
		return []model.AdvisoryResult{}, nil
	}

	c.logger.Debug("querying advisories", "libraries", len(libs))

	results, err := c.queryBatch(ctx, libs)
	if err != nil {
		return []model.AdvisoryResult{}, fmt.Errorf("%w: %w", ErrAdvisoryLookup, err)
	}

	if c.details {
		c.hydrate(ctx, results)
	}

	return results, nil
}

func (c *Client) queryBatch(ctx context.Context, libs []model.LibrarySignature) ([]model.AdvisoryResult, error) {
	req := batchRequest{Queries: make([]query, len(libs))}
	for i, lib := range libs {
		req.Queries[i] = query{
			Version: lib.Version,
			Package: packageRef{Name: lib.Name, Ecosystem: Ecosystem},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+querybatchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp batchResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) != len(libs) {
		return nil, fmt.Errorf("expected %d results, got %d", len(libs), len(resp.Results))
	}
	return resp.Results, nil
}

// hydrate replaces bare advisory records with full ones. Lookups that fail
// leave the bare record in place.
func (c *Client) hydrate(ctx context.Context, results []model.AdvisoryResult) {
	var ids []string
	seen := make(map[string]bool)
	for _, r := range results {
		for _, v := range r.Vulns {
			if !seen[v.ID] {
				seen[v.ID] = true
				ids = append(ids, v.ID)
			}
		}
	}
	if len(ids) == 0 {
		return
	}

	details := make([]*model.Advisory, len(ids))

	var g errgroup.Group
	g.SetLimit(detailConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			adv, err := c.fetchAdvisory(ctx, id)
			if err != nil {
				c.logger.Debug("advisory detail lookup failed", "id", id, "error", err)
				return nil
			}
			details[i] = adv
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return an error

	byID := make(map[string]*model.Advisory, len(ids))
	for i, id := range ids {
		if details[i] != nil {
			byID[id] = details[i]
		}
	}

	for ri := range results {
		for vi, v := range results[ri].Vulns {
			if adv, ok := byID[v.ID]; ok {
				results[ri].Vulns[vi] = *adv
			}
		}
	}
}

func (c *Client) fetchAdvisory(ctx context.Context, id string) (*model.Advisory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+vulnPath+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var adv model.Advisory
	if err := c.do(req, &adv); err != nil {
		return nil, err
	}
	if adv.ID == "" {
		adv.ID = id
	}
	return &adv, nil
}

// do sends req and decodes a 2xx JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("malformed response from %s: %w", req.URL.Path, err)
	}
	return nil
}
