package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds a single page or script fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultRunTimeout bounds a whole crawl run. When it expires the
	// report built so far is returned with TimedOut set.
	DefaultRunTimeout = 5 * time.Minute

	// DefaultCrawlDepth is the number of BFS levels crawled. The start page
	// is level 0.
	DefaultCrawlDepth = 3

	// DefaultMaxPages is the maximum number of pages visited per run.
	DefaultMaxPages = 15

	// DefaultConcurrency is the number of pages of one level analyzed at a time.
	// 1 reproduces a strictly sequential crawl.
	DefaultConcurrency = 1

	// DefaultScriptConcurrency is the number of scripts of one page downloaded
	// at a time.
	DefaultScriptConcurrency = 8

	// DefaultBatchSize is the number of targets scanned at a time.
	DefaultBatchSize = 1

	// DefaultContextWindow is the number of lines above and below a
	// candidate searched for credential keywords.
	DefaultContextWindow = 5

	// DefaultMaxBodySize limits the response body size read per fetch.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent is a desktop browser identity. Some sites serve
	// different markup to unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultOSVEndpoint is the public OSV API base URL.
	DefaultOSVEndpoint = "https://api.osv.dev"

	// DefaultRedisStream is the stream name crawl events are added to.
	DefaultRedisStream = "jsrecon:events"

	// DefaultListenAddress is the address the serve command listens on.
	DefaultListenAddress = ":3001"

	// AppName is the application name used for XDG directory paths.
	AppName = "jsrecon"
)

// Config holds all configuration options for jsrecon.
// It is populated from CLI flags and passed through the application
// explicitly rather than living in global state.
type Config struct {
	// Targets is the list of start URLs to scan.
	Targets []string

	// Timeout is the per-request timeout for page and script fetches.
	Timeout time.Duration

	// RunTimeout is the deadline for one crawl run. Zero disables it.
	RunTimeout time.Duration

	// CrawlDepth is the number of BFS levels crawled. 1 means only the
	// start page, 0 visits nothing.
	CrawlDepth int

	// MaxPages is the maximum number of pages visited per target.
	MaxPages int

	// Concurrency is the number of pages of one level analyzed in parallel.
	Concurrency int

	// ScriptConcurrency is the number of parallel script downloads per page.
	ScriptConcurrency int

	// BatchSize is the number of targets scanned in parallel.
	BatchSize int

	// RateLimit is the maximum number of HTTP requests per second across
	// the run. Zero means unlimited.
	RateLimit float64

	// ContextWindow is the keyword search radius in lines for secret candidates.
	ContextWindow int

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// IgnorePatterns are path globs never crawled on any site. Site
	// ignore patterns from the config file are added to these.
	IgnorePatterns []string

	// FollowPatterns restrict crawling to matching paths. A site's follow
	// patterns replace these.
	FollowPatterns []string

	// OSVEndpoint is the base URL of the OSV API.
	OSVEndpoint string

	// SkipAdvisories disables vulnerability lookups entirely.
	SkipAdvisories bool

	// AdvisoryDetails fetches summaries and aliases for each advisory.
	AdvisoryDetails bool

	// JSONReport enables JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path. Empty means stdout.
	ReportFile string

	// Color enables colored terminal output for the text report.
	Color bool

	// Redact masks secret values in the printed report.
	Redact bool

	// SaveToDB stores the redacted report in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory.
	DBDir string

	// RedisAddr enables event streaming to Redis when set.
	RedisAddr string

	// RedisStream is the Redis stream name events are added to.
	RedisStream string

	// ListenAddress is the address the HTTP front door listens on.
	ListenAddress string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .jsrecon is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		RunTimeout:        DefaultRunTimeout,
		CrawlDepth:        DefaultCrawlDepth,
		MaxPages:          DefaultMaxPages,
		Concurrency:       DefaultConcurrency,
		ScriptConcurrency: DefaultScriptConcurrency,
		BatchSize:         DefaultBatchSize,
		ContextWindow:     DefaultContextWindow,
		MaxBodySize:       DefaultMaxBodySize,
		UserAgent:         DefaultUserAgent,
		OSVEndpoint:       DefaultOSVEndpoint,
		RedisStream:       DefaultRedisStream,
		ListenAddress:     DefaultListenAddress,
	}
}

// XDGDataDir returns the XDG data directory for jsrecon.
// On Linux: ~/.local/share/jsrecon
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for jsrecon.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid for a scan.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.ValidateCrawl()
}

// ValidateCrawl checks the crawl settings only. The serve command uses it
// because targets arrive with each request.
func (c *Config) ValidateCrawl() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RunTimeout < 0 {
		return ErrInvalidRunTimeout
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency <= 0 || c.ScriptConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.ContextWindow < 0 {
		return ErrInvalidContextWindow
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
