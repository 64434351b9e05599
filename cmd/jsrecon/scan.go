package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/jsrecon/internal/config"
	"github.com/nao1215/jsrecon/internal/crawl"
	"github.com/nao1215/jsrecon/internal/database"
	"github.com/nao1215/jsrecon/internal/fetcher"
	"github.com/nao1215/jsrecon/internal/log"
	"github.com/nao1215/jsrecon/internal/model"
	"github.com/nao1215/jsrecon/internal/osv"
	"github.com/nao1215/jsrecon/internal/pipeline"
	"github.com/nao1215/jsrecon/internal/report"
	"github.com/nao1215/jsrecon/internal/secrets"
	"github.com/nao1215/jsrecon/internal/stream"
)

// redisPasswordEnv names the environment variable holding the Redis password.
const redisPasswordEnv = "JSRECON_REDIS_PASSWORD"

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Crawl a site and scan its JavaScript",
		Long: `Scan crawls each target breadth-first within its origin and analyzes every
script it finds:
- External scripts (<script src>) and inline scripts are downloaded and scanned
- Hard-coded secrets are matched by signature, entropy and nearby keywords
- Library banners are identified and checked against OSV advisories

A URL without a scheme is scanned over https.

Examples:
  # Scan a single site
  jsrecon scan https://example.com

  # Scan several sites, two at a time
  jsrecon scan -b 2 example.com example.org

  # Crawl deeper and print a Markdown report to a file
  jsrecon scan -d 5 -p 100 --markdown -o report.md https://example.com

  # Mask secret values and keep the result for 'jsrecon compare'
  jsrecon scan --redact --save https://example.com

  # Stream crawl events to Redis
  jsrecon scan --redis-addr 127.0.0.1:6379 https://example.com

Configuration file (.jsrecon) example:
  defaults:
    ignorePatterns: ["*.pdf"]
  sites:
    example.com:
      depth: 5
      followPatterns: ["/app/*"]`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of targets scanned in parallel")

	// Report
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("color", false,
		"Colorize the text report")
	cmd.Flags().Bool("redact", false,
		"Mask secret values in the report")

	// History and streaming
	cmd.Flags().Bool("save", false,
		"Store the redacted report in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().String("redis-addr", "",
		"Stream crawl events to Redis at host:port (password from "+redisPasswordEnv+")")
	cmd.Flags().String("redis-stream", config.DefaultRedisStream,
		"Redis stream name for crawl events")

	return cmd
}

// addCrawlFlags registers the flags shared by scan and serve.
func addCrawlFlags(cmd *cobra.Command) {
	// Crawl behavior
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page or script request")
	cmd.Flags().DurationP("run-timeout", "T", config.DefaultRunTimeout,
		"Deadline for a whole crawl (0 disables it)")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Number of BFS levels to crawl (the start page is level 0)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to visit per target")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of pages of one level analyzed in parallel")
	cmd.Flags().Int("script-concurrency", config.DefaultScriptConcurrency,
		"Number of scripts of one page downloaded in parallel")
	cmd.Flags().Float64("rate-limit", 0,
		"Maximum HTTP requests per second (0 means unlimited)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringP("proxy", "x", "",
		"Route requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().StringSlice("ignore", nil,
		"Path globs never crawled, e.g. '/logout,*.pdf'")
	cmd.Flags().StringSlice("follow", nil,
		"Only crawl links whose path matches one of these globs")

	// Analysis
	cmd.Flags().Int("context-window", config.DefaultContextWindow,
		"Lines above and below a literal searched for credential keywords")
	cmd.Flags().String("osv-endpoint", config.DefaultOSVEndpoint,
		"Base URL of the OSV API")
	cmd.Flags().Bool("skip-advisories", false,
		"Do not look up library advisories")
	cmd.Flags().Bool("advisory-details", false,
		"Fetch summary and aliases for each advisory")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .jsrecon in current or home directory)")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := readCrawlFlags(cmd, cfg); err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	var err error
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Color, err = flags.GetBool("color"); err != nil {
		return nil, err
	}
	if cfg.Redact, err = flags.GetBool("redact"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	if cfg.RedisAddr, err = flags.GetString("redis-addr"); err != nil {
		return nil, err
	}
	if cfg.RedisStream, err = flags.GetString("redis-stream"); err != nil {
		return nil, err
	}

	cfg.Targets = args

	return cfg, nil
}

// readCrawlFlags copies the flags registered by addCrawlFlags into cfg and
// loads the configuration file.
func readCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	var err error
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.RunTimeout, err = flags.GetDuration("run-timeout"); err != nil {
		return err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return err
	}
	if cfg.ScriptConcurrency, err = flags.GetInt("script-concurrency"); err != nil {
		return err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate-limit"); err != nil {
		return err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return err
	}
	if cfg.IgnorePatterns, err = flags.GetStringSlice("ignore"); err != nil {
		return err
	}
	if cfg.FollowPatterns, err = flags.GetStringSlice("follow"); err != nil {
		return err
	}
	if cfg.ContextWindow, err = flags.GetInt("context-window"); err != nil {
		return err
	}
	if cfg.OSVEndpoint, err = flags.GetString("osv-endpoint"); err != nil {
		return err
	}
	if cfg.SkipAdvisories, err = flags.GetBool("skip-advisories"); err != nil {
		return err
	}
	if cfg.AdvisoryDetails, err = flags.GetBool("advisory-details"); err != nil {
		return err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return err
	}
	cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath)
	return err
}

// loadSiteConfigs loads the configuration file. An explicitly named file
// must exist; otherwise a missing file yields an empty configuration.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	sites, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return sites, nil
}

// newLogger creates the secure logger selected by the configuration.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// newOrchestrator wires the fetcher, advisory client and scanner into a
// crawl orchestrator.
func newOrchestrator(cfg *config.Config, logger *slog.Logger, reporter model.Reporter) (*crawl.Orchestrator, error) {
	f, err := fetcher.New(
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithScriptConcurrency(cfg.ScriptConcurrency),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithRateLimit(cfg.RateLimit),
		fetcher.WithProxy(cfg.ProxyAddress),
		fetcher.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	var querier pipeline.AdvisoryQuerier
	if !cfg.SkipAdvisories {
		querier = osv.NewClient(
			osv.WithEndpoint(cfg.OSVEndpoint),
			osv.WithDetails(cfg.AdvisoryDetails),
			osv.WithLogger(logger),
		)
	}

	return crawl.New(f, querier,
		crawl.WithMaxDepth(cfg.CrawlDepth),
		crawl.WithMaxPages(cfg.MaxPages),
		crawl.WithConcurrency(cfg.Concurrency),
		crawl.WithRunTimeout(cfg.RunTimeout),
		crawl.WithIgnorePatterns(cfg.IgnorePatterns),
		crawl.WithFollowPatterns(cfg.FollowPatterns),
		crawl.WithSiteConfigs(cfg.SiteConfigs),
		crawl.WithScanner(secrets.NewScanner(secrets.WithContextWindow(cfg.ContextWindow))),
		crawl.WithReporter(reporter),
		crawl.WithLogger(logger),
	), nil
}

// runScan scans every target and writes the reports.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting scan",
		"targets", cfg.Targets,
		"depth", cfg.CrawlDepth,
		"maxPages", cfg.MaxPages,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	reporters := model.Reporters{log.NewEventLogger(logger)}
	if cfg.RedisAddr != "" {
		rr, err := stream.Dial(ctx, cfg.RedisAddr, os.Getenv(redisPasswordEnv),
			stream.WithStreamKey(cfg.RedisStream),
			stream.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() {
			logger.Info("event streaming finished", "streamed", rr.Streamed(), "failed", rr.Failed())
			_ = rr.Close()
		}()
		reporters = append(reporters, rr)
	}

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	orchestrator, err := newOrchestrator(cfg, logger, reporters)
	if err != nil {
		return err
	}

	bp := pipeline.NewBatchProcessor(orchestrator,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	reports, scanErr := bp.ProcessBatch(ctx, cfg.Targets)

	saveReports(context.WithoutCancel(ctx), db, reports, logger)

	if err := outputReports(cfg, reports, out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return scanErr
}

// saveReports stores each report in the history database. A nil db is a
// no-op. Failures are logged, not returned.
func saveReports(ctx context.Context, db *database.HistoryDB, reports []*model.Report, logger *slog.Logger) {
	if db == nil {
		return
	}
	for _, r := range reports {
		if r == nil {
			continue
		}
		id, err := db.SaveReport(ctx, r)
		if err != nil {
			logger.Error("failed to save scan report", "target", r.Target, "error", err)
			continue
		}
		logger.Info("scan report saved to database", "target", r.Target, "id", id)
	}
}

// outputReports writes the reports in the requested format to the report
// file or to out.
func outputReports(cfg *config.Config, reports []*model.Report, out io.Writer) error {
	output := out
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		// Reports may contain secret values: owner-only permissions.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	view := make([]*model.Report, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		if cfg.Redact {
			r = r.Redacted()
		}
		view = append(view, r)
	}

	if cfg.JSONReport {
		w := report.NewJSONWriter(output, report.WithPrettyPrint())
		if len(view) == 1 {
			_, err := w.Write(view[0])
			return err
		}
		_, err := w.WriteReports(view)
		return err
	}

	format := report.FormatText
	if cfg.MarkdownReport {
		format = report.FormatMarkdown
	}
	w := report.NewWriter(output, format, cfg.Color && cfg.ReportFile == "")
	for _, r := range view {
		if _, err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
