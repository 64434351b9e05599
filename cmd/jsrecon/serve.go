package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/jsrecon/internal/config"
	"github.com/nao1215/jsrecon/internal/crawl"
	"github.com/nao1215/jsrecon/internal/log"
	"github.com/nao1215/jsrecon/internal/model"
	"github.com/nao1215/jsrecon/internal/pipeline"
)

const (
	// maxRequestBody bounds the size of an analyze request.
	maxRequestBody = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		Long: `Serve exposes a single JSON endpoint:

  POST /analyze  {"url": "https://example.com"}

A successful crawl answers 200 with {"success": true, "data": <report>},
even when some pages failed; those failures are part of the report.
A missing or invalid url answers 400 with {"error": "..."}.

Examples:
  # Listen on the default port
  jsrecon serve

  # Listen on localhost only and mask secret values in responses
  jsrecon serve --listen 127.0.0.1:8080 --redact`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Bool("redact", false,
		"Mask secret values in responses")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	if err := readCrawlFlags(cmd, cfg); err != nil {
		return err
	}

	var err error
	if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
		return err
	}
	if cfg.Redact, err = cmd.Flags().GetBool("redact"); err != nil {
		return err
	}

	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	orchestrator, err := newOrchestrator(cfg, logger, log.NewEventLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "jsrecon is listening on http://%s\n", ln.Addr())

	return serve(ctx, ln, newServeMux(orchestrator, cfg.Redact, logger), logger)
}

// serve runs an HTTP server on ln until ctx is done, then shuts it down.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal, stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	Success bool          `json:"success"`
	Data    *model.Report `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// newServeMux routes the HTTP front door to analyzer.
func newServeMux(analyzer pipeline.Analyzer, redact bool, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
		handleAnalyze(w, r, analyzer, redact, logger)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func handleAnalyze(w http.ResponseWriter, r *http.Request, analyzer pipeline.Analyzer, redact bool, logger *slog.Logger) {
	var req analyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object with a url field"})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: crawl.ErrMissingURL.Error()})
		return
	}

	logger.Info("received URL to analyze", "url", req.URL)

	report, err := analyzer.Analyze(r.Context(), req.URL)
	switch {
	case errors.Is(err, crawl.ErrMissingURL), errors.Is(err, crawl.ErrInvalidURL):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		logger.Error("analysis failed", "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if redact {
		report = report.Redacted()
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Data: report})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // the client may already be gone
}
