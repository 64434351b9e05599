package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/jsrecon/internal/model"
)

// Analyzer crawls one target and returns its report. *crawl.Orchestrator
// implements it.
type Analyzer interface {
	Analyze(ctx context.Context, target string) (*model.Report, error)
}

// BatchProcessor runs crawls for several targets concurrently.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. The analyzer must be safe for
// concurrent Analyze calls.
func NewBatchProcessor(analyzer Analyzer, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		analyzer:    analyzer,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every target and returns the reports in target order.
// A target that cannot be crawled at all (for example an invalid URL) gets
// a report holding a single AnalysisError finding, so the result always has
// one report per target. If ctx is cancelled, targets that had not started
// yet are left nil and the context error is returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.Report, error) {
	results := make([]*model.Report, len(targets))

	err := bp.ProcessBatchWithCallback(ctx, targets, func(report *model.Report, index int) {
		results[index] = report
	})

	return results, err
}

// ProcessBatchWithCallback crawls every target and calls callback with each
// report as soon as it completes. The callback runs on the worker goroutine,
// so it must be safe for concurrent use when concurrency is above one.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.Report, index int),
) error {
	bp.logger.Debug("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("analyzing target",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)

			report, err := bp.analyzer.Analyze(ctx, target)
			if err != nil {
				bp.logger.Warn("target could not be analyzed",
					"target", target,
					"error", err,
				)
			}
			if report == nil {
				report = model.NewReport(target)
				report.Append(model.NewErrorFinding(target, err))
				report.CompletedAt = time.Now()
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)

	return err
}
