package log

import (
	"context"
	"log/slog"

	"github.com/nao1215/jsrecon/internal/model"
)

// EventLogger writes crawl events to a slog.Logger.
// Progress events go to Debug, skips and failures to Warn.
// Secret values never reach the log: findings are logged by kind, source
// and fingerprint only.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger creates an EventLogger. A nil logger uses slog.Default().
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger}
}

// Report implements model.Reporter.
func (l *EventLogger) Report(ctx context.Context, ev model.Event) {
	attrs := []any{"event", string(ev.Type)}
	if ev.Target != "" {
		attrs = append(attrs, "target", ev.Target)
	}
	if ev.URL != "" {
		attrs = append(attrs, "url", ev.URL)
	}

	switch ev.Type {
	case model.EventCrawlStarted:
		l.logger.InfoContext(ctx, "crawl started", attrs...)
	case model.EventLevelStarted:
		l.logger.DebugContext(ctx, "crawling level", append(attrs, "depth", ev.Depth, "pages", ev.Count)...)
	case model.EventPageStarted:
		l.logger.DebugContext(ctx, "analyzing page", append(attrs, "depth", ev.Depth)...)
	case model.EventPageCompleted:
		l.logger.DebugContext(ctx, "page analyzed", append(attrs, "depth", ev.Depth, "findings", ev.Count)...)
	case model.EventPageFailed:
		l.logger.WarnContext(ctx, "page analysis failed", append(attrs, "error", ev.Err)...)
	case model.EventItemSkipped:
		l.logger.DebugContext(ctx, "skipping item", append(attrs, "reason", ev.Err)...)
	case model.EventAdvisoryLookupFailed:
		l.logger.WarnContext(ctx, "advisory lookup failed, vulnerability results are incomplete",
			append(attrs, "error", ev.Err)...)
	case model.EventFinding:
		l.logger.InfoContext(ctx, "finding", append(attrs, findingAttrs(ev.Finding)...)...)
	case model.EventCrawlCompleted:
		l.logger.InfoContext(ctx, "crawl completed", append(attrs, "pages_scanned", ev.Count)...)
	default:
		l.logger.DebugContext(ctx, "crawl event", attrs...)
	}
}

// findingAttrs describes a finding without its secret values.
func findingAttrs(f *model.Finding) []any {
	if f == nil {
		return nil
	}
	attrs := []any{"kind", string(f.Kind), "source", f.Source}
	switch f.Kind {
	case model.KindHardcodedSecret:
		fps := make([]string, 0, len(f.Secrets))
		for _, s := range f.Secrets {
			fps = append(fps, s.Fingerprint)
		}
		attrs = append(attrs, "count", len(f.Secrets), "fingerprints", fps)
	case model.KindVulnerableLibrary:
		if f.Library != nil {
			attrs = append(attrs, "library", f.Library.Name+"@"+f.Library.Version,
				"advisories", len(f.Library.Vulnerabilities))
		}
	case model.KindAnalysisError:
		if f.Error != nil {
			attrs = append(attrs, "message", f.Error.Message)
		}
	}
	return attrs
}
