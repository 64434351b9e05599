package model

import "context"

// EventType names a crawl event.
type EventType string

const (
	EventCrawlStarted         EventType = "crawl_started"
	EventLevelStarted         EventType = "level_started"
	EventPageStarted          EventType = "page_started"
	EventPageCompleted        EventType = "page_completed"
	EventPageFailed           EventType = "page_failed"
	EventItemSkipped          EventType = "item_skipped"
	EventAdvisoryLookupFailed EventType = "advisory_lookup_failed"
	EventFinding              EventType = "finding"
	EventCrawlCompleted       EventType = "crawl_completed"
)

// Event is a structured notification emitted by the core while it works.
// Only the fields relevant to Type are set.
type Event struct {
	Type EventType

	// Target is the start URL of the run.
	Target string

	// URL is the page, script or link the event is about.
	URL string

	// Depth is the BFS level.
	Depth int

	// Count is an event-specific counter (pages in a level, findings on a
	// page, pages scanned at completion).
	Count int

	// Finding is set for EventFinding.
	Finding *Finding

	// Err is set for failure and skip events.
	Err error
}

// Reporter receives crawl events. Implementations must be safe for
// concurrent use and must not block the crawl for long.
type Reporter interface {
	Report(ctx context.Context, ev Event)
}

// Reporters fans an event out to several reporters in order.
type Reporters []Reporter

// Report implements Reporter.
func (rs Reporters) Report(ctx context.Context, ev Event) {
	for _, r := range rs {
		if r != nil {
			r.Report(ctx, ev)
		}
	}
}

// NopReporter discards all events.
type NopReporter struct{}

// Report implements Reporter.
func (NopReporter) Report(context.Context, Event) {}
