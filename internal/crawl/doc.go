// Package crawl drives a bounded breadth-first traversal of one origin.
//
// Orchestrator.Analyze starts from a single URL and visits pages level by
// level. Every page goes through the page pipeline (fetch, extract,
// download, scan, advisory). Links found on a page are queued for the next
// level when they are on the same origin, not yet visited, and allowed by
// the ignore and follow patterns.
//
// The run stops when the frontier is empty, the page bound or the depth
// bound is reached, or the run timeout expires. A failed page becomes an
// AnalysisError finding and the crawl continues.
//
// Pages of one level may be analyzed concurrently. The visited set is
// updated with an atomic test-and-set, so no URL is fetched twice and the
// page bound is never exceeded. Findings are merged in level order after
// each level completes.
package crawl
