// Package model defines the core data structures used throughout jsrecon.
//
// This package contains the following main types:
//   - CodeBlock: A unit of JavaScript text attributed to its origin
//   - Finding: The tagged result of analysing a code block or a page
//   - Report: The aggregated result of one crawl run
//   - SimpleReport: A flattened, severity-ranked view used by report writers
//   - Event and Reporter: Structured crawl events emitted by the core
//
// Multiple packages (secrets, crawl, report, database) share these types, so
// they live here to keep the dependency graph acyclic.
//
// The models are designed to be serializable to JSON for report output,
// the HTTP front door and database storage.
package model
