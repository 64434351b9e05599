// Package pipeline runs the analysis of a single crawled page as a sequence
// of steps: fetch the HTML, extract scripts and links, download the external
// scripts, scan every code block, and look up advisories for the libraries
// found. Each step fills in part of a model.PageAnalysis.
//
// A failing step aborts the page. The crawl orchestrator turns that error
// into an AnalysisError finding and moves on, so a bad page never stops the
// run.
//
// BatchProcessor runs whole crawls for several targets concurrently with
// errgroup, keeping results in target order.
package pipeline
