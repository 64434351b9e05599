// Package stream publishes crawl events to a Redis stream so other tools
// can follow a scan as it runs. Entries are flat string maps; findings are
// carried as redacted JSON.
package stream
