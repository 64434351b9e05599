// Package database stores scan history in SQLite (modernc.org/sqlite, no
// cgo). Reports are always redacted before they are written, so the
// database never holds a raw secret value; fingerprints let later scans be
// compared against stored ones.
package database
