// Package osv is a small client for the OSV vulnerability database
// (https://osv.dev). It sends one querybatch request per page for all
// libraries identified on it and optionally fetches advisory details.
//
// Lookups never fail a crawl: on any error the client returns an empty
// result together with ErrAdvisoryLookup, and the caller records that the
// vulnerability results are incomplete.
package osv
