// Package fetcher retrieves HTML pages and JavaScript files over HTTP.
//
// Every request carries the same static browser identity (User-Agent,
// Accept, Accept-Language). Redirects are followed only within the origin
// of the original request. Script downloads for one page run concurrently
// and succeed or fail as a whole.
//
// Optional settings cover a shared request rate limit (golang.org/x/time/rate)
// and a SOCKS5 proxy (golang.org/x/net/proxy), which also allows scanning
// through a local Tor daemon.
package fetcher
