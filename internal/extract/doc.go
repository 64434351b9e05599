// Package extract parses HTML pages with goquery and pulls out the parts the
// crawler needs: JavaScript (external script URLs, inline scripts, event
// handler attributes) and same-origin links for the next crawl level.
//
// It also owns the URL helpers shared by the fetcher and the crawler:
// Origin for same-site checks and NormalizeURL for visited-set keys.
package extract
