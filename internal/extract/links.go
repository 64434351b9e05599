package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// emailProtectionPath is the Cloudflare email obfuscation endpoint. Links to
// it never lead to a page.
const emailProtectionPath = "/cdn-cgi/l/email-protection"

// ignoredSchemes are href prefixes that never point at a crawlable page.
var ignoredSchemes = []string{"mailto:", "tel:", "javascript:"}

var errOffOrigin = errors.New("different origin")

// Links is the result of link extraction with the skipped hrefs.
type Links struct {
	// URLs are normalized same-origin page URLs without fragments.
	// First occurrence wins.
	URLs []string

	// Skipped lists hrefs that could not be resolved.
	Skipped []*ParseError
}

// LinkExtractor collects same-origin links from HTML. It is stateless and
// safe for concurrent use.
type LinkExtractor struct {
	logger *slog.Logger
}

// NewLinkExtractor creates a LinkExtractor.
func NewLinkExtractor(opts ...Option) *LinkExtractor {
	o := newOptions(opts)
	return &LinkExtractor{logger: o.logger}
}

// Extract returns the same-origin links of html as an ordered set.
func (e *LinkExtractor) Extract(html, baseURL string) ([]string, error) {
	links, err := e.ExtractAll(html, baseURL)
	if err != nil {
		return nil, err
	}
	return links.URLs, nil
}

// ExtractAll is Extract that also reports skipped hrefs.
func (e *LinkExtractor) ExtractAll(html, baseURL string) (*Links, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}
	baseOrigin := Origin(base)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", baseURL, err)
	}

	result := &Links{URLs: make([]string, 0)}
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !isCandidateHref(href) {
			return
		}

		abs, err := resolve(base, href)
		if err != nil {
			e.logger.Debug("skipping link", "href", href, "reason", err)
			result.Skipped = append(result.Skipped, &ParseError{Input: href, Err: err})
			return
		}
		if Origin(abs) != baseOrigin {
			e.logger.Debug("skipping link", "href", href, "reason", errOffOrigin)
			return
		}

		link := NormalizeURL(abs.String())
		if seen[link] {
			return
		}
		seen[link] = true
		result.URLs = append(result.URLs, link)
	})

	return result, nil
}

// isCandidateHref applies the cheap textual filters before URL resolution.
func isCandidateHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	for _, scheme := range ignoredSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return !strings.Contains(href, emailProtectionPath)
}
