package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/jsrecon/internal/model"
)

// Scripts is the JavaScript found on one HTML page.
type Scripts struct {
	// ScriptURLs are absolute external script URLs in document order.
	ScriptURLs []string

	// Inline holds the bodies of <script> elements without src, followed by
	// intrinsic event handler attributes, each in document order.
	Inline []model.CodeBlock

	// Skipped lists script references that could not be resolved.
	Skipped []*ParseError
}

// Option configures an extractor.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to record skipped items.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// JSExtractor finds external scripts, inline scripts and event handler
// attributes in HTML. It is stateless and safe for concurrent use.
type JSExtractor struct {
	logger *slog.Logger
}

// NewJSExtractor creates a JSExtractor.
func NewJSExtractor(opts ...Option) *JSExtractor {
	o := newOptions(opts)
	return &JSExtractor{logger: o.logger}
}

// Extract parses html and collects its JavaScript. Relative script URLs are
// resolved against baseURL. It fails only when baseURL or the document
// cannot be parsed.
func (e *JSExtractor) Extract(html, baseURL string) (*Scripts, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", baseURL, err)
	}

	result := &Scripts{
		ScriptURLs: make([]string, 0),
		Inline:     make([]model.CodeBlock, 0),
	}

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			result.skip(e.logger, &ParseError{Input: src, Err: errEmptyRef})
			return
		}
		abs, err := resolve(base, src)
		if err != nil {
			result.skip(e.logger, &ParseError{Input: src, Err: err})
			return
		}
		result.ScriptURLs = append(result.ScriptURLs, abs.String())
	})

	doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		code := s.Text()
		if strings.TrimSpace(code) == "" {
			return
		}
		result.Inline = append(result.Inline, model.CodeBlock{
			Source:  model.SourceInlineScript,
			Content: code,
		})
	})

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range s.Get(0).Attr {
			if attr.Val == "" || !strings.HasPrefix(strings.ToLower(attr.Key), "on") {
				continue
			}
			result.Inline = append(result.Inline, model.CodeBlock{
				Source:  model.SourceAttributePrefix + attr.Key,
				Content: attr.Val,
			})
		}
	})

	return result, nil
}

func (s *Scripts) skip(logger *slog.Logger, perr *ParseError) {
	logger.Debug("skipping script reference", "src", perr.Input, "reason", perr.Err)
	s.Skipped = append(s.Skipped, perr)
}
