package crawl

import "errors"

var (
	// ErrMissingURL is returned by Analyze when no URL was given.
	ErrMissingURL = errors.New("url is required")

	// ErrInvalidURL is returned by Analyze when the URL cannot be parsed or
	// is not an http(s) URL with a host.
	ErrInvalidURL = errors.New("invalid url")
)
