package extract

import (
	"errors"
	"fmt"
)

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("parse error")

var (
	errNotHTTP  = errors.New("not an absolute http(s) URL")
	errEmptyRef = errors.New("empty reference")
)

// ParseError reports a URL that could not be used. Extractors skip such
// items instead of failing, except for the base URL itself.
type ParseError struct {
	// Input is the offending value as found in the document.
	Input string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
