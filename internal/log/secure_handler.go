package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nao1215/jsrecon/internal/model"
	"github.com/nao1215/jsrecon/internal/secrets"
)

// MaskValue replaces a redacted attribute value.
const MaskValue = "***REDACTED***"

// headerKeys are request and response headers that carry credentials.
var headerKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
}

// keyKeywords mark an attribute key as naming a credential. The bare word
// "key" is absent; it matches cache_key and sort_key.
var keyKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential",
	"private", "bearer", "session", "apikey", "api_key", "api-key",
}

// credentialShapes are value formats outside the scanner's signature table.
var credentialShapes = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
	regexp.MustCompile(`^[a-z][a-z0-9+.-]*://[^/\s:@]+:[^/\s@]+@`),
}

// SecureHandler masks credential-bearing attributes before they reach the
// wrapped handler. Values containing a key format the scanner reports are
// replaced with the mask and the finding fingerprint, so a log line can
// still be matched to a report entry.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next falls back to slog's default handler.
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SecureHandler{next: h.next.WithAttrs(redactAttrs(attrs))}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

func redactAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = redactAttr(a)
	}
	return out
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	switch {
	case a.Value.Kind() == slog.KindGroup:
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redactAttrs(a.Value.Group())...)}
	case sensitiveKey(a.Key):
		return slog.String(a.Key, MaskValue)
	case a.Value.Kind() == slog.KindString:
		if masked, ok := redactValue(a.Value.String()); ok {
			return slog.String(a.Key, masked)
		}
	case a.Value.Kind() == slog.KindAny:
		// Fetch errors quote the URL, query string included.
		if err, isErr := a.Value.Any().(error); isErr && err != nil {
			if masked, ok := redactValue(err.Error()); ok {
				return slog.String(a.Key, masked)
			}
		}
	}
	return a
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if headerKeys[key] {
		return true
	}
	for _, kw := range keyKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// redactValue returns the replacement for a value that holds a credential.
func redactValue(v string) (string, bool) {
	if secretType, match, ok := secrets.MatchSignature(v); ok {
		return fmt.Sprintf("%s (%s fp=%s)", MaskValue, secretType, model.Fingerprint(match)), true
	}
	for _, shape := range credentialShapes {
		if shape.MatchString(v) {
			return MaskValue, true
		}
	}
	return "", false
}

// NewSecureLogger returns a text logger on w. verbose lowers the level from
// Warn to Debug.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
