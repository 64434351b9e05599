// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Configurable log levels with verbose mode support
//   - An EventLogger that turns crawl events into log records
//
// # Security Features
//
// The SecureHandler masks attributes whose key names a credential header or
// field. It also masks string and error values that contain one of the key
// formats the secrets scanner reports; those are replaced with the signature
// type and the same fingerprint the report shows:
//
//	url="***REDACTED*** (GITHUB_TOKEN fp=9b1f...)"
//
// JWTs, Authorization header values and URLs with user info are masked
// without a fingerprint. Masking applies at every level, verbose included.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("request sent",
//	    "cookie", "session=abc123", // logged as ***REDACTED***
//	    "url", "https://example.com",
//	)
//
//	orch := crawl.New(fetcher, querier, crawl.WithReporter(log.NewEventLogger(logger)))
package log
