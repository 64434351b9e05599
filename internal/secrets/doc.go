// Package secrets detects hardcoded credentials in JavaScript.
//
// Detection runs in two tiers. Tier 1 is a table of named signatures
// (AWS, Google, Slack, GitHub, GitLab, Stripe, PEM private keys) matched on
// every line; each match is a High confidence finding of that type.
// Tier 2 looks at quoted literals that pass shape, denylist and entropy
// filters. A literal with a credential keyword within a few lines is a
// High "Contextual Secret"; one that only carries the lead-in of a known key
// format is a Medium "Potential Secret". Tier 2 is skipped on minified lines.
//
// All regular expressions are compiled once and used with FindAll*, so a
// Scanner can be shared between goroutines.
package secrets
