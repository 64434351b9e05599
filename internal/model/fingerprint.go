package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// RedactedMask replaces the hidden part of a redacted secret value.
const RedactedMask = "****"

// redactKeepPrefix is the number of leading characters kept by MaskSecret.
const redactKeepPrefix = 4

// Fingerprint returns a short, stable SHA3-256 digest of a secret value.
// Two findings with the same fingerprint refer to the same literal.
func Fingerprint(value string) string {
	sum := sha3.Sum256([]byte(value))
	return hex.EncodeToString(sum[:12])
}

// MaskSecret keeps the first few characters of value and masks the rest.
// Values that are too short to show a prefix are masked entirely.
func MaskSecret(value string) string {
	if len(value) <= redactKeepPrefix*2 {
		return RedactedMask
	}
	return value[:redactKeepPrefix] + RedactedMask
}

// Redacted returns a deep copy of the report with every secret value masked.
// Line content is masked too because it usually contains the value.
// Fingerprints are preserved.
func (r *Report) Redacted() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Vulnerabilities = make([]Finding, len(r.Vulnerabilities))
	for i, f := range r.Vulnerabilities {
		out.Vulnerabilities[i] = f.Redacted()
	}
	return &out
}

// Redacted returns a copy of the finding with secret values masked.
func (f Finding) Redacted() Finding {
	if f.Kind != KindHardcodedSecret {
		return f
	}
	secrets := make([]SecretCandidate, len(f.Secrets))
	for i, s := range f.Secrets {
		if s.Fingerprint == "" {
			s.Fingerprint = Fingerprint(s.Value)
		}
		s.LineContent = strings.ReplaceAll(s.LineContent, s.Value, MaskSecret(s.Value))
		s.Value = MaskSecret(s.Value)
		secrets[i] = s
	}
	f.Secrets = secrets
	return f
}
