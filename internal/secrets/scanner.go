package secrets

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nao1215/jsrecon/internal/model"
)

// Scanner limits and thresholds.
const (
	// DefaultContextWindow is the number of lines above and below a
	// candidate searched for context keywords.
	DefaultContextWindow = 5

	// minifiedLineLength marks a trimmed line as minified. Tier 2 is
	// skipped on such lines.
	minifiedLineLength = 1000

	// minDistinctChars is the minimum number of distinct characters of a
	// contextual candidate. Entropy over k distinct characters is at most
	// log2(k), so passing entropyThreshold already takes 12 or more; this
	// check only rejects low-variety literals before entropy is computed.
	minDistinctChars = 8

	// entropyThreshold must be exceeded, not merely reached.
	entropyThreshold = 3.5

	// maxLineContent bounds the LineContent of a candidate.
	maxLineContent = 200
)

// Scanner finds hardcoded secrets in JavaScript source.
// It holds only read-only configuration and is safe for concurrent use.
type Scanner struct {
	contextWindow int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithContextWindow sets the keyword search radius in lines.
func WithContextWindow(lines int) Option {
	return func(s *Scanner) {
		if lines >= 0 {
			s.contextWindow = lines
		}
	}
}

// NewScanner creates a Scanner.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{contextWindow: DefaultContextWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the secret candidates in content in order of first
// appearance. Each value is reported once; the first classification wins.
func (s *Scanner) Scan(content string) []model.SecretCandidate {
	lines := strings.Split(content, "\n")
	lower := make([]string, len(lines))
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
		lower[i] = strings.ToLower(lines[i])
	}

	c := &collector{seen: make(map[string]bool)}

	for i, line := range lines {
		lineNumber := i + 1

		for _, sig := range signatures {
			for _, match := range sig.Pattern.FindAllString(line, -1) {
				c.add(match, sig.Type, model.ConfidenceHigh, lineNumber, line)
			}
		}

		if len(line) > minifiedLineLength {
			continue
		}

		for _, literal := range quotedLiterals(line) {
			if c.seen[literal] || containsSignature(literal) || !isCandidate(literal) {
				continue
			}
			switch {
			case hasKeywordNear(lower, i, s.contextWindow):
				c.add(literal, TypeContextualSecret, model.ConfidenceHigh, lineNumber, line)
			case containsSignaturePrefix(literal):
				c.add(literal, TypePotentialSecret, model.ConfidenceMedium, lineNumber, line)
			}
		}
	}

	return c.found
}

// collector accumulates candidates for one Scan call.
type collector struct {
	seen  map[string]bool
	found []model.SecretCandidate
}

func (c *collector) add(value, secretType string, confidence model.Confidence, lineNumber int, line string) {
	if c.seen[value] {
		return
	}
	c.seen[value] = true
	c.found = append(c.found, model.SecretCandidate{
		Value:       value,
		Type:        secretType,
		Confidence:  confidence,
		LineNumber:  lineNumber,
		LineContent: truncate(line, maxLineContent),
	})
}

// quotedLiterals returns the contents of the quoted literals on a line that
// fit the candidate alphabet and length.
func quotedLiterals(line string) []string {
	var literals []string
	for _, m := range literalPattern.FindAllStringSubmatch(line, -1) {
		for _, group := range m[1:] {
			if group != "" {
				literals = append(literals, group)
				break
			}
		}
	}
	return literals
}

// isCandidate applies the shape, variety and entropy filters.
func isCandidate(literal string) bool {
	if len(literal) < minLiteralLength || len(literal) > maxLiteralLength {
		return false
	}

	var hasDigit, hasLetter bool
	for _, r := range literal {
		switch {
		case unicode.IsSpace(r):
			return false
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	if !hasDigit || !hasLetter {
		return false
	}

	if distinctChars(literal) < minDistinctChars {
		return false
	}

	for _, deny := range denylist {
		if deny.MatchString(literal) {
			return false
		}
	}

	return Entropy(literal) > entropyThreshold
}

// containsSignature reports whether a literal contains a full Tier-1 match.
// Such literals are already reported under the signature's type.
func containsSignature(literal string) bool {
	_, _, ok := MatchSignature(literal)
	return ok
}

// MatchSignature returns the type and text of the first known key format
// found in s.
func MatchSignature(s string) (secretType, match string, ok bool) {
	for _, sig := range signatures {
		if m := sig.Pattern.FindString(s); m != "" {
			return sig.Type, m, true
		}
	}
	return "", "", false
}

// containsSignaturePrefix reports whether a literal contains the lead-in of
// a known key format.
func containsSignaturePrefix(literal string) bool {
	for _, sig := range signatures {
		if sig.Prefix.MatchString(literal) {
			return true
		}
	}
	return false
}

// hasKeywordNear searches lines[i-window .. i+window] for a context keyword.
// lines must already be lower-cased.
func hasKeywordNear(lines []string, i, window int) bool {
	start := max(0, i-window)
	end := min(len(lines)-1, i+window)
	for j := start; j <= end; j++ {
		for _, kw := range contextKeywords {
			if strings.Contains(lines[j], kw) {
				return true
			}
		}
	}
	return false
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
