package secrets

import "regexp"

// Generic secret categories produced by the contextual tier.
const (
	TypeContextualSecret = "Contextual Secret"
	TypePotentialSecret  = "Potential Secret"
)

// signature is a named Tier-1 pattern. prefix is the fixed lead-in of the
// format; a literal containing it looks like a key even when it does not
// match the full pattern.
type signature struct {
	Type    string
	Pattern *regexp.Regexp
	Prefix  *regexp.Regexp
}

// signatures are matched against every line, minified or not. Order is
// significant for deterministic output.
var signatures = []signature{
	{
		Type:    "AWS_ACCESS_KEY_ID",
		Pattern: regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		Prefix:  regexp.MustCompile(`AKIA[0-9A-Z]`),
	},
	{
		Type:    "GOOGLE_API_KEY",
		Pattern: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
		Prefix:  regexp.MustCompile(`AIza[0-9A-Za-z\-_]`),
	},
	{
		Type:    "SLACK_TOKEN",
		Pattern: regexp.MustCompile(`xox[baprs]-[0-9A-Za-z-]{10,72}`),
		Prefix:  regexp.MustCompile(`xox[baprs]-`),
	},
	{
		Type:    "GITHUB_TOKEN",
		Pattern: regexp.MustCompile(`gh[pousr]_[0-9A-Za-z]{36}`),
		Prefix:  regexp.MustCompile(`gh[pousr]_[0-9A-Za-z]`),
	},
	{
		Type:    "GITLAB_TOKEN",
		Pattern: regexp.MustCompile(`glpat-[0-9A-Za-z\-_]{20}`),
		Prefix:  regexp.MustCompile(`glpat-`),
	},
	{
		Type:    "STRIPE_SECRET_KEY",
		Pattern: regexp.MustCompile(`[sr]k_live_[0-9A-Za-z]{24,99}`),
		Prefix:  regexp.MustCompile(`[sr]k_live_`),
	},
	{
		Type:    "PRIVATE_KEY",
		Pattern: regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY( BLOCK)?-----`),
		Prefix:  regexp.MustCompile(`-----BEGIN`),
	},
}

// literalAlphabet is the character class of a Tier-2 candidate.
const literalAlphabet = `[A-Za-z0-9_\-+/=.:;,!@#$%^&*~<>]`

// Candidate literal length bounds.
const (
	minLiteralLength = 20
	maxLiteralLength = 80
)

// literalPattern matches a whole quoted literal in double, single or back
// quotes. Exactly one of the three groups is set per match.
var literalPattern = regexp.MustCompile(
	`"(` + literalAlphabet + `{20,80})"` +
		`|'(` + literalAlphabet + `{20,80})'` +
		"|`(" + literalAlphabet + "{20,80})`",
)

// contextKeywords are searched case-insensitively around a candidate.
var contextKeywords = []string{
	"secret", "token", "password", "passwd",
	"apikey", "api_key", "api-key",
	"auth", "credential", "bearer",
	"access_key", "access-key",
	"private_key", "private-key",
}

// denylist rejects literals that are shaped like something other than a
// secret. All patterns are matched against the whole candidate.
var denylist = []*regexp.Regexp{
	// placeholders
	regexp.MustCompile(`(?i)your[-_]?(api[-_]?key|secret|token|password|client[-_]?secret|access[-_]?key|key)`),
	regexp.MustCompile(`(?i)placeholder|example|sample|dummy|changeme|redacted|lorem|xxxxxx`),
	regexp.MustCompile(`(?i)(test|fake|mock)[-_]?(key|secret|token|password)`),
	regexp.MustCompile(`(?i)insert[-_]?|replace[-_]?me`),

	// URLs, protocol-relative URLs, paths and file names
	regexp.MustCompile(`(?i)^[a-z][a-z0-9+.\-]*://`),
	regexp.MustCompile(`^(//|\./|\.\./|/)`),
	regexp.MustCompile(`(?i)\.(js|mjs|css|map|json|html?|php|aspx?|png|jpe?g|gif|svg|webp|ico|woff2?|ttf|eot)$`),

	// bare domain names
	regexp.MustCompile(`(?i)^(www\.)?([a-z0-9]+(-[a-z0-9]+)*\.)+[a-z]{2,}$`),

	// HTML tags
	regexp.MustCompile(`^<[A-Za-z/!]|</[A-Za-z]`),

	// UUIDs
	regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`),

	// inline images
	regexp.MustCompile(`(?i)data:image/`),

	// dictionary and code words common in bundles
	regexp.MustCompile(`(?i)function|return|undefined|prototype|constructor|document|window|element|module|export|import|require|webpack|default|position|display|transform|translate|application|charset|localhost|width|height|color|style`),
}
