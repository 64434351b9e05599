package extract

import (
	"net"
	"net/url"
	"strings"
)

// defaultPorts maps schemes to the port implied when none is given.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// IsHTTP reports whether u is an absolute http or https URL with a host.
func IsHTTP(u *url.URL) bool {
	if u == nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// Origin returns scheme://host:port for u with the scheme and host
// lower-cased and the default port made explicit, so that
// "https://Example.com" and "https://example.com:443/x" compare equal.
func Origin(u *url.URL) string {
	if u == nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		port = defaultPorts[scheme]
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}

// SameOrigin reports whether two absolute URLs share an origin.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return Origin(ua) == Origin(ub)
}

// NormalizeURL returns the canonical form of a URL used for visited-set keys.
// The fragment is dropped, scheme and host are lower-cased, a default port is
// removed and an empty path becomes "/". Unparseable input is returned as is.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if port := u.Port(); port != "" && defaultPorts[u.Scheme] == port {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}

	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// resolve parses ref and resolves it against base. The result must be an
// absolute http(s) URL.
func resolve(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	abs := base.ResolveReference(u)
	if !IsHTTP(abs) {
		return nil, errNotHTTP
	}
	return abs, nil
}

// parseBase parses a page URL used as the base for relative references.
func parseBase(baseURL string) (*url.URL, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ParseError{Input: baseURL, Err: err}
	}
	if !IsHTTP(base) {
		return nil, &ParseError{Input: baseURL, Err: errNotHTTP}
	}
	return base, nil
}
