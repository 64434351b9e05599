package config

import (
	"errors"
	"net"
)

// SiteConfig holds crawl settings for a single host.
type SiteConfig struct {
	// Depth overrides the global crawl depth for this site.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the global page bound for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are URL path globs that are never crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path globs. If set, only matching links are
	// crawled. The start page is always analyzed.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

func (s SiteConfig) validate() error {
	if s.Depth < 0 {
		return errors.New("depth must be non-negative")
	}
	if s.MaxPages < 0 {
		return errors.New("maxPages must be non-negative")
	}
	return nil
}

// File represents the structure of the .jsrecon configuration file.
type File struct {
	// Sites maps hosts to their settings. A key is a host name
	// ("example.com") or host and port ("localhost:8080").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host merged over the defaults.
// host may carry a port: an entry for "host:port" wins over one for the
// bare host name. A nil File yields an empty SiteConfig.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	result := cf.Defaults

	site, ok := cf.lookup(NormalizeSiteKey(host))
	if !ok {
		if name, _, err := net.SplitHostPort(host); err == nil {
			site, ok = cf.lookup(NormalizeSiteKey(name))
		}
	}
	if !ok {
		return result
	}

	if site.Depth != 0 {
		result.Depth = site.Depth
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}

// lookup finds the entry for a normalized host. Files built in code may
// hold keys that were never normalized, so those are compared too.
func (cf *File) lookup(host string) (SiteConfig, bool) {
	if site, ok := cf.Sites[host]; ok {
		return site, true
	}
	for key, site := range cf.Sites {
		if NormalizeSiteKey(key) == host {
			return site, true
		}
	}
	return SiteConfig{}, false
}
