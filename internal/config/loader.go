package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".jsrecon"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidSiteConfig is returned when a defaults or sites entry holds
	// a negative limit, or when two site keys name the same host.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")
)

// LoadConfigFile reads the YAML file at path. Site keys are normalized with
// NormalizeSiteKey and every entry is validated. A missing file yields
// ErrConfigNotFound; whether that matters is up to the caller.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // the path comes from the user or a fixed search list
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*File, error) {
	var raw File
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if err := raw.Defaults.validate(); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrInvalidSiteConfig, err)
	}

	cf := &File{
		Defaults: raw.Defaults,
		Sites:    make(map[string]SiteConfig, len(raw.Sites)),
	}
	origKey := make(map[string]string, len(raw.Sites))
	for key, site := range raw.Sites {
		host := NormalizeSiteKey(key)
		if host == "" {
			return nil, fmt.Errorf("%w: empty site key %q", ErrInvalidSiteConfig, key)
		}
		if prev, dup := origKey[host]; dup {
			return nil, fmt.Errorf("%w: %q and %q both name %s", ErrInvalidSiteConfig, prev, key, host)
		}
		if err := site.validate(); err != nil {
			return nil, fmt.Errorf("%w: site %q: %w", ErrInvalidSiteConfig, key, err)
		}
		origKey[host] = key
		cf.Sites[host] = site
	}
	return cf, nil
}

// NormalizeSiteKey turns a sites key into the form hosts are looked up by:
// lower case, no scheme, no path and no trailing dot. A port is kept.
func NormalizeSiteKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, rest, ok := strings.Cut(key, "://"); ok {
		key = rest
	}
	if i := strings.IndexAny(key, "/?#"); i >= 0 {
		key = key[:i]
	}
	if host, port, ok := strings.Cut(key, ":"); ok && !strings.Contains(port, ":") {
		return strings.TrimSuffix(host, ".") + ":" + port
	}
	return strings.TrimSuffix(key, ".")
}

// FindConfigFile returns the configuration file to load, or "" if there is
// none. An explicit configPath is used only if it exists; otherwise
// .jsrecon is looked up in the working directory and then in the home
// directory.
func FindConfigFile(configPath string) string {
	candidates := []string{configPath}
	if configPath == "" {
		candidates = candidates[:0]
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
		}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
		}
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
