// Package config provides configuration structures and utilities for jsrecon.
// It defines crawl limits, fetch settings, advisory lookup options, report
// preferences and the optional per-site YAML configuration file.
package config
