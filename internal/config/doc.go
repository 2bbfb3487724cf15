// Package config provides configuration structures and utilities for sitecrawl.
// It defines the crawl options set from CLI flags, the optional YAML
// configuration file with per-site settings, and the XDG directories used
// for the configuration file and the crawl history database.
package config
