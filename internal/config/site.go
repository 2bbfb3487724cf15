package config

import (
	"maps"
	"slices"
)

// SiteConfig holds the settings of one site in the configuration file.
type SiteConfig struct {
	// StartURL is the seed of the crawl.
	StartURL string `yaml:"startURL,omitempty"`

	// Allow is the allow-list of URL prefixes.
	// If empty, the crawl is limited to the start URL's scheme://host/.
	Allow []string `yaml:"allow,omitempty"`

	// Block is the block-list of URL substrings.
	Block []string `yaml:"block,omitempty"`

	// Output is the page store directory.
	Output string `yaml:"output,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .sitecrawl configuration file.
type File struct {
	// Sites maps site names to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a named site merged with
// the defaults. An unknown name yields the defaults.
func (cf *File) GetSiteConfig(name string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	siteConfig, ok := cf.Sites[name]
	if !ok {
		return result
	}

	if siteConfig.StartURL != "" {
		result.StartURL = siteConfig.StartURL
	}
	if siteConfig.Output != "" {
		result.Output = siteConfig.Output
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.Allow) > 0 {
		result.Allow = siteConfig.Allow
	}
	if len(siteConfig.Block) > 0 {
		result.Block = siteConfig.Block
	}

	return result
}

// HasSite reports whether name is a configured site.
func (cf *File) HasSite(name string) bool {
	_, ok := cf.Sites[name]
	return ok
}

// FindSiteByStartURL returns the name of the first site (in sorted name
// order) whose start URL equals startURL.
func (cf *File) FindSiteByStartURL(startURL string) (string, bool) {
	for _, name := range slices.Sorted(maps.Keys(cf.Sites)) {
		if cf.Sites[name].StartURL == startURL {
			return name, true
		}
	}
	return "", false
}
