package config

import (
	"fmt"
	"slices"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Target is one site to crawl with every setting resolved.
type Target struct {
	// Name is the site key from the configuration file, or the start URL
	// when the site is not configured.
	Name string

	// StartURL is the seed of the crawl as given by the user.
	StartURL string

	// Allow is the resolved allow-list.
	Allow []string

	// Block is the resolved block-list.
	Block []string

	// OutputDir is the resolved page store directory.
	OutputDir string

	// Headers are extra HTTP headers for this site.
	Headers map[string]string
}

// ResolveTargets merges command line values, the configuration file and
// built-in defaults into one Target per site.
//
// Precedence for each setting is: command line, named site, file defaults,
// built-in default. The built-in allow-list is the start URL's root
// (scheme://host/), because an empty allow-list admits nothing.
// Sites named with --site come first, then positional start URLs.
// A positional URL that equals a configured site's startURL picks up that
// site's settings.
func (c *Config) ResolveTargets() ([]Target, error) {
	file := c.SiteConfigs
	if file == nil {
		file = &File{}
	}

	targets := make([]Target, 0, len(c.SiteNames)+len(c.StartURLs))
	for _, name := range c.SiteNames {
		if !file.HasSite(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSite, name)
		}
		sc := file.GetSiteConfig(name)
		if sc.StartURL == "" {
			return nil, fmt.Errorf("%w: %s", ErrSiteWithoutStartURL, name)
		}
		t, err := c.resolveTarget(name, sc)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	for _, raw := range c.StartURLs {
		name, ok := file.FindSiteByStartURL(raw)
		sc := file.GetSiteConfig(name)
		sc.StartURL = raw
		if !ok {
			name = raw
		}
		t, err := c.resolveTarget(name, sc)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	if len(targets) == 0 {
		return nil, ErrNoStartURL
	}
	return targets, nil
}

func (c *Config) resolveTarget(name string, sc SiteConfig) (Target, error) {
	t := Target{
		Name:      name,
		StartURL:  sc.StartURL,
		Allow:     sc.Allow,
		Block:     sc.Block,
		OutputDir: sc.Output,
		Headers:   sc.Headers,
	}

	if len(c.Allow) > 0 {
		t.Allow = c.Allow
	}
	if len(c.Block) > 0 {
		t.Block = c.Block
	}
	if c.OutputDir != "" {
		t.OutputDir = c.OutputDir
	}
	if t.OutputDir == "" {
		t.OutputDir = DefaultOutputDir
	}
	if slices.Contains(t.Allow, "") || slices.Contains(t.Block, "") {
		return Target{}, fmt.Errorf("%w: %s", ErrEmptyPolicyEntry, name)
	}

	// An invalid start URL keeps an empty allow-list; the engine reports
	// the parse error when the crawl starts.
	if len(t.Allow) == 0 {
		if start, err := model.Normalize(sc.StartURL); err == nil {
			if root, err := start.Root(); err == nil {
				t.Allow = []string{root.String()}
			}
		}
	}

	return t, nil
}
