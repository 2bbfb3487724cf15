package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults must be intentional: these tests fail if they drift.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout to be 10s, got %v", cfg.Timeout)
		}
	})

	t.Run("default Concurrency is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 1 {
			t.Errorf("expected Concurrency to be 1, got %d", cfg.Concurrency)
		}
	})

	t.Run("default Retries is 0", func(t *testing.T) {
		t.Parallel()
		if cfg.Retries != 0 {
			t.Errorf("expected Retries to be 0, got %d", cfg.Retries)
		}
	})

	t.Run("default BatchSize is 2", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 2 {
			t.Errorf("expected BatchSize to be 2, got %d", cfg.BatchSize)
		}
	})

	t.Run("default OutputDir is left to target resolution", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputDir != "" {
			t.Errorf("expected empty OutputDir, got %q", cfg.OutputDir)
		}
	})

	t.Run("history is saved by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("default UserAgent names sitecrawl", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(cfg.UserAgent, "sitecrawl/") {
			t.Errorf("unexpected UserAgent %q", cfg.UserAgent)
		}
	})

	t.Run("default config is valid once a start URL is set", func(t *testing.T) {
		t.Parallel()
		c := NewConfig()
		c.StartURLs = []string{"http://x.test/"}
		if err := c.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{
			name:    "valid config returns nil",
			modify:  func(_ *Config) {},
			wantErr: nil,
		},
		{
			name:    "site name alone is enough",
			modify:  func(c *Config) { c.StartURLs = nil; c.SiteNames = []string{"docs"} },
			wantErr: nil,
		},
		{
			name:    "no start URL",
			modify:  func(c *Config) { c.StartURLs = nil },
			wantErr: ErrNoStartURL,
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Timeout = -time.Second },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero concurrency",
			modify:  func(c *Config) { c.Concurrency = 0 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "zero batch size",
			modify:  func(c *Config) { c.BatchSize = 0 },
			wantErr: ErrInvalidBatchSize,
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Retries = -1 },
			wantErr: ErrInvalidRetries,
		},
		{
			name:    "json and markdown together",
			modify:  func(c *Config) { c.JSONReport = true; c.MarkdownReport = true },
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "zero max body size",
			modify:  func(c *Config) { c.MaxBodySize = 0 },
			wantErr: ErrInvalidMaxBodySize,
		},
		{
			name:    "empty allow entry",
			modify:  func(c *Config) { c.Allow = []string{"https://x.test/", ""} },
			wantErr: ErrEmptyPolicyEntry,
		},
		{
			name:    "empty block entry",
			modify:  func(c *Config) { c.Block = []string{""} },
			wantErr: ErrEmptyPolicyEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.StartURLs = []string{"http://x.test/"}
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestFileGetSiteConfig tests merging of site settings over defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{
			Block:   []string{"/logout"},
			Output:  "pages",
			Headers: map[string]string{"Accept-Language": "en", "X-Env": "prod"},
		},
		Sites: map[string]SiteConfig{
			"docs": {
				StartURL: "https://docs.test/",
				Allow:    []string{"https://docs.test/guide/"},
				Headers:  map[string]string{"X-Env": "staging"},
			},
			"blog": {
				StartURL: "https://blog.test/",
				Block:    []string{"/tag/"},
				Output:   "blog_pages",
			},
		},
	}

	t.Run("unknown site returns defaults", func(t *testing.T) {
		t.Parallel()

		sc := file.GetSiteConfig("missing")
		if sc.StartURL != "" {
			t.Errorf("expected empty StartURL, got %q", sc.StartURL)
		}
		if sc.Output != "pages" {
			t.Errorf("expected output 'pages', got %q", sc.Output)
		}
		if !slices.Equal(sc.Block, []string{"/logout"}) {
			t.Errorf("expected default block list, got %v", sc.Block)
		}
	})

	t.Run("site values override defaults", func(t *testing.T) {
		t.Parallel()

		sc := file.GetSiteConfig("blog")
		if sc.Output != "blog_pages" {
			t.Errorf("expected output 'blog_pages', got %q", sc.Output)
		}
		if !slices.Equal(sc.Block, []string{"/tag/"}) {
			t.Errorf("expected site block list, got %v", sc.Block)
		}
	})

	t.Run("headers are merged with site winning", func(t *testing.T) {
		t.Parallel()

		sc := file.GetSiteConfig("docs")
		if sc.Headers["Accept-Language"] != "en" {
			t.Errorf("expected default header kept, got %v", sc.Headers)
		}
		if sc.Headers["X-Env"] != "staging" {
			t.Errorf("expected site header to win, got %v", sc.Headers)
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		_ = file.GetSiteConfig("docs")
		if file.Defaults.Headers["X-Env"] != "prod" {
			t.Errorf("defaults were modified: %v", file.Defaults.Headers)
		}
	})

	t.Run("FindSiteByStartURL", func(t *testing.T) {
		t.Parallel()

		name, ok := file.FindSiteByStartURL("https://blog.test/")
		if !ok || name != "blog" {
			t.Errorf("expected blog, got %q (%v)", name, ok)
		}
		if _, ok := file.FindSiteByStartURL("https://other.test/"); ok {
			t.Error("expected no match")
		}
	})
}

// TestResolveTargets tests the precedence of command line, site and default values.
func TestResolveTargets(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{Block: []string{"/logout"}},
		Sites: map[string]SiteConfig{
			"docs": {
				StartURL: "https://docs.test/guide/intro",
				Output:   "docs_pages",
			},
			"empty": {Output: "x"},
			"loose": {StartURL: "https://loose.test/", Block: []string{""}},
		},
	}

	t.Run("positional URL defaults to its root", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.StartURLs = []string{"http://x.test/a/b?q=1"}

		targets, err := cfg.ResolveTargets()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(targets) != 1 {
			t.Fatalf("expected 1 target, got %d", len(targets))
		}
		got := targets[0]
		if !slices.Equal(got.Allow, []string{"http://x.test/"}) {
			t.Errorf("expected root allow-list, got %v", got.Allow)
		}
		if got.OutputDir != DefaultOutputDir {
			t.Errorf("expected %q, got %q", DefaultOutputDir, got.OutputDir)
		}
		if got.Name != "http://x.test/a/b?q=1" {
			t.Errorf("unexpected name %q", got.Name)
		}
	})

	t.Run("named site uses file settings", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteNames = []string{"docs"}
		cfg.SiteConfigs = file

		targets, err := cfg.ResolveTargets()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := targets[0]
		if got.Name != "docs" || got.StartURL != "https://docs.test/guide/intro" {
			t.Errorf("unexpected target %+v", got)
		}
		if got.OutputDir != "docs_pages" {
			t.Errorf("expected docs_pages, got %q", got.OutputDir)
		}
		if !slices.Equal(got.Block, []string{"/logout"}) {
			t.Errorf("expected default block list, got %v", got.Block)
		}
		if !slices.Equal(got.Allow, []string{"https://docs.test/"}) {
			t.Errorf("expected root allow-list, got %v", got.Allow)
		}
	})

	t.Run("positional URL matching a site picks up its settings", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.StartURLs = []string{"https://docs.test/guide/intro"}
		cfg.SiteConfigs = file

		targets, err := cfg.ResolveTargets()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if targets[0].Name != "docs" || targets[0].OutputDir != "docs_pages" {
			t.Errorf("unexpected target %+v", targets[0])
		}
	})

	t.Run("command line wins", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteNames = []string{"docs"}
		cfg.SiteConfigs = file
		cfg.Allow = []string{"https://docs.test/guide/"}
		cfg.Block = []string{"/private"}
		cfg.OutputDir = "out"

		targets, err := cfg.ResolveTargets()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := targets[0]
		if !slices.Equal(got.Allow, cfg.Allow) || !slices.Equal(got.Block, cfg.Block) || got.OutputDir != "out" {
			t.Errorf("command line values not applied: %+v", got)
		}
	})

	t.Run("sites come before positional URLs", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.StartURLs = []string{"http://x.test/"}
		cfg.SiteNames = []string{"docs"}
		cfg.SiteConfigs = file

		targets, err := cfg.ResolveTargets()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(targets) != 2 || targets[0].Name != "docs" || targets[1].StartURL != "http://x.test/" {
			t.Errorf("unexpected order: %+v", targets)
		}
	})

	t.Run("invalid start URL keeps empty allow-list", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.StartURLs = []string{"not a url"}

		targets, err := cfg.ResolveTargets()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(targets[0].Allow) != 0 {
			t.Errorf("expected empty allow-list, got %v", targets[0].Allow)
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			sites   []string
			wantErr error
		}{
			{name: "unknown site", sites: []string{"nope"}, wantErr: ErrUnknownSite},
			{name: "site without start URL", sites: []string{"empty"}, wantErr: ErrSiteWithoutStartURL},
			{name: "site with empty block entry", sites: []string{"loose"}, wantErr: ErrEmptyPolicyEntry},
			{name: "nothing to crawl", sites: nil, wantErr: ErrNoStartURL},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				cfg := NewConfig()
				cfg.SiteNames = tt.sites
				cfg.SiteConfigs = file

				_, err := cfg.ResolveTargets()
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})
}

// TestLoadConfigFile tests loading the YAML configuration file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.sitecrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".sitecrawl")

		content := `defaults:
  output: scraped_pages
  block:
    - /logout
sites:
  docs:
    startURL: https://docs.test/
    allow:
      - https://docs.test/guide/
    headers:
      Accept-Language: en
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Output != "scraped_pages" {
			t.Errorf("expected default output, got %q", cfg.Defaults.Output)
		}
		if !slices.Equal(cfg.Defaults.Block, []string{"/logout"}) {
			t.Errorf("expected default block list, got %v", cfg.Defaults.Block)
		}

		site, ok := cfg.Sites["docs"]
		if !ok {
			t.Fatal("expected docs in sites")
		}
		if site.StartURL != "https://docs.test/" {
			t.Errorf("unexpected startURL %q", site.StartURL)
		}
		if len(site.Allow) != 1 {
			t.Errorf("expected 1 allow prefix, got %d", len(site.Allow))
		}
		if site.Headers["Accept-Language"] != "en" {
			t.Error("expected Accept-Language header")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitecrawl")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitecrawl")
		if err := os.WriteFile(configPath, []byte("defaults:\n  output: out\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"XDGDataDir":   XDGDataDir(),
		"XDGConfigDir": XDGConfigDir(),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if filepath.Base(dir) != AppName {
				t.Errorf("expected %s to end with %q, got %q", name, AppName, dir)
			}
		})
	}
}
