package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultOutputDir is where page text is written when neither a flag nor
	// the configuration file names a directory.
	DefaultOutputDir = "scraped_pages"

	// DefaultTimeout is the per-request timeout. It bounds a single fetch,
	// not the whole crawl.
	DefaultTimeout = 10 * time.Second

	// DefaultConcurrency of 1 fetches one page at a time, like a plain
	// breadth-first crawler. Higher values overlap network latency without
	// changing the crawl order.
	DefaultConcurrency = 1

	// DefaultBatchSize is the number of sites crawled at once when several
	// start URLs are given.
	DefaultBatchSize = 2

	// DefaultRetries of 0 means every URL is requested exactly once.
	DefaultRetries = 0

	// DefaultUserAgent identifies sitecrawl in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows operators
	// to identify crawler traffic in their logs.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultMaxBodySize limits the decoded response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Config holds all configuration options for sitecrawl.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. Per-site settings live in the configuration file and are
// merged into Targets by ResolveTargets.
type Config struct {
	// StartURLs are the seeds given on the command line.
	StartURLs []string

	// SiteNames are site keys from the configuration file (--site).
	SiteNames []string

	// Allow is the allow-list of URL prefixes given on the command line.
	// Empty means "not set on the command line".
	Allow []string

	// Block is the block-list of URL substrings given on the command line.
	Block []string

	// OutputDir is the page store directory given on the command line.
	// Empty means "not set on the command line".
	OutputDir string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Concurrency is the number of pages fetched in parallel per site.
	Concurrency int

	// Retries is the number of extra attempts for transient fetch failures.
	Retries int

	// BatchSize is the number of sites crawled concurrently.
	BatchSize int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum decoded response body size in bytes.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the crawl history database.
	// Defaults to the XDG data directory (~/.local/share/sitecrawl on Linux).
	DBDir string

	// SaveToDB indicates whether crawl runs are recorded in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, batch size).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Retries:     DefaultRetries,
		BatchSize:   DefaultBatchSize,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for sitecrawl.
// On Linux: ~/.local/share/sitecrawl
// On macOS: ~/Library/Application Support/sitecrawl
// On Windows: %LOCALAPPDATA%\sitecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitecrawl.
// On Linux: ~/.config/sitecrawl
// On macOS: ~/Library/Application Support/sitecrawl
// On Windows: %APPDATA%\sitecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if len(c.StartURLs) == 0 && len(c.SiteNames) == 0 {
		return ErrNoStartURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if slices.Contains(c.Allow, "") || slices.Contains(c.Block, "") {
		return ErrEmptyPolicyEntry
	}

	return nil
}
