package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and ResolveTargets and
// provide specific information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoStartURL is returned when neither a start URL nor --site is given.
	ErrNoStartURL = errors.New("no start URL specified: provide a URL or use --site")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the per-site concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrEmptyPolicyEntry is returned when an allow or block entry is empty.
	// An empty block entry would block every URL and an empty allow entry
	// would admit every URL.
	ErrEmptyPolicyEntry = errors.New("empty allow or block entry")

	// ErrUnknownSite is returned when --site names a site missing from the
	// configuration file.
	ErrUnknownSite = errors.New("site not found in configuration file")

	// ErrSiteWithoutStartURL is returned when a configured site has no startURL.
	ErrSiteWithoutStartURL = errors.New("site has no startURL")
)
