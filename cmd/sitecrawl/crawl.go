package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	seclog "github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/policy"
	"github.com/nao1215/sitecrawl/internal/report"
	"github.com/nao1215/sitecrawl/internal/store"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [start-url...]",
		Short: "Crawl a website and save the text of every page",
		Long: `Crawl visits a website breadth-first, starting at the given URL.

Each page is fetched once. Its visible text is saved to the output
directory as one .txt file per page, and its links are followed when
they start with an allow-list prefix and contain no block-list substring.
Query strings and fragments are dropped, so /a?x=1 and /a#top are the
same page as /a.

When --allow is not given, only URLs under the start URL's scheme://host/
are followed.

Examples:
  # Crawl a site into ./scraped_pages
  sitecrawl crawl https://docs.example.com/

  # Only follow the guide, never log out
  sitecrawl crawl --allow https://docs.example.com/guide/ --block /logout https://docs.example.com/guide/

  # Fetch 4 pages at a time and retry transient failures twice
  sitecrawl crawl -n 4 --retries 2 https://docs.example.com/

  # Crawl two sites from the configuration file, two at a time
  sitecrawl crawl --site docs --site blog

  # Write a JSON report to a file
  sitecrawl crawl --json --report report.json https://docs.example.com/

Configuration file (.sitecrawl) example:
  defaults:
    block:
      - /logout
  sites:
    docs:
      startURL: https://docs.example.com/
      allow:
        - https://docs.example.com/guide/
      output: docs_pages`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// URL policy flags
	cmd.Flags().StringArrayP("allow", "a", nil,
		"URL prefix to follow (repeatable; default: the start URL's scheme://host/)")
	cmd.Flags().StringArrayP("block", "x", nil,
		"URL substring never to follow (repeatable)")

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Directory for page text files (default: "+config.DefaultOutputDir+")")

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages fetched in parallel per site")
	cmd.Flags().Int("retries", config.DefaultRetries,
		"Extra attempts for transport errors and 5xx responses")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitecrawl in current or home directory)")
	cmd.Flags().StringArrayP("site", "s", nil,
		"Crawl a site defined in the configuration file (repeatable)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, logJSON)
	slog.SetDefault(logger)

	// Cancelling stops the crawl between windows; the partial report is
	// still written.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.Allow, err = flags.GetStringArray("allow"); err != nil {
		return nil, err
	}
	if cfg.Block, err = flags.GetStringArray("block"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.SiteNames, err = flags.GetStringArray("site"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	cfg.StartURLs = args

	return cfg, nil
}

// loadSiteConfigs loads the configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty configuration is used when no file is found.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	cf, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return cf, nil
}

// setupLogger creates a secure structured logger.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return seclog.NewSecureJSONLogger(w, verbose)
	}
	return seclog.NewSecureLogger(w, verbose)
}

// runCrawl crawls every target and writes the report.
// It returns an error when any site was aborted or the run was cancelled,
// after the report has been written.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	targets, err := cfg.ResolveTargets()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	client := &http.Client{}
	sites := make([]crawler.Site, len(targets))
	for i, t := range targets {
		sites[i] = crawler.Site{
			Name:   t.Name,
			Engine: newEngine(cfg, t, client, db, logger),
		}
	}

	startTime := time.Now()
	var results []crawler.BatchResult
	if len(sites) == 1 {
		fmt.Fprintf(stderr, "Crawling %s...\n", targets[0].StartURL)
		rep, crawlErr := sites[0].Engine.Crawl(ctx)
		results = []crawler.BatchResult{{Site: sites[0].Name, Report: rep, Err: crawlErr}}
	} else {
		fmt.Fprintf(stderr, "Crawling %d sites (concurrency: %d)...\n", len(sites), cfg.BatchSize)
		// Cancellation also shows up in the per-site errors.
		results, _ = crawler.NewBatchRunner( //nolint:errcheck
			crawler.WithBatchConcurrency(cfg.BatchSize),
			crawler.WithBatchLogger(logger),
		).Run(ctx, sites)
	}
	fmt.Fprintf(stderr, "Crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	reports := make([]*model.CrawlReport, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.Report != nil {
			reports = append(reports, r.Report)
		}
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Site, r.Err))
		}
	}

	if err := outputReport(cfg, reports, stdout); err != nil {
		errs = append(errs, fmt.Errorf("failed to write report: %w", err))
	}

	return errors.Join(errs...)
}

// newEngine builds the fetcher, policy and store of one target.
func newEngine(cfg *config.Config, t config.Target, client *http.Client, db *database.CrawlDB, logger *slog.Logger) *crawler.Engine {
	var f fetcher.Fetcher = fetcher.NewHTTPFetcher(client,
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithHeaders(t.Headers),
		fetcher.WithLogger(logger),
	)
	if cfg.Retries > 0 {
		f = fetcher.NewRetryFetcher(f, fetcher.DefaultRetryConfig(uint64(cfg.Retries)), logger)
	}

	opts := []crawler.Option{
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithLogger(logger.With("site", t.Name)),
	}
	if db != nil {
		opts = append(opts, crawler.WithRecorder(db))
	}

	return crawler.New(t.StartURL, f, policy.New(t.Allow, t.Block), store.New(t.OutputDir), opts...)
}

// outputReport outputs the crawl reports in the requested format.
func outputReport(cfg *config.Config, reports []*model.CrawlReport, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w := newReportWriter(cfg, output)
	var err error
	if len(reports) == 1 {
		_, err = w.Write(reports[0])
	} else {
		_, err = w.WriteAll(reports)
	}
	return err
}

// newReportWriter selects the writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
