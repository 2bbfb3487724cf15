package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Site is one crawl job for a BatchRunner.
type Site struct {
	// Name identifies the site in logs and results.
	Name string
	// Engine crawls the site.
	Engine *Engine
}

// BatchResult is the outcome of one Site.
type BatchResult struct {
	// Site is the site name.
	Site string
	// Report is the crawl report. It is nil only if the site never started
	// because the batch was cancelled first.
	Report *model.CrawlReport
	// Err is the error returned by Engine.Crawl.
	Err error
}

// BatchRunner crawls several sites concurrently, one Engine per site.
//
// Design decision: Sites run in parallel but each Engine keeps its own
// frontier and visited set, so every site gets the same deterministic
// result it would get when crawled alone. One failing site never cancels
// the others.
type BatchRunner struct {
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchConcurrency sets how many sites are crawled at once.
// Default is 2.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatchRunner creates a BatchRunner.
func NewBatchRunner(opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		concurrency: 2,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Run crawls all sites and returns their results in input order.
// The returned error is the context error if the batch was cancelled.
func (b *BatchRunner) Run(ctx context.Context, sites []Site) ([]BatchResult, error) {
	b.logger.Info("starting batch crawl",
		"sites", len(sites),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	results := make([]BatchResult, len(sites))
	for i, site := range sites {
		results[i].Site = site.Name
	}

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].Err = ctx.Err()
				return nil
			}

			b.logger.Info("crawling site",
				"site", site.Name,
				"index", i+1,
				"total", len(sites),
			)

			report, err := site.Engine.Crawl(ctx)
			results[i].Report = report
			results[i].Err = err

			if err != nil {
				b.logger.Warn("site crawl failed", "site", site.Name, "error", err)
				return nil
			}
			b.logger.Info("site crawl completed", "site", site.Name, "pages", len(report.Pages))
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // errors are kept per site

	b.logger.Info("batch crawl complete",
		"sites", len(sites),
		"elapsed", time.Since(startTime),
	)

	return results, ctx.Err()
}
