package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/extract"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/policy"
	"github.com/nao1215/sitecrawl/internal/store"
)

// Recorder receives the progress of a crawl, typically to persist it in the
// crawl history. Errors are reported as "record" failures and never stop
// the crawl. Pages and failures are still delivered after cancellation so
// the history matches the files on disk.
type Recorder interface {
	StartRun(ctx context.Context, report *model.CrawlReport) error
	RecordPage(ctx context.Context, runID string, page *model.PageRecord) error
	RecordFailure(ctx context.Context, runID string, failure *model.PageFailure) error
	FinishRun(ctx context.Context, report *model.CrawlReport) error
}

// Engine crawls one site breadth-first from a start URL.
//
// Design decision: An Engine is single-use. All crawl state (frontier,
// visited set, report) is created inside Crawl, so running the same
// Engine twice gives two independent crawls.
type Engine struct {
	// startURL is the raw seed as given by the user.
	startURL string

	fetcher fetcher.Fetcher
	policy  *policy.Policy
	store   *store.Store

	// concurrency is the number of URLs fetched in parallel per window.
	concurrency int

	recorder Recorder
	logger   *slog.Logger

	// newRunID generates the run identifier.
	newRunID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets how many URLs are fetched in parallel.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRecorder attaches a crawl history recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRunIDFunc overrides how run IDs are generated.
func WithRunIDFunc(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// New creates an Engine. The policy and store are used as given; the
// engine only calls Store.Prepare and Store.Save.
func New(startURL string, f fetcher.Fetcher, p *policy.Policy, s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		startURL:    startURL,
		fetcher:     f,
		policy:      p,
		store:       s,
		concurrency: 1,
		logger:      slog.Default(),
		newRunID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// crawlState is the mutable state of one Crawl call.
type crawlState struct {
	report   *model.CrawlReport
	frontier *Frontier
	visited  *VisitedSet
}

// fetchResult is the outcome of one fetch in a window.
type fetchResult struct {
	body *fetcher.RawBody
	err  error
}

// Crawl runs the crawl until the frontier is empty or ctx is cancelled.
//
// It returns a nil error when the frontier drains, however many pages
// failed along the way. On cancellation it returns the partial report and
// the context error. An invalid start URL or an output directory that
// cannot be created returns an aborted report and the error.
func (e *Engine) Crawl(ctx context.Context) (*model.CrawlReport, error) {
	start, err := model.Normalize(e.startURL)
	if err != nil {
		report := model.NewCrawlReport(e.newRunID(), "", e.store.Dir())
		return e.abort(report, fmt.Errorf("invalid start URL: %w", err))
	}

	report := model.NewCrawlReport(e.newRunID(), start, e.store.Dir())
	if err := e.store.Prepare(); err != nil {
		return e.abort(report, err)
	}

	st := &crawlState{
		report:   report,
		frontier: NewFrontier(),
		visited:  NewVisitedSet(),
	}
	st.visited.MarkIfNotVisited(start)
	st.frontier.Push(start)
	report.MaxFrontier = 1

	if e.recorder != nil {
		if err := e.recorder.StartRun(ctx, report); err != nil {
			e.logger.Warn("failed to record run start", "run_id", report.RunID, "error", err)
			report.AddFailure(model.NewPageFailure(start.String(), model.StageRecord, err))
		}
	}

	e.logger.Info("crawl started",
		"run_id", report.RunID,
		"start_url", start.String(),
		"output", e.store.Dir(),
		"concurrency", e.concurrency,
	)

	report.State = model.StateRunning
	for st.frontier.Len() > 0 {
		if ctx.Err() != nil {
			break
		}

		window := st.frontier.PopN(e.concurrency)
		results := e.fetchWindow(ctx, window)
		for i, u := range window {
			e.process(ctx, st, u, results[i])
		}
	}

	report.Visited = st.visited.Len()
	report.FinishedAt = time.Now()

	var crawlErr error
	if err := ctx.Err(); err != nil {
		report.State = model.StateStopped
		report.Error = err.Error()
		crawlErr = err
		e.logger.Warn("crawl stopped",
			"run_id", report.RunID,
			"pages", len(report.Pages),
			"queued", st.frontier.Len(),
			"reason", err,
		)
	} else {
		report.State = model.StateDrained
		e.logger.Info("crawl finished",
			"run_id", report.RunID,
			"pages", len(report.Pages),
			"failures", len(report.Failures),
			"visited", report.Visited,
		)
	}

	e.finish(report)
	return report, crawlErr
}

// abort marks the report as aborted and returns err.
func (e *Engine) abort(report *model.CrawlReport, err error) (*model.CrawlReport, error) {
	report.State = model.StateAborted
	report.Error = err.Error()
	report.FinishedAt = time.Now()
	e.logger.Error("crawl aborted", "start_url", e.startURL, "error", err)
	return report, err
}

// finish hands the final report to the recorder. The context may already be
// cancelled at this point, so the history write gets its own.
func (e *Engine) finish(report *model.CrawlReport) {
	if e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.recorder.FinishRun(ctx, report); err != nil {
		e.logger.Warn("failed to record run end", "run_id", report.RunID, "error", err)
		report.AddFailure(model.NewPageFailure(report.StartURL.String(), model.StageRecord, err))
	}
}

// fetchWindow fetches all URLs of a window, concurrently when the window
// holds more than one URL. Results are indexed like window.
func (e *Engine) fetchWindow(ctx context.Context, window []model.NormalizedURL) []fetchResult {
	results := make([]fetchResult, len(window))
	if len(window) == 1 {
		body, err := e.fetcher.Fetch(ctx, window[0])
		results[0] = fetchResult{body: body, err: err}
		return results
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, u := range window {
		g.Go(func() error {
			body, err := e.fetcher.Fetch(ctx, u)
			results[i] = fetchResult{body: body, err: err}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	return results
}

// process runs the post-fetch steps for one URL.
func (e *Engine) process(ctx context.Context, st *crawlState, u model.NormalizedURL, res fetchResult) {
	if res.err != nil {
		if ctx.Err() != nil && errors.Is(res.err, ctx.Err()) {
			// Interrupted, not failed.
			return
		}
		e.fail(ctx, st.report, u.String(), model.StageFetch, res.err)
		return
	}

	e.logRedirect(u, res.body.FinalURL)

	doc, err := extract.Parse(res.body.Body, res.body.ContentType)
	if err != nil {
		e.fail(ctx, st.report, u.String(), model.StageExtract, err)
		return
	}

	page := model.PageRecord{
		URL:         u,
		Title:       doc.Title,
		Text:        doc.Text,
		Bytes:       len(doc.Text),
		StatusCode:  res.body.StatusCode,
		ContentType: res.body.ContentType,
		LinksFound:  len(doc.Links),
		FetchedAt:   res.body.FetchedAt,
	}

	path, err := e.store.Save(u, doc.Text)
	if err != nil {
		e.fail(ctx, st.report, u.String(), model.StageStore, err)
	} else {
		page.FilePath = path
		e.logger.Debug("saved page", "url", u.String(), "path", path, "bytes", page.Bytes)
	}

	page.LinksQueued = e.expand(ctx, st, u, doc.Links)

	st.report.AddPage(page)
	if e.recorder != nil {
		if err := e.recorder.RecordPage(context.WithoutCancel(ctx), st.report.RunID, &page); err != nil {
			e.logger.Warn("failed to record page", "url", u.String(), "error", err)
			st.report.AddFailure(model.NewPageFailure(u.String(), model.StageRecord, err))
		}
	}
}

// expand resolves, filters and enqueues the links of page u.
// It returns the number of URLs pushed.
func (e *Engine) expand(ctx context.Context, st *crawlState, u model.NormalizedURL, links []string) int {
	root, err := u.Root()
	if err != nil {
		e.fail(ctx, st.report, u.String(), model.StageParse, err)
		return 0
	}

	queued := 0
	for _, href := range links {
		target, err := e.normalizeLink(root, href)
		if errors.Is(err, ErrUnsupportedScheme) {
			e.logger.Debug("link rejected", "url", href, "decision", "unsupported-scheme")
			continue
		}
		if err != nil {
			e.fail(ctx, st.report, href, model.StageParse, err)
			continue
		}

		if d := e.policy.Decide(target); !d.Admitted() {
			e.logger.Debug("link rejected", "url", target.String(), "decision", string(d))
			continue
		}

		if !st.visited.MarkIfNotVisited(target) {
			continue
		}

		st.frontier.Push(target)
		queued++
	}

	st.report.MaxFrontier = max(st.report.MaxFrontier, st.frontier.Len())
	return queued
}

// logRedirect notes responses whose final URL is on another host. Links on
// such pages still resolve against the requested URL's root.
func (e *Engine) logRedirect(u model.NormalizedURL, finalURL string) {
	if finalURL == "" || finalURL == u.String() {
		return
	}
	final, err := url.Parse(finalURL)
	if err != nil || final.Host == u.Host() {
		return
	}
	e.logger.Debug("redirected off host", "url", u.String(), "final_url", finalURL)
}

// normalizeLink resolves href against root and normalizes the result.
func (e *Engine) normalizeLink(root *url.URL, href string) (model.NormalizedURL, error) {
	abs, err := Resolve(root, href)
	if err != nil {
		return "", err
	}
	return model.Normalize(abs)
}

// fail logs a per-page failure, adds it to the report and forwards it to
// the recorder.
func (e *Engine) fail(ctx context.Context, report *model.CrawlReport, rawURL string, stage model.FailureStage, err error) {
	if stage == model.StageParse {
		e.logger.Debug("skipping link", "url", rawURL, "error", err)
	} else {
		e.logger.Warn("page failed", "url", rawURL, "stage", string(stage), "error", err)
	}

	failure := model.NewPageFailure(rawURL, stage, err)
	report.AddFailure(failure)

	if e.recorder == nil {
		return
	}
	if rerr := e.recorder.RecordFailure(context.WithoutCancel(ctx), report.RunID, &failure); rerr != nil {
		e.logger.Warn("failed to record failure", "url", rawURL, "error", rerr)
		report.AddFailure(model.NewPageFailure(rawURL, model.StageRecord, rerr))
	}
}
