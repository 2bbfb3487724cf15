package model

import (
	"time"
)

// CrawlState is the state of a crawl run.
type CrawlState string

const (
	// StateSeeded means the frontier holds only the start URL.
	StateSeeded CrawlState = "seeded"
	// StateRunning means the engine is processing the frontier.
	StateRunning CrawlState = "running"
	// StateDrained means the frontier is empty. This is the successful end state.
	StateDrained CrawlState = "drained"
	// StateStopped means the run was cancelled before the frontier emptied.
	StateStopped CrawlState = "stopped"
	// StateAborted means the run never started (bad start URL or output dir).
	StateAborted CrawlState = "aborted"
)

// CrawlReport is the result of one crawl run.
type CrawlReport struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// StartURL is the normalized seed.
	StartURL NormalizedURL `json:"start_url"`

	// OutputDir is the page store root.
	OutputDir string `json:"output_dir"`

	// State is the final state of the run.
	State CrawlState `json:"state"`

	// StartedAt is when seeding happened.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// Pages holds every successfully fetched and extracted page, in visit order.
	Pages []PageRecord `json:"pages"`

	// Failures holds every non-fatal error, in the order it happened.
	Failures []PageFailure `json:"failures"`

	// Visited is the final size of the visited set.
	Visited int `json:"visited"`

	// MaxFrontier is the largest frontier length seen during the run.
	MaxFrontier int `json:"max_frontier"`

	// Error is set when the run was aborted or stopped.
	Error string `json:"error,omitempty"`
}

// NewCrawlReport creates an empty report for a run.
func NewCrawlReport(runID string, start NormalizedURL, outputDir string) *CrawlReport {
	return &CrawlReport{
		RunID:     runID,
		StartURL:  start,
		OutputDir: outputDir,
		State:     StateSeeded,
		StartedAt: time.Now(),
		Pages:     make([]PageRecord, 0),
		Failures:  make([]PageFailure, 0),
	}
}

// AddPage appends a page record.
func (r *CrawlReport) AddPage(p PageRecord) {
	r.Pages = append(r.Pages, p)
}

// AddFailure appends a failure.
func (r *CrawlReport) AddFailure(f PageFailure) {
	r.Failures = append(r.Failures, f)
}

// StoredCount returns the number of pages written to the page store.
func (r *CrawlReport) StoredCount() int {
	n := 0
	for i := range r.Pages {
		if r.Pages[i].Stored() {
			n++
		}
	}
	return n
}

// FailuresByStage counts failures per stage.
func (r *CrawlReport) FailuresByStage() map[FailureStage]int {
	counts := make(map[FailureStage]int)
	for _, f := range r.Failures {
		counts[f.Stage]++
	}
	return counts
}

// Duration returns how long the run took. Zero if it has not finished.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run reached the drained state.
func (r *CrawlReport) Succeeded() bool {
	return r.State == StateDrained
}
