package report

import (
	"io"
	"slices"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Writer defines the interface for report output.
// Implementations write crawl results in various formats.
type Writer interface {
	// Write outputs one crawl report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)

	// WriteAll outputs the reports of a batch crawl as one document.
	WriteAll(reports []*model.CrawlReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll outputs the batch to all configured Writers.
func (m *MultiWriter) WriteAll(reports []*model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAll(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Summary condenses a crawl report into counters.
type Summary struct {
	// StartURL is the seed of the run.
	StartURL string `json:"start_url"`

	// State is the final state of the run.
	State model.CrawlState `json:"state"`

	// PagesCrawled is the number of pages fetched and extracted.
	PagesCrawled int `json:"pages_crawled"`

	// PagesStored is the number of pages written to the page store.
	PagesStored int `json:"pages_stored"`

	// Failures is the total number of non-fatal failures.
	Failures int `json:"failures"`

	// FailuresByStage counts failures per stage.
	FailuresByStage map[model.FailureStage]int `json:"failures_by_stage,omitempty"`

	// Duration is the run time in Go duration notation (e.g. "1.5s").
	Duration string `json:"duration"`
}

// NewSummary builds a Summary from a crawl report.
func NewSummary(report *model.CrawlReport) *Summary {
	s := &Summary{
		StartURL:     report.StartURL.String(),
		State:        report.State,
		PagesCrawled: len(report.Pages),
		PagesStored:  report.StoredCount(),
		Failures:     len(report.Failures),
		Duration:     report.Duration().String(),
	}
	if len(report.Failures) > 0 {
		s.FailuresByStage = report.FailuresByStage()
	}
	return s
}

// failureStages lists stages in pipeline order.
var failureStages = []model.FailureStage{
	model.StageParse,
	model.StageFetch,
	model.StageExtract,
	model.StageStore,
	model.StageRecord,
}

// stagesWithFailures returns the stages that have at least one failure,
// in pipeline order.
func stagesWithFailures(counts map[model.FailureStage]int) []model.FailureStage {
	return slices.DeleteFunc(slices.Clone(failureStages), func(s model.FailureStage) bool {
		return counts[s] == 0
	})
}

// statusText describes the final state of a run.
func statusText(report *model.CrawlReport) string {
	switch report.State {
	case model.StateDrained:
		return "Complete"
	case model.StateStopped:
		return "Stopped (partial results)"
	case model.StateAborted:
		if report.Error != "" {
			return "Aborted - " + report.Error
		}
		return "Aborted"
	default:
		return string(report.State)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
