package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every crawled page, not only failures.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeReport(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteAll outputs every report followed by a one-line-per-site overview.
func (w *SimpleWriter) WriteAll(reports []*model.CrawlReport) (int, error) {
	var sb strings.Builder

	for _, report := range reports {
		w.writeReport(&sb, report)
	}
	if len(reports) > 1 {
		w.writeBatchOverview(&sb, reports)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.CrawlReport) {
	w.writeHeader(sb, report)
	w.writeSummary(sb, report)
	w.writePages(sb, report)
	w.writeFailures(sb, report)
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          SITECRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Start URL:      %s\n", report.StartURL)
	fmt.Fprintf(sb, "Run ID:         %s\n", report.RunID)
	fmt.Fprintf(sb, "Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Output Dir:     %s\n", report.OutputDir)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")
}

// writeSummary writes the counters section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  Pages crawled:  %d\n", len(report.Pages))
	fmt.Fprintf(sb, "  Pages stored:   %d\n", report.StoredCount())
	fmt.Fprintf(sb, "  URLs visited:   %d\n", report.Visited)
	fmt.Fprintf(sb, "  Max frontier:   %d\n", report.MaxFrontier)
	fmt.Fprintf(sb, "  Failures:       %d\n", len(report.Failures))

	counts := report.FailuresByStage()
	for _, stage := range stagesWithFailures(counts) {
		fmt.Fprintf(sb, "    %-8s      %d\n", stage+":", counts[stage])
	}
	sb.WriteString("\n")
}

// writePages lists crawled pages in visit order. Only shown in verbose mode.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.CrawlReport) {
	if !w.verbose {
		return
	}
	if len(report.Pages) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Pages) == 0 {
		sb.WriteString("  No pages crawled\n\n")
		return
	}

	for _, page := range report.Pages {
		marker := "+"
		if !page.Stored() {
			marker = "!"
		}
		fmt.Fprintf(sb, "  [%s] %s\n", marker, page.URL)
		if page.Title != "" {
			fmt.Fprintf(sb, "      Title: %s\n", page.Title)
		}
		if page.Stored() {
			fmt.Fprintf(sb, "      File:  %s (%d bytes)\n", page.FilePath, page.Bytes)
		}
		fmt.Fprintf(sb, "      Links: %d found, %d queued\n", page.LinksFound, page.LinksQueued)
	}
	sb.WriteString("\n")
}

// writeFailures lists failures in the order they happened.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Failures) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Failures) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	for _, f := range report.Failures {
		fmt.Fprintf(sb, "  [%s] %s\n", f.Stage, f.URL)
		fmt.Fprintf(sb, "      %s\n", f.Message)
	}
	sb.WriteString("\n")
}

// writeBatchOverview writes one line per site.
func (w *SimpleWriter) writeBatchOverview(sb *strings.Builder, reports []*model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("BATCH OVERVIEW\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, report := range reports {
		fmt.Fprintf(sb, "  %-9s %4d pages %4d failures  %s\n",
			report.State, len(report.Pages), len(report.Failures), report.StartURL)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitecrawl\n")
	sb.WriteString("https://github.com/nao1215/sitecrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
