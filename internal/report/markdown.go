package report

import (
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitecrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides tables, mermaid charts and GitHub-flavored
// markdown alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Report")
	md.PlainText("")
	w.writeReport(md, report, false)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteAll outputs an overview table followed by one section per site.
func (w *MarkdownWriter) WriteAll(reports []*model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Batch Crawl Report")
	md.PlainText("")

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			"`" + r.StartURL.String() + "`",
			statusText(r),
			strconv.Itoa(len(r.Pages)),
			strconv.Itoa(len(r.Failures)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Start URL", "Status", "Pages", "Failures"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range reports {
		md.H2(r.StartURL.String())
		md.PlainText("")
		w.writeReport(md, r, true)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeReport writes every section of one report. Nested sections sit one
// heading level lower.
func (w *MarkdownWriter) writeReport(md *markdown.Markdown, report *model.CrawlReport, nested bool) {
	section := md.H2
	if nested {
		section = md.H3
	}

	w.writeHeader(md, report)
	w.writeSummary(md, report, section)
	w.writePages(md, report, section)
	w.writeFailures(md, report, section)
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.StartURL.String() + "`"},
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Output Dir", "`" + report.OutputDir + "`"},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	switch report.State {
	case model.StateDrained:
		return "✅ " + statusText(report)
	case model.StateStopped:
		return "⚠️ " + statusText(report)
	case model.StateAborted:
		return "❌ " + statusText(report)
	default:
		return statusText(report)
	}
}

// writeSummary writes the counters table, the outcome chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport, section func(string) *markdown.Markdown) {
	section("Summary")
	md.PlainText("")

	rows := [][]string{
		{"Pages crawled", strconv.Itoa(len(report.Pages))},
		{"Pages stored", strconv.Itoa(report.StoredCount())},
		{"URLs visited", strconv.Itoa(report.Visited)},
		{"Max frontier", strconv.Itoa(report.MaxFrontier)},
	}
	counts := report.FailuresByStage()
	for _, stage := range stagesWithFailures(counts) {
		rows = append(rows, []string{"Failures (" + string(stage) + ")", strconv.Itoa(counts[stage])})
	}
	rows = append(rows, []string{"**Failures**", "**" + strconv.Itoa(len(report.Failures)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Pages) > 0 || len(report.Failures) > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of URL outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("URL Outcomes"),
		piechart.WithShowData(true),
	)

	stored := report.StoredCount()
	if stored > 0 {
		chart.LabelAndIntValue("Stored", uint64(stored))
	}
	if unstored := len(report.Pages) - stored; unstored > 0 {
		chart.LabelAndIntValue("Not stored", uint64(unstored))
	}
	counts := report.FailuresByStage()
	for _, stage := range stagesWithFailures(counts) {
		if stage == model.StageStore {
			// Already counted as "Not stored".
			continue
		}
		chart.LabelAndIntValue("Failed ("+string(stage)+")", uint64(counts[stage]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the run state.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.State == model.StateAborted:
		md.Cautionf("The crawl was aborted before any page was fetched: %s", report.Error)
	case report.State == model.StateStopped:
		md.Warningf(
			"The crawl was stopped before the frontier was empty. %d page(s) were crawled.",
			len(report.Pages),
		)
	case len(report.Failures) > 0:
		md.Importantf("%d URL(s) could not be crawled or stored. See Failures.", len(report.Failures))
	case len(report.Pages) > 0:
		md.Tip("Every reachable page was crawled and stored.")
	default:
		md.Note("No pages were crawled.")
	}
	md.PlainText("")
}

// writePages writes the crawled pages table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport, section func(string) *markdown.Markdown) {
	section("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		file := p.FilePath
		if file == "" {
			file = "-"
		}
		title := p.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			truncateString(p.URL.String(), 60),
			truncateString(title, 40),
			truncateString(file, 50),
			strconv.Itoa(p.Bytes),
			strconv.Itoa(p.LinksQueued) + "/" + strconv.Itoa(p.LinksFound),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "File", "Bytes", "Links (queued/found)"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the failures table with full messages in details.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.CrawlReport, section func(string) *markdown.Markdown) {
	section("Failures")
	md.PlainText("")

	if len(report.Failures) == 0 {
		md.PlainText("No failures.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		rows[i] = []string{
			string(f.Stage),
			truncateString(f.URL, 60),
			truncateString(f.Message, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Stage", "URL", "Message"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range report.Failures {
		if utf8.RuneCountInString(f.Message) > 60 {
			md.Details(f.URL, f.Message)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitecrawl](https://github.com/nao1215/sitecrawl)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
