package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// createTestReport creates a drained report with two pages and two failures.
func createTestReport() *model.CrawlReport {
	report := model.NewCrawlReport("run-1", model.NormalizedURL("http://docs.test/"), "scraped_pages")
	report.StartedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report.FinishedAt = report.StartedAt.Add(1500 * time.Millisecond)
	report.State = model.StateDrained
	report.Visited = 4
	report.MaxFrontier = 2

	report.AddPage(model.PageRecord{
		URL:         model.NormalizedURL("http://docs.test/"),
		Title:       "Docs Home",
		FilePath:    "scraped_pages/docs.test.txt",
		Bytes:       120,
		StatusCode:  200,
		LinksFound:  3,
		LinksQueued: 2,
	})
	report.AddPage(model.PageRecord{
		URL:        model.NormalizedURL("http://docs.test/guide"),
		Title:      "Guide",
		StatusCode: 200,
	})
	report.AddFailure(model.NewPageFailure("http://docs.test/missing", model.StageFetch, errors.New("unexpected status 404")))
	report.AddFailure(model.NewPageFailure("http://docs.test/guide", model.StageStore, errors.New("disk full")))

	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"SITECRAWL REPORT", "http://docs.test/", "run-1", "Complete", "1.5s"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("writes summary counters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Pages crawled:  2", "Pages stored:   1", "Failures:       2", "fetch:", "store:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
		if strings.Contains(output, "extract:") {
			t.Error("expected stages without failures to be omitted")
		}
	})

	t.Run("writes failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[fetch] http://docs.test/missing") {
			t.Errorf("expected fetch failure line:\n%s", output)
		}
		if !strings.Contains(output, "unexpected status 404") {
			t.Error("expected failure message")
		}
	})

	t.Run("pages are listed only in verbose mode", func(t *testing.T) {
		t.Parallel()

		var quiet, verbose bytes.Buffer
		if _, err := NewSimpleWriter(&quiet).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := NewSimpleWriter(&verbose, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(quiet.String(), "PAGES") {
			t.Error("expected no pages section without verbose")
		}
		output := verbose.String()
		if !strings.Contains(output, "[+] http://docs.test/") || !strings.Contains(output, "[!] http://docs.test/guide") {
			t.Errorf("expected stored and unstored markers:\n%s", output)
		}
		if !strings.Contains(output, "Title: Docs Home") {
			t.Error("expected page title")
		}
	})

	t.Run("show empty sections", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("run-2", model.NormalizedURL("http://empty.test/"), "out")
		report.State = model.StateDrained

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true), WithVerbose(true)).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No pages crawled") || !strings.Contains(buf.String(), "No failures") {
			t.Errorf("expected empty section placeholders:\n%s", buf.String())
		}
	})

	t.Run("aborted report shows error", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("run-3", "", "out")
		report.State = model.StateAborted
		report.Error = "invalid start URL"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Aborted - invalid start URL") {
			t.Errorf("expected aborted status:\n%s", buf.String())
		}
	})

	t.Run("WriteAll adds batch overview", func(t *testing.T) {
		t.Parallel()

		second := createTestReport()
		second.StartURL = model.NormalizedURL("http://blog.test/")
		second.State = model.StateStopped

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteAll([]*model.CrawlReport{createTestReport(), second}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Count(output, "SITECRAWL REPORT") != 2 {
			t.Errorf("expected two report headers:\n%s", output)
		}
		if !strings.Contains(output, "BATCH OVERVIEW") || !strings.Contains(output, "stopped") {
			t.Errorf("expected batch overview:\n%s", output)
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.CrawlReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.RunID != "run-1" || len(decoded.Pages) != 2 || len(decoded.Failures) != 2 {
			t.Errorf("unexpected decoded report: %+v", decoded)
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected single-line compact JSON")
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"run_id\"") {
			t.Errorf("expected indented output:\n%s", buf.String())
		}
	})

	t.Run("custom prefix and indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n>\t\"run_id\"") {
			t.Errorf("expected custom indentation:\n%s", buf.String())
		}
	})

	t.Run("WriteAll outputs an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteAll([]*model.CrawlReport{createTestReport(), createTestReport()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded []model.CrawlReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 {
			t.Errorf("expected 2 reports, got %d", len(decoded))
		}
	})

	t.Run("WriteAll with nil writes empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteAll(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("expected [], got %q", buf.String())
		}
	})
}

// TestFullJSONWriter tests the JSON writer with metadata wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("includes version and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Version string             `json:"version"`
			Report  *model.CrawlReport `json:"report"`
			Summary *Summary           `json:"summary"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "1.2.3" {
			t.Errorf("expected version 1.2.3, got %q", decoded.Version)
		}
		if decoded.Summary.PagesStored != 1 || decoded.Summary.Failures != 2 {
			t.Errorf("unexpected summary: %+v", decoded.Summary)
		}
		if decoded.Summary.FailuresByStage[model.StageFetch] != 1 {
			t.Errorf("expected one fetch failure, got %v", decoded.Summary.FailuresByStage)
		}
		if decoded.Summary.Duration != "1.5s" {
			t.Errorf("expected duration 1.5s, got %q", decoded.Summary.Duration)
		}
	})

	t.Run("WriteAll wraps each site", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "dev").WriteAll([]*model.CrawlReport{createTestReport()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONBatch
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "dev" || len(decoded.Sites) != 1 || decoded.Sites[0].Report.RunID != "run-1" {
			t.Errorf("unexpected batch: %+v", decoded)
		}
	})
}

// TestMultiWriter tests writing to several writers at once.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		multi := NewMultiWriter(NewSimpleWriter(&buf1), NewJSONWriter(&buf2))

		n, err := multi.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf1.Len()+buf2.Len() {
			t.Errorf("expected %d bytes, got %d", buf1.Len()+buf2.Len(), n)
		}
		if strings.HasPrefix(buf1.String(), "{") {
			t.Error("expected buf1 (simple) to not be JSON")
		}
		if !strings.HasPrefix(buf2.String(), "{") {
			t.Error("expected buf2 (JSON) to contain JSON")
		}
	})

	t.Run("WriteAll writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		multi := NewMultiWriter(NewMarkdownWriter(&buf1), NewJSONWriter(&buf2))

		if _, err := multi.WriteAll([]*model.CrawlReport{createTestReport()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf1.Len() == 0 || buf2.Len() == 0 {
			t.Error("expected both writers to have content")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		n, err := NewMultiWriter().Write(createTestReport())
		if err != nil || n != 0 {
			t.Errorf("expected 0, nil; got %d, %v", n, err)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, report *model.CrawlReport) string {
		t.Helper()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return buf.String()
	}

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "# Crawl Report") {
			t.Error("expected H1 header")
		}
		if !strings.Contains(output, "`http://docs.test/`") {
			t.Error("expected start URL in code format")
		}
		if !strings.Contains(output, "✅ Complete") {
			t.Error("expected complete status")
		}
	})

	t.Run("writes summary table and pie chart", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "## Summary") {
			t.Error("expected summary section")
		}
		if !strings.Contains(output, "Failures (fetch)") {
			t.Error("expected per-stage failure row")
		}
		if !strings.Contains(output, "```mermaid") || !strings.Contains(output, "URL Outcomes") {
			t.Errorf("expected mermaid pie chart:\n%s", output)
		}
	})

	t.Run("writes pages and failures tables", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "## Pages") || !strings.Contains(output, "Docs Home") {
			t.Error("expected pages table")
		}
		if !strings.Contains(output, "## Failures") || !strings.Contains(output, "unexpected status 404") {
			t.Error("expected failures table")
		}
	})

	t.Run("alerts follow state", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			state model.CrawlState
			clear bool
			want  string
		}{
			{name: "failures", state: model.StateDrained, want: "[!IMPORTANT]"},
			{name: "clean run", state: model.StateDrained, clear: true, want: "[!TIP]"},
			{name: "stopped", state: model.StateStopped, want: "[!WARNING]"},
			{name: "aborted", state: model.StateAborted, want: "[!CAUTION]"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				report := createTestReport()
				report.State = tt.state
				if tt.clear {
					report.Failures = nil
				}
				if output := write(t, report); !strings.Contains(output, tt.want) {
					t.Errorf("expected %s alert:\n%s", tt.want, output)
				}
			})
		}
	})

	t.Run("long failure messages get details", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		long := strings.Repeat("x", 80)
		report.AddFailure(model.NewPageFailure("http://docs.test/slow", model.StageFetch, errors.New(long)))

		output := write(t, report)
		if !strings.Contains(output, "<details>") || !strings.Contains(output, long) {
			t.Errorf("expected details block with full message:\n%s", output)
		}
	})

	t.Run("handles report with no pages", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("run-4", model.NormalizedURL("http://empty.test/"), "out")
		report.State = model.StateDrained

		output := write(t, report)
		if !strings.Contains(output, "No pages crawled.") || !strings.Contains(output, "No failures.") {
			t.Errorf("expected empty placeholders:\n%s", output)
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no pie chart without data")
		}
	})

	t.Run("WriteAll nests sections per site", func(t *testing.T) {
		t.Parallel()

		second := createTestReport()
		second.StartURL = model.NormalizedURL("http://blog.test/")

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteAll([]*model.CrawlReport{createTestReport(), second}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Batch Crawl Report") {
			t.Error("expected batch header")
		}
		if !strings.Contains(output, "## http://blog.test/") || strings.Count(output, "### Summary") != 2 {
			t.Errorf("expected nested sections:\n%s", output)
		}
	})

	t.Run("writes footer with link", func(t *testing.T) {
		t.Parallel()

		if output := write(t, createTestReport()); !strings.Contains(output, "https://github.com/nao1215/sitecrawl") {
			t.Error("expected footer link")
		}
	})
}

// TestTruncateString tests the truncateString helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{name: "short string unchanged", in: "abc", maxLen: 5, want: "abc"},
		{name: "long string gets ellipsis", in: "abcdefgh", maxLen: 6, want: "abc..."},
		{name: "tiny limit has no ellipsis", in: "abcdef", maxLen: 2, want: "ab"},
		{name: "multibyte runes are kept whole", in: "日本語のタイトル", maxLen: 5, want: "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}
