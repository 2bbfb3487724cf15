package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
	"github.com/spf13/cobra"
)

// ErrNoHistory is returned when the history database does not exist yet.
var ErrNoHistory = errors.New("no crawl history found (run 'sitecrawl crawl' first)")

// NewHistoryCmd creates the history command.
// This command shows crawl runs stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [start-url]",
		Short: "Show past crawl runs",
		Long: `History lists crawl runs recorded in the history database.

Without --run, it lists runs newest first, optionally limited to one
start URL. With --run, it shows the pages and failures of one run.

Examples:
  # List all runs
  sitecrawl history

  # List runs of one start URL
  sitecrawl history https://docs.example.com/

  # Show pages and failures of one run
  sitecrawl history --run 0b6e2f3c-5f1d-4a57-9a43-1c1f0a4b8e21

  # Print the stored report of a run as JSON or Markdown
  sitecrawl history --run 0b6e2f3c-5f1d-4a57-9a43-1c1f0a4b8e21 --json
  sitecrawl history --run 0b6e2f3c-5f1d-4a57-9a43-1c1f0a4b8e21 --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("run", "",
		"Show the pages and failures of one run")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the stored report of --run in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var startURL string
	if len(args) == 1 {
		normalized, err := model.Normalize(args[0])
		if err != nil {
			return fmt.Errorf("invalid start URL: %w", err)
		}
		startURL = normalized.String()
	}
	if runID != "" {
		if _, err := uuid.Parse(runID); err != nil {
			return fmt.Errorf("invalid run ID %q: %w", runID, err)
		}
	}
	if markdownOutput && runID == "" {
		return errors.New("--markdown requires --run")
	}

	db, err := openHistory(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case runID != "" && (jsonOutput || markdownOutput):
		return writeStoredReport(ctx, db, runID, out, markdownOutput)
	case runID != "":
		return showRun(ctx, db, runID, out)
	default:
		return listRuns(ctx, db, startURL, out, jsonOutput)
	}
}

// openHistory opens an existing history database without creating one.
func openHistory(dbDir string) (*database.CrawlDB, error) {
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoHistory
	}
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// listRuns prints runs newest first.
func listRuns(ctx context.Context, db *database.CrawlDB, startURL string, out io.Writer, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, startURL)
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		if startURL != "" {
			fmt.Fprintf(out, "No crawl history found for %s\n", startURL)
		} else {
			fmt.Fprintln(out, "No crawl history found")
		}
		return nil
	}

	fmt.Fprintf(out, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %6s  %8s  %s\n", "ID", "Started", "State", "Pages", "Failures", "Start URL")
	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %6d  %8d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.State,
			run.Pages,
			run.Failures,
			run.StartURL,
		)
	}
	return nil
}

// showRun prints the pages and failures of one run.
func showRun(ctx context.Context, db *database.CrawlDB, runID string, out io.Writer) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	pages, err := db.GetRunPages(ctx, runID)
	if err != nil {
		return err
	}
	failures, err := db.GetRunFailures(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  Start URL:  %s\n", run.StartURL)
	fmt.Fprintf(out, "  Output Dir: %s\n", run.OutputDir)
	fmt.Fprintf(out, "  Started:    %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  State:      %s\n", run.State)
	if run.Error != "" {
		fmt.Fprintf(out, "  Error:      %s\n", run.Error)
	}

	fmt.Fprintf(out, "\nPages (%d):\n", len(pages))
	for _, p := range pages {
		file := p.FilePath
		if file == "" {
			file = "(not stored)"
		}
		fmt.Fprintf(out, "  %s\n    -> %s\n", p.URL, file)
	}

	if len(failures) > 0 {
		fmt.Fprintf(out, "\nFailures (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(out, "  [%s] %s: %s\n", f.Stage, f.URL, f.Message)
		}
	}
	return nil
}

// writeStoredReport prints the report saved when the run finished.
func writeStoredReport(ctx context.Context, db *database.CrawlDB, runID string, out io.Writer, markdownOutput bool) error {
	stored, err := db.GetRunReport(ctx, runID)
	if err != nil {
		return err
	}

	var w report.Writer = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	if markdownOutput {
		w = report.NewMarkdownWriter(out)
	}
	_, err = w.Write(stored)
	return err
}
