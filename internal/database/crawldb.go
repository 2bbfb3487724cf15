package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/model"
)

// FileName is the name of the history database inside the data dir.
const FileName = "sitecrawl.db"

// CrawlDB provides SQLite-based storage for crawl history.
//
// Design decision: We use a single database file for all sites rather than
// one file per site. The history command lists runs across sites, and one
// file is easier to back up or delete.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		state TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages INTEGER DEFAULT 0,
		stored INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		visited INTEGER DEFAULT 0,
		max_frontier INTEGER DEFAULT 0,
		error TEXT,
		report_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- Pages fetched by a run, in visit order
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		title TEXT,
		file_path TEXT,
		bytes INTEGER,
		status_code INTEGER,
		content_type TEXT,
		links_found INTEGER,
		links_queued INTEGER,
		fetched_at TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	-- Non-fatal errors of a run
	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		stage TEXT NOT NULL,
		message TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun inserts a run in its initial state.
func (cdb *CrawlDB) StartRun(ctx context.Context, report *model.CrawlReport) error {
	query := `
	INSERT INTO runs (id, start_url, output_dir, state, started_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := cdb.db.ExecContext(ctx, query,
		report.RunID,
		report.StartURL.String(),
		report.OutputDir,
		string(report.State),
		formatTimestamp(report.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecordPage inserts or updates a page of a run.
// Uses UPSERT so a page recorded twice keeps one row.
func (cdb *CrawlDB) RecordPage(ctx context.Context, runID string, page *model.PageRecord) error {
	query := `
	INSERT INTO pages (run_id, url, title, file_path, bytes, status_code, content_type, links_found, links_queued, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		title = excluded.title,
		file_path = excluded.file_path,
		bytes = excluded.bytes,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		links_found = excluded.links_found,
		links_queued = excluded.links_queued,
		fetched_at = excluded.fetched_at
	`

	_, err := cdb.db.ExecContext(ctx, query,
		runID,
		page.URL.String(),
		page.Title,
		page.FilePath,
		page.Bytes,
		page.StatusCode,
		page.ContentType,
		page.LinksFound,
		page.LinksQueued,
		formatTimestamp(page.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// RecordFailure inserts a failure of a run.
func (cdb *CrawlDB) RecordFailure(ctx context.Context, runID string, failure *model.PageFailure) error {
	query := `
	INSERT INTO failures (run_id, url, stage, message)
	VALUES (?, ?, ?, ?)
	`

	_, err := cdb.db.ExecContext(ctx, query,
		runID,
		failure.URL,
		string(failure.Stage),
		failure.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert failure: %w", err)
	}
	return nil
}

// FinishRun stores the final state and counters of a run, together with
// the full report as JSON.
func (cdb *CrawlDB) FinishRun(ctx context.Context, report *model.CrawlReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	UPDATE runs SET
		state = ?,
		finished_at = ?,
		pages = ?,
		stored = ?,
		failures = ?,
		visited = ?,
		max_frontier = ?,
		error = ?,
		report_json = ?
	WHERE id = ?
	`

	result, err := cdb.db.ExecContext(ctx, query,
		string(report.State),
		formatTimestamp(report.FinishedAt),
		len(report.Pages),
		report.StoredCount(),
		len(report.Failures),
		report.Visited,
		report.MaxFrontier,
		report.Error,
		string(reportJSON),
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, report.RunID)
	}
	return nil
}

// ErrRunNotFound is returned when a run ID is not in the database.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID          string    `json:"id"`
	StartURL    string    `json:"start_url"`
	OutputDir   string    `json:"output_dir"`
	State       string    `json:"state"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Pages       int       `json:"pages"`
	Stored      int       `json:"stored"`
	Failures    int       `json:"failures"`
	Visited     int       `json:"visited"`
	MaxFrontier int       `json:"max_frontier"`
	Error       string    `json:"error,omitempty"`
}

// runColumns lists the columns scanned by scanRun.
const runColumns = `id, start_url, output_dir, state, started_at, finished_at,
	pages, stored, failures, visited, max_frontier, error`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one runs row.
func scanRun(row rowScanner) (*RunSummary, error) {
	var (
		run        RunSummary
		startedAt  string
		finishedAt sql.NullString
		errText    sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&run.StartURL,
		&run.OutputDir,
		&run.State,
		&startedAt,
		&finishedAt,
		&run.Pages,
		&run.Stored,
		&run.Failures,
		&run.Visited,
		&run.MaxFrontier,
		&errText,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	run.Error = errText.String
	return &run, nil
}

// ListRuns returns runs, newest first. A non-empty startURL limits the
// result to runs of that start URL.
func (cdb *CrawlDB) ListRuns(ctx context.Context, startURL string) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := make([]any, 0)

	if startURL != "" {
		query += " AND start_url = ?"
		args = append(args, startURL)
	}
	query += " ORDER BY started_at DESC, id"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun returns one run. It returns ErrRunNotFound for an unknown ID.
func (cdb *CrawlDB) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(cdb.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetRunReport returns the full report stored when the run finished.
// Runs that never finished have no report and return ErrRunNotFound.
func (cdb *CrawlDB) GetRunReport(ctx context.Context, runID string) (*model.CrawlReport, error) {
	var reportJSON sql.NullString
	err := cdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !reportJSON.Valid) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// PageEntry is one row of the pages table.
type PageEntry struct {
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	FilePath    string    `json:"file_path,omitempty"`
	Bytes       int       `json:"bytes"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type,omitempty"`
	LinksFound  int       `json:"links_found"`
	LinksQueued int       `json:"links_queued"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// GetRunPages returns the pages of a run in visit order.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID string) ([]PageEntry, error) {
	query := `
	SELECT url, title, file_path, bytes, status_code, content_type, links_found, links_queued, fetched_at
	FROM pages
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	pages := make([]PageEntry, 0)
	for rows.Next() {
		var (
			p         PageEntry
			fetchedAt string
		)
		err := rows.Scan(
			&p.URL,
			&p.Title,
			&p.FilePath,
			&p.Bytes,
			&p.StatusCode,
			&p.ContentType,
			&p.LinksFound,
			&p.LinksQueued,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.FetchedAt = parseTimestamp(fetchedAt)
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// FailureEntry is one row of the failures table.
type FailureEntry struct {
	URL       string    `json:"url"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GetRunFailures returns the failures of a run in the order they happened.
func (cdb *CrawlDB) GetRunFailures(ctx context.Context, runID string) ([]FailureEntry, error) {
	query := `
	SELECT url, stage, message, timestamp
	FROM failures
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run failures: %w", err)
	}
	defer rows.Close()

	failures := make([]FailureEntry, 0)
	for rows.Next() {
		var (
			f         FailureEntry
			message   sql.NullString
			timestamp string
		)
		if err := rows.Scan(&f.URL, &f.Stage, &message, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Message = message.String
		f.Timestamp = parseTimestamp(timestamp)
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

// storedTimestampFormat is fixed-width so that timestamps sort as text.
const storedTimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp renders t in UTC. A zero time is stored as an empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimestampFormat)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
