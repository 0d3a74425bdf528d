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

	"github.com/nao1215/medusa/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "medusa.db"

// ErrDatabaseNotFound is returned by Open when CreateIfNotExists is false and
// the database file does not exist.
var ErrDatabaseNotFound = errors.New("database not found")

// CrawlDB provides SQLite-based storage for crawl runs.
// It manages connection pooling and provides methods for CRUD operations.
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
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// foreign_keys is a per-connection setting, so it goes into the DSN to
	// survive connection recycling.
	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)"

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
	-- Runs store one pagedepth crawl each, with the full report as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		total_pages INTEGER NOT NULL,
		error_pages INTEGER NOT NULL,
		error_statuses INTEGER NOT NULL,
		max_depth INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);
	CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);

	-- Depth counts are the per-level rows of a run's report
	CREATE TABLE IF NOT EXISTS run_depths (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		depth INTEGER NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY(run_id, depth)
	);

	-- Pages record every URL a run stored
	CREATE TABLE IF NOT EXISTS run_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER,
		depth INTEGER,
		error TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_run_pages_run ON run_pages(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary contains summary information about a stored run.
// This is used for displaying history without loading the full report.
type RunSummary struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Root is the URL the crawl started from.
	Root string

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time

	// Duration is the wall-clock time of the crawl.
	Duration time.Duration

	// TotalPages is the number of pages the run stored.
	TotalPages int

	// ErrorPages counts pages whose fetch failed.
	ErrorPages int

	// ErrorStatuses counts pages answered with a 4xx or 5xx code.
	ErrorStatuses int

	// MaxDepth is the deepest level reached, or -1.
	MaxDepth int
}

// PageRecord represents one stored page of a run.
type PageRecord struct {
	URL        string
	StatusCode int

	// Depth is -1 when the page was not reached from the root.
	Depth int

	// Error is the fetch error message, empty on success.
	Error string
}

// SaveRun stores a report and the pages it was built from in one
// transaction and returns the new run ID. pages may be nil.
func (cdb *CrawlDB) SaveRun(ctx context.Context, report *model.DepthReport, pages []*model.Page) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (root, generated_at, duration_ms, total_pages, error_pages, error_statuses, max_depth, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Root,
		report.GeneratedAt.UTC().Format(time.RFC3339Nano),
		report.Duration.Milliseconds(),
		report.TotalPages,
		report.ErrorPages,
		report.ErrorStatuses,
		report.MaxDepth(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for _, d := range report.Depths {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_depths (run_id, depth, count) VALUES (?, ?, ?)",
			runID, d.Depth, d.Count,
		); err != nil {
			return 0, fmt.Errorf("failed to insert depth %d: %w", d.Depth, err)
		}
	}

	for _, p := range pages {
		var errMsg string
		if p.Err != nil {
			errMsg = p.Err.Error()
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO run_pages (run_id, url, status_code, depth, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, url) DO NOTHING
		`,
			runID, p.String(), p.Code, p.DepthValue(), errMsg,
		); err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns stored runs, newest first. A non-empty root restricts the
// list to runs of that root URL.
func (cdb *CrawlDB) ListRuns(ctx context.Context, root string) ([]RunSummary, error) {
	query := `
	SELECT id, root, generated_at, duration_ms, total_pages, error_pages, error_statuses, max_depth
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 1)

	if root != "" {
		query += " AND root = ?"
		args = append(args, root)
	}
	query += " ORDER BY id DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var run RunSummary
		var generatedAt string
		var durationMS int64

		if err := rows.Scan(
			&run.ID,
			&run.Root,
			&generatedAt,
			&durationMS,
			&run.TotalPages,
			&run.ErrorPages,
			&run.ErrorStatuses,
			&run.MaxDepth,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.GeneratedAt = parseTimestamp(generatedAt)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, run)
	}

	return results, rows.Err()
}

// GetRun retrieves the report of a run by its database ID.
// It returns nil without error when no such run exists.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*model.DepthReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, "SELECT report_json FROM runs WHERE id = ?", id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.DepthReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// GetLatestRun retrieves the most recent report for root.
// It returns nil without error when root was never crawled.
func (cdb *CrawlDB) GetLatestRun(ctx context.Context, root string) (*model.DepthReport, error) {
	var id int64
	err := cdb.db.QueryRowContext(ctx,
		"SELECT id FROM runs WHERE root = ? ORDER BY id DESC LIMIT 1", root,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return cdb.GetRun(ctx, id)
}

// GetDepthCounts returns the per-depth counts of a run, ascending by depth.
func (cdb *CrawlDB) GetDepthCounts(ctx context.Context, runID int64) ([]model.DepthCount, error) {
	rows, err := cdb.db.QueryContext(ctx,
		"SELECT depth, count FROM run_depths WHERE run_id = ? ORDER BY depth", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get depth counts: %w", err)
	}
	defer rows.Close()

	results := make([]model.DepthCount, 0)
	for rows.Next() {
		var d model.DepthCount
		if err := rows.Scan(&d.Depth, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan depth count: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// GetRunPages returns the stored pages of a run ordered by depth and URL.
// Unreached pages come last.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID int64) ([]PageRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, status_code, depth, error
	FROM run_pages
	WHERE run_id = ?
	ORDER BY depth < 0, depth, url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	var results []PageRecord
	for rows.Next() {
		var rec PageRecord
		var errMsg sql.NullString
		if err := rows.Scan(&rec.URL, &rec.StatusCode, &rec.Depth, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		rec.Error = errMsg.String
		results = append(results, rec)
	}
	return results, rows.Err()
}

// DeleteRun removes a run with its depth counts and pages.
// It reports whether a run was deleted.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id int64) (bool, error) {
	result, err := cdb.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
