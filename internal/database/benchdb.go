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

	"github.com/langshake/shake-proof/internal/model"
)

// FileName is the database file inside the data directory.
const FileName = "shakeproof.db"

// storeLayout keeps timestamps lexically sortable.
const storeLayout = "2006-01-02 15:04:05.000000"

// BenchDB stores benchmark results for history and comparison.
type BenchDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures BenchDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a BenchDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*BenchDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s (run a benchmark first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	bdb := &BenchDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := bdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return bdb, nil
}

// Path returns the database file path.
func (bdb *BenchDB) Path() string {
	return bdb.dbPath
}

// Close closes the database connection.
func (bdb *BenchDB) Close() error {
	return bdb.db.Close()
}

func (bdb *BenchDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS benchmark_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		domain TEXT NOT NULL,
		started_at TEXT NOT NULL,
		total_pages INTEGER NOT NULL DEFAULT 0,
		matched_pages INTEGER NOT NULL DEFAULT 0,
		failed_pages INTEGER NOT NULL DEFAULT 0,
		all_match INTEGER NOT NULL DEFAULT 0,
		aborted INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_domain ON benchmark_runs(domain);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON benchmark_runs(started_at);
	`

	_, err := bdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult stores a result and returns its row ID.
func (bdb *BenchDB) SaveResult(ctx context.Context, result *model.DomainBenchmarkResult) (int64, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize result: %w", err)
	}

	query := `
	INSERT INTO benchmark_runs
		(run_id, domain, started_at, total_pages, matched_pages, failed_pages, all_match, aborted, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := bdb.db.ExecContext(ctx, query,
		result.RunID,
		result.DomainRoot,
		result.StartedAt.UTC().Format(storeLayout),
		result.Summary.TotalPages,
		result.Summary.MatchedPages,
		result.Summary.FailedPages,
		result.Summary.AllMatch,
		result.Aborted(),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save result: %w", err)
	}
	return res.LastInsertId()
}

// GetLatestResult returns the most recent result for domain, or nil when
// there is none.
func (bdb *BenchDB) GetLatestResult(ctx context.Context, domain string) (*model.DomainBenchmarkResult, error) {
	query := `
	SELECT result_json FROM benchmark_runs
	WHERE domain = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`
	return bdb.queryResult(ctx, query, domain)
}

// GetResultByID returns the result with the given row ID, or nil.
func (bdb *BenchDB) GetResultByID(ctx context.Context, id int64) (*model.DomainBenchmarkResult, error) {
	return bdb.queryResult(ctx, `SELECT result_json FROM benchmark_runs WHERE id = ?`, id)
}

// GetResultByRunID returns the result with the given run ID, or nil.
func (bdb *BenchDB) GetResultByRunID(ctx context.Context, runID string) (*model.DomainBenchmarkResult, error) {
	return bdb.queryResult(ctx, `SELECT result_json FROM benchmark_runs WHERE run_id = ?`, runID)
}

func (bdb *BenchDB) queryResult(ctx context.Context, query string, arg any) (*model.DomainBenchmarkResult, error) {
	var resultJSON string
	err := bdb.db.QueryRowContext(ctx, query, arg).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result model.DomainBenchmarkResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &result, nil
}

// ListDomains returns every benchmarked domain in alphabetical order.
func (bdb *BenchDB) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := bdb.db.QueryContext(ctx, `SELECT DISTINCT domain FROM benchmark_runs ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}
	return domains, rows.Err()
}

// GetHistory returns every result for domain, newest first.
func (bdb *BenchDB) GetHistory(ctx context.Context, domain string) ([]*model.DomainBenchmarkResult, error) {
	query := `
	SELECT result_json FROM benchmark_runs
	WHERE domain = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := bdb.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []*model.DomainBenchmarkResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		var result model.DomainBenchmarkResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			continue // Skip malformed rows
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// RunMetadata summarizes a stored run without loading its pages.
type RunMetadata struct {
	ID           int64
	RunID        string
	Domain       string
	StartedAt    time.Time
	TotalPages   int
	MatchedPages int
	FailedPages  int
	AllMatch     bool
	Aborted      bool
}

// GetHistoryWithMetadata returns run summaries for domain, newest first.
func (bdb *BenchDB) GetHistoryWithMetadata(ctx context.Context, domain string) ([]RunMetadata, error) {
	query := `
	SELECT id, run_id, domain, started_at, total_pages, matched_pages, failed_pages, all_match, aborted
	FROM benchmark_runs
	WHERE domain = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := bdb.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt string
		if err := rows.Scan(
			&meta.ID,
			&meta.RunID,
			&meta.Domain,
			&startedAt,
			&meta.TotalPages,
			&meta.MatchedPages,
			&meta.FailedPages,
			&meta.AllMatch,
			&meta.Aborted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.StartedAt = parseTimestamp(startedAt)
		results = append(results, meta)
	}
	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	storeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// parseTimestamp tries each known format and returns the zero time when none
// matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
