// Package history keeps a durable ledger of publish runs and their per-note
// outcomes. Ledger failures are logged by callers but never fail the
// pipeline itself.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one CLI invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	DryRun    bool
	Records   []Record
}

// Record is the outcome for one note within a run.
type Record struct {
	RunID    string
	NotePath string
	Status   string
	Slug     string
	Detail   string
}

// Store persists runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path and runs the
// schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// migrate creates the required tables. Idempotent.
func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL,
			note_path TEXT NOT NULL,
			status TEXT NOT NULL,
			slug TEXT,
			detail TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate ledger: %w", err)
		}
	}
	return nil
}

// BeginRun records the start of a run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, dryRun bool) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, dry_run) VALUES (?, ?, ?)",
		id, time.Now().UTC().Format(time.RFC3339), boolToInt(dryRun),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// AddRecord appends one note outcome to a run.
func (s *Store) AddRecord(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO records (run_id, note_path, status, slug, detail) VALUES (?, ?, ?, ?, ?)",
		rec.RunID, rec.NotePath, rec.Status, rec.Slug, rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent n runs, newest first, each with its
// records in insertion order.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, dry_run FROM runs ORDER BY started_at DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		var dryRun int
		if err := rows.Scan(&r.ID, &startedAt, &dryRun); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		r.DryRun = dryRun != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		records, err := s.recordsForRun(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Records = records
	}
	return runs, nil
}

func (s *Store) recordsForRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, note_path, status, slug, detail FROM records WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RunID, &rec.NotePath, &rec.Status, &rec.Slug, &rec.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
