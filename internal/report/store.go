// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report persists conversion run history in SQLite so batch and
// grid results survive the process and can be inspected later.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomanizer/markdown-converter/pkg/types"
)

// Run is one recorded batch or grid run.
type Run struct {
	ID        string
	Kind      string // "batch" or "grid"
	InputDir  string
	OutputDir string
	Stats     types.BatchStats
}

// Store manages the run history SQLite database.
type Store struct {
	db       *sql.DB
	keepRuns int
}

// NewStore opens or creates the run history database at cfg.Path, creating
// the schema when missing.
func NewStore(cfg types.ReportConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: report path is empty", types.ErrConfigInvalid)
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating report directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening report database: %w", err)
	}

	keepRuns := cfg.KeepRuns
	if keepRuns <= 0 {
		keepRuns = 50
	}

	s := &Store{db: db, keepRuns: keepRuns}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			input_dir TEXT NOT NULL,
			output_dir TEXT,
			total_files INTEGER NOT NULL,
			processed_files INTEGER NOT NULL,
			failed_files INTEGER NOT NULL,
			skipped_files INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			peak_memory_mb REAL
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			input_path TEXT NOT NULL,
			output_path TEXT,
			success INTEGER NOT NULL,
			capability TEXT,
			error TEXT,
			duration_ms INTEGER NOT NULL,
			input_bytes INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun records a completed run and its per-file outcomes in one
// transaction, then prunes history beyond the configured retention.
func (s *Store) SaveRun(ctx context.Context, run Run, outcomes []types.ConversionOutcome) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, input_dir, output_dir, total_files, processed_files,
			failed_files, skipped_files, start_time, end_time, peak_memory_mb)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.InputDir, run.OutputDir,
		run.Stats.TotalFiles, run.Stats.ProcessedFiles,
		run.Stats.FailedFiles, run.Stats.SkippedFiles,
		run.Stats.StartTime.UTC().Format(time.RFC3339Nano),
		run.Stats.EndTime.UTC().Format(time.RFC3339Nano),
		run.Stats.PeakMemoryMB,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, input_path, output_path, success, capability, error, duration_ms, input_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		success := 0
		if o.Success {
			success = 1
		}
		_, err := stmt.ExecContext(ctx,
			run.ID, o.InputPath, o.OutputPath, success, o.Capability,
			o.Error, o.Duration.Milliseconds(), o.InputBytes,
		)
		if err != nil {
			return "", fmt.Errorf("inserting outcome for %s: %w", o.InputPath, err)
		}
	}

	// Drop runs beyond the retention window, oldest first.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY start_time DESC LIMIT ?
		)`, s.keepRuns)
	if err != nil {
		return "", fmt.Errorf("pruning old runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

// RecentRuns returns up to limit runs, newest first. A non-positive limit
// uses the configured retention size.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = s.keepRuns
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, input_dir, output_dir, total_files, processed_files,
			failed_files, skipped_files, start_time, end_time, peak_memory_mb
		 FROM runs ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var start, end string
		if err := rows.Scan(runScanDest(&r, &start, &end)...); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Stats.StartTime, _ = time.Parse(time.RFC3339Nano, start)
		r.Stats.EndTime, _ = time.Parse(time.RFC3339Nano, end)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func runScanDest(r *Run, start, end *string) []any {
	return []any{
		&r.ID, &r.Kind, &r.InputDir, &r.OutputDir,
		&r.Stats.TotalFiles, &r.Stats.ProcessedFiles,
		&r.Stats.FailedFiles, &r.Stats.SkippedFiles,
		start, end, &r.Stats.PeakMemoryMB,
	}
}

// Outcomes returns the per-file outcomes recorded for a run.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]types.ConversionOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input_path, output_path, success, capability, error, duration_ms, input_bytes
		 FROM outcomes WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var out []types.ConversionOutcome
	for rows.Next() {
		var o types.ConversionOutcome
		var success int
		var durationMS int64
		if err := rows.Scan(&o.InputPath, &o.OutputPath, &success,
			&o.Capability, &o.Error, &durationMS, &o.InputBytes); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Success = success == 1
		o.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}
