// Package postgres provides a PostgreSQL backed processmap.RunStore.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deepnoodle-ai/processmap"
	_ "github.com/lib/pq"
)

var _ processmap.RunStore = (*RunStore)(nil)

// migrations are applied in order. The index plus one is the schema version.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS processmap_test_runs (
		id             TEXT PRIMARY KEY,
		workflow_id    TEXT NOT NULL,
		org_id         TEXT NOT NULL DEFAULT '',
		run_mode       TEXT NOT NULL,
		status         TEXT NOT NULL,
		overall_result TEXT NOT NULL DEFAULT '',
		started_at     TIMESTAMPTZ NOT NULL,
		completed_at   TIMESTAMPTZ,
		duration_ms    BIGINT NOT NULL DEFAULT 0,
		error_message  TEXT NOT NULL DEFAULT '',
		record         JSONB NOT NULL,
		saved_at       TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS processmap_test_runs_started_at_idx
		ON processmap_test_runs (started_at DESC);
	CREATE INDEX IF NOT EXISTS processmap_test_runs_workflow_idx
		ON processmap_test_runs (workflow_id, started_at DESC);`,
}

// RunStoreOptions configures a RunStore.
type RunStoreOptions struct {
	DatabaseURL string
	Logger      *slog.Logger
}

// RunStore stores test runs in PostgreSQL. The summary columns are kept next
// to the full JSON record so runs can be listed without decoding them.
type RunStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunStore connects to the database and applies pending migrations.
func NewRunStore(ctx context.Context, opts RunStoreOptions) (*RunStore, error) {
	if opts.DatabaseURL == "" {
		return nil, errors.New("database url required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("postgres", opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &RunStore{
		db:     db,
		logger: opts.Logger.With("component", "postgres_run_store"),
	}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection
func (s *RunStore) Close() error {
	return s.db.Close()
}

func (s *RunStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS processmap_schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM processmap_schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO processmap_schema_migrations (version) VALUES ($1)`, version,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
		s.logger.InfoContext(ctx, "applied migration", "version", version)
	}
	return nil
}

// SaveRun inserts or replaces a stored run
func (s *RunStore) SaveRun(ctx context.Context, run *processmap.StoredRun) error {
	if run == nil || run.TestRun == nil || run.TestRun.ID == "" {
		return errors.New("stored run must have a test run with an id")
	}
	if run.SavedAt.IsZero() {
		run.SavedAt = time.Now()
	}
	record, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	tr := run.TestRun
	var completedAt sql.NullTime
	if !tr.CompletedAt.IsZero() {
		completedAt = sql.NullTime{Time: tr.CompletedAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO processmap_test_runs (
			id, workflow_id, org_id, run_mode, status, overall_result,
			started_at, completed_at, duration_ms, error_message, record, saved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			org_id = EXCLUDED.org_id,
			run_mode = EXCLUDED.run_mode,
			status = EXCLUDED.status,
			overall_result = EXCLUDED.overall_result,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			duration_ms = EXCLUDED.duration_ms,
			error_message = EXCLUDED.error_message,
			record = EXCLUDED.record,
			saved_at = EXCLUDED.saved_at`,
		tr.ID,
		tr.WorkflowID,
		tr.OrgID,
		string(tr.RunMode),
		string(tr.Status),
		string(tr.OverallResult),
		tr.StartedAt,
		completedAt,
		tr.DurationMs,
		tr.ErrorMessage,
		record,
		run.SavedAt,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save run", "run_id", tr.ID, "error", err)
		return fmt.Errorf("failed to save run: %w", err)
	}
	s.logger.DebugContext(ctx, "saved run", "run_id", tr.ID, "status", tr.Status)
	return nil
}

// LoadRun returns the stored run, or nil if no run has the given id
func (s *RunStore) LoadRun(ctx context.Context, runID string) (*processmap.StoredRun, error) {
	var record []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM processmap_test_runs WHERE id = $1`, runID,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var run processmap.StoredRun
	if err := json.Unmarshal(record, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// DeleteRun removes a stored run. Deleting an unknown run is not an error.
func (s *RunStore) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM processmap_test_runs WHERE id = $1`, runID,
	); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// ListRuns returns run summaries, newest first
func (s *RunStore) ListRuns(ctx context.Context) ([]*processmap.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, status, overall_result, started_at,
			completed_at, duration_ms, error_message
		FROM processmap_test_runs
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := []*processmap.RunSummary{}
	for rows.Next() {
		var (
			summary     processmap.RunSummary
			status      string
			result      string
			completedAt sql.NullTime
			durationMs  int64
		)
		if err := rows.Scan(
			&summary.RunID,
			&summary.WorkflowID,
			&status,
			&result,
			&summary.StartedAt,
			&completedAt,
			&durationMs,
			&summary.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summary.Status = processmap.RunStatus(status)
		summary.OverallResult = processmap.OverallResult(result)
		if completedAt.Valid {
			summary.CompletedAt = completedAt.Time
		}
		summary.Duration = time.Duration(durationMs) * time.Millisecond
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}
