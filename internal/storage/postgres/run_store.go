// Package postgres provides Postgres-backed persistence implementations.
//
// Schema expected by RunStore:
//
//	CREATE TABLE sync_runs (
//	    id           TEXT PRIMARY KEY,
//	    triggered_by TEXT NOT NULL,
//	    status       TEXT NOT NULL,
//	    started_at   TIMESTAMPTZ NOT NULL,
//	    finished_at  TIMESTAMPTZ,
//	    processed    INT NOT NULL DEFAULT 0,
//	    failed       INT NOT NULL DEFAULT 0
//	);
//
//	CREATE TABLE sync_run_domains (
//	    id               BIGSERIAL PRIMARY KEY,
//	    run_id           TEXT NOT NULL REFERENCES sync_runs (id),
//	    domain           TEXT NOT NULL,
//	    succeeded        BOOLEAN NOT NULL,
//	    error            TEXT NOT NULL DEFAULT '',
//	    keywords_checked INT NOT NULL,
//	    cells_changed    INT NOT NULL,
//	    duration_ms      BIGINT NOT NULL,
//	    archive_uri      TEXT NOT NULL DEFAULT ''
//	);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antyra/ranksync/internal/rank"
)

const defaultListLimit = 50

// RunStoreConfig controls the Postgres connection pool used for run history.
type RunStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// RunStore persists sync run history in Postgres.
type RunStore struct {
	pool querier
}

// NewRunStore creates a Postgres-backed RunStore using the provided config.
func NewRunStore(ctx context.Context, cfg RunStoreConfig) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RunStore{pool: pool}, nil
}

// NewRunStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewRunStoreWithPool(pool querier) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateRun inserts the header row for a starting run.
func (s *RunStore) CreateRun(ctx context.Context, run rank.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query := `
INSERT INTO sync_runs (id, triggered_by, status, started_at, processed, failed)
VALUES ($1, $2, $3, $4, $5, $6)`
	args := []any{run.ID, string(run.Trigger), string(run.Status), run.Started, run.Processed, run.Failed}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CompleteRun finalizes a run's status and counters.
func (s *RunStore) CompleteRun(ctx context.Context, runID string, status rank.RunStatus, processed, failed int, finished time.Time) error {
	query := `
UPDATE sync_runs
SET status = $2, processed = $3, failed = $4, finished_at = $5
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, runID, string(status), processed, failed, finished)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rank.ErrRunNotFound
	}
	return nil
}

// RecordDomainResult appends one domain outcome to a run.
func (s *RunStore) RecordDomainResult(ctx context.Context, result rank.StoredDomainResult) error {
	if result.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	query := `
INSERT INTO sync_run_domains (run_id, domain, succeeded, error, keywords_checked, cells_changed, duration_ms, archive_uri)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	args := []any{
		result.RunID,
		result.Domain,
		result.Succeeded,
		result.Error,
		result.KeywordsChecked,
		result.CellsChanged,
		result.DurationMS,
		result.ArchiveURI,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert domain result: %w", err)
	}
	return nil
}

// GetRun fetches one run header by ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (rank.Run, error) {
	query := `
SELECT id, triggered_by, status, started_at, finished_at, processed, failed
FROM sync_runs
WHERE id = $1`
	run, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rank.Run{}, rank.ErrRunNotFound
		}
		return rank.Run{}, fmt.Errorf("select run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]rank.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
SELECT id, triggered_by, status, started_at, finished_at, processed, failed
FROM sync_runs
ORDER BY started_at DESC
LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()

	var runs []rank.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ListDomainResults returns a run's domain outcomes in recorded order.
func (s *RunStore) ListDomainResults(ctx context.Context, runID string) ([]rank.StoredDomainResult, error) {
	query := `
SELECT run_id, domain, succeeded, error, keywords_checked, cells_changed, duration_ms, archive_uri
FROM sync_run_domains
WHERE run_id = $1
ORDER BY id`
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("select domain results: %w", err)
	}
	defer rows.Close()

	var results []rank.StoredDomainResult
	for rows.Next() {
		var r rank.StoredDomainResult
		if err := rows.Scan(
			&r.RunID,
			&r.Domain,
			&r.Succeeded,
			&r.Error,
			&r.KeywordsChecked,
			&r.CellsChanged,
			&r.DurationMS,
			&r.ArchiveURI,
		); err != nil {
			return nil, fmt.Errorf("scan domain result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domain results: %w", err)
	}
	return results, nil
}

func scanRun(row pgx.Row) (rank.Run, error) {
	var (
		run      rank.Run
		trigger  string
		status   string
		finished *time.Time
	)
	if err := row.Scan(&run.ID, &trigger, &status, &run.Started, &finished, &run.Processed, &run.Failed); err != nil {
		return rank.Run{}, err
	}
	run.Trigger = rank.RunTrigger(trigger)
	run.Status = rank.RunStatus(status)
	run.Finished = finished
	return run, nil
}
