// Package history keeps an audit ledger of batch runs in PostgreSQL.
//
// The ledger is write-only from the batch's point of view: runs are recorded
// after they finish and are never consulted to skip records.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/electroop-engineering/gib-esu/internal/batch"
	"github.com/electroop-engineering/gib-esu/internal/config"
)

// ErrRunNotFound is returned by GetRun for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS esu_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	parallel    BOOLEAN NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	total       INTEGER NOT NULL,
	errored     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS esu_run_entries (
	run_id   TEXT NOT NULL REFERENCES esu_runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	serial   TEXT NOT NULL,
	state    TEXT NOT NULL,
	results  TEXT[] NOT NULL DEFAULT '{}',
	error    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS esu_runs_started_at_idx ON esu_runs (started_at DESC);
`

// RunSummary is one ledger row.
type RunSummary struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Parallel   bool      `json:"parallel"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"toplam"`
	Errored    int       `json:"errored"`
}

// Entry is one recorded record outcome.
type Entry struct {
	Position int      `json:"position"`
	Serial   string   `json:"esu_seri_no"`
	State    string   `json:"state"`
	Results  []string `json:"results"`
	Error    string   `json:"hata,omitempty"`
}

// RunDetail is a run with its entries in input order.
type RunDetail struct {
	RunSummary
	Entries []Entry `json:"entries"`
}

// Store is the PostgreSQL run ledger.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects a pool sized by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the ledger tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RecordRun implements batch.Recorder. The run and its entries are written
// in one transaction.
func (s *Store) RecordRun(ctx context.Context, run batch.Run) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	_, err = tx.Exec(ctx,
		`INSERT INTO esu_runs (id, kind, parallel, started_at, finished_at, total, errored)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, string(run.Kind), run.Parallel, run.StartedAt, run.FinishedAt, run.Total, run.Errored,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"esu_run_entries"},
		[]string{"run_id", "position", "serial", "state", "results", "error"},
		pgx.CopyFromSlice(len(run.Entries), func(i int) ([]any, error) {
			e := run.Entries[i]
			results := e.Results
			if results == nil {
				results = []string{}
			}
			return []any{run.ID, i, e.Serial, string(e.State), results, e.Error}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy entries for run %s: %w", run.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, parallel, started_at, finished_at, total, errored
		 FROM esu_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Kind, &r.Parallel, &r.StartedAt, &r.FinishedAt, &r.Total, &r.Errored); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run with its entries.
func (s *Store) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	var d RunDetail
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, parallel, started_at, finished_at, total, errored
		 FROM esu_runs WHERE id = $1`, id,
	).Scan(&d.ID, &d.Kind, &d.Parallel, &d.StartedAt, &d.FinishedAt, &d.Total, &d.Errored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT position, serial, state, results, error
		 FROM esu_run_entries WHERE run_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get entries for run %s: %w", id, err)
	}
	defer rows.Close()

	d.Entries = make([]Entry, 0, d.Total)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Position, &e.Serial, &e.State, &e.Results, &e.Error); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		d.Entries = append(d.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get entries for run %s: %w", id, err)
	}
	return &d, nil
}
