package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/porewalk/internal/outcome"
	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore on a SQLite database at <dir>/porewalk.db.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens or creates the run database in dir.
func NewSQLiteRunStore(dir string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	dbPath := DBPath(dir)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string { return s.dbPath }

// SaveRun stores a run and its outcomes in one transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run Run, outcomes []outcome.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run = prepare(run)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, seed, particles, dt, steps, sim_time, elapsed_ns,
			succeeded, failed, active,
			mean_attempts, mean_bindings, mean_dwell, mean_free_dwell,
			mean_dwell_succeeded, mean_dwell_failed, config
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), strconv.FormatUint(run.Seed, 10),
		run.Particles, run.Dt, run.Steps, run.SimTime, int64(run.Elapsed),
		run.Succeeded, run.Failed, run.Active,
		run.MeanAttempts, run.MeanBindings, run.MeanDwell, run.MeanFreeDwell,
		run.MeanDwellSucceeded, run.MeanDwellFailed, run.Config,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes (
			run_id, particle, outcome, total_time, free_time, bound_time, attempts, bindings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, o.Particle, o.Outcome,
			o.TotalTime, o.FreeTime, o.BoundTime, o.Attempts, o.Bindings); err != nil {
			return "", fmt.Errorf("failed to insert outcome %d of run %s: %w", o.Particle, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

const runColumns = `
	id, created_at, seed, particles, dt, steps, sim_time, elapsed_ns,
	succeeded, failed, active,
	mean_attempts, mean_bindings, mean_dwell, mean_free_dwell,
	mean_dwell_succeeded, mean_dwell_failed, config`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		createdAt string
		seed      string
		elapsed   int64
		config    sql.NullString
	)
	err := row.Scan(&run.ID, &createdAt, &seed, &run.Particles, &run.Dt, &run.Steps, &run.SimTime, &elapsed,
		&run.Succeeded, &run.Failed, &run.Active,
		&run.MeanAttempts, &run.MeanBindings, &run.MeanDwell, &run.MeanFreeDwell,
		&run.MeanDwellSucceeded, &run.MeanDwellFailed, &config)
	if err != nil {
		return nil, err
	}

	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("run %s: invalid created_at %q: %w", run.ID, createdAt, err)
	}
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("run %s: invalid seed %q: %w", run.ID, seed, err)
	}
	run.Elapsed = time.Duration(elapsed)
	run.Config = config.String
	return &run, nil
}

// GetRun returns a run by ID.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetOutcomes returns the per-particle outcomes of a run.
func (s *SQLiteRunStore) GetOutcomes(ctx context.Context, id string) ([]outcome.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up run %s: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT particle, outcome, total_time, free_time, bound_time, attempts, bindings
		FROM outcomes WHERE run_id = ? ORDER BY particle`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes of run %s: %w", id, err)
	}
	defer rows.Close()

	var out []outcome.Record
	for rows.Next() {
		var o outcome.Record
		if err := rows.Scan(&o.Particle, &o.Outcome, &o.TotalTime, &o.FreeTime, &o.BoundTime, &o.Attempts, &o.Bindings); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and, by cascade, its outcomes.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}
