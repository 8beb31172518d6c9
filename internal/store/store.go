// File: internal/store/store.go

// Package store archives finished runs in PostgreSQL so they can be queried
// after the terminal report scrolled away. The archive is optional; the rest
// of the system never depends on it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL run archive.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    goal        TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    steps       INT NOT NULL,
    last_error  TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS run_steps (
    run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    step    INT NOT NULL,
    plan    JSONB NOT NULL DEFAULT '{}',
    summary TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    PRIMARY KEY (run_id, step)
);
`

// EnsureSchema creates the archive tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure archive schema: %w", err)
	}
	return nil
}

// SaveRun persists one finished run and its full history in a single
// transaction.
func (s *Store) SaveRun(ctx context.Context, report *schemas.RunReport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	const insertRun = `
        INSERT INTO runs (id, goal, outcome, steps, last_error, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
	_, err = tx.Exec(ctx, insertRun,
		report.RunID, report.Goal, string(report.Outcome), report.Steps,
		report.LastError, report.StartedAt.UTC(), report.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}

	if len(report.History) > 0 {
		if err := s.persistSteps(ctx, tx, report.RunID, report.History); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Run archived",
		zap.String("run_id", report.RunID),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("steps", report.Steps))
	return nil
}

func (s *Store) persistSteps(ctx context.Context, tx pgx.Tx, runID string, history schemas.History) error {
	const insertStep = `
        INSERT INTO run_steps (run_id, step, plan, summary, success)
        VALUES ($1, $2, $3, $4, $5);
    `
	batch := &pgx.Batch{}
	for _, entry := range history {
		plan := json.RawMessage("{}")
		if entry.Plan != nil {
			blob, err := json.Marshal(entry.Plan)
			if err != nil {
				return fmt.Errorf("failed to marshal plan for step %d: %w", entry.Step, err)
			}
			plan = blob
		}
		batch.Queue(insertStep, runID, entry.Step, plan, entry.Summary, entry.Success)
	}

	br := tx.SendBatch(ctx, batch)
	if br == nil {
		return fmt.Errorf("failed to send batch: batch results is nil")
	}
	defer func() {
		_ = br.Close()
	}()

	for i := range history {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to execute batch insert for step %d: %w", history[i].Step, err)
		}
	}
	return nil
}

// GetRun loads an archived run with its history, newest steps last.
func (s *Store) GetRun(ctx context.Context, runID string) (*schemas.RunReport, error) {
	const runQuery = `
        SELECT goal, outcome, steps, last_error, started_at, finished_at
        FROM runs
        WHERE id = $1;
    `
	report := &schemas.RunReport{RunID: runID}
	var outcome string

	rows, err := s.pool.Query(ctx, runQuery, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error reading run row: %w", err)
		}
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err := rows.Scan(&report.Goal, &outcome, &report.Steps,
		&report.LastError, &report.StartedAt, &report.FinishedAt); err != nil {
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}
	rows.Close()
	report.Outcome = schemas.Outcome(outcome)

	const stepQuery = `
        SELECT step, plan, summary, success
        FROM run_steps
        WHERE run_id = $1
        ORDER BY step ASC;
    `
	stepRows, err := s.pool.Query(ctx, stepQuery, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run steps: %w", err)
	}
	defer stepRows.Close()

	for stepRows.Next() {
		var entry schemas.HistoryEntry
		var planBlob []byte
		if err := stepRows.Scan(&entry.Step, &planBlob, &entry.Summary, &entry.Success); err != nil {
			return nil, fmt.Errorf("failed to scan step row: %w", err)
		}
		if len(planBlob) > 0 && string(planBlob) != "{}" {
			var plan schemas.ActionPlan
			if err := json.Unmarshal(planBlob, &plan); err != nil {
				return nil, fmt.Errorf("failed to unmarshal plan for step %d: %w", entry.Step, err)
			}
			entry.Plan = &plan
		}
		report.History = append(report.History, entry)
	}
	if err := stepRows.Err(); err != nil {
		return nil, fmt.Errorf("error during step row iteration: %w", err)
	}

	return report, nil
}
