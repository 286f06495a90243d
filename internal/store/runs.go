package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = "id, kind, scope, status, processed, total, message, started_at, finished_at"

func scanRun(s scanner) (*Run, error) {
	var (
		r        Run
		status   string
		started  sql.NullString
		finished sql.NullString
	)
	if err := s.Scan(&r.ID, &r.Kind, &r.Scope, &status, &r.Processed, &r.Total, &r.Message,
		&started, &finished); err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	r.StartedAt = parseNullTime(started)
	r.FinishedAt = parseNullTime(finished)
	return &r, nil
}

// CreateRun inserts a new in-progress run.
func (q *Queries) CreateRun(ctx context.Context, r Run) error {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, 0, ?, ?, ?, NULL)`,
		r.ID, r.Kind, r.Scope, RunInProgress, r.Total, r.Message, formatTime(r.StartedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("run %s: %w", r.ID, ErrDuplicate)
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// AdvanceRun adds n to the processed counter in a single statement.
func (q *Queries) AdvanceRun(ctx context.Context, id string, n int) error {
	_, err := q.db.ExecContext(ctx, `UPDATE runs SET processed = processed + ? WHERE id = ?`, n, id)
	if err != nil {
		return fmt.Errorf("advance run %s: %w", id, err)
	}
	return nil
}

// SetRunTotal records the number of units the run will process.
func (q *Queries) SetRunTotal(ctx context.Context, id string, total int) error {
	_, err := q.db.ExecContext(ctx, `UPDATE runs SET total = ? WHERE id = ?`, total, id)
	if err != nil {
		return fmt.Errorf("set run total %s: %w", id, err)
	}
	return nil
}

// AppendRunError adds one message to the run's error list.
func (q *Queries) AppendRunError(ctx context.Context, id, msg string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO run_errors (run_id, seq, message)
         VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM run_errors WHERE run_id = ?), ?)`,
		id, id, msg)
	if err != nil {
		return fmt.Errorf("append run error %s: %w", id, err)
	}
	return nil
}

// FinishRun moves an in-progress run to a terminal status. Runs that
// already finished are left untouched.
func (q *Queries) FinishRun(ctx context.Context, id string, status RunStatus, message string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, message = ?, finished_at = ?
         WHERE id = ? AND status = ?`,
		status, message, formatTime(time.Now()), id, RunInProgress)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

// GetRun fetches a run with its errors. Returns ErrNotFound when absent.
func (q *Queries) GetRun(ctx context.Context, id string) (*Run, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	rows, err := q.db.QueryContext(ctx, `SELECT message FROM run_errors WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list run errors %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan run error: %w", err)
		}
		r.Errors = append(r.Errors, msg)
	}
	return r, rows.Err()
}

// ListRuns returns the most recent runs first, without their errors.
func (q *Queries) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ActiveRun returns the in-progress run for (kind, scope), if any.
// Returns ErrNotFound when none is active.
func (q *Queries) ActiveRun(ctx context.Context, kind, scope string) (*Run, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE kind = ? AND scope = ? AND status = ?
         ORDER BY started_at DESC LIMIT 1`, kind, scope, RunInProgress)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active %s run for %q: %w", kind, scope, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("active run: %w", err)
	}
	return r, nil
}

// FailAbandonedRuns marks every in-progress run as failed, closing records
// left behind by a process that exited mid-run. Only call it when no other
// process is running work. Returns the number of runs closed.
func (q *Queries) FailAbandonedRuns(ctx context.Context, message string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, message = ?, finished_at = ? WHERE status = ?`,
		RunFailed, message, formatTime(time.Now()), RunInProgress)
	if err != nil {
		return 0, fmt.Errorf("fail abandoned runs: %w", err)
	}
	return res.RowsAffected()
}

// FailStaleRuns marks the in-progress runs of (kind, scope) as failed.
// Callers must hold the lock that excludes other runs of that scope, so
// any such row was left by a process that died mid-run.
func (q *Queries) FailStaleRuns(ctx context.Context, kind, scope, message string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, message = ?, finished_at = ?
         WHERE kind = ? AND scope = ? AND status = ?`,
		RunFailed, message, formatTime(time.Now()), kind, scope, RunInProgress)
	if err != nil {
		return 0, fmt.Errorf("fail stale %s runs: %w", kind, err)
	}
	return res.RowsAffected()
}
