package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mchmarny/creditrisk/pkg/stats"
)

const (
	insertRunSQL = `INSERT INTO run (id, input, started_at, duration_ms, rows_total,
			negatives, positives, unexpected, balance_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertSummarySQL = `INSERT INTO run_summary (run_id, position, column_name, lower_bound, upper_bound,
			value_count, mean, std, min_value, q1, median, q3, max_value, file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRunColumns = `SELECT id, input, started_at, duration_ms, rows_total,
			negatives, positives, unexpected, balance_file
		FROM run`

	selectRunsSQL = selectRunColumns + ` ORDER BY started_at DESC, id DESC LIMIT ?`
	selectRunSQL  = selectRunColumns + ` WHERE id = ?`

	selectSummariesSQL = `SELECT column_name, lower_bound, upper_bound, value_count,
			mean, std, min_value, q1, median, q3, max_value, file
		FROM run_summary
		WHERE run_id = ?
		ORDER BY position`

	deleteSummariesSQL = `DELETE FROM run_summary`
	deleteRunsSQL      = `DELETE FROM run`
)

// Run is one persisted explore run.
type Run struct {
	ID          string             `json:"id" yaml:"id"`
	Input       string             `json:"input" yaml:"input"`
	StartedAt   time.Time          `json:"started_at" yaml:"started_at"`
	Duration    time.Duration      `json:"duration" yaml:"duration"`
	Rows        int                `json:"rows" yaml:"rows"`
	Balance     stats.ClassBalance `json:"balance" yaml:"balance"`
	BalanceFile string             `json:"balance_file" yaml:"balance_file"`
	Summaries   []*ColumnSummary   `json:"summaries,omitempty" yaml:"summaries,omitempty"`
}

// ColumnSummary is the describe() result of one bounded column. Summaries
// keep the order they were rendered in; a column may appear more than once
// with different bounds. File is the chart file name, not its path.
type ColumnSummary struct {
	Column        string  `json:"column" yaml:"column"`
	Lower         float64 `json:"lower" yaml:"lower"`
	Upper         float64 `json:"upper" yaml:"upper"`
	File          string  `json:"file" yaml:"file"`
	stats.Summary `yaml:",inline"`
}

// SaveRun stores r and its summaries in a single transaction.
func (s *Store) SaveRun(ctx context.Context, r *Run) error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	if r == nil || r.ID == "" {
		return errors.New("run with id required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(insertRunSQL),
		r.ID, r.Input, r.StartedAt.UnixNano(), r.Duration.Milliseconds(), r.Rows,
		r.Balance.Negative, r.Balance.Positive, r.Balance.Unexpected, r.BalanceFile)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertSummarySQL))
	if err != nil {
		return fmt.Errorf("failed to prepare summary insert statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range r.Summaries {
		_, err = stmt.ExecContext(ctx, r.ID, i, c.Column, c.Lower, c.Upper,
			c.Count, c.Mean, c.Std, c.Min, c.Q1, c.Median, c.Q3, c.Max, c.File)
		if err != nil {
			return fmt.Errorf("failed to insert %s summary: %w", c.Column, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectRunsSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	rows.Close()

	for _, r := range list {
		if r.Summaries, err = s.summaries(ctx, r.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// GetRun returns the run with id or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}

	r, err := scanRun(s.db.QueryRowContext(ctx, s.rebind(selectRunSQL), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	if r.Summaries, err = s.summaries(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

// LatestRun returns the most recent run or ErrNotFound.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	list, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// Clear deletes every stored run and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteSummariesSQL); err != nil {
		return 0, fmt.Errorf("failed to delete summaries: %w", err)
	}
	res, err := tx.ExecContext(ctx, deleteRunsSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

func (s *Store) summaries(ctx context.Context, id string) ([]*ColumnSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectSummariesSQL), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries of %s: %w", id, err)
	}
	defer rows.Close()

	list := make([]*ColumnSummary, 0)
	for rows.Next() {
		c := &ColumnSummary{}
		if err := rows.Scan(&c.Column, &c.Lower, &c.Upper, &c.Count, &c.Mean, &c.Std,
			&c.Min, &c.Q1, &c.Median, &c.Q3, &c.Max, &c.File); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summaries: %w", err)
	}
	return list, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r        Run
		started  int64
		duration int64
	)
	err := row.Scan(&r.ID, &r.Input, &started, &duration, &r.Rows,
		&r.Balance.Negative, &r.Balance.Positive, &r.Balance.Unexpected, &r.BalanceFile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	r.StartedAt = time.Unix(0, started).UTC()
	r.Duration = time.Duration(duration) * time.Millisecond
	r.Balance.Total = r.Rows
	return &r, nil
}
