package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RunActive   = "ACTIVE"
	RunFinished = "FINISHED"
)

// Run groups the jobs and summaries of one CLI or API invocation.
type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CreateRun inserts an active run with a fresh id.
func (s *Store) CreateRun(ctx context.Context, kind string) (Run, error) {
	r := Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    RunActive,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.write.ExecContext(ctx, `
		INSERT INTO run (id, kind, status, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Kind, r.Status, formatTime(r.StartedAt))
	if err != nil {
		return Run{}, fmt.Errorf("creating run: %w", err)
	}
	return r, nil
}

func (s *Store) FinishRun(ctx context.Context, id string, total, failed int) error {
	res, err := s.write.ExecContext(ctx, `
		UPDATE run SET status = ?, total = ?, failed = ?, finished_at = ? WHERE id = ?`,
		RunFinished, total, failed, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	return expectOne(res, "run", id)
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.read.QueryRowContext(ctx, `
		SELECT id, kind, status, total, failed, started_at, finished_at
		FROM run WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.read.QueryContext(ctx, `
		SELECT id, kind, status, total, failed, started_at, finished_at
		FROM run ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading run rows: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var started string
	var finished sql.NullString
	if err := sc.Scan(&r.ID, &r.Kind, &r.Status, &r.Total, &r.Failed, &started, &finished); err != nil {
		return Run{}, err
	}
	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if r.FinishedAt, err = parseNullTime(finished); err != nil {
		return Run{}, err
	}
	return r, nil
}

func expectOne(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected on %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return nil
}
