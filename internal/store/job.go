package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

// SaveJob inserts a job record, assigning an id if it has none. The returned record carries the id.
func (s *Store) SaveJob(ctx context.Context, j model.JobRecord) (model.JobRecord, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = model.JobSubmitted
	}
	var runID any
	if j.RunID != "" {
		runID = j.RunID
	}
	_, err := s.write.ExecContext(ctx, `
		INSERT INTO job (id, run_id, scenario, role, remote_job_id, status, progress, error, submitted_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, runID, j.Scenario, j.Role, j.RemoteJobID, string(j.Status), j.Progress, j.Error,
		formatTime(j.SubmittedAt), formatTimePtr(j.FinishedAt))
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("saving job: %w", err)
	}
	return j, nil
}

// UpdateJob overwrites the mutable fields of an existing job.
func (s *Store) UpdateJob(ctx context.Context, j model.JobRecord) error {
	res, err := s.write.ExecContext(ctx, `
		UPDATE job SET remote_job_id = ?, status = ?, progress = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		j.RemoteJobID, string(j.Status), j.Progress, j.Error, formatTimePtr(j.FinishedAt), j.ID)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", j.ID, err)
	}
	return expectOne(res, "job", j.ID)
}

const jobColumns = `id, COALESCE(run_id, ''), scenario, role, remote_job_id, status, progress, error, submitted_at, finished_at`

func (s *Store) GetJob(ctx context.Context, id string) (model.JobRecord, error) {
	row := s.read.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM job WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobRecord{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return j, err
}

// JobFilter narrows ListJobs. Zero fields match everything.
type JobFilter struct {
	RunID  string
	Status model.JobStatus
	Limit  int
}

func (s *Store) ListJobs(ctx context.Context, f JobFilter) ([]model.JobRecord, error) {
	var where []string
	var args []any
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := `SELECT ` + jobColumns + ` FROM job`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit < 1 {
		limit = 100
	}
	q += " ORDER BY submitted_at DESC, scenario, role LIMIT ?"
	args = append(args, limit)

	rows, err := s.read.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.JobRecord{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading job rows: %w", err)
	}
	return jobs, nil
}

func scanJob(sc scanner) (model.JobRecord, error) {
	var j model.JobRecord
	var status, submitted string
	var finished sql.NullString
	err := sc.Scan(&j.ID, &j.RunID, &j.Scenario, &j.Role, &j.RemoteJobID, &status,
		&j.Progress, &j.Error, &submitted, &finished)
	if err != nil {
		return model.JobRecord{}, err
	}
	j.Status = model.JobStatus(status)
	if j.SubmittedAt, err = parseTime(submitted); err != nil {
		return model.JobRecord{}, err
	}
	if j.FinishedAt, err = parseNullTime(finished); err != nil {
		return model.JobRecord{}, err
	}
	return j, nil
}
