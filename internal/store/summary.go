package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dnv-opensource/WindFarmer-automation/internal/efficiency"
)

// SummaryRecord is one scenario's breakdown as stored for a run.
type SummaryRecord struct {
	RunID        string                   `json:"run_id"`
	Scenario     string                   `json:"scenario"`
	Summary      efficiency.Summary       `json:"summary"`
	Efficiencies *efficiency.Efficiencies `json:"efficiencies,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}

// SaveSummary stores or replaces the summary of a scenario within a run.
func (s *Store) SaveSummary(ctx context.Context, r SummaryRecord) error {
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	var effs any
	if r.Efficiencies != nil {
		b, err := json.Marshal(r.Efficiencies)
		if err != nil {
			return fmt.Errorf("encoding efficiencies: %w", err)
		}
		effs = string(b)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err = s.write.ExecContext(ctx, `
		INSERT INTO summary (run_id, scenario, summary, efficiencies, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, scenario) DO UPDATE SET
			summary = excluded.summary,
			efficiencies = excluded.efficiencies,
			created_at = excluded.created_at`,
		r.RunID, r.Scenario, string(summary), effs, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving summary for %s: %w", r.Scenario, err)
	}
	return nil
}

// ListSummaries returns the summaries of a run ordered by scenario name.
func (s *Store) ListSummaries(ctx context.Context, runID string) ([]SummaryRecord, error) {
	rows, err := s.read.QueryContext(ctx, `
		SELECT run_id, scenario, summary, efficiencies, created_at
		FROM summary WHERE run_id = ? ORDER BY scenario`, runID)
	if err != nil {
		return nil, fmt.Errorf("fetching summaries: %w", err)
	}
	defer rows.Close()

	out := []SummaryRecord{}
	for rows.Next() {
		var r SummaryRecord
		var summary, created string
		var effs sql.NullString
		if err := rows.Scan(&r.RunID, &r.Scenario, &summary, &effs, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
			return nil, fmt.Errorf("decoding summary for %s: %w", r.Scenario, err)
		}
		if effs.Valid {
			var e efficiency.Efficiencies
			if err := json.Unmarshal([]byte(effs.String), &e); err != nil {
				return nil, fmt.Errorf("decoding efficiencies for %s: %w", r.Scenario, err)
			}
			r.Efficiencies = &e
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading summary rows: %w", err)
	}
	return out, nil
}
