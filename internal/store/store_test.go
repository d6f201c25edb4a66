package store

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnv-opensource/WindFarmer-automation/internal/efficiency"
	"github.com/dnv-opensource/WindFarmer-automation/internal/logging"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestNew_MigratesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wf.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	v, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	s.Close()

	// reopening must skip the applied migration
	s, err = New(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	r, err := s.CreateRun(ctx, "batch")
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, RunActive, r.Status)

	require.NoError(t, s.FinishRun(ctx, r.ID, 3, 1))
	got, err := s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, RunFinished, got.Status)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Failed)
	require.NotNil(t, got.FinishedAt)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.FinishRun(ctx, "missing", 0, 0), ErrNotFound)
}

func TestJobs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, err := s.CreateRun(ctx, "batch")
	require.NoError(t, err)

	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j, err := s.SaveJob(ctx, model.JobRecord{
		RunID:       run.ID,
		Scenario:    "north",
		Role:        "full",
		SubmittedAt: submitted,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)
	assert.Equal(t, model.JobSubmitted, j.Status)

	finished := submitted.Add(3 * time.Minute)
	j.RemoteJobID = "remote-1"
	j.Status = model.JobSucceeded
	j.Progress = "100% - done"
	j.FinishedAt = &finished
	require.NoError(t, s.UpdateJob(ctx, j))

	got, err := s.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote-1", got.RemoteJobID)
	assert.Equal(t, model.JobSucceeded, got.Status)
	assert.True(t, submitted.Equal(got.SubmittedAt))
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))

	// a job with no run
	_, err = s.SaveJob(ctx, model.JobRecord{Scenario: "adhoc", Role: "full", Status: model.JobFailed, SubmittedAt: submitted})
	require.NoError(t, err)

	byRun, err := s.ListJobs(ctx, JobFilter{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, byRun, 1)
	assert.Equal(t, "north", byRun[0].Scenario)

	failed, err := s.ListJobs(ctx, JobFilter{Status: model.JobFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "", failed[0].RunID)

	all, err := s.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateJob(ctx, model.JobRecord{ID: "missing"}), ErrNotFound)
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, err := s.CreateRun(ctx, "breakdown")
	require.NoError(t, err)

	effs := efficiency.Efficiencies{TotalBlockage: 0.97, InternalWake: math.NaN(), BlockageQuantified: true}
	sum := efficiency.Summary{FarmSet: "North", Rows: []efficiency.Row{{Label: "Gross Yield", Value: "1.0", Unit: "GWh/Annum"}}}

	require.NoError(t, s.SaveSummary(ctx, SummaryRecord{RunID: run.ID, Scenario: "north", Summary: sum, Efficiencies: &effs}))
	require.NoError(t, s.SaveSummary(ctx, SummaryRecord{RunID: run.ID, Scenario: "east", Summary: efficiency.Summary{FarmSet: "East"}}))
	// replacing keeps one row per scenario
	require.NoError(t, s.SaveSummary(ctx, SummaryRecord{RunID: run.ID, Scenario: "north", Summary: sum, Efficiencies: &effs}))

	got, err := s.ListSummaries(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "east", got[0].Scenario)
	assert.Nil(t, got[0].Efficiencies)

	north := got[1]
	assert.Equal(t, sum, north.Summary)
	require.NotNil(t, north.Efficiencies)
	assert.Equal(t, 0.97, north.Efficiencies.TotalBlockage)
	assert.True(t, math.IsNaN(north.Efficiencies.InternalWake))
	assert.True(t, north.Efficiencies.BlockageQuantified)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	logger := slog.New(logging.NewEventHandler(s, slog.LevelInfo))
	logger.Debug("ignored")
	logger.Info("submitted", slog.String("job_id", "j1"))
	logger.Error("failed", slog.String("job_id", "j2"))

	events, err := s.ListEvents(ctx, slog.LevelInfo, 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "failed", events[0].Message)
	assert.JSONEq(t, `{"job_id":"j1"}`, events[1].Attrs)

	errorsOnly, err := s.ListEvents(ctx, slog.LevelError, 1, 10)
	require.NoError(t, err)
	assert.Len(t, errorsOnly, 1)

	require.NoError(t, s.PurgeEvents(ctx, 1))
	events, err = s.ListEvents(ctx, slog.LevelDebug, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "failed", events[0].Message)
}
