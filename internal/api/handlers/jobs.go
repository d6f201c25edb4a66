package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dnv-opensource/WindFarmer-automation/internal/api/models"
	"github.com/dnv-opensource/WindFarmer-automation/internal/logging"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
)

// LedgerHandler serves the stored runs, jobs and summaries.
type LedgerHandler struct {
	store *store.Store
}

func NewLedgerHandler(st *store.Store) *LedgerHandler {
	return &LedgerHandler{store: st}
}

// ListJobs handles GET /api/v1/jobs
func (h *LedgerHandler) ListJobs(c *gin.Context) {
	var q models.JobsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	jobs, err := h.store.ListJobs(c.Request.Context(), store.JobFilter{
		RunID:  q.RunID,
		Status: model.JobStatus(q.Status),
		Limit:  q.Limit,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.JobsResponse{Jobs: jobs, Count: len(jobs)})
}

// GetJob handles GET /api/v1/jobs/:id
func (h *LedgerHandler) GetJob(c *gin.Context) {
	job, err := h.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListRuns handles GET /api/v1/runs
func (h *LedgerHandler) ListRuns(c *gin.Context) {
	runs, err := h.store.ListRuns(c.Request.Context(), 0)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	c.JSON(http.StatusOK, models.RunsResponse{Runs: runs, Count: len(runs)})
}

// GetRun handles GET /api/v1/runs/:id
func (h *LedgerHandler) GetRun(c *gin.Context) {
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListSummaries handles GET /api/v1/runs/:id/summaries
func (h *LedgerHandler) ListSummaries(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.store.GetRun(ctx, id); err != nil {
		respondDomainError(c, err)
		return
	}
	sums, err := h.store.ListSummaries(ctx, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SummariesResponse{RunID: id, Summaries: sums})
}

// ListEvents handles GET /api/v1/events
func (h *LedgerHandler) ListEvents(c *gin.Context) {
	var q models.EventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	level := slog.LevelWarn
	if q.Level != "" {
		level = logging.LevelFromString(&q.Level)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	events, err := h.store.ListEvents(c.Request.Context(), level, q.Page, q.PageSize)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		ev := models.Event{
			Timestamp: e.Timestamp,
			Level:     slog.Level(e.Level).String(),
			Message:   e.Message,
		}
		if e.Attrs != "" {
			ev.Attrs = json.RawMessage(e.Attrs)
		}
		out = append(out, ev)
	}
	c.JSON(http.StatusOK, models.EventsResponse{Events: out, Page: q.Page, Count: len(out)})
}
