package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/dnv-opensource/WindFarmer-automation/internal/api/models"
	"github.com/dnv-opensource/WindFarmer-automation/internal/batch"
	"github.com/dnv-opensource/WindFarmer-automation/internal/request"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
	"github.com/dnv-opensource/WindFarmer-automation/internal/windfarmer"
)

var errNoClient = errors.New("no WindFarmer access key configured")

// CalculationHandler queues scenario calculations against the remote API. Runs outlive the
// request; progress is read back through the ledger endpoints.
type CalculationHandler struct {
	client *windfarmer.Client
	store  *store.Store
	opts   batch.Options
	base   context.Context
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewCalculationHandler returns a handler whose background runs stop when base is cancelled.
// client may be nil, in which case calculation endpoints answer 503.
func NewCalculationHandler(base context.Context, client *windfarmer.Client, st *store.Store, opts batch.Options, logger *slog.Logger) *CalculationHandler {
	return &CalculationHandler{
		client: client,
		store:  st,
		opts:   opts,
		base:   base,
		logger: logger.With(slog.String("module", "calculations")),
	}
}

// Status handles GET /api/v1/status
func (h *CalculationHandler) Status(c *gin.Context) {
	if h.client == nil {
		respondError(c, http.StatusServiceUnavailable, "NO_CLIENT", errNoClient)
		return
	}
	info, err := h.client.Status(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ServiceStatus{
		Message:           info.Message,
		APIVersion:        info.APIVersion,
		CalculationLibVer: info.CalculationLibVer,
		BaseURL:           h.client.BaseURL(),
	})
}

// Submit handles POST /api/v1/calculations?scenario=<name>
func (h *CalculationHandler) Submit(c *gin.Context) {
	if h.client == nil {
		respondError(c, http.StatusServiceUnavailable, "NO_CLIENT", errNoClient)
		return
	}
	var q models.CalculationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	req, err := request.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	run, err := h.store.CreateRun(c.Request.Context(), "api")
	if err != nil {
		respondDomainError(c, err)
		return
	}

	opts := h.opts
	opts.Recorder = h.store
	opts.RunID = run.ID
	opts.OutputDir = ""
	runner := batch.NewRunner(h.client, opts)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		res := runner.RunScenario(h.base, q.Scenario, req)
		failed := 0
		if res.Status != batch.StatusSuccess {
			failed = 1
		}
		if err := h.store.FinishRun(context.WithoutCancel(h.base), run.ID, 1, failed); err != nil {
			h.logger.Error("could not finish run", slog.String("run_id", run.ID), slog.Any("error", err))
		}
	}()

	c.JSON(http.StatusAccepted, models.CalculationAccepted{RunID: run.ID, Scenario: q.Scenario})
}

// Wait blocks until every queued run has finished.
func (h *CalculationHandler) Wait() {
	h.wg.Wait()
}
