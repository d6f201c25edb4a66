package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dnv-opensource/WindFarmer-automation/internal/api/models"
	"github.com/dnv-opensource/WindFarmer-automation/internal/efficiency"
)

// BreakdownHandler decomposes result sets posted by the client. It needs no remote access.
type BreakdownHandler struct{}

func NewBreakdownHandler() *BreakdownHandler {
	return &BreakdownHandler{}
}

// Breakdown handles POST /api/v1/breakdown
func (h *BreakdownHandler) Breakdown(c *gin.Context) {
	var req models.BreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	ctx, err := req.Context.Context()
	if err != nil {
		respondDomainError(c, err)
		return
	}
	b, err := efficiency.New(ctx, req.Full, req.Subject, req.HasNeighbours)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BreakdownResponse{
		Context:      req.Context,
		FarmSet:      req.Full.Label(),
		Efficiencies: b.Efficiencies(),
		Summary:      b.Summary(),
	})
}
