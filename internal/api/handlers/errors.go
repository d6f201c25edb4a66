package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dnv-opensource/WindFarmer-automation/internal/api/models"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
	"github.com/dnv-opensource/WindFarmer-automation/internal/windfarmer"
)

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

// respondDomainError maps the package error types onto HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	var cfgErr *model.ConfigurationError
	var subErr *windfarmer.SubmissionError
	switch {
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_CONFIG",
				Message: err.Error(),
				Details: map[string]interface{}{"field": cfgErr.Field},
			},
		})
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err)
	case errors.As(err, &subErr):
		details := map[string]interface{}{"status_code": subErr.StatusCode}
		if len(subErr.Errors) > 0 {
			details["errors"] = subErr.Errors
		}
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "UPSTREAM_REJECTED",
				Message: err.Error(),
				Details: details,
			},
		})
	case windfarmer.IsTransport(err):
		respondError(c, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", err)
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err)
	}
}
