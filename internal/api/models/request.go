package models

import "github.com/dnv-opensource/WindFarmer-automation/internal/model"

// BreakdownRequest is the body of POST /api/v1/breakdown: previously computed result sets plus the
// settings they were computed with. The context is validated by model.ContextSpec.Context, so a
// missing or unknown setting is reported as INVALID_CONFIG naming the field.
type BreakdownRequest struct {
	Context       model.ContextSpec   `json:"context"`
	Full          *model.AepResultSet `json:"full" binding:"required"`
	Subject       *model.AepResultSet `json:"subject,omitempty"`
	HasNeighbours bool                `json:"has_neighbours"`
}

// JobsQuery filters GET /api/v1/jobs.
type JobsQuery struct {
	RunID  string `form:"run_id"`
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}

// EventsQuery pages through GET /api/v1/events. Level is a slog level name.
type EventsQuery struct {
	Level    string `form:"level"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// CalculationQuery names the scenario submitted to POST /api/v1/calculations. The body is the raw
// AEP request document.
type CalculationQuery struct {
	Scenario string `form:"scenario" binding:"required"`
}
