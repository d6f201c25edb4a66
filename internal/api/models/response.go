package models

import (
	"encoding/json"
	"time"

	"github.com/dnv-opensource/WindFarmer-automation/internal/efficiency"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
)

type BreakdownResponse struct {
	Context      model.ContextSpec       `json:"context"`
	FarmSet      string                  `json:"farm_set"`
	Efficiencies efficiency.Efficiencies `json:"efficiencies"`
	Summary      efficiency.Summary      `json:"summary"`
}

type JobsResponse struct {
	Jobs  []model.JobRecord `json:"jobs"`
	Count int               `json:"count"`
}

type RunsResponse struct {
	Runs  []store.Run `json:"runs"`
	Count int         `json:"count"`
}

type SummariesResponse struct {
	RunID     string                `json:"run_id"`
	Summaries []store.SummaryRecord `json:"summaries"`
}

// Event is one stored warning or error from the service log.
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Attrs     json.RawMessage `json:"attrs,omitempty"`
}

type EventsResponse struct {
	Events []Event `json:"events"`
	Page   int     `json:"page"`
	Count  int     `json:"count"`
}

// CalculationAccepted is returned with 202 once a calculation run has been queued.
type CalculationAccepted struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
}

// ServiceStatus reports the remote API status next to this service's own.
type ServiceStatus struct {
	Message           string `json:"message"`
	APIVersion        string `json:"api_version"`
	CalculationLibVer string `json:"calculation_library_version"`
	BaseURL           string `json:"base_url"`
}

// ModelInfo describes one selectable model option.
type ModelInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"` // "wake", "blockage" or "application_method"
	Description string `json:"description"`
}

// PresetInfo summarises one atmospheric preset.
type PresetInfo struct {
	ID                  string  `json:"id"`
	Samples             int     `json:"samples"`
	MinHeight           float64 `json:"min_height_m"`
	MaxHeight           float64 `json:"max_height_m"`
	BoundaryLayerHeight float64 `json:"boundary_layer_height_m"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
