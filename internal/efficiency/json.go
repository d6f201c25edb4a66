package efficiency

import (
	"encoding/json"
	"math"
)

type efficienciesJSON struct {
	TotalBlockage              *float64 `json:"total_blockage"`
	InternalBlockage           *float64 `json:"internal_blockage"`
	InternalWake               *float64 `json:"internal_wake"`
	InternalTurbineInteraction *float64 `json:"internal_turbine_interaction"`
	ExternalBlockage           *float64 `json:"external_blockage"`
	ExternalWake               *float64 `json:"external_wake"`
	ExternalTurbineInteraction *float64 `json:"external_turbine_interaction"`
	TotalTurbineInteraction    *float64 `json:"total_turbine_interaction"`
	TotalWake                  *float64 `json:"total_wake"`
	Hysteresis                 *float64 `json:"hysteresis"`
	FullYieldGWh               *float64 `json:"full_yield_gwh"`
	GrossYieldGWh              *float64 `json:"gross_yield_gwh"`
	TotalLosses                *float64 `json:"total_losses"`
	BlockageQuantified         bool     `json:"blockage_quantified"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (e Efficiencies) MarshalJSON() ([]byte, error) {
	return json.Marshal(efficienciesJSON{
		TotalBlockage:              finite(e.TotalBlockage),
		InternalBlockage:           finite(e.InternalBlockage),
		InternalWake:               finite(e.InternalWake),
		InternalTurbineInteraction: finite(e.InternalTurbineInteraction),
		ExternalBlockage:           finite(e.ExternalBlockage),
		ExternalWake:               finite(e.ExternalWake),
		ExternalTurbineInteraction: finite(e.ExternalTurbineInteraction),
		TotalTurbineInteraction:    finite(e.TotalTurbineInteraction),
		TotalWake:                  finite(e.TotalWake),
		Hysteresis:                 finite(e.Hysteresis),
		FullYieldGWh:               finite(e.FullYieldGWh),
		GrossYieldGWh:              finite(e.GrossYieldGWh),
		TotalLosses:                finite(e.TotalLosses),
		BlockageQuantified:         e.BlockageQuantified,
	})
}

func (e *Efficiencies) UnmarshalJSON(b []byte) error {
	var j efficienciesJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*e = Efficiencies{
		TotalBlockage:              orNaN(j.TotalBlockage),
		InternalBlockage:           orNaN(j.InternalBlockage),
		InternalWake:               orNaN(j.InternalWake),
		InternalTurbineInteraction: orNaN(j.InternalTurbineInteraction),
		ExternalBlockage:           orNaN(j.ExternalBlockage),
		ExternalWake:               orNaN(j.ExternalWake),
		ExternalTurbineInteraction: orNaN(j.ExternalTurbineInteraction),
		TotalTurbineInteraction:    orNaN(j.TotalTurbineInteraction),
		TotalWake:                  orNaN(j.TotalWake),
		Hysteresis:                 orNaN(j.Hysteresis),
		FullYieldGWh:               orNaN(j.FullYieldGWh),
		GrossYieldGWh:              orNaN(j.GrossYieldGWh),
		TotalLosses:                orNaN(j.TotalLosses),
		BlockageQuantified:         j.BlockageQuantified,
	}
	return nil
}
