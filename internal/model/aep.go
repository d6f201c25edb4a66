package model

import (
	"strings"

	"gonum.org/v1/gonum/floats"
)

// AepResultSet matches the JSON body returned by the AnnualEnergyProduction endpoints.
//
// Example:
//
//	{
//	  "windFarmAepOutputs": [ { "windFarmName": "Subject", ... } ],
//	  "weightedBlockageEfficiency": 0.97
//	}
//
// All yields are MWh/year and are only comparable within one result set.
type AepResultSet struct {
	WindFarmAepOutputs []WindFarmAepOutput `json:"windFarmAepOutputs"`

	// Only present when blockage is applied OnEnergy.
	WeightedBlockageEfficiency *float64 `json:"weightedBlockageEfficiency,omitempty"`
}

// WindFarmAepOutput is one per-farm row of an AepResultSet.
type WindFarmAepOutput struct {
	WindFarmName string `json:"windFarmName"`

	GrossYield                float64 `json:"grossAnnualEnergyYield_MWh_per_year"`
	FullYield                 float64 `json:"fullAnnualEnergyYield_MWh_per_year"`
	WakesOnYield              float64 `json:"internalWakesOnAnnualEnergyYield_MWh_per_year"`
	BlockageOnYield           float64 `json:"blockageOnAnnualEnergyYield_MWh_per_year"`
	HysteresisAdjustmentYield float64 `json:"hysteresisAdjustmentOnAnnualEnergyYield_MWh_per_year"`
	LargeWindFarmCorrectYield float64 `json:"largeWindFarmCorrectionOnAnnualEnergyYield_MWh_per_year"`
	NeighboursWakesOnYield    float64 `json:"neighborsWakesOnAnnualEnergyYield_MWh_per_year"`
}

// YieldField selects one yield column of WindFarmAepOutput.
type YieldField int

const (
	GrossYield YieldField = iota
	FullYield
	WakesOnYield
	BlockageOnYield
	HysteresisAdjustmentYield
	LargeWindFarmCorrectionYield
	NeighboursWakesOnYield
)

func (f YieldField) String() string {
	switch f {
	case GrossYield:
		return "gross"
	case FullYield:
		return "full"
	case WakesOnYield:
		return "wakesOn"
	case BlockageOnYield:
		return "blockageOn"
	case HysteresisAdjustmentYield:
		return "hysteresisAdjustmentOn"
	case LargeWindFarmCorrectionYield:
		return "lwfCorrectionOn"
	case NeighboursWakesOnYield:
		return "neighboursWakesOn"
	default:
		return "unknown"
	}
}

func (o WindFarmAepOutput) Yield(f YieldField) float64 {
	switch f {
	case GrossYield:
		return o.GrossYield
	case FullYield:
		return o.FullYield
	case WakesOnYield:
		return o.WakesOnYield
	case BlockageOnYield:
		return o.BlockageOnYield
	case HysteresisAdjustmentYield:
		return o.HysteresisAdjustmentYield
	case LargeWindFarmCorrectionYield:
		return o.LargeWindFarmCorrectYield
	case NeighboursWakesOnYield:
		return o.NeighboursWakesOnYield
	default:
		return 0
	}
}

// Sum adds up one yield field over every farm in the set.
func (r *AepResultSet) Sum(f YieldField) float64 {
	if r == nil || len(r.WindFarmAepOutputs) == 0 {
		return 0
	}
	values := make([]float64, len(r.WindFarmAepOutputs))
	for i, o := range r.WindFarmAepOutputs {
		values[i] = o.Yield(f)
	}
	return floats.Sum(values)
}

func (r *AepResultSet) FarmNames() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.WindFarmAepOutputs))
	for _, o := range r.WindFarmAepOutputs {
		out = append(out, o.WindFarmName)
	}
	return out
}

// Label joins the farm names the way the summary report indexes a farm set.
func (r *AepResultSet) Label() string {
	return strings.Join(r.FarmNames(), ", ")
}
