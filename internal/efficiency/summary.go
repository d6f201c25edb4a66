package efficiency

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	unitPercent = "%"
	unitGWh     = "GWh/Annum"
	unitText    = ""

	summaryPrecision = 1

	alternativeBreakdownNote = "Total wakes and blockage components, with impacts from all farms considered."
	notQuantified            = "n/a (not quantified)"
)

// Row is one line of a summary report. Value is already formatted.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// Summary is the ordered report for one farm set. Scenario is optional and only
// used to tell apart reports of scenarios that share the same farms.
type Summary struct {
	Scenario string `json:"scenario,omitempty"`
	FarmSet  string `json:"farm_set"`
	Rows     []Row  `json:"rows"`
}

// Title is the column heading of the summary: "scenario (farm set)", or the farm set alone.
func (s Summary) Title() string {
	if s.Scenario == "" {
		return s.FarmSet
	}
	return s.Scenario + " (" + s.FarmSet + ")"
}

// Value returns the formatted value of the first row with the given label.
func (s Summary) Value(label string) (string, bool) {
	for _, r := range s.Rows {
		if r.Label == label {
			return r.Value, true
		}
	}
	return "", false
}

// Summary lays the breakdown out in report order. The decomposition rows are only included
// when the calculation produced efficiencies. Blockage rows of an OnWindSpeed run without
// efficiencies read "n/a (not quantified)" rather than a neutral 100%.
func (b *Breakdown) Summary() Summary {
	e := b.eff
	s := Summary{FarmSet: b.full.Label()}

	text := func(label, v string) { s.Rows = append(s.Rows, Row{Label: label, Value: v, Unit: unitText}) }
	pct := func(label string, v float64) {
		s.Rows = append(s.Rows, Row{Label: label, Value: fixed(v * 100), Unit: unitPercent})
	}
	gwh := func(label string, v float64) {
		s.Rows = append(s.Rows, Row{Label: label, Value: fixed(v), Unit: unitGWh})
	}
	blockage := func(label string, v float64) {
		if !e.BlockageQuantified {
			text(label, notQuantified)
			return
		}
		pct(label, v)
	}

	text("Calculation settings", b.ctx.Describe())
	gwh("Gross Yield", e.GrossYieldGWh)
	if b.ctx.CalculateEfficiencies() {
		pct("Total turbine interaction efficiency", e.TotalTurbineInteraction)
		pct("Total turbine interaction efficiency - internal farms only", e.InternalTurbineInteraction)
		blockage("Internal blockage efficiency", e.InternalBlockage)
		pct("Internal wake efficiency", e.InternalWake)
		pct("Total turbine interaction efficiency - impact of external farms", e.ExternalTurbineInteraction)
		blockage("External blockage efficiency", e.ExternalBlockage)
		pct("External wake efficiency", e.ExternalWake)
		text("Alternative breakdown", alternativeBreakdownNote)
		blockage("Total Blockage efficiency", e.TotalBlockage)
		pct("Total wake efficiency", e.TotalWake)
	} else {
		blockage("Blockage efficiency", e.TotalBlockage)
	}
	pct("Total modelled losses", e.TotalLosses)
	gwh("Full Yield", e.FullYieldGWh)
	return s
}

// fixed rounds half away from zero to one decimal place.
func fixed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(summaryPrecision)
}
