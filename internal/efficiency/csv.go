package efficiency

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
)

// Scenario pairs a breakdown with the name of the input it came from.
type Scenario struct {
	Name      string
	Breakdown *Breakdown
}

// WriteSummaryCSV writes summaries side by side: one row per report line, one column per summary.
// Lines missing from a summary (for example the decomposition rows of a run without
// efficiencies) are left blank.
func WriteSummaryCSV(path string, summaries []Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeSummaryCSV(f, summaries)
}

func writeSummaryCSV(out io.Writer, summaries []Summary) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{"quantity", "unit"}
	for _, s := range summaries {
		header = append(header, s.Title())
	}
	if err := w.Write(header); err != nil {
		return err
	}

	var labels []string
	units := map[string]string{}
	for _, s := range summaries {
		for _, r := range s.Rows {
			if _, seen := units[r.Label]; !seen {
				labels = append(labels, r.Label)
				units[r.Label] = r.Unit
			}
		}
	}

	for _, label := range labels {
		row := []string{label, units[label]}
		for _, s := range summaries {
			v, _ := s.Value(label)
			row = append(row, v)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteEfficienciesCSV writes one row of raw ratios per scenario.
func WriteEfficienciesCSV(path string, scenarios []Scenario) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeEfficienciesCSV(f, scenarios)
}

func writeEfficienciesCSV(out io.Writer, scenarios []Scenario) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{
		"scenario",
		"farm_set",
		"wake_model",
		"blockage_model",
		"application_method",
		"gross_yield_gwh",
		"full_yield_gwh",
		"total_losses",
		"total_turbine_interaction",
		"internal_turbine_interaction",
		"internal_blockage",
		"internal_wake",
		"external_turbine_interaction",
		"external_blockage",
		"external_wake",
		"total_blockage",
		"total_wake",
		"hysteresis",
		"blockage_quantified",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, s := range scenarios {
		b := s.Breakdown
		e := b.Efficiencies()
		ctx := b.Context()
		row := []string{
			s.Name,
			b.Full().Label(),
			string(ctx.WakeModel()),
			string(ctx.BlockageModel()),
			string(ctx.ApplicationMethod()),
			fmtFloat(e.GrossYieldGWh),
			fmtFloat(e.FullYieldGWh),
			fmtFloat(e.TotalLosses),
			fmtFloat(e.TotalTurbineInteraction),
			fmtFloat(e.InternalTurbineInteraction),
			fmtFloat(e.InternalBlockage),
			fmtFloat(e.InternalWake),
			fmtFloat(e.ExternalTurbineInteraction),
			fmtFloat(e.ExternalBlockage),
			fmtFloat(e.ExternalWake),
			fmtFloat(e.TotalBlockage),
			fmtFloat(e.TotalWake),
			fmtFloat(e.Hysteresis),
			strconv.FormatBool(e.BlockageQuantified),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}
