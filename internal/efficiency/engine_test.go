package efficiency

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

func ptr(v float64) *float64 { return &v }

func mustContext(t *testing.T, wake model.WakeModel, method model.ApplicationMethod, effs bool) model.CalculationContext {
	t.Helper()
	ctx, err := model.NewContextBuilder().
		WakeModel(wake).
		BlockageModel(model.BlockageCFDML).
		ApplicationMethod(method).
		CalculateEfficiencies(effs).
		Build()
	require.NoError(t, err)
	return ctx
}

// subjectSet splits the yields over two farms to exercise the farm-set sums.
func subjectSet() *model.AepResultSet {
	return &model.AepResultSet{
		WindFarmAepOutputs: []model.WindFarmAepOutput{
			{
				WindFarmName:              "Subject A",
				GrossYield:                600,
				FullYield:                 520,
				WakesOnYield:              500,
				BlockageOnYield:           580,
				HysteresisAdjustmentYield: 545,
				LargeWindFarmCorrectYield: 540,
				NeighboursWakesOnYield:    520,
			},
			{
				WindFarmName:              "Subject B",
				GrossYield:                400,
				FullYield:                 350,
				WakesOnYield:              400,
				BlockageOnYield:           370,
				HysteresisAdjustmentYield: 400,
				LargeWindFarmCorrectYield: 400,
				NeighboursWakesOnYield:    380,
			},
		},
		WeightedBlockageEfficiency: ptr(0.97),
	}
}

func fullSet() *model.AepResultSet {
	return &model.AepResultSet{
		WindFarmAepOutputs: []model.WindFarmAepOutput{
			{
				WindFarmName:              "Subject A",
				GrossYield:                600,
				FullYield:                 500,
				WakesOnYield:              495,
				BlockageOnYield:           575,
				HysteresisAdjustmentYield: 540,
				LargeWindFarmCorrectYield: 535,
				NeighboursWakesOnYield:    500,
			},
			{
				WindFarmName:              "Subject B",
				GrossYield:                400,
				FullYield:                 340,
				WakesOnYield:              395,
				BlockageOnYield:           365,
				HysteresisAdjustmentYield: 395,
				LargeWindFarmCorrectYield: 395,
				NeighboursWakesOnYield:    360,
			},
		},
		WeightedBlockageEfficiency: ptr(0.96),
	}
}

func TestBlockage_OnEnergyPassThrough(t *testing.T) {
	ctx := mustContext(t, model.WakeEddyViscosity, model.OnEnergy, true)
	full := fullSet()
	full.WeightedBlockageEfficiency = ptr(0.97)

	b, err := New(ctx, full, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 0.97, b.TotalBlockage())
	assert.Equal(t, 0.97, b.InternalBlockage())
	assert.True(t, b.BlockageQuantified())
}

func TestBlockage_OnEnergyMissingWeightedValue(t *testing.T) {
	ctx := mustContext(t, model.WakeEddyViscosity, model.OnEnergy, true)
	full := fullSet()
	full.WeightedBlockageEfficiency = nil

	_, err := New(ctx, full, nil, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestBlockage_OnWindSpeedWithoutEfficienciesIsNeutral(t *testing.T) {
	ctx := mustContext(t, model.WakeEddyViscosity, model.OnWindSpeed, false)
	full := fullSet()
	full.WindFarmAepOutputs[0].BlockageOnYield = 1

	b, err := New(ctx, full, subjectSet(), true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.TotalBlockage())
	assert.Equal(t, 1.0, b.InternalBlockage())
	assert.False(t, b.BlockageQuantified())
}

func TestBlockage_OnWindSpeedRatio(t *testing.T) {
	ctx := mustContext(t, model.WakeEddyViscosity, model.OnWindSpeed, true)
	b, err := New(ctx, fullSet(), subjectSet(), true)
	require.NoError(t, err)
	assert.InDelta(t, 940.0/1000.0, b.TotalBlockage(), 1e-12)
	assert.InDelta(t, 950.0/1000.0, b.InternalBlockage(), 1e-12)
}

func TestNew_UnrecognisedApplicationMethod(t *testing.T) {
	_, err := New(model.CalculationContext{}, fullSet(), nil, false)
	require.Error(t, err)
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "application_method", cfgErr.Field)
}

func TestInternalWake_LWFModel(t *testing.T) {
	subject := &model.AepResultSet{
		WindFarmAepOutputs: []model.WindFarmAepOutput{
			{WindFarmName: "A", WakesOnYield: 400, BlockageOnYield: 450, LargeWindFarmCorrectYield: 440, HysteresisAdjustmentYield: 445, GrossYield: 1000},
			{WindFarmName: "B", WakesOnYield: 500, BlockageOnYield: 500, LargeWindFarmCorrectYield: 500, HysteresisAdjustmentYield: 500, GrossYield: 1000},
		},
	}
	ctx := mustContext(t, model.WakeEddyViscosity, model.OnWindSpeed, true)
	b, err := New(ctx, fullSet(), subject, true)
	require.NoError(t, err)

	// sums: wakeOn 900, blockageOn 950, lwf 940, hysteresis 945
	want := (900.0 / 950.0) * (940.0 / 945.0)
	assert.InDelta(t, want, b.InternalWake(), 1e-12)
	assert.InDelta(t, 0.9424, b.InternalWake(), 1e-4)
}

func TestInternalWake_CFDModelHasNoLWFFactor(t *testing.T) {
	ctx := mustContext(t, model.WakeCFDML, model.OnWindSpeed, true)
	b, err := New(ctx, fullSet(), subjectSet(), true)
	require.NoError(t, err)
	assert.InDelta(t, 900.0/950.0, b.InternalWake(), 1e-12)
}

func TestExternalQuantities(t *testing.T) {
	ctx := mustContext(t, model.WakeEddyViscosity, model.OnWindSpeed, true)
	b, err := New(ctx, fullSet(), subjectSet(), true)
	require.NoError(t, err)

	extBlockage := 940.0 / 950.0
	assert.InDelta(t, extBlockage, b.ExternalBlockage(), 1e-12)
	assert.InDelta(t, 860.0/930.0, b.ExternalTurbineInteraction(), 1e-12)
	assert.InDelta(t, 860.0/(930.0*extBlockage), b.ExternalWake(), 1e-12)
	assert.InDelta(t, b.ExternalWake()*b.InternalWake(), b.TotalWake(), 1e-12)
	assert.InDelta(t, 935.0/890.0, b.Hysteresis(), 1e-12)
}

func TestTotalTurbineInteractionIdentity(t *testing.T) {
	cases := []struct {
		name   string
		wake   model.WakeModel
		method model.ApplicationMethod
	}{
		{"eddy viscosity on energy", model.WakeEddyViscosity, model.OnEnergy},
		{"eddy viscosity on wind speed", model.WakeEddyViscosity, model.OnWindSpeed},
		{"cfdml on energy", model.WakeCFDML, model.OnEnergy},
		{"turbopark on wind speed", model.WakeTurbOPark, model.OnWindSpeed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := New(mustContext(t, tc.wake, tc.method, true), fullSet(), subjectSet(), true)
			require.NoError(t, err)
			want := b.InternalBlockage() * b.InternalWake() * b.ExternalTurbineInteraction()
			assert.InDelta(t, want, b.TotalTurbineInteraction(), 1e-15)
			assert.InDelta(t, b.InternalWake()*b.InternalBlockage(), b.InternalTurbineInteraction(), 1e-15)
		})
	}
}

func TestYields(t *testing.T) {
	t.Run("on energy applies weighted blockage to full yield", func(t *testing.T) {
		b, err := New(mustContext(t, model.WakeEddyViscosity, model.OnEnergy, true), fullSet(), subjectSet(), true)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, b.GrossYieldGWh(), 1e-12)
		assert.InDelta(t, 0.84*0.96, b.FullYieldGWh(), 1e-12)
		assert.InDelta(t, 0.84*0.96, b.TotalLosses(), 1e-12)
	})

	t.Run("full above gross gives a ratio above one", func(t *testing.T) {
		full := fullSet()
		full.WindFarmAepOutputs[0].FullYield = 900
		b, err := New(mustContext(t, model.WakeEddyViscosity, model.OnWindSpeed, false), full, nil, false)
		require.NoError(t, err)
		assert.Greater(t, b.FullYieldGWh(), b.GrossYieldGWh())
		assert.Greater(t, b.TotalLosses(), 1.0)
	})
}

func TestCFDWithNeighboursRequiresSubjectSet(t *testing.T) {
	ctx := mustContext(t, model.WakeCFDML, model.OnEnergy, true)
	full := fullSet()
	full.WeightedBlockageEfficiency = nil // would fail later; the subject check must come first

	b, err := New(ctx, full, nil, true)
	assert.Nil(t, b)
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "subject", cfgErr.Field)

	_, err = New(mustContext(t, model.WakeCFDML, model.OnEnergy, true), fullSet(), nil, false)
	assert.NoError(t, err)
}

func TestZeroDenominatorIsNaN(t *testing.T) {
	empty := &model.AepResultSet{WeightedBlockageEfficiency: ptr(1)}
	b, err := New(mustContext(t, model.WakeEddyViscosity, model.OnEnergy, true), empty, nil, false)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(b.InternalWake()))
	assert.True(t, math.IsNaN(b.TotalLosses()))
}

func TestSummary(t *testing.T) {
	t.Run("with efficiencies", func(t *testing.T) {
		b, err := New(mustContext(t, model.WakeEddyViscosity, model.OnEnergy, true), fullSet(), subjectSet(), true)
		require.NoError(t, err)
		s := b.Summary()

		assert.Equal(t, "Subject A, Subject B", s.FarmSet)
		assert.Equal(t, "Subject A, Subject B", s.Title())
		labels := make([]string, len(s.Rows))
		for i, r := range s.Rows {
			labels[i] = r.Label
		}
		assert.Equal(t, []string{
			"Calculation settings",
			"Gross Yield",
			"Total turbine interaction efficiency",
			"Total turbine interaction efficiency - internal farms only",
			"Internal blockage efficiency",
			"Internal wake efficiency",
			"Total turbine interaction efficiency - impact of external farms",
			"External blockage efficiency",
			"External wake efficiency",
			"Alternative breakdown",
			"Total Blockage efficiency",
			"Total wake efficiency",
			"Total modelled losses",
			"Full Yield",
		}, labels)

		v, ok := s.Value("Calculation settings")
		require.True(t, ok)
		assert.Equal(t, "Wakes: EddyViscosity, Blockage: CFDML, Blockage application method: OnEnergy", v)
		v, _ = s.Value("Internal blockage efficiency")
		assert.Equal(t, "97.0", v)
		v, _ = s.Value("Total Blockage efficiency")
		assert.Equal(t, "96.0", v)
		v, _ = s.Value("Full Yield")
		assert.Equal(t, "0.8", v)
	})

	t.Run("without efficiencies", func(t *testing.T) {
		b, err := New(mustContext(t, model.WakeEddyViscosity, model.OnWindSpeed, false), fullSet(), nil, false)
		require.NoError(t, err)
		s := b.Summary()
		require.Len(t, s.Rows, 5)
		v, ok := s.Value("Blockage efficiency")
		require.True(t, ok)
		assert.Equal(t, "n/a (not quantified)", v)
		assert.Equal(t, "", s.Rows[2].Unit)
		v, _ = s.Value("Total modelled losses")
		assert.Equal(t, "84.0", v)
	})
}

func TestFixed(t *testing.T) {
	assert.Equal(t, "93.8", fixed(93.76))
	assert.Equal(t, "0.1", fixed(0.05))
	assert.Equal(t, "n/a", fixed(math.NaN()))
}

func TestWriteSummaryCSV(t *testing.T) {
	withEff, err := New(mustContext(t, model.WakeEddyViscosity, model.OnEnergy, true), fullSet(), subjectSet(), true)
	require.NoError(t, err)
	withoutEff, err := New(mustContext(t, model.WakeTurbOPark, model.OnWindSpeed, false), subjectSet(), nil, false)
	require.NoError(t, err)

	first, second := withEff.Summary(), withoutEff.Summary()
	first.Scenario, second.Scenario = "north", "south"

	var buf bytes.Buffer
	require.NoError(t, writeSummaryCSV(&buf, []Summary{first, second}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"quantity", "unit", "north (Subject A, Subject B)", "south (Subject A, Subject B)"}, records[0])
	// 14 rows from the first summary plus "Blockage efficiency" from the second.
	require.Len(t, records, 16)
	for _, r := range records[1:] {
		switch r[0] {
		case "Internal wake efficiency":
			assert.NotEmpty(t, r[2])
			assert.Empty(t, r[3])
		case "Blockage efficiency":
			assert.Empty(t, r[2])
			assert.Equal(t, "n/a (not quantified)", r[3])
		}
	}
}

func TestWriteEfficienciesCSV(t *testing.T) {
	b, err := New(mustContext(t, model.WakeEddyViscosity, model.OnEnergy, true), fullSet(), subjectSet(), true)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "efficiencies.csv")
	require.NoError(t, WriteEfficienciesCSV(path, []Scenario{{Name: "case-1", Breakdown: b}}))

	var buf bytes.Buffer
	require.NoError(t, writeEfficienciesCSV(&buf, []Scenario{{Name: "case-1", Breakdown: b}}))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "case-1", records[1][0])
	assert.Equal(t, "EddyViscosity", records[1][2])
	assert.Equal(t, "0.970000", records[1][10])
}

func TestEfficiencies_JSONNullsNonFinite(t *testing.T) {
	empty := &model.AepResultSet{WeightedBlockageEfficiency: ptr(0.99)}
	b, err := New(mustContext(t, model.WakeEddyViscosity, model.OnEnergy, true), empty, nil, false)
	require.NoError(t, err)

	raw, err := json.Marshal(b.Efficiencies())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"internal_wake":null`)
	assert.Contains(t, string(raw), `"total_blockage":0.99`)

	var back Efficiencies
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 0.99, back.TotalBlockage)
	assert.True(t, math.IsNaN(back.InternalWake))
}
