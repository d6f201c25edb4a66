package request

import (
	"fmt"

	"github.com/dnv-opensource/WindFarmer-automation/internal/atmos"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

const (
	DefaultCFDMLVersion = "2.6.0"
	DefaultGNNType      = "Offshore"

	flowMatrixSettings   = "turbineFlowAndPerformanceMatrixOutputSettings"
	localWindSpeedOutput = "localTurbineWindSpeedsOutputSettings"
)

// ModelSelection chooses the wake and blockage models of a calculation.
type ModelSelection struct {
	Wake                  model.WakeModel
	Blockage              model.BlockageModel
	Method                model.ApplicationMethod
	CalculateEfficiencies bool
	// DirectionSectors sets numberOfDirectionSectorsForWakeCalculation when positive.
	DirectionSectors int
	CFDMLVersion     string
	GNNType          string
}

func (s ModelSelection) withDefaults() ModelSelection {
	if s.CFDMLVersion == "" {
		s.CFDMLVersion = DefaultCFDMLVersion
	}
	if s.GNNType == "" {
		s.GNNType = DefaultGNNType
	}
	if s.Method == "" {
		s.Method = model.OnWindSpeed
	}
	return s
}

// Default offshore large-wind-farm correction parameters.
func lwfParameters() map[string]any {
	return map[string]any{
		"baseRoughnessZ01":              0.0004,
		"increasedRoughnessZ02":         0.0192,
		"geometricWidthDiameters":       1.0,
		"recoveryStartDiameters":        120.0,
		"fiftyPercentRecoveryDiameters": 40.0,
	}
}

type modelPreset struct {
	key      string
	settings map[string]any
}

func wakePreset(w model.WakeModel, s ModelSelection) (modelPreset, bool) {
	switch w {
	case model.WakeEddyViscosity:
		return modelPreset{"eddyViscosity", map[string]any{
			"useLargeWindFarmModel":             true,
			"largeWindFarmCorrectionParameters": lwfParameters(),
		}}, true
	case model.WakeModifiedPark:
		return modelPreset{"modifiedPark", map[string]any{
			"useLargeWindFarmModel":             true,
			"largeWindFarmCorrectionParameters": lwfParameters(),
		}}, true
	case model.WakeTurbOPark:
		return modelPreset{"turbOPark", map[string]any{"wakeExpansion": 0.04}}, true
	case model.WakeCFDML:
		return modelPreset{"cfdml", map[string]any{
			"gnnType":            s.GNNType,
			"gnnVersion":         s.CFDMLVersion,
			"extrapolationModel": string(cfdmlExtrapolationModel),
		}}, true
	}
	return modelPreset{}, false
}

// CFD.ML extrapolates beyond its trained range with this model, whose settings must be sent too.
const cfdmlExtrapolationModel = model.WakeEddyViscosity

func blockagePreset(b model.BlockageModel, s ModelSelection) (modelPreset, bool) {
	switch b {
	case model.BlockageBEET:
		return modelPreset{"beet", map[string]any{
			"significantAtmosphericStability":        false,
			"inclusionOfNeighborsBufferZoneInMeters": 1000.0,
			"blockageCorrectionApplicationMethod":    string(s.Method),
		}}, true
	case model.BlockageCFDML:
		return modelPreset{"cfdml", map[string]any{
			"cfdmlSettings": map[string]any{
				"gnnType":    s.GNNType,
				"gnnVersion": s.CFDMLVersion,
			},
			"blockageCorrectionApplicationMethod": string(s.Method),
			"cfdmlBlockageWindSpeedDependency":    "FromBlockageExtrapolationCurve",
		}}, true
	}
	return modelPreset{}, false
}

// WithModelSettings applies the wake and blockage presets and the efficiency flags.
func (r *Request) WithModelSettings(sel ModelSelection) (*Request, error) {
	sel = sel.withDefaults()
	wake, ok := wakePreset(sel.Wake, sel)
	if !ok {
		return nil, model.NewConfigurationError("wake_model", fmt.Sprintf("no preset for wake model %q", sel.Wake))
	}
	blockage, ok := blockagePreset(sel.Blockage, sel)
	if !ok {
		return nil, model.NewConfigurationError("blockage_model", fmt.Sprintf("no preset for blockage model %q", sel.Blockage))
	}
	if !sel.Method.Valid() {
		return nil, model.NewConfigurationError("application_method", fmt.Sprintf("blockage correction application method %q not recognised", sel.Method))
	}

	c := r.Clone()
	ees := c.object("energyEfficienciesSettings")
	ees["calculateEfficiencies"] = sel.CalculateEfficiencies
	ees["includeHysteresisEffect"] = false
	ees["includeTurbineManagement"] = false
	ees["calculateIdealYield"] = false
	if sel.DirectionSectors > 0 {
		ees["numberOfDirectionSectorsForWakeCalculation"] = sel.DirectionSectors
	}

	wm := c.object("energyEfficienciesSettings", "wakeModel")
	wm["wakeModelType"] = string(sel.Wake)
	wm[wake.key] = wake.settings
	if sel.Wake == model.WakeCFDML {
		extra, _ := wakePreset(cfdmlExtrapolationModel, sel)
		wm[extra.key] = extra.settings
	}

	bm := c.object("energyEfficienciesSettings", "blockageModel")
	bm["blockageModelType"] = string(sel.Blockage)
	bm[blockage.key] = blockage.settings
	return c, nil
}

// BlockageOnly switches off wakes and every optional output so only blockage is computed.
func (r *Request) BlockageOnly() *Request {
	c := r.WithoutFlowMatrixExport()
	ees := c.object("energyEfficienciesSettings")
	wm := c.object("energyEfficienciesSettings", "wakeModel")
	wm["wakeModelType"] = string(model.WakeNone)
	c.object("energyEfficienciesSettings", "wakeModel", "noWakeModel")["useLargeWindFarmModel"] = false
	ees["calculateEfficiencies"] = false
	ees["includeHysteresisEffect"] = false
	ees["includeTurbineManagement"] = false
	ees["calculateIdealYield"] = false
	return c
}

// WithoutFlowMatrixExport disables every per-turbine flow matrix output to keep responses small.
func (r *Request) WithoutFlowMatrixExport() *Request {
	c := r.Clone()
	fpm := c.object("energyEfficienciesSettings", flowMatrixSettings)
	for k := range fpm {
		if k == localWindSpeedOutput {
			fpm[k] = nil
		} else {
			fpm[k] = false
		}
	}
	return c
}

// WithWindSpeedExport enables the ambient and waked wind speed outputs of the flow matrix.
func (r *Request) WithWindSpeedExport() *Request {
	c := r.Clone()
	fpm := c.object("energyEfficienciesSettings", flowMatrixSettings)
	fpm["outputAmbientWindSpeed"] = true
	fpm["outputWakedWindSpeed"] = true
	return c
}

// WithAtmosphericConditions sets the top-level atmosphericConditions member.
func (r *Request) WithAtmosphericConditions(cond atmos.Conditions) *Request {
	c := r.Clone()
	classes := make([]any, 0, len(cond.Classes))
	for _, cl := range cond.Classes {
		p := cl.Parameters
		classes = append(classes, map[string]any{
			"id": cl.ID,
			"parameters": map[string]any{
				"turbulenceIntensityAtHubHeight":           p.TurbulenceIntensityAtHubHeight,
				"turbulenceIntensityAtTipHeight":           p.TurbulenceIntensityAtTipHeight,
				"windSpeedVerticalGradientHubHeight_per_m": p.ShearAtHubHeight,
				"windSpeedVerticalGradientTipHeight_per_m": p.ShearAtTipHeight,
				"boundaryLayerHeight_m":                    p.BoundaryLayerHeight,
				"lapseRate_K_per_100m":                     p.LapseRate,
				"deltaThetaAcrossInversionLayer_K":         p.DeltaThetaAcrossInversion,
				"heightInversionLayer_m":                   p.HeightInversionLayer,
			},
		})
	}
	sectors := make([]any, 0, len(cond.Distribution))
	for _, s := range cond.Distribution {
		probs := make([]any, len(s.Probabilities))
		for i, p := range s.Probabilities {
			probs[i] = p
		}
		ids := make([]any, len(s.ClassIDs))
		for i, id := range s.ClassIDs {
			ids[i] = id
		}
		sectors = append(sectors, map[string]any{
			"fromDirection_degrees":        s.From,
			"toDirection_degrees":          s.To,
			"probabilityForClasses":        probs,
			"atmosphericConditionClassIds": ids,
		})
	}
	c.doc["atmosphericConditions"] = map[string]any{
		"atmosphericConditionClasses":                 classes,
		"atmosphericConditionProbabilityDistribution": sectors,
	}
	return c
}

// AtmosphericConditions builds and attaches conditions for the subject farms' mean hub and tip heights.
func (r *Request) AtmosphericConditions(src atmos.DistributionSource, presets atmos.Presets) (*Request, error) {
	hub, tip, err := r.SubjectHeights()
	if err != nil {
		return nil, err
	}
	dist, err := atmos.BuildDistribution(src)
	if err != nil {
		return nil, err
	}
	cond, err := atmos.Construct(dist, presets, hub, tip)
	if err != nil {
		return nil, err
	}
	return r.WithAtmosphericConditions(cond), nil
}

// Variant is a named request derived from a base scenario.
type Variant struct {
	Name    string
	Request *Request
}

// BlockageVariants prepares blockage-only runs comparing BEET under unstable/neutral and under
// significantly stable conditions with CFD.ML blockage.
func (r *Request) BlockageVariants(method model.ApplicationMethod, gnnType string) ([]Variant, error) {
	if !method.Valid() {
		return nil, model.NewConfigurationError("application_method", fmt.Sprintf("blockage correction application method %q not recognised", method))
	}
	base := r.BlockageOnly()

	variant := func(name string, b model.BlockageModel, stable bool) (Variant, error) {
		v, err := base.WithModelSettings(ModelSelection{
			Wake: model.WakeEddyViscosity, Blockage: b, Method: method, GNNType: gnnType,
		})
		if err != nil {
			return Variant{}, err
		}
		// WithModelSettings resets the wake model; restore the blockage-only settings.
		v = v.BlockageOnly()
		if b == model.BlockageBEET {
			v.object("energyEfficienciesSettings", "blockageModel", "beet")["significantAtmosphericStability"] = stable
		}
		return Variant{Name: name, Request: v}, nil
	}

	var out []Variant
	for _, spec := range []struct {
		name   string
		model  model.BlockageModel
		stable bool
	}{
		{"BEET-unstable-neutral", model.BlockageBEET, false},
		{"BEET-stable", model.BlockageBEET, true},
		{"CFD.ML", model.BlockageCFDML, false},
	} {
		v, err := variant(spec.name, spec.model, spec.stable)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// TurbineRemovalVariants removes each of the first n turbines of the first farm in turn.
func (r *Request) TurbineRemovalVariants(n int) ([]Variant, error) {
	farms := r.WindFarms()
	if len(farms) == 0 {
		return nil, model.NewConfigurationError("windFarms", "no wind farms")
	}
	if n > farms[0].Turbines {
		n = farms[0].Turbines
	}
	out := make([]Variant, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.WithoutTurbine(0, i)
		if err != nil {
			return nil, err
		}
		out = append(out, Variant{Name: fmt.Sprintf("without-turbine-%d", i), Request: v})
	}
	return out, nil
}
