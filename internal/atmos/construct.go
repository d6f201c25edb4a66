package atmos

import "fmt"

// ClassParameters are the per-class inputs of the CFD.ML atmospheric model at the subject
// farms' average hub and tip heights.
type ClassParameters struct {
	TurbulenceIntensityAtHubHeight float64 `json:"turbulenceIntensityAtHubHeight"`
	TurbulenceIntensityAtTipHeight float64 `json:"turbulenceIntensityAtTipHeight"`
	ShearAtHubHeight               float64 `json:"windSpeedVerticalGradientHubHeight_per_m"`
	ShearAtTipHeight               float64 `json:"windSpeedVerticalGradientTipHeight_per_m"`

	BoundaryLayerHeight       float64 `json:"boundaryLayerHeight_m"`
	LapseRate                 float64 `json:"lapseRate_K_per_100m"`
	DeltaThetaAcrossInversion float64 `json:"deltaThetaAcrossInversionLayer_K"`
	HeightInversionLayer      float64 `json:"heightInversionLayer_m"`
}

type Class struct {
	ID         string          `json:"id"`
	Parameters ClassParameters `json:"parameters"`
}

// Conditions is the atmosphericConditions object of an AEP request.
type Conditions struct {
	Classes      []Class  `json:"atmosphericConditionClasses"`
	Distribution []Sector `json:"atmosphericConditionProbabilityDistribution"`
}

// ClassIDs lists the distinct classes referenced by dist in first-seen order.
func ClassIDs(dist []Sector) []string {
	seen := map[string]bool{}
	var ids []string
	for _, s := range dist {
		for _, id := range s.ClassIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Construct evaluates every class referenced by dist at the given hub and tip heights.
func Construct(dist []Sector, presets Presets, hubHeight, tipHeight float64) (Conditions, error) {
	if len(dist) == 0 {
		return Conditions{}, &InterpolationInputError{Reason: "empty probability distribution"}
	}
	for i, s := range dist {
		if len(s.Probabilities) != len(s.ClassIDs) {
			return Conditions{}, &InterpolationInputError{
				Reason: fmt.Sprintf("sector %d has %d probabilities for %d classes", i, len(s.Probabilities), len(s.ClassIDs)),
			}
		}
	}

	ids := ClassIDs(dist)
	classes := make([]Class, 0, len(ids))
	for _, id := range ids {
		preset, ok := presets[id]
		if !ok {
			return Conditions{}, &InterpolationInputError{Class: id, Reason: "no preset defined"}
		}
		ti, err := NewProfile(preset.Z, preset.TI)
		if err != nil {
			return Conditions{}, &InterpolationInputError{Class: id, Reason: "ti: " + reason(err)}
		}
		dvdz, err := NewProfile(preset.Z, preset.DVDZ)
		if err != nil {
			return Conditions{}, &InterpolationInputError{Class: id, Reason: "dvdz: " + reason(err)}
		}

		classes = append(classes, Class{
			ID: id,
			Parameters: ClassParameters{
				TurbulenceIntensityAtHubHeight: ti.At(hubHeight),
				TurbulenceIntensityAtTipHeight: ti.At(tipHeight),
				ShearAtHubHeight:               dvdz.At(hubHeight),
				ShearAtTipHeight:               dvdz.At(tipHeight),
				BoundaryLayerHeight:            preset.BoundaryLayerHeight,
				LapseRate:                      preset.LapseRate,
				DeltaThetaAcrossInversion:      preset.DeltaThetaAcrossInversion,
				HeightInversionLayer:           preset.HeightInversionLayer,
			},
		})
	}

	out := Conditions{Classes: classes, Distribution: make([]Sector, len(dist))}
	copy(out.Distribution, dist)
	return out, nil
}
