package atmos

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// StableWeight is one direction bin of a stable-weight table.
type StableWeight struct {
	BinCentre float64
	Weight    float64
	From      float64
	To        float64
}

// Sector is one entry of atmosphericConditionProbabilityDistribution.
type Sector struct {
	From          float64   `json:"fromDirection_degrees"`
	To            float64   `json:"toDirection_degrees"`
	Probabilities []float64 `json:"probabilityForClasses"`
	ClassIDs      []string  `json:"atmosphericConditionClassIds"`
}

// ReadStableWeights parses a tab-separated table with a header row and columns
// bin_centre, stable_weight. Bins are assumed to be equally spaced over 360 degrees.
func ReadStableWeights(r io.Reader) ([]StableWeight, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read stable weights: %w", err)
	}
	if len(records) < 2 {
		return nil, &InterpolationInputError{Reason: "stable weights table has no rows"}
	}

	rows := records[1:]
	width := 360.0 / float64(len(rows))
	out := make([]StableWeight, 0, len(rows))
	for i, rec := range rows {
		if len(rec) < 2 {
			return nil, &InterpolationInputError{Reason: fmt.Sprintf("row %d: expected 2 columns, got %d", i+2, len(rec))}
		}
		centre, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, &InterpolationInputError{Reason: fmt.Sprintf("row %d: bin centre: %v", i+2, err)}
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, &InterpolationInputError{Reason: fmt.Sprintf("row %d: stable weight: %v", i+2, err)}
		}
		out = append(out, StableWeight{
			BinCentre: centre,
			Weight:    w,
			From:      wrapDegrees(centre - width/2),
			To:        wrapDegrees(centre + width/2),
		})
	}
	return out, nil
}

func ReadStableWeightsFile(path string) ([]StableWeight, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStableWeights(f)
}

// wrapDegrees maps any angle into [0, 360).
func wrapDegrees(d float64) float64 {
	m := math.Mod(d, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// ProbabilityDistribution gives every bin the mixture [w, 1-w] of the stable and unstable classes.
func ProbabilityDistribution(weights []StableWeight, stableClass, unstableClass string) []Sector {
	out := make([]Sector, 0, len(weights))
	for _, w := range weights {
		out = append(out, Sector{
			From:          w.From,
			To:            w.To,
			Probabilities: []float64{w.Weight, 1 - w.Weight},
			ClassIDs:      []string{stableClass, unstableClass},
		})
	}
	return out
}

// SinglePreset is a distribution with one class in every direction.
func SinglePreset(class string) []Sector {
	return []Sector{{
		From:          0,
		To:            360,
		Probabilities: []float64{1.0},
		ClassIDs:      []string{class},
	}}
}

// DistributionSource selects how a probability distribution is built.
// SinglePreset wins when set; otherwise a stable-weight table is required.
type DistributionSource struct {
	SinglePreset  string
	Weights       []StableWeight
	WeightsPath   string
	StableClass   string
	UnstableClass string
}

func BuildDistribution(src DistributionSource) ([]Sector, error) {
	if src.SinglePreset != "" {
		return SinglePreset(src.SinglePreset), nil
	}

	weights := src.Weights
	if weights == nil && src.WeightsPath != "" {
		w, err := ReadStableWeightsFile(src.WeightsPath)
		if err != nil {
			var iie *InterpolationInputError
			if errors.As(err, &iie) {
				return nil, err
			}
			return nil, &InterpolationInputError{Reason: fmt.Sprintf("stable weights file: %v", err)}
		}
		weights = w
	}
	if len(weights) == 0 {
		return nil, &InterpolationInputError{
			Reason: "multiple atmospheric condition classes requested but no stable weights source available",
		}
	}
	if src.StableClass == "" || src.UnstableClass == "" {
		return nil, &InterpolationInputError{Reason: "stable and unstable class ids are required"}
	}
	return ProbabilityDistribution(weights, src.StableClass, src.UnstableClass), nil
}
