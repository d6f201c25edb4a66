package atmos

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Profile is a vertical profile sampled at increasing heights. At interpolates linearly between
// samples and holds the boundary value outside the sampled range.
type Profile struct {
	heights []float64
	values  []float64
	fit     *interp.PiecewiseLinear
}

// NewProfile copies and sorts the samples by height. Duplicate heights are rejected.
func NewProfile(heights, values []float64) (Profile, error) {
	if len(heights) == 0 {
		return Profile{}, &InterpolationInputError{Reason: "profile has no samples"}
	}
	if len(heights) != len(values) {
		return Profile{}, &InterpolationInputError{
			Reason: fmt.Sprintf("profile has %d heights but %d values", len(heights), len(values)),
		}
	}

	idx := make([]int, len(heights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return heights[idx[a]] < heights[idx[b]] })

	p := Profile{heights: make([]float64, len(idx)), values: make([]float64, len(idx))}
	for i, j := range idx {
		p.heights[i] = heights[j]
		p.values[i] = values[j]
		if i > 0 && p.heights[i] == p.heights[i-1] {
			return Profile{}, &InterpolationInputError{Reason: fmt.Sprintf("duplicate profile height %g", p.heights[i])}
		}
	}

	if len(p.heights) > 1 {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(p.heights, p.values); err != nil {
			return Profile{}, &InterpolationInputError{Reason: err.Error()}
		}
		p.fit = &pl
	}
	return p, nil
}

// At returns the profile value at height z.
func (p Profile) At(z float64) float64 {
	switch {
	case len(p.values) == 0:
		return 0
	case p.fit == nil:
		return p.values[0]
	}
	return p.fit.Predict(z)
}

// InterpolateAt is a one-shot convenience over NewProfile and At.
func InterpolateAt(z float64, heights, values []float64) (float64, error) {
	p, err := NewProfile(heights, values)
	if err != nil {
		return 0, err
	}
	return p.At(z), nil
}
