package atmos

import (
	"errors"
	"fmt"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

var ErrInterpolationInput = errors.New("interpolation input error")

// InterpolationInputError reports missing or unusable preset data. It matches both
// ErrInterpolationInput and model.ErrConfiguration.
type InterpolationInputError struct {
	Class  string
	Reason string
}

func (e *InterpolationInputError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("interpolation input error: %s", e.Reason)
	}
	return fmt.Sprintf("interpolation input error: class %q: %s", e.Class, e.Reason)
}

func (e *InterpolationInputError) Is(target error) bool {
	return target == ErrInterpolationInput || target == model.ErrConfiguration
}
