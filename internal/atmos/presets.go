package atmos

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Preset is the sampled profile and inversion-layer description of one atmospheric condition class.
// Preset files may be YAML or JSON; keys match the remote API's parameter names.
type Preset struct {
	Z    []float64 `yaml:"z" json:"z"`
	TI   []float64 `yaml:"ti" json:"ti"`
	DVDZ []float64 `yaml:"dvdz" json:"dvdz"`

	BoundaryLayerHeight       float64 `yaml:"boundaryLayerHeight_m" json:"boundaryLayerHeight_m"`
	LapseRate                 float64 `yaml:"lapseRate_K_per_100m" json:"lapseRate_K_per_100m"`
	DeltaThetaAcrossInversion float64 `yaml:"deltaThetaAcrossInversionLayer_K" json:"deltaThetaAcrossInversionLayer_K"`
	HeightInversionLayer      float64 `yaml:"heightInversionLayer_m" json:"heightInversionLayer_m"`
}

// Presets maps class id to preset.
type Presets map[string]Preset

func (p Presets) IDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func LoadPresets(path string) (Presets, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePresets(b)
}

func ParsePresets(b []byte) (Presets, error) {
	var p Presets
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("failed to parse atmospheric presets: %w", err)
	}
	if len(p) == 0 {
		return nil, &InterpolationInputError{Reason: "no atmospheric presets defined"}
	}
	for id, preset := range p {
		if _, err := NewProfile(preset.Z, preset.TI); err != nil {
			return nil, &InterpolationInputError{Class: id, Reason: "ti: " + reason(err)}
		}
		if _, err := NewProfile(preset.Z, preset.DVDZ); err != nil {
			return nil, &InterpolationInputError{Class: id, Reason: "dvdz: " + reason(err)}
		}
	}
	return p, nil
}

func reason(err error) string {
	var iie *InterpolationInputError
	if errors.As(err, &iie) {
		return iie.Reason
	}
	return err.Error()
}
