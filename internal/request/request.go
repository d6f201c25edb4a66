package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

// Request is an AEP API input document. Only the parts this tool edits are interpreted; every
// other member is carried through unchanged. Mutators return a modified copy.
type Request struct {
	doc map[string]any
}

func Parse(b []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse AEP request: %w", err)
	}
	if doc == nil {
		return nil, model.NewConfigurationError("request", "AEP request must be a JSON object")
	}
	return &Request{doc: doc}, nil
}

func Load(path string) (*Request, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Request) Save(path string) error {
	b, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (r *Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.doc)
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	return &Request{doc: deepCopy(r.doc).(map[string]any)}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = deepCopy(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = deepCopy(e)
		}
		return s
	default:
		return v
	}
}

// WindFarm is a read-only view of one entry of windFarms.
type WindFarm struct {
	Name       string
	IsNeighbor bool
	Turbines   int
}

func (r *Request) farms() []map[string]any {
	raw, _ := r.doc["windFarms"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, f := range raw {
		if m, ok := f.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *Request) WindFarms() []WindFarm {
	farms := r.farms()
	out := make([]WindFarm, 0, len(farms))
	for _, f := range farms {
		name, _ := f["name"].(string)
		neighbour, _ := f["isNeighbor"].(bool)
		turbines, _ := f["turbines"].([]any)
		out = append(out, WindFarm{Name: name, IsNeighbor: neighbour, Turbines: len(turbines)})
	}
	return out
}

func (r *Request) HasNeighbours() bool {
	for _, f := range r.WindFarms() {
		if f.IsNeighbor {
			return true
		}
	}
	return false
}

// TurbineCount counts the turbines of every farm, neighbours included.
func (r *Request) TurbineCount() int {
	n := 0
	for _, f := range r.WindFarms() {
		n += f.Turbines
	}
	return n
}

// SubjectOnly drops neighbouring farms. A request without neighbours is returned as is.
func (r *Request) SubjectOnly() *Request {
	if !r.HasNeighbours() {
		return r
	}
	c := r.Clone()
	var kept []any
	for _, f := range c.farms() {
		if neighbour, _ := f["isNeighbor"].(bool); !neighbour {
			kept = append(kept, f)
		}
	}
	if kept == nil {
		kept = []any{}
	}
	c.doc["windFarms"] = kept
	return c
}

// WithoutTurbine removes one turbine from one farm.
func (r *Request) WithoutTurbine(farm, turbine int) (*Request, error) {
	c := r.Clone()
	farms := c.farms()
	if farm < 0 || farm >= len(farms) {
		return nil, model.NewConfigurationError("windFarms", fmt.Sprintf("farm index %d out of range", farm))
	}
	turbines, _ := farms[farm]["turbines"].([]any)
	if turbine < 0 || turbine >= len(turbines) {
		return nil, model.NewConfigurationError("turbines", fmt.Sprintf("turbine index %d out of range", turbine))
	}
	kept := make([]any, 0, len(turbines)-1)
	kept = append(kept, turbines[:turbine]...)
	kept = append(kept, turbines[turbine+1:]...)
	farms[farm]["turbines"] = kept
	return c, nil
}

// SubjectHeights returns the mean hub height and mean tip height (hub + rotor radius) over every
// turbine of the non-neighbour farms.
func (r *Request) SubjectHeights() (hub, tip float64, err error) {
	type heights struct{ hub, tip float64 }
	byModel := map[string]heights{}
	models, _ := r.doc["turbineModels"].([]any)
	for _, m := range models {
		tm, ok := m.(map[string]any)
		if !ok {
			continue
		}
		h, okH := number(tm["hubHeight_m"])
		d, okD := number(tm["rotorDiameter_m"])
		if !okH || !okD {
			return 0, 0, model.NewConfigurationError("turbineModels", fmt.Sprintf("model %v lacks hubHeight_m or rotorDiameter_m", tm["id"]))
		}
		byModel[key(tm["id"])] = heights{hub: h, tip: h + d/2}
	}

	var hubs, tips []float64
	for _, f := range r.farms() {
		if neighbour, _ := f["isNeighbor"].(bool); neighbour {
			continue
		}
		turbines, _ := f["turbines"].([]any)
		for _, t := range turbines {
			tm, _ := t.(map[string]any)
			h, ok := byModel[key(tm["turbineModelId"])]
			if !ok {
				return 0, 0, model.NewConfigurationError("turbines", fmt.Sprintf("unknown turbineModelId %v", tm["turbineModelId"]))
			}
			hubs = append(hubs, h.hub)
			tips = append(tips, h.tip)
		}
	}
	if len(hubs) == 0 {
		return 0, 0, model.NewConfigurationError("windFarms", "no subject turbines")
	}
	return stat.Mean(hubs, nil), stat.Mean(tips, nil), nil
}

// Context derives the calculation context from energyEfficienciesSettings.
func (r *Request) Context() (model.CalculationContext, error) {
	ees, _ := r.doc["energyEfficienciesSettings"].(map[string]any)
	if ees == nil {
		return model.CalculationContext{}, model.NewConfigurationError("energyEfficienciesSettings", "missing")
	}
	wake, _ := ees["wakeModel"].(map[string]any)
	blockage, _ := ees["blockageModel"].(map[string]any)
	wakeType, _ := wake["wakeModelType"].(string)
	blockageType, _ := blockage["blockageModelType"].(string)
	settings, _ := blockage[strings.ToLower(blockageType)].(map[string]any)
	method, _ := settings["blockageCorrectionApplicationMethod"].(string)
	effs, _ := ees["calculateEfficiencies"].(bool)

	return model.NewContextBuilder().
		WakeModel(model.WakeModel(wakeType)).
		BlockageModel(model.BlockageModel(blockageType)).
		ApplicationMethod(model.ApplicationMethod(method)).
		CalculateEfficiencies(effs).
		Build()
}

// object walks path from the document root, creating missing objects.
func (r *Request) object(path ...string) map[string]any {
	cur := r.doc
	for _, k := range path {
		next, ok := cur[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[k] = next
		}
		cur = next
	}
	return cur
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func key(v any) string {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return fmt.Sprint(v)
}
