package model

import "fmt"

type WakeModel string

const (
	WakeEddyViscosity WakeModel = "EddyViscosity"
	WakeModifiedPark  WakeModel = "ModifiedPark"
	WakeTurbOPark     WakeModel = "TurbOPark"
	WakeCFDML         WakeModel = "CFDML"
	WakeNone          WakeModel = "NoWakeModel"
)

func (w WakeModel) Valid() bool {
	switch w {
	case WakeEddyViscosity, WakeModifiedPark, WakeTurbOPark, WakeCFDML, WakeNone:
		return true
	}
	return false
}

// IsCFD reports whether the wake model has no separable large-wind-farm-correction term.
func (w WakeModel) IsCFD() bool { return w == WakeCFDML }

type BlockageModel string

const (
	BlockageBEET  BlockageModel = "BEET"
	BlockageCFDML BlockageModel = "CFDML"
)

func (b BlockageModel) Valid() bool {
	return b == BlockageBEET || b == BlockageCFDML
}

// ApplicationMethod is how the blockage correction is applied by the remote calculation.
type ApplicationMethod string

const (
	OnEnergy    ApplicationMethod = "OnEnergy"
	OnWindSpeed ApplicationMethod = "OnWindSpeed"
)

func (m ApplicationMethod) Valid() bool {
	return m == OnEnergy || m == OnWindSpeed
}

// CalculationContext describes how an AepResultSet was produced.
// Build it with NewContextBuilder; the zero value is not valid.
type CalculationContext struct {
	wakeModel             WakeModel
	blockageModel         BlockageModel
	applicationMethod     ApplicationMethod
	calculateEfficiencies bool
}

func (c CalculationContext) WakeModel() WakeModel                 { return c.wakeModel }
func (c CalculationContext) BlockageModel() BlockageModel         { return c.blockageModel }
func (c CalculationContext) ApplicationMethod() ApplicationMethod { return c.applicationMethod }
func (c CalculationContext) CalculateEfficiencies() bool          { return c.calculateEfficiencies }

// Describe renders the calculation settings line used in summaries.
func (c CalculationContext) Describe() string {
	return fmt.Sprintf("Wakes: %s, Blockage: %s, Blockage application method: %s",
		c.wakeModel, c.blockageModel, c.applicationMethod)
}

// ContextSpec is the serialisable form of a CalculationContext (API bodies, stored runs).
type ContextSpec struct {
	WakeModel             WakeModel         `json:"wake_model" yaml:"wake_model"`
	BlockageModel         BlockageModel     `json:"blockage_model" yaml:"blockage_model"`
	ApplicationMethod     ApplicationMethod `json:"application_method" yaml:"application_method"`
	CalculateEfficiencies bool              `json:"calculate_efficiencies" yaml:"calculate_efficiencies"`
}

func (c CalculationContext) Spec() ContextSpec {
	return ContextSpec{
		WakeModel:             c.wakeModel,
		BlockageModel:         c.blockageModel,
		ApplicationMethod:     c.applicationMethod,
		CalculateEfficiencies: c.calculateEfficiencies,
	}
}

// Context validates the spec and returns the immutable context.
func (s ContextSpec) Context() (CalculationContext, error) {
	return NewContextBuilder().
		WakeModel(s.WakeModel).
		BlockageModel(s.BlockageModel).
		ApplicationMethod(s.ApplicationMethod).
		CalculateEfficiencies(s.CalculateEfficiencies).
		Build()
}

type ContextBuilder struct {
	ctx CalculationContext
}

func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{}
}

func (b *ContextBuilder) WakeModel(w WakeModel) *ContextBuilder {
	b.ctx.wakeModel = w
	return b
}

func (b *ContextBuilder) BlockageModel(m BlockageModel) *ContextBuilder {
	b.ctx.blockageModel = m
	return b
}

func (b *ContextBuilder) ApplicationMethod(m ApplicationMethod) *ContextBuilder {
	b.ctx.applicationMethod = m
	return b
}

func (b *ContextBuilder) CalculateEfficiencies(v bool) *ContextBuilder {
	b.ctx.calculateEfficiencies = v
	return b
}

// Build validates the collected settings. The builder can be reused afterwards;
// the returned value is a copy.
func (b *ContextBuilder) Build() (CalculationContext, error) {
	c := b.ctx
	if !c.wakeModel.Valid() {
		return CalculationContext{}, NewConfigurationError("wake_model", fmt.Sprintf("unrecognised wake model %q", c.wakeModel))
	}
	if !c.blockageModel.Valid() {
		return CalculationContext{}, NewConfigurationError("blockage_model", fmt.Sprintf("unrecognised blockage model %q", c.blockageModel))
	}
	if !c.applicationMethod.Valid() {
		return CalculationContext{}, NewConfigurationError("application_method", fmt.Sprintf("blockage correction application method %q not recognised", c.applicationMethod))
	}
	return c, nil
}
