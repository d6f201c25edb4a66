package efficiency

import (
	"fmt"
	"math"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

// Efficiencies is the eagerly evaluated loss decomposition of one pair of result sets.
// Ratios are fractions (0.97, not 97). A ratio whose denominator sums to zero is NaN
// and marshals to JSON null.
type Efficiencies struct {
	TotalBlockage              float64
	InternalBlockage           float64
	InternalWake               float64
	InternalTurbineInteraction float64
	ExternalBlockage           float64
	ExternalWake               float64
	ExternalTurbineInteraction float64
	TotalTurbineInteraction    float64
	TotalWake                  float64
	Hysteresis                 float64

	FullYieldGWh  float64
	GrossYieldGWh float64
	TotalLosses   float64

	// BlockageQuantified is false when OnWindSpeed blockage was reported as a neutral 1.0
	// because the calculation did not produce efficiencies.
	BlockageQuantified bool
}

// Breakdown decomposes the yields of a subject+neighbours result set (full) and a
// subject-only result set into wake and blockage efficiencies. It is immutable.
type Breakdown struct {
	ctx     model.CalculationContext
	full    *model.AepResultSet
	subject *model.AepResultSet
	eff     Efficiencies
}

// New validates the inputs and computes every quantity.
//
// subject may be nil, in which case full is used for both sets, except for CFD wake models with
// neighbouring farms present: those cannot separate internal from external effects in one
// calculation and New returns a ConfigurationError.
func New(ctx model.CalculationContext, full, subject *model.AepResultSet, hasNeighbours bool) (*Breakdown, error) {
	if full == nil {
		return nil, model.NewConfigurationError("full", "subject+neighbours result set is required")
	}
	if subject == nil {
		if hasNeighbours && ctx.WakeModel().IsCFD() {
			return nil, model.NewConfigurationError("subject",
				"a subject-only result set is required for a turbine interaction breakdown with the CFDML wake model and neighbouring farms")
		}
		subject = full
	}
	if !ctx.ApplicationMethod().Valid() {
		return nil, model.NewConfigurationError("application_method",
			fmt.Sprintf("blockage correction application method %q not recognised", ctx.ApplicationMethod()))
	}

	b := &Breakdown{ctx: ctx, full: full, subject: subject}
	if err := b.compute(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Breakdown) compute() error {
	totalBlockage, quantified, err := b.blockageEfficiency(b.full, "full")
	if err != nil {
		return err
	}
	internalBlockage, _, err := b.blockageEfficiency(b.subject, "subject")
	if err != nil {
		return err
	}

	e := Efficiencies{
		TotalBlockage:      totalBlockage,
		InternalBlockage:   internalBlockage,
		BlockageQuantified: quantified,
	}

	subj, full := b.subject, b.full

	lwfFactor := 1.0
	if !b.ctx.WakeModel().IsCFD() {
		// The LWF-corrected yield already includes any hysteresis adjustment; factor it out.
		lwfFactor = ratio(subj.Sum(model.LargeWindFarmCorrectionYield), subj.Sum(model.HysteresisAdjustmentYield))
	}
	e.InternalWake = ratio(subj.Sum(model.WakesOnYield), subj.Sum(model.BlockageOnYield)) * lwfFactor
	e.InternalTurbineInteraction = e.InternalWake * e.InternalBlockage

	e.ExternalBlockage = ratio(full.Sum(model.BlockageOnYield), subj.Sum(model.BlockageOnYield))
	neighbours := full.Sum(model.NeighboursWakesOnYield)
	lwf := full.Sum(model.LargeWindFarmCorrectionYield)
	e.ExternalWake = ratio(neighbours, lwf*e.ExternalBlockage)
	e.ExternalTurbineInteraction = ratio(neighbours, lwf)

	e.TotalTurbineInteraction = e.InternalBlockage * e.InternalWake * e.ExternalTurbineInteraction
	e.TotalWake = e.ExternalWake * e.InternalWake
	e.Hysteresis = ratio(full.Sum(model.HysteresisAdjustmentYield), full.Sum(model.WakesOnYield))

	e.GrossYieldGWh = full.Sum(model.GrossYield) / 1e3
	e.FullYieldGWh = full.Sum(model.FullYield) / 1e3
	if b.ctx.ApplicationMethod() == model.OnEnergy {
		// weightedBlockageEfficiency presence was checked by blockageEfficiency(full).
		e.FullYieldGWh *= *full.WeightedBlockageEfficiency
	}
	e.TotalLosses = ratio(e.FullYieldGWh, e.GrossYieldGWh)

	b.eff = e
	return nil
}

// blockageEfficiency applies the blockage rule to one result set. The bool is false when the
// value is the neutral 1.0 used for unquantifiable OnWindSpeed blockage.
func (b *Breakdown) blockageEfficiency(rs *model.AepResultSet, which string) (float64, bool, error) {
	switch b.ctx.ApplicationMethod() {
	case model.OnEnergy:
		if rs.WeightedBlockageEfficiency == nil {
			return 0, false, model.NewConfigurationError(which+".weightedBlockageEfficiency",
				"required when blockage is applied OnEnergy")
		}
		return *rs.WeightedBlockageEfficiency, true, nil
	case model.OnWindSpeed:
		if !b.ctx.CalculateEfficiencies() {
			return 1.0, false, nil
		}
		return ratio(rs.Sum(model.BlockageOnYield), rs.Sum(model.GrossYield)), true, nil
	default:
		return 0, false, model.NewConfigurationError("application_method",
			fmt.Sprintf("blockage correction application method %q not recognised", b.ctx.ApplicationMethod()))
	}
}

func ratio(n, d float64) float64 {
	if d == 0 {
		return math.NaN()
	}
	return n / d
}

func (b *Breakdown) Context() model.CalculationContext { return b.ctx }
func (b *Breakdown) Full() *model.AepResultSet         { return b.full }
func (b *Breakdown) Subject() *model.AepResultSet      { return b.subject }

// Efficiencies returns a copy of every computed quantity.
func (b *Breakdown) Efficiencies() Efficiencies { return b.eff }

func (b *Breakdown) TotalBlockage() float64              { return b.eff.TotalBlockage }
func (b *Breakdown) InternalBlockage() float64           { return b.eff.InternalBlockage }
func (b *Breakdown) InternalWake() float64               { return b.eff.InternalWake }
func (b *Breakdown) InternalTurbineInteraction() float64 { return b.eff.InternalTurbineInteraction }
func (b *Breakdown) ExternalBlockage() float64           { return b.eff.ExternalBlockage }
func (b *Breakdown) ExternalWake() float64               { return b.eff.ExternalWake }
func (b *Breakdown) ExternalTurbineInteraction() float64 { return b.eff.ExternalTurbineInteraction }
func (b *Breakdown) TotalTurbineInteraction() float64    { return b.eff.TotalTurbineInteraction }
func (b *Breakdown) TotalWake() float64                  { return b.eff.TotalWake }
func (b *Breakdown) Hysteresis() float64                 { return b.eff.Hysteresis }

// FullYieldGWh is the summed full yield in GWh/year, blockage-corrected when applied OnEnergy.
func (b *Breakdown) FullYieldGWh() float64  { return b.eff.FullYieldGWh }
func (b *Breakdown) GrossYieldGWh() float64 { return b.eff.GrossYieldGWh }

// TotalLosses is full yield over gross yield. It exceeds 1 if the inputs report full > gross.
func (b *Breakdown) TotalLosses() float64 { return b.eff.TotalLosses }

func (b *Breakdown) BlockageQuantified() bool { return b.eff.BlockageQuantified }
