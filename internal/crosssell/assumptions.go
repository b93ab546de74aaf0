package crosssell

// Assumptions carries the program-level constants every calculation depends
// on. They are passed explicitly instead of living as package globals so
// tests and what-if analyses can override them.
type Assumptions struct {
	AvgReferralsPerReferrer float64 `json:"avg_referrals_per_referrer"`
	ConversionRate          float64 `json:"conversion_rate"`
	ReferredLTV             float64 `json:"referred_ltv"`
	PaidCAC                 float64 `json:"paid_cac"`
	PaidLTV                 float64 `json:"paid_ltv"`
}

// DefaultAssumptions returns the benchmark constants used in production.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		AvgReferralsPerReferrer: 1.4,
		ConversionRate:          0.35,
		ReferredLTV:             8200,
		PaidCAC:                 700,
		PaidLTV:                 7000,
	}
}

// Model bundles the four cross-sell calculations around a set of assumptions.
// All methods are pure: same input, same output, no shared state.
type Model struct {
	assumptions Assumptions
}

// NewModel creates a model with custom assumptions.
func NewModel(a Assumptions) *Model {
	return &Model{assumptions: a}
}

// DefaultModel creates a model with the production assumptions.
func DefaultModel() *Model {
	return NewModel(DefaultAssumptions())
}

// Assumptions returns the constants the model was built with.
func (m *Model) Assumptions() Assumptions {
	return m.assumptions
}
