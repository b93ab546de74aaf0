package crosssell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeIncentivesReturnsAllAmounts(t *testing.T) {
	m := DefaultModel()

	scenarios := m.AnalyzeIncentives(1000, 200, 300)

	require.Len(t, scenarios, 5)
	expectedAmounts := []float64{50, 100, 150, 200, 250}
	validRecommendations := map[string]bool{
		"EXCELLENT": true, "VERY GOOD": true, "GOOD": true, "FAIR": true, "POOR": true,
	}

	for i, s := range scenarios {
		assert.Equal(t, expectedAmounts[i], s.IncentiveAmount)
		assert.GreaterOrEqual(t, s.LTVCACRatio, 0.0)
		assert.True(t, validRecommendations[s.Recommendation], "unexpected recommendation %q", s.Recommendation)
	}
}

func TestAnalyzeIncentivesEconomics(t *testing.T) {
	m := DefaultModel()

	scenarios := m.AnalyzeIncentives(1000, 100, 200)

	// $100 incentive: base rate 0.08, high 0.12, medium 0.064.
	s := scenarios[1]
	assert.Equal(t, 100.0, s.IncentiveAmount)
	assert.Equal(t, 0.08, s.BaseReferralRate)

	referrals := (100*0.12 + 200*0.064) * 1.4
	assert.InDelta(t, referrals, s.ExpectedReferrals, 1e-9)

	conversions := referrals * 0.35
	assert.InDelta(t, conversions, s.ExpectedConversions, 1e-9)
	assert.InDelta(t, conversions*100, s.TotalCost, 1e-9)

	// Cost is paid per conversion, so CAC equals the incentive amount.
	assert.InDelta(t, 100.0, s.CAC, 1e-9)
	assert.InDelta(t, 82.0, s.LTVCACRatio, 1e-9)
	assert.InDelta(t, (8200*conversions-s.TotalCost)/s.TotalCost, s.ROI, 1e-9)
	assert.Equal(t, "EXCELLENT", s.Recommendation)
}

func TestAnalyzeIncentivesDiminishingReturns(t *testing.T) {
	m := DefaultModel()

	scenarios := m.AnalyzeIncentives(500, 50, 100)

	expectedRates := []float64{0.06, 0.08, 0.09, 0.095, 0.098}
	for i, s := range scenarios {
		assert.Equal(t, expectedRates[i], s.BaseReferralRate)
	}

	// Larger incentives buy more referrals but at a worse LTV:CAC ratio.
	for i := 1; i < len(scenarios); i++ {
		assert.Greater(t, scenarios[i].ExpectedReferrals, scenarios[i-1].ExpectedReferrals)
		assert.Less(t, scenarios[i].LTVCACRatio, scenarios[i-1].LTVCACRatio)
	}
}

func TestAnalyzeIncentivesNoEligibleCustomers(t *testing.T) {
	m := DefaultModel()

	scenarios := m.AnalyzeIncentives(1000, 0, 0)

	require.Len(t, scenarios, 5)
	for _, s := range scenarios {
		assert.Zero(t, s.ExpectedReferrals)
		assert.Zero(t, s.ExpectedConversions)
		assert.Zero(t, s.TotalCost)
		assert.Zero(t, s.CAC, "CAC must be 0 when there are no conversions")
		assert.Zero(t, s.LTVCACRatio)
		assert.Zero(t, s.ROI)
		assert.Equal(t, "POOR", s.Recommendation)
	}
}

func TestAnalyzeIncentivesIsDeterministic(t *testing.T) {
	m := DefaultModel()

	first := m.AnalyzeIncentives(1000, 150, 250)
	second := m.AnalyzeIncentives(1000, 150, 250)

	assert.Equal(t, first, second)
}

func TestBaseRateForUnknownAmountDefaults(t *testing.T) {
	assert.Equal(t, defaultBaseRate, baseRateFor(75))
	assert.Equal(t, 0.095, baseRateFor(200))
}

func TestRecommendationBanding(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected string
	}{
		{ratio: 50, expected: "EXCELLENT"},
		{ratio: 40, expected: "EXCELLENT"},
		{ratio: 39.9, expected: "VERY GOOD"},
		{ratio: 20, expected: "VERY GOOD"},
		{ratio: 10, expected: "GOOD"},
		{ratio: 5, expected: "FAIR"},
		{ratio: 4.9, expected: "POOR"},
		{ratio: 0, expected: "POOR"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, recommendationFor(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestAnalyzeIncentivesWithCustomAssumptions(t *testing.T) {
	a := DefaultAssumptions()
	a.ConversionRate = 0.5
	a.ReferredLTV = 10000
	m := NewModel(a)

	scenarios := m.AnalyzeIncentives(100, 10, 0)

	s := scenarios[0] // $50
	referrals := 10 * 0.06 * 1.5 * 1.4
	assert.InDelta(t, referrals*0.5, s.ExpectedConversions, 1e-9)
	assert.InDelta(t, 10000.0/50.0, s.LTVCACRatio, 1e-9)
}
