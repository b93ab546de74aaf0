package crosssell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectGrowthShape(t *testing.T) {
	m := DefaultModel()

	projection := m.ProjectGrowth(1000, 0.1, 12)

	require.Len(t, projection.Months, 12)
	for i, month := range projection.Months {
		assert.Equal(t, i+1, month.Month, "month indices must be 1-based and contiguous")
	}

	// Totals are monotonically non-decreasing with no churn modeled.
	previous := 0.0
	for _, month := range projection.Months {
		assert.GreaterOrEqual(t, month.TotalCustomers, previous)
		previous = month.TotalCustomers
	}
}

func TestProjectGrowthKFactor(t *testing.T) {
	m := DefaultModel()

	projection := m.ProjectGrowth(1000, 0.1, 12)

	// k = 0.1 * 1.4 * 0.35
	assert.InDelta(t, 0.049, projection.KFactor, 1e-9)
	assert.Equal(t, "minimal", projection.Interpretation)
}

func TestProjectGrowthCompounding(t *testing.T) {
	m := DefaultModel()

	projection := m.ProjectGrowth(1000, 0.5, 3)
	k := 0.5 * 1.4 * 0.35 // 0.245

	first := projection.Months[0]
	assert.InDelta(t, 1000*k, first.NewFromReferrals, 1e-9)
	assert.InDelta(t, 1000*(1+k), first.TotalCustomers, 1e-9)
	assert.InDelta(t, k*100, first.GrowthRate, 1e-9)

	second := projection.Months[1]
	assert.InDelta(t, first.TotalCustomers*k, second.NewFromReferrals, 1e-9)
	assert.InDelta(t, first.TotalCustomers*(1+k), second.TotalCustomers, 1e-9)

	third := projection.Months[2]
	assert.InDelta(t, first.NewFromReferrals+second.NewFromReferrals+third.NewFromReferrals,
		third.CumulativeReferrals, 1e-9)
}

func TestProjectGrowthInterpretationBands(t *testing.T) {
	tests := []struct {
		k        float64
		expected string
	}{
		{k: 1.5, expected: "exponential"},
		{k: 1.0, expected: "exponential"},
		{k: 0.7, expected: "strong"},
		{k: 0.5, expected: "strong"},
		{k: 0.3, expected: "moderate"},
		{k: 0.25, expected: "moderate"},
		{k: 0.15, expected: "slight"},
		{k: 0.1, expected: "slight"},
		{k: 0.05, expected: "minimal"},
		{k: 0, expected: "minimal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, interpretKFactor(tt.k), "k %v", tt.k)
	}
}

func TestProjectGrowthDefaultsToTwelveMonths(t *testing.T) {
	m := DefaultModel()

	assert.Len(t, m.ProjectGrowth(100, 0.2, 0).Months, 12)
	assert.Len(t, m.ProjectGrowth(100, 0.2, -3).Months, 12)
	assert.Len(t, m.ProjectGrowth(100, 0.2, 24).Months, 24)
}

func TestProjectGrowthZeroStartingCustomers(t *testing.T) {
	m := DefaultModel()

	projection := m.ProjectGrowth(0, 0.5, 6)

	require.Len(t, projection.Months, 6)
	for _, month := range projection.Months {
		assert.Zero(t, month.TotalCustomers)
		assert.Zero(t, month.NewFromReferrals)
		assert.Zero(t, month.GrowthRate)
	}
}

func TestProjectGrowthIsDeterministic(t *testing.T) {
	m := DefaultModel()

	first := m.ProjectGrowth(1000, 0.15, 12)
	second := m.ProjectGrowth(1000, 0.15, 12)

	assert.Equal(t, first, second)
}
