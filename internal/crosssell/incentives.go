package crosssell

// incentiveAmounts is the fixed set of incentive levels every analysis tests.
var incentiveAmounts = []float64{50, 100, 150, 200, 250}

// baseReferralRates encodes diminishing returns per incentive dollar. Amounts
// outside the table fall back to defaultBaseRate.
var baseReferralRates = map[float64]float64{
	50:  0.06,
	100: 0.08,
	150: 0.09,
	200: 0.095,
	250: 0.098,
}

const defaultBaseRate = 0.08

// Participation multipliers relative to the base rate.
const (
	highPropensityMultiplier   = 1.5
	mediumPropensityMultiplier = 0.8
)

func baseRateFor(amount float64) float64 {
	if rate, ok := baseReferralRates[amount]; ok {
		return rate
	}
	return defaultBaseRate
}

func recommendationFor(ltvCACRatio float64) string {
	switch {
	case ltvCACRatio >= 40:
		return "EXCELLENT"
	case ltvCACRatio >= 20:
		return "VERY GOOD"
	case ltvCACRatio >= 10:
		return "GOOD"
	case ltvCACRatio >= 5:
		return "FAIR"
	default:
		return "POOR"
	}
}

// AnalyzeIncentives models program economics for each fixed incentive amount.
// The incentive is paid per successful conversion, not per referral attempt,
// so total cost scales with conversions. Always returns exactly one scenario
// per tested amount, in ascending amount order.
func (m *Model) AnalyzeIncentives(totalCustomers, highPropensityCount, mediumPropensityCount int) []IncentiveScenario {
	_ = totalCustomers // participation is driven by the propensity segments

	scenarios := make([]IncentiveScenario, 0, len(incentiveAmounts))
	for _, amount := range incentiveAmounts {
		base := baseRateFor(amount)
		highRate := base * highPropensityMultiplier
		mediumRate := base * mediumPropensityMultiplier

		referrals := (float64(highPropensityCount)*highRate + float64(mediumPropensityCount)*mediumRate) *
			m.assumptions.AvgReferralsPerReferrer
		conversions := referrals * m.assumptions.ConversionRate
		cost := conversions * amount

		var cac, ltvCAC, roi float64
		if conversions > 0 {
			cac = cost / conversions
		}
		if cac > 0 {
			ltvCAC = m.assumptions.ReferredLTV / cac
		}
		if cost > 0 {
			roi = (m.assumptions.ReferredLTV*conversions - cost) / cost
		}

		scenarios = append(scenarios, IncentiveScenario{
			IncentiveAmount:     amount,
			BaseReferralRate:    base,
			ExpectedReferrals:   referrals,
			ExpectedConversions: conversions,
			TotalCost:           cost,
			CAC:                 cac,
			LTVCACRatio:         ltvCAC,
			ROI:                 roi,
			Recommendation:      recommendationFor(ltvCAC),
		})
	}

	return scenarios
}
