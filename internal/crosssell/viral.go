package crosssell

const defaultProjectionMonths = 12

func interpretKFactor(k float64) string {
	switch {
	case k >= 1.0:
		return "exponential"
	case k >= 0.5:
		return "strong"
	case k >= 0.25:
		return "moderate"
	case k >= 0.1:
		return "slight"
	default:
		return "minimal"
	}
}

// ProjectGrowth compounds the customer base month by month through the
// referral loop. Churn is deliberately not modeled; the projection is an
// upper bound on organic growth from referrals alone. Passing months <= 0
// projects the default 12-month horizon.
func (m *Model) ProjectGrowth(startingCustomers int, referralRate float64, months int) ViralProjection {
	if months <= 0 {
		months = defaultProjectionMonths
	}

	k := referralRate * m.assumptions.AvgReferralsPerReferrer * m.assumptions.ConversionRate

	projection := ViralProjection{
		KFactor:        k,
		Interpretation: interpretKFactor(k),
		Months:         make([]MonthProjection, 0, months),
	}

	total := float64(startingCustomers)
	cumulative := 0.0
	for month := 1; month <= months; month++ {
		newCustomers := total * k

		growthRate := 0.0
		if total > 0 {
			growthRate = newCustomers / total * 100
		}

		total += newCustomers
		cumulative += newCustomers

		projection.Months = append(projection.Months, MonthProjection{
			Month:               month,
			TotalCustomers:      total,
			NewFromReferrals:    newCustomers,
			CumulativeReferrals: cumulative,
			GrowthRate:          growthRate,
		})
	}

	return projection
}
