package crosssell

// CalculateROI rolls up total program costs against the lifetime value of the
// customers the program acquires, and compares the channel against paid
// acquisition benchmarks. Passing months <= 0 evaluates the default 12-month
// horizon. Division-by-zero cases return 0 rather than failing.
func (m *Model) CalculateROI(setupCost, monthlyCost, incentivePerConversion, monthlyConversions float64, months int) ROIAnalysis {
	if months <= 0 {
		months = defaultProjectionMonths
	}

	recurring := monthlyCost * float64(months)
	incentives := incentivePerConversion * monthlyConversions * float64(months)
	totalCost := setupCost + recurring + incentives

	customers := monthlyConversions * float64(months)
	totalValue := customers * m.assumptions.ReferredLTV

	var cac, ltvCAC, roi float64
	if customers > 0 {
		cac = totalCost / customers
	}
	if cac > 0 {
		ltvCAC = m.assumptions.ReferredLTV / cac
	}
	if totalCost > 0 {
		roi = (totalValue - totalCost) / totalCost
	}

	costAtPaidCAC := customers * m.assumptions.PaidCAC
	qualityPremium := (m.assumptions.ReferredLTV - m.assumptions.PaidLTV) * customers

	var breakEven float64
	if incentivePerConversion > 0 {
		breakEven = (setupCost + recurring) / incentivePerConversion
	}

	return ROIAnalysis{
		Costs: CostBreakdown{
			Setup:      setupCost,
			Recurring:  recurring,
			Incentives: incentives,
			Total:      totalCost,
		},
		Referral: ReferralMetrics{
			TotalCustomers: customers,
			CAC:            cac,
			LTV:            m.assumptions.ReferredLTV,
			LTVCACRatio:    ltvCAC,
			TotalValue:     totalValue,
			ROI:            roi,
		},
		Paid: PaidComparison{
			CAC:            m.assumptions.PaidCAC,
			LTV:            m.assumptions.PaidLTV,
			CostAtPaidCAC:  costAtPaidCAC,
			QualityPremium: qualityPremium,
		},
		Summary: ROISummary{
			CACSavings:           costAtPaidCAC - totalCost,
			BreakEvenConversions: breakEven,
		},
	}
}
