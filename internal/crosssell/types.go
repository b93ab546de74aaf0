package crosssell

// Engagement describes how actively a customer interacts with the agency.
type Engagement string

const (
	EngagementHigh   Engagement = "high"
	EngagementMedium Engagement = "medium"
	EngagementLow    Engagement = "low"
)

// Tier classifies a customer's referral propensity.
type Tier string

const (
	TierChampion  Tier = "champion"
	TierPromoter  Tier = "promoter"
	TierPassive   Tier = "passive"
	TierDetractor Tier = "detractor"
)

// PropensityInput holds the customer attributes the scorer consumes.
// RetentionScore is expected in [0,1]; ClaimsSatisfied and NPS are optional
// and fall back to a neutral sub-score when nil.
type PropensityInput struct {
	CustomerID      string     `json:"customer_id"`
	TenureMonths    int        `json:"tenure_months"`
	ProductCount    int        `json:"product_count"`
	RetentionScore  float64    `json:"retention_score"`
	Engagement      Engagement `json:"engagement"`
	ClaimsSatisfied *bool      `json:"claims_satisfied,omitempty"`
	NPS             *int       `json:"nps,omitempty"`
}

// PropensityResult is the scorer output. It is never mutated after creation.
type PropensityResult struct {
	CustomerID               string             `json:"customer_id"`
	Score                    float64            `json:"score"`
	Tier                     Tier               `json:"tier"`
	ReferralRate             float64            `json:"referral_rate"`
	EstimatedAnnualReferrals float64            `json:"estimated_annual_referrals"`
	Breakdown                map[string]float64 `json:"breakdown"`
	RecommendedAction        string             `json:"recommended_action"`
}

// IncentiveScenario is the projected economics of one tested incentive amount.
type IncentiveScenario struct {
	IncentiveAmount     float64 `json:"incentive_amount"`
	BaseReferralRate    float64 `json:"base_referral_rate"`
	ExpectedReferrals   float64 `json:"expected_referrals"`
	ExpectedConversions float64 `json:"expected_conversions"`
	TotalCost           float64 `json:"total_cost"`
	CAC                 float64 `json:"cac"`
	LTVCACRatio         float64 `json:"ltv_cac_ratio"`
	ROI                 float64 `json:"roi"`
	Recommendation      string  `json:"recommendation"`
}

// MonthProjection is one month of the viral growth sequence.
type MonthProjection struct {
	Month               int     `json:"month"`
	TotalCustomers      float64 `json:"total_customers"`
	NewFromReferrals    float64 `json:"new_from_referrals"`
	CumulativeReferrals float64 `json:"cumulative_referrals"`
	GrowthRate          float64 `json:"growth_rate"`
}

// ViralProjection is the output of the growth projector.
type ViralProjection struct {
	KFactor        float64           `json:"k_factor"`
	Interpretation string            `json:"interpretation"`
	Months         []MonthProjection `json:"months"`
}

// CostBreakdown itemizes referral program spend.
type CostBreakdown struct {
	Setup      float64 `json:"setup"`
	Recurring  float64 `json:"recurring"`
	Incentives float64 `json:"incentives"`
	Total      float64 `json:"total"`
}

// ReferralMetrics summarizes the acquisition economics of the referral channel.
type ReferralMetrics struct {
	TotalCustomers float64 `json:"total_customers"`
	CAC            float64 `json:"cac"`
	LTV            float64 `json:"ltv"`
	LTVCACRatio    float64 `json:"ltv_cac_ratio"`
	TotalValue     float64 `json:"total_value"`
	ROI            float64 `json:"roi"`
}

// PaidComparison contrasts the referral channel with paid acquisition benchmarks.
type PaidComparison struct {
	CAC            float64 `json:"cac"`
	LTV            float64 `json:"ltv"`
	CostAtPaidCAC  float64 `json:"cost_at_paid_cac"`
	QualityPremium float64 `json:"quality_premium"`
}

// ROISummary carries the headline numbers for the program.
type ROISummary struct {
	CACSavings           float64 `json:"cac_savings"`
	BreakEvenConversions float64 `json:"break_even_conversions"`
}

// ROIAnalysis is the full program rollup produced by CalculateROI.
type ROIAnalysis struct {
	Costs    CostBreakdown   `json:"costs"`
	Referral ReferralMetrics `json:"referral"`
	Paid     PaidComparison  `json:"paid_comparison"`
	Summary  ROISummary      `json:"summary"`
}
