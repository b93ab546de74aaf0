package crosssell

var factorWeights = map[string]float64{
	"tenure":     0.25,
	"products":   0.20,
	"retention":  0.20,
	"engagement": 0.15,
	"claims":     0.10,
	"nps":        0.10,
}

// factorOrder fixes the summation order. Ranging over the weights map would
// reorder the floating-point additions between calls and the composite score
// would not be bit-identical for identical input.
var factorOrder = []string{"tenure", "products", "retention", "engagement", "claims", "nps"}

// neutralScore is the midpoint sub-score used when an optional signal is
// missing or an enum value is unrecognized.
const neutralScore = 70

// band maps a raw value at or above threshold to a fixed sub-score. Bands are
// scanned top-down, so they must be ordered by descending threshold.
type band struct {
	threshold float64
	score     float64
}

var (
	tenureBands  = []band{{60, 95}, {36, 85}, {24, 70}, {12, 55}}
	productBands = []band{{4, 98}, {3, 90}, {2, 70}}
	npsBands     = []band{{50, 95}, {0, 70}, {-50, 40}}
)

var engagementScores = map[Engagement]float64{
	EngagementHigh:   95,
	EngagementMedium: 70,
	EngagementLow:    35,
}

var tierActions = map[Tier]string{
	TierChampion:  "Enroll in VIP referral program with premium incentives",
	TierPromoter:  "Send personalized referral invitation with standard incentive",
	TierPassive:   "Nurture with engagement campaign before making a referral ask",
	TierDetractor: "Resolve satisfaction issues before any referral outreach",
}

// tierReferralRates are the assumed annual referral participation rates per tier.
var tierReferralRates = map[Tier]float64{
	TierChampion:  0.20,
	TierPromoter:  0.12,
	TierPassive:   0.05,
	TierDetractor: 0.01,
}

func lookupBand(bands []band, raw, fallback float64) float64 {
	for _, b := range bands {
		if raw >= b.threshold {
			return b.score
		}
	}
	return fallback
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func engagementScore(e Engagement) float64 {
	if s, ok := engagementScores[e]; ok {
		return s
	}
	// Unknown engagement values degrade to the medium score instead of failing.
	return neutralScore
}

func claimsScore(satisfied *bool) float64 {
	switch {
	case satisfied == nil:
		return neutralScore
	case *satisfied:
		return 95
	default:
		return 20
	}
}

func npsScore(nps *int) float64 {
	if nps == nil {
		return neutralScore
	}
	return lookupBand(npsBands, float64(*nps), 15)
}

// tierFor classifies a composite score. Thresholds are inclusive: a score of
// exactly 80 is a champion, exactly 40 is passive.
func tierFor(score float64) Tier {
	switch {
	case score >= 80:
		return TierChampion
	case score >= 60:
		return TierPromoter
	case score >= 40:
		return TierPassive
	default:
		return TierDetractor
	}
}

// Score computes a customer's referral propensity. It is total over its input
// domain: missing optional fields and malformed enum values fall back to
// neutral sub-scores rather than failing.
func (m *Model) Score(in PropensityInput) PropensityResult {
	breakdown := map[string]float64{
		"tenure":     lookupBand(tenureBands, float64(in.TenureMonths), 35),
		"products":   lookupBand(productBands, float64(in.ProductCount), 40),
		"retention":  clip(in.RetentionScore*100, 0, 100),
		"engagement": engagementScore(in.Engagement),
		"claims":     claimsScore(in.ClaimsSatisfied),
		"nps":        npsScore(in.NPS),
	}

	score := 0.0
	for _, factor := range factorOrder {
		score += breakdown[factor] * factorWeights[factor]
	}

	tier := tierFor(score)
	rate := tierReferralRates[tier]

	return PropensityResult{
		CustomerID:               in.CustomerID,
		Score:                    score,
		Tier:                     tier,
		ReferralRate:             rate,
		EstimatedAnnualReferrals: rate * m.assumptions.AvgReferralsPerReferrer,
		Breakdown:                breakdown,
		RecommendedAction:        tierActions[tier],
	}
}
