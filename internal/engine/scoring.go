package engine

import "math"

// Score thresholds shared by the rule modules and the insight engine.
const (
	// ScoreShow is the bar a non-success insight must clear to be shown.
	ScoreShow = 22
	// ScoreTrivial is the lowered bar for small-but-certain findings.
	ScoreTrivial = 15
	// ScoreBlocker marks findings that should be handled before anything else.
	ScoreBlocker = 25
)

// TrivialImpactAbs is the monetary impact below which a finding is trivial.
const TrivialImpactAbs = 0.30

// Risk names an extra risk factor that raises a finding's priority.
type Risk string

const (
	RiskNone           Risk = "none"
	RiskSingleSupplier Risk = "single_supplier"
	RiskStalePrice     Risk = "stale_price"
	RiskVolatility     Risk = "volatility"
)

// ScoreFactors are the inputs of the priority score. Zero values behave as
// absent factors.
type ScoreFactors struct {
	ImpactAbsEUR     float64
	ImpactPct        float64
	RecipesAffected  int
	Risk             Risk
	IsConfidenceHigh bool
}

// Score computes the additive priority score. Each term is capped on its own
// before summing and the total is floored to an integer.
func Score(f ScoreFactors) int {
	impact := math.Min(55, math.Abs(f.ImpactAbsEUR)*2)
	pct := math.Min(15, f.ImpactPct)
	recipes := math.Min(20, float64(f.RecipesAffected)*4)

	confidence := 5.0
	if f.IsConfidenceHigh {
		confidence = 15
	}

	return int(math.Floor(impact + pct + recipes + riskBonus(f.Risk) + confidence))
}

func riskBonus(r Risk) float64 {
	switch r {
	case RiskSingleSupplier:
		return 5
	case RiskStalePrice:
		return 3
	case RiskVolatility:
		return 2
	default:
		return 0
	}
}

// successScore keeps success findings inside the 15..20 band so they never
// outrank a real warning but still clear the trivial bar.
func successScore(f ScoreFactors) int {
	s := Score(f)
	if s < 15 {
		return 15
	}
	if s > 20 {
		return 20
	}
	return s
}
