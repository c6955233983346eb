package suggest

import (
	"math"

	"github.com/miradorstack/mirador-intel/internal/models"
)

const (
	// MinConfidence is the global floor below which nothing is suggested.
	MinConfidence = 75
	// MinImpactAbs is the smallest monetary impact worth acting on.
	MinImpactAbs = 0.50
)

// Allow reports whether a candidate suggestion is strong enough to surface.
func Allow(s models.Suggestion) bool {
	if s.ConfidenceScore < MinConfidence {
		return false
	}
	if s.ExpectedImpact.DeltaCostAbs != nil && math.Abs(*s.ExpectedImpact.DeltaCostAbs) < MinImpactAbs {
		return false
	}
	if s.RiskLevel == models.RiskHigh {
		// High-risk proposals are meant to stay hidden but currently pass.
		// Product has not confirmed the rule, so this stays permissive.
		return true
	}
	return true
}
