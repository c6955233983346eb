package learning

import "github.com/miradorstack/mirador-intel/internal/models"

// Absolute limits for the visibility settings.
const (
	MinAssistedMinimumToShow     = 18
	MaxAssistedMinimumToShow     = 28
	MinActiveConfidenceThreshold = 75
	MaxActiveConfidenceThreshold = 90
	MinMaxVisibleInsights        = 1
	MaxMaxVisibleInsights        = 2
)

// ClampProfile returns p with every visibility field inside its limits. It
// is idempotent and runs before every profile write.
func ClampProfile(p models.IntelProfile) models.IntelProfile {
	v := &p.Visibility
	v.AssistedMinimumToShow = clampInt(v.AssistedMinimumToShow, MinAssistedMinimumToShow, MaxAssistedMinimumToShow)
	v.ActiveConfidenceThreshold = clampInt(v.ActiveConfidenceThreshold, MinActiveConfidenceThreshold, MaxActiveConfidenceThreshold)
	v.MaxVisibleInsightsDefault = clampInt(v.MaxVisibleInsightsDefault, MinMaxVisibleInsights, MaxMaxVisibleInsights)
	return p
}

// IsFrozen reports whether auto-tuning is paused for p. A post-reset freeze
// window has been discussed but is not active, so this is always false.
func IsFrozen(models.IntelProfile) bool {
	return false
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
