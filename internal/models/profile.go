package models

import "time"

// Default visibility settings for a fresh profile.
const (
	DefaultAssistedMinimumToShow     = 20
	DefaultActiveConfidenceThreshold = 80
	DefaultMaxVisibleInsights        = 2
	DefaultWeight                    = 1.0
)

// IntelProfile is the durable per-user tuning state of the pipeline.
type IntelProfile struct {
	UserID     string     `json:"userId"`
	Version    int        `json:"version"`
	Visibility Visibility `json:"visibility"`
	Weights    Weights    `json:"weights"`
	Snoozes    Snoozes    `json:"snoozes"`
	Mutes      Mutes      `json:"mutes"`
	History    History    `json:"history"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Visibility holds the thresholds that gate what the user sees.
type Visibility struct {
	AssistedMinimumToShow     int `json:"assisted_minimum_to_show"`
	ActiveConfidenceThreshold int `json:"active_confidence_threshold"`
	MaxVisibleInsightsDefault int `json:"max_visible_insights_default"`
}

// Weights scales scoring factors per user.
type Weights struct {
	ImpactAbsEUR    float64 `json:"impactAbsEUR"`
	RecipesAffected float64 `json:"recipesAffected"`
	ImpactPct       float64 `json:"impactPct"`
	Confidence      float64 `json:"confidence"`
}

// Snooze suppresses suggestions about one entity until a point in time.
type Snooze struct {
	Until  time.Time `json:"until"`
	Reason string    `json:"reason"`
}

// Active reports whether the snooze is still in effect at now.
func (s Snooze) Active(now time.Time) bool {
	return s.Until.After(now)
}

// Snoozes indexes active snoozes by entity id.
type Snoozes struct {
	ByEntity map[string]Snooze `json:"byEntity"`
}

// Mutes silences whole scopes or individual signals.
type Mutes struct {
	ByScope    map[string]bool `json:"byScope"`
	BySignalID map[string]bool `json:"bySignalId"`
}

// History records when and how often the profile was tuned.
type History struct {
	LastTunedAt    time.Time      `json:"lastTunedAt,omitempty"`
	TuningCounters map[string]int `json:"tuningCounters"`
}

// DefaultProfile returns the documented defaults for userID.
func DefaultProfile(userID string) IntelProfile {
	return IntelProfile{
		UserID:  userID,
		Version: 1,
		Visibility: Visibility{
			AssistedMinimumToShow:     DefaultAssistedMinimumToShow,
			ActiveConfidenceThreshold: DefaultActiveConfidenceThreshold,
			MaxVisibleInsightsDefault: DefaultMaxVisibleInsights,
		},
		Weights: Weights{
			ImpactAbsEUR:    DefaultWeight,
			RecipesAffected: DefaultWeight,
			ImpactPct:       DefaultWeight,
			Confidence:      DefaultWeight,
		},
		Snoozes: Snoozes{ByEntity: map[string]Snooze{}},
		Mutes:   Mutes{ByScope: map[string]bool{}, BySignalID: map[string]bool{}},
		History: History{TuningCounters: map[string]int{}},
	}
}

// EnsureMaps initialises nil maps so the profile can be mutated safely.
func (p *IntelProfile) EnsureMaps() {
	if p.Snoozes.ByEntity == nil {
		p.Snoozes.ByEntity = map[string]Snooze{}
	}
	if p.Mutes.ByScope == nil {
		p.Mutes.ByScope = map[string]bool{}
	}
	if p.Mutes.BySignalID == nil {
		p.Mutes.BySignalID = map[string]bool{}
	}
	if p.History.TuningCounters == nil {
		p.History.TuningCounters = map[string]int{}
	}
}

// Clone returns a deep copy of the profile.
func (p IntelProfile) Clone() IntelProfile {
	out := p
	out.Snoozes.ByEntity = make(map[string]Snooze, len(p.Snoozes.ByEntity))
	for k, v := range p.Snoozes.ByEntity {
		out.Snoozes.ByEntity[k] = v
	}
	out.Mutes.ByScope = make(map[string]bool, len(p.Mutes.ByScope))
	for k, v := range p.Mutes.ByScope {
		out.Mutes.ByScope[k] = v
	}
	out.Mutes.BySignalID = make(map[string]bool, len(p.Mutes.BySignalID))
	for k, v := range p.Mutes.BySignalID {
		out.Mutes.BySignalID[k] = v
	}
	out.History.TuningCounters = make(map[string]int, len(p.History.TuningCounters))
	for k, v := range p.History.TuningCounters {
		out.History.TuningCounters[k] = v
	}
	return out
}

// ActiveSnooze returns the snooze for entityID if it is still in effect.
func (p IntelProfile) ActiveSnooze(entityID string, now time.Time) (Snooze, bool) {
	s, ok := p.Snoozes.ByEntity[entityID]
	if !ok || !s.Active(now) {
		return Snooze{}, false
	}
	return s, true
}

// IntelChangeLogEntry explains one change applied to a profile.
type IntelChangeLogEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	RuleID      string    `json:"ruleId"`
	Description string    `json:"description"`
	Before      string    `json:"before,omitempty"`
	After       string    `json:"after,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	Reversible  bool      `json:"reversible"`
}
