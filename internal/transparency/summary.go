package transparency

import (
	"sort"
	"time"

	"github.com/miradorstack/mirador-intel/internal/models"
)

// Labels shown to the user. They are product copy and stay in Spanish.
const (
	SilenceHigh   = "Alto"
	SilenceMedium = "Medio"
	SilenceLow    = "Bajo"

	ConfidenceStrict   = "Estricta"
	ConfidenceBalanced = "Equilibrada"
	ConfidenceFlexible = "Flexible"

	ActionFocused = "Enfocado"
	ActionBroad   = "Amplio"
)

// Summary describes a profile in three words plus what is currently paused.
type Summary struct {
	SilenceLevel   string    `json:"silenceLevel"`
	ConfidenceMode string    `json:"confidenceMode"`
	ActionMode     string    `json:"actionMode"`
	ActiveSnoozes  []string  `json:"activeSnoozes,omitempty"`
	MutedScopes    []string  `json:"mutedScopes,omitempty"`
	LastTunedAt    time.Time `json:"lastTunedAt,omitempty"`
}

// Summarize derives the summary from the profile numbers alone.
func Summarize(p models.IntelProfile, now time.Time) Summary {
	v := p.Visibility
	s := Summary{
		SilenceLevel:   SilenceLow,
		ConfidenceMode: ConfidenceFlexible,
		ActionMode:     ActionBroad,
		LastTunedAt:    p.History.LastTunedAt,
	}
	switch {
	case v.AssistedMinimumToShow >= 25:
		s.SilenceLevel = SilenceHigh
	case v.AssistedMinimumToShow >= 21:
		s.SilenceLevel = SilenceMedium
	}
	switch {
	case v.ActiveConfidenceThreshold >= 88:
		s.ConfidenceMode = ConfidenceStrict
	case v.ActiveConfidenceThreshold >= 82:
		s.ConfidenceMode = ConfidenceBalanced
	}
	if v.MaxVisibleInsightsDefault == 1 {
		s.ActionMode = ActionFocused
	}

	for id, snooze := range p.Snoozes.ByEntity {
		if snooze.Active(now) {
			s.ActiveSnoozes = append(s.ActiveSnoozes, id)
		}
	}
	for scope, muted := range p.Mutes.ByScope {
		if muted {
			s.MutedScopes = append(s.MutedScopes, scope)
		}
	}
	sort.Strings(s.ActiveSnoozes)
	sort.Strings(s.MutedScopes)
	return s
}
