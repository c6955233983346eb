package engine

import (
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-intel/internal/metrics"
	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// SuggestionEngine promotes visible insights to at most one suggestion.
type SuggestionEngine interface {
	Generate(insights []models.Insight, profile *models.IntelProfile) []models.Suggestion
}

// Evaluation is the outcome of one pipeline pass for one user.
type Evaluation struct {
	Insights    []models.Insight    `json:"insights"`
	Highlighted []models.Insight    `json:"highlighted"`
	Suggestions []models.Suggestion `json:"suggestions"`
	EvaluatedAt time.Time           `json:"evaluatedAt"`
}

// Pipeline runs signals through the insight and suggestion stages.
type Pipeline struct {
	logger      *slog.Logger
	insights    *InsightEngine
	suggestions SuggestionEngine
	checklists  *ChecklistPack
	clock       utils.Clock
}

// NewPipeline constructs a pipeline. A nil insight engine uses the default
// rule modules; a nil suggestion engine yields insights only.
func NewPipeline(logger *slog.Logger, insights *InsightEngine, suggestions SuggestionEngine, clock utils.Clock) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if insights == nil {
		insights = NewInsightEngine(logger, nil)
	}
	return &Pipeline{
		logger:      logger,
		insights:    insights,
		suggestions: suggestions,
		clock:       utils.ClockOrSystem(clock),
	}
}

// WithChecklists attaches a checklist overlay applied to visible insights.
func (p *Pipeline) WithChecklists(pack *ChecklistPack) *Pipeline {
	p.checklists = pack
	return p
}

// Evaluate runs one pass. profile may be nil, in which case defaults apply.
// Muted signals never reach the insight stage. Muted scopes silence
// suggestions only; their insights are still listed and highlighted.
func (p *Pipeline) Evaluate(in InsightInput, profile *models.IntelProfile) Evaluation {
	start := time.Now()
	if profile == nil {
		def := models.DefaultProfile("")
		profile = &def
	}

	in.Signals = unmutedSignals(in.Signals, profile.Mutes.BySignalID)
	visible := p.checklists.Apply(p.insights.Generate(in))
	metrics.ObserveInsights(visible)

	var suggestions []models.Suggestion
	if p.suggestions != nil {
		suggestions = p.suggestions.Generate(visible, profile)
	}

	eval := Evaluation{
		Insights:    visible,
		Highlighted: highlight(visible, profile.Visibility),
		Suggestions: suggestions,
		EvaluatedAt: p.clock.Now(),
	}
	metrics.ObserveEvaluation(time.Since(start))
	p.logger.Debug("pipeline evaluated",
		slog.String("user_id", profile.UserID),
		slog.Int("signals", len(in.Signals)),
		slog.Int("insights", len(eval.Insights)),
		slog.Int("suggestions", len(eval.Suggestions)),
	)
	return eval
}

func unmutedSignals(signals []models.Signal, muted map[string]bool) []models.Signal {
	if len(muted) == 0 {
		return signals
	}
	out := make([]models.Signal, 0, len(signals))
	for _, sig := range signals {
		if muted[sig.ID] {
			continue
		}
		out = append(out, sig)
	}
	return out
}

// highlight picks the insights worth featuring: successes and anything that
// clears the user's assisted minimum, up to the user's visible limit.
func highlight(insights []models.Insight, v models.Visibility) []models.Insight {
	limit := v.MaxVisibleInsightsDefault
	if limit <= 0 {
		limit = models.DefaultMaxVisibleInsights
	}
	out := make([]models.Insight, 0, limit)
	for _, ins := range insights {
		if len(out) == limit {
			break
		}
		if ins.Severity == models.SeveritySuccess || ins.PriorityScore >= v.AssistedMinimumToShow {
			out = append(out, ins)
		}
	}
	return out
}
