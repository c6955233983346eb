package suggest

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/miradorstack/mirador-intel/internal/metrics"
	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// MaxSuggestions is the number of suggestions shown in one place at one time.
const MaxSuggestions = 1

// Engine turns visible insights into at most MaxSuggestions proposals.
type Engine struct {
	logger *slog.Logger
	rules  []Rule
	clock  utils.Clock
}

// NewEngine constructs an engine; nil rules means DefaultRules.
func NewEngine(logger *slog.Logger, rules []Rule, clock utils.Clock) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{logger: logger, rules: rules, clock: utils.ClockOrSystem(clock)}
}

// Generate runs the rule modules, then filters candidates through the
// guardrails, the user's confidence threshold, muted scopes and active
// snoozes before the cap. A nil profile uses the defaults.
func (e *Engine) Generate(insights []models.Insight, profile *models.IntelProfile) []models.Suggestion {
	if profile == nil {
		def := models.DefaultProfile("")
		profile = &def
	}
	threshold := profile.Visibility.ActiveConfidenceThreshold
	if threshold <= 0 {
		threshold = models.DefaultActiveConfidenceThreshold
	}
	now := e.clock.Now()

	candidates := e.candidates(insights)
	out := make([]models.Suggestion, 0, MaxSuggestions)
	for _, s := range candidates {
		switch {
		case !Allow(s):
			metrics.ObserveSuggestion(metrics.SuggestionGuardrail)
		case s.ConfidenceScore < threshold:
			metrics.ObserveSuggestion(metrics.SuggestionThreshold)
		case profile.Mutes.ByScope[string(s.Scope)]:
			metrics.ObserveSuggestion(metrics.SuggestionMuted)
		case snoozed(s, profile, now):
			metrics.ObserveSuggestion(metrics.SuggestionSnoozed)
		case len(out) >= MaxSuggestions:
			metrics.ObserveSuggestion(metrics.SuggestionCapped)
		default:
			metrics.ObserveSuggestion(metrics.SuggestionSurfaced)
			out = append(out, s)
		}
	}

	e.logger.Debug("suggestions generated",
		slog.String("user_id", profile.UserID),
		slog.Int("candidates", len(candidates)),
		slog.Int("surfaced", len(out)),
	)
	return out
}

// candidates collects rule output ordered like the insights they came from,
// so the highest priority insight gets the only slot.
func (e *Engine) candidates(insights []models.Insight) []models.Suggestion {
	rank := make(map[string]int, len(insights))
	for i, ins := range insights {
		if _, ok := rank[ins.ID]; !ok {
			rank[ins.ID] = i
		}
	}

	var all []models.Suggestion
	for _, rule := range e.rules {
		out, err := runRule(rule, insights)
		if err != nil {
			e.logger.Warn("suggestion rule failed", slog.String("rule", rule.Name), slog.Any("error", err))
			continue
		}
		all = append(all, out...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return rankOf(rank, all[i].InsightID) < rankOf(rank, all[j].InsightID)
	})
	return all
}

func runRule(rule Rule, insights []models.Insight) (out []models.Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("rule %s panicked: %v", rule.Name, r)
		}
	}()
	if rule.Generate == nil {
		return nil, fmt.Errorf("rule %s has no generator", rule.Name)
	}
	return rule.Generate(insights), nil
}

func rankOf(rank map[string]int, insightID string) int {
	if r, ok := rank[insightID]; ok {
		return r
	}
	return len(rank)
}

func snoozed(s models.Suggestion, profile *models.IntelProfile, now time.Time) bool {
	if s.Data == nil {
		return false
	}
	for _, id := range s.Data.EntityIDs() {
		if _, ok := profile.ActiveSnooze(id, now); ok {
			return true
		}
	}
	return false
}
