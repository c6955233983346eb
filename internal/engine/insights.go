package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/miradorstack/mirador-intel/internal/models"
)

// InsightInput is everything a rule module sees in one evaluation pass.
type InsightInput struct {
	Signals      []models.Signal      `json:"signals"`
	ContextHints []models.ContextHint `json:"contextHints"`
	Domain       models.DomainContext `json:"domainContext"`
}

// InsightRule is one pure rule module.
type InsightRule struct {
	Name     string
	Evaluate func(in InsightInput) ([]models.Insight, error)
}

// DefaultInsightRules returns the market, cost and stock rule modules.
func DefaultInsightRules() []InsightRule {
	return []InsightRule{
		{Name: "market", Evaluate: MarketInsights},
		{Name: "cost", Evaluate: CostInsights},
		{Name: "stock", Evaluate: StockInsights},
	}
}

// InsightEngine runs the rule modules and turns their output into an ordered
// visible set.
type InsightEngine struct {
	rules  []InsightRule
	logger *slog.Logger
}

// NewInsightEngine constructs an engine; nil rules means DefaultInsightRules.
func NewInsightEngine(logger *slog.Logger, rules []InsightRule) *InsightEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = DefaultInsightRules()
	}
	return &InsightEngine{rules: rules, logger: logger}
}

// ruleResult is the outcome of one rule module.
type ruleResult struct {
	name     string
	insights []models.Insight
	err      error
}

// Generate evaluates every rule, deduplicates by id, applies the severity
// policy and sorts by priority. It never fails; a failing rule only loses
// its own output.
func (e *InsightEngine) Generate(in InsightInput) []models.Insight {
	results := make([]ruleResult, 0, len(e.rules))
	for _, rule := range e.rules {
		results = append(results, runRule(rule, in))
	}

	collected := make([]models.Insight, 0)
	for _, res := range results {
		if res.err != nil {
			e.logger.Warn("insight rule failed", slog.String("rule", res.name), slog.Any("error", res.err))
			continue
		}
		collected = append(collected, res.insights...)
	}

	visible := applySeverityPolicy(dedupeInsights(collected))
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].PriorityScore > visible[j].PriorityScore
	})
	return visible
}

func runRule(rule InsightRule, in InsightInput) (res ruleResult) {
	res.name = rule.Name
	defer func() {
		if r := recover(); r != nil {
			res.insights = nil
			res.err = fmt.Errorf("rule %s panicked: %v", rule.Name, r)
		}
	}()
	if rule.Evaluate == nil {
		res.err = fmt.Errorf("rule %s has no evaluator", rule.Name)
		return res
	}
	res.insights, res.err = rule.Evaluate(in)
	return res
}

// dedupeInsights keeps the highest scoring instance per id. On ties the
// first instance seen wins and keeps its original position.
func dedupeInsights(insights []models.Insight) []models.Insight {
	index := make(map[string]int, len(insights))
	out := make([]models.Insight, 0, len(insights))
	for _, ins := range insights {
		if pos, ok := index[ins.ID]; ok {
			if ins.PriorityScore > out[pos].PriorityScore {
				out[pos] = ins
			}
			continue
		}
		index[ins.ID] = len(out)
		out = append(out, ins)
	}
	return out
}

// applySeverityPolicy returns the blocking non-success insights when any
// exist. Otherwise it returns the success insights together with findings
// that cleared their own lowered bar.
func applySeverityPolicy(insights []models.Insight) []models.Insight {
	blocking := make([]models.Insight, 0, len(insights))
	for _, ins := range insights {
		if ins.Severity != models.SeveritySuccess && ins.PriorityScore >= ScoreShow {
			blocking = append(blocking, ins)
		}
	}
	if len(blocking) > 0 {
		return blocking
	}

	visible := make([]models.Insight, 0, len(insights))
	for _, ins := range insights {
		switch {
		case ins.Severity == models.SeveritySuccess:
			visible = append(visible, ins)
		case ins.MinScore > 0 && ins.MinScore < ScoreShow && ins.PriorityScore >= ins.MinScore:
			visible = append(visible, ins)
		}
	}
	return visible
}

// recipesFromHints unions the recipe ids of the hints that concern signal.
func recipesFromHints(signal models.Signal, hints []models.ContextHint, ingredientID string) int {
	seen := make(map[string]struct{})
	for _, hint := range hints {
		if hint.Metadata.SignalID != "" && hint.Metadata.SignalID != signal.ID {
			continue
		}
		if hint.Metadata.IngredientID != "" && ingredientID != "" && hint.Metadata.IngredientID != ingredientID {
			continue
		}
		for _, id := range hint.Metadata.RecipeIDs {
			if id != "" {
				seen[id] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return int(signal.FloatOr("recipesAffected", 0))
	}
	return len(seen)
}

func money(v float64, d models.DomainContext) string {
	return fmt.Sprintf("%.2f %s", v, d.CurrencySymbol())
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
