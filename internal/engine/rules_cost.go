package engine

import (
	"fmt"
	"math"

	"github.com/miradorstack/mirador-intel/internal/models"
)

const (
	SignalCostRealAboveTheoretical = "COST_REAL_HIGHER_THAN_THEORETICAL"
	SignalCostMissingPrices        = "COST_MISSING_PRICES"
	SignalCostMarginHealthy        = "COST_MARGIN_HEALTHY"

	InsightCostRealAboveTheoretical = "INSIGHT_COST_REAL_ABOVE_THEORETICAL"
	InsightCostIncomplete           = "INSIGHT_COST_INCOMPLETE"
	InsightCostMarginOK             = "INSIGHT_COST_MARGIN_OK"
)

// costCriticalPct is the deviation above which a real-vs-theoretical gap is critical.
const costCriticalPct = 20

// CostInsights evaluates the recipe costing signals.
func CostInsights(in InsightInput) ([]models.Insight, error) {
	var out []models.Insight
	for _, sig := range in.Signals {
		switch sig.ID {
		case SignalCostRealAboveTheoretical:
			out = append(out, realAboveTheoreticalInsight(sig, in))
		case SignalCostMissingPrices:
			out = append(out, incompleteCostInsight(sig, in))
		case SignalCostMarginHealthy:
			recipeID := sig.String("recipeId")
			out = append(out, models.Insight{
				ID:            InsightCostMarginOK,
				Title:         "Margins look healthy",
				Summary:       fmt.Sprintf("%s stays within its target margin.", recipeLabel(sig, in)),
				Why:           "Real and theoretical costs agree.",
				Scope:         models.ScopeCost,
				Severity:      models.SeveritySuccess,
				PriorityScore: successScore(ScoreFactors{RecipesAffected: 1, IsConfidenceHigh: true}),
				SignalID:      sig.ID,
				Subject:       models.InsightSubject{RecipeID: recipeID},
			})
		}
	}
	return out, nil
}

func realAboveTheoreticalInsight(sig models.Signal, in InsightInput) models.Insight {
	recipeID := sig.String("recipeId")
	realCost := sig.FloatOr("realCost", 0)
	theoretical := sig.FloatOr("theoreticalCost", 0)
	deltaAbs := sig.FloatOr("deltaAbs", realCost-theoretical)
	deltaPct, ok := sig.Float("deltaPct")
	if !ok && theoretical > 0 {
		deltaPct = (realCost - theoretical) / theoretical * 100
	}

	ins := models.Insight{
		ID:       InsightCostRealAboveTheoretical,
		Title:    fmt.Sprintf("%s costs more than planned", recipeLabel(sig, in)),
		Summary:  fmt.Sprintf("Real cost %s against a theoretical %s (%s).", money(realCost, in.Domain), money(theoretical, in.Domain), percent(deltaPct)),
		Why:      "Waste, price changes or portioning push the real cost above the recipe sheet.",
		Scope:    models.ScopeCost,
		Severity: models.SeverityWarning,
		Evidence: []models.Evidence{
			{Label: "Real cost", Value: money(realCost, in.Domain)},
			{Label: "Theoretical cost", Value: money(theoretical, in.Domain)},
			{Label: "Deviation", Value: percent(deltaPct)},
		},
		PriorityScore: Score(ScoreFactors{
			ImpactAbsEUR:     deltaAbs,
			ImpactPct:        deltaPct,
			RecipesAffected:  1,
			IsConfidenceHigh: true,
		}),
		SignalID: sig.ID,
		Subject: models.InsightSubject{
			RecipeID:        recipeID,
			CurrentPrice:    theoretical,
			TargetPrice:     realCost,
			DeltaAbs:        deltaAbs,
			DeltaPct:        deltaPct,
			RecipesAffected: 1,
			CostMode:        sig.String("costMode"),
		},
	}
	switch {
	case math.Abs(deltaAbs) < TrivialImpactAbs:
		ins.Severity = models.SeverityInfo
		ins.MinScore = ScoreTrivial
	case deltaPct >= costCriticalPct:
		ins.Severity = models.SeverityCritical
	}
	return ins
}

func incompleteCostInsight(sig models.Signal, in InsightInput) models.Insight {
	missing := int(sig.FloatOr("missingCount", 0))
	return models.Insight{
		ID:       InsightCostIncomplete,
		Title:    fmt.Sprintf("%s has ingredients without a price", recipeLabel(sig, in)),
		Summary:  fmt.Sprintf("%d ingredient(s) have no reference price, so the cost is incomplete.", missing),
		Why:      "A recipe cost is only as good as its least known ingredient.",
		Scope:    models.ScopeCost,
		Severity: models.SeverityWarning,
		Evidence: []models.Evidence{
			{Label: "Ingredients without price", Value: fmt.Sprintf("%d", missing)},
		},
		Checklist: []string{
			"Open the recipe sheet",
			"Assign a supplier price to every ingredient",
			"Recalculate the recipe cost",
		},
		PriorityScore: Score(ScoreFactors{RecipesAffected: 1, Risk: RiskStalePrice}),
		SignalID:      sig.ID,
		Subject:       models.InsightSubject{RecipeID: sig.String("recipeId"), RecipesAffected: 1},
	}
}

func recipeLabel(sig models.Signal, in InsightInput) string {
	if name := sig.String("recipeName"); name != "" {
		return name
	}
	if id := sig.String("recipeId"); id != "" {
		return in.Domain.RecipeName(id)
	}
	return "This recipe"
}
