package engine

import (
	"fmt"

	"github.com/miradorstack/mirador-intel/internal/models"
)

const (
	SignalStockUnlinked    = "STOCK_UNLINKED_ITEMS"
	SignalStockLowCoverage = "STOCK_LOW_COVERAGE"
	SignalStockAllLinked   = "STOCK_ALL_LINKED"

	InsightStockUnlinked    = "INSIGHT_STOCK_UNLINKED"
	InsightStockLowCoverage = "INSIGHT_STOCK_LOW_COVERAGE"
	InsightStockInSync      = "INSIGHT_STOCK_IN_SYNC"
)

// HighMatchConfidence is the stock-to-ingredient match ratio treated as certain.
const HighMatchConfidence = 0.8

// StockInsights evaluates the inventory signals.
func StockInsights(in InsightInput) ([]models.Insight, error) {
	var out []models.Insight
	for _, sig := range in.Signals {
		switch sig.ID {
		case SignalStockUnlinked:
			out = append(out, unlinkedInsight(sig, in))
		case SignalStockLowCoverage:
			out = append(out, lowCoverageInsight(sig, in))
		case SignalStockAllLinked:
			out = append(out, models.Insight{
				ID:            InsightStockInSync,
				Title:         "Stock and recipes are in sync",
				Summary:       "Every stock item is linked to an ingredient.",
				Why:           "Linked items let consumption flow into real costs.",
				Scope:         models.ScopeStock,
				Severity:      models.SeveritySuccess,
				PriorityScore: successScore(ScoreFactors{IsConfidenceHigh: true}),
				SignalID:      sig.ID,
			})
		}
	}
	return out, nil
}

func unlinkedInsight(sig models.Signal, in InsightInput) models.Insight {
	count := int(sig.FloatOr("count", 1))
	match := sig.FloatOr("matchConfidence", 0)
	ingredientID := sig.String("suggestedIngredientId")

	evidence := []models.Evidence{{Label: "Unlinked items", Value: fmt.Sprintf("%d", count)}}
	if ingredientID != "" {
		evidence = append(evidence,
			models.Evidence{Label: "Likely ingredient", Value: in.Domain.IngredientName(ingredientID)},
			models.Evidence{Label: "Match", Value: percent(match * 100)},
		)
	}

	return models.Insight{
		ID:       InsightStockUnlinked,
		Title:    fmt.Sprintf("%d stock item(s) are not linked to an ingredient", count),
		Summary:  "Unlinked items are counted in stock but never reach recipe costs.",
		Why:      "Consumption of unlinked items cannot be attributed to any recipe.",
		Scope:    models.ScopeStock,
		Severity: models.SeverityWarning,
		Evidence: evidence,
		Checklist: []string{
			"Review the unlinked stock items",
			"Link each item to its ingredient",
		},
		PriorityScore: Score(ScoreFactors{
			RecipesAffected:  count,
			IsConfidenceHigh: match >= HighMatchConfidence,
		}),
		SignalID: sig.ID,
		Subject: models.InsightSubject{
			StockItemID:     sig.String("stockItemId"),
			IngredientID:    ingredientID,
			MatchConfidence: match,
			RecipesAffected: count,
		},
	}
}

func lowCoverageInsight(sig models.Signal, in InsightInput) models.Insight {
	ingredientID := sig.String("ingredientId")
	cover := sig.FloatOr("daysOfCover", 0)
	recipes := recipesFromHints(sig, in.ContextHints, ingredientID)

	severity := models.SeverityWarning
	if cover < 2 {
		severity = models.SeverityCritical
	}

	return models.Insight{
		ID:       InsightStockLowCoverage,
		Title:    fmt.Sprintf("%s is running low", in.Domain.IngredientName(ingredientID)),
		Summary:  fmt.Sprintf("Current stock covers about %.1f day(s) of use.", cover),
		Why:      "Running out forces last-minute purchases at worse prices.",
		Scope:    models.ScopeStock,
		Severity: severity,
		Evidence: []models.Evidence{
			{Label: "Days of cover", Value: fmt.Sprintf("%.1f", cover)},
			{Label: "Recipes affected", Value: fmt.Sprintf("%d", recipes)},
		},
		PriorityScore: Score(ScoreFactors{RecipesAffected: recipes, Risk: RiskVolatility}),
		SignalID:      sig.ID,
		Subject:       models.InsightSubject{IngredientID: ingredientID, RecipesAffected: recipes},
	}
}
