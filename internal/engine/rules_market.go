package engine

import (
	"fmt"
	"math"

	"github.com/miradorstack/mirador-intel/internal/models"
)

// Market signal identifiers.
const (
	SignalMarketSavings        = "MARKET_SAVINGS_OPPORTUNITY"
	SignalMarketSingleSupplier = "MARKET_SINGLE_SUPPLIER_RISK"
	SignalMarketStalePrice     = "MARKET_STALE_PRICE"
	SignalMarketVolatility     = "MARKET_PRICE_VOLATILITY"
	SignalMarketBestPrice      = "MARKET_BEST_PRICE_IN_USE"
)

// Market insight identifiers.
const (
	InsightMarketSavingsHighImpact = "INSIGHT_MARKET_SAVINGS_HIGH_IMPACT"
	InsightMarketSavings           = "INSIGHT_MARKET_SAVINGS_OPPORTUNITY"
	InsightMarketSavingsTrivial    = "INSIGHT_MARKET_SAVINGS_TRIVIAL"
	InsightMarketSingleSupplier    = "INSIGHT_MARKET_SINGLE_SUPPLIER"
	InsightMarketStalePrice        = "INSIGHT_MARKET_STALE_PRICE"
	InsightMarketVolatility        = "INSIGHT_MARKET_VOLATILITY"
	InsightMarketBestPrice         = "INSIGHT_MARKET_BEST_PRICE"
)

// MarketInsights evaluates the purchasing signals.
func MarketInsights(in InsightInput) ([]models.Insight, error) {
	var out []models.Insight
	for _, sig := range in.Signals {
		switch sig.ID {
		case SignalMarketSavings:
			out = append(out, savingsInsight(sig, in))
		case SignalMarketSingleSupplier:
			out = append(out, singleSupplierInsight(sig, in))
		case SignalMarketStalePrice:
			out = append(out, stalePriceInsight(sig, in))
		case SignalMarketVolatility:
			out = append(out, volatilityInsight(sig, in))
		case SignalMarketBestPrice:
			out = append(out, bestPriceInsight(sig, in))
		}
	}
	return out, nil
}

func savingsInsight(sig models.Signal, in InsightInput) models.Insight {
	ingredientID := sig.String("ingredientId")
	deltaAbs := sig.FloatOr("deltaAbs", 0)
	deltaPct := sig.FloatOr("deltaPct", 0)
	bestPrice := sig.FloatOr("bestPrice", 0)
	currentPrice := sig.FloatOr("currentPrice", bestPrice+math.Abs(deltaAbs))
	recipes := recipesFromHints(sig, in.ContextHints, ingredientID)

	name := sig.String("ingredientName")
	if name == "" {
		name = in.Domain.IngredientName(ingredientID)
	}
	if name == "" {
		name = "this ingredient"
	}

	score := Score(ScoreFactors{
		ImpactAbsEUR:     deltaAbs,
		ImpactPct:        deltaPct,
		RecipesAffected:  recipes,
		IsConfidenceHigh: true,
	})

	ins := models.Insight{
		Scope:         models.ScopeMarket,
		PriorityScore: score,
		SignalID:      sig.ID,
		Title:         fmt.Sprintf("Cheaper supplier available for %s", name),
		Summary: fmt.Sprintf("Buying %s at %s instead of %s saves %s per unit (%s).",
			name, money(bestPrice, in.Domain), money(currentPrice, in.Domain),
			money(math.Abs(deltaAbs), in.Domain), percent(deltaPct)),
		Why: "Another supplier currently offers a lower price for the same ingredient.",
		Evidence: []models.Evidence{
			{Label: "Current price", Value: money(currentPrice, in.Domain)},
			{Label: "Best price", Value: money(bestPrice, in.Domain)},
			{Label: "Difference", Value: percent(deltaPct)},
			{Label: "Recipes affected", Value: fmt.Sprintf("%d", recipes)},
		},
		Subject: models.InsightSubject{
			IngredientID:     ingredientID,
			SupplierID:       sig.String("currentSupplierId"),
			TargetSupplierID: sig.String("bestSupplierId"),
			CurrentPrice:     currentPrice,
			TargetPrice:      bestPrice,
			DeltaAbs:         deltaAbs,
			DeltaPct:         deltaPct,
			RecipesAffected:  recipes,
		},
	}

	switch {
	case math.Abs(deltaAbs) < TrivialImpactAbs:
		ins.ID = InsightMarketSavingsTrivial
		ins.Severity = models.SeverityInfo
		ins.MinScore = ScoreTrivial
	case recipes >= 3 || deltaPct >= 10:
		ins.ID = InsightMarketSavingsHighImpact
		ins.Severity = models.SeverityCritical
	default:
		ins.ID = InsightMarketSavings
		ins.Severity = models.SeverityWarning
	}
	return ins
}

func singleSupplierInsight(sig models.Signal, in InsightInput) models.Insight {
	ingredientID := sig.String("ingredientId")
	supplierID := sig.String("supplierId")
	exposure := sig.FloatOr("exposureAbs", 0)
	recipes := recipesFromHints(sig, in.ContextHints, ingredientID)

	return models.Insight{
		ID:       InsightMarketSingleSupplier,
		Title:    fmt.Sprintf("%s depends on a single supplier", in.Domain.IngredientName(ingredientID)),
		Summary:  fmt.Sprintf("Only %s supplies this ingredient.", in.Domain.SupplierName(supplierID)),
		Why:      "A single source leaves recipes exposed to price hikes and stock-outs.",
		Scope:    models.ScopeMarket,
		Severity: models.SeverityWarning,
		Evidence: []models.Evidence{
			{Label: "Exposure", Value: money(exposure, in.Domain)},
			{Label: "Recipes affected", Value: fmt.Sprintf("%d", recipes)},
		},
		PriorityScore: Score(ScoreFactors{
			ImpactAbsEUR:    exposure,
			RecipesAffected: recipes,
			Risk:            RiskSingleSupplier,
		}),
		SignalID: sig.ID,
		Subject: models.InsightSubject{
			IngredientID:    ingredientID,
			SupplierID:      supplierID,
			RecipesAffected: recipes,
		},
	}
}

func stalePriceInsight(sig models.Signal, in InsightInput) models.Insight {
	ingredientID := sig.String("ingredientId")
	days := int(sig.FloatOr("daysSinceUpdate", 0))
	recipes := recipesFromHints(sig, in.ContextHints, ingredientID)

	return models.Insight{
		ID:       InsightMarketStalePrice,
		Title:    fmt.Sprintf("Price of %s is out of date", in.Domain.IngredientName(ingredientID)),
		Summary:  fmt.Sprintf("The reference price was last updated %d days ago.", days),
		Why:      "Costs computed from stale prices drift away from what you actually pay.",
		Scope:    models.ScopeMarket,
		Severity: models.SeverityWarning,
		Evidence: []models.Evidence{
			{Label: "Days since update", Value: fmt.Sprintf("%d", days)},
		},
		Checklist: []string{"Ask the supplier for a current quote", "Update the reference price"},
		PriorityScore: Score(ScoreFactors{
			RecipesAffected: recipes,
			Risk:            RiskStalePrice,
		}),
		SignalID: sig.ID,
		Subject:  models.InsightSubject{IngredientID: ingredientID, RecipesAffected: recipes},
	}
}

func volatilityInsight(sig models.Signal, in InsightInput) models.Insight {
	ingredientID := sig.String("ingredientId")
	volatility := sig.FloatOr("volatilityPct", 0)
	recipes := recipesFromHints(sig, in.ContextHints, ingredientID)

	return models.Insight{
		ID:       InsightMarketVolatility,
		Title:    fmt.Sprintf("Price of %s is volatile", in.Domain.IngredientName(ingredientID)),
		Summary:  fmt.Sprintf("Recent prices moved by %s.", percent(volatility)),
		Why:      "Volatile inputs make recipe costs hard to predict.",
		Scope:    models.ScopeMarket,
		Severity: models.SeverityWarning,
		Evidence: []models.Evidence{
			{Label: "Volatility", Value: percent(volatility)},
		},
		PriorityScore: Score(ScoreFactors{
			ImpactPct:       volatility,
			RecipesAffected: recipes,
			Risk:            RiskVolatility,
		}),
		SignalID: sig.ID,
		Subject:  models.InsightSubject{IngredientID: ingredientID, DeltaPct: volatility, RecipesAffected: recipes},
	}
}

func bestPriceInsight(sig models.Signal, in InsightInput) models.Insight {
	ingredientID := sig.String("ingredientId")
	return models.Insight{
		ID:            InsightMarketBestPrice,
		Title:         "You are buying at the best price",
		Summary:       fmt.Sprintf("%s is already sourced from the cheapest supplier.", in.Domain.IngredientName(ingredientID)),
		Why:           "No supplier offers a lower price right now.",
		Scope:         models.ScopeMarket,
		Severity:      models.SeveritySuccess,
		PriorityScore: successScore(ScoreFactors{IsConfidenceHigh: true}),
		SignalID:      sig.ID,
		Subject:       models.InsightSubject{IngredientID: ingredientID},
	}
}
