package suggest

import (
	"fmt"
	"math"

	"github.com/miradorstack/mirador-intel/internal/engine"
	"github.com/miradorstack/mirador-intel/internal/models"
)

// Suggestion identifiers.
const (
	SuggestSwitchProvider = "SUGGEST_SWITCH_PROVIDER_PREVIEW"
	SuggestUseRealCost    = "SUGGEST_USE_REAL_COST_MODE"
	SuggestLinkStockItem  = "SUGGEST_LINK_STOCK_ITEM"
)

// Per-rule bars and derived confidences.
const (
	switchProviderMinScore   = engine.ScoreShow
	switchProviderConfidence = 85

	realCostMinScore   = 30
	realCostConfidence = 82

	linkStockMinScore = engine.ScoreShow
)

// Rule is one suggestion rule module.
type Rule struct {
	Name     string
	Generate func(insights []models.Insight) []models.Suggestion
}

// DefaultRules returns the market, cost and stock suggestion modules.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "market", Generate: MarketSuggestions},
		{Name: "cost", Generate: CostSuggestions},
		{Name: "stock", Generate: StockSuggestions},
	}
}

// MarketSuggestions proposes switching to the cheaper supplier behind a
// high-impact savings insight. Insights that do not name the ingredient and
// the cheaper supplier are skipped since the switch could never execute.
func MarketSuggestions(insights []models.Insight) []models.Suggestion {
	var out []models.Suggestion
	for _, ins := range insights {
		if ins.ID != engine.InsightMarketSavingsHighImpact || ins.PriorityScore < switchProviderMinScore {
			continue
		}
		sub := ins.Subject
		payload := models.SetReferenceSupplier{
			IngredientID:       sub.IngredientID,
			SupplierID:         sub.TargetSupplierID,
			Price:              sub.TargetPrice,
			PreviousSupplierID: sub.SupplierID,
			PreviousPrice:      sub.CurrentPrice,
		}
		if payload.Validate() != nil {
			continue
		}
		saving := math.Abs(sub.DeltaAbs)
		pct := math.Abs(sub.DeltaPct)

		out = append(out, models.Suggestion{
			ID:       SuggestSwitchProvider,
			Type:     models.SuggestionSwitchProvider,
			Scope:    models.ScopeMarket,
			Title:    "Switch to the cheaper supplier",
			Proposal: fmt.Sprintf("Use the best available price (%.2f) as the reference for this ingredient.", sub.TargetPrice),
			Why:      ins.Summary,
			Evidence: ins.Evidence,
			ExpectedImpact: models.ExpectedImpact{
				DeltaCostAbs:    models.Float64(-saving),
				DeltaCostPct:    models.Float64(-pct),
				RecipesAffected: sub.RecipesAffected,
			},
			ConfidenceScore: switchProviderConfidence,
			RiskLevel:       models.RiskLow,
			Reversibility:   models.ReversibilitySimple,
			Preview: models.Preview{
				Before: priceLine(sub.SupplierID, sub.CurrentPrice),
				After:  priceLine(sub.TargetSupplierID, sub.TargetPrice),
			},
			Actions:   models.SuggestionActions{Primary: "Preview change", Secondary: "Not now"},
			InsightID: ins.ID,
			Data:      payload,
		})
	}
	return out
}

// CostSuggestions proposes costing a recipe from real consumption when the
// gap to the theoretical cost is large enough.
func CostSuggestions(insights []models.Insight) []models.Suggestion {
	var out []models.Suggestion
	for _, ins := range insights {
		if ins.ID != engine.InsightCostRealAboveTheoretical || ins.PriorityScore < realCostMinScore {
			continue
		}
		sub := ins.Subject
		if models.CostMode(sub.CostMode) == models.CostModeReal {
			continue
		}
		previous := models.CostMode(sub.CostMode)
		if previous == "" {
			previous = models.CostModeTheoretical
		}

		out = append(out, models.Suggestion{
			ID:       SuggestUseRealCost,
			Type:     models.SuggestionSetCostMode,
			Scope:    models.ScopeCost,
			Title:    "Cost this recipe from real consumption",
			Proposal: "Switch the recipe to real cost mode so margins reflect what you actually spend.",
			Why:      ins.Summary,
			Evidence: ins.Evidence,
			ExpectedImpact: models.ExpectedImpact{
				DeltaCostAbs:    models.Float64(sub.DeltaAbs),
				DeltaCostPct:    models.Float64(sub.DeltaPct),
				RecipesAffected: 1,
			},
			ConfidenceScore: realCostConfidence,
			RiskLevel:       models.RiskLow,
			Reversibility:   models.ReversibilityInstant,
			Preview: models.Preview{
				Before: fmt.Sprintf("Cost mode: %s (%.2f)", previous, sub.CurrentPrice),
				After:  fmt.Sprintf("Cost mode: %s (%.2f)", models.CostModeReal, sub.TargetPrice),
			},
			Actions:   models.SuggestionActions{Primary: "Use real cost", Secondary: "Keep theoretical"},
			InsightID: ins.ID,
			Data: models.SetCostMode{
				RecipeID:     sub.RecipeID,
				Mode:         models.CostModeReal,
				PreviousMode: previous,
			},
		})
	}
	return out
}

// StockSuggestions proposes linking an unlinked stock item when the match to
// an ingredient is confident.
func StockSuggestions(insights []models.Insight) []models.Suggestion {
	var out []models.Suggestion
	for _, ins := range insights {
		if ins.ID != engine.InsightStockUnlinked || ins.PriorityScore < linkStockMinScore {
			continue
		}
		sub := ins.Subject
		if sub.MatchConfidence < engine.HighMatchConfidence || sub.StockItemID == "" || sub.IngredientID == "" {
			continue
		}

		out = append(out, models.Suggestion{
			ID:       SuggestLinkStockItem,
			Type:     models.SuggestionLinkStockItem,
			Scope:    models.ScopeStock,
			Title:    "Link the stock item to its ingredient",
			Proposal: fmt.Sprintf("Link stock item %s to ingredient %s.", sub.StockItemID, sub.IngredientID),
			Why:      ins.Summary,
			Evidence: ins.Evidence,
			ExpectedImpact: models.ExpectedImpact{
				RecipesAffected: sub.RecipesAffected,
			},
			ConfidenceScore: int(math.Round(sub.MatchConfidence * 100)),
			RiskLevel:       models.RiskLow,
			Reversibility:   models.ReversibilitySimple,
			Preview: models.Preview{
				Before: fmt.Sprintf("%s: unlinked", sub.StockItemID),
				After:  fmt.Sprintf("%s: linked to %s", sub.StockItemID, sub.IngredientID),
			},
			Actions:   models.SuggestionActions{Primary: "Link item", Secondary: "Review later"},
			InsightID: ins.ID,
			Data: models.LinkStockItem{
				StockItemID:  sub.StockItemID,
				IngredientID: sub.IngredientID,
			},
		})
	}
	return out
}

func priceLine(supplierID string, price float64) string {
	if supplierID == "" {
		return fmt.Sprintf("Reference price %.2f", price)
	}
	return fmt.Sprintf("%s at %.2f", supplierID, price)
}
