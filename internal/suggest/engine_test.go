package suggest

import (
	"testing"
	"time"

	"github.com/miradorstack/mirador-intel/internal/engine"
	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func candidate(confidence int, ingredientID string) models.Suggestion {
	return models.Suggestion{
		ID:              "S",
		Type:            models.SuggestionSwitchProvider,
		Scope:           models.ScopeMarket,
		ConfidenceScore: confidence,
		ExpectedImpact:  models.ExpectedImpact{DeltaCostAbs: models.Float64(-2)},
		Data:            models.SetReferenceSupplier{IngredientID: ingredientID, SupplierID: "sup_2", Price: 10},
	}
}

func fixedRule(out ...models.Suggestion) []Rule {
	return []Rule{{Name: "fixed", Generate: func([]models.Insight) []models.Suggestion { return out }}}
}

func TestAllowConfidenceFloor(t *testing.T) {
	if Allow(candidate(74, "")) {
		t.Fatalf("74 must be rejected")
	}
	if !Allow(candidate(75, "")) {
		t.Fatalf("75 must pass")
	}
}

func TestAllowMinimumImpact(t *testing.T) {
	s := candidate(90, "")
	s.ExpectedImpact.DeltaCostAbs = models.Float64(-0.49)
	if Allow(s) {
		t.Fatalf("impact below 0.50 must be rejected")
	}
	s.ExpectedImpact.DeltaCostAbs = nil
	if !Allow(s) {
		t.Fatalf("absent impact must not be checked")
	}
}

func TestAllowHighRiskPassesThrough(t *testing.T) {
	s := candidate(90, "")
	s.RiskLevel = models.RiskHigh
	if !Allow(s) {
		t.Fatalf("high risk is currently permitted")
	}
}

func TestGenerateFloorIgnoresProfile(t *testing.T) {
	profile := models.DefaultProfile("u1")
	profile.Visibility.ActiveConfidenceThreshold = 70
	e := NewEngine(nil, fixedRule(candidate(74, "ing_1")), utils.FixedClock{T: testNow})
	if got := e.Generate(nil, &profile); len(got) != 0 {
		t.Fatalf("expected floor to reject, got %+v", got)
	}
}

func TestGenerateProfileThreshold(t *testing.T) {
	profile := models.DefaultProfile("u1")
	profile.Visibility.ActiveConfidenceThreshold = 85
	e := NewEngine(nil, fixedRule(candidate(80, "ing_1")), utils.FixedClock{T: testNow})
	if got := e.Generate(nil, &profile); len(got) != 0 {
		t.Fatalf("expected threshold 85 to exclude 80, got %+v", got)
	}

	if got := e.Generate(nil, nil); len(got) != 1 {
		t.Fatalf("expected default threshold to admit 80, got %+v", got)
	}
}

func TestGenerateSnoozeSuppression(t *testing.T) {
	e := NewEngine(nil, fixedRule(candidate(85, "ing_1")), utils.FixedClock{T: testNow})

	profile := models.DefaultProfile("u1")
	profile.Snoozes.ByEntity["ing_1"] = models.Snooze{Until: testNow.Add(time.Hour), Reason: "user"}
	if got := e.Generate(nil, &profile); len(got) != 0 {
		t.Fatalf("expected snoozed entity to be excluded, got %+v", got)
	}

	profile.Snoozes.ByEntity["ing_1"] = models.Snooze{Until: testNow.Add(-time.Hour), Reason: "user"}
	if got := e.Generate(nil, &profile); len(got) != 1 {
		t.Fatalf("expected expired snooze to be ignored, got %+v", got)
	}
}

func TestGenerateCapsToOne(t *testing.T) {
	first := candidate(85, "ing_1")
	second := candidate(90, "ing_2")
	second.ID = "S2"
	e := NewEngine(nil, fixedRule(first, second), utils.FixedClock{T: testNow})

	got := e.Generate(nil, nil)
	if len(got) != 1 || got[0].ID != "S" {
		t.Fatalf("expected only the first candidate, got %+v", got)
	}
}

func TestGenerateOrdersByInsightPriority(t *testing.T) {
	insights := []models.Insight{
		{ID: engine.InsightStockUnlinked, PriorityScore: 40, Subject: models.InsightSubject{
			StockItemID: "stk_1", IngredientID: "ing_9", MatchConfidence: 0.92, RecipesAffected: 5,
		}},
		{ID: engine.InsightCostRealAboveTheoretical, PriorityScore: 36, Subject: models.InsightSubject{
			RecipeID: "rec_1", DeltaAbs: 1.2, DeltaPct: 25,
		}},
	}

	got := NewEngine(nil, nil, utils.FixedClock{T: testNow}).Generate(insights, nil)
	if len(got) != 1 || got[0].ID != SuggestLinkStockItem {
		t.Fatalf("expected the stock suggestion first, got %+v", got)
	}
	if got[0].ConfidenceScore != 92 {
		t.Fatalf("expected confidence 92, got %d", got[0].ConfidenceScore)
	}
}

func TestGenerateSurvivesPanickingRule(t *testing.T) {
	rules := []Rule{
		{Name: "broken", Generate: func([]models.Insight) []models.Suggestion { panic("nope") }},
		fixedRule(candidate(85, "ing_1"))[0],
	}
	if got := NewEngine(nil, rules, utils.FixedClock{T: testNow}).Generate(nil, nil); len(got) != 1 {
		t.Fatalf("expected healthy rule output, got %+v", got)
	}
}

func TestSwitchProviderFromHighImpactInsight(t *testing.T) {
	insights := engine.NewInsightEngine(nil, nil).Generate(engine.InsightInput{
		Signals: []models.Signal{{
			ID: engine.SignalMarketSavings,
			Meta: map[string]any{
				"deltaAbs": 2.5, "deltaPct": 15, "bestPrice": 10,
				"ingredientId": "ing_1", "bestSupplierId": "sup_b",
			},
		}},
		ContextHints: []models.ContextHint{{
			Metadata: models.HintMetadata{RecipeIDs: []string{"r1", "r2", "r3", "r4"}},
		}},
	})

	got := NewEngine(nil, nil, nil).Generate(insights, nil)
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %+v", got)
	}
	s := got[0]
	if s.ID != SuggestSwitchProvider || s.Type != models.SuggestionSwitchProvider {
		t.Fatalf("unexpected suggestion %s/%s", s.ID, s.Type)
	}
	if s.ConfidenceScore != 85 {
		t.Fatalf("expected confidence 85, got %d", s.ConfidenceScore)
	}
	if _, ok := s.Data.(models.SetReferenceSupplier); !ok {
		t.Fatalf("expected reference supplier payload, got %T", s.Data)
	}
}

func TestSwitchProviderNeedsTargetSupplier(t *testing.T) {
	ins := models.Insight{ID: engine.InsightMarketSavingsHighImpact, PriorityScore: 40, Subject: models.InsightSubject{
		IngredientID: "ing_1", TargetPrice: 10, DeltaAbs: 2.5,
	}}
	if got := MarketSuggestions([]models.Insight{ins}); len(got) != 0 {
		t.Fatalf("expected no suggestion without a target supplier, got %+v", got)
	}
	ins.Subject.TargetSupplierID = "sup_b"
	if got := MarketSuggestions([]models.Insight{ins}); len(got) != 1 {
		t.Fatalf("expected one suggestion once the supplier is known, got %+v", got)
	}
}

func TestGenerateMutedScopeDoesNotTakeTheSlot(t *testing.T) {
	market := candidate(90, "ing_1")
	cost := models.Suggestion{
		ID:              SuggestUseRealCost,
		Type:            models.SuggestionSetCostMode,
		Scope:           models.ScopeCost,
		ConfidenceScore: 82,
		ExpectedImpact:  models.ExpectedImpact{DeltaCostAbs: models.Float64(1.2)},
		Data:            models.SetCostMode{RecipeID: "rec_1", Mode: models.CostModeReal},
	}
	e := NewEngine(nil, fixedRule(market, cost), utils.FixedClock{T: testNow})

	profile := models.DefaultProfile("u1")
	profile.Mutes.ByScope[string(models.ScopeMarket)] = true
	got := e.Generate(nil, &profile)
	if len(got) != 1 || got[0].ID != SuggestUseRealCost {
		t.Fatalf("expected the cost suggestion to surface, got %+v", got)
	}
}

func TestCostSuggestionSkipsRecipesAlreadyOnRealCost(t *testing.T) {
	ins := models.Insight{ID: engine.InsightCostRealAboveTheoretical, PriorityScore: 40, Subject: models.InsightSubject{
		RecipeID: "rec_1", DeltaAbs: 2, CostMode: string(models.CostModeReal),
	}}
	if got := CostSuggestions([]models.Insight{ins}); len(got) != 0 {
		t.Fatalf("expected no suggestion, got %+v", got)
	}
	ins.Subject.CostMode = ""
	got := CostSuggestions([]models.Insight{ins})
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %+v", got)
	}
	payload := got[0].Data.(models.SetCostMode)
	if payload.Mode != models.CostModeReal || payload.PreviousMode != models.CostModeTheoretical {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestPipelineScopeMuteFallsBackToNextScope(t *testing.T) {
	in := engine.InsightInput{
		Signals: []models.Signal{
			{ID: engine.SignalMarketSavings, Meta: map[string]any{
				"deltaAbs": 2.5, "deltaPct": 15, "bestPrice": 10,
				"ingredientId": "ing_1", "bestSupplierId": "sup_b",
			}},
			{ID: engine.SignalCostRealAboveTheoretical, Meta: map[string]any{
				"recipeId": "rec_1", "realCost": 6.0, "theoreticalCost": 4.8,
				"deltaAbs": 1.2, "deltaPct": 25,
			}},
		},
		ContextHints: []models.ContextHint{{
			Metadata: models.HintMetadata{SignalID: engine.SignalMarketSavings, RecipeIDs: []string{"r1", "r2", "r3", "r4"}},
		}},
	}
	clock := utils.FixedClock{T: testNow}
	p := engine.NewPipeline(nil, nil, NewEngine(nil, nil, clock), clock)

	eval := p.Evaluate(in, nil)
	if len(eval.Suggestions) != 1 || eval.Suggestions[0].ID != SuggestSwitchProvider {
		t.Fatalf("expected the market suggestion without mutes, got %+v", eval.Suggestions)
	}

	profile := models.DefaultProfile("u1")
	profile.Mutes.ByScope[string(models.ScopeMarket)] = true
	eval = p.Evaluate(in, &profile)
	if len(eval.Suggestions) != 1 || eval.Suggestions[0].ID != SuggestUseRealCost {
		t.Fatalf("expected the cost suggestion with market muted, got %+v", eval.Suggestions)
	}
}
