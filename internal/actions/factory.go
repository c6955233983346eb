package actions

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-intel/internal/models"
)

// MinConfidence is the bar a suggestion must clear to become executable.
const MinConfidence = 80

// executionPlan is descriptive metadata shown before confirmation.
var executionPlan = []models.PlanStep{
	{Step: "validate", Effect: "Check that the current state still matches the preview"},
	{Step: "apply", Effect: "Apply the change to the affected record"},
	{Step: "verify", Effect: "Confirm the record is consistent after the change"},
}

// CreateExecutableAction promotes an accepted suggestion to an action. It
// returns nil when the suggestion is below MinConfidence or of an unknown type.
func CreateExecutableAction(s models.Suggestion) *models.ExecutableAction {
	if s.ConfidenceScore < MinConfidence {
		return nil
	}
	actionType, ok := actionTypeFor(s.Type)
	if !ok {
		return nil
	}

	plan := make([]models.PlanStep, len(executionPlan))
	copy(plan, executionPlan)

	title, description := describe(actionType, s)
	return &models.ExecutableAction{
		ID:                   uuid.New().String(),
		OriginSuggestionID:   s.ID,
		Type:                 actionType,
		Scope:                s.Scope,
		Title:                title,
		Description:          description,
		Preview:              buildPreview(s),
		ExecutionPlan:        plan,
		Reversibility:        s.Reversibility,
		RiskLevel:            s.RiskLevel,
		RequiresConfirmation: true,
		Data:                 s.Data,
	}
}

func actionTypeFor(t models.SuggestionType) (models.ActionType, bool) {
	switch t {
	case models.SuggestionSwitchProvider:
		return models.ActionSetReferenceSupplier, true
	case models.SuggestionSetCostMode:
		return models.ActionSetCostMode, true
	case models.SuggestionLinkStockItem:
		return models.ActionLinkStockItem, true
	default:
		return "", false
	}
}

func describe(t models.ActionType, s models.Suggestion) (string, string) {
	switch t {
	case models.ActionSetReferenceSupplier:
		return "Set reference supplier", "Updates the ingredient's reference supplier and price. " + s.Proposal
	case models.ActionSetCostMode:
		return "Change cost mode", "Updates how the recipe cost is calculated. " + s.Proposal
	default:
		return "Link stock item", "Links the stock item to an ingredient and marks it as linked. " + s.Proposal
	}
}

func buildPreview(s models.Suggestion) models.ActionPreview {
	p := models.ActionPreview{Before: s.Preview.Before, After: s.Preview.After}
	if abs := s.ExpectedImpact.DeltaCostAbs; abs != nil {
		p.Delta = fmt.Sprintf("%+.2f", *abs)
		if pct := s.ExpectedImpact.DeltaCostPct; pct != nil && !math.IsNaN(*pct) {
			p.Delta += fmt.Sprintf(" (%+.1f%%)", *pct)
		}
	}
	if n := s.ExpectedImpact.RecipesAffected; n > 0 {
		if n == 1 {
			p.AffectedEntities = "1 recipe affected"
		} else {
			p.AffectedEntities = fmt.Sprintf("%d recipes affected", n)
		}
	}
	return p
}
