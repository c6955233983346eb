package models

import "time"

// LearningEventType enumerates the user interactions the learning engine records.
type LearningEventType string

const (
	EventInsightViewed       LearningEventType = "insight_viewed"
	EventInsightExpanded     LearningEventType = "insight_expanded"
	EventSuggestionViewed    LearningEventType = "suggestion_viewed"
	EventSuggestionAccepted  LearningEventType = "suggestion_accepted"
	EventSuggestionDismissed LearningEventType = "suggestion_dismissed"
	EventSuggestionSnoozed   LearningEventType = "suggestion_snoozed"
	EventActionPreviewed     LearningEventType = "action_previewed"
	EventActionExecuted      LearningEventType = "action_executed"
	EventActionFailed        LearningEventType = "action_failed"
	EventActionUndone        LearningEventType = "action_undone"
)

// EventEntity names the business entity an event refers to.
type EventEntity struct {
	RecipeID     string `json:"recipeId,omitempty"`
	IngredientID string `json:"ingredientId,omitempty"`
	SupplierID   string `json:"supplierId,omitempty"`
}

// Key returns the entity id used for snoozes: ingredient, then supplier,
// then recipe.
func (e EventEntity) Key() string {
	switch {
	case e.IngredientID != "":
		return e.IngredientID
	case e.SupplierID != "":
		return e.SupplierID
	default:
		return e.RecipeID
	}
}

// EventMeta carries the scores shown to the user when the event happened.
type EventMeta struct {
	Confidence      *float64 `json:"confidence,omitempty"`
	PriorityScore   *float64 `json:"priorityScore,omitempty"`
	ImpactAbs       *float64 `json:"impactAbs,omitempty"`
	ImpactPct       *float64 `json:"impactPct,omitempty"`
	RecipesAffected *int     `json:"recipesAffected,omitempty"`
}

// LearningEvent is one recorded user interaction.
type LearningEvent struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	UserID       string            `json:"userId"`
	Type         LearningEventType `json:"type"`
	Scope        Scope             `json:"scope,omitempty"`
	Entity       EventEntity       `json:"entity"`
	SignalIDs    []string          `json:"signalIds,omitempty"`
	InsightID    string            `json:"insightId,omitempty"`
	SuggestionID string            `json:"suggestionId,omitempty"`
	ActionID     string            `json:"actionId,omitempty"`
	Meta         EventMeta         `json:"meta"`
}
