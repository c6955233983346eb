package models

// Severity captures how urgently an insight should be read.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeveritySuccess  Severity = "success"
)

// Evidence is a labelled value shown next to an insight or suggestion.
type Evidence struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Insight is a scored, human-readable finding derived from signals.
type Insight struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	Why           string     `json:"why"`
	Evidence      []Evidence `json:"evidence,omitempty"`
	Scope         Scope      `json:"scope"`
	Severity      Severity   `json:"severity"`
	PriorityScore int        `json:"priorityScore"`
	Checklist     []string   `json:"checklist,omitempty"`
	// MinScore is the score the insight must reach to be shown when no
	// blocking insight is present. Zero means the default show bar.
	MinScore int            `json:"minScore,omitempty"`
	Subject  InsightSubject `json:"subject"`
	SignalID string         `json:"signalId,omitempty"`
}

// InsightSubject holds the typed entities and magnitudes a suggestion rule
// needs to build a proposal from the insight.
type InsightSubject struct {
	IngredientID     string  `json:"ingredientId,omitempty"`
	RecipeID         string  `json:"recipeId,omitempty"`
	SupplierID       string  `json:"supplierId,omitempty"`
	TargetSupplierID string  `json:"targetSupplierId,omitempty"`
	StockItemID      string  `json:"stockItemId,omitempty"`
	CurrentPrice     float64 `json:"currentPrice,omitempty"`
	TargetPrice      float64 `json:"targetPrice,omitempty"`
	DeltaAbs         float64 `json:"deltaAbs,omitempty"`
	DeltaPct         float64 `json:"deltaPct,omitempty"`
	RecipesAffected  int     `json:"recipesAffected,omitempty"`
	MatchConfidence  float64 `json:"matchConfidence,omitempty"`
	CostMode         string  `json:"costMode,omitempty"`
}
