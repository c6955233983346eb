package models

import "encoding/json"

// SuggestionType identifies the template a suggestion was built from.
type SuggestionType string

const (
	SuggestionSwitchProvider SuggestionType = "switch_provider"
	SuggestionSetCostMode    SuggestionType = "set_cost_mode"
	SuggestionLinkStockItem  SuggestionType = "link_stock_item"
)

// RiskLevel grades how much could go wrong if the proposal is applied.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Reversibility grades how easily an applied change can be rolled back.
type Reversibility string

const (
	ReversibilityInstant Reversibility = "instant"
	ReversibilitySimple  Reversibility = "simple"
	ReversibilityManual  Reversibility = "manual"
)

// ExpectedImpact quantifies what applying a suggestion is expected to change.
type ExpectedImpact struct {
	DeltaCostAbs    *float64 `json:"deltaCostAbs,omitempty"`
	DeltaCostPct    *float64 `json:"deltaCostPct,omitempty"`
	RecipesAffected int      `json:"recipesAffected"`
}

// Preview is the before/after text pair shown before confirmation.
type Preview struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// SuggestionActions labels the buttons offered with a suggestion.
type SuggestionActions struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// Suggestion is an insight promoted to a user-confirmable proposal.
type Suggestion struct {
	ID              string            `json:"id"`
	Type            SuggestionType    `json:"type"`
	Scope           Scope             `json:"scope"`
	Title           string            `json:"title"`
	Proposal        string            `json:"proposal"`
	Why             string            `json:"why"`
	Evidence        []Evidence        `json:"evidence,omitempty"`
	ExpectedImpact  ExpectedImpact    `json:"expectedImpact"`
	ConfidenceScore int               `json:"confidenceScore"`
	RiskLevel       RiskLevel         `json:"riskLevel"`
	Reversibility   Reversibility     `json:"reversibility"`
	Preview         Preview           `json:"preview"`
	Actions         SuggestionActions `json:"actions"`
	InsightID       string            `json:"insightId,omitempty"`
	Data            Payload           `json:"-"`
}

// MarshalJSON encodes Data through the payload envelope.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	type alias Suggestion
	data, err := MarshalPayload(s.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Data json.RawMessage `json:"data,omitempty"`
	}{alias: alias(s), Data: data})
}

// UnmarshalJSON decodes Data through the payload envelope.
func (s *Suggestion) UnmarshalJSON(b []byte) error {
	type alias Suggestion
	aux := struct {
		*alias
		Data json.RawMessage `json:"data,omitempty"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	payload, err := UnmarshalPayload(aux.Data)
	if err != nil {
		return err
	}
	s.Data = payload
	return nil
}

// Float64 returns a pointer to v, for optional impact fields.
func Float64(v float64) *float64 {
	return &v
}
