package models

import (
	"encoding/json"
	"time"
)

// ActionPreview extends the suggestion preview with formatted delta and
// affected entity descriptions.
type ActionPreview struct {
	Before           string `json:"before"`
	After            string `json:"after"`
	Delta            string `json:"delta,omitempty"`
	AffectedEntities string `json:"affectedEntities,omitempty"`
}

// PlanStep describes one step of an action's execution plan.
type PlanStep struct {
	Step   string `json:"step"`
	Effect string `json:"effect"`
}

// ExecutableAction is a suggestion promoted to a concrete typed mutation.
type ExecutableAction struct {
	ID                   string        `json:"id"`
	OriginSuggestionID   string        `json:"originSuggestionId"`
	Type                 ActionType    `json:"type"`
	Scope                Scope         `json:"scope"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	Preview              ActionPreview `json:"preview"`
	ExecutionPlan        []PlanStep    `json:"executionPlan"`
	Reversibility        Reversibility `json:"reversibility"`
	RiskLevel            RiskLevel     `json:"riskLevel"`
	RequiresConfirmation bool          `json:"requiresConfirmation"`
	Data                 Payload       `json:"-"`
}

// MarshalJSON encodes Data through the payload envelope.
func (a ExecutableAction) MarshalJSON() ([]byte, error) {
	type alias ExecutableAction
	data, err := MarshalPayload(a.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Data json.RawMessage `json:"data,omitempty"`
	}{alias: alias(a), Data: data})
}

// UnmarshalJSON decodes Data through the payload envelope.
func (a *ExecutableAction) UnmarshalJSON(b []byte) error {
	type alias ExecutableAction
	aux := struct {
		*alias
		Data json.RawMessage `json:"data,omitempty"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	payload, err := UnmarshalPayload(aux.Data)
	if err != nil {
		return err
	}
	a.Data = payload
	return nil
}

// AuditStatus is the outcome recorded for an executed action.
type AuditStatus string

const (
	AuditSuccess  AuditStatus = "success"
	AuditFailed   AuditStatus = "failed"
	AuditReverted AuditStatus = "reverted"
)

// AuditRecord is the append-only trace of an executed action.
type AuditRecord struct {
	ID        string            `json:"id"`
	ActionID  string            `json:"actionId"`
	Timestamp time.Time         `json:"timestamp"`
	UserID    string            `json:"userId"`
	Details   map[string]string `json:"details,omitempty"`
	Status    AuditStatus       `json:"status"`
}
