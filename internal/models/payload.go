package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ActionType enumerates the executable state mutations.
type ActionType string

const (
	ActionSetReferenceSupplier ActionType = "ACTION_SET_REFERENCE_SUPPLIER"
	ActionSetCostMode          ActionType = "ACTION_SET_COST_MODE"
	ActionLinkStockItem        ActionType = "ACTION_LINK_STOCK_ITEM"
)

// CostMode selects how a recipe's cost is calculated.
type CostMode string

const (
	CostModeTheoretical CostMode = "theoretical"
	CostModeReal        CostMode = "real"
)

// ErrUnknownPayload is returned when decoding a payload of an unknown kind.
var ErrUnknownPayload = errors.New("unknown action payload kind")

// Payload is the typed data a suggestion hands to its executable action.
// Each variant belongs to exactly one ActionType.
type Payload interface {
	ActionType() ActionType
	// EntityIDs lists the entity keys the payload touches, used for snoozes.
	EntityIDs() []string
	Validate() error
}

// SetReferenceSupplier makes SupplierID the reference supplier of an ingredient.
type SetReferenceSupplier struct {
	IngredientID       string  `json:"ingredientId"`
	SupplierID         string  `json:"supplierId"`
	Price              float64 `json:"price"`
	PreviousSupplierID string  `json:"previousSupplierId,omitempty"`
	PreviousPrice      float64 `json:"previousPrice,omitempty"`
}

func (SetReferenceSupplier) ActionType() ActionType { return ActionSetReferenceSupplier }

func (p SetReferenceSupplier) EntityIDs() []string {
	return nonEmpty(p.IngredientID, p.SupplierID)
}

func (p SetReferenceSupplier) Validate() error {
	var missing []string
	if p.IngredientID == "" {
		missing = append(missing, "ingredientId")
	}
	if p.SupplierID == "" {
		missing = append(missing, "supplierId")
	}
	if p.Price <= 0 {
		missing = append(missing, "price")
	}
	return missingFields(missing)
}

// SetCostMode switches the cost calculation mode of a recipe.
type SetCostMode struct {
	RecipeID     string   `json:"recipeId"`
	Mode         CostMode `json:"mode"`
	PreviousMode CostMode `json:"previousMode,omitempty"`
}

func (SetCostMode) ActionType() ActionType { return ActionSetCostMode }

func (p SetCostMode) EntityIDs() []string { return nonEmpty(p.RecipeID) }

func (p SetCostMode) Validate() error {
	var missing []string
	if p.RecipeID == "" {
		missing = append(missing, "recipeId")
	}
	if p.Mode != CostModeReal && p.Mode != CostModeTheoretical {
		missing = append(missing, "mode")
	}
	return missingFields(missing)
}

// LinkStockItem links a stock item to an ingredient and marks it linked.
type LinkStockItem struct {
	StockItemID  string `json:"stockItemId"`
	IngredientID string `json:"ingredientId"`
}

func (LinkStockItem) ActionType() ActionType { return ActionLinkStockItem }

func (p LinkStockItem) EntityIDs() []string { return nonEmpty(p.IngredientID, p.StockItemID) }

func (p LinkStockItem) Validate() error {
	var missing []string
	if p.StockItemID == "" {
		missing = append(missing, "stockItemId")
	}
	if p.IngredientID == "" {
		missing = append(missing, "ingredientId")
	}
	return missingFields(missing)
}

type payloadEnvelope struct {
	Kind ActionType      `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// MarshalPayload encodes a payload with its kind discriminator. A nil payload
// encodes to nil.
func MarshalPayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload body: %w", err)
	}
	return json.Marshal(payloadEnvelope{Kind: p.ActionType(), Body: body})
}

// UnmarshalPayload decodes a payload produced by MarshalPayload.
func UnmarshalPayload(data []byte) (Payload, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}
	switch env.Kind {
	case ActionSetReferenceSupplier:
		var p SetReferenceSupplier
		if err := json.Unmarshal(env.Body, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return p, nil
	case ActionSetCostMode:
		var p SetCostMode
		if err := json.Unmarshal(env.Body, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return p, nil
	case ActionLinkStockItem:
		var p LinkStockItem
		if err := json.Unmarshal(env.Body, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPayload, env.Kind)
	}
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func missingFields(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return fmt.Errorf("missing required fields: %s", strings.Join(fields, ", "))
}
