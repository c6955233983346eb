package models

import (
	"encoding/json"
	"strconv"
)

// Scope groups insights, suggestions and actions by business area.
type Scope string

const (
	ScopeMarket Scope = "market"
	ScopeCost   Scope = "cost"
	ScopeStock  Scope = "stock"
)

// Signal is a raw observation produced by the domain evaluators. Meta carries
// the evaluator-specific magnitudes and identifiers.
type Signal struct {
	ID   string         `json:"id"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Float returns the numeric meta value stored under key.
func (s Signal) Float(key string) (float64, bool) {
	v, ok := s.Meta[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FloatOr returns the numeric meta value or fallback when absent.
func (s Signal) FloatOr(key string, fallback float64) float64 {
	if v, ok := s.Float(key); ok {
		return v
	}
	return fallback
}

// String returns the string meta value stored under key, or "".
func (s Signal) String(key string) string {
	v, ok := s.Meta[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return ""
}

// ContextHint is an externally computed hint that enriches signal evaluation.
type ContextHint struct {
	ID        string       `json:"id"`
	Message   string       `json:"message"`
	Type      string       `json:"type"`
	Relevance float64      `json:"relevance"`
	Metadata  HintMetadata `json:"metadata"`
}

// HintMetadata links a hint to the entities it concerns.
type HintMetadata struct {
	SignalID     string   `json:"signalId,omitempty"`
	IngredientID string   `json:"ingredientId,omitempty"`
	SupplierID   string   `json:"supplierId,omitempty"`
	RecipeIDs    []string `json:"recipeIds,omitempty"`
}

// DomainContext carries display data shared by every rule module in one pass.
type DomainContext struct {
	Currency        string            `json:"currency,omitempty"`
	IngredientNames map[string]string `json:"ingredientNames,omitempty"`
	SupplierNames   map[string]string `json:"supplierNames,omitempty"`
	RecipeNames     map[string]string `json:"recipeNames,omitempty"`
}

// CurrencySymbol returns the configured currency or the euro sign.
func (d DomainContext) CurrencySymbol() string {
	if d.Currency == "" {
		return "€"
	}
	return d.Currency
}

// IngredientName resolves a display name, falling back to the id.
func (d DomainContext) IngredientName(id string) string {
	if name, ok := d.IngredientNames[id]; ok && name != "" {
		return name
	}
	return id
}

// SupplierName resolves a display name, falling back to the id.
func (d DomainContext) SupplierName(id string) string {
	if name, ok := d.SupplierNames[id]; ok && name != "" {
		return name
	}
	return id
}

// RecipeName resolves a display name, falling back to the id.
func (d DomainContext) RecipeName(id string) string {
	if name, ok := d.RecipeNames[id]; ok && name != "" {
		return name
	}
	return id
}
