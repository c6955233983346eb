package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// Catalog document collections.
const (
	CollectionIngredients = "ingredients"
	CollectionRecipes     = "recipes"
	CollectionStockItems  = "stock_items"
)

// StockStatusLinked marks a stock item that has been linked to an ingredient.
const StockStatusLinked = "linked"

// Catalog performs the executor's single-document mutations on a store.
type Catalog struct {
	store DocumentStore
	clock utils.Clock
}

// NewCatalog wraps store.
func NewCatalog(store DocumentStore, clock utils.Clock) *Catalog {
	return &Catalog{store: store, clock: utils.ClockOrSystem(clock)}
}

// SetReferenceSupplier sets the reference supplier and price of an ingredient.
func (c *Catalog) SetReferenceSupplier(ctx context.Context, ingredientID, supplierID string, price float64) error {
	return c.patch(ctx, Path(CollectionIngredients, ingredientID), map[string]any{
		"referenceSupplierId": supplierID,
		"referencePrice":      price,
	})
}

// SetCostMode sets how a recipe's cost is calculated.
func (c *Catalog) SetCostMode(ctx context.Context, recipeID string, mode models.CostMode) error {
	return c.patch(ctx, Path(CollectionRecipes, recipeID), map[string]any{
		"costMode": string(mode),
	})
}

// LinkStockItem links a stock item to an ingredient and marks it linked.
func (c *Catalog) LinkStockItem(ctx context.Context, stockItemID, ingredientID string) error {
	return c.patch(ctx, Path(CollectionStockItems, stockItemID), map[string]any{
		"ingredientId": ingredientID,
		"status":       StockStatusLinked,
	})
}

func (c *Catalog) patch(ctx context.Context, path string, fields map[string]any) error {
	if c == nil || c.store == nil {
		return fmt.Errorf("catalog not initialised")
	}
	fields["updatedAt"] = c.clock.Now().Format(time.RFC3339)
	if err := c.store.Patch(ctx, path, fields); err != nil {
		return fmt.Errorf("patch %s: %w", path, err)
	}
	return nil
}
