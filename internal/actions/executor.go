package actions

import (
	"context"
	"log/slog"

	"github.com/miradorstack/mirador-intel/internal/metrics"
	"github.com/miradorstack/mirador-intel/internal/models"
)

// Catalog is the storage collaborator the handlers mutate. Each method sets
// only the fields it owns.
type Catalog interface {
	SetReferenceSupplier(ctx context.Context, ingredientID, supplierID string, price float64) error
	SetCostMode(ctx context.Context, recipeID string, mode models.CostMode) error
	LinkStockItem(ctx context.Context, stockItemID, ingredientID string) error
}

// ExecutionContext is supplied at click time.
type ExecutionContext struct {
	Catalog Catalog
	UserID  string
}

// Executor dispatches actions to their typed handler.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor constructs an executor.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger}
}

// Execute performs the action's single mutation. It reports false on any
// failure and never panics or returns an error to the caller.
func (e *Executor) Execute(ctx context.Context, action *models.ExecutableAction, ec ExecutionContext) bool {
	if action == nil {
		e.logger.Warn("execute called without action")
		return false
	}
	log := e.logger.With(
		slog.String("action_id", action.ID),
		slog.String("action_type", string(action.Type)),
		slog.String("user_id", ec.UserID),
	)
	ok := e.dispatch(ctx, log, action, ec)
	metrics.ObserveActionExecution(action.Type, ok)
	return ok
}

func (e *Executor) dispatch(ctx context.Context, log *slog.Logger, action *models.ExecutableAction, ec ExecutionContext) bool {
	if ec.Catalog == nil {
		log.Error("no catalog in execution context")
		return false
	}
	if action.Data == nil {
		log.Error("action has no payload")
		return false
	}
	if action.Data.ActionType() != action.Type {
		log.Error("payload does not belong to action type", slog.String("payload_type", string(action.Data.ActionType())))
		return false
	}
	if err := action.Data.Validate(); err != nil {
		log.Error("invalid action payload", slog.Any("error", err))
		return false
	}

	var err error
	switch p := action.Data.(type) {
	case models.SetReferenceSupplier:
		err = ec.Catalog.SetReferenceSupplier(ctx, p.IngredientID, p.SupplierID, p.Price)
	case models.SetCostMode:
		err = ec.Catalog.SetCostMode(ctx, p.RecipeID, p.Mode)
	case models.LinkStockItem:
		err = ec.Catalog.LinkStockItem(ctx, p.StockItemID, p.IngredientID)
	default:
		log.Error("unknown action payload", slog.String("payload", describePayload(p)))
		return false
	}
	if err != nil {
		log.Error("action handler failed", slog.Any("error", err))
		return false
	}
	log.Info("action executed")
	return true
}

func describePayload(p models.Payload) string {
	if p == nil {
		return "<nil>"
	}
	return string(p.ActionType())
}
