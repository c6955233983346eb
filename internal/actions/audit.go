package actions

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// AuditCollection is the append-only log executed actions are written to.
const AuditCollection = "intel_audit"

// AuditLog is the append-only side of the document store.
type AuditLog interface {
	Append(ctx context.Context, collection string, record any) error
}

// Auditor writes audit records for executed actions.
type Auditor struct {
	log    AuditLog
	logger *slog.Logger
	clock  utils.Clock
}

// NewAuditor constructs an auditor.
func NewAuditor(log AuditLog, logger *slog.Logger, clock utils.Clock) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{log: log, logger: logger, clock: utils.ClockOrSystem(clock)}
}

// LogActionExecution appends a success record for action. Storage failures
// are logged and reported as false.
func (a *Auditor) LogActionExecution(ctx context.Context, action *models.ExecutableAction, userID string, details map[string]string) bool {
	if action == nil || a.log == nil {
		return false
	}
	merged := map[string]string{
		"type":               string(action.Type),
		"originSuggestionId": action.OriginSuggestionID,
	}
	for k, v := range details {
		merged[k] = v
	}
	record := models.AuditRecord{
		ID:        uuid.New().String(),
		ActionID:  action.ID,
		Timestamp: a.clock.Now(),
		UserID:    userID,
		Details:   merged,
		Status:    models.AuditSuccess,
	}
	if err := a.log.Append(ctx, AuditCollection, record); err != nil {
		a.logger.Error("audit append failed",
			slog.String("action_id", action.ID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return false
	}
	return true
}
