package transparency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/repo"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

const (
	// Collection holds one rolling changelog document per user.
	Collection = "intel_changelog"
	// DefaultLimit caps the number of entries kept per user.
	DefaultLimit = 50
	// RuleManualReset marks the entry written by ResetToDefaults.
	RuleManualReset = "manual_reset"
)

type changelogDocument struct {
	UserID  string                       `json:"userId"`
	Entries []models.IntelChangeLogEntry `json:"entries"`
}

// ProfileResetter restores a user's profile to its defaults.
type ProfileResetter interface {
	ResetProfile(ctx context.Context, userID string) (models.IntelProfile, error)
}

// Changelog keeps a capped, most-recent-first list of profile changes per
// user, separate from the raw event log.
type Changelog struct {
	store  repo.DocumentStore
	limit  int
	clock  utils.Clock
	logger *slog.Logger

	// serialises read-modify-write of a document within this process
	mu sync.Mutex
}

// NewChangelog creates a changelog over store. A non-positive limit uses
// DefaultLimit.
func NewChangelog(store repo.DocumentStore, limit int, clock utils.Clock, logger *slog.Logger) *Changelog {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Changelog{store: store, limit: limit, clock: utils.ClockOrSystem(clock), logger: logger}
}

func documentPath(userID string) string {
	return repo.Path(Collection, userID)
}

// Record prepends entry to the user's log. Failures are logged only.
func (c *Changelog) Record(ctx context.Context, userID string, entry models.IntelChangeLogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = c.clock.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load(ctx, userID)
	if err != nil {
		c.logger.Warn("changelog read failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	doc.Entries = append([]models.IntelChangeLogEntry{entry}, doc.Entries...)
	if len(doc.Entries) > c.limit {
		doc.Entries = doc.Entries[:c.limit]
	}
	if err := c.store.Save(ctx, documentPath(userID), doc); err != nil {
		c.logger.Warn("changelog write failed", slog.String("user_id", userID), slog.Any("error", err))
	}
}

// Entries returns the user's log, most recent first.
func (c *Changelog) Entries(ctx context.Context, userID string) ([]models.IntelChangeLogEntry, error) {
	doc, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// ResetToDefaults resets the profile, clears the log and leaves a single
// manual reset entry behind.
func (c *Changelog) ResetToDefaults(ctx context.Context, userID string, resetter ProfileResetter) (models.IntelProfile, error) {
	profile, err := resetter.ResetProfile(ctx, userID)
	if err != nil {
		return models.IntelProfile{}, err
	}
	entry := models.IntelChangeLogEntry{
		ID:          uuid.New().String(),
		Timestamp:   c.clock.Now(),
		RuleID:      RuleManualReset,
		Description: "Preferences restored to defaults",
		Reversible:  false,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	doc := changelogDocument{UserID: userID, Entries: []models.IntelChangeLogEntry{entry}}
	if err := c.store.Save(ctx, documentPath(userID), doc); err != nil {
		return profile, fmt.Errorf("reset changelog: %w", err)
	}
	return profile, nil
}

func (c *Changelog) load(ctx context.Context, userID string) (changelogDocument, error) {
	var doc changelogDocument
	err := c.store.Load(ctx, documentPath(userID), &doc)
	if errors.Is(err, repo.ErrNotFound) {
		return changelogDocument{UserID: userID}, nil
	}
	if err != nil {
		return changelogDocument{}, err
	}
	doc.UserID = userID
	return doc, nil
}
