package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-intel/internal/metrics"
	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/repo"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// Storage layout.
const (
	ProfilesCollection = "intel_profiles"
	EventsCollection   = "intel_events"
)

// Config tunes the learning rules.
type Config struct {
	AutoSnoozeThreshold  int
	AutoSnoozeDuration   time.Duration
	ManualSnoozeDuration time.Duration
}

// DefaultConfig returns the documented rule settings.
func DefaultConfig() Config {
	return Config{
		AutoSnoozeThreshold:  3,
		AutoSnoozeDuration:   utils.Days(14),
		ManualSnoozeDuration: utils.Days(7),
	}
}

// ChangeRecorder receives a human-readable entry for every profile change.
type ChangeRecorder interface {
	Record(ctx context.Context, userID string, entry models.IntelChangeLogEntry)
}

// Engine records behavioural events and keeps each user's profile tuned.
type Engine struct {
	store   repo.DocumentStore
	cache   ProfileCache
	changes ChangeRecorder
	rules   []Rule
	cfg     Config
	clock   utils.Clock
	logger  *slog.Logger
}

// NewEngine wires the learning engine. cache and changes may be nil.
func NewEngine(store repo.DocumentStore, profileCache ProfileCache, changes ChangeRecorder, cfg Config, clock utils.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if profileCache == nil {
		profileCache = NewProviderProfileCache(nil, 0, logger)
	}
	def := DefaultConfig()
	if cfg.AutoSnoozeThreshold <= 0 {
		cfg.AutoSnoozeThreshold = def.AutoSnoozeThreshold
	}
	if cfg.AutoSnoozeDuration <= 0 {
		cfg.AutoSnoozeDuration = def.AutoSnoozeDuration
	}
	if cfg.ManualSnoozeDuration <= 0 {
		cfg.ManualSnoozeDuration = def.ManualSnoozeDuration
	}
	return &Engine{
		store:   store,
		cache:   profileCache,
		changes: changes,
		rules:   DefaultRules(),
		cfg:     cfg,
		clock:   utils.ClockOrSystem(clock),
		logger:  logger,
	}
}

func profilePath(userID string) string {
	return repo.Path(ProfilesCollection, userID)
}

// TrackEvent records a single event. See TrackEvents.
func (e *Engine) TrackEvent(ctx context.Context, userID string, event models.LearningEvent) models.IntelProfile {
	return e.TrackEvents(ctx, userID, []models.LearningEvent{event})
}

// TrackEvents stamps and appends events, applies the learning rules to the
// batch and saves the clamped profile. Persistence failures are logged and
// never returned. Concurrent calls for the same user are not serialised:
// each reads the stored profile and the last save wins.
func (e *Engine) TrackEvents(ctx context.Context, userID string, events []models.LearningEvent) models.IntelProfile {
	now := e.clock.Now()
	log := e.logger.With(slog.String("user_id", userID))

	stamped := make([]models.LearningEvent, 0, len(events))
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = now
		}
		ev.UserID = userID
		if err := e.store.Append(ctx, EventsCollection, ev); err != nil {
			log.Warn("event append failed", slog.String("event_type", string(ev.Type)), slog.Any("error", err))
		}
		metrics.ObserveLearningEvent(ev.Type)
		stamped = append(stamped, ev)
	}

	profile, err := e.loadOrCreate(ctx, userID)
	if err != nil {
		log.Error("profile load failed, skipping learning", slog.Any("error", err))
		return models.DefaultProfile(userID)
	}

	var changes []models.IntelChangeLogEntry
	if !IsFrozen(profile) {
		for _, rule := range e.rules {
			changes = append(changes, rule(stamped, &profile, now, e.cfg)...)
		}
	}
	for _, ev := range stamped {
		profile.History.TuningCounters[string(ev.Type)]++
	}
	if len(changes) > 0 {
		profile.Version++
		profile.History.LastTunedAt = now
	}

	profile = e.save(ctx, profile, now)
	for _, change := range changes {
		log.Info("profile tuned", slog.String("rule", change.RuleID), slog.String("description", change.Description))
		e.record(ctx, userID, change)
	}
	return profile
}

// GetProfile returns the user's profile, creating and persisting the
// defaults on first access.
func (e *Engine) GetProfile(ctx context.Context, userID string) (models.IntelProfile, error) {
	if userID == "" {
		return models.IntelProfile{}, errors.New("user id is required")
	}
	return e.loadOrCreate(ctx, userID)
}

// VisibilityPatch carries optional visibility updates.
type VisibilityPatch struct {
	AssistedMinimumToShow     *int `json:"assisted_minimum_to_show,omitempty"`
	ActiveConfidenceThreshold *int `json:"active_confidence_threshold,omitempty"`
	MaxVisibleInsightsDefault *int `json:"max_visible_insights_default,omitempty"`
}

// WeightsPatch carries optional weight updates.
type WeightsPatch struct {
	ImpactAbsEUR    *float64 `json:"impactAbsEUR,omitempty"`
	RecipesAffected *float64 `json:"recipesAffected,omitempty"`
	ImpactPct       *float64 `json:"impactPct,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
}

// ProfilePatch is a partial profile update. Mute entries set to false and
// snooze entries set to null are removed.
type ProfilePatch struct {
	Visibility  *VisibilityPatch          `json:"visibility,omitempty"`
	Weights     *WeightsPatch             `json:"weights,omitempty"`
	MuteScopes  map[string]bool           `json:"muteScopes,omitempty"`
	MuteSignals map[string]bool           `json:"muteSignals,omitempty"`
	Snoozes     map[string]*models.Snooze `json:"snoozes,omitempty"`
}

// UpdateProfile merges patch into the stored profile, clamps and saves it.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (models.IntelProfile, error) {
	profile, err := e.GetProfile(ctx, userID)
	if err != nil {
		return models.IntelProfile{}, err
	}
	now := e.clock.Now()
	before := describeVisibility(profile.Visibility)

	applyPatch(&profile, patch)
	profile.Version++
	profile = ClampProfile(profile)
	profile.UpdatedAt = now

	if err := e.store.Save(ctx, profilePath(userID), profile); err != nil {
		metrics.ObserveProfileWrite(err)
		return models.IntelProfile{}, fmt.Errorf("save profile: %w", err)
	}
	metrics.ObserveProfileWrite(nil)
	e.cache.Set(ctx, profile)
	e.record(ctx, userID, changeEntry(now, RuleManualUpdate, "Preferences updated", before, describeVisibility(profile.Visibility), ""))
	return profile, nil
}

// ResetProfile overwrites the profile with the documented defaults.
func (e *Engine) ResetProfile(ctx context.Context, userID string) (models.IntelProfile, error) {
	if userID == "" {
		return models.IntelProfile{}, errors.New("user id is required")
	}
	profile := ClampProfile(models.DefaultProfile(userID))
	profile.UpdatedAt = e.clock.Now()
	e.cache.Invalidate(ctx, userID)
	if err := e.store.Save(ctx, profilePath(userID), profile); err != nil {
		metrics.ObserveProfileWrite(err)
		return models.IntelProfile{}, fmt.Errorf("save profile: %w", err)
	}
	metrics.ObserveProfileWrite(nil)
	e.cache.Set(ctx, profile)
	return profile, nil
}

// PruneExpiredSnoozes removes snoozes whose deadline has passed and returns
// how many were removed.
func (e *Engine) PruneExpiredSnoozes(ctx context.Context, userID string) (int, error) {
	profile, err := e.GetProfile(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := e.clock.Now()
	removed := 0
	for id, s := range profile.Snoozes.ByEntity {
		if !s.Active(now) {
			delete(profile.Snoozes.ByEntity, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	profile = ClampProfile(profile)
	profile.UpdatedAt = now
	if err := e.store.Save(ctx, profilePath(userID), profile); err != nil {
		metrics.ObserveProfileWrite(err)
		return 0, fmt.Errorf("save profile: %w", err)
	}
	metrics.ObserveProfileWrite(nil)
	e.cache.Set(ctx, profile)
	return removed, nil
}

// ListUserIDs returns every user with a stored profile.
func (e *Engine) ListUserIDs(ctx context.Context) ([]string, error) {
	keys, err := e.store.List(ctx, ProfilesCollection+"/")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(ProfilesCollection)+1:])
	}
	return ids, nil
}

// InvalidateProfile drops the cached copy of a user's profile.
func (e *Engine) InvalidateProfile(ctx context.Context, userID string) {
	e.cache.Invalidate(ctx, userID)
}

func (e *Engine) loadOrCreate(ctx context.Context, userID string) (models.IntelProfile, error) {
	if p, ok := e.cache.Get(ctx, userID); ok {
		return p, nil
	}

	var profile models.IntelProfile
	err := e.store.Load(ctx, profilePath(userID), &profile)
	switch {
	case err == nil:
		profile.UserID = userID
		profile.EnsureMaps()
		e.cache.Set(ctx, profile)
		return profile, nil
	case errors.Is(err, repo.ErrNotFound):
		profile = models.DefaultProfile(userID)
		profile.UpdatedAt = e.clock.Now()
		if err := e.store.Save(ctx, profilePath(userID), profile); err != nil {
			metrics.ObserveProfileWrite(err)
			e.logger.Warn("default profile save failed", slog.String("user_id", userID), slog.Any("error", err))
		} else {
			metrics.ObserveProfileWrite(nil)
		}
		e.cache.Set(ctx, profile)
		return profile, nil
	default:
		return models.IntelProfile{}, fmt.Errorf("load profile: %w", err)
	}
}

func (e *Engine) save(ctx context.Context, profile models.IntelProfile, now time.Time) models.IntelProfile {
	profile = ClampProfile(profile)
	profile.UpdatedAt = now
	err := e.store.Save(ctx, profilePath(profile.UserID), profile)
	metrics.ObserveProfileWrite(err)
	if err != nil {
		e.logger.Warn("profile save failed", slog.String("user_id", profile.UserID), slog.Any("error", err))
		e.cache.Invalidate(ctx, profile.UserID)
		return profile
	}
	e.cache.Set(ctx, profile)
	return profile
}

func (e *Engine) record(ctx context.Context, userID string, entry models.IntelChangeLogEntry) {
	if e.changes == nil {
		return
	}
	e.changes.Record(ctx, userID, entry)
}

func applyPatch(p *models.IntelProfile, patch ProfilePatch) {
	p.EnsureMaps()
	if v := patch.Visibility; v != nil {
		if v.AssistedMinimumToShow != nil {
			p.Visibility.AssistedMinimumToShow = *v.AssistedMinimumToShow
		}
		if v.ActiveConfidenceThreshold != nil {
			p.Visibility.ActiveConfidenceThreshold = *v.ActiveConfidenceThreshold
		}
		if v.MaxVisibleInsightsDefault != nil {
			p.Visibility.MaxVisibleInsightsDefault = *v.MaxVisibleInsightsDefault
		}
	}
	if w := patch.Weights; w != nil {
		if w.ImpactAbsEUR != nil {
			p.Weights.ImpactAbsEUR = *w.ImpactAbsEUR
		}
		if w.RecipesAffected != nil {
			p.Weights.RecipesAffected = *w.RecipesAffected
		}
		if w.ImpactPct != nil {
			p.Weights.ImpactPct = *w.ImpactPct
		}
		if w.Confidence != nil {
			p.Weights.Confidence = *w.Confidence
		}
	}
	for scope, muted := range patch.MuteScopes {
		if muted {
			p.Mutes.ByScope[scope] = true
		} else {
			delete(p.Mutes.ByScope, scope)
		}
	}
	for signal, muted := range patch.MuteSignals {
		if muted {
			p.Mutes.BySignalID[signal] = true
		} else {
			delete(p.Mutes.BySignalID, signal)
		}
	}
	for entity, snooze := range patch.Snoozes {
		if snooze == nil {
			delete(p.Snoozes.ByEntity, entity)
			continue
		}
		p.Snoozes.ByEntity[entity] = *snooze
	}
}

func describeVisibility(v models.Visibility) string {
	return fmt.Sprintf("show>=%d confidence>=%d visible=%d",
		v.AssistedMinimumToShow, v.ActiveConfidenceThreshold, v.MaxVisibleInsightsDefault)
}
