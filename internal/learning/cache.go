package learning

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-intel/internal/cache"
	"github.com/miradorstack/mirador-intel/internal/models"
)

// ProfileCache memoises loaded profiles. Callers own invalidation.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (models.IntelProfile, bool)
	Set(ctx context.Context, profile models.IntelProfile)
	Invalidate(ctx context.Context, userID string)
}

// ProviderProfileCache stores profiles as JSON in a cache.Provider, so the
// same code serves the in-process and the shared Valkey cache.
type ProviderProfileCache struct {
	provider cache.Provider
	ttl      time.Duration
	logger   *slog.Logger
}

// NewProviderProfileCache wraps provider. A nil provider caches nothing.
func NewProviderProfileCache(provider cache.Provider, ttl time.Duration, logger *slog.Logger) *ProviderProfileCache {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderProfileCache{provider: provider, ttl: ttl, logger: logger}
}

func profileCacheKey(userID string) string {
	return "mirador-intel:profile:" + userID
}

func (c *ProviderProfileCache) Get(ctx context.Context, userID string) (models.IntelProfile, bool) {
	data, err := c.provider.Get(ctx, profileCacheKey(userID))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("profile cache read failed", slog.String("user_id", userID), slog.Any("error", err))
		}
		return models.IntelProfile{}, false
	}
	var p models.IntelProfile
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("profile cache entry corrupt", slog.String("user_id", userID), slog.Any("error", err))
		return models.IntelProfile{}, false
	}
	p.EnsureMaps()
	return p, true
}

func (c *ProviderProfileCache) Set(ctx context.Context, profile models.IntelProfile) {
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.provider.Set(ctx, profileCacheKey(profile.UserID), data, c.ttl); err != nil {
		c.logger.Warn("profile cache write failed", slog.String("user_id", profile.UserID), slog.Any("error", err))
	}
}

func (c *ProviderProfileCache) Invalidate(ctx context.Context, userID string) {
	if err := c.provider.Del(ctx, profileCacheKey(userID)); err != nil {
		c.logger.Warn("profile cache invalidate failed", slog.String("user_id", userID), slog.Any("error", err))
	}
}
