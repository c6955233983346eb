package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/miradorstack/mirador-intel/internal/actions"
	"github.com/miradorstack/mirador-intel/internal/cache"
	"github.com/miradorstack/mirador-intel/internal/config"
	"github.com/miradorstack/mirador-intel/internal/engine"
	"github.com/miradorstack/mirador-intel/internal/learning"
	"github.com/miradorstack/mirador-intel/internal/repo"
	"github.com/miradorstack/mirador-intel/internal/services"
	"github.com/miradorstack/mirador-intel/internal/suggest"
	"github.com/miradorstack/mirador-intel/internal/transparency"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// App holds the wired components of one engine process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    repo.DocumentStore
	Cache    cache.Provider
	Learning *learning.Engine
	Service  *services.IntelService
}

// NewApp opens the configured store and cache and wires the pipeline,
// learning engine and service on top of them.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	provider := openCache(cfg.Cache, logger)
	clock := utils.SystemClock{}

	checklists, err := engine.LoadChecklistPack(cfg.Rules.ChecklistPath, logger)
	if err != nil {
		_ = provider.Close()
		_ = store.Close(ctx)
		return nil, fmt.Errorf("load checklists: %w", err)
	}

	changelog := transparency.NewChangelog(store, cfg.Learning.ChangelogLimit, clock, logger)
	learn := learning.NewEngine(
		store,
		learning.NewProviderProfileCache(provider, cfg.Cache.ProfileTTL, logger),
		changelog,
		learning.Config{
			AutoSnoozeThreshold:  cfg.Learning.AutoSnoozeThreshold,
			AutoSnoozeDuration:   cfg.Learning.AutoSnoozeDuration,
			ManualSnoozeDuration: cfg.Learning.ManualSnoozeDuration,
		},
		clock,
		logger,
	)
	pipeline := engine.NewPipeline(logger, engine.NewInsightEngine(logger, nil), suggest.NewEngine(logger, nil, clock), clock).
		WithChecklists(checklists)

	service := services.NewIntelService(logger, services.Dependencies{
		Pipeline:  pipeline,
		Learning:  learn,
		Changelog: changelog,
		Executor:  actions.NewExecutor(logger),
		Auditor:   actions.NewAuditor(store, logger, clock),
		Catalog:   repo.NewCatalog(store, clock),
		Clock:     clock,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Cache:    provider,
		Learning: learn,
		Service:  service,
	}, nil
}

// Close releases the cache and store.
func (a *App) Close(ctx context.Context) {
	if err := a.Cache.Close(); err != nil {
		a.Logger.Warn("cache close failed", slog.Any("error", err))
	}
	if err := a.Store.Close(ctx); err != nil {
		a.Logger.Warn("store close failed", slog.Any("error", err))
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (repo.DocumentStore, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		store, err := repo.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("document store ready", slog.String("driver", cfg.Driver), slog.String("database", cfg.MongoDatabase))
		return store, nil
	case config.DriverSQLite:
		store, err := repo.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("document store ready", slog.String("driver", cfg.Driver), slog.String("path", cfg.SQLitePath))
		return store, nil
	case config.DriverMemory, "":
		logger.Info("document store ready", slog.String("driver", config.DriverMemory))
		return repo.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openCache returns the shared Valkey cache when it is configured and
// reachable, and an in-process cache otherwise.
func openCache(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if cfg.Enabled && cfg.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err == nil {
			return provider
		}
		logger.Warn("valkey cache unavailable, using in-process cache", slog.Any("error", err))
	}
	return cache.NewMemoryProvider(cfg.ProfileTTL, 0)
}
