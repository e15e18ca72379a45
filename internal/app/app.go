// Package app wires configuration into a ready lookup service.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kr1s57/lookupx/internal/adapter/cache"
	"github.com/kr1s57/lookupx/internal/adapter/external/riskintel"
	"github.com/kr1s57/lookupx/internal/config"
	"github.com/kr1s57/lookupx/internal/usecase/lookup"
)

// App holds the wired components of the lookup service
type App struct {
	Service    *lookup.Service
	Dispatcher *riskintel.Dispatcher
	Cache      cache.Store
	logger     *slog.Logger
}

// Build connects the cache backend, registers providers and creates the service
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	providers, err := providerConfigs(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry, err := riskintel.NewRegistry(providers)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("provider registry: %w", err)
	}
	logger.Info("[PROVIDERS] Registered providers", "providers", registry.Names())

	dispatcher := riskintel.NewDispatcher(riskintel.DispatcherConfig{
		Registry: registry,
		Cache:    store,
		CacheTTL: cfg.Cache.TTL,
		Timeout:  cfg.Providers.Timeout,
		Dedup:    cfg.Providers.Dedup,
		Logger:   logger,
	})

	svcCfg := lookup.Config{
		BatchSize: cfg.Batch.Size,
		MaxBatch:  cfg.Batch.MaxIdentifiers,
		Logger:    logger,
	}
	if reporter, ok := store.(cache.StatsReporter); ok {
		svcCfg.Stats = reporter
	}

	return &App{
		Service:    lookup.NewService(dispatcher, svcCfg),
		Dispatcher: dispatcher,
		Cache:      store,
		logger:     logger,
	}, nil
}

// Close releases the cache backend
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.logger.Warn("[CACHE] Failed to close cache", "error", err)
	}
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, error) {
	if cfg.Cache.RedisURL == "" {
		logger.Info("[CACHE] Using in-memory cache", "ttl", cfg.Cache.TTL)
		return cache.NewMemoryStore(cfg.Cache.CleanupInterval), nil
	}

	store, err := cache.NewRedisStore(cfg.Cache.RedisURL)
	if err != nil {
		return nil, err
	}
	// An unreachable server only costs cache hits; lookups stay fresh until it returns
	if err := store.Ping(ctx); err != nil {
		logger.Warn("[CACHE] Redis unreachable, lookups will bypass the cache until it recovers", "error", err)
	} else {
		logger.Info("[CACHE] Using Redis cache", "ttl", cfg.Cache.TTL)
	}
	return store, nil
}

func providerConfigs(cfg *config.Config) ([]riskintel.ProviderConfig, error) {
	providers := riskintel.DefaultProviders(riskintel.DefaultsConfig{
		Credentials:       cfg.Providers.Credentials,
		Timeout:           cfg.Providers.Timeout,
		DisposableDomains: cfg.Providers.DisposableDomains,
	})

	if cfg.Providers.PolicyFile == "" {
		return providers, nil
	}

	policy, err := riskintel.LoadPolicyFile(cfg.Providers.PolicyFile)
	if err != nil {
		return nil, err
	}
	return policy.Apply(providers)
}
