package main

import (
	"context"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/pipeline"
)

const invalidateTimeout = 5 * time.Second

// startConfigWatcher starts watching the configuration file. A nil watcher
// is returned when watching is not possible; the gateway keeps running on
// the configuration it started with.
func startConfigWatcher(ctx context.Context, app *application, configPath string) *config.Watcher {
	logger := app.logger

	watcher, err := config.NewWatcher(configPath, func(cfg *config.Config) {
		reloadConfig(app, cfg)
	},
		config.WithLogger(logger),
		config.WithErrorCallback(func(err error) {
			logger.Error("config watcher error", observability.Error(err))
		}),
	)
	if err != nil {
		logger.Warn("config hot reload disabled", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}
	return watcher
}

// reloadConfig swaps in the rule tables built from cfg and drops cached
// tenants. Listener addresses, the cache backend and the tenant directory
// only change on restart.
func reloadConfig(app *application, cfg *config.Config) {
	logger := app.logger

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Error("rejected invalid configuration", observability.Error(err))
		return
	}
	if _, err := buildRouteTable(cfg); err != nil {
		logger.Error("rejected configuration with unclassified routes", observability.Error(err))
		return
	}

	snap, err := pipeline.BuildSnapshot(cfg, logger)
	if err != nil {
		logger.Error("failed to build rule tables", observability.Error(err))
		return
	}
	if err := app.pipeline.Reload(snap); err != nil {
		logger.Error("failed to reload pipeline", observability.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := app.resolver.InvalidateAll(ctx); err != nil {
		logger.Warn("failed to invalidate tenant cache", observability.Error(err))
	}

	logger.Info("configuration reloaded")
}
