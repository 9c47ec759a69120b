package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// runGateway starts the gateway and blocks until ctx is cancelled or a
// shutdown signal arrives.
func runGateway(ctx context.Context, app *application, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.gateway.Start(ctx); err != nil {
		app.closeResources(context.Background())
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	app.logger.Info("edgegate started",
		observability.String("public", app.gateway.PublicAddr()),
		observability.String("ops", app.gateway.OpsAddr()),
	)

	watcher := startConfigWatcher(ctx, app, configPath)

	<-ctx.Done()
	app.logger.Info("received shutdown signal")

	return shutdown(app, watcher)
}

// shutdown stops accepting traffic first, then flushes the audit queue and
// closes the stores the in-flight requests may still be using.
func shutdown(app *application, watcher *config.Watcher) error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	err := app.gateway.Stop(ctx)
	if err != nil {
		app.logger.Error("failed to stop gateway gracefully", observability.Error(err))
	}

	app.closeResources(ctx)
	app.logger.Info("edgegate stopped")
	return err
}
