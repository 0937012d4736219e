package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	backend := cli.InitBackend(initCtx, logger, cfg)
	cancel()

	app := cli.NewApp(cfg, backend, nil)
	if backend.Publisher == nil {
		logger.Info("AMQP disabled, generated transactions will not be announced")
	}

	processor := services.NewSweepProcessor(app.Recurring, services.SweepProcessorConfig{
		PollInterval: cfg.SweepInterval,
		SweepTimeout: cfg.SweepTimeout,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := processor.Stop(stopCtx); err != nil {
			logger.Error("Sweep processor shutdown failed", "error", err)
		}
		res, at := processor.LastResult()
		logger.Info("Last sweep",
			"at", at,
			"generated", res.Generated,
			"deactivated", res.Deactivated,
			"failed", res.Failed)
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})

	app.Caches.StartCleanup(ctx, 10*time.Minute)

	logger.Info("Recurring sweep configured",
		"interval", cfg.SweepInterval,
		"timeout", cfg.SweepTimeout,
		"backend", cfg.DataBackend)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sweep processor", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
