package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 5 * time.Minute
	// readinessUser owns no data; listing its categories proves the store answers.
	readinessUser = "_readyz"
)

var (
	flagServeAddr  string
	flagServeSweep bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API",
	Long: "Serves the analytics and ledger API under /api/ with /healthz and /readyz\n" +
		"health checks. Callers identify the user with the X-User-ID header.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "listen address (default :$PORT)")
	serveCmd.Flags().BoolVar(&flagServeSweep, "sweep", false, "also run the recurring sweep on SWEEP_INTERVAL")
	rootCmd.AddCommand(serveCmd)
}

// openService prepares a long-running process: logs on stdout at the
// configured level and a backend created under a bounded context.
func openService() (*cli.App, *slog.Logger) {
	cli.LoadEnvFile()
	level := flagLogLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	logger := cli.SetupLogger(level)
	cfg := cli.LoadAndValidateConfig(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return cli.NewApp(cfg, cli.InitBackend(initCtx, logger, cfg), nil), logger
}

func runServe(_ *cobra.Command, _ []string) error {
	app, logger := openService()
	cfg := app.Config

	addr := flagServeAddr
	if addr == "" {
		addr = ":" + cfg.Port
	}
	srv := apphttp.NewServer(addr, apphttp.Services{
		Ledger:    app.Ledger,
		Recurring: app.Recurring,
		Goals:     app.Goals,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             applog.Default(),
		Ready: func(ctx context.Context) error {
			_, err := app.Ledger.Categories(ctx, readinessUser, false)
			return err
		},
	})

	var processor *services.SweepProcessor
	if flagServeSweep {
		processor = services.NewSweepProcessor(app.Recurring, services.SweepProcessorConfig{
			PollInterval: cfg.SweepInterval,
			SweepTimeout: cfg.SweepTimeout,
		})
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
		if processor != nil {
			if err := processor.Stop(stopCtx); err != nil {
				logger.Error("Sweep processor shutdown failed", "error", err)
			}
		}
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})

	app.Caches.StartCleanup(ctx, cacheCleanupInterval)
	if processor != nil {
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start sweep processor", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		logger.Info("Starting HTTP server",
			"addr", addr,
			"backend", cfg.DataBackend,
			"currency", cfg.Defaults.Currency,
			"sweep", flagServeSweep)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	return nil
}
