package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/worker"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume generated-transaction events from AMQP",
	Long: "Listens on AMQP_QUEUE for transactions produced by recurring rules,\n" +
		"confirms them against the store and refreshes the owner's cached views.",
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(_ *cobra.Command, _ []string) error {
	app, logger := openService()
	cfg := app.Config
	if cfg.AMQPURL == "" {
		_ = app.Close()
		return fmt.Errorf("AMQP_URL is not set")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		_ = app.Close()
		return fmt.Errorf("connect to AMQP: %w", err)
	}

	w := worker.NewEventWorker(app.Ledger)
	app.Caches.Register(w.DedupCache())

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		if err := client.Close(); err != nil {
			logger.Error("AMQP close failed", "error", err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
		stats := w.Stats()
		logger.Info("Event worker stopped",
			"processed", stats.Processed,
			"duplicates", stats.Duplicates,
			"invalid", stats.Invalid,
			"missing", stats.Missing)
	})
	app.Caches.StartCleanup(ctx, cacheCleanupInterval)

	go func() {
		logger.Info("Consuming transaction events",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		if err := client.ConsumeTransactionEvents(ctx, w.HandleTransactionGenerated); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumer stopped", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	return nil
}
