package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
)

var (
	flagUser     string
	flagMonth    string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "Personal finance analytics",
	Long: "fintrack turns a ledger of income and expense transactions into monthly\n" +
		"statistics, category breakdowns, trends, insights and period reports.",
	SilenceUsage: true,
	RunE:         runDashboard,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", os.Getenv("FINTRACK_USER"), "user whose ledger to read (env FINTRACK_USER)")
	rootCmd.PersistentFlags().StringVarP(&flagMonth, "month", "m", "", "month to inspect as YYYY-MM (default current month)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")
}

var errNoUser = errors.New("no user given: pass --user or set FINTRACK_USER")

// withApp opens the configured backend, runs fn for the selected user and
// releases the backend afterwards.
func withApp(fn func(ctx context.Context, app *cli.App, userID string) error) error {
	userID := strings.TrimSpace(flagUser)
	if userID == "" {
		return errNoUser
	}
	app, closeApp := openApp()
	defer closeApp()
	return fn(context.Background(), app, userID)
}

// openApp loads configuration and the backend for a one-shot command. Logs
// go to stderr at warn unless --log-level says otherwise.
func openApp() (*cli.App, func()) {
	cli.LoadEnvFile()
	level := flagLogLevel
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupCLILogger(level)
	cfg := cli.LoadAndValidateConfig(logger)

	app := cli.NewApp(cfg, cli.InitBackend(context.Background(), logger, cfg), nil)
	return app, func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close backend", "error", err)
		}
	}
}

// monthFlag returns the --month value, nil meaning the current month.
func monthFlag() (*core.Month, error) {
	if strings.TrimSpace(flagMonth) == "" {
		return nil, nil
	}
	m, err := core.ParseMonth(flagMonth)
	if err != nil {
		return nil, fmt.Errorf("--month: %w", err)
	}
	return &m, nil
}

func runDashboard(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		d, err := app.Ledger.Dashboard(ctx, userID)
		if err != nil {
			return err
		}
		money := app.Ledger.Engine().Currency().Format

		fmt.Println(cli.RenderTitle("Fintrack · " + d.Month.Label()))
		fmt.Println()
		fmt.Print(renderStats(d.Stats, money))
		fmt.Println()
		if len(d.Spending) > 0 {
			fmt.Print(renderSpending(d.Spending, money))
			fmt.Println()
		}
		if len(d.Trend) > 0 {
			fmt.Print(renderTrend(d.Trend, money))
			fmt.Println()
		}
		for _, in := range d.Insights {
			fmt.Print(cli.RenderInsight(in))
		}
		return nil
	})
}
