package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Observations about the current month",
	RunE:  runInsights,
}

func init() {
	rootCmd.AddCommand(insightsCmd)
}

func runInsights(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		insights, err := app.Ledger.Insights(ctx, userID)
		if err != nil {
			return err
		}
		if len(insights) == 0 {
			fmt.Println("Nothing notable this month.")
			return nil
		}
		for _, in := range insights {
			fmt.Print(cli.RenderInsight(in))
		}
		return nil
	})
}
