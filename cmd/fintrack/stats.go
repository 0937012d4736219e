package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	"fintrack/internal/core"
)

type moneyFormat func(decimal.Decimal) string

var flagTrendMonths int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Income, expenses and balance for a month",
	RunE:  runStats,
}

var spendingCmd = &cobra.Command{
	Use:   "spending",
	Short: "Expense breakdown by category for a month",
	RunE:  runSpending,
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Month-by-month totals ending with the current month",
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().IntVarP(&flagTrendMonths, "months", "n", 6, "number of months to show")
	rootCmd.AddCommand(statsCmd, spendingCmd, trendCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	month, err := monthFlag()
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		stats, err := app.Ledger.MonthlyStats(ctx, userID, month)
		if err != nil {
			return err
		}
		m, _ := core.ParseMonth(stats.Month)
		fmt.Println(cli.RenderTitle("Monthly Stats · " + m.Label()))
		fmt.Println()
		fmt.Print(renderStats(stats, app.Ledger.Engine().Currency().Format))
		return nil
	})
}

func runSpending(_ *cobra.Command, _ []string) error {
	month, err := monthFlag()
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		spending, err := app.Ledger.CategorySpending(ctx, userID, month)
		if err != nil {
			return err
		}
		if len(spending) == 0 {
			fmt.Println("No expenses recorded for this month.")
			return nil
		}
		fmt.Print(renderSpending(spending, app.Ledger.Engine().Currency().Format))
		return nil
	})
}

func runTrend(_ *cobra.Command, _ []string) error {
	if flagTrendMonths < 1 {
		return fmt.Errorf("--months must be at least 1")
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		trend, err := app.Ledger.Trend(ctx, userID, flagTrendMonths)
		if err != nil {
			return err
		}
		fmt.Print(renderTrend(trend, app.Ledger.Engine().Currency().Format))
		return nil
	})
}

func renderStats(s analytics.MonthlyStats, money moneyFormat) string {
	return cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Income", money(s.Income)},
			{"Expenses", money(s.Expenses)},
			{"---"},
			{"Balance", signed(money, s.Balance)},
			{"Transactions", cli.FormatCount(s.TransactionCount)},
		},
	})
}

func renderSpending(spending []analytics.CategorySpending, money moneyFormat) string {
	rows := make([][]string, 0, len(spending))
	for _, s := range spending {
		rows = append(rows, []string{
			s.Category.Icon + " " + s.Category.Name,
			money(s.Total),
			cli.RenderProgressBar(s.Percentage, 20),
			cli.FormatCount(s.Count),
		})
	}
	return cli.RenderTable(cli.Table{
		Title:   "Spending by Category",
		Headers: []string{"Category", "Total", "Share", "Count"},
		Rows:    rows,
	})
}

func renderTrend(trend []analytics.MonthTotals, money moneyFormat) string {
	rows := make([][]string, 0, len(trend)+2)
	expenses := make([]decimal.Decimal, 0, len(trend))
	for _, m := range trend {
		rows = append(rows, []string{m.Label, money(m.Income), money(m.Expenses), signed(money, m.Balance)})
		expenses = append(expenses, m.Expenses)
	}
	rows = append(rows, []string{"---"}, []string{"Expenses", cli.RenderSparkline(expenses), "", ""})
	return cli.RenderTable(cli.Table{
		Title:   "Trend",
		Headers: []string{"Month", "Income", "Expenses", "Balance"},
		Rows:    rows,
	})
}

// signed prefixes a minus sign for negative amounts, which money drops.
func signed(money moneyFormat, d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + money(d)
	}
	return money(d)
}
