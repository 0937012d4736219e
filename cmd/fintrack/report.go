package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	"fintrack/internal/core"
)

var (
	flagReportStart  string
	flagReportEnd    string
	flagReportPeriod string
	flagReportTop    int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summary report for a date range",
	Long: "Builds a report for an inclusive date range. Without --start and --end the\n" +
		"range is the current month, or the current year with --period yearly.",
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&flagReportStart, "start", "", "first day of the range (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&flagReportEnd, "end", "", "last day of the range (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&flagReportPeriod, "period", string(analytics.PeriodMonthly), "monthly or yearly")
	reportCmd.Flags().IntVar(&flagReportTop, "top", 5, "categories to list")
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, _ []string) error {
	period := analytics.Period(strings.ToLower(flagReportPeriod))
	if !period.Valid() {
		return fmt.Errorf("--period must be monthly or yearly")
	}
	if (flagReportStart == "") != (flagReportEnd == "") {
		return fmt.Errorf("--start and --end must be given together")
	}

	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		rng, err := reportRange(app, period)
		if err != nil {
			return err
		}
		r, err := app.Ledger.Report(ctx, userID, rng, period)
		if err != nil {
			return err
		}
		printReport(r, app.Ledger.Engine().Currency().Format)
		return nil
	})
}

func reportRange(app *cli.App, period analytics.Period) (core.DateRange, error) {
	if flagReportStart == "" {
		engine := app.Ledger.Engine()
		if period == analytics.PeriodYearly {
			return core.YearRange(engine.Today().Year()), nil
		}
		cur := engine.CurrentMonth()
		return core.MonthRange(cur.Year, cur.Month), nil
	}
	start, err := core.ParseDate(flagReportStart)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("--start: %w", err)
	}
	end, err := core.ParseDate(flagReportEnd)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("--end: %w", err)
	}
	return core.DateRange{Start: start, End: end}, nil
}

func printReport(r analytics.Report, money moneyFormat) {
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s · %s to %s", r.Title, r.Start, r.End)))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Income", money(r.TotalIncome)},
			{"Expenses", money(r.TotalExpenses)},
			{"Net balance", signed(money, r.NetBalance)},
			{"---"},
			{"Transactions", cli.FormatCount(r.TransactionCount)},
			{"Savings rate", core.FormatPercent(r.SavingsRate, 1)},
			{"Avg daily expense", money(r.AvgDailyExpense)},
		},
	}))
	fmt.Println()

	if top := r.TopCategories(flagReportTop); len(top) > 0 {
		fmt.Print(renderSpending(top, money))
		fmt.Println()
	}

	if len(r.TopExpenses) > 0 {
		rows := make([][]string, 0, len(r.TopExpenses))
		for _, e := range r.TopExpenses {
			rows = append(rows, []string{e.Date.String(), e.Description, e.Category, money(e.Amount)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Largest Expenses",
			Headers: []string{"Date", "Description", "Category", "Amount"},
			Rows:    rows,
		}))
		fmt.Println()
	}

	if len(r.PaymentMethods) > 0 {
		rows := make([][]string, 0, len(r.PaymentMethods))
		for _, p := range r.PaymentMethods {
			rows = append(rows, []string{p.Method, money(p.Amount), core.FormatPercent(p.Percentage, 1)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Payment Methods",
			Headers: []string{"Method", "Amount", "Share"},
			Rows:    rows,
		}))
	}
}
