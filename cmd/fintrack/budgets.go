package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/analytics"
	"fintrack/internal/budget"
	"fintrack/internal/cli"
	"fintrack/internal/core"
)

var flagTemplateIncome string

var budgetsCmd = &cobra.Command{
	Use:   "budgets",
	Short: "List the budgets of a month",
	RunE:  runBudgets,
}

var setBudgetCmd = &cobra.Command{
	Use:   "set <category> <amount>",
	Short: "Set the monthly limit for a category",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetBudget,
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Show the built-in budget templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplates,
}

var applyTemplateCmd = &cobra.Command{
	Use:   "apply <template>",
	Short: "Create budgets from a template and a monthly income",
	Args:  cobra.ExactArgs(1),
	RunE:  runApplyTemplate,
}

func init() {
	applyTemplateCmd.Flags().StringVar(&flagTemplateIncome, "income", "", "monthly income to split")
	_ = applyTemplateCmd.MarkFlagRequired("income")

	budgetsCmd.AddCommand(setBudgetCmd, templatesCmd, applyTemplateCmd)
	rootCmd.AddCommand(budgetsCmd)
}

func selectedMonth(app *cli.App) (core.Month, error) {
	month, err := monthFlag()
	if err != nil {
		return core.Month{}, err
	}
	if month == nil {
		return app.Ledger.Engine().CurrentMonth(), nil
	}
	return *month, nil
}

func runBudgets(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		month, err := selectedMonth(app)
		if err != nil {
			return err
		}
		budgets, err := app.Ledger.Budgets(ctx, userID, month)
		if err != nil {
			return err
		}
		if len(budgets) == 0 {
			fmt.Println("No budgets for " + month.Label() + ".")
			return nil
		}
		spending, err := app.Ledger.CategorySpending(ctx, userID, &month)
		if err != nil {
			return err
		}
		byCategory := make(map[string]analytics.CategorySpending, len(spending))
		for _, s := range spending {
			byCategory[s.Category.ID] = s
		}

		money := app.Ledger.Engine().Currency().Format
		rows := make([][]string, 0, len(budgets))
		for _, b := range budgets {
			s := byCategory[b.CategoryID]
			name := b.CategoryID
			switch {
			case b.Category != nil:
				name = b.Category.Icon + " " + b.Category.Name
			case s.Category.ID != "":
				name = s.Category.Icon + " " + s.Category.Name
			}
			rows = append(rows, []string{name, money(b.Amount), money(s.Total), cli.RenderProgressBar(core.PercentOf(s.Total, b.Amount), 20)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Budgets · " + month.Label(),
			Headers: []string{"Category", "Limit", "Spent", "Used"},
			Rows:    rows,
		}))
		return nil
	})
}

func runSetBudget(_ *cobra.Command, args []string) error {
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		month, err := selectedMonth(app)
		if err != nil {
			return err
		}
		c, err := findCategory(ctx, app, userID, args[0])
		if err != nil {
			return err
		}
		if _, err := app.Ledger.SetBudget(ctx, userID, c.ID, amount, month); err != nil {
			return err
		}
		fmt.Printf("Budget for %s in %s set to %s\n", c.Name, month.Label(), app.Ledger.Engine().Currency().Format(amount))
		return nil
	})
}

func runTemplates(_ *cobra.Command, _ []string) error {
	for _, t := range budget.Templates() {
		title := t.Icon + " " + t.Name + " (" + t.ID + ")"
		if t.Popular {
			title += " ★"
		}
		rows := make([][]string, 0, len(t.Categories))
		for _, c := range t.Categories {
			rows = append(rows, []string{c.Icon + " " + c.Name, fmt.Sprintf("%d%%", c.Percentage), c.Description})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   title,
			Headers: []string{"Category", "Share", "Covers"},
			Rows:    rows,
		}))
		fmt.Println()
	}
	return nil
}

func runApplyTemplate(_ *cobra.Command, args []string) error {
	income, err := core.ParseAmount(flagTemplateIncome)
	if err != nil {
		return fmt.Errorf("--income: %w", err)
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		month, err := selectedMonth(app)
		if err != nil {
			return err
		}
		budgets, err := app.Ledger.ApplyBudgetTemplate(ctx, userID, args[0], income, month)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s budgets for %s\n", cli.FormatCount(len(budgets)), month.Label())
		return nil
	})
}
