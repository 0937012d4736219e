package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/recurring"
)

var (
	flagRuleType        string
	flagRuleAmount      string
	flagRuleCategory    string
	flagRuleDescription string
	flagRuleFrequency   string
	flagRuleStart       string
	flagRuleEnd         string
	flagRuleReminder    int
	flagSweepAll        bool
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Recurring transaction rules",
	RunE:  runRecurring,
}

var addRuleCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a recurring rule",
	RunE:  runAddRule,
}

var pauseRuleCmd = &cobra.Command{
	Use:   "pause <rule-id>",
	Short: "Stop a rule from generating transactions",
	Args:  cobra.ExactArgs(1),
	RunE:  func(_ *cobra.Command, args []string) error { return toggleRule(args[0], false) },
}

var resumeRuleCmd = &cobra.Command{
	Use:   "resume <rule-id>",
	Short: "Resume a paused rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(_ *cobra.Command, args []string) error { return toggleRule(args[0], true) },
}

var deleteRuleCmd = &cobra.Command{
	Use:   "delete <rule-id>",
	Short: "Remove a rule; transactions it generated stay",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteRule,
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Rules coming due within their reminder window",
	RunE:  runReminders,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Generate the transactions of every due rule",
	RunE:  runSweep,
}

func init() {
	f := addRuleCmd.Flags()
	f.StringVarP(&flagRuleType, "type", "t", string(core.Expense), "income or expense")
	f.StringVarP(&flagRuleAmount, "amount", "a", "", "amount of each occurrence")
	f.StringVarP(&flagRuleCategory, "category", "c", "", "category name or id")
	f.StringVarP(&flagRuleDescription, "description", "d", "", "description copied to generated transactions")
	f.StringVarP(&flagRuleFrequency, "frequency", "f", string(core.Monthly), "daily, weekly, monthly or yearly")
	f.StringVar(&flagRuleStart, "start", "", "start date as YYYY-MM-DD (default today)")
	f.StringVar(&flagRuleEnd, "end", "", "optional end date as YYYY-MM-DD")
	f.IntVar(&flagRuleReminder, "remind", 0, "days of advance notice (default from configuration)")
	_ = addRuleCmd.MarkFlagRequired("amount")
	_ = addRuleCmd.MarkFlagRequired("description")

	sweepCmd.Flags().BoolVar(&flagSweepAll, "all", false, "sweep every user with active rules")

	recurringCmd.AddCommand(addRuleCmd, pauseRuleCmd, resumeRuleCmd, deleteRuleCmd, remindersCmd, sweepCmd)
	rootCmd.AddCommand(recurringCmd)
}

func runRecurring(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		rules, err := app.Recurring.Rules(ctx, userID)
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			fmt.Println("No recurring rules.")
			return nil
		}

		money := app.Ledger.Engine().Currency().Format
		rows := make([][]string, 0, len(rules))
		for _, r := range rules {
			next := r.NextDueDate.String()
			if !r.IsActive {
				next = "paused"
			}
			rows = append(rows, []string{r.Description, string(r.Frequency), money(r.Amount), next, r.ID})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Recurring Rules",
			Headers: []string{"Description", "Every", "Amount", "Next", "ID"},
			Rows:    rows,
		}))
		return nil
	})
}

func runAddRule(_ *cobra.Command, _ []string) error {
	amount, err := core.ParseAmount(flagRuleAmount)
	if err != nil {
		return fmt.Errorf("--amount: %w", err)
	}
	rule := core.RecurringRule{
		Amount:             amount,
		Type:               core.TransactionType(strings.ToLower(flagRuleType)),
		Description:        strings.TrimSpace(flagRuleDescription),
		Frequency:          core.Frequency(strings.ToLower(flagRuleFrequency)),
		ReminderDaysBefore: flagRuleReminder,
	}
	if flagRuleStart != "" {
		if rule.StartDate, err = core.ParseDate(flagRuleStart); err != nil {
			return fmt.Errorf("--start: %w", err)
		}
	}
	if flagRuleEnd != "" {
		if rule.EndDate, err = core.ParseDate(flagRuleEnd); err != nil {
			return fmt.Errorf("--end: %w", err)
		}
	}

	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		rule.UserID = userID
		if flagRuleCategory != "" {
			c, err := findCategory(ctx, app, userID, flagRuleCategory)
			if err != nil {
				return err
			}
			rule.CategoryID = c.ID
		}
		saved, err := app.Recurring.CreateRule(ctx, rule)
		if err != nil {
			return err
		}
		fmt.Printf("Created rule %s, first due %s\n", saved.ID, saved.NextDueDate)
		return nil
	})
}

func toggleRule(ruleID string, active bool) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		if err := app.Recurring.ToggleRule(ctx, userID, ruleID, active); err != nil {
			return err
		}
		if active {
			fmt.Println("Rule resumed")
		} else {
			fmt.Println("Rule paused")
		}
		return nil
	})
}

func runDeleteRule(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		if err := app.Recurring.DeleteRule(ctx, userID, args[0]); err != nil {
			return err
		}
		fmt.Println("Rule deleted")
		return nil
	})
}

func runReminders(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		reminders, err := app.Recurring.Reminders(ctx, userID)
		if err != nil {
			return err
		}
		if len(reminders) == 0 {
			fmt.Println("Nothing due soon.")
			return nil
		}
		money := app.Ledger.Engine().Currency().Format
		rows := make([][]string, 0, len(reminders))
		for _, r := range reminders {
			rows = append(rows, []string{r.Rule.Description, money(r.Rule.Amount), r.Rule.NextDueDate.String(), cli.FormatDaysUntil(r.DaysUntil)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Upcoming",
			Headers: []string{"Description", "Amount", "Due", "When"},
			Rows:    rows,
		}))
		return nil
	})
}

func runSweep(_ *cobra.Command, _ []string) error {
	if flagSweepAll {
		app, closeApp := openApp()
		defer closeApp()
		res, err := app.Recurring.SweepAll(context.Background())
		printSweep(res)
		return err
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		res, err := app.Recurring.Sweep(ctx, userID)
		printSweep(res)
		return err
	})
}

func printSweep(res recurring.SweepResult) {
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Generated", "Deactivated", "Failed"},
		Rows:    [][]string{{cli.FormatCount(res.Generated), cli.FormatCount(res.Deactivated), cli.FormatCount(res.Failed)}},
	}))
}
