package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
)

var (
	flagGoalName     string
	flagGoalTarget   string
	flagGoalDeadline string
	flagGoalIcon     string
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Savings goals and their progress",
	RunE:  runGoals,
}

var addGoalCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a savings goal",
	RunE:  runAddGoal,
}

var contributeCmd = &cobra.Command{
	Use:   "contribute <goal-id> <amount>",
	Short: "Add money to a goal",
	Args:  cobra.ExactArgs(2),
	RunE:  runContribute,
}

var completeGoalCmd = &cobra.Command{
	Use:   "complete <goal-id>",
	Short: "Toggle whether a goal counts as completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompleteGoal,
}

var deleteGoalCmd = &cobra.Command{
	Use:   "delete <goal-id>",
	Short: "Remove a savings goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteGoal,
}

func init() {
	f := addGoalCmd.Flags()
	f.StringVar(&flagGoalName, "name", "", "goal name")
	f.StringVar(&flagGoalTarget, "target", "", "target amount")
	f.StringVar(&flagGoalDeadline, "deadline", "", "optional deadline as YYYY-MM-DD")
	f.StringVar(&flagGoalIcon, "icon", "", "optional icon")
	_ = addGoalCmd.MarkFlagRequired("name")
	_ = addGoalCmd.MarkFlagRequired("target")

	goalsCmd.AddCommand(addGoalCmd, contributeCmd, completeGoalCmd, deleteGoalCmd)
	rootCmd.AddCommand(goalsCmd)
}

func runGoals(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		goals, err := app.Goals.List(ctx, userID)
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			fmt.Println("No savings goals yet.")
			return nil
		}

		money := app.Ledger.Engine().Currency().Format
		today := app.Ledger.Engine().Today()
		rows := make([][]string, 0, len(goals))
		for _, g := range goals {
			deadline := "-"
			if !g.Deadline.IsEmpty() {
				deadline = g.Deadline.String()
				if days := today.DaysUntil(g.Deadline); days >= 0 && !g.IsCompleted {
					deadline += " (" + cli.FormatDaysUntil(days) + ")"
				}
			}
			if g.IsCompleted {
				deadline = "done"
			}
			rows = append(rows, []string{
				g.Icon + " " + g.Name,
				money(g.CurrentAmount) + " / " + money(g.TargetAmount),
				cli.RenderProgressBar(g.Progress(), 20),
				deadline,
				g.ID,
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Savings Goals",
			Headers: []string{"Goal", "Saved", "Progress", "Deadline", "ID"},
			Rows:    rows,
		}))
		return nil
	})
}

func runAddGoal(_ *cobra.Command, _ []string) error {
	target, err := core.ParseAmount(flagGoalTarget)
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}
	var deadline core.Date
	if flagGoalDeadline != "" {
		if deadline, err = core.ParseDate(flagGoalDeadline); err != nil {
			return fmt.Errorf("--deadline: %w", err)
		}
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		g, err := app.Goals.Create(ctx, core.SavingsGoal{
			UserID:       userID,
			Name:         strings.TrimSpace(flagGoalName),
			TargetAmount: target,
			Deadline:     deadline,
			Icon:         flagGoalIcon,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created goal %s (%s)\n", g.Name, g.ID)
		return nil
	})
}

func runContribute(_ *cobra.Command, args []string) error {
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		g, err := app.Goals.Contribute(ctx, userID, args[0], amount)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", g.Name, cli.RenderProgressBar(g.Progress(), 20))
		if g.IsCompleted {
			fmt.Println("Goal reached.")
		}
		return nil
	})
}

func runCompleteGoal(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		g, err := app.Goals.ToggleCompletion(ctx, userID, args[0])
		if err != nil {
			return err
		}
		state := "open"
		if g.IsCompleted {
			state = "completed"
		}
		fmt.Printf("%s is now %s\n", g.Name, state)
		return nil
	})
}

func runDeleteGoal(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		if err := app.Goals.Delete(ctx, userID, args[0]); err != nil {
			return err
		}
		fmt.Println("Goal deleted")
		return nil
	})
}
