package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
)

var flagShowArchived bool

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	RunE:  runCategories,
}

var seedCategoriesCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default categories the user does not have yet",
	RunE:  runSeedCategories,
}

var archiveCategoryCmd = &cobra.Command{
	Use:   "archive <category>",
	Short: "Hide a category from new transactions",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveCategory,
}

var renameCategoryCmd = &cobra.Command{
	Use:   "rename <category> <new-name>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE:  runRenameCategory,
}

func init() {
	categoriesCmd.Flags().BoolVar(&flagShowArchived, "archived", false, "include archived categories")
	categoriesCmd.AddCommand(seedCategoriesCmd, archiveCategoryCmd, renameCategoryCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		cats, err := app.Ledger.Categories(ctx, userID, flagShowArchived)
		if err != nil {
			return err
		}
		if len(cats) == 0 {
			fmt.Println("No categories yet. Run `fintrack categories seed` to create the defaults.")
			return nil
		}
		rows := make([][]string, 0, len(cats))
		for _, c := range cats {
			flags := ""
			if c.IsDefault {
				flags = "default"
			}
			if c.IsArchived {
				flags = "archived"
			}
			rows = append(rows, []string{c.Icon + " " + c.Name, string(c.Type), flags, c.ID})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Categories",
			Headers: []string{"Name", "Type", "", "ID"},
			Rows:    rows,
		}))
		return nil
	})
}

func runSeedCategories(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		n, err := app.Ledger.SeedDefaultCategories(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s default categories\n", cli.FormatCount(n))
		return nil
	})
}

func runArchiveCategory(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		c, err := findCategory(ctx, app, userID, args[0])
		if err != nil {
			return err
		}
		if err := app.Ledger.ArchiveCategory(ctx, userID, c.ID, true); err != nil {
			return err
		}
		fmt.Printf("Archived %s\n", c.Name)
		return nil
	})
}

func runRenameCategory(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		c, err := findCategory(ctx, app, userID, args[0])
		if err != nil {
			return err
		}
		old := c.Name
		c.Name = args[1]
		updated, err := app.Ledger.UpdateCategory(ctx, c)
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", old, updated.Name)
		return nil
	})
}
