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
	flagTxType        string
	flagTxAmount      string
	flagTxCategory    string
	flagTxDescription string
	flagTxMerchant    string
	flagTxMethod      string
	flagTxDate        string
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "List the transactions of a month",
	RunE:    runTransactions,
}

var addTransactionCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an income or expense",
	RunE:  runAddTransaction,
}

var deleteTransactionCmd = &cobra.Command{
	Use:   "delete <transaction-id>",
	Short: "Remove a transaction and its splits",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteTransaction,
}

var merchantsCmd = &cobra.Command{
	Use:   "merchants",
	Short: "Merchants seen in the ledger",
	RunE:  runMerchants,
}

func init() {
	f := addTransactionCmd.Flags()
	f.StringVarP(&flagTxType, "type", "t", string(core.Expense), "income or expense")
	f.StringVarP(&flagTxAmount, "amount", "a", "", "positive amount, dot or comma decimals")
	f.StringVarP(&flagTxCategory, "category", "c", "", "category name or id")
	f.StringVarP(&flagTxDescription, "description", "d", "", "free text description")
	f.StringVar(&flagTxMerchant, "merchant", "", "merchant name")
	f.StringVar(&flagTxMethod, "method", "", "payment method")
	f.StringVar(&flagTxDate, "date", "", "transaction date as YYYY-MM-DD (default today)")
	_ = addTransactionCmd.MarkFlagRequired("amount")

	transactionsCmd.AddCommand(addTransactionCmd, deleteTransactionCmd, merchantsCmd)
	rootCmd.AddCommand(transactionsCmd)
}

func runTransactions(_ *cobra.Command, _ []string) error {
	month, err := monthFlag()
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		m := app.Ledger.Engine().CurrentMonth()
		if month != nil {
			m = *month
		}
		txs, err := app.Ledger.Transactions(ctx, userID, core.TransactionFilter{From: m.First(), To: m.Last()})
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			fmt.Println("No transactions in " + m.Label() + ".")
			return nil
		}

		money := app.Ledger.Engine().Currency().Format
		rows := make([][]string, 0, len(txs))
		for _, tx := range txs {
			category := "-"
			switch {
			case tx.IsSplit:
				category = fmt.Sprintf("split (%d)", len(tx.Splits))
			case tx.Category != nil:
				category = tx.Category.Name
			}
			amount := money(tx.Amount)
			if tx.Type == core.Expense {
				amount = "-" + amount
			}
			rows = append(rows, []string{tx.Date.String(), tx.Description, category, amount, tx.ID})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Transactions · " + m.Label(),
			Headers: []string{"Date", "Description", "Category", "Amount", "ID"},
			Rows:    rows,
		}))
		return nil
	})
}

func runAddTransaction(_ *cobra.Command, _ []string) error {
	amount, err := core.ParseAmount(flagTxAmount)
	if err != nil {
		return fmt.Errorf("--amount: %w", err)
	}
	txType := core.TransactionType(strings.ToLower(flagTxType))
	if !txType.Valid() {
		return fmt.Errorf("--type must be income or expense")
	}

	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		date := app.Ledger.Engine().Today()
		if flagTxDate != "" {
			if date, err = core.ParseDate(flagTxDate); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}
		tx := core.Transaction{
			UserID:        userID,
			Amount:        amount,
			Type:          txType,
			Description:   strings.TrimSpace(flagTxDescription),
			Merchant:      strings.TrimSpace(flagTxMerchant),
			PaymentMethod: strings.TrimSpace(flagTxMethod),
			Date:          date,
		}
		if flagTxCategory != "" {
			c, err := findCategory(ctx, app, userID, flagTxCategory)
			if err != nil {
				return err
			}
			tx.CategoryID = c.ID
		}

		saved, err := app.Ledger.AddTransaction(ctx, tx)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded %s %s on %s (%s)\n", saved.Type, app.Ledger.Engine().Currency().Format(saved.Amount), saved.Date, saved.ID)
		return nil
	})
}

func runDeleteTransaction(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		if err := app.Ledger.DeleteTransaction(ctx, userID, args[0]); err != nil {
			return err
		}
		fmt.Println("Transaction deleted")
		return nil
	})
}

func runMerchants(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, app *cli.App, userID string) error {
		merchants, err := app.Ledger.Merchants(ctx, userID)
		if err != nil {
			return err
		}
		for _, m := range merchants {
			fmt.Println(m)
		}
		return nil
	})
}

// findCategory resolves ref against the user's active categories, by id or
// by case-insensitive name.
func findCategory(ctx context.Context, app *cli.App, userID, ref string) (core.Category, error) {
	cats, err := app.Ledger.Categories(ctx, userID, false)
	if err != nil {
		return core.Category{}, err
	}
	ref = strings.TrimSpace(ref)
	for _, c := range cats {
		if c.ID == ref || strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %q: %w", ref, core.ErrNotFound)
}
