// Package supabase stores the ledger in a Supabase project through its
// PostgREST API.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	supabasego "github.com/supabase-community/supabase-go"

	"fintrack/internal/core"
)

const (
	tableTransactions = "transactions"
	tableSplits       = "transaction_splits"
	tableCategories   = "categories"
	tableBudgets      = "budgets"
	tableRecurring    = "recurring_transactions"
	tableGoals        = "savings_goals"

	selectTransactions = "*, category:categories(*), splits:transaction_splits(*, category:categories(*))"
	selectWithCategory = "*, category:categories(*)"

	returnRows = "representation"
)

type Repository struct {
	client *supabasego.Client
}

func NewRepository(url, key string) (*Repository, error) {
	client, err := supabasego.NewClient(url, key, &supabasego.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Repository{client: client}, nil
}

func (r *Repository) Close() error { return nil }

type transactionRow struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	CategoryID    *string         `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	Merchant      string          `json:"merchant"`
	PaymentMethod string          `json:"payment_method"`
	Date          core.Date       `json:"transaction_date"`
	IsSplit       bool            `json:"is_split"`
}

type splitRow struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	CategoryID    *string         `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes"`
}

type categoryRow struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Color      string `json:"color"`
	Type       string `json:"type"`
	IsDefault  bool   `json:"is_default"`
	IsArchived bool   `json:"is_archived"`
}

type budgetRow struct {
	ID         string          `json:"id,omitempty"`
	UserID     string          `json:"user_id"`
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Month      core.Date       `json:"month"`
}

type ruleRow struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	CategoryID         *string         `json:"category_id"`
	Amount             decimal.Decimal `json:"amount"`
	Type               string          `json:"type"`
	Description        string          `json:"description"`
	Merchant           string          `json:"merchant"`
	PaymentMethod      string          `json:"payment_method"`
	Frequency          string          `json:"frequency"`
	StartDate          core.Date       `json:"start_date"`
	EndDate            core.Date       `json:"end_date"`
	NextDueDate        core.Date       `json:"next_due_date"`
	IsActive           bool            `json:"is_active"`
	AutoGenerate       bool            `json:"auto_generate"`
	ReminderDaysBefore int             `json:"reminder_days_before"`
}

type goalRow struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      core.Date       `json:"deadline"`
	Icon          string          `json:"icon"`
	Color         string          `json:"color"`
	IsCompleted   bool            `json:"is_completed"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func newTransactionRow(t core.Transaction) transactionRow {
	return transactionRow{
		ID:            t.ID,
		UserID:        t.UserID,
		CategoryID:    optional(t.CategoryID),
		Amount:        t.Amount,
		Type:          string(t.Type),
		Description:   t.Description,
		Merchant:      t.Merchant,
		PaymentMethod: t.PaymentMethod,
		Date:          t.Date,
		IsSplit:       t.IsSplit,
	}
}

func newSplitRows(txID string, splits []core.Split) []splitRow {
	rows := make([]splitRow, 0, len(splits))
	for _, s := range splits {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows = append(rows, splitRow{
			ID:            id,
			TransactionID: txID,
			CategoryID:    optional(s.CategoryID),
			Amount:        s.Amount,
			Notes:         s.Notes,
		})
	}
	return rows
}

func newRuleRow(rule core.RecurringRule) ruleRow {
	return ruleRow{
		ID:                 rule.ID,
		UserID:             rule.UserID,
		CategoryID:         optional(rule.CategoryID),
		Amount:             rule.Amount,
		Type:               string(rule.Type),
		Description:        rule.Description,
		Merchant:           rule.Merchant,
		PaymentMethod:      rule.PaymentMethod,
		Frequency:          string(rule.Frequency),
		StartDate:          rule.StartDate,
		EndDate:            rule.EndDate,
		NextDueDate:        rule.NextDueDate,
		IsActive:           rule.IsActive,
		AutoGenerate:       rule.AutoGenerate,
		ReminderDaysBefore: rule.ReminderDaysBefore,
	}
}

// decode unmarshals a PostgREST array response.
func decode[T any](data []byte, what string) ([]T, error) {
	var out []T
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", what, err)
	}
	return out, nil
}

// expectRows turns an empty representation into core.ErrNotFound.
func expectRows(data []byte, what, id string) error {
	rows, err := decode[json.RawMessage](data, what)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}

// InsertTransaction writes the parent row and then its splits. PostgREST has
// no multi-table transaction, so a failed split insert deletes the parent.
func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if t.CategoryID != "" {
		if err := r.categoryExists(t.UserID, t.CategoryID); err != nil {
			return "", err
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	if _, _, err := r.client.From(tableTransactions).
		Insert(newTransactionRow(t), false, "", returnRows, "").
		Execute(); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	if len(t.Splits) > 0 {
		if _, _, err := r.client.From(tableSplits).
			Insert(newSplitRows(t.ID, t.Splits), false, "", returnRows, "").
			Execute(); err != nil {
			if _, _, derr := r.client.From(tableTransactions).Delete("", "").Eq("id", t.ID).Execute(); derr != nil {
				slog.ErrorContext(ctx, "Failed to remove transaction after split insert failure",
					"transaction_id", t.ID,
					"error", derr)
			}
			return "", fmt.Errorf("insert splits: %w", err)
		}
	}

	return t.ID, nil
}

// UpdateTransaction patches the parent row, then swaps its splits. Without a
// multi-table transaction a failed split insert leaves the parent unsplit.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if t.CategoryID != "" {
		if err := r.categoryExists(t.UserID, t.CategoryID); err != nil {
			return err
		}
	}
	row := newTransactionRow(t)
	data, _, err := r.client.From(tableTransactions).
		Update(map[string]any{
			"category_id":      row.CategoryID,
			"amount":           row.Amount,
			"type":             row.Type,
			"description":      row.Description,
			"merchant":         row.Merchant,
			"payment_method":   row.PaymentMethod,
			"transaction_date": row.Date,
			"is_split":         row.IsSplit,
		}, returnRows, "").
		Eq("id", t.ID).
		Eq("user_id", t.UserID).
		Execute()
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := expectRows(data, "transaction", t.ID); err != nil {
		return err
	}

	if _, _, err := r.client.From(tableSplits).Delete("", "").Eq("transaction_id", t.ID).Execute(); err != nil {
		return fmt.Errorf("clear splits: %w", err)
	}
	if len(t.Splits) == 0 {
		return nil
	}
	if _, _, err := r.client.From(tableSplits).
		Insert(newSplitRows(t.ID, t.Splits), false, "", returnRows, "").
		Execute(); err != nil {
		if _, _, uerr := r.client.From(tableTransactions).
			Update(map[string]any{"is_split": false}, "", "").
			Eq("id", t.ID).
			Execute(); uerr != nil {
			slog.ErrorContext(ctx, "Failed to unmark transaction after split insert failure",
				"transaction_id", t.ID,
				"error", uerr)
		}
		return fmt.Errorf("insert splits: %w", err)
	}
	return nil
}

// DeleteTransaction removes the parent row; the splits go through the
// foreign key cascade.
func (r *Repository) DeleteTransaction(_ context.Context, userID, id string) error {
	data, _, err := r.client.From(tableTransactions).
		Delete(returnRows, "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectRows(data, "transaction", id)
}

func (r *Repository) ListTransactions(_ context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	query := r.client.From(tableTransactions).
		Select(selectTransactions, "", false).
		Eq("user_id", userID)
	if !f.From.IsZero() {
		query = query.Gte("transaction_date", f.From.String())
	}
	if !f.To.IsZero() {
		query = query.Lte("transaction_date", f.To.String())
	}
	if f.Type != "" {
		query = query.Eq("type", string(f.Type))
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	txs, err := decode[core.Transaction](data, "transactions")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

func (r *Repository) ListMerchants(_ context.Context, userID string) ([]string, error) {
	data, _, err := r.client.From(tableTransactions).
		Select("merchant", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query merchants: %w", err)
	}
	rows, err := decode[struct {
		Merchant *string `json:"merchant"`
	}](data, "merchants")
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	out := []string{}
	for _, row := range rows {
		if row.Merchant == nil {
			continue
		}
		m := strings.TrimSpace(*row.Merchant)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *Repository) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	data, _, err := r.client.From(tableCategories).
		Select("*", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	cats, err := decode[core.Category](data, "categories")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

func (r *Repository) InsertCategory(_ context.Context, c core.Category) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := categoryRow{
		ID: c.ID, UserID: c.UserID, Name: c.Name, Icon: c.Icon, Color: c.Color,
		Type: string(c.Type), IsDefault: c.IsDefault, IsArchived: c.IsArchived,
	}
	if _, _, err := r.client.From(tableCategories).Insert(row, false, "", returnRows, "").Execute(); err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return c.ID, nil
}

func (r *Repository) UpdateCategory(_ context.Context, c core.Category) error {
	data, _, err := r.client.From(tableCategories).
		Update(map[string]any{
			"name":  c.Name,
			"icon":  c.Icon,
			"color": c.Color,
			"type":  string(c.Type),
		}, returnRows, "").
		Eq("id", c.ID).
		Eq("user_id", c.UserID).
		Execute()
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectRows(data, "category", c.ID)
}

func (r *Repository) SetCategoryArchived(_ context.Context, userID, id string, archived bool) error {
	data, _, err := r.client.From(tableCategories).
		Update(map[string]any{"is_archived": archived}, returnRows, "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("archive category: %w", err)
	}
	return expectRows(data, "category", id)
}

func (r *Repository) CategoryInUse(_ context.Context, userID, id string) (bool, error) {
	data, _, err := r.client.From(tableTransactions).
		Select("id", "", false).
		Eq("user_id", userID).
		Eq("category_id", id).
		Limit(1, "").
		Execute()
	if err != nil {
		return false, fmt.Errorf("count category usage: %w", err)
	}
	if rows, err := decode[json.RawMessage](data, "transactions"); err != nil || len(rows) > 0 {
		return len(rows) > 0, err
	}

	data, _, err = r.client.From(tableSplits).
		Select("id", "", false).
		Eq("category_id", id).
		Limit(1, "").
		Execute()
	if err != nil {
		return false, fmt.Errorf("count split usage: %w", err)
	}
	rows, err := decode[json.RawMessage](data, "splits")
	return len(rows) > 0, err
}

func (r *Repository) DeleteCategory(_ context.Context, userID, id string) error {
	data, _, err := r.client.From(tableCategories).
		Delete(returnRows, "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectRows(data, "category", id)
}

func (r *Repository) ListBudgets(_ context.Context, userID string, month core.Month) ([]core.Budget, error) {
	data, _, err := r.client.From(tableBudgets).
		Select(selectWithCategory, "", false).
		Eq("user_id", userID).
		Eq("month", month.First().String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	budgets, err := decode[core.Budget](data, "budgets")
	if budgets == nil && err == nil {
		budgets = []core.Budget{}
	}
	return budgets, err
}

func (r *Repository) UpsertBudget(_ context.Context, b core.Budget) (string, error) {
	if err := r.categoryExists(b.UserID, b.CategoryID); err != nil {
		return "", err
	}
	row := budgetRow{UserID: b.UserID, CategoryID: b.CategoryID, Amount: b.Amount, Month: b.Month}
	data, _, err := r.client.From(tableBudgets).
		Insert(row, true, "user_id,category_id,month", returnRows, "").
		Execute()
	if err != nil {
		return "", fmt.Errorf("upsert budget: %w", err)
	}
	saved, err := decode[budgetRow](data, "budget")
	if err != nil {
		return "", err
	}
	if len(saved) == 0 {
		return "", fmt.Errorf("upsert budget: empty response")
	}
	return saved[0].ID, nil
}

func (r *Repository) ListRecurringRules(_ context.Context, userID string) ([]core.RecurringRule, error) {
	data, _, err := r.client.From(tableRecurring).
		Select(selectWithCategory, "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query recurring rules: %w", err)
	}
	rules, err := decode[core.RecurringRule](data, "recurring rules")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].NextDueDate.Before(rules[j].NextDueDate.Time) })
	if rules == nil {
		rules = []core.RecurringRule{}
	}
	return rules, nil
}

func (r *Repository) InsertRecurringRule(_ context.Context, rule core.RecurringRule) (string, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if _, _, err := r.client.From(tableRecurring).Insert(newRuleRow(rule), false, "", returnRows, "").Execute(); err != nil {
		return "", fmt.Errorf("insert recurring rule: %w", err)
	}
	return rule.ID, nil
}

func (r *Repository) ListRecurringUsers(_ context.Context) ([]string, error) {
	data, _, err := r.client.From(tableRecurring).
		Select("user_id", "", false).
		Eq("is_active", "true").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query recurring users: %w", err)
	}
	rows, err := decode[struct {
		UserID string `json:"user_id"`
	}](data, "recurring users")
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, row := range rows {
		if _, ok := seen[row.UserID]; !ok {
			seen[row.UserID] = struct{}{}
			out = append(out, row.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *Repository) AdvanceRecurringRule(_ context.Context, userID, ruleID string, next, lastGenerated core.Date) error {
	return r.updateRule(userID, ruleID, map[string]any{
		"next_due_date":       next,
		"last_generated_date": lastGenerated,
	})
}

func (r *Repository) SetRecurringRuleActive(_ context.Context, userID, ruleID string, active bool) error {
	return r.updateRule(userID, ruleID, map[string]any{"is_active": active})
}

// UpdateRecurringRule leaves last_generated_date to the sweep.
func (r *Repository) UpdateRecurringRule(_ context.Context, rule core.RecurringRule) error {
	row := newRuleRow(rule)
	return r.updateRule(rule.UserID, rule.ID, map[string]any{
		"category_id":          row.CategoryID,
		"amount":               row.Amount,
		"type":                 row.Type,
		"description":          row.Description,
		"merchant":             row.Merchant,
		"payment_method":       row.PaymentMethod,
		"frequency":            row.Frequency,
		"start_date":           row.StartDate,
		"end_date":             row.EndDate,
		"next_due_date":        row.NextDueDate,
		"is_active":            row.IsActive,
		"auto_generate":        row.AutoGenerate,
		"reminder_days_before": row.ReminderDaysBefore,
	})
}

func (r *Repository) DeleteRecurringRule(_ context.Context, userID, id string) error {
	data, _, err := r.client.From(tableRecurring).
		Delete(returnRows, "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	return expectRows(data, "recurring rule", id)
}

func (r *Repository) updateRule(userID, ruleID string, patch map[string]any) error {
	data, _, err := r.client.From(tableRecurring).
		Update(patch, returnRows, "").
		Eq("id", ruleID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("update recurring rule: %w", err)
	}
	return expectRows(data, "recurring rule", ruleID)
}

func (r *Repository) ListGoals(_ context.Context, userID string) ([]core.SavingsGoal, error) {
	data, _, err := r.client.From(tableGoals).
		Select("*", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	goals, err := decode[core.SavingsGoal](data, "goals")
	if goals == nil && err == nil {
		goals = []core.SavingsGoal{}
	}
	return goals, err
}

func (r *Repository) GetGoal(_ context.Context, userID, id string) (core.SavingsGoal, error) {
	data, _, err := r.client.From(tableGoals).
		Select("*", "", false).
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	goals, err := decode[core.SavingsGoal](data, "goal")
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if len(goals) == 0 {
		return core.SavingsGoal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	return goals[0], nil
}

func (r *Repository) InsertGoal(_ context.Context, g core.SavingsGoal) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	row := goalRow{
		ID: g.ID, UserID: g.UserID, Name: g.Name, TargetAmount: g.TargetAmount, CurrentAmount: g.CurrentAmount,
		Deadline: g.Deadline, Icon: g.Icon, Color: g.Color, IsCompleted: g.IsCompleted,
	}
	if _, _, err := r.client.From(tableGoals).Insert(row, false, "", returnRows, "").Execute(); err != nil {
		return "", fmt.Errorf("insert goal: %w", err)
	}
	return g.ID, nil
}

func (r *Repository) UpdateGoalProgress(_ context.Context, userID, id string, current decimal.Decimal, completed bool) error {
	data, _, err := r.client.From(tableGoals).
		Update(map[string]any{"current_amount": current, "is_completed": completed}, returnRows, "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return expectRows(data, "goal", id)
}

func (r *Repository) UpdateGoal(_ context.Context, g core.SavingsGoal) error {
	data, _, err := r.client.From(tableGoals).
		Update(map[string]any{
			"name":           g.Name,
			"target_amount":  g.TargetAmount,
			"current_amount": g.CurrentAmount,
			"deadline":       g.Deadline,
			"icon":           g.Icon,
			"color":          g.Color,
			"is_completed":   g.IsCompleted,
		}, returnRows, "").
		Eq("id", g.ID).
		Eq("user_id", g.UserID).
		Execute()
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return expectRows(data, "goal", g.ID)
}

func (r *Repository) DeleteGoal(_ context.Context, userID, id string) error {
	data, _, err := r.client.From(tableGoals).
		Delete(returnRows, "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return expectRows(data, "goal", id)
}

func (r *Repository) categoryExists(userID, id string) error {
	data, _, err := r.client.From(tableCategories).
		Select("id", "", false).
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("look up category: %w", err)
	}
	return expectRows(data, "category", id)
}
