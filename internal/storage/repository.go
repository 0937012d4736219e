package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertTransaction stores the transaction and its splits in one database
// transaction.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if t.CategoryID != "" {
		if err := r.categoryExists(ctx, t.UserID, t.CategoryID); err != nil {
			return "", err
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, category_id, amount, type, description, merchant,
			payment_method, transaction_date, is_split, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, nullString(t.CategoryID), t.Amount.String(), string(t.Type), t.Description,
		t.Merchant, t.PaymentMethod, t.Date, t.IsSplit, t.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	if err := insertSplits(ctx, tx, t.ID, t.Splits); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"date", t.Date.String(),
		"splits", len(t.Splits))

	return t.ID, nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, txID string, splits []core.Split) error {
	for _, s := range splits {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_splits (id, transaction_id, category_id, amount, notes)
			VALUES (?, ?, ?, ?, ?)`,
			s.ID, txID, nullString(s.CategoryID), s.Amount.String(), s.Notes)
		if err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}
	return nil
}

// UpdateTransaction rewrites the row and swaps its splits in one database
// transaction. The creation time is kept.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if t.CategoryID != "" {
		if err := r.categoryExists(ctx, t.UserID, t.CategoryID); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET category_id = ?, amount = ?, type = ?, description = ?, merchant = ?,
			payment_method = ?, transaction_date = ?, is_split = ?
		WHERE id = ? AND user_id = ?`,
		nullString(t.CategoryID), t.Amount.String(), string(t.Type), t.Description, t.Merchant,
		t.PaymentMethod, t.Date, t.IsSplit, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := expectRow(res, "transaction", t.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_splits WHERE transaction_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clear splits: %w", err)
	}
	if err := insertSplits(ctx, tx, t.ID, t.Splits); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction updated in SQLite",
		"id", t.ID,
		"amount", t.Amount.String(),
		"splits", len(t.Splits))
	return nil
}

// DeleteTransaction relies on the foreign key cascade to drop the splits.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectRow(res, "transaction", id)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	query := `
		SELECT t.id, t.user_id, t.category_id, t.amount, t.type, t.description, t.merchant,
			t.payment_method, t.transaction_date, t.is_split, t.created_at,
			c.id, c.name, c.icon, c.color, c.type, c.is_default, c.is_archived
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ?`
	args := []any{userID}
	if !f.From.IsZero() {
		query += ` AND t.transaction_date >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += ` AND t.transaction_date <= ?`
		args = append(args, f.To)
	}
	if f.Type != "" {
		query += ` AND t.type = ?`
		args = append(args, string(f.Type))
	}
	query += ` ORDER BY t.transaction_date DESC, t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	index := map[string]int{}
	for rows.Next() {
		var (
			t         core.Transaction
			catID     sql.NullString
			createdAt string
			cat       nullableCategory
		)
		if err := rows.Scan(&t.ID, &t.UserID, &catID, &t.Amount, &t.Type, &t.Description, &t.Merchant,
			&t.PaymentMethod, &t.Date, &t.IsSplit, &createdAt,
			&cat.id, &cat.name, &cat.icon, &cat.color, &cat.typ, &cat.isDefault, &cat.isArchived); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.CategoryID = catID.String
		t.CreatedAt = parseTimestamp(createdAt)
		t.Category = cat.resolve(userID)
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	if err := r.attachSplits(ctx, userID, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) attachSplits(ctx context.Context, userID string, txs []core.Transaction, index map[string]int) error {
	hasSplits := false
	for _, t := range txs {
		if t.IsSplit {
			hasSplits = true
			break
		}
	}
	if !hasSplits {
		return nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.transaction_id, s.category_id, s.amount, s.notes,
			c.id, c.name, c.icon, c.color, c.type, c.is_default, c.is_archived
		FROM transaction_splits s
		JOIN transactions t ON t.id = s.transaction_id
		LEFT JOIN categories c ON c.id = s.category_id
		WHERE t.user_id = ?
		ORDER BY s.rowid`, userID)
	if err != nil {
		return fmt.Errorf("query splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s     core.Split
			catID sql.NullString
			cat   nullableCategory
		)
		if err := rows.Scan(&s.ID, &s.TransactionID, &catID, &s.Amount, &s.Notes,
			&cat.id, &cat.name, &cat.icon, &cat.color, &cat.typ, &cat.isDefault, &cat.isArchived); err != nil {
			return fmt.Errorf("scan split: %w", err)
		}
		i, ok := index[s.TransactionID]
		if !ok {
			continue
		}
		s.CategoryID = catID.String
		s.Category = cat.resolve(userID)
		txs[i].Splits = append(txs[i].Splits, s)
	}
	return rows.Err()
}

func (r *SQLiteRepository) ListMerchants(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT TRIM(merchant) FROM transactions
		WHERE user_id = ? AND TRIM(merchant) <> ''
		ORDER BY 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query merchants: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, icon, color, type, is_default, is_archived
		FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &c.Color, &c.Type, &c.IsDefault, &c.IsArchived); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, icon, color, type, is_default, is_archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Icon, c.Color, string(c.Type), c.IsDefault, c.IsArchived)
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return c.ID, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, icon = ?, color = ?, type = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Icon, c.Color, string(c.Type), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectRow(res, "category", c.ID)
}

func (r *SQLiteRepository) SetCategoryArchived(ctx context.Context, userID, id string, archived bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET is_archived = ? WHERE id = ? AND user_id = ?`, archived, id, userID)
	if err != nil {
		return fmt.Errorf("archive category: %w", err)
	}
	return expectRow(res, "category", id)
}

func (r *SQLiteRepository) CategoryInUse(ctx context.Context, userID, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE user_id = ? AND category_id = ?) +
			(SELECT COUNT(*) FROM transaction_splits s JOIN transactions t ON t.id = s.transaction_id
				WHERE t.user_id = ? AND s.category_id = ?)`,
		userID, id, userID, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count category usage: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectRow(res, "category", id)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string, month core.Month) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.category_id, b.amount, b.month,
			c.id, c.name, c.icon, c.color, c.type, c.is_default, c.is_archived
		FROM budgets b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ? AND b.month = ?`, userID, month.First())
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var (
			b   core.Budget
			cat nullableCategory
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Amount, &b.Month,
			&cat.id, &cat.name, &cat.icon, &cat.color, &cat.typ, &cat.isDefault, &cat.isArchived); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Category = cat.resolve(userID)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (string, error) {
	if err := r.categoryExists(ctx, b.UserID, b.CategoryID); err != nil {
		return "", err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO budgets (id, user_id, category_id, amount, month)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category_id, month) DO UPDATE SET amount = excluded.amount
		RETURNING id`,
		b.ID, b.UserID, b.CategoryID, b.Amount.String(), b.Month).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert budget: %w", err)
	}
	return id, nil
}

const ruleColumns = `id, user_id, category_id, amount, type, description, merchant, payment_method,
	frequency, start_date, end_date, next_due_date, is_active, auto_generate,
	reminder_days_before, last_generated_date`

func (r *SQLiteRepository) ListRecurringRules(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ruleColumns+`
		FROM recurring_transactions WHERE user_id = ? ORDER BY next_due_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("query recurring rules: %w", err)
	}
	defer rows.Close()

	out := []core.RecurringRule{}
	for rows.Next() {
		var (
			rule  core.RecurringRule
			catID sql.NullString
		)
		if err := rows.Scan(&rule.ID, &rule.UserID, &catID, &rule.Amount, &rule.Type, &rule.Description,
			&rule.Merchant, &rule.PaymentMethod, &rule.Frequency, &rule.StartDate, &rule.EndDate,
			&rule.NextDueDate, &rule.IsActive, &rule.AutoGenerate, &rule.ReminderDaysBefore,
			&rule.LastGeneratedDate); err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		rule.CategoryID = catID.String
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.attachRuleCategories(ctx, userID, out)
}

func (r *SQLiteRepository) attachRuleCategories(ctx context.Context, userID string, rules []core.RecurringRule) ([]core.RecurringRule, error) {
	if len(rules) == 0 {
		return rules, nil
	}
	cats, err := r.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	for i := range rules {
		if c, ok := byID[rules[i].CategoryID]; ok {
			rules[i].Category = &c
		}
	}
	return rules, nil
}

func (r *SQLiteRepository) InsertRecurringRule(ctx context.Context, rule core.RecurringRule) (string, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO recurring_transactions (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, nullString(rule.CategoryID), rule.Amount.String(), string(rule.Type),
		rule.Description, rule.Merchant, rule.PaymentMethod, string(rule.Frequency), rule.StartDate,
		rule.EndDate, rule.NextDueDate, rule.IsActive, rule.AutoGenerate, rule.ReminderDaysBefore,
		rule.LastGeneratedDate)
	if err != nil {
		return "", fmt.Errorf("insert recurring rule: %w", err)
	}
	return rule.ID, nil
}

// UpdateRecurringRule leaves last_generated_date to the sweep.
func (r *SQLiteRepository) UpdateRecurringRule(ctx context.Context, rule core.RecurringRule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_transactions SET category_id = ?, amount = ?, type = ?, description = ?,
			merchant = ?, payment_method = ?, frequency = ?, start_date = ?, end_date = ?,
			next_due_date = ?, is_active = ?, auto_generate = ?, reminder_days_before = ?
		WHERE id = ? AND user_id = ?`,
		nullString(rule.CategoryID), rule.Amount.String(), string(rule.Type), rule.Description,
		rule.Merchant, rule.PaymentMethod, string(rule.Frequency), rule.StartDate, rule.EndDate,
		rule.NextDueDate, rule.IsActive, rule.AutoGenerate, rule.ReminderDaysBefore,
		rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("update recurring rule: %w", err)
	}
	return expectRow(res, "recurring rule", rule.ID)
}

func (r *SQLiteRepository) DeleteRecurringRule(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	return expectRow(res, "recurring rule", id)
}

func (r *SQLiteRepository) ListRecurringUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM recurring_transactions WHERE is_active = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query recurring users: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AdvanceRecurringRule(ctx context.Context, userID, ruleID string, next, lastGenerated core.Date) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_transactions SET next_due_date = ?, last_generated_date = ?
		WHERE id = ? AND user_id = ?`, next, lastGenerated, ruleID, userID)
	if err != nil {
		return fmt.Errorf("advance recurring rule: %w", err)
	}
	return expectRow(res, "recurring rule", ruleID)
}

func (r *SQLiteRepository) SetRecurringRuleActive(ctx context.Context, userID, ruleID string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET is_active = ? WHERE id = ? AND user_id = ?`, active, ruleID, userID)
	if err != nil {
		return fmt.Errorf("toggle recurring rule: %w", err)
	}
	return expectRow(res, "recurring rule", ruleID)
}

const goalColumns = `id, user_id, name, target_amount, current_amount, deadline, icon, color, is_completed`

func scanGoal(row interface{ Scan(...any) error }) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Deadline,
		&g.Icon, &g.Color, &g.IsCompleted)
	return g, err
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	out := []core.SavingsGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id string) (core.SavingsGoal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, g core.SavingsGoal) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO savings_goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), g.Deadline,
		g.Icon, g.Color, g.IsCompleted)
	if err != nil {
		return "", fmt.Errorf("insert goal: %w", err)
	}
	return g.ID, nil
}

func (r *SQLiteRepository) UpdateGoalProgress(ctx context.Context, userID, id string, current decimal.Decimal, completed bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount = ?, is_completed = ? WHERE id = ? AND user_id = ?`,
		current.String(), completed, id, userID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return expectRow(res, "goal", id)
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.SavingsGoal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE savings_goals SET name = ?, target_amount = ?, current_amount = ?, deadline = ?,
			icon = ?, color = ?, is_completed = ?
		WHERE id = ? AND user_id = ?`,
		g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), g.Deadline, g.Icon, g.Color,
		g.IsCompleted, g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return expectRow(res, "goal", g.ID)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return expectRow(res, "goal", id)
}

func (r *SQLiteRepository) categoryExists(ctx context.Context, userID, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM categories WHERE id = ? AND user_id = ?`, id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("look up category: %w", err)
	}
	return nil
}

// nullableCategory receives the columns of a LEFT JOINed category.
type nullableCategory struct {
	id, name, icon, color, typ sql.NullString
	isDefault, isArchived      sql.NullBool
}

func (c nullableCategory) resolve(userID string) *core.Category {
	if !c.id.Valid {
		return nil
	}
	return &core.Category{
		ID:         c.id.String,
		UserID:     userID,
		Name:       c.name.String,
		Icon:       c.icon.String,
		Color:      c.color.String,
		Type:       core.CategoryType(c.typ.String),
		IsDefault:  c.isDefault.Bool,
		IsArchived: c.isArchived.Bool,
	}
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}
