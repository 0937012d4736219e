package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/clock"
	"fintrack/internal/core"
	"fintrack/internal/memory"
	"fintrack/internal/recurring"
)

const testUser = "user-1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

type fixture struct {
	repo      *memory.Store
	ledger    *LedgerService
	recurring *RecurringService
	goals     *GoalService
	publisher *recordingPublisher
}

// newFixture pins today to 2024-06-15 and seeds the default categories.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewSeeded(testUser, core.DefaultCategorySeeds())
	c := clock.FixedDate(2024, 6, 15)
	currency, _ := core.LookupCurrency("USD")
	ledger := NewLedgerService(repo, analytics.NewEngine(c, currency), LedgerOptions{})
	pub := &recordingPublisher{}
	return &fixture{
		repo:      repo,
		ledger:    ledger,
		recurring: NewRecurringService(repo, c, pub, ledger),
		goals:     NewGoalService(repo),
		publisher: pub,
	}
}

func (f *fixture) categoryID(t *testing.T, name string) string {
	t.Helper()
	cats, err := f.repo.ListCategories(context.Background(), testUser)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	for _, c := range cats {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return ""
}

type recordingPublisher struct {
	mu      sync.Mutex
	ruleIDs []string
	err     error
}

func (p *recordingPublisher) PublishTransactionGenerated(_ context.Context, _ core.Transaction, ruleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ruleIDs = append(p.ruleIDs, ruleID)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestLedgerService_AddTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves category and stores", func(t *testing.T) {
		f := newFixture(t)
		food := f.categoryID(t, "Food & Dining")
		tx, err := f.ledger.AddTransaction(ctx, core.Transaction{
			UserID: testUser, CategoryID: food, Amount: dec("12.50"),
			Type: core.Expense, Date: date(t, "2024-06-10"), Merchant: "Cafe",
		})
		if err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
		if tx.ID == "" || tx.Category == nil || tx.Category.Name != "Food & Dining" {
			t.Fatalf("unexpected transaction %+v", tx)
		}
		merchants, _ := f.ledger.Merchants(ctx, testUser)
		if len(merchants) != 1 || merchants[0] != "Cafe" {
			t.Errorf("merchants = %v", merchants)
		}
	})

	tests := []struct {
		name    string
		build   func(f *fixture) core.Transaction
		wantErr error
	}{
		{
			name: "unknown category",
			build: func(f *fixture) core.Transaction {
				return core.Transaction{UserID: testUser, CategoryID: "missing", Amount: dec("1"), Type: core.Expense, Date: date(t, "2024-06-01")}
			},
			wantErr: core.ErrNotFound,
		},
		{
			name: "income into expense category",
			build: func(f *fixture) core.Transaction {
				return core.Transaction{UserID: testUser, CategoryID: f.categoryID(t, "Shopping"), Amount: dec("1"), Type: core.Income, Date: date(t, "2024-06-01")}
			},
			wantErr: core.ErrCategoryTypeMismatch,
		},
		{
			name: "splits do not add up",
			build: func(f *fixture) core.Transaction {
				return core.Transaction{
					UserID: testUser, Amount: dec("100"), Type: core.Expense, Date: date(t, "2024-06-01"),
					Splits: []core.Split{
						{CategoryID: f.categoryID(t, "Shopping"), Amount: dec("60")},
						{CategoryID: f.categoryID(t, "Healthcare"), Amount: dec("30")},
					},
				}
			},
			wantErr: core.ErrSplitMismatch,
		},
		{
			name: "zero amount",
			build: func(f *fixture) core.Transaction {
				return core.Transaction{UserID: testUser, Amount: decimal.Zero, Type: core.Expense, Date: date(t, "2024-06-01")}
			},
			wantErr: core.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.ledger.AddTransaction(ctx, tt.build(f))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			txs, _ := f.repo.ListTransactions(ctx, testUser, core.TransactionFilter{})
			if len(txs) != 0 {
				t.Errorf("rejected transaction was stored")
			}
		})
	}
}

func TestLedgerService_Dashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.categoryID(t, "Food & Dining")
	salary := f.categoryID(t, "Salary")

	for _, tx := range []core.Transaction{
		{UserID: testUser, CategoryID: salary, Amount: dec("1000"), Type: core.Income, Date: date(t, "2024-06-01")},
		{UserID: testUser, CategoryID: food, Amount: dec("600"), Type: core.Expense, Date: date(t, "2024-06-03")},
		{UserID: testUser, CategoryID: food, Amount: dec("50"), Type: core.Expense, Date: date(t, "2024-05-20")},
	} {
		if _, err := f.ledger.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := f.ledger.SetBudget(ctx, testUser, food, dec("500"), core.Month{Year: 2024, Month: time.June}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	d, err := f.ledger.Dashboard(ctx, testUser)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if !d.Stats.Expenses.Equal(dec("600")) || !d.Stats.Income.Equal(dec("1000")) {
		t.Errorf("stats = %+v", d.Stats)
	}
	if len(d.Trend) != DefaultTrendMonths {
		t.Errorf("trend has %d months, want %d", len(d.Trend), DefaultTrendMonths)
	}
	if !hasInsight(d.Insights, "Food & Dining Budget Exceeded") {
		t.Errorf("expected budget exceeded insight, got %+v", d.Insights)
	}
	if d.Currency != "USD" {
		t.Errorf("currency = %q", d.Currency)
	}

	// Writes that bypass the service are not seen until invalidation.
	if _, err := f.repo.InsertTransaction(ctx, core.Transaction{UserID: testUser, Amount: dec("5"), Type: core.Expense, Date: date(t, "2024-06-14")}); err != nil {
		t.Fatalf("direct insert: %v", err)
	}
	cached, _ := f.ledger.Dashboard(ctx, testUser)
	if !cached.Stats.Expenses.Equal(dec("600")) {
		t.Errorf("expected cached dashboard, got expenses %s", cached.Stats.Expenses)
	}
	f.ledger.Invalidate(testUser)
	fresh, _ := f.ledger.Dashboard(ctx, testUser)
	if !fresh.Stats.Expenses.Equal(dec("605")) {
		t.Errorf("expected refreshed dashboard, got expenses %s", fresh.Stats.Expenses)
	}
}

func hasInsight(insights []analytics.Insight, title string) bool {
	for _, in := range insights {
		if in.Title == title {
			return true
		}
	}
	return false
}

func TestLedgerService_ReadViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.categoryID(t, "Food & Dining")
	for _, tx := range []core.Transaction{
		{UserID: testUser, CategoryID: food, Amount: dec("40"), Type: core.Expense, Date: date(t, "2024-04-02")},
		{UserID: testUser, CategoryID: food, Amount: dec("60"), Type: core.Expense, Date: date(t, "2024-06-02"), PaymentMethod: "Cash"},
	} {
		if _, err := f.ledger.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	april := core.Month{Year: 2024, Month: time.April}
	stats, err := f.ledger.MonthlyStats(ctx, testUser, &april)
	if err != nil || !stats.Expenses.Equal(dec("40")) {
		t.Errorf("April stats = %+v, %v", stats, err)
	}

	spending, err := f.ledger.CategorySpending(ctx, testUser, nil)
	if err != nil || len(spending) != 1 || !spending[0].Total.Equal(dec("60")) {
		t.Errorf("June spending = %+v, %v", spending, err)
	}

	trend, err := f.ledger.Trend(ctx, testUser, 3)
	if err != nil || len(trend) != 3 {
		t.Fatalf("trend = %+v, %v", trend, err)
	}
	if trend[0].Month != "2024-04" || !trend[0].Expenses.Equal(dec("40")) {
		t.Errorf("first trend entry = %+v", trend[0])
	}

	report, err := f.ledger.Report(ctx, testUser, core.MonthRange(2024, time.June), analytics.PeriodMonthly)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.TransactionCount != 1 || !report.TotalExpenses.Equal(dec("60")) {
		t.Errorf("report = %+v", report)
	}

	_, err = f.ledger.Report(ctx, testUser, core.DateRange{Start: date(t, "2024-06-30"), End: date(t, "2024-06-01")}, analytics.PeriodMonthly)
	if !core.IsValidation(err) {
		t.Errorf("expected validation error for inverted range, got %v", err)
	}
}

func TestLedgerService_ApplyBudgetTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	june := core.Month{Year: 2024, Month: time.June}

	budgets, err := f.ledger.ApplyBudgetTemplate(ctx, testUser, "50-30-20", dec("1000"), june)
	if err != nil {
		t.Fatalf("ApplyBudgetTemplate: %v", err)
	}
	if len(budgets) != 8 {
		t.Fatalf("expected 8 budgets, got %d", len(budgets))
	}

	transport := f.categoryID(t, "Transportation")
	stored, _ := f.ledger.Budgets(ctx, testUser, june)
	found := false
	for _, b := range stored {
		if b.CategoryID == transport {
			found = true
			if !b.Amount.Equal(dec("80")) {
				t.Errorf("Transportation budget = %s, want 80", b.Amount)
			}
		}
	}
	if !found {
		t.Error("template should reuse the existing Transportation category")
	}

	cats, _ := f.ledger.Categories(ctx, testUser, true)
	if want := len(core.DefaultCategorySeeds()) + 7; len(cats) != want {
		t.Errorf("expected %d categories after template, got %d", want, len(cats))
	}

	// Applying again replaces amounts instead of duplicating rows.
	if _, err := f.ledger.ApplyBudgetTemplate(ctx, testUser, "50-30-20", dec("2000"), june); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	again, _ := f.ledger.Budgets(ctx, testUser, june)
	if len(again) != 8 {
		t.Errorf("expected 8 budgets after reapply, got %d", len(again))
	}

	t.Run("unknown template", func(t *testing.T) {
		_, err := f.ledger.ApplyBudgetTemplate(ctx, testUser, "nope", dec("1000"), june)
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
	t.Run("non-positive income", func(t *testing.T) {
		_, err := f.ledger.ApplyBudgetTemplate(ctx, testUser, "zero-based", decimal.Zero, june)
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestLedgerService_Categories(t *testing.T) {
	ctx := context.Background()

	t.Run("seed only when empty", func(t *testing.T) {
		repo := memory.New()
		ledger := NewLedgerService(repo, analytics.NewEngine(clock.FixedDate(2024, 6, 15), core.Currency{}), LedgerOptions{})
		n, err := ledger.SeedDefaultCategories(ctx, "fresh")
		if err != nil || n != len(core.DefaultCategorySeeds()) {
			t.Fatalf("first seed = %d, %v", n, err)
		}
		n, err = ledger.SeedDefaultCategories(ctx, "fresh")
		if err != nil || n != 0 {
			t.Fatalf("second seed = %d, %v", n, err)
		}
	})

	t.Run("delete rules", func(t *testing.T) {
		f := newFixture(t)
		custom, err := f.ledger.CreateCategory(ctx, core.Category{UserID: testUser, Name: " Pets ", Type: core.CategoryExpense})
		if err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
		if custom.Name != "Pets" || custom.IsDefault {
			t.Errorf("unexpected category %+v", custom)
		}

		if err := f.ledger.DeleteCategory(ctx, testUser, f.categoryID(t, "Shopping")); !errors.Is(err, core.ErrDefaultCategory) {
			t.Errorf("expected ErrDefaultCategory, got %v", err)
		}

		if _, err := f.ledger.AddTransaction(ctx, core.Transaction{UserID: testUser, CategoryID: custom.ID, Amount: dec("9"), Type: core.Expense, Date: date(t, "2024-06-01")}); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
		if err := f.ledger.DeleteCategory(ctx, testUser, custom.ID); !errors.Is(err, core.ErrCategoryInUse) {
			t.Errorf("expected ErrCategoryInUse, got %v", err)
		}

		if err := f.ledger.ArchiveCategory(ctx, testUser, custom.ID, true); err != nil {
			t.Fatalf("ArchiveCategory: %v", err)
		}
		active, _ := f.ledger.Categories(ctx, testUser, false)
		for _, c := range active {
			if c.ID == custom.ID {
				t.Error("archived category listed as active")
			}
		}

		unused, _ := f.ledger.CreateCategory(ctx, core.Category{UserID: testUser, Name: "Hobbies", Type: core.CategoryExpense})
		if err := f.ledger.DeleteCategory(ctx, testUser, unused.ID); err != nil {
			t.Errorf("DeleteCategory: %v", err)
		}
	})
}

func TestRecurringService_CreateAndSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bills := f.categoryID(t, "Bills & Utilities")

	rule, err := f.recurring.CreateRule(ctx, core.RecurringRule{
		UserID: testUser, CategoryID: bills, Amount: dec("120"), Type: core.Expense,
		Description: "Internet", Frequency: core.Monthly, StartDate: date(t, "2024-05-15"),
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if got := rule.NextDueDate.String(); got != "2024-06-15" {
		t.Errorf("first due date = %s, want 2024-06-15", got)
	}
	if rule.ReminderDaysBefore != core.DefaultReminderDays || !rule.IsActive {
		t.Errorf("defaults not applied: %+v", rule)
	}

	reminders, err := f.recurring.Reminders(ctx, testUser)
	if err != nil || len(reminders) != 1 || reminders[0].DaysUntil != 0 {
		t.Fatalf("reminders = %+v, %v", reminders, err)
	}

	// Prime the dashboard cache so the sweep has something to invalidate.
	if _, err := f.ledger.Dashboard(ctx, testUser); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	res, err := f.recurring.Sweep(ctx, testUser)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Generated != 1 || len(res.Transactions) != 1 {
		t.Fatalf("sweep result = %+v", res)
	}
	if got := res.Transactions[0].Description; got != "Internet"+recurring.AutoGeneratedSuffix {
		t.Errorf("generated description = %q", got)
	}
	if len(f.publisher.ruleIDs) != 1 || f.publisher.ruleIDs[0] != rule.ID {
		t.Errorf("published rule ids = %v", f.publisher.ruleIDs)
	}

	d, _ := f.ledger.Dashboard(ctx, testUser)
	if !d.Stats.Expenses.Equal(dec("120")) {
		t.Errorf("dashboard not refreshed after sweep, expenses %s", d.Stats.Expenses)
	}

	rules, _ := f.recurring.Rules(ctx, testUser)
	if got := rules[0].NextDueDate.String(); got != "2024-07-15" {
		t.Errorf("next due date after sweep = %s", got)
	}

	// Nothing is due any more.
	res, _ = f.recurring.Sweep(ctx, testUser)
	if res.Generated != 0 {
		t.Errorf("second sweep generated %d", res.Generated)
	}
}

func TestRecurringService_CreateRuleValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name    string
		rule    core.RecurringRule
		wantErr error
	}{
		{"bad frequency", core.RecurringRule{UserID: testUser, Amount: dec("1"), Type: core.Expense, Description: "x", Frequency: "hourly"}, core.ErrInvalidFrequency},
		{"missing description", core.RecurringRule{UserID: testUser, Amount: dec("1"), Type: core.Expense, Frequency: core.Daily}, core.ErrEmptyName},
		{"unknown category", core.RecurringRule{UserID: testUser, CategoryID: "nope", Amount: dec("1"), Type: core.Expense, Description: "x", Frequency: core.Daily}, core.ErrNotFound},
		{"income rule on expense category", core.RecurringRule{UserID: testUser, CategoryID: f.categoryID(t, "Shopping"), Amount: dec("1"), Type: core.Income, Description: "x", Frequency: core.Daily}, core.ErrCategoryTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.recurring.CreateRule(ctx, tt.rule); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRecurringService_PublishFailureDoesNotFailSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	if _, err := f.recurring.CreateRule(ctx, core.RecurringRule{
		UserID: testUser, Amount: dec("10"), Type: core.Expense, Description: "Gym",
		Frequency: core.Weekly, StartDate: date(t, "2024-06-01"),
	}); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	res, err := f.recurring.Sweep(ctx, testUser)
	if err != nil || res.Generated != 1 {
		t.Fatalf("sweep = %+v, %v", res, err)
	}
}

func TestRecurringService_ToggleAndSweepAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	paused, err := f.recurring.CreateRule(ctx, core.RecurringRule{
		UserID: testUser, Amount: dec("5"), Type: core.Expense, Description: "Coffee",
		Frequency: core.Daily, StartDate: date(t, "2024-06-10"),
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if err := f.recurring.ToggleRule(ctx, testUser, paused.ID, false); err != nil {
		t.Fatalf("ToggleRule: %v", err)
	}
	if _, err := f.recurring.CreateRule(ctx, core.RecurringRule{
		UserID: "user-2", Amount: dec("7"), Type: core.Expense, Description: "Bus",
		Frequency: core.Daily, StartDate: date(t, "2024-06-13"),
	}); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	res, err := f.recurring.SweepAll(ctx)
	if err != nil {
		t.Fatalf("SweepAll: %v", err)
	}
	if res.Generated != 1 || res.Transactions[0].UserID != "user-2" {
		t.Errorf("SweepAll = %+v", res)
	}

	if err := f.recurring.ToggleRule(ctx, testUser, "missing", true); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGoalService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.goals.Create(ctx, core.SavingsGoal{UserID: testUser, Name: "Laptop", TargetAmount: dec("1000")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Icon != core.DefaultGoalIcon || g.Color != core.DefaultGoalColor || g.IsCompleted {
		t.Errorf("unexpected goal %+v", g)
	}

	g, err = f.goals.Contribute(ctx, testUser, g.ID, dec("400"))
	if err != nil || g.IsCompleted || !g.CurrentAmount.Equal(dec("400")) {
		t.Fatalf("after first contribution: %+v, %v", g, err)
	}
	g, err = f.goals.Contribute(ctx, testUser, g.ID, dec("600"))
	if err != nil || !g.IsCompleted {
		t.Fatalf("goal should be completed: %+v, %v", g, err)
	}

	if _, err := f.goals.Contribute(ctx, testUser, g.ID, dec("-1")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.goals.Contribute(ctx, "someone-else", g.ID, dec("1")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	g, err = f.goals.ToggleCompletion(ctx, testUser, g.ID)
	if err != nil || g.IsCompleted {
		t.Fatalf("toggle: %+v, %v", g, err)
	}

	done, err := f.goals.Create(ctx, core.SavingsGoal{UserID: testUser, Name: "Done", TargetAmount: dec("10"), CurrentAmount: dec("10")})
	if err != nil || !done.IsCompleted {
		t.Errorf("goal created at target should be completed: %+v, %v", done, err)
	}

	goals, _ := f.goals.List(ctx, testUser)
	if len(goals) != 2 {
		t.Errorf("expected 2 goals, got %d", len(goals))
	}
}

func TestLedgerService_EditTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.categoryID(t, "Food & Dining")
	shopping := f.categoryID(t, "Shopping")

	tx, err := f.ledger.AddTransaction(ctx, core.Transaction{
		UserID: testUser, CategoryID: food, Amount: dec("40"), Type: core.Expense, Date: date(t, "2024-06-10"),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if _, err := f.ledger.Dashboard(ctx, testUser); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	tx.Amount = dec("100")
	tx.CategoryID = ""
	tx.Splits = []core.Split{
		{CategoryID: food, Amount: dec("70")},
		{CategoryID: shopping, Amount: dec("30")},
	}
	updated, err := f.ledger.UpdateTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if !updated.IsSplit || updated.Splits[1].Category == nil || updated.Splits[1].Category.Name != "Shopping" {
		t.Errorf("splits not resolved: %+v", updated.Splits)
	}
	d, _ := f.ledger.Dashboard(ctx, testUser)
	if !d.Stats.Expenses.Equal(dec("100")) {
		t.Errorf("dashboard not refreshed after update, expenses %s", d.Stats.Expenses)
	}

	t.Run("rejects invalid edits", func(t *testing.T) {
		bad := tx
		bad.Splits = []core.Split{{CategoryID: food, Amount: dec("10")}}
		if _, err := f.ledger.UpdateTransaction(ctx, bad); !errors.Is(err, core.ErrSplitMismatch) {
			t.Errorf("expected ErrSplitMismatch, got %v", err)
		}
		missing := tx
		missing.ID = "missing"
		if _, err := f.ledger.UpdateTransaction(ctx, missing); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	if err := f.ledger.DeleteTransaction(ctx, testUser, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	d, _ = f.ledger.Dashboard(ctx, testUser)
	if !d.Stats.Expenses.IsZero() {
		t.Errorf("dashboard not refreshed after delete, expenses %s", d.Stats.Expenses)
	}
	if err := f.ledger.DeleteTransaction(ctx, testUser, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestLedgerService_UpdateCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.categoryID(t, "Food & Dining")

	c, err := f.ledger.UpdateCategory(ctx, core.Category{
		ID: food, UserID: testUser, Name: "  Groceries ", Icon: "🥦", Color: "#00ff00", Type: core.CategoryExpense,
	})
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if c.Name != "Groceries" || !c.IsDefault {
		t.Errorf("unexpected category %+v", c)
	}
	if got := f.categoryID(t, "Groceries"); got != food {
		t.Errorf("renamed category id = %s, want %s", got, food)
	}

	tests := []struct {
		name    string
		c       core.Category
		wantErr error
	}{
		{"empty name", core.Category{ID: food, UserID: testUser, Type: core.CategoryExpense}, core.ErrEmptyName},
		{"bad type", core.Category{ID: food, UserID: testUser, Name: "X", Type: "neither"}, core.ErrInvalidCategoryType},
		{"unknown id", core.Category{ID: "missing", UserID: testUser, Name: "X", Type: core.CategoryBoth}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.UpdateCategory(ctx, tt.c); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRecurringService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rule, err := f.recurring.CreateRule(ctx, core.RecurringRule{
		UserID: testUser, Amount: dec("50"), Type: core.Expense, Description: "Gym",
		Frequency: core.Monthly, StartDate: date(t, "2024-05-15"),
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	t.Run("keeps schedule when terms change", func(t *testing.T) {
		edit := rule
		edit.Amount = dec("55")
		edit.NextDueDate = date(t, "2030-01-01")
		got, err := f.recurring.UpdateRule(ctx, edit)
		if err != nil {
			t.Fatalf("UpdateRule: %v", err)
		}
		if got.NextDueDate.String() != "2024-06-15" || !got.Amount.Equal(dec("55")) || !got.IsActive {
			t.Errorf("unexpected rule %+v", got)
		}
	})

	if _, err := f.recurring.Sweep(ctx, testUser); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	t.Run("reschedules from last generated date", func(t *testing.T) {
		edit := rule
		edit.Frequency = core.Weekly
		got, err := f.recurring.UpdateRule(ctx, edit)
		if err != nil {
			t.Fatalf("UpdateRule: %v", err)
		}
		if got.LastGeneratedDate.String() != "2024-06-15" || got.NextDueDate.String() != "2024-06-22" {
			t.Errorf("last=%s next=%s", got.LastGeneratedDate, got.NextDueDate)
		}
		rules, _ := f.recurring.Rules(ctx, testUser)
		if rules[0].NextDueDate.String() != "2024-06-22" || rules[0].Frequency != core.Weekly {
			t.Errorf("stored rule %+v", rules[0])
		}
	})

	t.Run("rejects invalid edits", func(t *testing.T) {
		edit := rule
		edit.Frequency = "hourly"
		if _, err := f.recurring.UpdateRule(ctx, edit); !errors.Is(err, core.ErrInvalidFrequency) {
			t.Errorf("expected ErrInvalidFrequency, got %v", err)
		}
		edit = rule
		edit.ID = "missing"
		if _, err := f.recurring.UpdateRule(ctx, edit); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	if err := f.recurring.DeleteRule(ctx, testUser, rule.ID); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if rules, _ := f.recurring.Rules(ctx, testUser); len(rules) != 0 {
		t.Errorf("expected no rules, got %d", len(rules))
	}
	txs, _ := f.ledger.Transactions(ctx, testUser, core.TransactionFilter{})
	if len(txs) != 1 {
		t.Errorf("generated transactions should survive the rule, got %d", len(txs))
	}
}

func TestGoalService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.goals.Create(ctx, core.SavingsGoal{UserID: testUser, Name: "Trip", TargetAmount: dec("800"), Icon: "✈️"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	g.Name = "Long trip"
	g.Icon = ""
	g.CurrentAmount = dec("900")
	updated, err := f.goals.Update(ctx, g)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Icon != "✈️" || !updated.IsCompleted || updated.Name != "Long trip" {
		t.Errorf("unexpected goal %+v", updated)
	}

	g.TargetAmount = dec("2000")
	updated, err = f.goals.Update(ctx, g)
	if err != nil || updated.IsCompleted {
		t.Errorf("raising the target should reopen the goal: %+v, %v", updated, err)
	}

	g.TargetAmount = decimal.Zero
	if _, err := f.goals.Update(ctx, g); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	if err := f.goals.Delete(ctx, "someone-else", g.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := f.goals.Delete(ctx, testUser, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if goals, _ := f.goals.List(ctx, testUser); len(goals) != 0 {
		t.Errorf("expected no goals, got %d", len(goals))
	}
}

type countingSweeper struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSweeper) SweepAll(context.Context) (recurring.SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return recurring.SweepResult{Generated: 2}, nil
}

func TestSweepProcessor(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := NewSweepProcessor(nil, SweepProcessorConfig{})
		if p.config.PollInterval != time.Hour || p.config.SweepTimeout != 5*time.Minute {
			t.Errorf("unexpected config %+v", p.config)
		}
		if p.IsRunning() {
			t.Error("processor should not be running initially")
		}
		if err := p.Start(context.Background()); err == nil {
			t.Error("expected error starting without a sweeper")
		}
	})

	t.Run("runs immediately and stops", func(t *testing.T) {
		s := &countingSweeper{}
		p := NewSweepProcessor(s, SweepProcessorConfig{PollInterval: time.Hour})
		ctx := context.Background()
		if err := p.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := p.Start(ctx); err == nil {
			t.Error("expected error when starting twice")
		}

		deadline := time.Now().Add(2 * time.Second)
		for {
			res, _ := p.LastResult()
			if res.Generated == 2 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("initial sweep did not run")
			}
			time.Sleep(5 * time.Millisecond)
		}

		stopCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := p.Stop(stopCtx); err != nil {
			t.Fatalf("Stop: %v", err)
		}
		if p.IsRunning() {
			t.Error("processor still running after Stop")
		}
	})

	t.Run("stop when not running", func(t *testing.T) {
		p := NewSweepProcessor(&countingSweeper{}, DefaultSweepProcessorConfig())
		if err := p.Stop(context.Background()); err != nil {
			t.Errorf("Stop should not error when not running: %v", err)
		}
	})
}
