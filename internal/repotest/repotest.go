// Package repotest exercises any services.Repository implementation against
// the same behavioural expectations.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const (
	userA = "user-a"
	userB = "user-b"
)

// Run executes the shared suite. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) services.Repository) {
	t.Run("transactions with splits", func(t *testing.T) { testTransactions(t, newRepo(t)) })
	t.Run("filters and ordering", func(t *testing.T) { testFilters(t, newRepo(t)) })
	t.Run("categories lifecycle", func(t *testing.T) { testCategories(t, newRepo(t)) })
	t.Run("budget upsert", func(t *testing.T) { testBudgets(t, newRepo(t)) })
	t.Run("recurring rules", func(t *testing.T) { testRecurring(t, newRepo(t)) })
	t.Run("goals", func(t *testing.T) { testGoals(t, newRepo(t)) })
	t.Run("merchants", func(t *testing.T) { testMerchants(t, newRepo(t)) })
	t.Run("transaction edit and delete", func(t *testing.T) { testTransactionEdits(t, newRepo(t)) })
	t.Run("category update", func(t *testing.T) { testCategoryUpdate(t, newRepo(t)) })
	t.Run("recurring edit and delete", func(t *testing.T) { testRecurringEdits(t, newRepo(t)) })
	t.Run("goal edit and delete", func(t *testing.T) { testGoalEdits(t, newRepo(t)) })
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustCategory(t *testing.T, repo services.Repository, userID, name string, typ core.CategoryType) string {
	t.Helper()
	id, err := repo.InsertCategory(context.Background(), core.Category{
		UserID: userID, Name: name, Icon: "x", Color: "#000000", Type: typ,
	})
	if err != nil {
		t.Fatalf("insert category %s: %v", name, err)
	}
	return id
}

func mustTransaction(t *testing.T, repo services.Repository, tx core.Transaction) string {
	t.Helper()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	id, err := repo.InsertTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	return id
}

func testTransactions(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	food := mustCategory(t, repo, userA, "Food", core.CategoryExpense)
	fun := mustCategory(t, repo, userA, "Fun", core.CategoryExpense)

	id := mustTransaction(t, repo, core.Transaction{
		UserID:  userA,
		Amount:  dec("100"),
		Type:    core.Expense,
		Date:    core.NewDate(2024, 3, 10),
		IsSplit: true,
		Splits: []core.Split{
			{CategoryID: food, Amount: dec("60"), Notes: "groceries"},
			{CategoryID: fun, Amount: dec("40")},
		},
	})
	mustTransaction(t, repo, core.Transaction{
		UserID: userB, Amount: dec("5"), Type: core.Expense, Date: core.NewDate(2024, 3, 10),
	})

	txs, err := repo.ListTransactions(ctx, userA, core.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != id {
		t.Fatalf("expected only user A's transaction, got %+v", txs)
	}
	tx := txs[0]
	if !tx.IsSplit || len(tx.Splits) != 2 {
		t.Fatalf("expected 2 splits, got %+v", tx.Splits)
	}
	if !tx.Amount.Equal(dec("100")) || tx.Date.String() != "2024-03-10" {
		t.Fatalf("unexpected round trip %s %s", tx.Amount, tx.Date)
	}
	var sawFood bool
	for _, sp := range tx.Splits {
		if sp.TransactionID != id {
			t.Errorf("split %s not linked to parent", sp.ID)
		}
		if sp.CategoryID == food {
			sawFood = true
			if sp.Category == nil || sp.Category.Name != "Food" || !sp.Amount.Equal(dec("60")) || sp.Notes != "groceries" {
				t.Errorf("food split not resolved: %+v", sp)
			}
		}
	}
	if !sawFood {
		t.Error("food split missing")
	}

	_, err = repo.InsertTransaction(ctx, core.Transaction{
		UserID: userA, CategoryID: "missing", Amount: dec("1"), Type: core.Expense, Date: core.NewDate(2024, 3, 1),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown category should be ErrNotFound, got %v", err)
	}
}

func testFilters(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	salary := mustCategory(t, repo, userA, "Salary", core.CategoryIncome)

	mustTransaction(t, repo, core.Transaction{UserID: userA, Amount: dec("10"), Type: core.Expense, Date: core.NewDate(2024, 2, 28)})
	mustTransaction(t, repo, core.Transaction{UserID: userA, Amount: dec("20"), Type: core.Expense, Date: core.NewDate(2024, 3, 1)})
	mustTransaction(t, repo, core.Transaction{UserID: userA, CategoryID: salary, Amount: dec("1000"), Type: core.Income, Date: core.NewDate(2024, 3, 31)})
	mustTransaction(t, repo, core.Transaction{UserID: userA, Amount: dec("30"), Type: core.Expense, Date: core.NewDate(2024, 4, 1)})

	march, err := repo.ListTransactions(ctx, userA, core.InRange(core.MonthRange(2024, time.March)))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(march) != 2 {
		t.Fatalf("expected 2 March transactions, got %d", len(march))
	}
	if march[0].Date.String() != "2024-03-31" || march[1].Date.String() != "2024-03-01" {
		t.Errorf("expected newest first, got %s then %s", march[0].Date, march[1].Date)
	}
	if march[0].Category == nil || march[0].Category.Name != "Salary" {
		t.Errorf("category not resolved: %+v", march[0].Category)
	}

	expenses, _ := repo.ListTransactions(ctx, userA, core.TransactionFilter{Type: core.Expense})
	if len(expenses) != 3 {
		t.Errorf("expected 3 expenses, got %d", len(expenses))
	}
}

func testCategories(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	id := mustCategory(t, repo, userA, "Travel", core.CategoryExpense)
	mustCategory(t, repo, userB, "Other user", core.CategoryExpense)

	cats, err := repo.ListCategories(ctx, userA)
	if err != nil || len(cats) != 1 || cats[0].Name != "Travel" {
		t.Fatalf("unexpected categories %+v, %v", cats, err)
	}

	if err := repo.SetCategoryArchived(ctx, userA, id, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	cats, _ = repo.ListCategories(ctx, userA)
	if !cats[0].IsArchived {
		t.Error("category should be archived")
	}
	if err := repo.SetCategoryArchived(ctx, userB, id, false); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign archive should be ErrNotFound, got %v", err)
	}

	inUse, err := repo.CategoryInUse(ctx, userA, id)
	if err != nil || inUse {
		t.Fatalf("fresh category reported in use: %v %v", inUse, err)
	}
	mustTransaction(t, repo, core.Transaction{UserID: userA, CategoryID: id, Amount: dec("1"), Type: core.Expense, Date: core.NewDate(2024, 1, 1)})
	if inUse, _ := repo.CategoryInUse(ctx, userA, id); !inUse {
		t.Error("category with a transaction should be in use")
	}

	unused := mustCategory(t, repo, userA, "Unused", core.CategoryBoth)
	if err := repo.DeleteCategory(ctx, userA, unused); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteCategory(ctx, userA, unused); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func testBudgets(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	food := mustCategory(t, repo, userA, "Food", core.CategoryExpense)
	month := core.Month{Year: 2024, Month: time.May}

	first, err := repo.UpsertBudget(ctx, core.Budget{UserID: userA, CategoryID: food, Amount: dec("300"), Month: month.First()})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := repo.UpsertBudget(ctx, core.Budget{UserID: userA, CategoryID: food, Amount: dec("450"), Month: month.First()})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first != second {
		t.Errorf("upsert should keep the budget id: %s vs %s", first, second)
	}

	budgets, err := repo.ListBudgets(ctx, userA, month)
	if err != nil || len(budgets) != 1 {
		t.Fatalf("expected one budget, got %+v %v", budgets, err)
	}
	if !budgets[0].Amount.Equal(dec("450")) || budgets[0].Category == nil || budgets[0].Category.Name != "Food" {
		t.Errorf("unexpected budget %+v", budgets[0])
	}
	if other, _ := repo.ListBudgets(ctx, userA, month.Add(1)); len(other) != 0 {
		t.Errorf("next month should have no budgets, got %d", len(other))
	}
}

func testRecurring(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	rule := core.RecurringRule{
		UserID:             userA,
		Amount:             dec("15.50"),
		Type:               core.Expense,
		Description:        "Streaming",
		Frequency:          core.Monthly,
		StartDate:          core.NewDate(2024, 1, 31),
		NextDueDate:        core.NewDate(2024, 2, 29),
		IsActive:           true,
		ReminderDaysBefore: 3,
	}
	id, err := repo.InsertRecurringRule(ctx, rule)
	if err != nil {
		t.Fatalf("insert rule: %v", err)
	}
	paused := rule
	paused.UserID = userB
	paused.IsActive = false
	if _, err := repo.InsertRecurringRule(ctx, paused); err != nil {
		t.Fatalf("insert paused rule: %v", err)
	}

	users, err := repo.ListRecurringUsers(ctx)
	if err != nil || len(users) != 1 || users[0] != userA {
		t.Fatalf("expected only %s, got %v %v", userA, users, err)
	}

	if err := repo.AdvanceRecurringRule(ctx, userA, id, core.NewDate(2024, 3, 29), core.NewDate(2024, 2, 29)); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := repo.SetRecurringRuleActive(ctx, userA, id, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := repo.AdvanceRecurringRule(ctx, userB, id, core.NewDate(2024, 4, 29), core.NewDate(2024, 3, 29)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign advance should be ErrNotFound, got %v", err)
	}

	rules, err := repo.ListRecurringRules(ctx, userA)
	if err != nil || len(rules) != 1 {
		t.Fatalf("list rules: %+v %v", rules, err)
	}
	got := rules[0]
	if got.NextDueDate.String() != "2024-03-29" || got.LastGeneratedDate.String() != "2024-02-29" || got.IsActive {
		t.Errorf("unexpected rule state %+v", got)
	}
	if !got.EndDate.IsEmpty() || !got.Amount.Equal(dec("15.50")) {
		t.Errorf("round trip lost data: end=%s amount=%s", got.EndDate, got.Amount)
	}
}

func testGoals(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	id, err := repo.InsertGoal(ctx, core.SavingsGoal{
		UserID: userA, Name: "Bike", TargetAmount: dec("500"), CurrentAmount: decimal.Zero,
		Deadline: core.NewDate(2024, 12, 31), Icon: core.DefaultGoalIcon, Color: core.DefaultGoalColor,
	})
	if err != nil {
		t.Fatalf("insert goal: %v", err)
	}
	if err := repo.UpdateGoalProgress(ctx, userA, id, dec("500"), true); err != nil {
		t.Fatalf("update: %v", err)
	}
	g, err := repo.GetGoal(ctx, userA, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !g.CurrentAmount.Equal(dec("500")) || !g.IsCompleted || g.Deadline.String() != "2024-12-31" {
		t.Errorf("unexpected goal %+v", g)
	}
	if _, err := repo.GetGoal(ctx, userB, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign goal should be ErrNotFound, got %v", err)
	}
	goals, _ := repo.ListGoals(ctx, userA)
	if len(goals) != 1 {
		t.Errorf("expected 1 goal, got %d", len(goals))
	}
}

func testMerchants(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	for _, m := range []string{"Shop", "Cafe", "Shop", ""} {
		mustTransaction(t, repo, core.Transaction{UserID: userA, Amount: dec("1"), Type: core.Expense, Merchant: m, Date: core.NewDate(2024, 1, 2)})
	}
	mustTransaction(t, repo, core.Transaction{UserID: userB, Amount: dec("1"), Type: core.Expense, Merchant: "Hidden", Date: core.NewDate(2024, 1, 2)})

	got, err := repo.ListMerchants(ctx, userA)
	if err != nil {
		t.Fatalf("merchants: %v", err)
	}
	if len(got) != 2 || got[0] != "Cafe" || got[1] != "Shop" {
		t.Errorf("ListMerchants() = %v", got)
	}
}

func testTransactionEdits(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	food := mustCategory(t, repo, userA, "Food", core.CategoryExpense)
	fun := mustCategory(t, repo, userA, "Fun", core.CategoryExpense)

	id := mustTransaction(t, repo, core.Transaction{
		UserID:  userA,
		Amount:  dec("100"),
		Type:    core.Expense,
		Date:    core.NewDate(2024, 3, 10),
		IsSplit: true,
		Splits: []core.Split{
			{CategoryID: food, Amount: dec("60")},
			{CategoryID: fun, Amount: dec("40")},
		},
	})

	edited := core.Transaction{
		ID:          id,
		UserID:      userA,
		Amount:      dec("90"),
		Type:        core.Expense,
		Description: "edited",
		Date:        core.NewDate(2024, 3, 11),
		IsSplit:     true,
		Splits:      []core.Split{{CategoryID: fun, Amount: dec("90"), Notes: "all fun"}},
	}
	if err := repo.UpdateTransaction(ctx, edited); err != nil {
		t.Fatalf("update: %v", err)
	}
	txs, _ := repo.ListTransactions(ctx, userA, core.TransactionFilter{})
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	got := txs[0]
	if !got.Amount.Equal(dec("90")) || got.Description != "edited" || got.Date.String() != "2024-03-11" {
		t.Errorf("update not applied: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("update should keep created_at")
	}
	if len(got.Splits) != 1 || got.Splits[0].CategoryID != fun || got.Splits[0].Notes != "all fun" {
		t.Errorf("splits not replaced: %+v", got.Splits)
	}
	if inUse, _ := repo.CategoryInUse(ctx, userA, food); inUse {
		t.Error("replaced split should no longer reference food")
	}

	foreign := edited
	foreign.UserID = userB
	if err := repo.UpdateTransaction(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign update should be ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, userB, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete should be ErrNotFound, got %v", err)
	}

	if err := repo.DeleteTransaction(ctx, userA, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if txs, _ := repo.ListTransactions(ctx, userA, core.TransactionFilter{}); len(txs) != 0 {
		t.Errorf("expected no transactions after delete, got %d", len(txs))
	}
	if inUse, _ := repo.CategoryInUse(ctx, userA, fun); inUse {
		t.Error("splits should be deleted with their transaction")
	}
	if err := repo.DeleteTransaction(ctx, userA, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func testCategoryUpdate(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	id := mustCategory(t, repo, userA, "Travel", core.CategoryExpense)
	if err := repo.SetCategoryArchived(ctx, userA, id, true); err != nil {
		t.Fatalf("archive: %v", err)
	}

	err := repo.UpdateCategory(ctx, core.Category{
		ID: id, UserID: userA, Name: "Trips", Icon: "y", Color: "#ffffff", Type: core.CategoryBoth,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	cats, _ := repo.ListCategories(ctx, userA)
	if len(cats) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cats))
	}
	c := cats[0]
	if c.Name != "Trips" || c.Icon != "y" || c.Color != "#ffffff" || c.Type != core.CategoryBoth {
		t.Errorf("update not applied: %+v", c)
	}
	if !c.IsArchived {
		t.Error("update must not touch the archived flag")
	}

	err = repo.UpdateCategory(ctx, core.Category{ID: id, UserID: userB, Name: "X", Type: core.CategoryBoth})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign update should be ErrNotFound, got %v", err)
	}
}

func testRecurringEdits(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	rule := core.RecurringRule{
		UserID:      userA,
		Amount:      dec("9.99"),
		Type:        core.Expense,
		Description: "Music",
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2024, 1, 15),
		NextDueDate: core.NewDate(2024, 2, 15),
		IsActive:    true,
	}
	id, err := repo.InsertRecurringRule(ctx, rule)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.AdvanceRecurringRule(ctx, userA, id, core.NewDate(2024, 3, 15), core.NewDate(2024, 2, 15)); err != nil {
		t.Fatalf("advance: %v", err)
	}

	rule.ID = id
	rule.Amount = dec("12.99")
	rule.Description = "Music family"
	rule.Frequency = core.Yearly
	rule.NextDueDate = core.NewDate(2025, 2, 15)
	rule.EndDate = core.NewDate(2026, 1, 1)
	if err := repo.UpdateRecurringRule(ctx, rule); err != nil {
		t.Fatalf("update: %v", err)
	}
	rules, _ := repo.ListRecurringRules(ctx, userA)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	got := rules[0]
	if !got.Amount.Equal(dec("12.99")) || got.Frequency != core.Yearly || got.Description != "Music family" {
		t.Errorf("update not applied: %+v", got)
	}
	if got.NextDueDate.String() != "2025-02-15" || got.EndDate.String() != "2026-01-01" {
		t.Errorf("dates not applied: next=%s end=%s", got.NextDueDate, got.EndDate)
	}
	if got.LastGeneratedDate.String() != "2024-02-15" {
		t.Errorf("update must keep last generated date, got %s", got.LastGeneratedDate)
	}

	foreign := rule
	foreign.UserID = userB
	if err := repo.UpdateRecurringRule(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign update should be ErrNotFound, got %v", err)
	}
	if err := repo.DeleteRecurringRule(ctx, userB, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete should be ErrNotFound, got %v", err)
	}
	if err := repo.DeleteRecurringRule(ctx, userA, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rules, _ := repo.ListRecurringRules(ctx, userA); len(rules) != 0 {
		t.Errorf("expected no rules after delete, got %d", len(rules))
	}
	if users, _ := repo.ListRecurringUsers(ctx); len(users) != 0 {
		t.Errorf("deleted rule should not keep its user in the sweep, got %v", users)
	}
}

func testGoalEdits(t *testing.T, repo services.Repository) {
	ctx := context.Background()
	goal := core.SavingsGoal{
		UserID: userA, Name: "Bike", TargetAmount: dec("500"), CurrentAmount: dec("100"),
		Icon: core.DefaultGoalIcon, Color: core.DefaultGoalColor,
	}
	id, err := repo.InsertGoal(ctx, goal)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	goal.ID = id
	goal.Name = "E-bike"
	goal.TargetAmount = dec("1500")
	goal.Deadline = core.NewDate(2025, 6, 30)
	if err := repo.UpdateGoal(ctx, goal); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetGoal(ctx, userA, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "E-bike" || !got.TargetAmount.Equal(dec("1500")) || got.Deadline.String() != "2025-06-30" {
		t.Errorf("update not applied: %+v", got)
	}

	foreign := goal
	foreign.UserID = userB
	if err := repo.UpdateGoal(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign update should be ErrNotFound, got %v", err)
	}
	if err := repo.DeleteGoal(ctx, userB, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete should be ErrNotFound, got %v", err)
	}
	if err := repo.DeleteGoal(ctx, userA, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetGoal(ctx, userA, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted goal should be ErrNotFound, got %v", err)
	}
}
