package services

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/recurring"
)

// Repository is the persistence contract shared by every backend. All calls
// are scoped to a user; rows owned by someone else behave as missing and
// surface as core.ErrNotFound.
type Repository interface {
	recurring.Store

	// ListTransactions returns matching transactions newest first, with their
	// category and splits resolved.
	ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error)
	ListMerchants(ctx context.Context, userID string) ([]string, error)
	// UpdateTransaction rewrites the stored fields of tx and replaces its
	// splits with tx.Splits.
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	// DeleteTransaction removes the transaction together with its splits.
	DeleteTransaction(ctx context.Context, userID, id string) error

	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	InsertCategory(ctx context.Context, c core.Category) (string, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	SetCategoryArchived(ctx context.Context, userID, id string, archived bool) error
	CategoryInUse(ctx context.Context, userID, id string) (bool, error)
	DeleteCategory(ctx context.Context, userID, id string) error

	ListBudgets(ctx context.Context, userID string, month core.Month) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, b core.Budget) (string, error)

	ListRecurringRules(ctx context.Context, userID string) ([]core.RecurringRule, error)
	InsertRecurringRule(ctx context.Context, r core.RecurringRule) (string, error)
	UpdateRecurringRule(ctx context.Context, r core.RecurringRule) error
	DeleteRecurringRule(ctx context.Context, userID, id string) error
	// ListRecurringUsers returns every user owning at least one active rule.
	ListRecurringUsers(ctx context.Context) ([]string, error)

	ListGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error)
	GetGoal(ctx context.Context, userID, id string) (core.SavingsGoal, error)
	InsertGoal(ctx context.Context, g core.SavingsGoal) (string, error)
	UpdateGoalProgress(ctx context.Context, userID, id string, current decimal.Decimal, completed bool) error
	UpdateGoal(ctx context.Context, g core.SavingsGoal) error
	DeleteGoal(ctx context.Context, userID, id string) error

	Close() error
}

// EventPublisher receives a notification for every transaction a sweep creates.
type EventPublisher interface {
	PublishTransactionGenerated(ctx context.Context, tx core.Transaction, ruleID string) error
	Close() error
}
