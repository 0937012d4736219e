// Package memory is a process-local repository used by tests and the
// "memory" backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type Store struct {
	mu           sync.RWMutex
	transactions []core.Transaction
	categories   []core.Category
	budgets      []core.Budget
	rules        []core.RecurringRule
	goals        []core.SavingsGoal
	now          func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewSeeded returns a store holding the given categories for userID.
func NewSeeded(userID string, seeds []core.CategorySeed) *Store {
	s := New()
	for _, seed := range seeds {
		c := seed.Category(userID)
		c.ID = uuid.NewString()
		s.categories = append(s.categories, c)
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.CategoryID != "" {
		if _, ok := s.category(tx.UserID, tx.CategoryID); !ok {
			return "", fmt.Errorf("category %s: %w", tx.CategoryID, core.ErrNotFound)
		}
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	tx.Category = nil
	tx.Splits = ownSplits(tx.ID, tx.Splits)
	s.transactions = append(s.transactions, tx)
	return tx.ID, nil
}

// ownSplits copies splits, linking each to txID and dropping resolved categories.
func ownSplits(txID string, in []core.Split) []core.Split {
	splits := make([]core.Split, len(in))
	for i, sp := range in {
		if sp.ID == "" {
			sp.ID = uuid.NewString()
		}
		sp.TransactionID = txID
		sp.Category = nil
		splits[i] = sp
	}
	return splits
}

// UpdateTransaction keeps the original creation time; the splits are replaced.
func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.CategoryID != "" {
		if _, ok := s.category(tx.UserID, tx.CategoryID); !ok {
			return fmt.Errorf("category %s: %w", tx.CategoryID, core.ErrNotFound)
		}
	}
	for i := range s.transactions {
		cur := &s.transactions[i]
		if cur.ID != tx.ID || cur.UserID != tx.UserID {
			continue
		}
		tx.CreatedAt = cur.CreatedAt
		tx.Category = nil
		tx.Splits = ownSplits(tx.ID, tx.Splits)
		*cur = tx
		return nil
	}
	return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.transactions {
		if tx.ID == id && tx.UserID == userID {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.Transaction{}
	for _, tx := range s.transactions {
		if tx.UserID != userID || !f.Matches(tx) {
			continue
		}
		tx.Category = s.categoryRef(userID, tx.CategoryID)
		splits := make([]core.Split, len(tx.Splits))
		for i, sp := range tx.Splits {
			sp.Category = s.categoryRef(userID, sp.CategoryID)
			splits[i] = sp
		}
		tx.Splits = splits
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListMerchants(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, tx := range s.transactions {
		m := strings.TrimSpace(tx.Merchant)
		if tx.UserID != userID || m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.Category{}
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertCategory(_ context.Context, c core.Category) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.categories = append(s.categories, c)
	return c.ID, nil
}

// UpdateCategory rewrites name, icon, color and type. The default and
// archived flags are left alone.
func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		cur := &s.categories[i]
		if cur.ID == c.ID && cur.UserID == c.UserID {
			cur.Name = c.Name
			cur.Icon = c.Icon
			cur.Color = c.Color
			cur.Type = c.Type
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", c.ID, core.ErrNotFound)
}

func (s *Store) SetCategoryArchived(_ context.Context, userID, id string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == id && s.categories[i].UserID == userID {
			s.categories[i].IsArchived = archived
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
}

func (s *Store) CategoryInUse(_ context.Context, userID, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if tx.CategoryID == id {
			return true, nil
		}
		for _, sp := range tx.Splits {
			if sp.CategoryID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListBudgets(_ context.Context, userID string, month core.Month) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.Budget{}
	first := month.First()
	for _, b := range s.budgets {
		if b.UserID == userID && b.Month.Equal(first.Time) {
			b.Category = s.categoryRef(userID, b.CategoryID)
			out = append(out, b)
		}
	}
	return out, nil
}

// UpsertBudget replaces the amount of an existing (user, category, month)
// budget or inserts a new one.
func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.category(b.UserID, b.CategoryID); !ok {
		return "", fmt.Errorf("category %s: %w", b.CategoryID, core.ErrNotFound)
	}
	b.Category = nil
	for i, existing := range s.budgets {
		if existing.UserID == b.UserID && existing.CategoryID == b.CategoryID && existing.Month.Equal(b.Month.Time) {
			s.budgets[i].Amount = b.Amount
			return existing.ID, nil
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.budgets = append(s.budgets, b)
	return b.ID, nil
}

func (s *Store) ListRecurringRules(_ context.Context, userID string) ([]core.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.RecurringRule{}
	for _, r := range s.rules {
		if r.UserID == userID {
			r.Category = s.categoryRef(userID, r.CategoryID)
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextDueDate.Before(out[j].NextDueDate.Time) })
	return out, nil
}

func (s *Store) InsertRecurringRule(_ context.Context, r core.RecurringRule) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Category = nil
	s.rules = append(s.rules, r)
	return r.ID, nil
}

// UpdateRecurringRule rewrites the editable fields of r. The last generated
// date belongs to the sweep and is kept.
func (s *Store) UpdateRecurringRule(_ context.Context, r core.RecurringRule) error {
	return s.updateRule(r.UserID, r.ID, func(cur *core.RecurringRule) {
		last := cur.LastGeneratedDate
		*cur = r
		cur.Category = nil
		cur.LastGeneratedDate = last
	})
}

func (s *Store) DeleteRecurringRule(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rules {
		if r.ID == id && r.UserID == userID {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("recurring rule %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListRecurringUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range s.rules {
		if !r.IsActive {
			continue
		}
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			out = append(out, r.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AdvanceRecurringRule(_ context.Context, userID, ruleID string, next, lastGenerated core.Date) error {
	return s.updateRule(userID, ruleID, func(r *core.RecurringRule) {
		r.NextDueDate = next
		r.LastGeneratedDate = lastGenerated
	})
}

func (s *Store) SetRecurringRuleActive(_ context.Context, userID, ruleID string, active bool) error {
	return s.updateRule(userID, ruleID, func(r *core.RecurringRule) { r.IsActive = active })
}

func (s *Store) updateRule(userID, ruleID string, fn func(*core.RecurringRule)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == ruleID && s.rules[i].UserID == userID {
			fn(&s.rules[i])
			return nil
		}
	}
	return fmt.Errorf("recurring rule %s: %w", ruleID, core.ErrNotFound)
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.SavingsGoal{}
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (core.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.goals {
		if g.ID == id && g.UserID == userID {
			return g, nil
		}
	}
	return core.SavingsGoal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
}

func (s *Store) InsertGoal(_ context.Context, g core.SavingsGoal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	s.goals = append(s.goals, g)
	return g.ID, nil
}

func (s *Store) UpdateGoalProgress(_ context.Context, userID, id string, current decimal.Decimal, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID == id && s.goals[i].UserID == userID {
			s.goals[i].CurrentAmount = current
			s.goals[i].IsCompleted = completed
			return nil
		}
	}
	return fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
}

func (s *Store) UpdateGoal(_ context.Context, g core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID == g.ID && s.goals[i].UserID == g.UserID {
			s.goals[i] = g
			return nil
		}
	}
	return fmt.Errorf("goal %s: %w", g.ID, core.ErrNotFound)
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.goals {
		if g.ID == id && g.UserID == userID {
			s.goals = append(s.goals[:i], s.goals[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
}

func (s *Store) category(userID, id string) (core.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			return c, true
		}
	}
	return core.Category{}, false
}

func (s *Store) categoryRef(userID, id string) *core.Category {
	if id == "" {
		return nil
	}
	c, ok := s.category(userID, id)
	if !ok {
		return nil
	}
	return &c
}
