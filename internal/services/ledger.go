package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/analytics"
	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	DefaultTrendMonths = 6

	dashboardCacheSize = 256
	dashboardCacheTTL  = 2 * time.Minute
)

// Dashboard is everything the overview screen shows for the current month.
type Dashboard struct {
	Month    core.Month                   `json:"month"`
	Stats    analytics.MonthlyStats       `json:"stats"`
	Spending []analytics.CategorySpending `json:"spending"`
	Trend    []analytics.MonthTotals      `json:"trend"`
	Insights []analytics.Insight          `json:"insights"`
	Currency string                       `json:"currency"`
}

// LedgerOptions carries the user-facing defaults loaded from configuration.
type LedgerOptions struct {
	TrendMonths    int
	CategorySeeds  []core.CategorySeed
	PaymentMethods []string
	// CacheTTL bounds how long a dashboard is served from memory.
	CacheTTL time.Duration
}

// LedgerService reads the ledger through the repository and runs the
// analytics engine over it. Dashboards are cached per user and dropped on
// every write that could change them.
type LedgerService struct {
	repo      Repository
	engine    *analytics.Engine
	opts      LedgerOptions
	dashboard cache.Cache[Dashboard]
	logger    *log.StructuredLogger
}

func NewLedgerService(repo Repository, engine *analytics.Engine, opts LedgerOptions) *LedgerService {
	if opts.TrendMonths <= 0 {
		opts.TrendMonths = DefaultTrendMonths
	}
	if len(opts.CategorySeeds) == 0 {
		opts.CategorySeeds = core.DefaultCategorySeeds()
	}
	if len(opts.PaymentMethods) == 0 {
		opts.PaymentMethods = core.DefaultPaymentMethods()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = dashboardCacheTTL
	}
	return &LedgerService{
		repo:      repo,
		engine:    engine,
		opts:      opts,
		dashboard: cache.NewLRUCache[Dashboard](dashboardCacheSize, opts.CacheTTL),
		logger:    log.NewStructuredLogger(log.Default().WithComponent(log.ComponentLedger)),
	}
}

// DashboardCache exposes the cache so a cache.Manager can sweep it.
func (s *LedgerService) DashboardCache() cache.Cleaner {
	if c, ok := s.dashboard.(cache.Cleaner); ok {
		return c
	}
	return nil
}

func (s *LedgerService) Engine() *analytics.Engine { return s.engine }

// Invalidate drops every cached view of userID.
func (s *LedgerService) Invalidate(userID string) {
	s.dashboard.DeletePrefix(userID + "|")
}

type ledgerSnapshot struct {
	transactions []core.Transaction
	categories   []core.Category
	budgets      []core.Budget
}

// load fetches transactions, categories and the month's budgets concurrently.
func (s *LedgerService) load(ctx context.Context, userID string, f core.TransactionFilter, month *core.Month) (ledgerSnapshot, error) {
	var snap ledgerSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := s.repo.ListTransactions(gctx, userID, f)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.transactions = txs
		return nil
	})
	g.Go(func() error {
		cats, err := s.repo.ListCategories(gctx, userID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		snap.categories = cats
		return nil
	})
	if month != nil {
		g.Go(func() error {
			budgets, err := s.repo.ListBudgets(gctx, userID, *month)
			if err != nil {
				return fmt.Errorf("list budgets: %w", err)
			}
			snap.budgets = budgets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ledgerSnapshot{}, err
	}
	return snap, nil
}

// Dashboard computes the current month overview for userID.
func (s *LedgerService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	month := s.engine.CurrentMonth()
	key := fmt.Sprintf("%s|dashboard|%s|%d", userID, s.engine.Today(), s.opts.TrendMonths)
	if d, ok := s.dashboard.Get(key); ok {
		return d, nil
	}

	snap, err := s.load(ctx, userID, core.TransactionFilter{}, &month)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Month:    month,
		Stats:    s.engine.MonthlyStats(snap.transactions, &month),
		Spending: s.engine.CategorySpending(snap.transactions, snap.categories, &month),
		Trend:    s.engine.Trend(snap.transactions, s.opts.TrendMonths),
		Insights: s.engine.Insights(snap.transactions, snap.categories, snap.budgets),
		Currency: s.engine.Currency().Code,
	}
	s.dashboard.Set(key, d)
	return d, nil
}

func (s *LedgerService) MonthlyStats(ctx context.Context, userID string, month *core.Month) (analytics.MonthlyStats, error) {
	m := s.monthOrCurrent(month)
	txs, err := s.repo.ListTransactions(ctx, userID, core.InRange(core.DateRange{Start: m.First(), End: m.Last()}))
	if err != nil {
		return analytics.MonthlyStats{}, fmt.Errorf("list transactions: %w", err)
	}
	return s.engine.MonthlyStats(txs, &m), nil
}

func (s *LedgerService) CategorySpending(ctx context.Context, userID string, month *core.Month) ([]analytics.CategorySpending, error) {
	m := s.monthOrCurrent(month)
	snap, err := s.load(ctx, userID, core.InRange(core.DateRange{Start: m.First(), End: m.Last()}), nil)
	if err != nil {
		return nil, err
	}
	return s.engine.CategorySpending(snap.transactions, snap.categories, &m), nil
}

// Trend returns months entries ending with the current month. Zero or
// negative months uses the configured default.
func (s *LedgerService) Trend(ctx context.Context, userID string, months int) ([]analytics.MonthTotals, error) {
	if months <= 0 {
		months = s.opts.TrendMonths
	}
	current := s.engine.CurrentMonth()
	from := current.Add(-(months - 1)).First()
	txs, err := s.repo.ListTransactions(ctx, userID, core.TransactionFilter{From: from, To: current.Last()})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.engine.Trend(txs, months), nil
}

func (s *LedgerService) Insights(ctx context.Context, userID string) ([]analytics.Insight, error) {
	month := s.engine.CurrentMonth()
	snap, err := s.load(ctx, userID, core.TransactionFilter{}, &month)
	if err != nil {
		return nil, err
	}
	return s.engine.Insights(snap.transactions, snap.categories, snap.budgets), nil
}

func (s *LedgerService) Report(ctx context.Context, userID string, rng core.DateRange, period analytics.Period) (analytics.Report, error) {
	if err := rng.Validate(); err != nil {
		return analytics.Report{}, err
	}
	if !period.Valid() {
		period = analytics.PeriodMonthly
	}
	snap, err := s.load(ctx, userID, core.InRange(rng), nil)
	if err != nil {
		return analytics.Report{}, err
	}
	return s.engine.Report(snap.transactions, snap.categories, rng, period), nil
}

func (s *LedgerService) Transactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, f)
}

// prepareTransaction resolves the referenced categories and validates tx.
func (s *LedgerService) prepareTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if strings.TrimSpace(tx.UserID) == "" {
		return core.Transaction{}, fmt.Errorf("%w: user is required", core.ErrEmptyName)
	}
	cats, err := s.categoryIndex(ctx, tx.UserID)
	if err != nil {
		return core.Transaction{}, err
	}

	tx.Category = nil
	if tx.CategoryID != "" {
		c, ok := cats[tx.CategoryID]
		if !ok {
			return core.Transaction{}, fmt.Errorf("category %s: %w", tx.CategoryID, core.ErrNotFound)
		}
		tx.Category = &c
	}
	tx.IsSplit = tx.IsSplit || len(tx.Splits) > 0
	for i := range tx.Splits {
		tx.Splits[i].Category = nil
		if id := tx.Splits[i].CategoryID; id != "" {
			c, ok := cats[id]
			if !ok {
				return core.Transaction{}, fmt.Errorf("split %d category %s: %w", i+1, id, core.ErrNotFound)
			}
			tx.Splits[i].Category = &c
		}
	}

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// AddTransaction resolves the referenced categories, validates the entry and
// stores it.
func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx, err := s.prepareTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	id, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	tx.ID = id
	s.Invalidate(tx.UserID)

	s.logger.LogTransactionCreated(ctx, tx.UserID, id, string(tx.Type), tx.Amount.String(), tx.CategoryID)
	return tx, nil
}

// UpdateTransaction replaces a stored transaction, splits included. The
// entry goes through the same checks as a new one.
func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if strings.TrimSpace(tx.ID) == "" {
		return core.Transaction{}, fmt.Errorf("transaction: %w", core.ErrNotFound)
	}
	tx, err := s.prepareTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.Invalidate(tx.UserID)

	s.logger.LogTransactionUpdated(ctx, tx.UserID, tx.ID, string(tx.Type), tx.Amount.String(), tx.CategoryID)
	return tx, nil
}

// DeleteTransaction removes a transaction and its splits.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.Invalidate(userID)
	s.logger.LogTransactionDeleted(ctx, userID, id)
	return nil
}

func (s *LedgerService) categoryIndex(ctx context.Context, userID string) (map[string]core.Category, error) {
	cats, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	index := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		index[c.ID] = c
	}
	return index, nil
}

// SetBudget creates or replaces the budget of a category for month.
func (s *LedgerService) SetBudget(ctx context.Context, userID, categoryID string, amount decimal.Decimal, month core.Month) (core.Budget, error) {
	b := core.Budget{UserID: userID, CategoryID: categoryID, Amount: amount, Month: month.First()}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	id, err := s.repo.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	b.ID = id
	s.Invalidate(userID)
	return b, nil
}

func (s *LedgerService) Budgets(ctx context.Context, userID string, month core.Month) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID, month)
}

// ApplyBudgetTemplate prices a template against monthlyIncome and stores one
// budget per template line for month. Lines are matched to the user's
// expense categories by name (case-insensitive); missing categories are created.
func (s *LedgerService) ApplyBudgetTemplate(ctx context.Context, userID, templateID string, monthlyIncome decimal.Decimal, month core.Month) ([]core.Budget, error) {
	tmpl, ok := budget.Lookup(templateID)
	if !ok {
		return nil, fmt.Errorf("budget template %q: %w", templateID, core.ErrNotFound)
	}
	if !monthlyIncome.IsPositive() {
		return nil, fmt.Errorf("%w: monthly income must be greater than zero", core.ErrInvalidAmount)
	}

	cats, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	byName := make(map[string]string, len(cats))
	for _, c := range cats {
		if c.Type.Accepts(core.Expense) && !c.IsArchived {
			byName[strings.ToLower(c.Name)] = c.ID
		}
	}

	var out []core.Budget
	for _, alloc := range budget.Apply(tmpl, monthlyIncome) {
		catID, ok := byName[strings.ToLower(alloc.Category.Name)]
		if !ok {
			catID, err = s.repo.InsertCategory(ctx, core.Category{
				UserID: userID,
				Name:   alloc.Category.Name,
				Icon:   alloc.Category.Icon,
				Color:  "#6b7280",
				Type:   core.CategoryExpense,
			})
			if err != nil {
				return nil, fmt.Errorf("create category %q: %w", alloc.Category.Name, err)
			}
			byName[strings.ToLower(alloc.Category.Name)] = catID
		}
		b, err := s.SetBudget(ctx, userID, catID, alloc.Amount, month)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Categories lists the user's categories, hiding archived ones unless asked.
func (s *LedgerService) Categories(ctx context.Context, userID string, includeArchived bool) ([]core.Category, error) {
	cats, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if includeArchived {
		return cats, nil
	}
	active := cats[:0]
	for _, c := range cats {
		if !c.IsArchived {
			active = append(active, c)
		}
	}
	return active, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.IsDefault = false
	c.IsArchived = false
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	id, err := s.repo.InsertCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	c.ID = id
	s.Invalidate(c.UserID)
	return c, nil
}

// UpdateCategory renames or restyles a category. Its default and archived
// flags are not editable here.
func (s *LedgerService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	cats, err := s.categoryIndex(ctx, c.UserID)
	if err != nil {
		return core.Category{}, err
	}
	cur, ok := cats[c.ID]
	if !ok {
		return core.Category{}, fmt.Errorf("category %s: %w", c.ID, core.ErrNotFound)
	}
	c.Name = strings.TrimSpace(c.Name)
	c.IsDefault = cur.IsDefault
	c.IsArchived = cur.IsArchived
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	s.Invalidate(c.UserID)
	return c, nil
}

// SeedDefaultCategories gives a user without categories the configured
// defaults. It returns how many were created.
func (s *LedgerService) SeedDefaultCategories(ctx context.Context, userID string) (int, error) {
	existing, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, seed := range s.opts.CategorySeeds {
		if _, err := s.repo.InsertCategory(ctx, seed.Category(userID)); err != nil {
			return i, fmt.Errorf("seed category %q: %w", seed.Name, err)
		}
	}
	return len(s.opts.CategorySeeds), nil
}

func (s *LedgerService) ArchiveCategory(ctx context.Context, userID, id string, archived bool) error {
	if err := s.repo.SetCategoryArchived(ctx, userID, id, archived); err != nil {
		return err
	}
	s.Invalidate(userID)
	return nil
}

// DeleteCategory removes a custom category that no transaction references.
func (s *LedgerService) DeleteCategory(ctx context.Context, userID, id string) error {
	cats, err := s.categoryIndex(ctx, userID)
	if err != nil {
		return err
	}
	c, ok := cats[id]
	if !ok {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if c.IsDefault {
		return core.ErrDefaultCategory
	}
	inUse, err := s.repo.CategoryInUse(ctx, userID, id)
	if err != nil {
		return err
	}
	if inUse {
		return core.ErrCategoryInUse
	}
	if err := s.repo.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	s.Invalidate(userID)
	return nil
}

func (s *LedgerService) Merchants(ctx context.Context, userID string) ([]string, error) {
	return s.repo.ListMerchants(ctx, userID)
}

func (s *LedgerService) PaymentMethods() []string {
	return append([]string(nil), s.opts.PaymentMethods...)
}

func (s *LedgerService) monthOrCurrent(month *core.Month) core.Month {
	if month == nil {
		return s.engine.CurrentMonth()
	}
	return *month
}
