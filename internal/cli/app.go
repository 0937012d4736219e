package cli

import (
	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/clock"
	"fintrack/internal/config"
	"fintrack/internal/services"
)

// App is the set of services every entrypoint works with.
type App struct {
	Config    *config.Config
	Ledger    *services.LedgerService
	Recurring *services.RecurringService
	Goals     *services.GoalService
	Caches    *cache.Manager
	Backend   *backend.BackendResult
}

// NewApp wires the services over an initialized backend.
func NewApp(cfg *config.Config, b *backend.BackendResult, c clock.Clock) *App {
	if c == nil {
		c = clock.System{}
	}
	engine := analytics.NewEngine(c, cfg.Defaults.CurrencyInfo())
	ledger := services.NewLedgerService(b.Repository, engine, services.LedgerOptions{
		TrendMonths:    cfg.Defaults.TrendMonths,
		CategorySeeds:  cfg.Defaults.Categories,
		PaymentMethods: cfg.Defaults.PaymentMethods,
		CacheTTL:       cfg.CacheTTL,
	})

	caches := cache.NewManager()
	if cleaner := ledger.DashboardCache(); cleaner != nil {
		caches.Register(cleaner)
	}

	return &App{
		Config:    cfg,
		Ledger:    ledger,
		Recurring: services.NewRecurringService(b.Repository, c, b.Publisher, ledger).WithReminderDays(cfg.Defaults.ReminderDays),
		Goals:     services.NewGoalService(b.Repository),
		Caches:    caches,
		Backend:   b,
	}
}

// Close stops cache cleanup and releases the backend.
func (a *App) Close() error {
	a.Caches.Stop()
	if a.Backend.Cleanup != nil {
		return a.Backend.Cleanup()
	}
	return nil
}
