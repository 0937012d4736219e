package analytics

import (
	"fintrack/internal/clock"
	"fintrack/internal/core"
)

// Engine binds the pure computations to a clock and a display currency so
// callers can ask for "this month" without passing dates around.
type Engine struct {
	clock    clock.Clock
	currency core.Currency
}

func NewEngine(c clock.Clock, currency core.Currency) *Engine {
	if c == nil {
		c = clock.System{}
	}
	return &Engine{clock: c, currency: currency}
}

func (e *Engine) Currency() core.Currency { return e.currency }

func (e *Engine) Today() core.Date { return clock.Today(e.clock) }

func (e *Engine) CurrentMonth() core.Month { return clock.CurrentMonth(e.clock) }

// MonthlyStats defaults to the current month when month is nil.
func (e *Engine) MonthlyStats(txs []core.Transaction, month *core.Month) MonthlyStats {
	return ComputeMonthlyStats(txs, e.monthOrCurrent(month))
}

func (e *Engine) CategorySpending(txs []core.Transaction, categories []core.Category, month *core.Month) []CategorySpending {
	return ComputeCategorySpending(txs, categories, e.monthOrCurrent(month))
}

func (e *Engine) Trend(txs []core.Transaction, months int) []MonthTotals {
	return ComputeTrend(txs, months, e.CurrentMonth())
}

// Insights evaluates the current month against its budgets.
func (e *Engine) Insights(txs []core.Transaction, categories []core.Category, budgets []core.Budget) []Insight {
	month := e.CurrentMonth()
	return GenerateInsights(InsightInput{
		Transactions: txs,
		Categories:   categories,
		Spending:     ComputeCategorySpending(txs, categories, month),
		Budgets:      budgets,
		Today:        e.Today(),
		Currency:     e.currency,
	})
}

func (e *Engine) Report(txs []core.Transaction, categories []core.Category, rng core.DateRange, period Period) Report {
	return BuildReport(txs, categories, rng, period)
}

func (e *Engine) monthOrCurrent(month *core.Month) core.Month {
	if month == nil {
		return e.CurrentMonth()
	}
	return *month
}
