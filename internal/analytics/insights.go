package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
)

const (
	anomalyWindow     = 5
	anomalyMultiplier = 3
)

var (
	hundred            = decimal.NewFromInt(100)
	budgetAlertRatio   = decimal.RequireFromString("0.8")
	savingsSuccessRate = decimal.NewFromInt(20)
)

type Insight struct {
	Severity    Severity `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
}

// InsightInput carries everything the insight rules read. Spending and
// Budgets are expected to describe the month containing Today.
type InsightInput struct {
	Transactions []core.Transaction
	Categories   []core.Category
	Spending     []CategorySpending
	Budgets      []core.Budget
	Today        core.Date
	Currency     core.Currency
}

// GenerateInsights runs every rule in order and concatenates their output.
// No rule suppresses another.
func GenerateInsights(in InsightInput) []Insight {
	stats := ComputeMonthlyStats(in.Transactions, in.Today.MonthOf())
	cat := newCatalog(in.Categories)

	insights := []Insight{}
	insights = append(insights, budgetInsights(in, cat)...)
	if top, ok := topCategoryInsight(in); ok {
		insights = append(insights, top)
	}
	if s, ok := savingsInsight(stats, in.Currency); ok {
		insights = append(insights, s)
	}
	if a, ok := anomalyInsight(in, stats); ok {
		insights = append(insights, a)
	}
	return insights
}

func budgetInsights(in InsightInput, cat catalog) []Insight {
	var out []Insight
	for _, b := range in.Budgets {
		spent, ok := SpendingFor(in.Spending, b.CategoryID)
		if !ok || !b.Amount.IsPositive() {
			continue
		}
		ratio := spent.Total.Div(b.Amount)
		pct := ratio.Mul(hundred).StringFixed(0)
		name := cat.resolve(b.CategoryID, b.Category).Name

		switch {
		case ratio.GreaterThan(decimal.NewFromInt(1)):
			out = append(out, Insight{
				Severity: SeverityWarning,
				Title:    name + " Budget Exceeded",
				Description: fmt.Sprintf("You've spent %s (%s%% of your %s budget)",
					in.Currency.Format(spent.Total), pct, in.Currency.Format(b.Amount)),
				Icon: "⚠️",
			})
		case ratio.GreaterThan(budgetAlertRatio):
			out = append(out, Insight{
				Severity: SeverityWarning,
				Title:    name + " Budget Alert",
				Description: fmt.Sprintf("You're at %s%% of your budget. %s remaining.",
					pct, in.Currency.Format(b.Amount.Sub(spent.Total))),
				Icon: "🔔",
			})
		}
	}
	return out
}

func topCategoryInsight(in InsightInput) (Insight, bool) {
	if len(in.Spending) == 0 {
		return Insight{}, false
	}
	top := in.Spending[0]
	return Insight{
		Severity: SeverityInfo,
		Title:    "Top Spending Category",
		Description: fmt.Sprintf("%s accounts for %s%% of your expenses (%s)",
			top.Category.Name, top.Percentage.StringFixed(1), in.Currency.Format(top.Total)),
		Icon: top.Category.Icon,
	}, true
}

func savingsInsight(stats MonthlyStats, currency core.Currency) (Insight, bool) {
	if !stats.Income.IsPositive() {
		return Insight{}, false
	}
	rate := SavingsRate(stats.Income, stats.Expenses)
	switch {
	case rate.GreaterThan(savingsSuccessRate):
		return Insight{
			Severity:    SeveritySuccess,
			Title:       "Great Savings Rate!",
			Description: fmt.Sprintf("You're saving %s%% of your income this month. Keep it up!", rate.StringFixed(1)),
			Icon:        "🎉",
		}, true
	case rate.IsNegative():
		return Insight{
			Severity: SeverityWarning,
			Title:    "Spending More Than Earning",
			Description: fmt.Sprintf("Your expenses exceed your income by %s. Consider reviewing your spending.",
				currency.Format(stats.Balance)),
			Icon: "💸",
		}, true
	}
	return Insight{}, false
}

// anomalyInsight flags the first of the most recent expenses whose amount
// exceeds three times the month-to-date mean daily expense.
func anomalyInsight(in InsightInput, stats MonthlyStats) (Insight, bool) {
	day := in.Today.Day()
	if day < 1 {
		return Insight{}, false
	}
	threshold := stats.Expenses.Div(decimal.NewFromInt(int64(day))).Mul(decimal.NewFromInt(anomalyMultiplier))

	for _, tx := range recentExpenses(in.Transactions, anomalyWindow) {
		if tx.Amount.GreaterThan(threshold) {
			return Insight{
				Severity:    SeverityInfo,
				Title:       "Unusual High Expense Detected",
				Description: fmt.Sprintf("Recent transaction of %s is higher than usual.", in.Currency.Format(tx.Amount)),
				Icon:        "📊",
			}, true
		}
	}
	return Insight{}, false
}

// recentExpenses returns up to n expense transactions, newest date first.
func recentExpenses(txs []core.Transaction, n int) []core.Transaction {
	expenses := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == core.Expense {
			expenses = append(expenses, tx)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date.After(expenses[j].Date.Time)
	})
	if len(expenses) > n {
		expenses = expenses[:n]
	}
	return expenses
}

// SavingsRate returns (income-expenses)/income*100, or zero without income.
func SavingsRate(income, expenses decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return core.PercentOf(income.Sub(expenses), income)
}
