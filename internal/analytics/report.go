package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

const (
	topExpenseLimit   = 5
	splitLabel        = "Split Transaction"
	noDescription     = "No description"
	unspecifiedMethod = "Not specified"
)

// Title is the human heading for the period.
func (p Period) Title() string {
	if p == PeriodYearly {
		return "Yearly Report"
	}
	return "Monthly Report"
}

func (p Period) Valid() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

type ExpenseLine struct {
	TransactionID string          `json:"transaction_id"`
	Date          core.Date       `json:"date"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
}

type PaymentMethodTotal struct {
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Report is the aggregate for an inclusive day range. CategoryBreakdown keeps
// the full sorted list; use TopCategories to truncate for display.
type Report struct {
	Period            Period               `json:"period"`
	Title             string               `json:"title"`
	Start             core.Date            `json:"start_date"`
	End               core.Date            `json:"end_date"`
	TotalIncome       decimal.Decimal      `json:"total_income"`
	TotalExpenses     decimal.Decimal      `json:"total_expenses"`
	NetBalance        decimal.Decimal      `json:"net_balance"`
	TransactionCount  int                  `json:"transaction_count"`
	CategoryBreakdown []CategorySpending   `json:"category_breakdown"`
	MonthlyTrend      []MonthTotals        `json:"monthly_trend"`
	TopExpenses       []ExpenseLine        `json:"top_expenses"`
	PaymentMethods    []PaymentMethodTotal `json:"payment_methods"`
	SavingsRate       decimal.Decimal      `json:"savings_rate"`
	AvgDailyExpense   decimal.Decimal      `json:"avg_daily_expense"`
}

// TopCategories returns at most n breakdown entries.
func (r Report) TopCategories(n int) []CategorySpending {
	if n < 0 || n >= len(r.CategoryBreakdown) {
		return r.CategoryBreakdown
	}
	return r.CategoryBreakdown[:n]
}

// BuildReport aggregates the transactions dated within rng (inclusive).
func BuildReport(txs []core.Transaction, categories []core.Category, rng core.DateRange, period Period) Report {
	inRange := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if rng.Contains(tx.Date) {
			inRange = append(inRange, tx)
		}
	}

	all := func(core.Transaction) bool { return true }
	cat := newCatalog(categories)
	t := sumTotals(inRange, all)

	return Report{
		Period:            period,
		Title:             period.Title(),
		Start:             rng.Start,
		End:               rng.End,
		TotalIncome:       t.income,
		TotalExpenses:     t.expenses,
		NetBalance:        t.income.Sub(t.expenses),
		TransactionCount:  t.count,
		CategoryBreakdown: spendingBy(inRange, cat, all),
		MonthlyTrend:      rangeTrend(inRange, rng),
		TopExpenses:       topExpenses(inRange, cat, topExpenseLimit),
		PaymentMethods:    paymentMethods(inRange),
		SavingsRate:       SavingsRate(t.income, t.expenses),
		AvgDailyExpense:   t.expenses.Div(decimal.NewFromInt(int64(rangeDays(rng)))),
	}
}

// rangeTrend has one entry per calendar month touched by the range,
// including partially covered boundary months.
func rangeTrend(txs []core.Transaction, rng core.DateRange) []MonthTotals {
	out := []MonthTotals{}
	if rng.Start.IsZero() || rng.End.IsZero() {
		return out
	}
	last := rng.End.MonthOf()
	for m := rng.Start.MonthOf(); !last.Before(m); m = m.Add(1) {
		out = append(out, monthTotals(txs, m))
	}
	return out
}

func topExpenses(txs []core.Transaction, cat catalog, n int) []ExpenseLine {
	expenses := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == core.Expense {
			expenses = append(expenses, tx)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.GreaterThan(expenses[j].Amount)
	})
	if len(expenses) > n {
		expenses = expenses[:n]
	}

	out := make([]ExpenseLine, 0, len(expenses))
	for _, tx := range expenses {
		line := ExpenseLine{
			TransactionID: tx.ID,
			Date:          tx.Date,
			Description:   tx.Description,
			Amount:        tx.Amount,
		}
		if line.Description == "" {
			line.Description = noDescription
		}
		if tx.IsSplit {
			line.Category = splitLabel
		} else {
			line.Category = cat.label(tx.CategoryID, tx.Category)
		}
		out = append(out, line)
	}
	return out
}

// paymentMethods groups every transaction in range by its raw payment method,
// on parent amounts.
func paymentMethods(txs []core.Transaction) []PaymentMethodTotal {
	index := map[string]int{}
	out := []PaymentMethodTotal{}
	total := decimal.Zero
	for _, tx := range txs {
		method := tx.PaymentMethod
		if method == "" {
			method = unspecifiedMethod
		}
		i, ok := index[method]
		if !ok {
			i = len(out)
			index[method] = i
			out = append(out, PaymentMethodTotal{Method: method, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
		total = total.Add(tx.Amount)
	}
	for i := range out {
		out[i].Percentage = core.PercentOf(out[i].Amount, total)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// rangeDays is ceil(end-start) in days, floored at 1.
func rangeDays(rng core.DateRange) int {
	days := int(math.Ceil(rng.End.Sub(rng.Start.Time).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}
