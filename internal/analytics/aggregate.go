package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	UncategorizedName = "Uncategorized"
	UncategorizedIcon = "📌"
)

// MonthlyStats are type-level totals for one month, on parent amounts.
type MonthlyStats struct {
	Month            string          `json:"month"`
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transaction_count"`
}

// CategorySpending is the expense allocated to one category over a window.
type CategorySpending struct {
	Category   core.Category   `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Percentage decimal.Decimal `json:"percentage"`
	Count      int             `json:"count"`
}

// MonthTotals is one entry of a trend series.
type MonthTotals struct {
	Month    string          `json:"month"`
	Label    string          `json:"label"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

type totals struct {
	income   decimal.Decimal
	expenses decimal.Decimal
	count    int
}

func sumTotals(txs []core.Transaction, include func(core.Transaction) bool) totals {
	t := totals{income: decimal.Zero, expenses: decimal.Zero}
	for _, tx := range txs {
		if !include(tx) {
			continue
		}
		t.count++
		switch tx.Type {
		case core.Income:
			t.income = t.income.Add(tx.Amount)
		case core.Expense:
			t.expenses = t.expenses.Add(tx.Amount)
		}
	}
	return t
}

func inMonth(m core.Month) func(core.Transaction) bool {
	return func(tx core.Transaction) bool { return m.Contains(tx.Date) }
}

// ComputeMonthlyStats totals income and expenses for the month.
func ComputeMonthlyStats(txs []core.Transaction, month core.Month) MonthlyStats {
	t := sumTotals(txs, inMonth(month))
	return MonthlyStats{
		Month:            month.String(),
		Income:           t.income,
		Expenses:         t.expenses,
		Balance:          t.income.Sub(t.expenses),
		TransactionCount: t.count,
	}
}

// ComputeCategorySpending breaks the month's expenses down by category.
func ComputeCategorySpending(txs []core.Transaction, categories []core.Category, month core.Month) []CategorySpending {
	return spendingBy(txs, newCatalog(categories), inMonth(month))
}

// ComputeTrend returns exactly n entries, oldest first, ending at current.
// Months without transactions are zero-valued.
func ComputeTrend(txs []core.Transaction, n int, current core.Month) []MonthTotals {
	if n <= 0 {
		return []MonthTotals{}
	}
	out := make([]MonthTotals, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, monthTotals(txs, current.Add(-i)))
	}
	return out
}

func monthTotals(txs []core.Transaction, m core.Month) MonthTotals {
	t := sumTotals(txs, inMonth(m))
	return MonthTotals{
		Month:    m.String(),
		Label:    m.Label(),
		Income:   t.income,
		Expenses: t.expenses,
		Balance:  t.income.Sub(t.expenses),
	}
}

// catalog resolves category display data by ID, preferring the caller's
// category list over the copy embedded in a record.
type catalog map[string]core.Category

func newCatalog(categories []core.Category) catalog {
	c := make(catalog, len(categories))
	for _, cat := range categories {
		c[cat.ID] = cat
	}
	return c
}

func (c catalog) resolve(id string, embedded *core.Category) core.Category {
	if id != "" {
		if cat, ok := c[id]; ok {
			return cat
		}
	}
	if embedded != nil {
		cat := *embedded
		if cat.ID == "" {
			cat.ID = id
		}
		return cat
	}
	return core.Category{ID: id, Name: UncategorizedName, Icon: UncategorizedIcon, Type: core.CategoryExpense}
}

// label names a category for display. An ID that resolves nowhere is shown
// as is: the record is categorized, only the category is unknown here.
func (c catalog) label(id string, embedded *core.Category) string {
	if embedded == nil {
		if id == "" {
			return UncategorizedName
		}
		if _, ok := c[id]; !ok {
			return id
		}
	}
	return c.resolve(id, embedded).Name
}

// spendingBy aggregates expense allocations of the included transactions.
// Percentages are shares of the allocated total, not of the parent expense
// total: a split whose parts no longer add up to its parent (edited outside
// validation) would otherwise push the shares past or below 100.
func spendingBy(txs []core.Transaction, cat catalog, include func(core.Transaction) bool) []CategorySpending {
	index := map[string]int{}
	var out []CategorySpending
	total := decimal.Zero

	for _, tx := range txs {
		if tx.Type != core.Expense || !include(tx) {
			continue
		}
		for _, a := range Allocations(tx) {
			i, ok := index[a.CategoryID]
			if !ok {
				i = len(out)
				index[a.CategoryID] = i
				out = append(out, CategorySpending{Category: cat.resolve(a.CategoryID, a.Category), Total: decimal.Zero})
			}
			out[i].Total = out[i].Total.Add(a.Amount)
			out[i].Count++
			total = total.Add(a.Amount)
		}
	}

	filtered := out[:0]
	for _, cs := range out {
		if cs.Total.IsZero() {
			continue
		}
		cs.Percentage = core.PercentOf(cs.Total, total)
		filtered = append(filtered, cs)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if c := filtered[i].Total.Cmp(filtered[j].Total); c != 0 {
			return c > 0
		}
		return filtered[i].Category.Name < filtered[j].Category.Name
	})
	if filtered == nil {
		return []CategorySpending{}
	}
	return filtered
}

// SpendingFor returns the entry for categoryID, if any.
func SpendingFor(spending []CategorySpending, categoryID string) (CategorySpending, bool) {
	for _, cs := range spending {
		if cs.Category.ID == categoryID {
			return cs, true
		}
	}
	return CategorySpending{}, false
}
