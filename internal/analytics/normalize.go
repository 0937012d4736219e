// Package analytics turns a resolved transaction ledger into statistics,
// category breakdowns, trends, insights and period reports.
//
// Every function here is pure: inputs are already-fetched records, outputs are
// plain values, and "today" always comes from the caller.
package analytics

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Allocation is the share of a transaction attributed to one category.
// An empty CategoryID means uncategorized.
type Allocation struct {
	CategoryID string
	Category   *core.Category
	Amount     decimal.Decimal
}

// Allocations resolves a transaction to its effective category allocations.
// Stored splits are authoritative: when present, the parent category and
// amount are ignored.
func Allocations(t core.Transaction) []Allocation {
	if t.IsSplit && len(t.Splits) > 0 {
		out := make([]Allocation, 0, len(t.Splits))
		for _, s := range t.Splits {
			out = append(out, Allocation{CategoryID: s.CategoryID, Category: s.Category, Amount: s.Amount})
		}
		return out
	}
	return []Allocation{{CategoryID: t.CategoryID, Category: t.Category, Amount: t.Amount}}
}

// AllocatedTotal is the sum of Allocations(t).
func AllocatedTotal(t core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, a := range Allocations(t) {
		total = total.Add(a.Amount)
	}
	return total
}
