// Package budget holds the built-in budget templates and turns a monthly
// income into per-category limits.
package budget

import (
	"github.com/shopspring/decimal"
)

type TemplateCategory struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Percentage  int64  `json:"percentage"`
	Description string `json:"description"`
}

type Template struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Icon        string             `json:"icon"`
	Popular     bool               `json:"popular"`
	Categories  []TemplateCategory `json:"categories"`
}

// Allocation is one template line priced against an income.
type Allocation struct {
	Category TemplateCategory `json:"category"`
	Amount   decimal.Decimal  `json:"amount"`
}

var templates = []Template{
	{
		ID:          "50-30-20",
		Name:        "50/30/20 Rule",
		Description: "The most popular budgeting method: 50% Needs, 30% Wants, 20% Savings & Debt",
		Icon:        "🎯",
		Popular:     true,
		Categories: []TemplateCategory{
			{"Housing & Utilities", "🏠", 30, "Rent, mortgage, electricity, water, internet"},
			{"Food & Groceries", "🍔", 12, "Groceries, dining out"},
			{"Transportation", "🚗", 8, "Gas, car payments, public transport, maintenance"},
			{"Shopping & Entertainment", "🛍️", 15, "Clothes, hobbies, movies, subscriptions"},
			{"Dining Out", "🍕", 10, "Restaurants, cafes, fast food"},
			{"Personal Care", "💅", 5, "Haircuts, gym, beauty products"},
			{"Savings", "💰", 15, "Emergency fund, investments"},
			{"Debt Payment", "💳", 5, "Credit cards, loans, debt payoff"},
		},
	},
	{
		ID:          "zero-based",
		Name:        "Zero-Based Budget",
		Description: "Assign every dollar a job. Income minus expenses equals zero.",
		Icon:        "📊",
		Popular:     true,
		Categories: []TemplateCategory{
			{"Housing", "🏠", 25, "Rent or mortgage"},
			{"Utilities", "💡", 8, "Electric, water, gas, internet"},
			{"Food", "🍔", 15, "Groceries and meal planning"},
			{"Transportation", "🚗", 10, "Car payment, gas, maintenance"},
			{"Insurance", "🛡️", 10, "Health, life, car insurance"},
			{"Debt Repayment", "💳", 10, "Credit cards and loans"},
			{"Savings", "💰", 10, "Emergency fund and investments"},
			{"Entertainment", "🎬", 7, "Fun money and hobbies"},
			{"Miscellaneous", "📌", 5, "Everything else"},
		},
	},
	{
		ID:          "envelope",
		Name:        "Envelope System",
		Description: "Cash-based budgeting. Each category gets a specific amount.",
		Icon:        "✉️",
		Categories: []TemplateCategory{
			{"Groceries", "🛒", 15, "Weekly grocery shopping"},
			{"Dining Out", "🍽️", 8, "Restaurants and takeout"},
			{"Entertainment", "🎉", 10, "Movies, events, hobbies"},
			{"Clothing", "👕", 7, "Wardrobe purchases"},
			{"Personal Care", "💇", 5, "Haircuts, beauty, gym"},
			{"Gas/Transportation", "⛽", 10, "Fuel and transport"},
			{"Household Items", "🧼", 5, "Cleaning supplies, toiletries"},
			{"Fixed Expenses", "🏠", 30, "Rent, utilities, insurance"},
			{"Savings", "💰", 10, "Emergency and goals"},
		},
	},
	{
		ID:          "pay-yourself-first",
		Name:        "Pay Yourself First",
		Description: "Prioritize savings before expenses. Save 20% minimum.",
		Icon:        "💎",
		Popular:     true,
		Categories: []TemplateCategory{
			{"Emergency Fund", "🚨", 10, "3-6 months of expenses"},
			{"Retirement", "🏖️", 10, "401k, IRA contributions"},
			{"Investments", "📈", 5, "Stocks, bonds, real estate"},
			{"Goal Savings", "🎯", 5, "Vacation, down payment, etc."},
			{"Housing", "🏠", 25, "Rent or mortgage"},
			{"Food", "🍔", 12, "Groceries and dining"},
			{"Transportation", "🚗", 10, "Car and commute"},
			{"Utilities", "💡", 8, "Bills and services"},
			{"Everything Else", "📦", 15, "Flexible spending"},
		},
	},
	{
		ID:          "balanced",
		Name:        "Balanced Budget",
		Description: "A balanced approach covering all life areas equally.",
		Icon:        "⚖️",
		Categories: []TemplateCategory{
			{"Housing", "🏠", 20, "Rent, mortgage, property tax"},
			{"Food", "🍔", 15, "Groceries and dining"},
			{"Transportation", "🚗", 12, "Vehicle costs"},
			{"Utilities & Bills", "💡", 10, "Essential services"},
			{"Health & Fitness", "💪", 8, "Medical, gym, wellness"},
			{"Entertainment", "🎬", 10, "Fun and leisure"},
			{"Shopping", "🛍️", 8, "Clothes and goods"},
			{"Savings & Investments", "💰", 12, "Future planning"},
			{"Miscellaneous", "📌", 5, "Buffer and extras"},
		},
	},
}

// Templates returns a copy of every built-in template in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	for i, t := range templates {
		out[i] = t
		out[i].Categories = append([]TemplateCategory(nil), t.Categories...)
	}
	return out
}

// Lookup finds a template by id.
func Lookup(id string) (Template, bool) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

func Popular() []Template {
	var out []Template
	for _, t := range Templates() {
		if t.Popular {
			out = append(out, t)
		}
	}
	return out
}

// Apply prices every template line as income * percentage / 100, in template order.
func Apply(t Template, monthlyIncome decimal.Decimal) []Allocation {
	out := make([]Allocation, 0, len(t.Categories))
	for _, c := range t.Categories {
		out = append(out, Allocation{
			Category: c,
			Amount:   monthlyIncome.Mul(decimal.NewFromInt(c.Percentage)).Div(decimal.NewFromInt(100)),
		})
	}
	return out
}
