// Package core provides money parsing and display utilities.
//
// Amounts are never signed: the transaction type carries the direction.
// Currency is a display label only, there is no conversion between currencies.
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultCurrencyCode is used when no currency is configured.
const DefaultCurrencyCode = "KES"

type Currency struct {
	Code   string `json:"code" toml:"code"`
	Symbol string `json:"symbol" toml:"symbol"`
	Name   string `json:"name" toml:"name"`
}

var currencies = map[string]Currency{
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar"},
	"KES": {Code: "KES", Symbol: "KSh", Name: "Kenyan Shilling"},
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro"},
	"GBP": {Code: "GBP", Symbol: "£", Name: "British Pound"},
	"JPY": {Code: "JPY", Symbol: "¥", Name: "Japanese Yen"},
	"CNY": {Code: "CNY", Symbol: "¥", Name: "Chinese Yuan"},
	"INR": {Code: "INR", Symbol: "₹", Name: "Indian Rupee"},
	"AUD": {Code: "AUD", Symbol: "A$", Name: "Australian Dollar"},
	"CAD": {Code: "CAD", Symbol: "C$", Name: "Canadian Dollar"},
	"ZAR": {Code: "ZAR", Symbol: "R", Name: "South African Rand"},
	"NGN": {Code: "NGN", Symbol: "₦", Name: "Nigerian Naira"},
	"GHS": {Code: "GHS", Symbol: "₵", Name: "Ghanaian Cedi"},
	"TZS": {Code: "TZS", Symbol: "TSh", Name: "Tanzanian Shilling"},
	"UGX": {Code: "UGX", Symbol: "USh", Name: "Ugandan Shilling"},
}

// LookupCurrency returns the currency for an ISO code (case-insensitive).
func LookupCurrency(code string) (Currency, bool) {
	c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Currencies lists every supported currency ordered by code.
func Currencies() []Currency {
	out := make([]Currency, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Format renders the absolute amount with thousands separators and two
// decimals, prefixed by the currency symbol: "KSh 1,234.50".
func (c Currency) Format(amount decimal.Decimal) string {
	return c.Symbol + " " + FormatAmount(amount)
}

// FormatAmount renders |amount| as "1,234.50".
func FormatAmount(amount decimal.Decimal) string {
	f, _ := amount.Abs().Round(2).Float64()
	return humanize.FormatFloat("#,###.##", f)
}

// FormatPercent renders a percentage value with the given number of decimals.
func FormatPercent(p decimal.Decimal, places int32) string {
	return p.StringFixed(places) + "%"
}

// ParseAmount converts user input to a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Signs, empty strings and zero are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, fmt.Errorf("%w: %q must be unsigned", ErrInvalidAmount, s)
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return d, nil
}

// PercentOf returns part/total*100 truncated to 10 decimals, or zero when
// total is zero. Truncation keeps shares of one total from summing past 100.
func PercentOf(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	q, _ := part.Mul(decimal.NewFromInt(100)).QuoRem(total, 10)
	return q
}

// PercentChange returns the relative change from previous to current in
// percent. A zero previous value yields 100 when current is positive, else 0.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
}
