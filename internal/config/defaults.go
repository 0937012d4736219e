package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"fintrack/internal/core"
)

// Defaults are the user-facing values new data is created with. They can be
// overridden by a TOML file:
//
//	currency = "EUR"
//	reminder_days = 5
//	trend_months = 12
//	payment_methods = ["Cash", "Card"]
//
//	[[categories]]
//	name = "Groceries"
//	icon = "🛒"
//	color = "#22c55e"
//	type = "expense"
type Defaults struct {
	Currency       string              `toml:"currency"`
	ReminderDays   int                 `toml:"reminder_days"`
	TrendMonths    int                 `toml:"trend_months"`
	PaymentMethods []string            `toml:"payment_methods"`
	Categories     []core.CategorySeed `toml:"categories"`
}

func DefaultDefaults() Defaults {
	return Defaults{
		Currency:       core.DefaultCurrencyCode,
		ReminderDays:   core.DefaultReminderDays,
		TrendMonths:    6,
		PaymentMethods: core.DefaultPaymentMethods(),
		Categories:     core.DefaultCategorySeeds(),
	}
}

// LoadDefaults reads path over the built-in defaults. An empty path or a
// missing file yields the built-in defaults unchanged.
func LoadDefaults(path string) (Defaults, error) {
	d := DefaultDefaults()
	if path == "" {
		return d, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("reading defaults file: %w", err)
	}

	if err := toml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parsing defaults file: %w", err)
	}
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	return d, nil
}

// LoadDefaultsFile replaces c.Defaults with the contents of c.DefaultsFile.
func (c *Config) LoadDefaultsFile() error {
	d, err := LoadDefaults(c.DefaultsFile)
	if err != nil {
		return err
	}
	c.Defaults = d
	return nil
}

// CurrencyInfo resolves the configured currency code, falling back to the default.
func (d Defaults) CurrencyInfo() core.Currency {
	if cur, ok := core.LookupCurrency(d.Currency); ok {
		return cur
	}
	cur, _ := core.LookupCurrency(core.DefaultCurrencyCode)
	return cur
}

func (d Defaults) problems() []string {
	var out []string
	if _, ok := core.LookupCurrency(d.Currency); !ok {
		out = append(out, fmt.Sprintf("unknown currency '%s'", d.Currency))
	}
	if d.ReminderDays < 0 || d.ReminderDays > 30 {
		out = append(out, fmt.Sprintf("invalid reminder days %d: must be between 0 and 30", d.ReminderDays))
	}
	if d.TrendMonths < 1 || d.TrendMonths > 36 {
		out = append(out, fmt.Sprintf("invalid trend months %d: must be between 1 and 36", d.TrendMonths))
	}
	seen := make(map[string]bool, len(d.Categories))
	for i, seed := range d.Categories {
		c := seed.Category("")
		if err := c.Validate(); err != nil {
			out = append(out, fmt.Sprintf("default category %d (%q): %v", i+1, seed.Name, err))
			continue
		}
		key := strings.ToLower(strings.TrimSpace(seed.Name))
		if seen[key] {
			out = append(out, fmt.Sprintf("duplicate default category %q", seed.Name))
		}
		seen[key] = true
	}
	return out
}
