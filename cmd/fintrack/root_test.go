package main

import (
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestCommandTree(t *testing.T) {
	paths := [][]string{
		{"stats"}, {"spending"}, {"trend"}, {"insights"}, {"report"},
		{"transactions", "add"}, {"transactions", "delete"}, {"transactions", "merchants"},
		{"categories", "seed"}, {"categories", "archive"}, {"categories", "rename"},
		{"budgets", "set"}, {"budgets", "templates"}, {"budgets", "apply"},
		{"goals", "add"}, {"goals", "contribute"}, {"goals", "complete"}, {"goals", "delete"},
		{"recurring", "add"}, {"recurring", "pause"}, {"recurring", "resume"}, {"recurring", "delete"},
		{"recurring", "reminders"}, {"recurring", "sweep"},
		{"serve"}, {"events"},
	}
	for _, p := range paths {
		cmd, _, err := rootCmd.Find(p)
		if err != nil {
			t.Errorf("find %v: %v", p, err)
			continue
		}
		if cmd.Name() != p[len(p)-1] {
			t.Errorf("find %v resolved to %q", p, cmd.Name())
		}
	}
}

func TestMonthFlag(t *testing.T) {
	defer func() { flagMonth = "" }()

	flagMonth = ""
	if m, err := monthFlag(); err != nil || m != nil {
		t.Fatalf("empty flag: got %v, %v", m, err)
	}

	flagMonth = "2024-02"
	m, err := monthFlag()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "2024-02" {
		t.Errorf("month = %s, want 2024-02", m)
	}

	flagMonth = "February"
	if _, err := monthFlag(); err == nil {
		t.Error("expected an error for a malformed month")
	}
}

func TestWithAppRequiresUser(t *testing.T) {
	defer func() { flagUser = "" }()
	flagUser = "   "
	if err := withApp(nil); err != errNoUser {
		t.Errorf("err = %v, want errNoUser", err)
	}
}

func TestSigned(t *testing.T) {
	money := core.Currency{Code: "USD", Symbol: "$"}.Format
	tests := []struct {
		in   string
		want string
	}{
		{"12.5", "$ 12.50"},
		{"-1234.5", "-$ 1,234.50"},
		{"0", "$ 0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := signed(money, decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("signed(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
