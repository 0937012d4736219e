package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-06-15", NewDate(2024, 6, 15), true},
		{"2024-06-15T10:30:00Z", NewDate(2024, 6, 15), true},
		{" 2024-02-29 ", NewDate(2024, 2, 29), true},
		{"2023-02-29", Date{}, false},
		{"15/06/2024", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("%q: ok=%v, err=%v", tc.in, tc.ok, err)
		}
		if tc.ok && !got.Equal(tc.want.Time) {
			t.Fatalf("%q: got %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrapper{D: NewDate(2024, 1, 5)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"d":"2024-01-05"}` {
		t.Fatalf("unexpected json %s", b)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"d":null}`), &w); err != nil || !w.D.IsZero() {
		t.Fatalf("null should decode to zero date, got %v (err=%v)", w.D, err)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2024-03-01"); err != nil || d.String() != "2024-03-01" {
		t.Fatalf("scan string: %v %v", d, err)
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Fatalf("scan nil: %v %v", d, err)
	}
	if err := d.Scan(time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)); err != nil || d.String() != "2024-03-02" {
		t.Fatalf("scan time: %v %v", d, err)
	}
}

func TestMonth(t *testing.T) {
	m, err := ParseMonth("2024-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if m.String() != "2024-02" || m.Key() != "2024-02-01" || m.Label() != "Feb 2024" {
		t.Fatalf("unexpected month rendering %s %s %s", m, m.Key(), m.Label())
	}
	if m.Days() != 29 {
		t.Fatalf("expected 29 days in Feb 2024, got %d", m.Days())
	}
	if got := m.Add(-2).String(); got != "2023-12" {
		t.Fatalf("Add(-2) = %s", got)
	}
	if got := (Month{Year: 2024, Month: time.January}).Add(1).String(); got != "2024-02" {
		t.Fatalf("Add(1) from January = %s", got)
	}
	if !m.Contains(NewDate(2024, 2, 29)) || m.Contains(NewDate(2024, 3, 1)) || m.Contains(Date{}) {
		t.Fatal("Contains mismatch")
	}
}

func TestDateRange(t *testing.T) {
	r := MonthRange(2024, time.June)
	if r.Start.String() != "2024-06-01" || r.End.String() != "2024-06-30" {
		t.Fatalf("unexpected month range %s..%s", r.Start, r.End)
	}
	if !r.Contains(r.Start) || !r.Contains(r.End) || r.Contains(NewDate(2024, 7, 1)) {
		t.Fatal("range bounds must be inclusive")
	}
	if err := (DateRange{Start: NewDate(2024, 2, 1), End: NewDate(2024, 1, 1)}).Validate(); err == nil {
		t.Fatal("reversed range should fail")
	}
	y := YearRange(2023)
	if y.Start.String() != "2023-01-01" || y.End.String() != "2023-12-31" {
		t.Fatalf("unexpected year range %s..%s", y.Start, y.End)
	}
}

func TestTransactionFilter(t *testing.T) {
	tx := Transaction{Type: Expense, Date: NewDate(2024, 3, 15)}
	tests := []struct {
		name   string
		filter TransactionFilter
		want   bool
	}{
		{"open", TransactionFilter{}, true},
		{"inside range", InRange(MonthRange(2024, 3)), true},
		{"before range", InRange(MonthRange(2024, 4)), false},
		{"after range", InRange(MonthRange(2024, 2)), false},
		{"inclusive end", TransactionFilter{To: NewDate(2024, 3, 15)}, true},
		{"type match", TransactionFilter{Type: Expense}, true},
		{"type mismatch", TransactionFilter{Type: Income}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthAdd(t *testing.T) {
	tests := []struct {
		from Month
		n    int
		want string
	}{
		{Month{Year: 2024, Month: time.January}, 0, "2024-01"},
		{Month{Year: 2024, Month: time.November}, 3, "2025-02"},
		{Month{Year: 2024, Month: time.March}, -14, "2023-01"},
		{Month{Year: 2024, Month: time.December}, 1, "2025-01"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.from.Add(tt.n).String(); got != tt.want {
				t.Errorf("%s.Add(%d) = %s, want %s", tt.from, tt.n, got, tt.want)
			}
		})
	}
}
