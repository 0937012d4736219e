package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/clock"
	"fintrack/internal/core"
)

var (
	catFood   = core.Category{ID: "food", Name: "Food & Dining", Icon: "🍔", Type: core.CategoryExpense}
	catRent   = core.Category{ID: "rent", Name: "Bills & Utilities", Icon: "💡", Type: core.CategoryExpense}
	catSalary = core.Category{ID: "salary", Name: "Salary", Icon: "💰", Type: core.CategoryIncome}
	kes, _    = core.LookupCurrency("KES")
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) core.Date {
	dt, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return dt
}

func expense(id, amount, date, categoryID string) core.Transaction {
	return core.Transaction{ID: id, Type: core.Expense, Amount: d(amount), Date: day(date), CategoryID: categoryID}
}

func income(id, amount, date string) core.Transaction {
	return core.Transaction{ID: id, Type: core.Income, Amount: d(amount), Date: day(date), CategoryID: catSalary.ID}
}

func june() core.Month { return core.Month{Year: 2024, Month: time.June} }

func TestAllocations(t *testing.T) {
	tests := []struct {
		name string
		tx   core.Transaction
		want []string
	}{
		{
			name: "plain transaction uses parent category and amount",
			tx:   expense("t1", "100", "2024-06-01", "food"),
			want: []string{"food:100"},
		},
		{
			name: "uncategorized allocation is kept",
			tx:   expense("t2", "42.5", "2024-06-01", ""),
			want: []string{":42.5"},
		},
		{
			name: "split expands per split",
			tx: core.Transaction{
				Type: core.Expense, Amount: d("100"), IsSplit: true, CategoryID: "ignored",
				Splits: []core.Split{{CategoryID: "food", Amount: d("60")}, {CategoryID: "rent", Amount: d("40")}},
			},
			want: []string{"food:60", "rent:40"},
		},
		{
			name: "drifted splits are authoritative",
			tx: core.Transaction{
				Type: core.Expense, Amount: d("100"), IsSplit: true,
				Splits: []core.Split{{CategoryID: "food", Amount: d("70")}, {Amount: d("40")}},
			},
			want: []string{"food:70", ":40"},
		},
		{
			name: "split flag without splits falls back to parent",
			tx:   core.Transaction{Type: core.Expense, Amount: d("10"), IsSplit: true, CategoryID: "food"},
			want: []string{"food:10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocations(tt.tx)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d allocations, want %d", len(got), len(tt.want))
			}
			for i, a := range got {
				if s := a.CategoryID + ":" + a.Amount.String(); s != tt.want[i] {
					t.Errorf("allocation %d = %s, want %s", i, s, tt.want[i])
				}
			}

			want := tt.tx.Amount
			if tt.tx.IsSplit && len(tt.tx.Splits) > 0 {
				want = tt.tx.SplitTotal()
			}
			if !AllocatedTotal(tt.tx).Equal(want) {
				t.Errorf("AllocatedTotal = %s, want %s", AllocatedTotal(tt.tx), want)
			}
		})
	}
}

func TestComputeMonthlyStats(t *testing.T) {
	txs := []core.Transaction{
		income("i1", "1000", "2024-06-01"),
		expense("e1", "300", "2024-06-15", "food"),
		expense("e2", "50", "2024-07-01", "food"),
		{
			ID: "s1", Type: core.Expense, Amount: d("100"), Date: day("2024-06-20"), IsSplit: true,
			Splits: []core.Split{{CategoryID: "food", Amount: d("90")}},
		},
	}

	got := ComputeMonthlyStats(txs, june())
	if !got.Income.Equal(d("1000")) || !got.Expenses.Equal(d("400")) || !got.Balance.Equal(d("600")) || got.TransactionCount != 3 {
		t.Fatalf("unexpected stats %+v", got)
	}

	t.Run("empty month is all zero", func(t *testing.T) {
		empty := ComputeMonthlyStats(txs, core.Month{Year: 2023, Month: time.March})
		if !empty.Income.IsZero() || !empty.Expenses.IsZero() || !empty.Balance.IsZero() || empty.TransactionCount != 0 {
			t.Fatalf("expected zero stats, got %+v", empty)
		}
	})
}

func TestComputeCategorySpending(t *testing.T) {
	cats := []core.Category{catFood, catRent, catSalary}

	t.Run("split contributes only its share", func(t *testing.T) {
		txs := []core.Transaction{{
			ID: "s", Type: core.Expense, Amount: d("100"), Date: day("2024-06-03"), IsSplit: true,
			Splits: []core.Split{{CategoryID: "food", Amount: d("60")}, {CategoryID: "rent", Amount: d("40")}},
		}}
		got := ComputeCategorySpending(txs, cats, june())
		food, ok := SpendingFor(got, "food")
		if !ok || !food.Total.Equal(d("60")) || food.Count != 1 {
			t.Fatalf("food spending = %+v", food)
		}
		if !food.Percentage.Equal(d("60")) {
			t.Fatalf("food percentage = %s, want 60", food.Percentage)
		}
	})

	t.Run("sorted descending with uncategorized bucket and no income", func(t *testing.T) {
		txs := []core.Transaction{
			expense("a", "10", "2024-06-01", "food"),
			expense("b", "200", "2024-06-02", "rent"),
			expense("c", "15", "2024-06-03", ""),
			expense("d", "5", "2024-06-04", "food"),
			income("e", "5000", "2024-06-05"),
			expense("f", "999", "2024-05-31", "food"),
		}
		got := ComputeCategorySpending(txs, cats, june())
		if len(got) != 3 {
			t.Fatalf("expected 3 entries, got %d: %+v", len(got), got)
		}
		if got[0].Category.ID != "rent" || got[2].Category.Name != UncategorizedName {
			t.Fatalf("unexpected order: %s, %s, %s", got[0].Category.Name, got[1].Category.Name, got[2].Category.Name)
		}
		if got[1].Category.ID != "food" || got[1].Count != 2 || !got[1].Total.Equal(d("15")) {
			t.Fatalf("food entry %+v", got[1])
		}
		if got[2].Category.Icon != UncategorizedIcon {
			t.Fatalf("uncategorized icon %q", got[2].Category.Icon)
		}

		sum := decimal.Zero
		for _, cs := range got {
			sum = sum.Add(cs.Percentage)
		}
		if sum.GreaterThan(d("100")) {
			t.Fatalf("percentages sum to %s", sum)
		}
	})

	t.Run("thirds never exceed 100 percent", func(t *testing.T) {
		txs := []core.Transaction{
			expense("a", "2", "2024-06-01", "food"),
			expense("b", "0.5", "2024-06-01", "rent"),
			expense("c", "0.5", "2024-06-01", ""),
		}
		sum := decimal.Zero
		for _, cs := range ComputeCategorySpending(txs, cats, june()) {
			sum = sum.Add(cs.Percentage)
		}
		if sum.GreaterThan(d("100")) {
			t.Fatalf("percentages sum to %s", sum)
		}
	})

	t.Run("no expenses yields empty result", func(t *testing.T) {
		got := ComputeCategorySpending([]core.Transaction{income("i", "10", "2024-06-01")}, cats, june())
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("archived and unknown categories still aggregate", func(t *testing.T) {
		archived := core.Category{ID: "old", Name: "Old", Icon: "🗄", Type: core.CategoryExpense, IsArchived: true}
		txs := []core.Transaction{
			expense("a", "10", "2024-06-01", "old"),
			{ID: "b", Type: core.Expense, Amount: d("5"), Date: day("2024-06-01"), CategoryID: "gone",
				Category: &core.Category{Name: "Embedded", Icon: "🧾"}},
		}
		got := ComputeCategorySpending(txs, []core.Category{archived}, june())
		if len(got) != 2 || got[0].Category.Name != "Old" || got[1].Category.Name != "Embedded" || got[1].Category.ID != "gone" {
			t.Fatalf("unexpected %+v", got)
		}
	})
}

func TestComputeTrend(t *testing.T) {
	txs := []core.Transaction{
		income("i1", "1000", "2024-06-01"),
		expense("e1", "300", "2024-04-15", "food"),
		expense("e2", "70", "2023-12-31", "food"),
	}

	for _, n := range []int{1, 3, 6, 12} {
		got := ComputeTrend(txs, n, june())
		if len(got) != n {
			t.Fatalf("n=%d: got %d entries", n, len(got))
		}
		if got[n-1].Month != "2024-06" {
			t.Fatalf("n=%d: last entry %s, want 2024-06", n, got[n-1].Month)
		}
	}

	got := ComputeTrend(txs, 7, june())
	wantLabels := []string{"Dec 2023", "Jan 2024", "Feb 2024", "Mar 2024", "Apr 2024", "May 2024", "Jun 2024"}
	for i, w := range wantLabels {
		if got[i].Label != w {
			t.Errorf("entry %d label %q, want %q", i, got[i].Label, w)
		}
	}
	if !got[0].Expenses.Equal(d("70")) || !got[4].Expenses.Equal(d("300")) || !got[6].Income.Equal(d("1000")) {
		t.Fatalf("unexpected totals %+v", got)
	}
	if !got[2].Income.IsZero() || !got[2].Expenses.IsZero() {
		t.Fatalf("empty month should be zero-valued: %+v", got[2])
	}

	if out := ComputeTrend(txs, 0, june()); len(out) != 0 {
		t.Fatalf("n=0 should be empty, got %d", len(out))
	}
}

func TestComputeTrendFromMonthEnd(t *testing.T) {
	e := NewEngine(clock.FixedDate(2024, 3, 31), kes)
	got := e.Trend(nil, 2)
	if got[0].Month != "2024-02" || got[1].Month != "2024-03" {
		t.Fatalf("trend from March 31 = %s, %s", got[0].Month, got[1].Month)
	}
}

func findInsight(insights []Insight, title string) (Insight, bool) {
	for _, in := range insights {
		if in.Title == title {
			return in, true
		}
	}
	return Insight{}, false
}

func TestInsightsSavingsRateSuccess(t *testing.T) {
	e := NewEngine(clock.FixedDate(2024, 6, 20), kes)
	txs := []core.Transaction{
		{ID: "i", Type: core.Income, Amount: d("1000"), Date: day("2024-06-01")},
		{ID: "e", Type: core.Expense, Amount: d("300"), Date: day("2024-06-15")},
	}
	insights := e.Insights(txs, nil, nil)

	got, ok := findInsight(insights, "Great Savings Rate!")
	if !ok {
		t.Fatalf("expected savings insight, got %+v", insights)
	}
	if got.Severity != SeveritySuccess || !strings.Contains(got.Description, "70.0%") {
		t.Fatalf("unexpected insight %+v", got)
	}
}

func TestInsightsSavingsRateNegativeAndNeutral(t *testing.T) {
	e := NewEngine(clock.FixedDate(2024, 6, 20), kes)

	over := []core.Transaction{income("i", "100", "2024-06-01"), expense("e", "150", "2024-06-02", "food")}
	got, ok := findInsight(e.Insights(over, nil, nil), "Spending More Than Earning")
	if !ok || got.Severity != SeverityWarning || !strings.Contains(got.Description, "KSh 50.00") {
		t.Fatalf("unexpected overspend insight %+v (found=%v)", got, ok)
	}

	neutral := []core.Transaction{income("i", "100", "2024-06-01"), expense("e", "90", "2024-06-02", "food")}
	insights := e.Insights(neutral, nil, nil)
	for _, title := range []string{"Great Savings Rate!", "Spending More Than Earning"} {
		if _, ok := findInsight(insights, title); ok {
			t.Fatalf("10%% savings should not produce %q", title)
		}
	}
}

func TestInsightsBudgets(t *testing.T) {
	e := NewEngine(clock.FixedDate(2024, 6, 30), kes)
	cats := []core.Category{catFood, catRent}
	txs := []core.Transaction{
		expense("a", "550", "2024-06-10", "food"),
		expense("b", "900", "2024-06-01", "rent"),
	}
	month := day("2024-06-01")

	tests := []struct {
		name      string
		budget    core.Budget
		wantTitle string
		wantText  string
	}{
		{"exceeded", core.Budget{CategoryID: "food", Amount: d("500"), Month: month}, "Food & Dining Budget Exceeded", "(110% of your KSh 500.00 budget)"},
		{"near limit", core.Budget{CategoryID: "rent", Amount: d("1000"), Month: month}, "Bills & Utilities Budget Alert", "KSh 100.00 remaining"},
		{"exactly at limit", core.Budget{CategoryID: "rent", Amount: d("900"), Month: month}, "Bills & Utilities Budget Alert", "100%"},
		{"comfortably under", core.Budget{CategoryID: "rent", Amount: d("2000"), Month: month}, "", ""},
		{"zero budget", core.Budget{CategoryID: "rent", Amount: decimal.Zero, Month: month}, "", ""},
		{"no spending", core.Budget{CategoryID: "travel", Amount: d("10"), Month: month}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insights := e.Insights(txs, cats, []core.Budget{tt.budget})
			var budget []Insight
			for _, in := range insights {
				if strings.Contains(in.Title, "Budget") {
					budget = append(budget, in)
				}
			}
			if tt.wantTitle == "" {
				if len(budget) != 0 {
					t.Fatalf("expected no budget insight, got %+v", budget)
				}
				return
			}
			if len(budget) != 1 || budget[0].Title != tt.wantTitle || budget[0].Severity != SeverityWarning {
				t.Fatalf("unexpected budget insights %+v", budget)
			}
			if !strings.Contains(budget[0].Description, tt.wantText) {
				t.Fatalf("description %q does not contain %q", budget[0].Description, tt.wantText)
			}
		})
	}
}

func TestInsightsTopCategory(t *testing.T) {
	e := NewEngine(clock.FixedDate(2024, 6, 30), kes)
	txs := []core.Transaction{
		expense("a", "75", "2024-06-10", "food"),
		expense("b", "25", "2024-06-11", "rent"),
	}
	got, ok := findInsight(e.Insights(txs, []core.Category{catFood, catRent}, nil), "Top Spending Category")
	if !ok {
		t.Fatal("expected top category insight")
	}
	if got.Icon != "🍔" || got.Description != "Food & Dining accounts for 75.0% of your expenses (KSh 75.00)" {
		t.Fatalf("unexpected insight %+v", got)
	}

	if _, ok := findInsight(e.Insights(nil, nil, nil), "Top Spending Category"); ok {
		t.Fatal("no spending should mean no top category")
	}
}

func TestInsightsAnomaly(t *testing.T) {
	e := NewEngine(clock.FixedDate(2024, 6, 10), kes)

	t.Run("flags first recent outlier", func(t *testing.T) {
		// month-to-date 200 over 10 days: threshold 60
		txs := []core.Transaction{
			expense("a", "20", "2024-06-01", "food"),
			expense("b", "20", "2024-06-02", "food"),
			expense("c", "80", "2024-06-09", "food"),
			expense("d", "70", "2024-06-08", "food"),
			expense("e", "10", "2024-06-10", "food"),
		}
		got, ok := findInsight(e.Insights(txs, nil, nil), "Unusual High Expense Detected")
		if !ok || got.Severity != SeverityInfo || !strings.Contains(got.Description, "KSh 80.00") {
			t.Fatalf("unexpected anomaly insight %+v (found=%v)", got, ok)
		}
	})

	t.Run("old outliers outside the recent window are ignored", func(t *testing.T) {
		txs := []core.Transaction{expense("big", "500", "2024-06-01", "food")}
		for i := 2; i <= 6; i++ {
			txs = append(txs, expense("s", "30", day("2024-06-01").AddDays(i).String(), "food"))
		}
		// 650 over 10 days: threshold 195, the five newest are all 30
		if _, ok := findInsight(e.Insights(txs, nil, nil), "Unusual High Expense Detected"); ok {
			t.Fatal("outlier outside the five most recent should not be flagged")
		}
	})
}

func TestBuildReport(t *testing.T) {
	cats := []core.Category{catFood, catRent, catSalary}
	txs := []core.Transaction{
		{ID: "i1", Type: core.Income, Amount: d("2000"), Date: day("2024-06-01"), CategoryID: "salary", PaymentMethod: "Bank Transfer"},
		{ID: "e1", Type: core.Expense, Amount: d("900"), Date: day("2024-06-02"), CategoryID: "rent", Description: "June rent", PaymentMethod: "Bank Transfer"},
		{ID: "e2", Type: core.Expense, Amount: d("100"), Date: day("2024-06-30"), IsSplit: true, PaymentMethod: "Cash",
			Splits: []core.Split{{CategoryID: "food", Amount: d("60")}, {CategoryID: "rent", Amount: d("40")}}},
		{ID: "e3", Type: core.Expense, Amount: d("50"), Date: day("2024-06-15"), CategoryID: "food"},
		expense("out", "5000", "2024-07-01", "food"),
	}

	rng := core.MonthRange(2024, time.June)
	r := BuildReport(txs, cats, rng, PeriodMonthly)

	if r.Title != "Monthly Report" || r.TransactionCount != 4 {
		t.Fatalf("unexpected header %s / %d", r.Title, r.TransactionCount)
	}
	if !r.TotalIncome.Equal(d("2000")) || !r.TotalExpenses.Equal(d("1050")) || !r.NetBalance.Equal(d("950")) {
		t.Fatalf("unexpected totals %s %s %s", r.TotalIncome, r.TotalExpenses, r.NetBalance)
	}
	if !r.SavingsRate.Equal(d("47.5")) {
		t.Fatalf("savings rate %s, want 47.5", r.SavingsRate)
	}
	// 1050 over ceil(29) days
	if !r.AvgDailyExpense.Round(4).Equal(d("36.2069")) {
		t.Fatalf("avg daily %s", r.AvgDailyExpense)
	}

	if len(r.CategoryBreakdown) != 2 || r.CategoryBreakdown[0].Category.ID != "rent" || !r.CategoryBreakdown[0].Total.Equal(d("940")) || r.CategoryBreakdown[0].Count != 2 {
		t.Fatalf("unexpected breakdown %+v", r.CategoryBreakdown)
	}
	if top := r.TopCategories(1); len(top) != 1 || len(r.CategoryBreakdown) != 2 {
		t.Fatal("TopCategories must truncate without touching the report")
	}

	if len(r.TopExpenses) != 3 {
		t.Fatalf("expected 3 top expenses, got %d", len(r.TopExpenses))
	}
	if r.TopExpenses[0].Category != "Bills & Utilities" || r.TopExpenses[1].Category != "Split Transaction" || r.TopExpenses[1].Description != "No description" {
		t.Fatalf("unexpected top expenses %+v", r.TopExpenses)
	}

	if len(r.PaymentMethods) != 3 || r.PaymentMethods[0].Method != "Bank Transfer" || !r.PaymentMethods[0].Amount.Equal(d("2900")) {
		t.Fatalf("unexpected payment methods %+v", r.PaymentMethods)
	}
	if last := r.PaymentMethods[2]; last.Method != "Not specified" || !last.Amount.Equal(d("50")) {
		t.Fatalf("missing method bucket %+v", last)
	}

	if len(r.MonthlyTrend) != 1 || r.MonthlyTrend[0].Label != "Jun 2024" || !r.MonthlyTrend[0].Balance.Equal(d("950")) {
		t.Fatalf("unexpected trend %+v", r.MonthlyTrend)
	}
}

func TestBuildReportMatchesMonthlyStats(t *testing.T) {
	txs := []core.Transaction{
		income("i1", "1234.56", "2024-02-01"),
		expense("e1", "99.99", "2024-02-29", "food"),
		expense("e2", "10", "2024-02-10", ""),
		expense("e3", "1", "2024-03-01", "food"),
		income("i2", "1", "2024-01-31"),
	}
	m := core.Month{Year: 2024, Month: time.February}
	stats := ComputeMonthlyStats(txs, m)
	r := BuildReport(txs, nil, core.MonthRange(2024, time.February), PeriodMonthly)

	if !r.TotalIncome.Equal(stats.Income) || !r.TotalExpenses.Equal(stats.Expenses) ||
		!r.NetBalance.Equal(stats.Balance) || r.TransactionCount != stats.TransactionCount {
		t.Fatalf("report %+v does not match stats %+v", r, stats)
	}
}

func TestBuildReportEdges(t *testing.T) {
	t.Run("partial boundary months are included", func(t *testing.T) {
		rng := core.DateRange{Start: day("2024-01-31"), End: day("2024-03-01")}
		r := BuildReport(nil, nil, rng, PeriodYearly)
		if len(r.MonthlyTrend) != 3 || r.MonthlyTrend[1].Month != "2024-02" {
			t.Fatalf("unexpected trend %+v", r.MonthlyTrend)
		}
		if r.Title != "Yearly Report" {
			t.Fatalf("title %q", r.Title)
		}
	})

	t.Run("single day range has no zero division", func(t *testing.T) {
		rng := core.DateRange{Start: day("2024-06-05"), End: day("2024-06-05")}
		r := BuildReport([]core.Transaction{expense("e", "30", "2024-06-05", "food")}, nil, rng, PeriodMonthly)
		if !r.AvgDailyExpense.Equal(d("30")) || !r.SavingsRate.IsZero() {
			t.Fatalf("avg %s savings %s", r.AvgDailyExpense, r.SavingsRate)
		}
	})

	t.Run("empty range", func(t *testing.T) {
		r := BuildReport(nil, nil, core.YearRange(2020), PeriodYearly)
		if r.TransactionCount != 0 || len(r.CategoryBreakdown) != 0 || len(r.TopExpenses) != 0 || len(r.PaymentMethods) != 0 {
			t.Fatalf("expected empty report, got %+v", r)
		}
		if len(r.MonthlyTrend) != 12 {
			t.Fatalf("yearly trend should have 12 entries, got %d", len(r.MonthlyTrend))
		}
	})

	t.Run("top expense labels", func(t *testing.T) {
		txs := []core.Transaction{
			expense("known", "40", "2024-06-02", catFood.ID),
			expense("unknown", "30", "2024-06-03", "cat-gone"),
			expense("none", "20", "2024-06-04", ""),
		}
		r := BuildReport(txs, []core.Category{catFood}, core.MonthRange(2024, time.June), PeriodMonthly)
		want := []string{catFood.Name, "cat-gone", UncategorizedName}
		if len(r.TopExpenses) != len(want) {
			t.Fatalf("unexpected top expenses %+v", r.TopExpenses)
		}
		for i, w := range want {
			if r.TopExpenses[i].Category != w {
				t.Errorf("line %d category = %q, want %q", i, r.TopExpenses[i].Category, w)
			}
		}
	})

	t.Run("top five only", func(t *testing.T) {
		var txs []core.Transaction
		for i := 1; i <= 8; i++ {
			txs = append(txs, expense("e", decimal.NewFromInt(int64(i)).String(), "2024-06-01", "food"))
		}
		r := BuildReport(txs, nil, core.MonthRange(2024, time.June), PeriodMonthly)
		if len(r.TopExpenses) != 5 || !r.TopExpenses[0].Amount.Equal(d("8")) || !r.TopExpenses[4].Amount.Equal(d("4")) {
			t.Fatalf("unexpected top expenses %+v", r.TopExpenses)
		}
	})
}
