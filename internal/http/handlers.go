package http

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Ledger.Dashboard(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	NewResponse().JSON(w, d)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query(), "month")
	if err != nil {
		s.fail(w, r, "stats", err)
		return
	}
	stats, err := s.svc.Ledger.MonthlyStats(r.Context(), userFrom(r.Context()), month)
	if err != nil {
		s.fail(w, r, "stats", err)
		return
	}
	NewResponse().JSON(w, stats)
}

func (s *Server) handleCategorySpending(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query(), "month")
	if err != nil {
		s.fail(w, r, "spending", err)
		return
	}
	spending, err := s.svc.Ledger.CategorySpending(r.Context(), userFrom(r.Context()), month)
	if err != nil {
		s.fail(w, r, "spending", err)
		return
	}
	NewResponse().JSON(w, spending)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, err := parseIntParam(r.URL.Query(), "months", services.DefaultTrendMonths, 0, maxTrendMonth)
	if err != nil {
		s.fail(w, r, "trend", err)
		return
	}
	trend, err := s.svc.Ledger.Trend(r.Context(), userFrom(r.Context()), months)
	if err != nil {
		s.fail(w, r, "trend", err)
		return
	}
	NewResponse().JSON(w, trend)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.svc.Ledger.Insights(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, "insights", err)
		return
	}
	NewResponse().JSON(w, insights)
}

// handleReport serves a report for ?start=&end=. Without a range the
// current month (or year, for period=yearly) is used.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := analytics.Period(q.Get("period"))
	if period == "" {
		period = analytics.PeriodMonthly
	}
	if !period.Valid() {
		s.fail(w, r, "report", fmt.Errorf("%w: period must be monthly or yearly", errBadRequest))
		return
	}

	start, err := parseDateParam(q, "start")
	if err != nil {
		s.fail(w, r, "report", err)
		return
	}
	end, err := parseDateParam(q, "end")
	if err != nil {
		s.fail(w, r, "report", err)
		return
	}

	rng := core.DateRange{Start: start, End: end}
	if start.IsZero() && end.IsZero() {
		engine := s.svc.Ledger.Engine()
		if period == analytics.PeriodYearly {
			rng = core.YearRange(engine.Today().Year())
		} else {
			cur := engine.CurrentMonth()
			rng = core.MonthRange(cur.Year, cur.Month)
		}
	}

	report, err := s.svc.Ledger.Report(r.Context(), userFrom(r.Context()), rng, period)
	if err != nil {
		s.fail(w, r, "report", err)
		return
	}
	NewResponse().JSON(w, report)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f core.TransactionFilter
	var err error
	if f.From, err = parseDateParam(q, "from"); err != nil {
		s.fail(w, r, "transactions", err)
		return
	}
	if f.To, err = parseDateParam(q, "to"); err != nil {
		s.fail(w, r, "transactions", err)
		return
	}
	if t := core.TransactionType(q.Get("type")); t != "" {
		if !t.Valid() {
			s.fail(w, r, "transactions", fmt.Errorf("%w: %q", core.ErrInvalidType, t))
			return
		}
		f.Type = t
	}

	txs, err := s.svc.Ledger.Transactions(r.Context(), userFrom(r.Context()), f)
	if err != nil {
		s.fail(w, r, "transactions", err)
		return
	}
	NewResponse().JSON(w, txs)
}

type splitRequest struct {
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes"`
}

type transactionRequest struct {
	Type          core.TransactionType `json:"type"`
	Amount        decimal.Decimal      `json:"amount"`
	CategoryID    string               `json:"category_id"`
	Description   string               `json:"description"`
	Merchant      string               `json:"merchant"`
	PaymentMethod string               `json:"payment_method"`
	Date          core.Date            `json:"date"`
	Splits        []splitRequest       `json:"splits"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}

	created, err := s.svc.Ledger.AddTransaction(r.Context(), s.transactionFrom(r, req))
	if err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}
	NewResponse().Created("/api/transactions/"+created.ID).JSON(w, created)
}

func (s *Server) transactionFrom(r *http.Request, req transactionRequest) core.Transaction {
	tx := core.Transaction{
		UserID:        userFrom(r.Context()),
		Type:          req.Type,
		Amount:        req.Amount,
		CategoryID:    sanitizeInput(req.CategoryID),
		Description:   sanitizeInput(req.Description),
		Merchant:      sanitizeInput(req.Merchant),
		PaymentMethod: sanitizeInput(req.PaymentMethod),
		Date:          req.Date,
	}
	if tx.Date.IsZero() {
		tx.Date = s.svc.Ledger.Engine().Today()
	}
	for _, sp := range req.Splits {
		tx.Splits = append(tx.Splits, core.Split{
			CategoryID: sanitizeInput(sp.CategoryID),
			Amount:     sp.Amount,
			Notes:      sanitizeInput(sp.Notes),
		})
	}
	return tx
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	tx := s.transactionFrom(r, req)
	tx.ID = r.PathValue("id")

	updated, err := s.svc.Ledger.UpdateTransaction(r.Context(), tx)
	if err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	NewResponse().JSON(w, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.DeleteTransaction(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_transaction", err)
		return
	}
	NewResponse().NoContent(w)
}

func (s *Server) handleMerchants(w http.ResponseWriter, r *http.Request) {
	merchants, err := s.svc.Ledger.Merchants(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, "merchants", err)
		return
	}
	NewResponse().JSON(w, merchants)
}

func (s *Server) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(w, s.svc.Ledger.PaymentMethods())
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true"
	cats, err := s.svc.Ledger.Categories(r.Context(), userFrom(r.Context()), includeArchived)
	if err != nil {
		s.fail(w, r, "categories", err)
		return
	}
	NewResponse().JSON(w, cats)
}

type categoryRequest struct {
	Name  string            `json:"name"`
	Icon  string            `json:"icon"`
	Color string            `json:"color"`
	Type  core.CategoryType `json:"type"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "create_category", err)
		return
	}
	created, err := s.svc.Ledger.CreateCategory(r.Context(), core.Category{
		UserID: userFrom(r.Context()),
		Name:   sanitizeInput(req.Name),
		Icon:   sanitizeInput(req.Icon),
		Color:  sanitizeInput(req.Color),
		Type:   req.Type,
	})
	if err != nil {
		s.fail(w, r, "create_category", err)
		return
	}
	NewResponse().Created("").JSON(w, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update_category", err)
		return
	}
	updated, err := s.svc.Ledger.UpdateCategory(r.Context(), core.Category{
		ID:     r.PathValue("id"),
		UserID: userFrom(r.Context()),
		Name:   sanitizeInput(req.Name),
		Icon:   sanitizeInput(req.Icon),
		Color:  sanitizeInput(req.Color),
		Type:   req.Type,
	})
	if err != nil {
		s.fail(w, r, "update_category", err)
		return
	}
	NewResponse().JSON(w, updated)
}

func (s *Server) handleSeedCategories(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Ledger.SeedDefaultCategories(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, "seed_categories", err)
		return
	}
	NewResponse().JSON(w, map[string]int{"created": n})
}

func (s *Server) handleArchiveCategory(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Archived *bool `json:"archived"`
	}{}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "archive_category", err)
		return
	}
	if req.Archived == nil {
		s.fail(w, r, "archive_category", fmt.Errorf("%w: archived is required", errBadRequest))
		return
	}
	if err := s.svc.Ledger.ArchiveCategory(r.Context(), userFrom(r.Context()), r.PathValue("id"), *req.Archived); err != nil {
		s.fail(w, r, "archive_category", err)
		return
	}
	NewResponse().NoContent(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.DeleteCategory(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_category", err)
		return
	}
	NewResponse().NoContent(w)
}

// monthOrCurrent resolves an optional month against the engine's clock.
func (s *Server) monthOrCurrent(m *core.Month) core.Month {
	if m != nil {
		return *m
	}
	return s.svc.Ledger.Engine().CurrentMonth()
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query(), "month")
	if err != nil {
		s.fail(w, r, "budgets", err)
		return
	}
	budgets, err := s.svc.Ledger.Budgets(r.Context(), userFrom(r.Context()), s.monthOrCurrent(month))
	if err != nil {
		s.fail(w, r, "budgets", err)
		return
	}
	NewResponse().JSON(w, budgets)
}

type budgetRequest struct {
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Month      *core.Month     `json:"month"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "set_budget", err)
		return
	}
	b, err := s.svc.Ledger.SetBudget(r.Context(), userFrom(r.Context()), sanitizeInput(req.CategoryID), req.Amount, s.monthOrCurrent(req.Month))
	if err != nil {
		s.fail(w, r, "set_budget", err)
		return
	}
	NewResponse().JSON(w, b)
}

func (s *Server) handleBudgetTemplates(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("popular") == "true" {
		NewResponse().JSON(w, budget.Popular())
		return
	}
	NewResponse().JSON(w, budget.Templates())
}

type templateRequest struct {
	TemplateID    string          `json:"template_id"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	Month         *core.Month     `json:"month"`
}

func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "apply_template", err)
		return
	}
	budgets, err := s.svc.Ledger.ApplyBudgetTemplate(r.Context(), userFrom(r.Context()), sanitizeInput(req.TemplateID), req.MonthlyIncome, s.monthOrCurrent(req.Month))
	if err != nil {
		s.fail(w, r, "apply_template", err)
		return
	}
	NewResponse().JSON(w, budgets)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Recurring.Rules(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, "recurring", err)
		return
	}
	NewResponse().JSON(w, rules)
}

type ruleRequest struct {
	Type               core.TransactionType `json:"type"`
	Amount             decimal.Decimal      `json:"amount"`
	CategoryID         string               `json:"category_id"`
	Description        string               `json:"description"`
	Merchant           string               `json:"merchant"`
	PaymentMethod      string               `json:"payment_method"`
	Frequency          core.Frequency       `json:"frequency"`
	StartDate          core.Date            `json:"start_date"`
	EndDate            core.Date            `json:"end_date"`
	ReminderDaysBefore int                  `json:"reminder_days_before"`
	AutoGenerate       bool                 `json:"auto_generate"`
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "create_rule", err)
		return
	}
	rule, err := s.svc.Recurring.CreateRule(r.Context(), ruleFrom(r, req))
	if err != nil {
		s.fail(w, r, "create_rule", err)
		return
	}
	NewResponse().Created("").JSON(w, rule)
}

func ruleFrom(r *http.Request, req ruleRequest) core.RecurringRule {
	return core.RecurringRule{
		UserID:             userFrom(r.Context()),
		Type:               req.Type,
		Amount:             req.Amount,
		CategoryID:         sanitizeInput(req.CategoryID),
		Description:        sanitizeInput(req.Description),
		Merchant:           sanitizeInput(req.Merchant),
		PaymentMethod:      sanitizeInput(req.PaymentMethod),
		Frequency:          req.Frequency,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		ReminderDaysBefore: req.ReminderDaysBefore,
		AutoGenerate:       req.AutoGenerate,
	}
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update_rule", err)
		return
	}
	rule := ruleFrom(r, req)
	rule.ID = r.PathValue("id")

	updated, err := s.svc.Recurring.UpdateRule(r.Context(), rule)
	if err != nil {
		s.fail(w, r, "update_rule", err)
		return
	}
	NewResponse().JSON(w, updated)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Recurring.DeleteRule(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_rule", err)
		return
	}
	NewResponse().NoContent(w)
}

func (s *Server) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Active *bool `json:"active"`
	}{}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "toggle_rule", err)
		return
	}
	if req.Active == nil {
		s.fail(w, r, "toggle_rule", fmt.Errorf("%w: active is required", errBadRequest))
		return
	}
	if err := s.svc.Recurring.ToggleRule(r.Context(), userFrom(r.Context()), r.PathValue("id"), *req.Active); err != nil {
		s.fail(w, r, "toggle_rule", err)
		return
	}
	NewResponse().NoContent(w)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Recurring.Sweep(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, "sweep", err)
		return
	}
	NewResponse().JSON(w, res)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.svc.Recurring.Reminders(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, "reminders", err)
		return
	}
	NewResponse().JSON(w, reminders)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Goals.List(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, "goals", err)
		return
	}
	NewResponse().JSON(w, goals)
}

type goalRequest struct {
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      core.Date       `json:"deadline"`
	Icon          string          `json:"icon"`
	Color         string          `json:"color"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "create_goal", err)
		return
	}
	goal, err := s.svc.Goals.Create(r.Context(), goalFrom(r, req))
	if err != nil {
		s.fail(w, r, "create_goal", err)
		return
	}
	NewResponse().Created("").JSON(w, goal)
}

func goalFrom(r *http.Request, req goalRequest) core.SavingsGoal {
	return core.SavingsGoal{
		UserID:        userFrom(r.Context()),
		Name:          sanitizeInput(req.Name),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline,
		Icon:          sanitizeInput(req.Icon),
		Color:         sanitizeInput(req.Color),
	}
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update_goal", err)
		return
	}
	goal := goalFrom(r, req)
	goal.ID = r.PathValue("id")

	updated, err := s.svc.Goals.Update(r.Context(), goal)
	if err != nil {
		s.fail(w, r, "update_goal", err)
		return
	}
	NewResponse().JSON(w, updated)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Goals.Delete(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_goal", err)
		return
	}
	NewResponse().NoContent(w)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Amount decimal.Decimal `json:"amount"`
	}{}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "contribute", err)
		return
	}
	goal, err := s.svc.Goals.Contribute(r.Context(), userFrom(r.Context()), r.PathValue("id"), req.Amount)
	if err != nil {
		s.fail(w, r, "contribute", err)
		return
	}
	NewResponse().JSON(w, goal)
}

func (s *Server) handleToggleGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.svc.Goals.ToggleCompletion(r.Context(), userFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "toggle_goal", err)
		return
	}
	NewResponse().JSON(w, goal)
}
