// Package http exposes the ledger, recurring and goal services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Ready reports whether the backing store can serve requests.
	Ready func(ctx context.Context) error
}

// Services are the handlers' dependencies.
type Services struct {
	Ledger    *services.LedgerService
	Recurring *services.RecurringService
	Goals     *services.GoalService
}

type Server struct {
	http.Server
	svc      Services
	ready    func(ctx context.Context) error
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Default()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		svc:      svc,
		ready:    opts.Ready,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	s.routes(api)
	limited := s.limiter.Middleware(detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})
	mux.Handle("/api/", limited(api))

	var handler http.Handler = mux
	handler = security.Headers(security.APIHeadersConfig())(handler)
	handler = detector.Middleware(handler)
	handler = s.tracer.Handler(handler)
	s.Handler = handler

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dashboard", s.withUser(s.handleDashboard))
	mux.HandleFunc("GET /api/stats", s.withUser(s.handleStats))
	mux.HandleFunc("GET /api/trend", s.withUser(s.handleTrend))
	mux.HandleFunc("GET /api/insights", s.withUser(s.handleInsights))
	mux.HandleFunc("GET /api/report", s.withUser(s.handleReport))

	mux.HandleFunc("GET /api/transactions", s.withUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withUser(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withUser(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withUser(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/merchants", s.withUser(s.handleMerchants))
	mux.HandleFunc("GET /api/payment-methods", s.handlePaymentMethods)

	mux.HandleFunc("GET /api/categories", s.withUser(s.handleListCategories))
	mux.HandleFunc("GET /api/categories/spending", s.withUser(s.handleCategorySpending))
	mux.HandleFunc("POST /api/categories", s.withUser(s.handleCreateCategory))
	mux.HandleFunc("POST /api/categories/defaults", s.withUser(s.handleSeedCategories))
	mux.HandleFunc("POST /api/categories/{id}/archive", s.withUser(s.handleArchiveCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.withUser(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withUser(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/budgets", s.withUser(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.withUser(s.handleSetBudget))
	mux.HandleFunc("GET /api/budget-templates", s.handleBudgetTemplates)
	mux.HandleFunc("POST /api/budgets/template", s.withUser(s.handleApplyTemplate))

	mux.HandleFunc("GET /api/recurring", s.withUser(s.handleListRules))
	mux.HandleFunc("POST /api/recurring", s.withUser(s.handleCreateRule))
	mux.HandleFunc("PUT /api/recurring/{id}", s.withUser(s.handleUpdateRule))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withUser(s.handleDeleteRule))
	mux.HandleFunc("POST /api/recurring/{id}/toggle", s.withUser(s.handleToggleRule))
	mux.HandleFunc("POST /api/recurring/sweep", s.withUser(s.handleSweep))
	mux.HandleFunc("GET /api/reminders", s.withUser(s.handleReminders))

	mux.HandleFunc("GET /api/goals", s.withUser(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withUser(s.handleCreateGoal))
	mux.HandleFunc("POST /api/goals/{id}/contribute", s.withUser(s.handleContribute))
	mux.HandleFunc("POST /api/goals/{id}/toggle", s.withUser(s.handleToggleGoal))
	mux.HandleFunc("PUT /api/goals/{id}", s.withUser(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withUser(s.handleDeleteGoal))
}

// Shutdown stops the limiter and drains the HTTP server. Only the first
// call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			writeError(w, r, http.StatusServiceUnavailable, "backend unavailable")
			return
		}
	}
	NewResponse().JSON(w, map[string]string{"status": "ready"})
}
