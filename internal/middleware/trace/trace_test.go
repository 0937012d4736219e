package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "fintrack/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)

	var seen string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("handler saw request id %q", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header %q does not match context id %q", got, seen)
	}
}

func TestMiddleware_ReusesInboundID(t *testing.T) {
	m := NewMiddleware(nil, func(r *http.Request) string { return "192.0.2.1" })
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		inbound string
		reuse   bool
	}{
		{"abc-123", true},
		{"bad id with spaces", false},
		{strings.Repeat("x", 80), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.inbound)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(HeaderRequestID) == tt.inbound; got != tt.reuse {
			t.Errorf("inbound %q reused = %v, want %v", tt.inbound, got, tt.reuse)
		}
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(nil, nil)
	codes := []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError}
	for _, code := range codes {
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	if got := m.GetMetrics(); got.TotalRequests != 3 || got.ServerErrors != 1 {
		t.Errorf("unexpected metrics %+v", got)
	}
}

func TestRequestID_Missing(t *testing.T) {
	if got := RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestMiddleware_ContextLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(&buf, nil)})
	m := NewMiddleware(logger, nil)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "inside handler") {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("handler record missing from output:\n%s", buf.String())
	}
	if !strings.Contains(line, applog.FieldRequestID+"=abc-123") {
		t.Errorf("handler record lacks the request id: %s", line)
	}
	if !strings.Contains(line, "component="+applog.ComponentHTTP) {
		t.Errorf("handler record lacks the http component: %s", line)
	}
}
