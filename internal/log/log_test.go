package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerTagsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentApp).WithComponent(ComponentLedger)
	logger.Info("hello", FieldUserID, "u1")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=ledger") {
		t.Errorf("unexpected record %q", out)
	}
	if !strings.Contains(out, "user_id=u1") {
		t.Errorf("missing field in %q", out)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("empty context should yield the fallback logger")
	}

	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentHTTP)
	handler := Middleware(logger)(
		RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				FromContext(r.Context()).InfoContext(r.Context(), "inside")
			})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("request id not propagated: %q", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentApp))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	sl.LogHTTPEnd(context.Background(), req, http.StatusInternalServerError, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status_code=500") {
		t.Errorf("5xx should log at error: %q", buf.String())
	}

	buf.Reset()
	sl.LogTransactionCreated(context.Background(), "u1", "t1", "expense", "12.5", "c1")
	for _, want := range []string{"transaction_id=t1", "amount=12.5", "category_id=c1", "operation=create"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %s in %q", want, buf.String())
		}
	}

	buf.Reset()
	sl.LogTransactionDeleted(context.Background(), "u1", "t1")
	for _, want := range []string{"transaction_id=t1", "operation=delete", "Transaction deleted"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %s in %q", want, buf.String())
		}
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentStorage, OpRead, nil)
	if !strings.Contains(buf.String(), "error=bad") {
		t.Errorf("missing error in %q", buf.String())
	}
}
