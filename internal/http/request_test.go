package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Groceries  ", "Groceries"},
		{"Cafe\x00\x07Bar", "CafeBar"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMonthParam(t *testing.T) {
	m, err := parseMonthParam(url.Values{}, "month")
	if err != nil || m != nil {
		t.Errorf("missing month should be nil, got %v %v", m, err)
	}

	m, err = parseMonthParam(url.Values{"month": {"2024-02"}}, "month")
	if err != nil || m.String() != "2024-02" {
		t.Errorf("parseMonthParam = %v, %v", m, err)
	}

	if _, err := parseMonthParam(url.Values{"month": {"02/2024"}}, "month"); err == nil {
		t.Error("expected error for malformed month")
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{"default when absent", "", 6, false},
		{"in range", "12", 12, false},
		{"zero allowed", "0", 0, false},
		{"above range", "61", 0, true},
		{"negative", "-1", 0, true},
		{"not a number", "six", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			if tt.value != "" {
				q.Set("months", tt.value)
			}
			got, err := parseIntParam(q, "months", 6, 0, 60)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errBadRequest) {
				t.Errorf("error should wrap errBadRequest: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     bool
	}{
		{"valid", `{"name":"x"}`, "application/json", false},
		{"charset suffix", `{"name":"x"}`, "application/json; charset=utf-8", false},
		{"no content type", `{"name":"x"}`, "", false},
		{"form content type", `name=x`, "application/x-www-form-urlencoded", true},
		{"unknown field", `{"nom":"x"}`, "application/json", true},
		{"trailing object", `{"name":"x"}{"name":"y"}`, "application/json", true},
		{"empty", ``, "application/json", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var p payload
			err := decodeJSON(httptest.NewRecorder(), r, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && statusFor(err) != http.StatusBadRequest {
				t.Errorf("status for %v = %d", err, statusFor(err))
			}
		})
	}

	big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var p payload
	err := decodeJSON(httptest.NewRecorder(), r, &p)
	if statusFor(err) != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: status %d for %v", statusFor(err), err)
	}
}
