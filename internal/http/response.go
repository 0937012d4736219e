package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/trace"
)

// ResponseBuilder assembles a JSON response: status, extra headers and body.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
}

// NewResponse creates a builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(key, value string) *ResponseBuilder {
	b.headers[key] = value
	return b
}

// Created sets 201 and the Location of the new resource.
func (b *ResponseBuilder) Created(location string) *ResponseBuilder {
	b.statusCode = http.StatusCreated
	if location != "" {
		b.headers["Location"] = location
	}
	return b
}

// JSON writes v as the response body.
func (b *ResponseBuilder) JSON(w http.ResponseWriter, v any) {
	for k, val := range b.headers {
		w.Header().Set(k, val)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Default().Warn("Failed to encode response", applog.FieldError, err)
	}
}

// NoContent writes the headers and a 204 status.
func (b *ResponseBuilder) NoContent(w http.ResponseWriter) {
	for k, val := range b.headers {
		w.Header().Set(k, val)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	NewResponse().Status(status).JSON(w, ErrorBody{Error: msg, RequestID: trace.RequestID(r.Context())})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errBadRequest), errors.As(err, &syntax), errors.As(err, &typeErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDefaultCategory), errors.Is(err, core.ErrCategoryInUse):
		return http.StatusConflict
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server errors are logged and their
// detail withheld from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		fields := applog.NewFields().
			WithUser(userFrom(r.Context())).
			WithRequestID(trace.RequestID(r.Context()))
		applog.NewStructuredLogger(s.logger).LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, fields)
		writeError(w, r, status, http.StatusText(status))
		return
	}
	writeError(w, r, status, err.Error())
}
