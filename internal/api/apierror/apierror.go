// Package apierror turns any error raised while serving an API request into
// the JSON error envelope:
//
//	{"error":{"message":"...","code":"...","details":...},"timestamp":"...","path":"/api/..."}
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tjfontaine/edgestack/internal/core/domain"
	"github.com/tjfontaine/edgestack/internal/storage"
)

// ErrorBody is the "error" member of the envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Body is the whole envelope.
type Body struct {
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// Translate classifies err. Explicit HTTP errors win, then storage codes,
// then validation failures; anything else is a 500 whose message is hidden
// in production.
func Translate(err error, production bool) (int, ErrorBody) {
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status, ErrorBody{Message: httpErr.Message, Code: httpErr.Code, Details: httpErr.Details}
	}

	switch storage.CodeOf(err) {
	case storage.CodeUniqueViolation:
		return http.StatusConflict, ErrorBody{Message: "Resource already exists", Code: domain.CodeConflict}
	case storage.CodeNotFound:
		return http.StatusNotFound, ErrorBody{Message: "Resource not found", Code: domain.CodeNotFound}
	case storage.CodeForeignKeyViolation:
		return http.StatusNotFound, ErrorBody{Message: "Referenced resource not found", Code: domain.CodeNotFound}
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest, ErrorBody{Message: "Validation failed", Code: domain.CodeValidation, Details: valErr.Issues}
	}

	msg := "Internal server error"
	if !production && err != nil {
		msg = err.Error()
	}
	return http.StatusInternalServerError, ErrorBody{Message: msg, Code: domain.CodeInternal}
}

// Write translates err and writes the envelope.
func Write(w http.ResponseWriter, r *http.Request, err error, production bool) {
	status, body := Translate(err, production)
	WriteBody(w, r, status, body)
}

// WriteBody writes an already classified error.
func WriteBody(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Body{
		Error:     body,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}

// Handler is an http handler that reports failure by returning an error.
type Handler func(w http.ResponseWriter, r *http.Request) error

// Responder adapts Handlers to http.HandlerFunc, writing returned errors
// through Write.
type Responder struct {
	Production bool
	// OnError, when set, sees every error before it is written.
	OnError func(ctx context.Context, err error)
}

// Adapt wraps h.
func (rs Responder) Adapt(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			if rs.OnError != nil {
				rs.OnError(r.Context(), err)
			}
			Write(w, r, err, rs.Production)
		}
	}
}

// NotFound answers unmatched API routes.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteBody(w, r, http.StatusNotFound, ErrorBody{Message: "Route not found", Code: domain.CodeNotFound})
	}
}

// MethodNotAllowed answers a known route called with the wrong method.
func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteBody(w, r, http.StatusMethodNotAllowed, ErrorBody{Message: "Method not allowed", Code: domain.CodeMethodNotAllowed})
	}
}
