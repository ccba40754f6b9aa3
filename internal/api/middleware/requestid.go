package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tjfontaine/edgestack/internal/config"
)

type contextKey string

// RequestIDKey is the context key for request IDs
const RequestIDKey contextKey = "request_id"

// maxRequestIDLen bounds inbound ids adopted from clients.
const maxRequestIDLen = 128

// RequestID assigns a correlation id to each request. A valid inbound id in
// the configured header is adopted; otherwise a UUID is generated. The id is
// stored in the context and echoed in the response header.
func RequestID(cfg config.RequestIDConfig) func(http.Handler) http.Handler {
	header := cfg.Header
	if header == "" {
		header = "X-Request-ID"
	}
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(header)
			if !validRequestID(requestID) {
				requestID = uuid.New().String()
			}
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			w.Header().Set(header, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID retrieves the request ID from context.
// Returns an empty string if no request ID is set.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
