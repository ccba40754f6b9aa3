package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/tjfontaine/edgestack/internal/api/apierror"
)

// ErrorBoundary recovers panics from the rest of the chain and answers with
// the standard 500 envelope. http.ErrAbortHandler is re-raised so the server
// can drop the connection.
func ErrorBoundary(logger *slog.Logger, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrapWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				AddError(r.Context(), err)
				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				if !sw.Written() {
					apierror.Write(sw, r, err, production)
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
