package middleware

import (
	"fmt"
	"net/http"

	"github.com/tjfontaine/edgestack/internal/api/apierror"
	"github.com/tjfontaine/edgestack/internal/storage"
)

// Database attaches a store to the request context before any handler runs.
// A store already present is left in place. The store is released once the
// rest of the chain has returned.
func Database(provider storage.Provider, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if storage.FromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			store, release, err := provider.Acquire(r.Context())
			if err != nil {
				err = fmt.Errorf("acquire database client: %w", err)
				AddError(r.Context(), err)
				apierror.Write(w, r, err, production)
				return
			}
			defer release()

			next.ServeHTTP(w, r.WithContext(storage.WithStore(r.Context(), store)))
		})
	}
}
