package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tjfontaine/edgestack/internal/api/apierror"
	"github.com/tjfontaine/edgestack/internal/core/domain"
	"github.com/tjfontaine/edgestack/internal/identity"
)

type identityKey struct{}

var errUnauthorized = domain.ErrUnauthorized("Unauthorized")

// RequireAuth rejects requests without a valid bearer token and stores the
// verified identity in the context. Provider outages answer 500 rather than
// 401 so clients do not discard a good session.
func RequireAuth(verifier identity.Verifier, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apierror.Write(w, r, errUnauthorized, production)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				AddError(r.Context(), err)
				if errors.Is(err, identity.ErrInvalidToken) || errors.Is(err, identity.ErrMissingSecret) {
					apierror.Write(w, r, errUnauthorized, production)
					return
				}
				apierror.Write(w, r, err, production)
				return
			}

			AddLogField(r.Context(), "user_id", claims.Subject)
			ctx := context.WithValue(r.Context(), identityKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetIdentity returns the verified claims, or nil on unauthenticated routes.
func GetIdentity(ctx context.Context) *identity.Claims {
	if c, ok := ctx.Value(identityKey{}).(*identity.Claims); ok {
		return c
	}
	return nil
}

// UserID returns the authenticated subject, or "" when there is none.
func UserID(ctx context.Context) string {
	if c := GetIdentity(ctx); c != nil {
		return c.Subject
	}
	return ""
}
