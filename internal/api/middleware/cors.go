package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/tjfontaine/edgestack/internal/config"
)

// OriginPolicy decides which browser origins may call the API. Entries are
// exact origins, "*" for any origin, or a wildcard subdomain such as
// "https://*.example.com".
type OriginPolicy struct {
	Origins []string
}

// Allow reports whether origin is permitted.
func (p OriginPolicy) Allow(origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range p.Origins {
		switch {
		case o == "*":
			return true
		case strings.EqualFold(o, origin):
			return true
		case strings.Contains(o, "://*."):
			scheme, suffix, _ := strings.Cut(o, "://*")
			if strings.HasPrefix(origin, scheme+"://") && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(suffix)) &&
				len(origin) > len(scheme)+3+len(suffix) {
				return true
			}
		}
	}
	return false
}

// CORS answers preflight requests and decorates responses for the allowed
// origins. An origin of "*" with credentials echoes the caller's origin,
// since browsers refuse a literal "*" alongside credentials.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	policy := OriginPolicy{Origins: cfg.Origins}
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return policy.Allow(origin)
		},
		AllowedMethods:   cfg.Methods,
		AllowedHeaders:   cfg.Headers,
		ExposedHeaders:   cfg.ExposeHeaders,
		AllowCredentials: cfg.Credentials,
		MaxAge:           cfg.MaxAge,
	})
}
