package middleware

import (
	"net/http"
	"strings"

	"github.com/unrolled/secure"

	"github.com/tjfontaine/edgestack/internal/config"
)

// CDN hosts the API docs page loads Swagger UI from.
var docsCDNs = []string{"https://cdn.jsdelivr.net", "https://unpkg.com"}

// ContentSecurityPolicy builds the CSP. The relaxed policy lets the docs page
// and dev tooling run inline and eval'd scripts.
func ContentSecurityPolicy(strict bool) string {
	cdn := strings.Join(docsCDNs, " ")
	directives := []string{
		"default-src 'self'",
		"img-src 'self' data: https:",
		"font-src 'self' data: " + cdn,
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"object-src 'none'",
	}
	if strict {
		directives = append(directives,
			"script-src 'self' "+cdn,
			"style-src 'self' "+cdn,
			"upgrade-insecure-requests",
		)
	} else {
		directives = append(directives,
			"script-src 'self' 'unsafe-inline' 'unsafe-eval' "+cdn,
			"style-src 'self' 'unsafe-inline' "+cdn,
		)
	}
	return strings.Join(directives, "; ")
}

// SecureHeaders sets the browser hardening headers on every response. HSTS
// is only sent in strict mode; TLS is terminated in front of the service, so
// the header is forced rather than tied to the request scheme.
func SecureHeaders(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ContentSecurityPolicy: ContentSecurityPolicy(cfg.Strict),
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
	if cfg.Strict {
		opts.STSSeconds = 31536000
		opts.STSIncludeSubdomains = true
		opts.ForceSTSHeader = true
	}
	s := secure.New(opts)

	return func(next http.Handler) http.Handler {
		h := s.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
			w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
			h.ServeHTTP(w, r)
		})
	}
}
