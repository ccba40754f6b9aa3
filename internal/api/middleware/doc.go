/*
Package middleware provides the HTTP middleware that make up the API request
pipeline.

# Components

## Request ID (requestid.go)

RequestID adopts a well-formed inbound X-Request-ID or generates a UUID. The
id goes into the request context (GetRequestID) and the response header.

## Logging (logging.go)

Logging emits one slog record per request once the response is written:
  - request_id, method, path, status, duration, remote_addr
  - any fields handlers attached with AddLogField/AddError
  - level by status: error for 5xx, warn for 4xx, info otherwise

## Tracing (tracing.go)

Tracing wraps the chain in an otelhttp server span tagged with the request id.

## Metrics (metrics.go)

Metrics counts requests and observes latency per chi route pattern on a
private Prometheus registry, served by Metrics.Handler.

## CORS (cors.go)

CORS answers preflights through go-chi/cors. OriginPolicy allows exact
origins, "*", and wildcard subdomains like https://*.example.com.

## Security headers (secure.go)

SecureHeaders sets CSP, frame, sniffing and referrer headers on every
response, plus HSTS in strict mode.

## Compression (compress.go)

Compress negotiates gzip or deflate for text-like content types.

## Error boundary (errors.go)

ErrorBoundary turns panics into the standard 500 envelope.

## Database (database.go)

Database acquires a store from a storage.Provider, attaches it to the context
and releases it after the handler returns.

## Authentication (auth.go)

RequireAuth verifies the bearer token and exposes the identity through
GetIdentity and UserID. It is mounted on protected route groups only.

# Chain Order

The pipeline (pipeline.go) checks the order at startup:
 1. request_id
 2. logging
 3. tracing
 4. metrics
 5. cors
 6. secure_headers
 7. compression
 8. error_boundary
 9. database

# Context Keys

  - RequestIDKey: correlation id string
  - logFieldsKey: request-scoped log fields
  - identityKey: *identity.Claims from RequireAuth
*/
package middleware
