package runtime

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/tjfontaine/edgestack/internal/config"
	"github.com/tjfontaine/edgestack/internal/identity"
	"github.com/tjfontaine/edgestack/internal/storage"
	"github.com/tjfontaine/edgestack/internal/telemetry"
)

// Option is a functional option for configuring an App.
type Option func(*App) error

// WithConfig sets the resolved configuration (required).
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		if cfg == nil {
			return errors.New("config must not be nil")
		}
		a.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStoreProvider sets how request handlers obtain a database client
// (required). Use storage.NewSingletonProvider for long-lived processes and
// storage.NewPerRequestProvider for edge runtimes.
func WithStoreProvider(provider storage.Provider) Option {
	return func(a *App) error {
		a.provider = provider
		return nil
	}
}

// WithVerifier sets the bearer token verifier. Without it, a Clerk verifier
// is built from the auth config.
func WithVerifier(v identity.Verifier) Option {
	return func(a *App) error {
		a.verifier = v
		return nil
	}
}

// WithFrontend serves assets for non-API paths instead of the embedded bundle.
func WithFrontend(assets fs.FS) Option {
	return func(a *App) error {
		a.assets = assets
		return nil
	}
}

// WithTracerShutdown registers the tracer flush to run on Shutdown.
func WithTracerShutdown(fn telemetry.Shutdown) Option {
	return func(a *App) error {
		a.tracerShutdown = fn
		return nil
	}
}
