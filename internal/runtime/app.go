// Package runtime assembles the HTTP application and manages its lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/edgestack/internal/api/apierror"
	"github.com/tjfontaine/edgestack/internal/api/middleware"
	"github.com/tjfontaine/edgestack/internal/api/rest"
	"github.com/tjfontaine/edgestack/internal/config"
	"github.com/tjfontaine/edgestack/internal/identity"
	"github.com/tjfontaine/edgestack/internal/storage"
	"github.com/tjfontaine/edgestack/internal/telemetry"
	"github.com/tjfontaine/edgestack/internal/web"
)

// App is the API plus frontend server. It can be embedded in a larger
// program through Handler, or run standalone with Start and Shutdown.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	provider       storage.Provider
	verifier       identity.Verifier
	assets         fs.FS
	tracerShutdown telemetry.Shutdown
	metrics        *middleware.Metrics

	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

// New creates an App with the given options.
func New(opts ...Option) (*App, error) {
	a := &App{logger: slog.Default()}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if a.cfg == nil {
		return nil, errors.New("config required (use WithConfig)")
	}
	if a.provider == nil {
		return nil, errors.New("store provider required (use WithStoreProvider)")
	}
	if a.verifier == nil {
		v, err := identity.NewClerkVerifier(identity.ClerkConfig{
			SecretKey:      a.cfg.Auth.SecretKey,
			PublishableKey: a.cfg.Auth.PublishableKey,
			JWTKey:         a.cfg.Auth.JWTKey,
			APIURL:         a.cfg.Auth.APIURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create verifier: %w", err)
		}
		a.verifier = v
	}
	if a.cfg.Middleware.Metrics.Enabled {
		a.metrics = middleware.NewMetrics()
	}

	return a, nil
}

// pipeline lists the stages every request runs through. The database stage
// is only added for API requests.
func (a *App) pipeline(withDatabase bool) *middleware.Builder {
	mw := a.cfg.Middleware
	prod := a.cfg.IsProduction()

	metrics := func(next http.Handler) http.Handler { return next }
	if a.metrics != nil {
		metrics = a.metrics.Middleware
	}

	b := middleware.NewBuilder().
		Use(middleware.Stage{
			Name:       "request_id",
			Provides:   []string{middleware.CapRequestID},
			Middleware: middleware.RequestID(mw.RequestID),
		}).
		Use(middleware.Stage{
			Name:       "logging",
			Requires:   []string{middleware.CapRequestID},
			Provides:   []string{middleware.CapLogFields},
			Middleware: middleware.Logging(a.logger, mw.Logging.Enabled),
		}).
		Use(middleware.Stage{
			Name:       "tracing",
			Requires:   []string{middleware.CapRequestID},
			Provides:   []string{middleware.CapSpan},
			Middleware: middleware.Tracing(mw.Tracing),
		}).
		Use(middleware.Stage{
			Name:       "metrics",
			Middleware: metrics,
		}).
		Use(middleware.Stage{
			Name:       "cors",
			Middleware: middleware.CORS(mw.CORS),
		}).
		Use(middleware.Stage{
			Name:       "secure_headers",
			Middleware: middleware.SecureHeaders(mw.Security),
		}).
		Use(middleware.Stage{
			Name:       "compression",
			Middleware: middleware.Compress(mw.Compression),
		}).
		Use(middleware.Stage{
			Name:       "error_boundary",
			Requires:   []string{middleware.CapLogFields},
			Provides:   []string{middleware.CapRecovery},
			Middleware: middleware.ErrorBoundary(a.logger, prod),
		})

	if withDatabase {
		b.Use(middleware.Stage{
			Name:       "database",
			Requires:   []string{middleware.CapRecovery},
			Provides:   []string{middleware.CapStore},
			Middleware: middleware.Database(a.provider, prod),
		})
	}
	return b
}

// Handler builds the root HTTP handler: /api behind the full pipeline and
// every other path served by the frontend.
func (a *App) Handler() (http.Handler, error) {
	apiPipeline := a.pipeline(true)
	apiChain, err := apiPipeline.Build()
	if err != nil {
		return nil, fmt.Errorf("build api pipeline: %w", err)
	}
	webChain, err := a.pipeline(false).Build()
	if err != nil {
		return nil, fmt.Errorf("build web pipeline: %w", err)
	}
	a.logger.Debug("request pipeline", slog.Any("stages", apiPipeline.Names()))

	r := chi.NewRouter()
	r.Mount("/api", middleware.Then(apiChain, a.apiRouter()))
	r.Handle("/*", middleware.Then(webChain, web.New(a.assets)))
	return r, nil
}

func (a *App) apiRouter() chi.Router {
	rs := apierror.Responder{
		Production: a.cfg.IsProduction(),
		OnError:    middleware.AddError,
	}
	auth := middleware.RequireAuth(a.verifier, a.cfg.IsProduction())

	r := chi.NewRouter()
	r.NotFound(apierror.NotFound())
	r.MethodNotAllowed(apierror.MethodNotAllowed())

	r.Mount("/health", rest.Health{Service: a.cfg.Middleware.Tracing.ServiceName}.Routes())
	r.Mount("/docs", rest.DocsRoutes())
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.With(auth).Mount("/users", rest.UserRoutes(rs))
	r.With(auth).Mount("/posts", rest.PostRoutes(rs))
	return r
}

// Start listens on the configured port and serves in the background.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return errors.New("app already started")
	}

	h, err := a.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	a.listener = ln
	a.server = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		a.logger.Info("HTTP server listening",
			slog.String("addr", ln.Addr().String()),
			slog.String("environment", a.cfg.Environment),
			slog.String("runtime_mode", a.cfg.Runtime.Mode))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Addr returns the listening address once started.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown stops accepting requests, waits for in-flight ones, then
// releases the database and flushes traces.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("shutting down")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.provider.Close(); err != nil {
		a.logger.Error("failed to close database", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("failed to flush traces", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
