package sqldb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/tjfontaine/edgestack/internal/storage/dialect"
)

// ErrNoDatabaseURL is returned when neither a pooled nor a direct URL is configured.
var ErrNoDatabaseURL = errors.New("no database URL configured: set DATABASE_URL or DIRECT_URL")

// Options tune how Open builds the store.
type Options struct {
	SkipSchema bool
	// MaxConns caps the pgx pool size. Zero keeps the pgxpool default.
	MaxConns int32
}

// Open builds a store from a connection URL.
//
//	sqlite:<path> or file:<uri>     modernc SQLite
//	postgres://... (pooled)         pgxpool with the describe cache
//	postgres://...                  raw pgx driver
func Open(ctx context.Context, rawURL string, opts Options) (*Store, error) {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case rawURL == "":
		return nil, ErrNoDatabaseURL
	case strings.HasPrefix(rawURL, "sqlite:"):
		dsn := strings.TrimPrefix(strings.TrimPrefix(rawURL, "sqlite:"), "//")
		return New(Config{Driver: "sqlite", DSN: dsn, SkipSchema: opts.SkipSchema})
	case strings.HasPrefix(rawURL, "file:"):
		return New(Config{Driver: "sqlite", DSN: rawURL, SkipSchema: opts.SkipSchema})
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql", "postgres+pool":
	default:
		return nil, fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}

	if IsPooledURL(rawURL) {
		return openPooled(ctx, normalizePostgresURL(u), opts)
	}
	return New(Config{Driver: "pgx", DSN: normalizePostgresURL(u), SkipSchema: opts.SkipSchema})
}

// IsPooledURL reports whether rawURL points at a managed connection pooler.
func IsPooledURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme == "postgres+pool" {
		return true
	}
	if strings.Contains(strings.ToLower(u.Hostname()), "pooler") {
		return true
	}
	if u.Port() == "6543" {
		return true
	}
	return strings.EqualFold(u.Query().Get("pgbouncer"), "true")
}

// normalizePostgresURL drops the markers pgx would otherwise forward to the
// server as runtime parameters.
func normalizePostgresURL(u *url.URL) string {
	c := *u
	if c.Scheme == "postgres+pool" {
		c.Scheme = "postgres"
	}
	q := c.Query()
	q.Del("pgbouncer")
	c.RawQuery = q.Encode()
	return c.String()
}

func openPooled(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	// Transaction-mode poolers cannot hold named prepared statements.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	d, _ := dialect.New(dialect.Postgres)
	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), d.DriverName())
	store, err := newStore(db, d, !opts.SkipSchema)
	if err != nil {
		db.Close()
		pool.Close()
		return nil, err
	}
	store.closers = append(store.closers, pool.Close)
	return store, nil
}
