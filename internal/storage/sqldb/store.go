// Package sqldb implements the users/posts store on database/sql through
// sqlx, for SQLite and PostgreSQL.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/edgestack/internal/core/ports"
	"github.com/tjfontaine/edgestack/internal/storage"
	"github.com/tjfontaine/edgestack/internal/storage/dialect"
)

// Store is a SQL implementation of ports.Store that supports multiple
// database dialects.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
	closers []func()
}

var _ ports.Store = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres, pgx
	DSN    string // Data source name / connection string

	// SkipSchema leaves the tables alone. Per-request stores set it so the
	// DDL runs once at startup instead of on every request.
	SkipSchema bool
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := newStore(db, d, !cfg.SkipSchema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLite creates a new SQLite store with the schema applied.
func NewSQLite(dsn string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dsn})
}

// NewFromDB wraps an already opened database handle. The schema is not
// touched; call InitSchema when needed.
func NewFromDB(db *sql.DB, driverName string) (*Store, error) {
	d, err := dialect.FromDriverName(driverName)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}
	return &Store{db: sqlx.NewDb(db, d.DriverName()), dialect: d}, nil
}

func newStore(db *sqlx.DB, d dialect.Dialect, withSchema bool) (*Store, error) {
	// SQLite pragmas are per connection; one connection keeps foreign_keys on.
	if d.Name() == string(dialect.SQLite) {
		db.SetMaxOpenConns(1)
	}

	// Run dialect-specific initialization (e.g., PRAGMA for SQLite)
	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d}
	if withSchema {
		if err := store.InitSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return store, nil
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the dialect being used
func (s *Store) Dialect() dialect.Dialect {
	return s.dialect
}

// InitSchema creates the users and posts tables when they are missing.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
	id %s,
	email TEXT NOT NULL UNIQUE,
	name TEXT,
	created_at %s NOT NULL,
	updated_at %s NOT NULL
)`, s.dialect.AutoIncrementClause(), s.dialect.TimestampType(), s.dialect.TimestampType()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS posts (
	id %s,
	title TEXT NOT NULL,
	content TEXT,
	published %s NOT NULL,
	author_id BIGINT NOT NULL,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
)`, s.dialect.AutoIncrementClause(), s.dialect.BooleanType(), s.dialect.TimestampType(), s.dialect.TimestampType()),
		`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Ping runs SELECT 1 against the database.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close closes the database handle and any pool behind it.
func (s *Store) Close() error {
	err := s.db.Close()
	for _, c := range s.closers {
		c()
	}
	return err
}

// wrap classifies a driver error into a storage.Error where possible.
func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &storage.Error{Code: storage.CodeNotFound, Op: op}
	}
	if code := s.dialect.Classify(err); code != "" {
		return &storage.Error{Code: code, Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// deleteByID deletes one row and reports not found when nothing matched.
func (s *Store) deleteByID(ctx context.Context, op, table string, id int64) error {
	query := s.dialect.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table))

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return s.wrap(op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.NotFound(op)
	}
	return nil
}

func (s *Store) count(ctx context.Context, op, table string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)); err != nil {
		return 0, s.wrap(op, err)
	}
	return n, nil
}
