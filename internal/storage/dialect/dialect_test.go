package dialect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tjfontaine/edgestack/internal/storage"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		dialectType DialectType
		wantName    string
		wantErr     bool
	}{
		{"sqlite", SQLite, "sqlite", false},
		{"postgres", Postgres, "postgres", false},
		{"mysql", DialectType("mysql"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.dialectType)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && d.Name() != tt.wantName {
				t.Errorf("Name() = %v, want %v", d.Name(), tt.wantName)
			}
		})
	}
}

func TestFromDriverName(t *testing.T) {
	tests := []struct {
		driverName string
		wantName   string
		wantErr    bool
	}{
		{"sqlite", "sqlite", false},
		{"sqlite3", "sqlite", false},
		{"postgres", "postgres", false},
		{"PGX", "postgres", false},
		{"unknown", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driverName, func(t *testing.T) {
			d, err := FromDriverName(tt.driverName)
			if (err != nil) != tt.wantErr {
				t.Errorf("FromDriverName() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && d.Name() != tt.wantName {
				t.Errorf("Name() = %v, want %v", d.Name(), tt.wantName)
			}
		})
	}
}

func TestPostgresDialect_Rebind(t *testing.T) {
	d := &postgresDialect{}
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT * FROM users WHERE id = ?", "SELECT * FROM users WHERE id = $1"},
		{"UPDATE posts SET title = ?, published = ? WHERE id = ?", "UPDATE posts SET title = $1, published = $2 WHERE id = $3"},
		{"SELECT COUNT(*) FROM users", "SELECT COUNT(*) FROM users"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := d.Rebind(tt.query); got != tt.want {
				t.Errorf("Rebind() = %v, want %v", got, tt.want)
			}
		})
	}

	sq := &sqliteDialect{}
	if got := sq.Rebind("SELECT ? "); got != "SELECT ? " {
		t.Errorf("sqlite Rebind() = %v, want unchanged", got)
	}
}

func TestDialect_Types(t *testing.T) {
	tests := []struct {
		name          string
		dialect       Dialect
		autoIncrement string
		boolType      string
		timestampType string
	}{
		{"sqlite", &sqliteDialect{}, "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER", "TIMESTAMP"},
		{"postgres", &postgresDialect{}, "BIGSERIAL PRIMARY KEY", "BOOLEAN", "TIMESTAMP WITH TIME ZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.AutoIncrementClause(); got != tt.autoIncrement {
				t.Errorf("AutoIncrementClause() = %v, want %v", got, tt.autoIncrement)
			}
			if got := tt.dialect.BooleanType(); got != tt.boolType {
				t.Errorf("BooleanType() = %v, want %v", got, tt.boolType)
			}
			if got := tt.dialect.TimestampType(); got != tt.timestampType {
				t.Errorf("TimestampType() = %v, want %v", got, tt.timestampType)
			}
		})
	}
}

func TestDialect_PragmaStatements(t *testing.T) {
	pragmas := (&sqliteDialect{}).PragmaStatements()
	found := false
	for _, p := range pragmas {
		if p == "PRAGMA foreign_keys=ON" {
			found = true
		}
	}
	if !found {
		t.Errorf("SQLite pragmas must enable foreign keys, got %v", pragmas)
	}

	if (&postgresDialect{}).PragmaStatements() != nil {
		t.Error("PostgreSQL should not have pragma statements")
	}
}

func TestSQLiteDialect_Classify(t *testing.T) {
	d := &sqliteDialect{}
	tests := []struct {
		name string
		err  error
		want storage.Code
	}{
		{"nil", nil, ""},
		{"unique", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), storage.CodeUniqueViolation},
		{"foreign key", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), storage.CodeForeignKeyViolation},
		{"wrapped", fmt.Errorf("insert: %w", errors.New("UNIQUE constraint failed: users.email")), storage.CodeUniqueViolation},
		{"other", errors.New("database is locked"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPostgresDialect_Classify(t *testing.T) {
	d := &postgresDialect{}
	tests := []struct {
		name string
		err  error
		want storage.Code
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, storage.CodeUniqueViolation},
		{"foreign key", fmt.Errorf("insert post: %w", &pgconn.PgError{Code: "23503"}), storage.CodeForeignKeyViolation},
		{"not null", &pgconn.PgError{Code: "23502"}, ""},
		{"plain", errors.New("UNIQUE constraint failed"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
