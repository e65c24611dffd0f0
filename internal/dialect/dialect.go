// Package dialect isolates the engine-specific parts of the credential
// store: driver names, placeholder style, catalog introspection used to
// keep DDL idempotent, creation of the target database and recognition of
// unique-constraint violations.
//
// Three engines are supported: PostgreSQL (pgx), MySQL and SQLite
// (modernc, the default for a stand-alone station).
package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/pressly/goose/v3/database"
)

// Dialect is implemented by every supported engine.
type Dialect interface {
	// Name is the canonical config value ("postgres", "mysql", "sqlite").
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// GooseDialect selects goose's bookkeeping queries.
	GooseDialect() database.Dialect
	// Placeholder is the bind parameter style for squirrel builders.
	Placeholder() sq.PlaceholderFormat

	// PrepareDSN adds the options the store relies on to dsn.
	PrepareDSN(dsn string) (string, error)
	// EnsureDatabase creates the database named by dsn when the server
	// does not have it yet. It reports whether it created anything.
	EnsureDatabase(ctx context.Context, dsn string) (bool, error)

	TableExists(ctx context.Context, db dbx.DBTX, table string) (bool, error)
	ColumnExists(ctx context.Context, db dbx.DBTX, table, column string) (bool, error)

	IsUniqueViolation(err error) bool
}

// ForDriver returns the dialect for a configured driver name.
func ForDriver(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return NewPostgres(), nil
	case "mysql":
		return NewMySQL(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", common.ErrConfigurationInvalid, name)
	}
}

// Supported reports whether name is accepted by ForDriver.
func Supported(name string) bool {
	_, err := ForDriver(name)
	return err == nil
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateIdentifier allow-lists names that end up in DDL as identifiers.
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("%w: invalid database name %q", common.ErrConfigurationInvalid, name)
	}
	return nil
}

func countExists(ctx context.Context, db dbx.DBTX, query string, args ...any) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("catalog query: %w", err)
	}
	return n > 0, nil
}
