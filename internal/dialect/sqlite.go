package dialect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/filex"
	"github.com/pressly/goose/v3/database"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLite keeps the credential store in a local file through the pure-Go
// modernc driver.
type SQLite struct{}

func NewSQLite() *SQLite { return &SQLite{} }

func (s *SQLite) Name() string                      { return "sqlite" }
func (s *SQLite) DriverName() string                { return "sqlite" }
func (s *SQLite) GooseDialect() database.Dialect    { return database.DialectSQLite3 }
func (s *SQLite) Placeholder() sq.PlaceholderFormat { return sq.Question }

// PrepareDSN enables foreign keys and a busy timeout unless the DSN
// already sets pragmas of its own.
func (s *SQLite) PrepareDSN(dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", errors.New("empty sqlite dsn")
	}
	if strings.Contains(dsn, "_pragma=") {
		return dsn, nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
}

// EnsureDatabase creates the directory holding the database file; the
// driver creates the file itself on first use.
func (s *SQLite) EnsureDatabase(ctx context.Context, dsn string) (bool, error) {
	path := sqlitePath(dsn)
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return false, nil
	}

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return false, err
	}
	return true, nil
}

func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func (s *SQLite) TableExists(ctx context.Context, db dbx.DBTX, table string) (bool, error) {
	return countExists(ctx, db, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
}

func (s *SQLite) ColumnExists(ctx context.Context, db dbx.DBTX, table, column string) (bool, error) {
	return countExists(ctx, db, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column)
}

func (s *SQLite) IsUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// extended result codes disabled
		return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
