package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3/database"
)

const mysqlDuplicateEntry = 1062

// MySQL talks to MySQL/MariaDB through go-sql-driver/mysql.
type MySQL struct {
	openServer func(dsn string) (*sql.DB, error)
}

func NewMySQL() *MySQL {
	return &MySQL{
		openServer: func(dsn string) (*sql.DB, error) { return sql.Open("mysql", dsn) },
	}
}

func (m *MySQL) Name() string                      { return "mysql" }
func (m *MySQL) DriverName() string                { return "mysql" }
func (m *MySQL) GooseDialect() database.Dialect    { return database.DialectMySQL }
func (m *MySQL) Placeholder() sq.PlaceholderFormat { return sq.Question }

// PrepareDSN turns on parseTime so TIMESTAMP columns scan into time.Time,
// and clientFoundRows so an UPDATE that rewrites an identical value still
// reports the matched row.
func (m *MySQL) PrepareDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func (m *MySQL) EnsureDatabase(ctx context.Context, dsn string) (bool, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return false, fmt.Errorf("parse mysql dsn: %w", err)
	}
	name := cfg.DBName
	if err := ValidateIdentifier(name); err != nil {
		return false, err
	}

	server := cfg.Clone()
	server.DBName = ""

	db, err := m.openServer(server.FormatDSN())
	if err != nil {
		return false, fmt.Errorf("open mysql server connection: %w", err)
	}
	defer db.Close()

	return createMySQLDatabase(ctx, db, name)
}

func createMySQLDatabase(ctx context.Context, db dbx.DBTX, name string) (bool, error) {
	exists, err := countExists(ctx, db, `SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?`, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteMySQL(name)); err != nil {
		return false, fmt.Errorf("create database %s: %w", name, err)
	}
	return true, nil
}

func quoteMySQL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m *MySQL) TableExists(ctx context.Context, db dbx.DBTX, table string) (bool, error) {
	return countExists(ctx, db,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`,
		table)
}

func (m *MySQL) ColumnExists(ctx context.Context, db dbx.DBTX, table, column string) (bool, error) {
	return countExists(ctx, db,
		`SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?`,
		table, column)
}

func (m *MySQL) IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
