package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3/database"
)

const (
	pgUniqueViolation     = "23505"
	pgMaintenanceDatabase = "postgres"
)

// Postgres talks to PostgreSQL through pgx's database/sql driver.
type Postgres struct {
	// openMaintenance opens a connection to the maintenance database.
	openMaintenance func(cfg *pgx.ConnConfig) *sql.DB
}

func NewPostgres() *Postgres {
	return &Postgres{
		openMaintenance: func(cfg *pgx.ConnConfig) *sql.DB { return stdlib.OpenDB(*cfg) },
	}
}

func (p *Postgres) Name() string                      { return "postgres" }
func (p *Postgres) DriverName() string                { return "pgx" }
func (p *Postgres) GooseDialect() database.Dialect    { return database.DialectPostgres }
func (p *Postgres) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (p *Postgres) PrepareDSN(dsn string) (string, error) {
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("parse postgres dsn: %w", err)
	}
	return dsn, nil
}

func (p *Postgres) EnsureDatabase(ctx context.Context, dsn string) (bool, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return false, fmt.Errorf("parse postgres dsn: %w", err)
	}
	name := cfg.Database
	if err := ValidateIdentifier(name); err != nil {
		return false, err
	}

	maintenance := cfg.Copy()
	maintenance.Database = pgMaintenanceDatabase

	db := p.openMaintenance(maintenance)
	defer db.Close()

	return createPostgresDatabase(ctx, db, name)
}

// createPostgresDatabase runs on a maintenance connection; CREATE DATABASE
// cannot run inside a transaction block.
func createPostgresDatabase(ctx context.Context, db dbx.DBTX, name string) (bool, error) {
	exists, err := countExists(ctx, db, `SELECT COUNT(*) FROM pg_database WHERE datname = $1`, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %s: %w", name, err)
	}
	return true, nil
}

func (p *Postgres) TableExists(ctx context.Context, db dbx.DBTX, table string) (bool, error) {
	return countExists(ctx, db,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`,
		table)
}

func (p *Postgres) ColumnExists(ctx context.Context, db dbx.DBTX, table, column string) (bool, error) {
	return countExists(ctx, db,
		`SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`,
		table, column)
}

func (p *Postgres) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
