// Package migrations holds the schema of the credential store as goose Go
// migrations. Each DDL step first consults the catalog through the dialect,
// so applying a migration to a database that already has the object (for
// example one created before goose bookkeeping existed) is a no-op.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/dialect"
	"github.com/pressly/goose/v3"
)

// All returns the ordered migrations for d.
func All(d dialect.Dialect) []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(1, &goose.GoFunc{RunTx: initialSchema(d)}, nil),
		goose.NewGoMigration(2, &goose.GoFunc{RunTx: userActiveFlag(d)}, nil),
	}
}

// newProvider is a seam for tests.
var newProvider = func(d dialect.Dialect, db *sql.DB) (migrator, error) {
	return goose.NewProvider(d.GooseDialect(), db, nil,
		goose.WithGoMigrations(All(d)...),
		goose.WithDisableGlobalRegistry(true),
	)
}

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// Up applies every pending migration and returns the versions it applied.
func Up(ctx context.Context, db *sql.DB, d dialect.Dialect) ([]int64, error) {
	p, err := newProvider(d, db)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		if r.Source != nil {
			applied = append(applied, r.Source.Version)
		}
	}
	return applied, nil
}

// createTable runs ddl unless table is already present.
func createTable(ctx context.Context, d dialect.Dialect, tx dbx.DBTX, table, ddl string) error {
	ok, err := d.TableExists(ctx, tx, table)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// addColumn runs ddl unless table already has column.
func addColumn(ctx context.Context, d dialect.Dialect, tx dbx.DBTX, table, column, ddl string) error {
	ok, err := d.ColumnExists(ctx, tx, table, column)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}
