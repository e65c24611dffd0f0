// Package repomanager provides a RepositoryManager that vends the SQL
// repositories for one dialect and runs the schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/dialect"
	"github.com/dmitrijs2005/chiplogic/internal/migrations"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/keys"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/permissions"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/users"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/versions"
)

// SQLRepositoryManager binds repositories to the placeholder style of its
// dialect.
type SQLRepositoryManager struct {
	dialect dialect.Dialect
}

// NewSQLRepositoryManager constructs a RepositoryManager for d.
func NewSQLRepositoryManager(d dialect.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d}
}

func (m *SQLRepositoryManager) Dialect() dialect.Dialect { return m.dialect }

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect.Placeholder())
}

// Permissions returns a permissions.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Permissions(db dbx.DBTX) permissions.Repository {
	return permissions.NewSQLRepository(db, m.dialect.Placeholder())
}

func (m *SQLRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewSQLRepository(db, m.dialect.Placeholder())
}

func (m *SQLRepositoryManager) Versions(db dbx.DBTX) versions.Repository {
	return versions.NewSQLRepository(db, m.dialect.Placeholder())
}

// migrateUp is a seam for testing migrations.Up.
var migrateUp = migrations.Up

// RunMigrations applies pending schema migrations to db.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := migrateUp(ctx, db, m.dialect)
	return err
}
