package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/dialect"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/keys"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/permissions"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/users"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/versions"
)

type RepositoryManager interface {
	Dialect() dialect.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	Keys(db dbx.DBTX) keys.Repository
	Versions(db dbx.DBTX) versions.Repository
}
