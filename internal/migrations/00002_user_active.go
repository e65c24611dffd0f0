package migrations

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/chiplogic/internal/dialect"
)

func userActiveFlag(d dialect.Dialect) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		return addColumn(ctx, d, tx, "users", "active",
			`ALTER TABLE users ADD COLUMN active BOOLEAN NOT NULL DEFAULT TRUE`)
	}
}
