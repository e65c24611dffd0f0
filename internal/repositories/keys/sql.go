// Package keys stores named deployment secrets, such as the shared
// password salt, in the app_keys table.
package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
)

const table = "app_keys"

type SQLRepository struct {
	db dbx.DBTX
	sb sq.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, ph sq.PlaceholderFormat) *SQLRepository {
	return &SQLRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (r *SQLRepository) Get(ctx context.Context, name string) (string, error) {
	query, args, err := r.sb.Select("key_value").From(table).Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var value string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return value, nil
}

// Insert stores a new key. The name is the primary key, so a second insert
// under the same name fails instead of silently replacing the secret.
func (r *SQLRepository) Insert(ctx context.Context, name, value string) error {
	query, args, err := r.sb.Insert(table).Columns("name", "key_value").Values(name, value).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
