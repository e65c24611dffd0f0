// Package users stores station accounts in the users table.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/models"
)

const table = "users"

type SQLRepository struct {
	db dbx.DBTX
	sb sq.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, ph sq.PlaceholderFormat) *SQLRepository {
	return &SQLRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) error {
	query, args, err := r.sb.Insert(table).
		Columns("user_id", "username", "password_hash", "active", "created_at").
		Values(user.ID, user.UserName, user.PasswordHash, user.Active, user.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	query, args, err := r.sb.Select("user_id", "username", "password_hash", "active", "created_at").
		From(table).
		Where(sq.Eq{"username": userName}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	user := &models.User{}
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&user.ID, &user.UserName, &user.PasswordHash, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) Exists(ctx context.Context, userName string) (bool, error) {
	query, args, err := r.sb.Select("COUNT(*)").From(table).Where(sq.Eq{"username": userName}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) UpdatePasswordHash(ctx context.Context, userName, hash string) error {
	return r.update(ctx, userName, "password_hash", hash)
}

func (r *SQLRepository) SetActive(ctx context.Context, userName string, active bool) error {
	return r.update(ctx, userName, "active", active)
}

func (r *SQLRepository) update(ctx context.Context, userName, column string, value any) error {
	query, args, err := r.sb.Update(table).
		Set(column, value).
		Where(sq.Eq{"username": userName}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLRepository) Delete(ctx context.Context, userName string) error {
	query, args, err := r.sb.Delete(table).Where(sq.Eq{"username": userName}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLRepository) ListUserNames(ctx context.Context) ([]string, error) {
	query, args, err := r.sb.Select("username").From(table).OrderBy("username").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return names, nil
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
