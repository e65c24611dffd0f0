// Package permissions stores the per-user capability flags in the
// user_permissions table. Rows are addressed by username through a
// subquery on users, so callers never handle user ids directly.
package permissions

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

const table = "user_permissions"

var columns = []string{"is_admin", "can_scan_in", "can_scan_out", "can_assign", "can_view_reports"}

type SQLRepository struct {
	db dbx.DBTX
	sb sq.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, ph sq.PlaceholderFormat) *SQLRepository {
	return &SQLRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func byUserName(userName string) sq.Sqlizer {
	return sq.Expr("user_id = (SELECT user_id FROM users WHERE username = ?)", userName)
}

func (r *SQLRepository) Create(ctx context.Context, userID string, p models.PermissionSet) error {
	query, args, err := r.sb.Insert(table).
		Columns(append([]string{"user_id"}, columns...)...).
		Values(userID, p.IsAdmin, p.CanScanIn, p.CanScanOut, p.CanAssign, p.CanViewReports).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, userName string) (models.PermissionSet, error) {
	var p models.PermissionSet

	query, args, err := r.sb.Select(columns...).From(table).Where(byUserName(userName)).ToSql()
	if err != nil {
		return p, fmt.Errorf("build query: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&p.IsAdmin, &p.CanScanIn, &p.CanScanOut, &p.CanAssign, &p.CanViewReports)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PermissionSet{}, common.ErrNotFound
		}
		return models.PermissionSet{}, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *SQLRepository) Update(ctx context.Context, userName string, p models.PermissionSet) error {
	query, args, err := r.sb.Update(table).
		SetMap(map[string]any{
			"is_admin":         p.IsAdmin,
			"can_scan_in":      p.CanScanIn,
			"can_scan_out":     p.CanScanOut,
			"can_assign":       p.CanAssign,
			"can_view_reports": p.CanViewReports,
		}).
		Where(byUserName(userName)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteByUserName removes the permission row of userName. A missing row
// is not an error.
func (r *SQLRepository) DeleteByUserName(ctx context.Context, userName string) error {
	query, args, err := r.sb.Delete(table).Where(byUserName(userName)).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
