// Package versions keeps the append-only log of application versions that
// have bootstrapped the schema. The entry with the highest seq is the
// current schema version; rows are never updated or deleted.
package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/models"
)

const table = "versions"

type SQLRepository struct {
	db dbx.DBTX
	sb sq.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, ph sq.PlaceholderFormat) *SQLRepository {
	return &SQLRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (r *SQLRepository) Current(ctx context.Context) (*models.SchemaVersion, error) {
	query, args, err := r.sb.Select("seq", "version", "applied_at").
		From(table).
		OrderBy("seq DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	v := &models.SchemaVersion{}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&v.Seq, &v.Version, &v.AppliedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// Append records version as the newest entry. Callers run it inside the
// bootstrap transaction, which serializes seq allocation.
func (r *SQLRepository) Append(ctx context.Context, version string, appliedAt time.Time) (*models.SchemaVersion, error) {
	query, args, err := r.sb.Select("COALESCE(MAX(seq), 0)").From(table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var last int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	v := &models.SchemaVersion{Seq: last + 1, Version: version, AppliedAt: appliedAt}

	query, args, err = r.sb.Insert(table).
		Columns("seq", "version", "applied_at").
		Values(v.Seq, v.Version, v.AppliedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.SchemaVersion, error) {
	query, args, err := r.sb.Select("seq", "version", "applied_at").From(table).OrderBy("seq").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.SchemaVersion
	for rows.Next() {
		var v models.SchemaVersion
		if err := rows.Scan(&v.Seq, &v.Version, &v.AppliedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
