package migrations

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/chiplogic/internal/dialect"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) (*sql.DB, dialect.Dialect) {
	t.Helper()
	d := dialect.NewSQLite()
	dsn, err := d.PrepareDSN(filepath.Join(t.TempDir(), "station.db"))
	require.NoError(t, err)
	db, err := sql.Open(d.DriverName(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, d
}

func tableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestUp_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	db, d := openSQLite(t)

	applied, err := Up(ctx, db, d)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, applied)

	assert.Equal(t,
		[]string{"app_keys", "goose_db_version", "user_permissions", "users", "versions"},
		tableNames(t, db))

	ok, err := d.ColumnExists(ctx, db, "users", "active")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUp_SecondRunIsNoop(t *testing.T) {
	ctx := context.Background()
	db, d := openSQLite(t)

	_, err := Up(ctx, db, d)
	require.NoError(t, err)
	before := tableNames(t, db)

	applied, err := Up(ctx, db, d)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Equal(t, before, tableNames(t, db))
}

func TestUp_LegacySchemaWithoutBookkeeping(t *testing.T) {
	ctx := context.Background()
	db, d := openSQLite(t)

	// tables created by an install that predates goose and the active flag
	_, err := db.Exec(`CREATE TABLE users (
		user_id VARCHAR(36) PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE app_keys (name VARCHAR(50) PRIMARY KEY, key_value VARCHAR(128) NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (user_id, username, password_hash, created_at) VALUES ('u-1', 'alice', 'h', '2024-01-01 00:00:00')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO app_keys (name, key_value) VALUES ('PasswordSalt', 'abc123==')`)
	require.NoError(t, err)

	applied, err := Up(ctx, db, d)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, applied)

	var active bool
	require.NoError(t, db.QueryRow(`SELECT active FROM users WHERE username = 'alice'`).Scan(&active))
	assert.True(t, active)

	var salt string
	require.NoError(t, db.QueryRow(`SELECT key_value FROM app_keys WHERE name = 'PasswordSalt'`).Scan(&salt))
	assert.Equal(t, "abc123==", salt)

	for _, table := range []string{"user_permissions", "versions"} {
		ok, err := d.TableExists(ctx, db, table)
		require.NoError(t, err)
		assert.True(t, ok, table)
	}
}

func TestAll_Versions(t *testing.T) {
	ms := All(dialect.NewSQLite())
	require.Len(t, ms, 2)
	for i, m := range ms {
		assert.Equal(t, int64(i+1), m.Version)
		assert.Equal(t, goose.TypeGo, m.Type)
	}
}

type fakeMigrator struct {
	results []*goose.MigrationResult
	err     error
}

func (f fakeMigrator) Up(context.Context) ([]*goose.MigrationResult, error) {
	return f.results, f.err
}

func withProvider(t *testing.T, m migrator, err error) {
	t.Helper()
	orig := newProvider
	newProvider = func(dialect.Dialect, *sql.DB) (migrator, error) { return m, err }
	t.Cleanup(func() { newProvider = orig })
}

func TestUp_ProviderError(t *testing.T) {
	withProvider(t, nil, errors.New("boom"))

	_, err := Up(context.Background(), nil, dialect.NewSQLite())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goose provider: boom")
}

func TestUp_MigrationError(t *testing.T) {
	withProvider(t, fakeMigrator{err: errors.New("disk full")}, nil)

	_, err := Up(context.Background(), nil, dialect.NewSQLite())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goose up: disk full")
}

func TestUp_ReportsAppliedVersions(t *testing.T) {
	withProvider(t, fakeMigrator{results: []*goose.MigrationResult{
		{Source: &goose.Source{Version: 2}},
		{},
	}}, nil)

	applied, err := Up(context.Background(), nil, dialect.NewSQLite())
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, applied)
}
