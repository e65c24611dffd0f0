package migrations

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/chiplogic/internal/dialect"
)

// The DDL sticks to types that PostgreSQL, MySQL and SQLite all accept.
var initialTables = []struct {
	name string
	ddl  string
}{
	{"users", `CREATE TABLE users (
	user_id VARCHAR(36) PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	created_at TIMESTAMP NOT NULL
)`},
	{"app_keys", `CREATE TABLE app_keys (
	name VARCHAR(50) PRIMARY KEY,
	key_value VARCHAR(128) NOT NULL
)`},
	{"user_permissions", `CREATE TABLE user_permissions (
	user_id VARCHAR(36) PRIMARY KEY REFERENCES users(user_id),
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	can_scan_in BOOLEAN NOT NULL DEFAULT FALSE,
	can_scan_out BOOLEAN NOT NULL DEFAULT FALSE,
	can_assign BOOLEAN NOT NULL DEFAULT FALSE,
	can_view_reports BOOLEAN NOT NULL DEFAULT FALSE
)`},
	{"versions", `CREATE TABLE versions (
	seq INTEGER PRIMARY KEY,
	version VARCHAR(50) NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`},
}

func initialSchema(d dialect.Dialect) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, t := range initialTables {
			if err := createTable(ctx, d, tx, t.name, t.ddl); err != nil {
				return err
			}
		}
		return nil
	}
}
