package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/cryptox"
	"github.com/dmitrijs2005/chiplogic/internal/dialect"
	"github.com/dmitrijs2005/chiplogic/internal/logging"
	"github.com/dmitrijs2005/chiplogic/internal/models"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUser_FixedSalt(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")
	h := cheapHasher()

	_, err := e.db.Exec(`INSERT INTO users (user_id, username, password_hash, created_at) VALUES ('u-1', 'wrong', ?, CURRENT_TIMESTAMP)`,
		h.Hash("not-hunter2", "abc123=="))
	require.NoError(t, err)
	_, err = e.db.Exec(`INSERT INTO users (user_id, username, password_hash, created_at) VALUES ('u-2', 'right', ?, CURRENT_TIMESTAMP)`,
		h.Hash("hunter2", "abc123=="))
	require.NoError(t, err)

	assert.False(t, e.store.ValidateUser(ctx, "wrong", "hunter2"))
	assert.True(t, e.store.ValidateUser(ctx, "right", "hunter2"))
	assert.False(t, e.store.ValidateUser(ctx, "right", "hunter3"))
	assert.False(t, e.store.ValidateUser(ctx, "nobody", "hunter2"))
	assert.False(t, e.store.ValidateUser(ctx, "", ""))
}

func TestCreateUser_Duplicate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	require.NoError(t, e.store.CreateUser(ctx, "alice", "pw"))
	before := e.storedHash(t, "alice")

	err := e.store.CreateUser(ctx, "alice", "pw2")
	require.ErrorIs(t, err, common.ErrDuplicateUser)

	assert.Equal(t, before, e.storedHash(t, "alice"))
	assert.True(t, e.store.ValidateUser(ctx, "alice", "pw"))
	assert.False(t, e.store.ValidateUser(ctx, "alice", "pw2"))
	assert.Equal(t, 1, e.count(t, "users"))
	assert.Equal(t, 1, e.count(t, "user_permissions"))
}

func TestCreateUser_DefaultDeny(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	require.NoError(t, e.store.CreateUser(ctx, "bob", "pw"))

	p, err := e.store.GetPermissions(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionSet{}, p)
}

func TestCreateUser_Validation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	tests := []struct {
		name, user, pass string
	}{
		{"empty user", "", "pw"},
		{"empty password", "alice", ""},
		{"long user", strings.Repeat("x", common.MaxUserNameLength+1), "pw"},
		{"blank user", "   ", "pw"},
		{"blank password", "alice", " \t "},
		{"leading space", " alice", "pw"},
		{"trailing space", "alice\t", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, e.store.CreateUser(ctx, tt.user, tt.pass), common.ErrValidation)
		})
	}

	assert.Equal(t, 0, e.count(t, "users"))

	require.NoError(t, e.store.CreateUser(ctx, strings.Repeat("x", common.MaxUserNameLength), "pw"))
	require.NoError(t, e.store.CreateUser(ctx, "alice smith", " pw with spaces "))
}

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	require.NoError(t, e.store.CreateAdmin(ctx, "root", "pw"))
	p, err := e.store.GetPermissions(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, models.FullPermissions(), p)

	require.ErrorIs(t, e.store.CreateAdmin(ctx, "root", "pw"), common.ErrDuplicateUser)
	require.ErrorIs(t, e.store.CreateAdmin(ctx, " root", "pw"), common.ErrValidation)
}

func TestCreateAdmin_PermissionWriteFailureLeavesNoUser(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	_, err := e.db.Exec(`CREATE TRIGGER deny_permissions BEFORE INSERT ON user_permissions
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	err = e.store.CreateAdmin(ctx, "root", "pw")
	require.ErrorIs(t, err, common.ErrCredentialStoreFault)
	assert.Equal(t, 0, e.count(t, "users"))
	assert.False(t, e.store.ValidateUser(ctx, "root", "pw"))
}

func TestCreateUser_MissingSalt(t *testing.T) {
	e := newEnv(t)
	e.migrate(t, "")

	err := e.store.CreateUser(context.Background(), "alice", "pw")
	require.ErrorIs(t, err, common.ErrCredentialStoreFault)
	assert.Equal(t, 0, e.count(t, "users"))
}

func TestGetPermissions_NoRowIsAllFalse(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	_, err := e.db.Exec(`INSERT INTO users (user_id, username, password_hash, created_at) VALUES ('u-1', 'orphan', 'x', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	for _, name := range []string{"orphan", "ghost"} {
		p, err := e.store.GetPermissions(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, models.PermissionSet{}, p, name)
	}
}

func TestUpdatePermissions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	require.NoError(t, e.store.CreateUser(ctx, "carol", "pw"))
	want := models.PermissionSet{CanScanIn: true, CanAssign: true}
	require.NoError(t, e.store.UpdatePermissions(ctx, "carol", want))

	got, err := e.store.GetPermissions(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.ErrorIs(t, e.store.UpdatePermissions(ctx, "ghost", want), common.ErrNotFound)
}

func TestUpdatePermissions_CreatesMissingRow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	_, err := e.db.Exec(`INSERT INTO users (user_id, username, password_hash, created_at) VALUES ('u-1', 'orphan', 'x', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	require.NoError(t, e.store.UpdatePermissions(ctx, "orphan", models.FullPermissions()))

	got, err := e.store.GetPermissions(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, models.FullPermissions(), got)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	require.NoError(t, e.store.CreateUser(ctx, "alice", "pw"))
	require.NoError(t, e.store.CreateUser(ctx, "bob", "pw"))

	require.NoError(t, e.store.DeleteUser(ctx, "alice"))
	assert.Equal(t, 1, e.count(t, "users"))
	assert.Equal(t, 1, e.count(t, "user_permissions"))
	assert.False(t, e.store.ValidateUser(ctx, "alice", "pw"))

	require.ErrorIs(t, e.store.DeleteUser(ctx, "alice"), common.ErrNotFound)
}

func TestDeleteUser_PermissionsBeforeUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewCredentialStore(db, repomanager.NewSQLRepositoryManager(dialect.NewSQLite()), cheapHasher(), logging.Nop())

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM user_permissions WHERE user_id = \(SELECT user_id FROM users WHERE username = \?\)`).
		WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE username = \?`).
		WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteUser(context.Background(), "alice"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_RollsBackOnFault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewCredentialStore(db, repomanager.NewSQLRepositoryManager(dialect.NewSQLite()), cheapHasher(), logging.Nop())

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM user_permissions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users`).WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err = s.DeleteUser(context.Background(), "alice")
	require.ErrorIs(t, err, common.ErrCredentialStoreFault)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	require.NoError(t, e.store.CreateUser(ctx, "alice", "old"))
	require.NoError(t, e.store.ChangePassword(ctx, "alice", "new"))

	assert.False(t, e.store.ValidateUser(ctx, "alice", "old"))
	assert.True(t, e.store.ValidateUser(ctx, "alice", "new"))

	require.ErrorIs(t, e.store.ChangePassword(ctx, "ghost", "x"), common.ErrNotFound)
	require.ErrorIs(t, e.store.ChangePassword(ctx, "alice", ""), common.ErrValidation)
	require.ErrorIs(t, e.store.ChangePassword(ctx, "alice", "   "), common.ErrValidation)
	assert.True(t, e.store.ValidateUser(ctx, "alice", "new"))
}

func TestValidateUser_Inactive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	require.NoError(t, e.store.CreateUser(ctx, "alice", "pw"))
	require.NoError(t, e.store.SetActive(ctx, "alice", false))
	assert.False(t, e.store.ValidateUser(ctx, "alice", "pw"))

	require.NoError(t, e.store.SetActive(ctx, "alice", true))
	assert.True(t, e.store.ValidateUser(ctx, "alice", "pw"))

	require.ErrorIs(t, e.store.SetActive(ctx, "ghost", true), common.ErrNotFound)
}

func TestValidateUser_UpgradesLegacyHash(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	legacy := cryptox.LegacyHash("hunter2", "abc123==")
	_, err := e.db.Exec(`INSERT INTO users (user_id, username, password_hash, created_at) VALUES ('u-1', 'old', ?, CURRENT_TIMESTAMP)`, legacy)
	require.NoError(t, err)

	assert.False(t, e.store.ValidateUser(ctx, "old", "wrong"))
	assert.Equal(t, legacy, e.storedHash(t, "old"))

	require.True(t, e.store.ValidateUser(ctx, "old", "hunter2"))
	upgraded := e.storedHash(t, "old")
	assert.True(t, strings.HasPrefix(upgraded, "$argon2id$"))
	assert.False(t, cheapHasher().NeedsRehash(upgraded))

	assert.True(t, e.store.ValidateUser(ctx, "old", "hunter2"))
}

func TestValidateUser_FaultIsLoggedNotSurfaced(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var logs bytes.Buffer
	s := NewCredentialStore(db, repomanager.NewSQLRepositoryManager(dialect.NewSQLite()), cheapHasher(), logging.New(&logs, false))

	mock.ExpectQuery(`SELECT user_id, username, password_hash, active, created_at FROM users`).
		WithArgs("alice").
		WillReturnError(errors.New("connection refused"))

	assert.False(t, s.ValidateUser(context.Background(), "alice", "secret-pw"))
	require.NoError(t, mock.ExpectationsWereMet())

	out := logs.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "connection refused")
	assert.NotContains(t, out, "secret-pw")
}

func TestValidateUser_UnknownUserNotLoggedAsError(t *testing.T) {
	e := newEnv(t)
	e.migrate(t, "abc123==")

	assert.False(t, e.store.ValidateUser(context.Background(), "ghost", "pw"))
	assert.NotContains(t, e.logs.String(), "level=ERROR")
}

func TestGetPermissions_Fault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewCredentialStore(db, repomanager.NewSQLRepositoryManager(dialect.NewSQLite()), cheapHasher(), logging.Nop())
	mock.ExpectQuery(`SELECT is_admin`).WillReturnError(errors.New("broken pipe"))

	_, err = s.GetPermissions(context.Background(), "alice")
	require.ErrorIs(t, err, common.ErrCredentialStoreFault)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.migrate(t, "abc123==")

	for _, n := range []string{"zed", "amy"} {
		require.NoError(t, e.store.CreateUser(ctx, n, "pw"))
	}
	names, err := e.store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "zed"}, names)
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	s := NewCredentialStore(db, repomanager.NewSQLRepositoryManager(dialect.NewSQLite()), cheapHasher(), logging.Nop())

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	require.ErrorIs(t, s.Ping(context.Background()), common.ErrConnectionFailure)
}
