package services

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/chiplogic/internal/cryptox"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/dialect"
	"github.com/dmitrijs2005/chiplogic/internal/logging"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/repomanager"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// cheapHasher keeps argon2 fast enough for tests.
func cheapHasher() *cryptox.Hasher {
	return &cryptox.Hasher{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32}
}

type env struct {
	dsn   string
	db    *sql.DB
	rm    *repomanager.SQLRepositoryManager
	store *CredentialStore
	logs  *bytes.Buffer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	d := dialect.NewSQLite()
	dsn, err := d.PrepareDSN(filepath.Join(t.TempDir(), "data", "station.db"))
	require.NoError(t, err)

	db, err := dbx.Connect(d.DriverName(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var logs bytes.Buffer
	rm := repomanager.NewSQLRepositoryManager(d)
	return &env{
		dsn:   dsn,
		db:    db,
		rm:    rm,
		store: NewCredentialStore(db, rm, cheapHasher(), logging.New(&logs, true)),
		logs:  &logs,
	}
}

func (e *env) bootstrapper(sink OperatorSink, version string) *Bootstrapper {
	return NewBootstrapper(e.db, e.dsn, e.rm, e.store, sink, version, logging.Nop())
}

// migrate creates the schema and stores salt without seeding anyone.
func (e *env) migrate(t *testing.T, salt string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.rm.Dialect().EnsureDatabase(ctx, e.dsn)
	require.NoError(t, err)
	require.NoError(t, e.rm.RunMigrations(ctx, e.db))
	if salt != "" {
		_, err = e.db.Exec(`INSERT INTO app_keys (name, key_value) VALUES ('PasswordSalt', ?)`, salt)
		require.NoError(t, err)
	}
}

func (e *env) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func (e *env) storedHash(t *testing.T, userName string) string {
	t.Helper()
	var h string
	require.NoError(t, e.db.QueryRow(`SELECT password_hash FROM users WHERE username = ?`, userName).Scan(&h))
	return h
}

type memorySink struct {
	mu       sync.Mutex
	calls    int
	user     string
	password string
	err      error
}

func (m *memorySink) PublishCredentials(_ context.Context, userName, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.user, m.password = userName, password
	return nil
}

// faultyManager runs real repositories but fails migrations on demand.
type faultyManager struct {
	*repomanager.SQLRepositoryManager
	migrateErr error
}

func (f *faultyManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if f.migrateErr != nil {
		return f.migrateErr
	}
	return f.SQLRepositoryManager.RunMigrations(ctx, db)
}
