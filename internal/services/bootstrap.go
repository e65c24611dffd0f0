package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/cryptox"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/logging"
	"github.com/dmitrijs2005/chiplogic/internal/models"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/repomanager"
)

// State is the bootstrap state of the credential store schema.
type State int

const (
	Uninitialized State = iota
	Created
	UpToDate
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Created:
		return "created"
	case UpToDate:
		return "up-to-date"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// OperatorSink receives the generated credentials of the seeded account.
type OperatorSink interface {
	PublishCredentials(ctx context.Context, userName, password string) error
}

// seams for tests
var (
	generateSalt     = cryptox.GenerateSalt
	generatePassword = cryptox.GeneratePassword
)

// Bootstrapper brings the credential store schema to the compiled-in
// application version. Running it again with the same version writes
// nothing.
type Bootstrapper struct {
	db          *sql.DB
	dsn         string
	repomanager repomanager.RepositoryManager
	store       *CredentialStore
	sink        OperatorSink
	version     string
	log         logging.Logger
	now         func() time.Time
}

// NewBootstrapper constructs a Bootstrapper. db may point at a database
// that does not exist yet; dsn is the prepared connection string used to
// create it.
func NewBootstrapper(db *sql.DB, dsn string, m repomanager.RepositoryManager, store *CredentialStore,
	sink OperatorSink, version string, log logging.Logger) *Bootstrapper {
	return &Bootstrapper{
		db:          db,
		dsn:         dsn,
		repomanager: m,
		store:       store,
		sink:        sink,
		version:     version,
		log:         log,
		now:         time.Now,
	}
}

// Run executes the bootstrap and reports Created when the schema was built
// from scratch, UpToDate otherwise. Connection problems are reported as
// common.ErrConnectionFailure, everything else as
// common.ErrSchemaMigrationFault. On failure the state stays Uninitialized
// and the next start retries.
func (b *Bootstrapper) Run(ctx context.Context) (State, error) {
	d := b.repomanager.Dialect()

	createdDB, err := d.EnsureDatabase(ctx, b.dsn)
	if err != nil {
		return Uninitialized, b.fail(ctx, "ensure database", err)
	}
	if createdDB {
		b.log.Info(ctx, "database created", "driver", d.Name())
	}

	if err := b.db.PingContext(ctx); err != nil {
		return Uninitialized, b.fail(ctx, "connect", fmt.Errorf("%w: %w", common.ErrConnectionFailure, err))
	}

	current, err := b.currentVersion(ctx)
	if err != nil {
		return Uninitialized, b.fail(ctx, "read schema version", err)
	}
	if current != nil && current.Version == b.version {
		b.log.Debug(ctx, "schema up to date", "version", b.version)
		return UpToDate, nil
	}

	hadSchema, err := d.TableExists(ctx, b.db, "users")
	if err != nil {
		return Uninitialized, b.fail(ctx, "inspect schema", err)
	}

	if err := b.repomanager.RunMigrations(ctx, b.db); err != nil {
		return Uninitialized, b.fail(ctx, "migrate", err)
	}

	err = dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		salt, err := b.ensureSalt(ctx, tx)
		if err != nil {
			return err
		}
		if err := b.seedAdmin(ctx, tx, salt); err != nil {
			return err
		}
		v, err := b.repomanager.Versions(tx).Append(ctx, b.version, b.now().UTC())
		if err != nil {
			return fmt.Errorf("record version: %w", err)
		}
		b.log.Info(ctx, "schema version recorded", "version", v.Version, "seq", v.Seq)
		return nil
	})
	if err != nil {
		return Uninitialized, b.fail(ctx, "seed", err)
	}

	if !hadSchema {
		return Created, nil
	}
	from := ""
	if current != nil {
		from = current.Version
	}
	b.log.Info(ctx, "schema upgraded", "from", from, "to", b.version)
	return UpToDate, nil
}

// History lists the recorded schema versions, oldest first. It is empty
// before the first successful Run.
func (b *Bootstrapper) History(ctx context.Context) ([]models.SchemaVersion, error) {
	ok, err := b.repomanager.Dialect().TableExists(ctx, b.db, "versions")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCredentialStoreFault, err)
	}
	if !ok {
		return nil, nil
	}
	all, err := b.repomanager.Versions(b.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %w", common.ErrCredentialStoreFault, err)
	}
	return all, nil
}

// currentVersion returns nil when no version has been recorded yet.
func (b *Bootstrapper) currentVersion(ctx context.Context) (*models.SchemaVersion, error) {
	ok, err := b.repomanager.Dialect().TableExists(ctx, b.db, "versions")
	if err != nil || !ok {
		return nil, err
	}

	v, err := b.repomanager.Versions(b.db).Current(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (b *Bootstrapper) ensureSalt(ctx context.Context, tx dbx.DBTX) (string, error) {
	keysRepo := b.repomanager.Keys(tx)

	salt, err := keysRepo.Get(ctx, common.PasswordSaltKeyName)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("load salt: %w", err)
	}

	n, err := b.repomanager.Users(tx).Count(ctx)
	if err != nil {
		return "", fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return "", fmt.Errorf("%w: password salt is missing but %d users exist", common.ErrSchemaMigrationFault, n)
	}

	salt, err = generateSalt()
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	if err := keysRepo.Insert(ctx, common.PasswordSaltKeyName, salt); err != nil {
		return "", fmt.Errorf("store salt: %w", err)
	}
	return salt, nil
}

// seedAdmin creates the default account when the store has no users. The
// credentials are published before the transaction commits so a failed
// publish leaves no account whose password nobody knows.
func (b *Bootstrapper) seedAdmin(ctx context.Context, tx dbx.DBTX, salt string) error {
	n, err := b.repomanager.Users(tx).Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword()
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}

	if err := b.store.insertUser(ctx, tx, salt, common.DefaultAdminUserName, password, models.FullPermissions()); err != nil {
		return fmt.Errorf("seed %s: %w", common.DefaultAdminUserName, err)
	}
	if err := b.sink.PublishCredentials(ctx, common.DefaultAdminUserName, password); err != nil {
		return fmt.Errorf("publish credentials: %w", err)
	}

	b.log.Info(ctx, "default user created", "user", common.DefaultAdminUserName)
	return nil
}

func (b *Bootstrapper) fail(ctx context.Context, step string, err error) error {
	b.log.Error(ctx, "bootstrap failed", "step", step, "err", err)
	if errors.Is(err, common.ErrConnectionFailure) || errors.Is(err, common.ErrSchemaMigrationFault) {
		return fmt.Errorf("bootstrap %s: %w", step, err)
	}
	return fmt.Errorf("%w: %s: %w", common.ErrSchemaMigrationFault, step, err)
}
