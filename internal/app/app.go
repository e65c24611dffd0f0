// Package app wires the station core together: configuration, logging,
// the credential store, the schema bootstrapper and the permission checker.
// The presentation layer talks to it through the Station interface.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/chiplogic/internal/buildinfo"
	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/config"
	"github.com/dmitrijs2005/chiplogic/internal/cryptox"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/dialect"
	"github.com/dmitrijs2005/chiplogic/internal/logging"
	"github.com/dmitrijs2005/chiplogic/internal/models"
	"github.com/dmitrijs2005/chiplogic/internal/permissions"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/repomanager"
	"github.com/dmitrijs2005/chiplogic/internal/services"
)

// Station is what a front end needs to start a session.
type Station interface {
	Login(ctx context.Context, userName, password string) (models.PermissionSet, error)
	Bootstrap(ctx context.Context) error
}

var _ Station = (*App)(nil)

type session struct {
	userName    string
	permissions models.PermissionSet
}

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	store        *services.CredentialStore
	bootstrapper *services.Bootstrapper
	session      *session
}

// NewApp opens (lazily) the configured database and builds the services on
// top of it. Nothing touches the server until Bootstrap or Login is called.
func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	return newApp(c, logger, cryptox.DefaultHasher())
}

func newApp(c *config.Config, logger logging.Logger, h *cryptox.Hasher) (*App, error) {
	d, err := dialect.ForDriver(c.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := d.PrepareDSN(c.ConnectionString)
	if err != nil {
		return nil, err
	}

	db, err := dbx.Connect(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConnectionFailure, err)
	}

	rm := repomanager.NewSQLRepositoryManager(d)
	store := services.NewCredentialStore(db, rm, h, logger)
	b := services.NewBootstrapper(db, dsn, rm, store, services.NewFileSink(c.DefaultLoginFile), buildinfo.Version, logger)

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		store:        store,
		bootstrapper: b,
	}, nil
}

// Bootstrap brings the schema to the current application version and, on
// success, records in the configuration file that the database exists.
func (a *App) Bootstrap(ctx context.Context) error {
	state, err := a.bootstrapper.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.Info(ctx, "bootstrap finished", "state", state.String(), "version", buildinfo.Version)

	if a.config.IsDatabaseCreated {
		return nil
	}
	a.config.IsDatabaseCreated = true
	if err := a.config.Save(); err != nil {
		a.logger.Error(ctx, "saving configuration failed", "err", err)
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Login checks the credentials and returns the user's permissions. Any
// failure, including a storage fault, is reported as
// common.ErrAuthenticationFailed.
func (a *App) Login(ctx context.Context, userName, password string) (models.PermissionSet, error) {
	a.session = nil
	if !a.store.ValidateUser(ctx, userName, password) {
		a.logger.Warn(ctx, "login failed", "user", userName)
		return models.PermissionSet{}, common.ErrAuthenticationFailed
	}

	p, err := a.store.GetPermissions(ctx, userName)
	if err != nil {
		a.logger.Error(ctx, "loading permissions failed", "user", userName, "err", err)
		return models.PermissionSet{}, common.ErrAuthenticationFailed
	}

	a.session = &session{userName: userName, permissions: p}
	a.logger.Info(ctx, "login", "user", userName)
	return p, nil
}

// Logout ends the current session.
func (a *App) Logout(ctx context.Context) {
	if a.session != nil {
		a.logger.Info(ctx, "logout", "user", a.session.userName)
	}
	a.session = nil
}

// UserName is empty when nobody is logged in.
func (a *App) UserName() string {
	if a.session == nil {
		return ""
	}
	return a.session.userName
}

// EnabledActions lists what the logged-in user may do.
func (a *App) EnabledActions() []permissions.Action {
	if a.session == nil {
		return nil
	}
	return permissions.EnabledActions(a.session.permissions)
}

// require fails unless the session allows action.
func (a *App) require(action permissions.Action) error {
	if a.session == nil {
		return common.ErrNotLoggedIn
	}
	if !permissions.Allows(a.session.permissions, action) {
		return fmt.Errorf("%w: %s", common.ErrPermissionDenied, action)
	}
	return nil
}

func (a *App) CreateUser(ctx context.Context, userName, password string) error {
	if err := a.require(permissions.ManageUsers); err != nil {
		return err
	}
	return a.store.CreateUser(ctx, userName, password)
}

// DeleteUser refuses to remove the logged-in account.
func (a *App) DeleteUser(ctx context.Context, userName string) error {
	if err := a.require(permissions.ManageUsers); err != nil {
		return err
	}
	if userName == a.session.userName {
		return fmt.Errorf("%w: cannot delete the current user", common.ErrValidation)
	}
	return a.store.DeleteUser(ctx, userName)
}

// ChangePassword lets any user change their own password; changing someone
// else's needs user management rights.
func (a *App) ChangePassword(ctx context.Context, userName, newPassword string) error {
	if a.session == nil {
		return common.ErrNotLoggedIn
	}
	if userName != a.session.userName {
		if err := a.require(permissions.ManageUsers); err != nil {
			return err
		}
	}
	return a.store.ChangePassword(ctx, userName, newPassword)
}

func (a *App) SetPermissions(ctx context.Context, userName string, p models.PermissionSet) error {
	if err := a.require(permissions.ManageUsers); err != nil {
		return err
	}
	if err := a.store.UpdatePermissions(ctx, userName, p); err != nil {
		return err
	}
	if userName == a.session.userName {
		a.session.permissions = p
	}
	return nil
}

func (a *App) SetActive(ctx context.Context, userName string, active bool) error {
	if err := a.require(permissions.ManageUsers); err != nil {
		return err
	}
	if !active && userName == a.session.userName {
		return fmt.Errorf("%w: cannot deactivate the current user", common.ErrValidation)
	}
	return a.store.SetActive(ctx, userName, active)
}

func (a *App) ListUsers(ctx context.Context) ([]string, error) {
	if err := a.require(permissions.ManageUsers); err != nil {
		return nil, err
	}
	return a.store.ListUsers(ctx)
}

func (a *App) Permissions(ctx context.Context, userName string) (models.PermissionSet, error) {
	if err := a.require(permissions.ManageUsers); err != nil {
		return models.PermissionSet{}, err
	}
	return a.store.GetPermissions(ctx, userName)
}

// SchemaHistory lists the schema versions applied to the database, oldest
// first.
func (a *App) SchemaHistory(ctx context.Context) ([]models.SchemaVersion, error) {
	if err := a.require(permissions.Settings); err != nil {
		return nil, err
	}
	return a.bootstrapper.History(ctx)
}

// ProvisionAdmin creates userName with every permission. It needs no
// session and backs the support tool.
func (a *App) ProvisionAdmin(ctx context.Context, userName, password string) error {
	if err := a.store.CreateAdmin(ctx, userName, password); err != nil {
		return err
	}
	a.logger.Info(ctx, "administrator provisioned", "user", userName)
	return nil
}

// Close releases the database handle.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
