// Package services contains the station business logic. This file
// implements CredentialStore, which manages accounts, passwords and
// permission flags on top of the repositories.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/cryptox"
	"github.com/dmitrijs2005/chiplogic/internal/dbx"
	"github.com/dmitrijs2005/chiplogic/internal/logging"
	"github.com/dmitrijs2005/chiplogic/internal/models"
	"github.com/dmitrijs2005/chiplogic/internal/repositories/repomanager"
	"github.com/google/uuid"
)

// CredentialStore owns the users, app_keys and user_permissions tables.
// It keeps no state between calls: the salt is read from the store for
// every operation.
type CredentialStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.Hasher
	log         logging.Logger

	now   func() time.Time
	newID func() string
}

// NewCredentialStore constructs a CredentialStore over db.
func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, h *cryptox.Hasher, log logging.Logger) *CredentialStore {
	return &CredentialStore{
		db:          db,
		repomanager: m,
		hasher:      h,
		log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// CreateUser adds an account with default-deny permissions. An existing
// username yields common.ErrDuplicateUser.
func (s *CredentialStore) CreateUser(ctx context.Context, userName, password string) error {
	return s.createUser(ctx, userName, password, models.PermissionSet{})
}

// CreateAdmin adds an account holding every permission. The user and
// permission rows are written in one transaction.
func (s *CredentialStore) CreateAdmin(ctx context.Context, userName, password string) error {
	return s.createUser(ctx, userName, password, models.FullPermissions())
}

func (s *CredentialStore) createUser(ctx context.Context, userName, password string, perms models.PermissionSet) error {
	if err := validateUserName(userName); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		salt, err := s.salt(ctx, tx)
		if err != nil {
			return err
		}
		return s.insertUser(ctx, tx, salt, userName, password, perms)
	})
}

// insertUser writes the user row and its permission row. It must run
// inside a transaction so that neither row exists without the other.
func (s *CredentialStore) insertUser(ctx context.Context, tx dbx.DBTX, salt, userName, password string, perms models.PermissionSet) error {
	usersRepo := s.repomanager.Users(tx)

	exists, err := usersRepo.Exists(ctx, userName)
	if err != nil {
		return storeFault("check user", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", common.ErrDuplicateUser, userName)
	}

	user := &models.User{
		ID:           s.newID(),
		UserName:     userName,
		PasswordHash: s.hasher.Hash(password, salt),
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := usersRepo.Create(ctx, user); err != nil {
		if s.repomanager.Dialect().IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", common.ErrDuplicateUser, userName)
		}
		return storeFault("create user", err)
	}

	if err := s.repomanager.Permissions(tx).Create(ctx, user.ID, perms); err != nil {
		return storeFault("create permissions", err)
	}
	return nil
}

// DeleteUser removes the permission row and then the user row.
func (s *CredentialStore) DeleteUser(ctx context.Context, userName string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Permissions(tx).DeleteByUserName(ctx, userName); err != nil {
			return storeFault("delete permissions", err)
		}
		if err := s.repomanager.Users(tx).Delete(ctx, userName); err != nil {
			return notFoundOrFault(userName, "delete user", err)
		}
		return nil
	})
}

// ChangePassword re-hashes newPassword with the shared salt and overwrites
// the stored hash. Concurrent changes for one user are last-writer-wins.
func (s *CredentialStore) ChangePassword(ctx context.Context, userName, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	salt, err := s.salt(ctx, s.db)
	if err != nil {
		return err
	}

	if err := s.repomanager.Users(s.db).UpdatePasswordHash(ctx, userName, s.hasher.Hash(newPassword, salt)); err != nil {
		return notFoundOrFault(userName, "update password", err)
	}
	return nil
}

// ValidateUser reports whether password is correct for an existing,
// active user. Storage faults are logged and reported as false so callers
// cannot tell a fault from a wrong password or unknown user.
func (s *CredentialStore) ValidateUser(ctx context.Context, userName, password string) bool {
	if userName == "" || password == "" {
		return false
	}

	user, err := s.repomanager.Users(s.db).GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.log.Debug(ctx, "login for unknown user", "user", userName)
		} else {
			s.log.Error(ctx, "validate user: load user", "user", userName, "err", err)
		}
		return false
	}

	if !user.Active {
		s.log.Debug(ctx, "login for inactive user", "user", userName)
		return false
	}

	salt, err := s.salt(ctx, s.db)
	if err != nil {
		s.log.Error(ctx, "validate user: load salt", "err", err)
		return false
	}

	if !s.hasher.Verify(password, salt, user.PasswordHash) {
		s.log.Debug(ctx, "invalid password", "user", userName)
		return false
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		if err := s.repomanager.Users(s.db).UpdatePasswordHash(ctx, userName, s.hasher.Hash(password, salt)); err != nil {
			s.log.Error(ctx, "validate user: upgrade hash", "user", userName, "err", err)
		}
	}
	return true
}

// GetPermissions returns the permission flags of userName. A user without
// a permission row, or an unknown user, gets the all-false set.
func (s *CredentialStore) GetPermissions(ctx context.Context, userName string) (models.PermissionSet, error) {
	p, err := s.repomanager.Permissions(s.db).Get(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return models.PermissionSet{}, nil
		}
		return models.PermissionSet{}, storeFault("get permissions", err)
	}
	return p, nil
}

// UpdatePermissions overwrites the flags of userName, creating the
// permission row if it is missing.
func (s *CredentialStore) UpdatePermissions(ctx context.Context, userName string, p models.PermissionSet) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).GetByUserName(ctx, userName)
		if err != nil {
			return notFoundOrFault(userName, "load user", err)
		}

		permsRepo := s.repomanager.Permissions(tx)
		err = permsRepo.Update(ctx, userName, p)
		if errors.Is(err, common.ErrNotFound) {
			err = permsRepo.Create(ctx, user.ID, p)
		}
		if err != nil {
			return storeFault("update permissions", err)
		}
		return nil
	})
}

// ListUsers returns all usernames in ascending order.
func (s *CredentialStore) ListUsers(ctx context.Context) ([]string, error) {
	names, err := s.repomanager.Users(s.db).ListUserNames(ctx)
	if err != nil {
		return nil, storeFault("list users", err)
	}
	return names, nil
}

// SetActive enables or disables login for userName.
func (s *CredentialStore) SetActive(ctx context.Context, userName string, active bool) error {
	if err := s.repomanager.Users(s.db).SetActive(ctx, userName, active); err != nil {
		return notFoundOrFault(userName, "set active", err)
	}
	return nil
}

// Ping checks that the store is reachable.
func (s *CredentialStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", common.ErrConnectionFailure, err)
	}
	return nil
}

func (s *CredentialStore) salt(ctx context.Context, db dbx.DBTX) (string, error) {
	salt, err := s.repomanager.Keys(db).Get(ctx, common.PasswordSaltKeyName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("%w: password salt is missing", common.ErrCredentialStoreFault)
		}
		return "", storeFault("load salt", err)
	}
	return salt, nil
}

func storeFault(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrCredentialStoreFault, op, err)
}

func notFoundOrFault(userName, op string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("user %q: %w", userName, common.ErrNotFound)
	}
	return storeFault(op, err)
}

// validateUserName rejects blank names and names with surrounding
// whitespace, which would otherwise sit next to their trimmed twin.
func validateUserName(userName string) error {
	if strings.TrimSpace(userName) == "" {
		return fmt.Errorf("%w: username is empty", common.ErrValidation)
	}
	if strings.TrimSpace(userName) != userName {
		return fmt.Errorf("%w: username has leading or trailing spaces", common.ErrValidation)
	}
	if utf8.RuneCountInString(userName) > common.MaxUserNameLength {
		return fmt.Errorf("%w: username longer than %d characters", common.ErrValidation, common.MaxUserNameLength)
	}
	return nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is empty", common.ErrValidation)
	}
	return nil
}
