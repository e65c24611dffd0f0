// Package common defines shared constants and sentinel errors used across
// the ChipLogic station packages. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Configuration errors.
	ErrConfigurationInvalid = errors.New("configuration invalid")

	// Store-level errors.
	ErrConnectionFailure    = errors.New("connection failure")
	ErrCredentialStoreFault = errors.New("credential store fault")
	ErrSchemaMigrationFault = errors.New("schema migration fault")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// User management errors.
	ErrDuplicateUser = errors.New("duplicate user")
	ErrValidation    = errors.New("validation error")

	// Login errors. The message is deliberately generic so it does not
	// reveal whether the username exists.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotLoggedIn          = errors.New("not logged in")
	ErrPermissionDenied     = errors.New("permission denied")
)
