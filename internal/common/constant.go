package common

const (
	// DefaultAdminUserName is the account seeded on a fresh database.
	DefaultAdminUserName = "ChipLogic"

	// PasswordSaltKeyName is the app_keys row holding the shared salt.
	PasswordSaltKeyName = "PasswordSalt"

	// MaxUserNameLength matches the users.username column width.
	MaxUserNameLength = 50
)
