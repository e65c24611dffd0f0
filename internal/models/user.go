// Package models holds the credential store records.
package models

import "time"

type User struct {
	ID           string
	UserName     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}
