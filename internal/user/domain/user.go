package domain

import (
	"errors"
	"time"
)

// User is the account that sessions are issued for.
type User struct {
	ID    string
	Name  string
	Email string
	// PasswordHash is the bcrypt hash; empty for accounts created through an identity provider.
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
