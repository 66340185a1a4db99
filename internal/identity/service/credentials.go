package service

import (
	identitydomain "piiwatch/internal/identity/domain"
)

// Credential is proof of identity that resolves to a user id. The set of
// implementations is closed: PasswordLogin and ProviderLogin.
type Credential interface {
	credential()
}

// PasswordLogin signs in with an email and password.
type PasswordLogin struct {
	Email    string
	Password string
	// ClientIP feeds login throttling; may be empty.
	ClientIP string
}

// ProviderLogin signs in with an account at an external identity provider,
// after the provider callback has been verified.
type ProviderLogin struct {
	Provider          identitydomain.Provider
	ProviderAccountID string
	Email             string
	Name              string
	// EmailVerified must be true for the login to attach to an existing account with the same email.
	EmailVerified bool
}

func (PasswordLogin) credential() {}
func (ProviderLogin) credential() {}
