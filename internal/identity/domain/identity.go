package domain

import "time"

// Identity links a user to an account at an external identity provider.
type Identity struct {
	ID                string
	UserID            string
	Provider          Provider
	ProviderAccountID string
	CreatedAt         time.Time
}

// Provider names an external identity provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGitHub, ProviderGoogle:
		return true
	default:
		return false
	}
}
