package domain

import "time"

// RefreshToken is the server-side record behind a session's refresh reference.
// TokenHash is a salted hash of the secret; the secret itself is never stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	// UpdatedAt is the last modification time; for revoked records it is the revocation time.
	UpdatedAt time.Time
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Stale reports whether the cleanup sweep should delete the record at now:
// it has expired, or it was revoked and last touched more than grace ago.
func (t *RefreshToken) Stale(now time.Time, grace time.Duration) bool {
	if !now.Before(t.ExpiresAt) {
		return true
	}
	return t.Revoked && t.UpdatedAt.Before(now.Add(-grace))
}
