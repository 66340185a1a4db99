// Package domain holds the session value carried by the client and the
// server-side refresh token record that backs it.
package domain

import "time"

// Error markers placed on a session that can no longer be used.
const (
	// ErrorRefreshAccessToken marks a session whose refresh token could not be rotated.
	ErrorRefreshAccessToken = "RefreshAccessTokenError"
	// ErrorInvalidAccessToken marks a session whose access token failed signature verification.
	ErrorInvalidAccessToken = "JsonWebTokenError"
)

// Session is the client-held pairing of an access token and a refresh token reference.
// It lives inside the signed session cookie; the server keeps only the refresh token record.
type Session struct {
	UserID          string
	AccessToken     string
	AccessExpiresAt time.Time
	// RefreshTokenID identifies the server-side refresh token record.
	RefreshTokenID string
	// RefreshToken is the raw refresh secret; only its salted hash is stored server-side.
	RefreshToken string
	// Error is empty for a usable session, otherwise one of the Error* markers.
	Error string
}

// Authenticated reports whether s carries a user and no error marker.
func (s Session) Authenticated() bool {
	return s.UserID != "" && s.AccessToken != "" && s.Error == ""
}

// AccessExpired reports whether the access token is at or past its expiry at now.
func (s Session) AccessExpired(now time.Time) bool {
	return !now.Before(s.AccessExpiresAt)
}

// Invalidated returns a copy of s with every token removed and marker set.
// The user id is kept so sign-out can still revoke that user's refresh tokens.
func (s Session) Invalidated(marker string) Session {
	return Session{UserID: s.UserID, Error: marker}
}
