package domain

import "time"

// Auth event types exported to the log pipeline and persisted as audit actions.
const (
	EventRegister              = "register"
	EventSignInSuccess         = "signin_success"
	EventSignInFailure         = "signin_failure"
	EventSessionRotated        = "session_rotated"
	EventSessionRotationFailed = "session_rotation_failed"
	EventSignOut               = "signout"
)

// Event is a single auth lifecycle event. UserID may be empty (e.g. failed sign-in for an unknown email).
type Event struct {
	Type      string
	UserID    string
	Resource  string
	ClientIP  string
	Metadata  []byte // JSON
	CreatedAt time.Time
}
