package service

import (
	"errors"
	"strings"
)

// Sentinel errors for the auth service; handlers map them to HTTP statuses.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrDuplicateAccount     = errors.New("user with this email already exists")
	ErrTokenRotationFailure = errors.New("refresh token rotation failed")
	ErrInvalidSession       = errors.New("session access token is invalid")
	ErrConfiguration        = errors.New("token signing is misconfigured")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrRateLimited          = errors.New("too many sign-in attempts")
	ErrUnsupportedProvider  = errors.New("unsupported identity provider")
	ErrUnverifiedEmail      = errors.New("provider email is not verified")
)

// Causes wrapped inside ErrTokenRotationFailure.
var (
	errRefreshNotFound = errors.New("refresh token not found")
	errRefreshMismatch = errors.New("refresh token does not match")
	errRefreshRevoked  = errors.New("refresh token revoked")
	errRefreshExpired  = errors.New("refresh token expired")
	errRefreshReused   = errors.New("refresh token already rotated")
)

// FieldError is one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid registration field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}
