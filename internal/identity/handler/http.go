// Package handler exposes registration, sign-in and sign-out over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"piiwatch/internal/identity/service"
	"piiwatch/internal/logging"
	"piiwatch/internal/response"
	"piiwatch/internal/server/middleware"
	sessiondomain "piiwatch/internal/session/domain"
	sessionhandler "piiwatch/internal/session/handler"
	userdomain "piiwatch/internal/user/domain"
)

const maxBodyBytes = 1 << 20

// AuthService is the part of the auth service the handlers call.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*userdomain.User, error)
	SignIn(ctx context.Context, cred service.Credential) (sessiondomain.Session, error)
	SignOutSession(ctx context.Context, sess sessiondomain.Session) (int64, error)
}

// SessionStore persists the session cookie.
type SessionStore interface {
	Peek(r *http.Request) (sessiondomain.Session, bool)
	Write(w http.ResponseWriter, sess sessiondomain.Session) error
	Clear(w http.ResponseWriter)
}

// AuthHandler serves /api/auth/register, /api/auth/signin and /api/auth/signout.
type AuthHandler struct {
	auth     AuthService
	sessions SessionStore
	logger   logging.Logger
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(auth AuthService, sessions SessionStore, logger logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AuthHandler{auth: auth, sessions: sessions, logger: logger}
}

// Routes registers the handler's endpoints on mux.
func (h *AuthHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/signin", h.SignIn)
	mux.HandleFunc("POST /api/auth/signout", h.SignOut)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registeredUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register creates a password account: 201, 400 (field errors), 409 (email taken) or 500.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	user, err := h.auth.Register(r.Context(), service.RegisterInput{Name: in.Name, Email: in.Email, Password: in.Password})
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			response.WriteJSON(w, http.StatusBadRequest, map[string]any{"errors": verr.Fields})
		case errors.Is(err, service.ErrDuplicateAccount):
			response.WriteErr(w, http.StatusConflict, "User with this email already exists")
		default:
			h.logger.Error(r.Context(), "register failed", "error", err)
			response.WriteErr(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	response.WriteJSON(w, http.StatusCreated, map[string]any{
		"user":    registeredUser{Name: user.Name, Email: user.Email},
		"message": "User registered successfully",
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn verifies email and password, mints a fresh token pair and sets the session cookie.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		response.WriteErr(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if in.Email == "" || in.Password == "" {
		response.WriteErr(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	sess, err := h.auth.SignIn(r.Context(), service.PasswordLogin{
		Email:    in.Email,
		Password: in.Password,
		ClientIP: middleware.ClientIP(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.WriteErr(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrRateLimited):
			response.WriteErr(w, http.StatusTooManyRequests, "Too many sign-in attempts, try again later")
		default:
			h.logger.Error(r.Context(), "sign in failed", "error", err)
			response.WriteErr(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	if err := h.sessions.Write(w, sess); err != nil {
		h.logger.Error(r.Context(), "sign in: write session cookie", "error", err)
		response.WriteErr(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	response.WriteJSON(w, http.StatusOK, sessionhandler.Body(sess))
}

// SignOut clears the cookie and, when it still names a live refresh token, revokes
// every refresh token of its user.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Peek(r)
	h.sessions.Clear(w)
	if ok && sess.UserID != "" {
		if _, err := h.auth.SignOutSession(r.Context(), sess); err != nil {
			h.logger.Error(r.Context(), "sign out: revoke refresh tokens", "user_id", sess.UserID, "error", err)
			response.WriteErr(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}
