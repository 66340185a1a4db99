// Package handler serves the signed-in user's profile.
package handler

import (
	"context"
	"net/http"

	"piiwatch/internal/logging"
	"piiwatch/internal/response"
	"piiwatch/internal/server/middleware"
	"piiwatch/internal/user/domain"
)

// UserGetter loads a user by id. Returns nil, nil when the user does not exist.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ProfileHandler serves GET /api/profile. It sits behind the route guard.
type ProfileHandler struct {
	users  UserGetter
	logger logging.Logger
}

// NewProfileHandler returns a ProfileHandler.
func NewProfileHandler(users UserGetter, logger logging.Logger) *ProfileHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ProfileHandler{users: users, logger: logger}
}

// Routes registers the handler's endpoints on mux.
func (h *ProfileHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/profile", h.Get)
}

type profileUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Get returns the current user. Password hashes never leave the store.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Error(r.Context(), "profile: look up user", "user_id", userID, "error", err)
		response.WriteErr(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if u == nil {
		response.WriteErr(w, http.StatusNotFound, "User not found")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"user": profileUser{ID: u.ID, Name: u.Name, Email: u.Email},
	})
}
