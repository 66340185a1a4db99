// Package handler serves the session read endpoint.
package handler

import (
	"net/http"
	"time"

	"piiwatch/internal/response"
	"piiwatch/internal/session/domain"
)

// SessionReader resolves and refreshes the request's session.
type SessionReader interface {
	Read(w http.ResponseWriter, r *http.Request) (domain.Session, bool)
}

// SessionHandler serves GET /api/auth/session.
type SessionHandler struct {
	sessions SessionReader
}

// NewSessionHandler returns a SessionHandler.
func NewSessionHandler(sessions SessionReader) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Routes registers the handler's endpoints on mux.
func (h *SessionHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/session", h.Get)
}

// Get returns the current session, rotating it when the access token has expired.
// A stripped session is reported through its error marker; no session yields {}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Read(w, r)
	response.WriteJSON(w, http.StatusOK, Body(sess))
}

type sessionUser struct {
	ID string `json:"id"`
}

// Body is the JSON view of a session. Tokens stay in the cookie.
func Body(sess domain.Session) map[string]any {
	if sess.Error != "" {
		return map[string]any{"error": sess.Error}
	}
	if !sess.Authenticated() {
		return map[string]any{}
	}
	return map[string]any{
		"user":    sessionUser{ID: sess.UserID},
		"expires": sess.AccessExpiresAt.UTC().Format(time.RFC3339),
	}
}
