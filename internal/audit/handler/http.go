// Package handler serves the signed-in user's recent account activity from the audit log.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"piiwatch/internal/audit/domain"
	"piiwatch/internal/logging"
	"piiwatch/internal/response"
	"piiwatch/internal/server/middleware"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Lister loads a user's audit entries, newest first.
type Lister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error)
}

// ActivityHandler serves GET /api/activity. It sits behind the route guard.
type ActivityHandler struct {
	logs   Lister
	logger logging.Logger
}

// NewActivityHandler returns an ActivityHandler.
func NewActivityHandler(logs Lister, logger logging.Logger) *ActivityHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ActivityHandler{logs: logs, logger: logger}
}

// Routes registers the handler's endpoints on mux.
func (h *ActivityHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/activity", h.List)
}

type activityEntry struct {
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	IP        string `json:"ip"`
	CreatedAt string `json:"createdAt"`
}

// List returns up to ?limit entries (default 20, max 100) for the current user.
// Metadata is not exposed.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.WriteErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			response.WriteErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}

	logs, err := h.logs.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error(r.Context(), "activity: list audit logs", "user_id", userID, "error", err)
		response.WriteErr(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	entries := make([]activityEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, activityEntry{
			Action:    l.Action,
			Resource:  l.Resource,
			IP:        l.IP,
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"activity": entries})
}
