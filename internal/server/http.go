package server

import (
	"net/http"

	audithandler "piiwatch/internal/audit/handler"
	identityhandler "piiwatch/internal/identity/handler"
	"piiwatch/internal/logging"
	"piiwatch/internal/server/middleware"
	sessionhandler "piiwatch/internal/session/handler"
	userhandler "piiwatch/internal/user/handler"
)

// HTTPDeps holds the HTTP surface's collaborators. All fields except Logger are required.
type HTTPDeps struct {
	Auth     identityhandler.AuthService
	Sessions SessionStore
	Users    userhandler.UserGetter
	Activity audithandler.Lister
	Routes   middleware.PublicRoutes
	Logger   logging.Logger
}

// SessionStore is the cookie-backed session store shared by the auth endpoints,
// the session endpoint and the route guard.
type SessionStore interface {
	identityhandler.SessionStore
	sessionhandler.SessionReader
}

// NewHTTPHandler builds the HTTP handler.
//
// Route → handler mapping:
//   - POST /api/auth/register, /api/auth/signin, /api/auth/signout → internal/identity/handler
//   - GET  /api/auth/session                                         → internal/session/handler
//   - GET  /api/profile                                              → internal/user/handler
//   - GET  /api/activity                                             → internal/audit/handler
//
// Every request passes ClientIPMiddleware, RequestLogger and RouteGuard, in that order.
func NewHTTPHandler(deps HTTPDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	mux := http.NewServeMux()
	identityhandler.NewAuthHandler(deps.Auth, deps.Sessions, logger).Routes(mux)
	sessionhandler.NewSessionHandler(deps.Sessions).Routes(mux)
	userhandler.NewProfileHandler(deps.Users, logger).Routes(mux)
	audithandler.NewActivityHandler(deps.Activity, logger).Routes(mux)

	var h http.Handler = mux
	h = middleware.RouteGuard(deps.Routes, deps.Sessions, logger)(h)
	h = middleware.RequestLogger(logger)(h)
	h = middleware.ClientIPMiddleware(h)
	return h
}
