package middleware

import (
	"context"
	"net/http"
	"strings"

	"piiwatch/internal/logging"
	"piiwatch/internal/response"
	"piiwatch/internal/session/domain"
)

// SignInPath is where unauthenticated browser requests are redirected.
const SignInPath = "/sign-in"

// PublicRoutes decides whether a path bypasses the session check.
type PublicRoutes interface {
	IsPublic(ctx context.Context, path string) (bool, error)
}

// SessionReader resolves the request's session, refreshing it as needed.
type SessionReader interface {
	Read(w http.ResponseWriter, r *http.Request) (domain.Session, bool)
}

// RouteGuard lets public paths through untouched. Every other path needs an
// authenticated session: API paths get 401 JSON, pages are redirected to SignInPath.
// A policy evaluation error is treated as "not public".
func RouteGuard(routes PublicRoutes, sessions SessionReader, logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			public, err := routes.IsPublic(ctx, r.URL.Path)
			if err != nil {
				logger.Error(ctx, "route guard: policy evaluation failed", "path", r.URL.Path, "error", err)
			}
			if public {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := sessions.Read(w, r)
			if !ok {
				if strings.HasPrefix(r.URL.Path, "/api/") {
					response.WriteErr(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
				http.Redirect(w, r, SignInPath, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(ctx, sess.UserID)))
		})
	}
}
