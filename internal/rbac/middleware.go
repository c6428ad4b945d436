package rbac

import (
	"log/slog"
	"net/http"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Middleware guards routes by the role recorded in the session at
// login time. A role change takes effect on the next login.
type Middleware struct {
	Logger *slog.Logger
}

func NewMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return Middleware{Logger: logger}
}

// RequireAuthenticated rejects requests without a logged-in user.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				shared.RespondError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests whose session role is not in the
// allowed set.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				shared.RespondError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
				return
			}
			if _, ok := allowed[sess.Role()]; !ok {
				m.Logger.Warn("role denied",
					slog.String("path", r.URL.Path),
					slog.String("role", sess.Role()),
				)
				shared.RespondError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
