package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-dms/meridian-dms/internal/auth"
	"github.com/meridian-dms/meridian-dms/internal/catalog"
	"github.com/meridian-dms/meridian-dms/internal/observability"
	"github.com/meridian-dms/meridian-dms/internal/shared"
	"github.com/meridian-dms/meridian-dms/internal/users"
	"github.com/meridian-dms/meridian-dms/internal/vanstock"
)

// RouterParams collects everything the HTTP router needs.
type RouterParams struct {
	Config   *Config
	Logger   *slog.Logger
	Sessions *shared.SessionManager
	CSRF     *shared.CSRFManager
	Metrics  *observability.Metrics

	Auth     *auth.Handler
	Vanstock *vanstock.Handler
	Catalog  *catalog.Handler
	Users    *users.Handler
}

// NewRouter assembles the middleware stack and mounts all modules.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(p.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(p.Config.AppRequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SecureHeaders(!p.Config.IsProduction()))
	r.Use(RateLimiter())
	if p.Metrics != nil {
		r.Use(p.Metrics.Middleware)
	}
	r.Use(SessionMiddleware(p.Logger, p.Sessions))
	r.Use(CSRFMiddleware(p.Logger, p.CSRF))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		shared.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/auth", p.Auth.MountRoutes)
	r.Route("/vanstock", p.Vanstock.MountRoutes)
	r.Route("/catalog", p.Catalog.MountRoutes)
	r.Route("/users", p.Users.MountRoutes)

	return r
}
