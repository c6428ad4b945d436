package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-dms/meridian-dms/internal/rbac"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(rbac.RoleAdmin, rbac.RoleWarehouseManager))
		r.Get("/sales-reps", h.handleListSalesReps)
	})
}

type salesRepJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) handleListSalesReps(w http.ResponseWriter, r *http.Request) {
	reps, err := h.service.ListSalesReps(r.Context())
	if err != nil {
		h.logger.Error("list sales reps", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "could not load sales reps")
		return
	}
	out := make([]salesRepJSON, 0, len(reps))
	for _, rep := range reps {
		out = append(out, salesRepJSON{ID: rep.ID, Name: rep.Name, Email: rep.Email, IsActive: rep.IsActive})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"sales_reps": out})
}
