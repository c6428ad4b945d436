package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-dms/meridian-dms/internal/rbac"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/products", h.handleList)
		r.Get("/products/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(rbac.RoleAdmin))
		r.Post("/products", h.handleCreate)
		r.Post("/products/{id}/active", h.handleSetActive)
	})
}

type productJSON struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toProductJSON(p Product) productJSON {
	return productJSON{ID: p.ID, SKU: p.SKU, Name: p.Name, Unit: p.Unit, IsActive: p.IsActive, CreatedAt: p.CreatedAt}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	products, err := h.service.List(r.Context(), q.Get("q"), shared.NewPagination(page, perPage, 0))
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "could not load products")
		return
	}
	out := make([]productJSON, 0, len(products))
	for _, p := range products {
		out = append(out, toProductJSON(p))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			shared.RespondError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
			return
		}
		h.logger.Error("get product", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "could not load product")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toProductJSON(product))
}

type createProductForm struct {
	SKU  string `validate:"required,max=64"`
	Name string `validate:"required,max=200"`
	Unit string `validate:"max=20"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "malformed form")
		return
	}
	form := createProductForm{
		SKU:  r.PostFormValue("sku"),
		Name: r.PostFormValue("name"),
		Unit: r.PostFormValue("unit"),
	}
	if err := h.validator.Struct(form); err != nil {
		shared.RespondError(w, http.StatusUnprocessableEntity, "invalid product input")
		return
	}
	id, err := h.service.CreateProduct(r.Context(), CreateProductInput(form))
	if err != nil {
		switch {
		case errors.Is(err, ErrSKUTaken):
			shared.RespondError(w, http.StatusConflict, "sku already registered")
		case errors.Is(err, ErrEmptySKU), errors.Is(err, ErrEmptyName):
			shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("create product", slog.Any("error", err))
			shared.RespondError(w, http.StatusInternalServerError, "could not create product")
		}
		return
	}
	shared.RespondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "malformed form")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	active := r.PostFormValue("active") == "true"
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			shared.RespondError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
			return
		}
		h.logger.Error("set product active", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "could not update product")
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"ok": true})
}
