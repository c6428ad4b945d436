package vanstock

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

// Handler wires HTTP endpoints for the vanstock module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler constructs the vanstock handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		rbac:      rbac,
	}
}

// MountRoutes registers vanstock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(rbac.RoleAdmin, rbac.RoleWarehouseManager))
		r.Post("/adjustments", h.handleCreate)
		r.Get("/adjustments/recent", h.handleRecent)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Post("/adjustments/{id}/confirm", h.handleConfirm)
		r.Get("/adjustments/pending", h.handlePending)
		r.Get("/adjustments/{id}", h.handleStatus)
		r.Get("/balances", h.handleBalances)
	})
}

type createForm struct {
	SalesRepID int64  `validate:"required,gt=0"`
	ProductID  int64  `validate:"required,gt=0"`
	DeltaQty   int64  `validate:"required"`
	Reason     string `validate:"required"`
	Note       string `validate:"max=500"`
	ClientRef  string `validate:"max=100"`
}

type createResponse struct {
	RequestID     string    `json:"request_id"`
	InitiatorCode string    `json:"initiator_code"`
	SalesRepCode  string    `json:"sales_rep_code"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "malformed form")
		return
	}
	actorID, role, ok := currentActor(r)
	if !ok {
		shared.RespondError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
		return
	}
	form := createForm{
		SalesRepID: parseInt(r.PostFormValue("sales_rep_id")),
		ProductID:  parseInt(r.PostFormValue("product_id")),
		DeltaQty:   parseInt(r.PostFormValue("delta_qty")),
		Reason:     r.PostFormValue("reason"),
		Note:       r.PostFormValue("note"),
		ClientRef:  r.PostFormValue("client_ref"),
	}
	if err := h.validator.Struct(form); err != nil {
		shared.RespondError(w, http.StatusUnprocessableEntity, "invalid adjustment input")
		return
	}

	result, err := h.service.CreateAdjustment(r.Context(), CreateAdjustmentInput{
		InitiatorID:   actorID,
		InitiatorRole: InitiatorRole(role),
		SalesRepID:    form.SalesRepID,
		ProductID:     form.ProductID,
		DeltaQty:      form.DeltaQty,
		Reason:        Reason(form.Reason),
		Note:          form.Note,
		ClientRef:     form.ClientRef,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrZeroDelta),
			errors.Is(err, ErrUnknownReason),
			errors.Is(err, ErrInvalidRole),
			errors.Is(err, ErrInactiveProduct),
			errors.Is(err, ErrInactiveSalesRep):
			shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, shared.ErrIdempotencyConflict):
			shared.RespondError(w, http.StatusConflict, "adjustment already submitted")
		default:
			h.logger.Error("create adjustment", slog.Any("error", err))
			shared.RespondError(w, http.StatusInternalServerError, "could not create adjustment")
		}
		return
	}

	shared.RespondJSON(w, http.StatusCreated, createResponse{
		RequestID:     result.RequestID,
		InitiatorCode: result.InitiatorCode,
		SalesRepCode:  result.SalesRepCode,
		ExpiresAt:     result.ExpiresAt,
	})
}

type confirmResponse struct {
	OK        bool `json:"ok"`
	Completed bool `json:"completed"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "malformed form")
		return
	}
	actorID, role, ok := currentActor(r)
	if !ok {
		shared.RespondError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
		return
	}
	requestID := chi.URLParam(r, "id")
	code := r.PostFormValue("code")

	result, err := h.service.Confirm(r.Context(), requestID, actorID, partyForRole(role), code)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredCode) {
			shared.RespondError(w, http.StatusUnprocessableEntity, "invalid or expired code")
			return
		}
		h.logger.Error("confirm adjustment", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "confirmation could not be processed")
		return
	}
	shared.RespondJSON(w, http.StatusOK, confirmResponse{OK: true, Completed: result.Completed})
}

type requestSummaryJSON struct {
	ID            string    `json:"id"`
	InitiatorID   int64     `json:"initiator_id"`
	InitiatorRole string    `json:"initiator_role"`
	SalesRepID    int64     `json:"sales_rep_id"`
	ProductID     int64     `json:"product_id"`
	DeltaQty      int64     `json:"delta_qty"`
	Reason        string    `json:"reason"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type inboxResponse struct {
	AwaitingYou   []requestSummaryJSON `json:"awaiting_you"`
	AwaitingOther []requestSummaryJSON `json:"awaiting_other"`
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := currentActor(r)
	if !ok {
		shared.RespondError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
		return
	}
	inbox, err := h.service.PendingFor(r.Context(), actorID, partyForRole(role))
	if err != nil {
		h.logger.Error("pending adjustments", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "could not load pending adjustments")
		return
	}
	shared.RespondJSON(w, http.StatusOK, inboxResponse{
		AwaitingYou:   summariesJSON(inbox.AwaitingYou),
		AwaitingOther: summariesJSON(inbox.AwaitingOther),
	})
}

type statusResponse struct {
	ID                 string    `json:"id"`
	State              string    `json:"state"`
	InitiatorConfirmed bool      `json:"initiator_confirmed"`
	SalesRepConfirmed  bool      `json:"sales_rep_confirmed"`
	ExpiresAt          time.Time `json:"expires_at"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := currentActor(r)
	if !ok {
		shared.RespondError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
		return
	}
	status, err := h.service.StatusFor(r.Context(), chi.URLParam(r, "id"), actorID, partyForRole(role))
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			shared.RespondError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
			return
		}
		h.logger.Error("adjustment status", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "could not load adjustment")
		return
	}
	shared.RespondJSON(w, http.StatusOK, statusResponse{
		ID:                 status.ID,
		State:              status.State,
		InitiatorConfirmed: status.InitiatorConfirmed,
		SalesRepConfirmed:  status.SalesRepConfirmed,
		ExpiresAt:          status.ExpiresAt,
	})
}

type auditEntryJSON struct {
	ID            string    `json:"id"`
	InitiatorID   int64     `json:"initiator_id"`
	InitiatorRole string    `json:"initiator_role"`
	SalesRepID    int64     `json:"sales_rep_id"`
	ProductID     int64     `json:"product_id"`
	DeltaQty      int64     `json:"delta_qty"`
	Reason        string    `json:"reason"`
	Outcome       string    `json:"outcome"`
	FailureReason string    `json:"failure_reason,omitempty"`
	FinishedAt    time.Time `json:"finished_at"`
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := int(parseInt(r.URL.Query().Get("limit")))
	entries, err := h.service.RecentCompleted(r.Context(), limit)
	if err != nil {
		h.logger.Error("recent adjustments", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "could not load recent adjustments")
		return
	}
	out := make([]auditEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryJSON{
			ID:            e.ID,
			InitiatorID:   e.InitiatorID,
			InitiatorRole: string(e.InitiatorRole),
			SalesRepID:    e.SalesRepID,
			ProductID:     e.ProductID,
			DeltaQty:      e.DeltaQty,
			Reason:        string(e.Reason),
			Outcome:       e.Outcome,
			FailureReason: e.FailureReason,
			FinishedAt:    e.FinishedAt,
		})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"entries": out})
}

type balanceJSON struct {
	SalesRepID int64     `json:"sales_rep_id"`
	ProductID  int64     `json:"product_id"`
	Qty        int64     `json:"qty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := currentActor(r)
	if !ok {
		shared.RespondError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
		return
	}
	repID := parseInt(r.URL.Query().Get("sales_rep_id"))
	// Reps only ever see their own van.
	if role == rbac.RoleSalesRep {
		repID = actorID
	}
	if repID <= 0 {
		shared.RespondError(w, http.StatusBadRequest, "sales_rep_id required")
		return
	}
	balances, err := h.service.BalancesForRep(r.Context(), repID)
	if err != nil {
		h.logger.Error("van balances", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "could not load balances")
		return
	}
	out := make([]balanceJSON, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceJSON{SalesRepID: b.SalesRepID, ProductID: b.ProductID, Qty: b.Qty, UpdatedAt: b.UpdatedAt})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"balances": out})
}

func summariesJSON(summaries []RequestSummary) []requestSummaryJSON {
	out := make([]requestSummaryJSON, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, requestSummaryJSON{
			ID:            s.ID,
			InitiatorID:   s.InitiatorID,
			InitiatorRole: string(s.InitiatorRole),
			SalesRepID:    s.SalesRepID,
			ProductID:     s.ProductID,
			DeltaQty:      s.DeltaQty,
			Reason:        string(s.Reason),
			Note:          s.Note,
			CreatedAt:     s.CreatedAt,
			ExpiresAt:     s.ExpiresAt,
		})
	}
	return out
}

func partyForRole(role string) Party {
	if role == rbac.RoleSalesRep {
		return PartySalesRep
	}
	return PartyInitiator
}

func currentActor(r *http.Request) (int64, string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, sess.Role(), true
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
