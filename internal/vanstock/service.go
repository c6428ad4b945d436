package vanstock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// DefaultWindow is how long both parties have to confirm a request.
const DefaultWindow = 15 * time.Minute

// RepositoryPort abstracts the persistence layer for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateRequest(ctx context.Context, req AdjustmentRequest) error
	GetRequest(ctx context.Context, id string) (AdjustmentRequest, error)
	PendingForSalesRep(ctx context.Context, salesRepID int64, now time.Time) ([]AdjustmentRequest, error)
	PendingForInitiator(ctx context.Context, initiatorID int64, now time.Time) ([]AdjustmentRequest, error)
	RecentTerminal(ctx context.Context, limit int) ([]AdjustmentRequest, error)
	Balance(ctx context.Context, salesRepID, productID int64) (VanBalance, error)
	BalancesForRep(ctx context.Context, salesRepID int64) ([]VanBalance, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ProductDirectory resolves product existence and active state.
type ProductDirectory interface {
	ProductActive(ctx context.Context, productID int64) (bool, error)
}

// RepDirectory resolves sales rep existence and active state.
type RepDirectory interface {
	SalesRepActive(ctx context.Context, salesRepID int64) (bool, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the adjustment request lifecycle: creation, the
// dual confirmation protocol, and the atomic ledger application.
type Service struct {
	repo        RepositoryPort
	products    ProductDirectory
	reps        RepDirectory
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	metrics     *Metrics
	issuer      *CodeIssuer
	window      time.Duration
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// Window overrides the confirmation window; zero means DefaultWindow.
	Window time.Duration
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductDirectory, reps RepDirectory, audit AuditPort, idem *shared.IdempotencyStore, metrics *Metrics, cfg ServiceConfig) *Service {
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		repo:        repo,
		products:    products,
		reps:        reps,
		audit:       audit,
		idempotency: idem,
		metrics:     metrics,
		issuer:      NewCodeIssuer(),
		window:      window,
		now:         time.Now,
	}
}

// CreateAdjustment validates the input, issues a code pair and persists a
// pending request. The plaintext codes appear only in the return value.
func (s *Service) CreateAdjustment(ctx context.Context, input CreateAdjustmentInput) (CreateAdjustmentResult, error) {
	if !input.InitiatorRole.Valid() {
		return CreateAdjustmentResult{}, ErrInvalidRole
	}
	if input.DeltaQty == 0 {
		return CreateAdjustmentResult{}, ErrZeroDelta
	}
	if !input.Reason.Valid() {
		return CreateAdjustmentResult{}, ErrUnknownReason
	}
	active, err := s.products.ProductActive(ctx, input.ProductID)
	if err != nil {
		return CreateAdjustmentResult{}, err
	}
	if !active {
		return CreateAdjustmentResult{}, ErrInactiveProduct
	}
	active, err = s.reps.SalesRepActive(ctx, input.SalesRepID)
	if err != nil {
		return CreateAdjustmentResult{}, err
	}
	if !active {
		return CreateAdjustmentResult{}, ErrInactiveSalesRep
	}

	insertedKey := false
	key := ""
	if s.idempotency != nil && input.ClientRef != "" {
		key = fmt.Sprintf("adjustment:%d:%s", input.InitiatorID, input.ClientRef)
		if err := s.idempotency.CheckAndInsert(ctx, key, "vanstock"); err != nil {
			return CreateAdjustmentResult{}, err
		}
		insertedKey = true
	}

	pair, err := s.issuer.IssuePair()
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return CreateAdjustmentResult{}, err
	}

	now := s.now().UTC()
	req := AdjustmentRequest{
		ID:                uuid.NewString(),
		InitiatorID:       input.InitiatorID,
		InitiatorRole:     input.InitiatorRole,
		SalesRepID:        input.SalesRepID,
		ProductID:         input.ProductID,
		DeltaQty:          input.DeltaQty,
		Reason:            input.Reason,
		Note:              input.Note,
		InitiatorCodeHash: pair.InitiatorCodeHash,
		SalesRepCodeHash:  pair.SalesRepCodeHash,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.window),
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return CreateAdjustmentResult{}, err
	}

	s.metrics.requestCreated()
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.InitiatorID,
			Action:   "vanstock:request_created",
			Entity:   "adjustment_request",
			EntityID: req.ID,
			Meta: map[string]any{
				"sales_rep_id": input.SalesRepID,
				"product_id":   input.ProductID,
				"delta_qty":    input.DeltaQty,
				"reason":       string(input.Reason),
			},
		})
	}

	return CreateAdjustmentResult{
		RequestID:     req.ID,
		InitiatorCode: pair.InitiatorCode,
		SalesRepCode:  pair.SalesRepCode,
		ExpiresAt:     req.ExpiresAt,
	}, nil
}

// Confirm records one party's confirmation. When it is the second one,
// the ledger application and the terminal state write happen inside the
// same transaction; the conditional Mark* writes ensure the apply step
// runs at most once per request no matter how attempts interleave.
//
// Every rejection surfaces as ErrInvalidOrExpiredCode so callers learn
// nothing about which precondition failed.
func (s *Service) Confirm(ctx context.Context, requestID string, actorID int64, party Party, code string) (ConfirmResult, error) {
	if party != PartyInitiator && party != PartySalesRep {
		return ConfirmResult{}, ErrInvalidOrExpiredCode
	}
	if requestID == "" || code == "" {
		s.metrics.confirmRejectedInc()
		return ConfirmResult{}, ErrInvalidOrExpiredCode
	}

	var (
		res         ConfirmResult
		applied     AdjustmentRequest
		applyFailed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, ErrRequestNotFound) {
				return ErrInvalidOrExpiredCode
			}
			return err
		}
		now := s.now().UTC()
		if !req.PartyOf(actorID, party) {
			return ErrInvalidOrExpiredCode
		}
		if req.Expired(now) {
			return ErrInvalidOrExpiredCode
		}
		if !VerifyCode(req.CodeHash(party), code) {
			return ErrInvalidOrExpiredCode
		}
		if req.ConfirmedAt(party) != nil {
			// Replay of an accepted confirmation: a retried client
			// request stays safe and idempotent.
			res.Completed = req.CompletedAt != nil
			return nil
		}
		if req.Terminal() {
			return ErrInvalidOrExpiredCode
		}
		if err := tx.SetConfirmed(ctx, req.ID, party, now); err != nil {
			return err
		}

		other := PartySalesRep
		if party == PartySalesRep {
			other = PartyInitiator
		}
		if req.ConfirmedAt(other) == nil {
			return nil
		}

		// Second confirmation: apply under the pair's balance lock.
		current, err := tx.BalanceForUpdate(ctx, req.SalesRepID, req.ProductID)
		if err != nil {
			return err
		}
		if req.DeltaQty < 0 && current+req.DeltaQty < 0 {
			won, err := tx.MarkFailed(ctx, req.ID, now, FailureInsufficientStock)
			if err != nil {
				return err
			}
			if won {
				applyFailed = true
				applied = req
			}
			return nil
		}
		won, err := tx.MarkCompleted(ctx, req.ID, now)
		if err != nil {
			return err
		}
		if !won {
			// Another attempt finished the request first; nothing to apply.
			return nil
		}
		if err := tx.AppendLedgerEntry(ctx, LedgerEntry{
			SalesRepID:      req.SalesRepID,
			ProductID:       req.ProductID,
			DeltaQty:        req.DeltaQty,
			Reason:          req.Reason,
			Note:            req.Note,
			SourceRequestID: req.ID,
			CreatedAt:       now,
		}); err != nil {
			return err
		}
		if err := tx.AddToBalance(ctx, req.SalesRepID, req.ProductID, req.DeltaQty, now); err != nil {
			return err
		}
		res.Completed = true
		applied = req
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredCode) {
			s.metrics.confirmRejectedInc()
		}
		return ConfirmResult{}, err
	}

	if res.Completed {
		s.metrics.requestCompleted()
	}
	if applyFailed {
		s.metrics.requestFailed()
	}
	if s.audit != nil && (res.Completed || applyFailed) {
		action := "vanstock:request_completed"
		if applyFailed {
			action = "vanstock:request_failed"
		}
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "adjustment_request",
			EntityID: applied.ID,
			Meta: map[string]any{
				"sales_rep_id": applied.SalesRepID,
				"product_id":   applied.ProductID,
				"delta_qty":    applied.DeltaQty,
				"reason":       string(applied.Reason),
			},
		})
	}
	return res, nil
}

// PendingFor returns the actor's inbox, oldest first: requests awaiting
// the actor's own confirmation and requests awaiting the other party.
func (s *Service) PendingFor(ctx context.Context, actorID int64, party Party) (Inbox, error) {
	now := s.now().UTC()
	var (
		requests []AdjustmentRequest
		err      error
	)
	switch party {
	case PartySalesRep:
		requests, err = s.repo.PendingForSalesRep(ctx, actorID, now)
	case PartyInitiator:
		requests, err = s.repo.PendingForInitiator(ctx, actorID, now)
	default:
		return Inbox{}, fmt.Errorf("vanstock: unknown party %q", party)
	}
	if err != nil {
		return Inbox{}, err
	}

	var inbox Inbox
	for _, req := range requests {
		summary := RequestSummary{
			ID:            req.ID,
			InitiatorID:   req.InitiatorID,
			InitiatorRole: req.InitiatorRole,
			SalesRepID:    req.SalesRepID,
			ProductID:     req.ProductID,
			DeltaQty:      req.DeltaQty,
			Reason:        req.Reason,
			Note:          req.Note,
			CreatedAt:     req.CreatedAt,
			ExpiresAt:     req.ExpiresAt,
		}
		if req.ConfirmedAt(party) == nil {
			inbox.AwaitingYou = append(inbox.AwaitingYou, summary)
		} else {
			inbox.AwaitingOther = append(inbox.AwaitingOther, summary)
		}
	}
	return inbox, nil
}

// RecentCompleted returns the latest terminal requests, newest first.
func (s *Service) RecentCompleted(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	requests, err := s.repo.RecentTerminal(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]AuditEntry, 0, len(requests))
	for _, req := range requests {
		entry := AuditEntry{
			ID:            req.ID,
			InitiatorID:   req.InitiatorID,
			InitiatorRole: req.InitiatorRole,
			SalesRepID:    req.SalesRepID,
			ProductID:     req.ProductID,
			DeltaQty:      req.DeltaQty,
			Reason:        req.Reason,
		}
		switch {
		case req.CompletedAt != nil:
			entry.Outcome = OutcomeCompleted
			entry.FinishedAt = *req.CompletedAt
		case req.FailedAt != nil:
			entry.Outcome = OutcomeFailed
			entry.FailureReason = req.FailureReason
			entry.FinishedAt = *req.FailedAt
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RequestState labels for RequestStatus.
const (
	StatePending   = "pending"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateExpired   = "expired"
)

// RequestStatus is the polling view a party sees for its own request.
type RequestStatus struct {
	ID                 string
	State              string
	InitiatorConfirmed bool
	SalesRepConfirmed  bool
	ExpiresAt          time.Time
}

// StatusFor returns the current state of a request to one of its
// parties. Anyone else gets ErrRequestNotFound.
func (s *Service) StatusFor(ctx context.Context, requestID string, actorID int64, party Party) (RequestStatus, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return RequestStatus{}, err
	}
	if !req.PartyOf(actorID, party) {
		return RequestStatus{}, ErrRequestNotFound
	}
	status := RequestStatus{
		ID:                 req.ID,
		State:              StatePending,
		InitiatorConfirmed: req.InitiatorConfirmedAt != nil,
		SalesRepConfirmed:  req.SalesRepConfirmedAt != nil,
		ExpiresAt:          req.ExpiresAt,
	}
	now := s.now().UTC()
	switch {
	case req.CompletedAt != nil:
		status.State = StateCompleted
	case req.FailedAt != nil:
		status.State = StateFailed
	case req.Expired(now):
		status.State = StateExpired
	}
	return status, nil
}

// Balance returns the current on-hand for one pair.
func (s *Service) Balance(ctx context.Context, salesRepID, productID int64) (VanBalance, error) {
	return s.repo.Balance(ctx, salesRepID, productID)
}

// BalancesForRep lists all balances attributed to one rep.
func (s *Service) BalancesForRep(ctx context.Context, salesRepID int64) ([]VanBalance, error) {
	return s.repo.BalancesForRep(ctx, salesRepID)
}

// SweepExpired removes expired requests whose window closed more than
// retention ago. Correctness never depends on this; it reclaims storage.
func (s *Service) SweepExpired(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 0 {
		retention = 0
	}
	return s.repo.DeleteExpiredBefore(ctx, s.now().UTC().Add(-retention))
}
