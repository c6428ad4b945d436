package vanstock

import (
	"errors"
	"time"
)

// Reason enumerates why a van stock quantity changes.
type Reason string

const (
	// ReasonLoad records stock loaded onto the van from the warehouse.
	ReasonLoad Reason = "load"
	// ReasonReturn records stock returned from the van to the warehouse.
	ReasonReturn Reason = "return"
	// ReasonAdjustment records a manual correction.
	ReasonAdjustment Reason = "adjustment"
	// ReasonTransferIn records stock received from another rep.
	ReasonTransferIn Reason = "transfer_in"
	// ReasonTransferOut records stock handed to another rep.
	ReasonTransferOut Reason = "transfer_out"
)

// Valid reports whether the reason is one of the enumerated values.
func (r Reason) Valid() bool {
	switch r {
	case ReasonLoad, ReasonReturn, ReasonAdjustment, ReasonTransferIn, ReasonTransferOut:
		return true
	}
	return false
}

// Party identifies which side of a request is confirming.
type Party string

const (
	// PartyInitiator is the back office actor who created the request.
	PartyInitiator Party = "initiator"
	// PartySalesRep is the field representative whose stock is affected.
	PartySalesRep Party = "sales_rep"
)

// InitiatorRole enumerates roles allowed to create adjustment requests.
type InitiatorRole string

const (
	RoleAdmin            InitiatorRole = "admin"
	RoleWarehouseManager InitiatorRole = "warehouse_manager"
)

// Valid reports whether the role may initiate adjustments.
func (r InitiatorRole) Valid() bool {
	return r == RoleAdmin || r == RoleWarehouseManager
}

// FailureInsufficientStock is recorded when the apply step would drive
// the on-hand quantity below zero.
const FailureInsufficientStock = "insufficient stock"

var (
	// ErrZeroDelta rejects adjustments that would not change anything.
	ErrZeroDelta = errors.New("vanstock: delta quantity must be non-zero")
	// ErrUnknownReason rejects reasons outside the enumeration.
	ErrUnknownReason = errors.New("vanstock: unknown adjustment reason")
	// ErrInvalidRole rejects initiators outside admin/warehouse manager.
	ErrInvalidRole = errors.New("vanstock: initiator role may not create adjustments")
	// ErrInactiveProduct rejects adjustments against unknown or inactive products.
	ErrInactiveProduct = errors.New("vanstock: product not found or inactive")
	// ErrInactiveSalesRep rejects adjustments against unknown or inactive reps.
	ErrInactiveSalesRep = errors.New("vanstock: sales rep not found or inactive")

	// ErrInvalidOrExpiredCode is the single confirmation failure surfaced
	// to callers. It deliberately does not distinguish an unknown request,
	// an expired window, a terminal request, or a wrong code.
	ErrInvalidOrExpiredCode = errors.New("vanstock: invalid or expired code")

	// ErrRequestNotFound is internal to repositories; handlers and the
	// confirmation path translate it to ErrInvalidOrExpiredCode.
	ErrRequestNotFound = errors.New("vanstock: adjustment request not found")
)

// AdjustmentRequest is the dual-confirmation authorization record for a
// single van stock mutation.
type AdjustmentRequest struct {
	ID            string
	InitiatorID   int64
	InitiatorRole InitiatorRole
	SalesRepID    int64
	ProductID     int64
	DeltaQty      int64
	Reason        Reason
	Note          string

	InitiatorCodeHash string
	SalesRepCodeHash  string

	InitiatorConfirmedAt *time.Time
	SalesRepConfirmedAt  *time.Time

	CreatedAt     time.Time
	ExpiresAt     time.Time
	CompletedAt   *time.Time
	FailedAt      *time.Time
	FailureReason string
}

// Terminal reports whether the request can no longer accept confirmations.
func (r AdjustmentRequest) Terminal() bool {
	return r.CompletedAt != nil || r.FailedAt != nil
}

// Expired reports whether the window elapsed before completion. A request
// that completed before its deadline is never expired.
func (r AdjustmentRequest) Expired(now time.Time) bool {
	return r.CompletedAt == nil && now.After(r.ExpiresAt)
}

// BothConfirmed reports whether both parties have proven consent.
func (r AdjustmentRequest) BothConfirmed() bool {
	return r.InitiatorConfirmedAt != nil && r.SalesRepConfirmedAt != nil
}

// ConfirmedAt returns the confirmation timestamp for a party.
func (r AdjustmentRequest) ConfirmedAt(party Party) *time.Time {
	if party == PartyInitiator {
		return r.InitiatorConfirmedAt
	}
	return r.SalesRepConfirmedAt
}

// CodeHash returns the stored code hash for a party.
func (r AdjustmentRequest) CodeHash(party Party) string {
	if party == PartyInitiator {
		return r.InitiatorCodeHash
	}
	return r.SalesRepCodeHash
}

// PartyOf resolves which side of the request an actor is, if any.
func (r AdjustmentRequest) PartyOf(actorID int64, party Party) bool {
	switch party {
	case PartyInitiator:
		return r.InitiatorID == actorID
	case PartySalesRep:
		return r.SalesRepID == actorID
	}
	return false
}

// LedgerEntry is one immutable stock movement row. The running sum of a
// (sales rep, product) pair's entries is that pair's on-hand quantity.
type LedgerEntry struct {
	ID              int64
	SalesRepID      int64
	ProductID       int64
	DeltaQty        int64
	Reason          Reason
	Note            string
	SourceRequestID string
	CreatedAt       time.Time
}

// VanBalance is the denormalized current on-hand for a pair. The ledger
// stays the source of truth; this row exists for read efficiency.
type VanBalance struct {
	SalesRepID int64
	ProductID  int64
	Qty        int64
	UpdatedAt  time.Time
}

// CreateAdjustmentInput carries the fields required to open a request.
type CreateAdjustmentInput struct {
	InitiatorID   int64
	InitiatorRole InitiatorRole
	SalesRepID    int64
	ProductID     int64
	DeltaQty      int64
	Reason        Reason
	Note          string
	// ClientRef, when supplied, guards the create against double submits.
	ClientRef string
}

// CreateAdjustmentResult returns the request id and the two plaintext
// codes. The codes exist only in this value; storage keeps hashes.
type CreateAdjustmentResult struct {
	RequestID     string
	InitiatorCode string
	SalesRepCode  string
	ExpiresAt     time.Time
}

// ConfirmResult reports a successful confirmation attempt.
type ConfirmResult struct {
	// Completed is true when this confirmation finished the request and
	// the ledger mutation was applied.
	Completed bool
}

// RequestSummary is the inbox view of a pending request.
type RequestSummary struct {
	ID            string
	InitiatorID   int64
	InitiatorRole InitiatorRole
	SalesRepID    int64
	ProductID     int64
	DeltaQty      int64
	Reason        Reason
	Note          string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Inbox partitions pending requests from one identity's point of view.
type Inbox struct {
	AwaitingYou   []RequestSummary
	AwaitingOther []RequestSummary
}

// AuditEntry is one row of the recent-completions feed.
type AuditEntry struct {
	ID            string
	InitiatorID   int64
	InitiatorRole InitiatorRole
	SalesRepID    int64
	ProductID     int64
	DeltaQty      int64
	Reason        Reason
	Outcome       string
	FailureReason string
	FinishedAt    time.Time
}

// Outcome labels for AuditEntry.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)
