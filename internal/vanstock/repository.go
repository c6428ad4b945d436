package vanstock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, initiator_id, initiator_role, sales_rep_id, product_id, delta_qty, reason, note,
initiator_code_hash, sales_rep_code_hash, initiator_confirmed_at, sales_rep_confirmed_at,
created_at, expires_at, completed_at, failed_at, COALESCE(failure_reason, '')`

// Repository persists adjustment requests and the van stock ledger in
// PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a confirmation
// transaction. The conditional Mark* writes are the completion guard:
// exactly one attempt can win them for a given request.
type TxRepository interface {
	GetRequestForUpdate(ctx context.Context, id string) (AdjustmentRequest, error)
	SetConfirmed(ctx context.Context, id string, party Party, at time.Time) error
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, at time.Time, reason string) (bool, error)
	BalanceForUpdate(ctx context.Context, salesRepID, productID int64) (int64, error)
	AppendLedgerEntry(ctx context.Context, entry LedgerEntry) error
	AddToBalance(ctx context.Context, salesRepID, productID, delta int64, at time.Time) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateRequest inserts a freshly issued adjustment request.
func (r *Repository) CreateRequest(ctx context.Context, req AdjustmentRequest) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO adjustment_requests
(id, initiator_id, initiator_role, sales_rep_id, product_id, delta_qty, reason, note,
 initiator_code_hash, sales_rep_code_hash, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, req.InitiatorID, string(req.InitiatorRole), req.SalesRepID, req.ProductID,
		req.DeltaQty, string(req.Reason), req.Note,
		req.InitiatorCodeHash, req.SalesRepCodeHash, req.CreatedAt, req.ExpiresAt)
	return err
}

// GetRequest loads one request by id.
func (r *Repository) GetRequest(ctx context.Context, id string) (AdjustmentRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM adjustment_requests WHERE id=$1`, id)
	return scanRequest(row)
}

// PendingForSalesRep lists non-terminal, unexpired requests naming the rep.
func (r *Repository) PendingForSalesRep(ctx context.Context, salesRepID int64, now time.Time) ([]AdjustmentRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM adjustment_requests
WHERE sales_rep_id=$1 AND completed_at IS NULL AND failed_at IS NULL AND expires_at > $2
ORDER BY created_at ASC`, salesRepID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// PendingForInitiator lists non-terminal, unexpired requests the actor opened.
func (r *Repository) PendingForInitiator(ctx context.Context, initiatorID int64, now time.Time) ([]AdjustmentRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM adjustment_requests
WHERE initiator_id=$1 AND completed_at IS NULL AND failed_at IS NULL AND expires_at > $2
ORDER BY created_at ASC`, initiatorID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// RecentTerminal lists the most recently finished requests, newest first.
func (r *Repository) RecentTerminal(ctx context.Context, limit int) ([]AdjustmentRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM adjustment_requests
WHERE completed_at IS NOT NULL OR failed_at IS NOT NULL
ORDER BY COALESCE(completed_at, failed_at) DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// Balance returns the current on-hand for one pair, zero when absent.
func (r *Repository) Balance(ctx context.Context, salesRepID, productID int64) (VanBalance, error) {
	row := r.pool.QueryRow(ctx, `SELECT sales_rep_id, product_id, qty, updated_at
FROM van_stock_balances WHERE sales_rep_id=$1 AND product_id=$2`, salesRepID, productID)
	var b VanBalance
	if err := row.Scan(&b.SalesRepID, &b.ProductID, &b.Qty, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VanBalance{SalesRepID: salesRepID, ProductID: productID}, nil
		}
		return VanBalance{}, err
	}
	return b, nil
}

// BalancesForRep lists all balances attributed to one rep.
func (r *Repository) BalancesForRep(ctx context.Context, salesRepID int64) ([]VanBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT sales_rep_id, product_id, qty, updated_at
FROM van_stock_balances WHERE sales_rep_id=$1 ORDER BY product_id`, salesRepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []VanBalance
	for rows.Next() {
		var b VanBalance
		if err := rows.Scan(&b.SalesRepID, &b.ProductID, &b.Qty, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// DeleteExpiredBefore removes expired, never-finished requests whose
// window closed before the cutoff. Terminal rows stay for audit.
func (r *Repository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM adjustment_requests
WHERE completed_at IS NULL AND failed_at IS NULL AND expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) GetRequestForUpdate(ctx context.Context, id string) (AdjustmentRequest, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM adjustment_requests WHERE id=$1 FOR UPDATE`, id)
	return scanRequest(row)
}

func (t *txRepo) SetConfirmed(ctx context.Context, id string, party Party, at time.Time) error {
	column := "sales_rep_confirmed_at"
	if party == PartyInitiator {
		column = "initiator_confirmed_at"
	}
	_, err := t.tx.Exec(ctx, `UPDATE adjustment_requests SET `+column+`=$2 WHERE id=$1 AND `+column+` IS NULL`, id, at)
	return err
}

func (t *txRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE adjustment_requests SET completed_at=$2
WHERE id=$1 AND completed_at IS NULL AND failed_at IS NULL
AND initiator_confirmed_at IS NOT NULL AND sales_rep_confirmed_at IS NOT NULL`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) MarkFailed(ctx context.Context, id string, at time.Time, reason string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE adjustment_requests SET failed_at=$2, failure_reason=$3
WHERE id=$1 AND completed_at IS NULL AND failed_at IS NULL
AND initiator_confirmed_at IS NOT NULL AND sales_rep_confirmed_at IS NOT NULL`, id, at, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// BalanceForUpdate locks the pair's balance row, creating it at zero when
// missing, and returns the current quantity.
func (t *txRepo) BalanceForUpdate(ctx context.Context, salesRepID, productID int64) (int64, error) {
	_, err := t.tx.Exec(ctx, `INSERT INTO van_stock_balances (sales_rep_id, product_id, qty, updated_at)
VALUES ($1, $2, 0, NOW()) ON CONFLICT (sales_rep_id, product_id) DO NOTHING`, salesRepID, productID)
	if err != nil {
		return 0, err
	}
	var qty int64
	err = t.tx.QueryRow(ctx, `SELECT qty FROM van_stock_balances
WHERE sales_rep_id=$1 AND product_id=$2 FOR UPDATE`, salesRepID, productID).Scan(&qty)
	return qty, err
}

func (t *txRepo) AppendLedgerEntry(ctx context.Context, entry LedgerEntry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO van_stock_ledger
(sales_rep_id, product_id, delta_qty, reason, note, source_request_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.SalesRepID, entry.ProductID, entry.DeltaQty, string(entry.Reason), entry.Note,
		entry.SourceRequestID, entry.CreatedAt)
	return err
}

func (t *txRepo) AddToBalance(ctx context.Context, salesRepID, productID, delta int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE van_stock_balances SET qty=qty+$3, updated_at=$4
WHERE sales_rep_id=$1 AND product_id=$2`, salesRepID, productID, delta, at)
	return err
}

func scanRequest(row pgx.Row) (AdjustmentRequest, error) {
	var req AdjustmentRequest
	var role, reason string
	err := row.Scan(&req.ID, &req.InitiatorID, &role, &req.SalesRepID, &req.ProductID,
		&req.DeltaQty, &reason, &req.Note,
		&req.InitiatorCodeHash, &req.SalesRepCodeHash,
		&req.InitiatorConfirmedAt, &req.SalesRepConfirmedAt,
		&req.CreatedAt, &req.ExpiresAt, &req.CompletedAt, &req.FailedAt, &req.FailureReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdjustmentRequest{}, ErrRequestNotFound
		}
		return AdjustmentRequest{}, err
	}
	req.InitiatorRole = InitiatorRole(role)
	req.Reason = Reason(reason)
	return req, nil
}

func collectRequests(rows pgx.Rows) ([]AdjustmentRequest, error) {
	var requests []AdjustmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
