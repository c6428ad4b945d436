package vanstock

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

type balanceKey struct {
	rep     int64
	product int64
}

// memoryRepo mimics the postgres repository: WithTx holds a single lock
// for the duration of the closure, which models row locking closely
// enough for the coordination logic under test.
type memoryRepo struct {
	mu       sync.Mutex
	requests map[string]AdjustmentRequest
	ledger   []LedgerEntry
	balances map[balanceKey]VanBalance
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		requests: make(map[string]AdjustmentRequest),
		balances: make(map[balanceKey]VanBalance),
	}
}

func (m *memoryRepo) snapshot() (map[string]AdjustmentRequest, []LedgerEntry, map[balanceKey]VanBalance) {
	reqs := make(map[string]AdjustmentRequest, len(m.requests))
	for k, v := range m.requests {
		reqs[k] = v
	}
	ledger := append([]LedgerEntry(nil), m.ledger...)
	balances := make(map[balanceKey]VanBalance, len(m.balances))
	for k, v := range m.balances {
		balances[k] = v
	}
	return reqs, ledger, balances
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs, ledger, balances := m.snapshot()
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.requests, m.ledger, m.balances = reqs, ledger, balances
		return err
	}
	return nil
}

func (m *memoryRepo) CreateRequest(ctx context.Context, req AdjustmentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
	return nil
}

func (m *memoryRepo) GetRequest(ctx context.Context, id string) (AdjustmentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return AdjustmentRequest{}, ErrRequestNotFound
	}
	return req, nil
}

func (m *memoryRepo) pending(now time.Time, match func(AdjustmentRequest) bool) []AdjustmentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AdjustmentRequest
	for _, req := range m.requests {
		if req.Terminal() || !req.ExpiresAt.After(now) {
			continue
		}
		if match(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memoryRepo) PendingForSalesRep(ctx context.Context, salesRepID int64, now time.Time) ([]AdjustmentRequest, error) {
	return m.pending(now, func(r AdjustmentRequest) bool { return r.SalesRepID == salesRepID }), nil
}

func (m *memoryRepo) PendingForInitiator(ctx context.Context, initiatorID int64, now time.Time) ([]AdjustmentRequest, error) {
	return m.pending(now, func(r AdjustmentRequest) bool { return r.InitiatorID == initiatorID }), nil
}

func (m *memoryRepo) RecentTerminal(ctx context.Context, limit int) ([]AdjustmentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AdjustmentRequest
	for _, req := range m.requests {
		if req.Terminal() {
			out = append(out, req)
		}
	}
	finished := func(r AdjustmentRequest) time.Time {
		if r.CompletedAt != nil {
			return *r.CompletedAt
		}
		return *r.FailedAt
	}
	sort.Slice(out, func(i, j int) bool { return finished(out[i]).After(finished(out[j])) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) Balance(ctx context.Context, salesRepID, productID int64) (VanBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[balanceKey{salesRepID, productID}]; ok {
		return b, nil
	}
	return VanBalance{SalesRepID: salesRepID, ProductID: productID}, nil
}

func (m *memoryRepo) BalancesForRep(ctx context.Context, salesRepID int64) ([]VanBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []VanBalance
	for _, b := range m.balances {
		if b.SalesRepID == salesRepID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *memoryRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, req := range m.requests {
		if req.CompletedAt == nil && req.FailedAt == nil && req.ExpiresAt.Before(cutoff) {
			delete(m.requests, id)
			n++
		}
	}
	return n, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetRequestForUpdate(ctx context.Context, id string) (AdjustmentRequest, error) {
	req, ok := t.repo.requests[id]
	if !ok {
		return AdjustmentRequest{}, ErrRequestNotFound
	}
	return req, nil
}

func (t *memoryTx) SetConfirmed(ctx context.Context, id string, party Party, at time.Time) error {
	req := t.repo.requests[id]
	if party == PartyInitiator {
		if req.InitiatorConfirmedAt == nil {
			req.InitiatorConfirmedAt = &at
		}
	} else {
		if req.SalesRepConfirmedAt == nil {
			req.SalesRepConfirmedAt = &at
		}
	}
	t.repo.requests[id] = req
	return nil
}

func (t *memoryTx) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	req := t.repo.requests[id]
	if req.Terminal() || !req.BothConfirmed() {
		return false, nil
	}
	req.CompletedAt = &at
	t.repo.requests[id] = req
	return true, nil
}

func (t *memoryTx) MarkFailed(ctx context.Context, id string, at time.Time, reason string) (bool, error) {
	req := t.repo.requests[id]
	if req.Terminal() || !req.BothConfirmed() {
		return false, nil
	}
	req.FailedAt = &at
	req.FailureReason = reason
	t.repo.requests[id] = req
	return true, nil
}

func (t *memoryTx) BalanceForUpdate(ctx context.Context, salesRepID, productID int64) (int64, error) {
	key := balanceKey{salesRepID, productID}
	if _, ok := t.repo.balances[key]; !ok {
		t.repo.balances[key] = VanBalance{SalesRepID: salesRepID, ProductID: productID}
	}
	return t.repo.balances[key].Qty, nil
}

func (t *memoryTx) AppendLedgerEntry(ctx context.Context, entry LedgerEntry) error {
	entry.ID = int64(len(t.repo.ledger) + 1)
	t.repo.ledger = append(t.repo.ledger, entry)
	return nil
}

func (t *memoryTx) AddToBalance(ctx context.Context, salesRepID, productID, delta int64, at time.Time) error {
	key := balanceKey{salesRepID, productID}
	b := t.repo.balances[key]
	b.SalesRepID, b.ProductID = salesRepID, productID
	b.Qty += delta
	b.UpdatedAt = at
	t.repo.balances[key] = b
	return nil
}

type stubDirectory struct {
	inactive map[int64]bool
}

func (d stubDirectory) ProductActive(ctx context.Context, id int64) (bool, error) {
	return !d.inactive[id], nil
}

func (d stubDirectory) SalesRepActive(ctx context.Context, id int64) (bool, error) {
	return !d.inactive[id], nil
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, stubDirectory{}, stubDirectory{}, &recordingAudit{}, nil, nil, ServiceConfig{})
	svc.issuer.cost = bcrypt.MinCost
	return svc
}

func mustCreate(t *testing.T, svc *Service, input CreateAdjustmentInput) CreateAdjustmentResult {
	t.Helper()
	res, err := svc.CreateAdjustment(context.Background(), input)
	require.NoError(t, err)
	return res
}

func baseInput() CreateAdjustmentInput {
	return CreateAdjustmentInput{
		InitiatorID:   1,
		InitiatorRole: RoleWarehouseManager,
		SalesRepID:    7,
		ProductID:     42,
		DeltaQty:      10,
		Reason:        ReasonLoad,
		Note:          "morning load",
	}
}

func TestCreateAdjustmentValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	in := baseInput()
	in.DeltaQty = 0
	_, err := svc.CreateAdjustment(ctx, in)
	assert.ErrorIs(t, err, ErrZeroDelta)

	in = baseInput()
	in.Reason = "shrinkage"
	_, err = svc.CreateAdjustment(ctx, in)
	assert.ErrorIs(t, err, ErrUnknownReason)

	in = baseInput()
	in.InitiatorRole = "sales_rep"
	_, err = svc.CreateAdjustment(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreateAdjustmentRejectsInactiveReferences(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	svc.products = stubDirectory{inactive: map[int64]bool{42: true}}

	_, err := svc.CreateAdjustment(context.Background(), baseInput())
	assert.ErrorIs(t, err, ErrInactiveProduct)

	svc.products = stubDirectory{}
	svc.reps = stubDirectory{inactive: map[int64]bool{7: true}}
	_, err = svc.CreateAdjustment(context.Background(), baseInput())
	assert.ErrorIs(t, err, ErrInactiveSalesRep)
}

func TestCreateAdjustmentStoresHashesOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	res := mustCreate(t, svc, baseInput())
	require.Len(t, res.InitiatorCode, 6)
	require.Len(t, res.SalesRepCode, 6)

	req, err := repo.GetRequest(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.NotEqual(t, res.InitiatorCode, req.InitiatorCodeHash)
	assert.NotEqual(t, res.SalesRepCode, req.SalesRepCodeHash)
	assert.True(t, VerifyCode(req.InitiatorCodeHash, res.InitiatorCode))
	assert.True(t, VerifyCode(req.SalesRepCodeHash, res.SalesRepCode))
	assert.False(t, VerifyCode(req.InitiatorCodeHash, res.SalesRepCode))
	assert.Equal(t, req.CreatedAt.Add(DefaultWindow), req.ExpiresAt)
}

func TestConfirmBothPartiesAppliesOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	res := mustCreate(t, svc, baseInput())

	first, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)
	assert.False(t, first.Completed)

	second, err := svc.Confirm(ctx, res.RequestID, 7, PartySalesRep, res.SalesRepCode)
	require.NoError(t, err)
	assert.True(t, second.Completed)

	require.Len(t, repo.ledger, 1)
	assert.Equal(t, int64(10), repo.ledger[0].DeltaQty)
	assert.Equal(t, res.RequestID, repo.ledger[0].SourceRequestID)

	balance, err := repo.Balance(ctx, 7, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance.Qty)

	status, err := svc.StatusFor(ctx, res.RequestID, 7, PartySalesRep)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, status.State)
}

func TestConfirmOrderDoesNotMatter(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	res := mustCreate(t, svc, baseInput())

	first, err := svc.Confirm(ctx, res.RequestID, 7, PartySalesRep, res.SalesRepCode)
	require.NoError(t, err)
	assert.False(t, first.Completed)

	second, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)
	assert.True(t, second.Completed)
	require.Len(t, repo.ledger, 1)
}

func TestConfirmRejectionsAreIndistinguishable(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	res := mustCreate(t, svc, baseInput())

	// Wrong code.
	_, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, "000000")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// Right code, wrong party slot.
	_, err = svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.SalesRepCode)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// Actor who is not on the request.
	_, err = svc.Confirm(ctx, res.RequestID, 99, PartySalesRep, res.SalesRepCode)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// Unknown request.
	_, err = svc.Confirm(ctx, "no-such-id", 1, PartyInitiator, res.InitiatorCode)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// Empty code.
	_, err = svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, "")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// Nothing was recorded along the way.
	req, err := repo.GetRequest(ctx, res.RequestID)
	require.NoError(t, err)
	assert.Nil(t, req.InitiatorConfirmedAt)
	assert.Nil(t, req.SalesRepConfirmedAt)
	assert.Empty(t, repo.ledger)
}

func TestConfirmAfterExpiryRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	res := mustCreate(t, svc, baseInput())

	// At the deadline the window is still open.
	svc.now = func() time.Time { return base.Add(DefaultWindow) }
	_, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)

	// Past the deadline a correct code is rejected.
	svc.now = func() time.Time { return base.Add(DefaultWindow + time.Second) }
	_, err = svc.Confirm(ctx, res.RequestID, 7, PartySalesRep, res.SalesRepCode)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	assert.Empty(t, repo.ledger)

	status, err := svc.StatusFor(ctx, res.RequestID, 1, PartyInitiator)
	require.NoError(t, err)
	assert.Equal(t, StateExpired, status.State)
}

func TestConfirmReplayIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	res := mustCreate(t, svc, baseInput())

	_, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)

	// Retry before completion reports not-yet-complete.
	again, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)
	assert.False(t, again.Completed)

	_, err = svc.Confirm(ctx, res.RequestID, 7, PartySalesRep, res.SalesRepCode)
	require.NoError(t, err)

	// Retries after completion succeed without touching the ledger.
	again, err = svc.Confirm(ctx, res.RequestID, 7, PartySalesRep, res.SalesRepCode)
	require.NoError(t, err)
	assert.True(t, again.Completed)

	again, err = svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)
	assert.True(t, again.Completed)

	require.Len(t, repo.ledger, 1)
	balance, err := repo.Balance(ctx, 7, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance.Qty)
}

func TestConfirmInsufficientStockFailsRequest(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.balances[balanceKey{7, 42}] = VanBalance{SalesRepID: 7, ProductID: 42, Qty: 3}

	in := baseInput()
	in.DeltaQty = -5
	in.Reason = ReasonReturn
	res := mustCreate(t, svc, in)

	_, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)
	out, err := svc.Confirm(ctx, res.RequestID, 7, PartySalesRep, res.SalesRepCode)
	require.NoError(t, err)
	assert.False(t, out.Completed)

	status, err := svc.StatusFor(ctx, res.RequestID, 1, PartyInitiator)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, status.State)

	assert.Empty(t, repo.ledger)
	balance, err := repo.Balance(ctx, 7, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance.Qty)

	req, err := repo.GetRequest(ctx, res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, FailureInsufficientStock, req.FailureReason)
}

func TestConfirmNegativeDeltaWithenoughStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	repo.balances[balanceKey{7, 42}] = VanBalance{SalesRepID: 7, ProductID: 42, Qty: 5}

	in := baseInput()
	in.DeltaQty = -5
	in.Reason = ReasonReturn
	res := mustCreate(t, svc, in)

	_, err := svc.Confirm(ctx, res.RequestID, 7, PartySalesRep, res.SalesRepCode)
	require.NoError(t, err)
	out, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)
	assert.True(t, out.Completed)

	balance, err := repo.Balance(ctx, 7, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Qty)
}

func TestConcurrentSecondConfirmationsApplyOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	res := mustCreate(t, svc, baseInput())
	_, err := svc.Confirm(ctx, res.RequestID, 1, PartyInitiator, res.InitiatorCode)
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(ctx, res.RequestID, 7, PartySalesRep, res.SalesRepCode)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, repo.ledger, 1)
	balance, err := repo.Balance(ctx, 7, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance.Qty)
}

func TestPendingForPartitionsInbox(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	tick := base
	svc.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	first := mustCreate(t, svc, baseInput())
	second := mustCreate(t, svc, baseInput())

	_, err := svc.Confirm(ctx, first.RequestID, 1, PartyInitiator, first.InitiatorCode)
	require.NoError(t, err)

	inbox, err := svc.PendingFor(ctx, 1, PartyInitiator)
	require.NoError(t, err)
	require.Len(t, inbox.AwaitingYou, 1)
	require.Len(t, inbox.AwaitingOther, 1)
	assert.Equal(t, second.RequestID, inbox.AwaitingYou[0].ID)
	assert.Equal(t, first.RequestID, inbox.AwaitingOther[0].ID)

	repInbox, err := svc.PendingFor(ctx, 7, PartySalesRep)
	require.NoError(t, err)
	require.Len(t, repInbox.AwaitingYou, 2)
	assert.Empty(t, repInbox.AwaitingOther)
	// Oldest first.
	assert.Equal(t, first.RequestID, repInbox.AwaitingYou[0].ID)
}

func TestPendingForExcludesExpiredAndTerminal(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	expired := mustCreate(t, svc, baseInput())
	_ = expired

	svc.now = func() time.Time { return base.Add(DefaultWindow + time.Minute) }
	open := mustCreate(t, svc, baseInput())
	done := mustCreate(t, svc, baseInput())
	_, err := svc.Confirm(ctx, done.RequestID, 1, PartyInitiator, done.InitiatorCode)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, done.RequestID, 7, PartySalesRep, done.SalesRepCode)
	require.NoError(t, err)

	inbox, err := svc.PendingFor(ctx, 7, PartySalesRep)
	require.NoError(t, err)
	require.Len(t, inbox.AwaitingYou, 1)
	assert.Equal(t, open.RequestID, inbox.AwaitingYou[0].ID)
}

func TestRecentCompletedNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	tick := base
	svc.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	complete := func(in CreateAdjustmentInput) string {
		res := mustCreate(t, svc, in)
		_, err := svc.Confirm(ctx, res.RequestID, in.InitiatorID, PartyInitiator, res.InitiatorCode)
		require.NoError(t, err)
		_, err = svc.Confirm(ctx, res.RequestID, in.SalesRepID, PartySalesRep, res.SalesRepCode)
		require.NoError(t, err)
		return res.RequestID
	}

	older := complete(baseInput())
	newer := complete(baseInput())

	failing := baseInput()
	failing.DeltaQty = -1000
	failedID := complete(failing)

	entries, err := svc.RecentCompleted(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, failedID, entries[0].ID)
	assert.Equal(t, OutcomeFailed, entries[0].Outcome)
	assert.Equal(t, FailureInsufficientStock, entries[0].FailureReason)
	assert.Equal(t, newer, entries[1].ID)
	assert.Equal(t, OutcomeCompleted, entries[1].Outcome)
	assert.Equal(t, older, entries[2].ID)

	capped, err := svc.RecentCompleted(ctx, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, failedID, capped[0].ID)
}

func TestStatusForScopedToParties(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	res := mustCreate(t, svc, baseInput())

	status, err := svc.StatusFor(ctx, res.RequestID, 1, PartyInitiator)
	require.NoError(t, err)
	assert.Equal(t, StatePending, status.State)
	assert.False(t, status.InitiatorConfirmed)

	_, err = svc.StatusFor(ctx, res.RequestID, 99, PartyInitiator)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, err = svc.StatusFor(ctx, res.RequestID, 1, PartySalesRep)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestSweepExpiredKeepsTerminalAndOpen(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	stale := mustCreate(t, svc, baseInput())
	done := mustCreate(t, svc, baseInput())
	_, err := svc.Confirm(ctx, done.RequestID, 1, PartyInitiator, done.InitiatorCode)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, done.RequestID, 7, PartySalesRep, done.SalesRepCode)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(48 * time.Hour) }
	fresh := mustCreate(t, svc, baseInput())

	n, err := svc.SweepExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetRequest(ctx, stale.RequestID)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, err = repo.GetRequest(ctx, done.RequestID)
	assert.NoError(t, err)
	_, err = repo.GetRequest(ctx, fresh.RequestID)
	assert.NoError(t, err)
}
