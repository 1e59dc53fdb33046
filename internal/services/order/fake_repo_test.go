package order

import (
	"context"
	"sync"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories"
	"aurum/internal/services/ledger"
)

// fakeOrderRepo is an in-memory OrderRepository with the same guarded
// transition semantics as the real store: a transition whose current status
// is not in the expected set reports ErrStaleStatus.
type fakeOrderRepo struct {
	mu        sync.Mutex
	deposits  map[string]*models.DepositOrder
	withdraws map[string]*models.WithdrawOrder
	nextID    uint

	// createErr makes the next order insert fail.
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		deposits:  make(map[string]*models.DepositOrder),
		withdraws: make(map[string]*models.WithdrawOrder),
		nextID:    1,
	}
}

func (r *fakeOrderRepo) CreateDepositOrder(ctx context.Context, o *models.DepositOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	o.ID = r.nextID
	r.nextID++
	cp := *o
	r.deposits[o.OrderNo] = &cp
	return nil
}

func (r *fakeOrderRepo) GetDepositOrder(ctx context.Context, orderNo string) (*models.DepositOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.deposits[orderNo]
	if !ok {
		return nil, repositories.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) ListDepositOrders(ctx context.Context, userID uint, status string, limit, offset int) ([]models.DepositOrder, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DepositOrder
	for _, o := range r.deposits {
		if o.UserID == userID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) TransitionDeposit(ctx context.Context, orderNo string, from []string, to string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.deposits[orderNo]
	if !ok || !contains(from, o.Status) {
		return repositories.ErrStaleStatus
	}
	o.Status = to
	for k, v := range updates {
		switch k {
		case "external_ref":
			o.ExternalRef, _ = v.(string)
		case "paid_at":
			o.PaidAt = timePtr(v)
		case "confirmed_at":
			o.ConfirmedAt = timePtr(v)
		}
	}
	return nil
}

func (r *fakeOrderRepo) ListDueDeposits(ctx context.Context, cutoff time.Time, limit int) ([]models.DepositOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DepositOrder
	for _, o := range r.deposits {
		if o.Status == models.DepositStatusPending && o.ExpiresAt.Before(cutoff) {
			out = append(out, *o)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) CreateWithdrawOrder(ctx context.Context, o *models.WithdrawOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	o.ID = r.nextID
	r.nextID++
	cp := *o
	r.withdraws[o.OrderNo] = &cp
	return nil
}

func (r *fakeOrderRepo) GetWithdrawOrder(ctx context.Context, orderNo string) (*models.WithdrawOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.withdraws[orderNo]
	if !ok {
		return nil, repositories.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) ListWithdrawOrders(ctx context.Context, userID uint, status string, limit, offset int) ([]models.WithdrawOrder, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WithdrawOrder
	for _, o := range r.withdraws {
		if o.UserID == userID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) TransitionWithdraw(ctx context.Context, orderNo string, from []string, to string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.withdraws[orderNo]
	if !ok || !contains(from, o.Status) {
		return repositories.ErrStaleStatus
	}
	o.Status = to
	for k, v := range updates {
		switch k {
		case "external_ref":
			o.ExternalRef, _ = v.(string)
		case "reason":
			o.Reason, _ = v.(string)
		case "reviewer_id":
			if id, ok := v.(uint); ok {
				o.ReviewerID = &id
			}
		}
	}
	return nil
}

// setDepositStatus rigs the stored state directly for race simulations.
func (r *fakeOrderRepo) setDepositStatus(orderNo, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deposits[orderNo].Status = status
}

func (r *fakeOrderRepo) setWithdrawStatus(orderNo, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdraws[orderNo].Status = status
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func timePtr(v interface{}) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}

// fakeMutator records the funds movements the managers request and lets tests
// fail individual operations. Deposit and Settle replay as no-ops per order
// number, matching the ledger's order-keyed idempotency.
type fakeMutator struct {
	mu        sync.Mutex
	deposits  []ledger.DepositParams
	deposited map[string]bool
	reserved  map[string]int64 // orderNo -> outstanding reservation
	settled   []string
	wasSettle map[string]bool
	released  []string

	depositErr error
	reserveErr error
	settleErr  error
	releaseErr error
}

func newFakeMutator() *fakeMutator {
	return &fakeMutator{
		deposited: make(map[string]bool),
		reserved:  make(map[string]int64),
		wasSettle: make(map[string]bool),
	}
}

func (m *fakeMutator) Deposit(ctx context.Context, p ledger.DepositParams) (*ledger.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depositErr != nil {
		return nil, m.depositErr
	}
	if m.deposited[p.OrderID] {
		return &ledger.Result{Applied: false, Entry: &models.LedgerEntry{OrderID: p.OrderID}}, nil
	}
	m.deposited[p.OrderID] = true
	m.deposits = append(m.deposits, p)
	return &ledger.Result{Applied: true, Entry: &models.LedgerEntry{OrderID: p.OrderID}}, nil
}

func (m *fakeMutator) Reserve(ctx context.Context, userID uint, amount int64, orderNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return m.reserveErr
	}
	m.reserved[orderNo] += amount
	return nil
}

func (m *fakeMutator) Release(ctx context.Context, userID uint, amount int64, orderNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return m.releaseErr
	}
	m.reserved[orderNo] -= amount
	m.released = append(m.released, orderNo)
	return nil
}

func (m *fakeMutator) Settle(ctx context.Context, userID uint, amount int64, orderNo string) (*ledger.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settleErr != nil {
		return nil, m.settleErr
	}
	if m.wasSettle[orderNo] {
		return &ledger.Result{Applied: false, Entry: &models.LedgerEntry{OrderID: orderNo}}, nil
	}
	m.wasSettle[orderNo] = true
	m.reserved[orderNo] -= amount
	m.settled = append(m.settled, orderNo)
	return &ledger.Result{Applied: true, Entry: &models.LedgerEntry{OrderID: orderNo}}, nil
}

func (m *fakeMutator) outstanding(orderNo string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserved[orderNo]
}

func (m *fakeMutator) depositCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deposits)
}
