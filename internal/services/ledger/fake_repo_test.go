package ledger

import (
	"context"
	"sync"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories"
)

// fakeWalletRepo is an in-memory WalletRepository with real version-check
// semantics and snapshot-rollback transactions, so the service's retry and
// idempotency paths can be exercised without a database.
type fakeWalletRepo struct {
	mu    sync.Mutex
	state fakeState

	// failUpdates forces the next n UpdateWithVersion calls to report a
	// version conflict.
	failUpdates int
}

type fakeState struct {
	wallets      map[uint]*models.Wallet
	entries      []*models.LedgerEntry
	nextWalletID uint
	nextEntryID  uint
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{state: fakeState{
		wallets:      make(map[uint]*models.Wallet),
		nextWalletID: 1,
		nextEntryID:  1,
	}}
}

func (s fakeState) clone() fakeState {
	c := fakeState{
		wallets:      make(map[uint]*models.Wallet, len(s.wallets)),
		entries:      make([]*models.LedgerEntry, len(s.entries)),
		nextWalletID: s.nextWalletID,
		nextEntryID:  s.nextEntryID,
	}
	for k, w := range s.wallets {
		cp := *w
		c.wallets[k] = &cp
	}
	for i, e := range s.entries {
		cp := *e
		c.entries[i] = &cp
	}
	return c
}

func (r *fakeWalletRepo) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getByUserID(userID)
}

func (r *fakeWalletRepo) CreateIfAbsent(ctx context.Context, userID uint) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createIfAbsent(userID)
}

func (r *fakeWalletRepo) UpdateWithVersion(ctx context.Context, w *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateWithVersion(w)
}

func (r *fakeWalletRepo) UpdateStatus(ctx context.Context, walletID uint, status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateStatus(walletID, status, reason)
}

func (r *fakeWalletRepo) AppendEntry(ctx context.Context, e *models.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendEntry(e)
}

func (r *fakeWalletRepo) GetEntryByOrderID(ctx context.Context, orderID string) (*models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getEntryByOrderID(orderID)
}

func (r *fakeWalletRepo) MarkEntryRefunded(ctx context.Context, entryID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markEntryRefunded(entryID)
}

func (r *fakeWalletRepo) ListEntries(ctx context.Context, userID uint, f repositories.EntryFilter, limit, offset int) ([]models.LedgerEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.LedgerEntry
	for _, e := range r.state.entries {
		if e.UserID != userID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.CreatedAt.After(f.To) {
			continue
		}
		matched = append(matched, *e)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeWalletRepo) SumConsumedSince(ctx context.Context, userID uint, category string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum int64
	for _, e := range r.state.entries {
		if e.UserID != userID || e.Type != models.EntryTypeConsume {
			continue
		}
		if e.Status != models.EntryStatusSuccess && e.Status != models.EntryStatusRefunded {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		if e.CreatedAt.Before(since) {
			continue
		}
		sum += -e.Total()
	}
	return sum, nil
}

// ExecuteInTransaction serializes transactions and rolls the state back when
// fn fails, mirroring the all-or-nothing behavior of the real store.
func (r *fakeWalletRepo) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	if err := fn(&fakeTx{r: r}); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

// fakeTx exposes the same operations without re-locking; it is only valid
// inside ExecuteInTransaction.
type fakeTx struct {
	r *fakeWalletRepo
}

func (t *fakeTx) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	return t.r.getByUserID(userID)
}

func (t *fakeTx) CreateIfAbsent(ctx context.Context, userID uint) (*models.Wallet, error) {
	return t.r.createIfAbsent(userID)
}

func (t *fakeTx) UpdateWithVersion(ctx context.Context, w *models.Wallet) error {
	return t.r.updateWithVersion(w)
}

func (t *fakeTx) UpdateStatus(ctx context.Context, walletID uint, status, reason string) error {
	return t.r.updateStatus(walletID, status, reason)
}

func (t *fakeTx) AppendEntry(ctx context.Context, e *models.LedgerEntry) error {
	return t.r.appendEntry(e)
}

func (t *fakeTx) GetEntryByOrderID(ctx context.Context, orderID string) (*models.LedgerEntry, error) {
	return t.r.getEntryByOrderID(orderID)
}

func (t *fakeTx) MarkEntryRefunded(ctx context.Context, entryID uint) error {
	return t.r.markEntryRefunded(entryID)
}

func (t *fakeTx) ListEntries(ctx context.Context, userID uint, f repositories.EntryFilter, limit, offset int) ([]models.LedgerEntry, int64, error) {
	panic("not used in transactions")
}

func (t *fakeTx) SumConsumedSince(ctx context.Context, userID uint, category string, since time.Time) (int64, error) {
	panic("not used in transactions")
}

func (t *fakeTx) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	return fn(t)
}

// Unlocked internals, shared by the repo and its transaction view.

func (r *fakeWalletRepo) getByUserID(userID uint) (*models.Wallet, error) {
	w, ok := r.state.wallets[userID]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) createIfAbsent(userID uint) (*models.Wallet, error) {
	if w, ok := r.state.wallets[userID]; ok {
		cp := *w
		return &cp, nil
	}
	w := &models.Wallet{
		ID:     r.state.nextWalletID,
		UserID: userID,
		Status: models.WalletStatusActive,
	}
	r.state.nextWalletID++
	r.state.wallets[userID] = w
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) updateWithVersion(w *models.Wallet) error {
	if r.failUpdates > 0 {
		r.failUpdates--
		return repositories.ErrVersionConflict
	}
	stored, ok := r.state.wallets[w.UserID]
	if !ok || stored.Version != w.Version {
		return repositories.ErrVersionConflict
	}
	cp := *w
	cp.Version = stored.Version + 1
	cp.Status = stored.Status
	cp.StatusReason = stored.StatusReason
	r.state.wallets[w.UserID] = &cp
	w.Version = cp.Version
	return nil
}

func (r *fakeWalletRepo) updateStatus(walletID uint, status, reason string) error {
	for _, w := range r.state.wallets {
		if w.ID == walletID {
			w.Status = status
			w.StatusReason = reason
			return nil
		}
	}
	return repositories.ErrWalletNotFound
}

func (r *fakeWalletRepo) appendEntry(e *models.LedgerEntry) error {
	for _, existing := range r.state.entries {
		if existing.OrderID == e.OrderID {
			return repositories.ErrDuplicateOrder
		}
	}
	e.ID = r.state.nextEntryID
	r.state.nextEntryID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	r.state.entries = append(r.state.entries, &cp)
	return nil
}

func (r *fakeWalletRepo) getEntryByOrderID(orderID string) (*models.LedgerEntry, error) {
	for _, e := range r.state.entries {
		if e.OrderID == orderID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrEntryNotFound
}

func (r *fakeWalletRepo) markEntryRefunded(entryID uint) error {
	for _, e := range r.state.entries {
		if e.ID == entryID && e.Status == models.EntryStatusSuccess {
			e.Status = models.EntryStatusRefunded
			return nil
		}
	}
	return repositories.ErrEntryNotFound
}

// mustWallet reads the stored wallet state directly for assertions.
func (r *fakeWalletRepo) mustWallet(userID uint) models.Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.state.wallets[userID]
	if !ok {
		panic("wallet not found")
	}
	return *w
}

func (r *fakeWalletRepo) entryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.entries)
}
