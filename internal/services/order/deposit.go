package order

import (
	"context"
	"errors"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories"
	"aurum/internal/services/ledger"

	"github.com/google/uuid"
)

// DepositManager runs the deposit order state machine:
//
//	pending -> paid -> confirmed
//	pending -> expired | cancelled
//
// Only the confirmed transition credits the wallet, and confirming an
// already-confirmed order is a no-op so gateway webhooks can be retried
// freely.
type DepositManager struct {
	orders  repositories.OrderRepository
	mutator Mutator
	cfg     Config
	now     func() time.Time
}

func NewDepositManager(orders repositories.OrderRepository, mutator Mutator, cfg Config) *DepositManager {
	if orders == nil {
		panic("order repository is required")
	}
	if mutator == nil {
		panic("mutator is required")
	}
	if cfg.DepositTTL == 0 {
		cfg.DepositTTL = DefaultDepositTTL
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = DefaultSweepBatchSize
	}
	return &DepositManager{orders: orders, mutator: mutator, cfg: cfg, now: time.Now}
}

// Create opens a pending deposit order. No balance effect until confirmation.
func (m *DepositManager) Create(ctx context.Context, p CreateDepositParams) (*models.DepositOrder, error) {
	if p.Amount <= 0 || p.BonusAmount < 0 {
		return nil, ErrInvalidAmount
	}

	fee := feeOf(p.Amount, m.cfg.DepositFeeBps)
	order := &models.DepositOrder{
		OrderNo:     uuid.New().String(),
		UserID:      p.UserID,
		Amount:      p.Amount,
		BonusAmount: p.BonusAmount,
		Fee:         fee,
		NetAmount:   p.Amount - fee,
		Method:      p.Method,
		Channel:     p.Channel,
		Status:      models.DepositStatusPending,
		ExpiresAt:   m.now().Add(m.cfg.DepositTTL),
	}
	if err := m.orders.CreateDepositOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// MarkPaid records the external payment signal. Repeating the signal for an
// order that already advanced is a no-op returning the current state.
func (m *DepositManager) MarkPaid(ctx context.Context, orderNo, externalRef string) (*models.DepositOrder, error) {
	order, err := m.getDeposit(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if expired, err := m.ExpireIfDue(ctx, order); err != nil {
		return nil, err
	} else if expired {
		return nil, ErrOrderExpired
	}

	switch order.Status {
	case models.DepositStatusPaid, models.DepositStatusConfirmed:
		return order, nil
	case models.DepositStatusPending:
	default:
		return nil, ErrInvalidTransition
	}

	paidAt := m.now()
	err = m.orders.TransitionDeposit(ctx, orderNo,
		[]string{models.DepositStatusPending}, models.DepositStatusPaid,
		map[string]interface{}{"external_ref": externalRef, "paid_at": paidAt})
	if err != nil {
		if errors.Is(err, repositories.ErrStaleStatus) {
			return m.resolveStale(ctx, orderNo, models.DepositStatusPaid, models.DepositStatusConfirmed)
		}
		return nil, err
	}
	return m.getDeposit(ctx, orderNo)
}

// Confirm finalizes the order and credits the wallet through the mutator.
// It is terminal and idempotent. A replay against an already-confirmed order
// still re-runs the order-keyed credit: if a crash separated the status flip
// from the funds move the replay heals it, and otherwise the credit is a
// no-op. On a mutator failure the order status is rolled back so the signal
// can be replayed.
func (m *DepositManager) Confirm(ctx context.Context, orderNo, externalRef string) (*models.DepositOrder, error) {
	order, err := m.getDeposit(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order.Status == models.DepositStatusConfirmed {
		if _, err := m.mutator.Deposit(ctx, ledgerDeposit(order)); err != nil {
			return nil, err
		}
		return order, nil
	}
	if expired, err := m.ExpireIfDue(ctx, order); err != nil {
		return nil, err
	} else if expired {
		return nil, ErrOrderExpired
	}

	// Single-webhook gateways skip the paid signal, so pending confirms too.
	from := []string{models.DepositStatusPending, models.DepositStatusPaid}
	prev := order.Status
	confirmedAt := m.now()
	err = m.orders.TransitionDeposit(ctx, orderNo, from, models.DepositStatusConfirmed,
		map[string]interface{}{"external_ref": externalRef, "confirmed_at": confirmedAt})
	if err != nil {
		if errors.Is(err, repositories.ErrStaleStatus) {
			resolved, rerr := m.resolveStale(ctx, orderNo, models.DepositStatusConfirmed)
			if rerr != nil {
				return nil, rerr
			}
			// The racing confirmer owns the credit, but replay it anyway in
			// case that confirmer died between its flip and its funds move.
			if _, derr := m.mutator.Deposit(ctx, ledgerDeposit(resolved)); derr != nil {
				return nil, derr
			}
			return resolved, nil
		}
		return nil, err
	}

	_, err = m.mutator.Deposit(ctx, ledgerDeposit(order))
	if err != nil {
		// Roll the order back so a later confirm retries the credit.
		rbErr := m.orders.TransitionDeposit(ctx, orderNo,
			[]string{models.DepositStatusConfirmed}, prev,
			map[string]interface{}{"confirmed_at": nil})
		if rbErr != nil {
			return nil, errors.Join(err, rbErr)
		}
		return nil, err
	}
	return m.getDeposit(ctx, orderNo)
}

// Cancel is the user backing out of an unpaid order.
func (m *DepositManager) Cancel(ctx context.Context, orderNo string, userID uint) (*models.DepositOrder, error) {
	order, err := m.getDeposit(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if userID != 0 && order.UserID != userID {
		return nil, ErrNotOwner
	}
	if order.Status == models.DepositStatusCancelled {
		return order, nil
	}
	err = m.orders.TransitionDeposit(ctx, orderNo,
		[]string{models.DepositStatusPending}, models.DepositStatusCancelled, nil)
	if err != nil {
		if errors.Is(err, repositories.ErrStaleStatus) {
			return m.resolveStale(ctx, orderNo, models.DepositStatusCancelled)
		}
		return nil, err
	}
	return m.getDeposit(ctx, orderNo)
}

// IsExpired reports whether a pending order's payment window has passed.
func (m *DepositManager) IsExpired(order *models.DepositOrder) bool {
	return order.Status == models.DepositStatusPending && m.now().After(order.ExpiresAt)
}

// ExpireIfDue lazily expires the order on read, reloading it on success.
func (m *DepositManager) ExpireIfDue(ctx context.Context, order *models.DepositOrder) (bool, error) {
	if !m.IsExpired(order) {
		return false, nil
	}
	err := m.orders.TransitionDeposit(ctx, order.OrderNo,
		[]string{models.DepositStatusPending}, models.DepositStatusExpired, nil)
	if err != nil && !errors.Is(err, repositories.ErrStaleStatus) {
		return false, err
	}
	fresh, err := m.getDeposit(ctx, order.OrderNo)
	if err != nil {
		return false, err
	}
	*order = *fresh
	return order.Status == models.DepositStatusExpired, nil
}

// ExpireDue sweeps pending orders past their expiry. Meant to be driven by
// an external scheduler; safe to run concurrently with lazy expiry.
func (m *DepositManager) ExpireDue(ctx context.Context) (int, error) {
	due, err := m.orders.ListDueDeposits(ctx, m.now(), m.cfg.SweepBatchSize)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range due {
		err := m.orders.TransitionDeposit(ctx, due[i].OrderNo,
			[]string{models.DepositStatusPending}, models.DepositStatusExpired, nil)
		if err != nil {
			if errors.Is(err, repositories.ErrStaleStatus) {
				continue // paid or confirmed meanwhile
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (m *DepositManager) Get(ctx context.Context, orderNo string) (*models.DepositOrder, error) {
	return m.getDeposit(ctx, orderNo)
}

func (m *DepositManager) List(ctx context.Context, userID uint, status string, limit, offset int) ([]models.DepositOrder, int64, error) {
	return m.orders.ListDepositOrders(ctx, userID, status, limit, offset)
}

func (m *DepositManager) getDeposit(ctx context.Context, orderNo string) (*models.DepositOrder, error) {
	order, err := m.orders.GetDepositOrder(ctx, orderNo)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// ledgerDeposit maps a confirmed order onto the mutator's deposit, keyed on
// the order number so replayed confirmations cannot double-credit.
func ledgerDeposit(o *models.DepositOrder) ledger.DepositParams {
	return ledger.DepositParams{
		UserID:        o.UserID,
		Amount:        o.NetAmount,
		BonusAmount:   o.BonusAmount,
		OrderID:       o.OrderNo,
		Category:      "deposit",
		Description:   "deposit order confirmed",
		ReferenceID:   o.OrderNo,
		ReferenceType: "deposit_order",
		Metadata: map[string]interface{}{
			"method":       o.Method,
			"channel":      o.Channel,
			"external_ref": o.ExternalRef,
			"fee":          o.Fee,
		},
	}
}

// resolveStale re-reads after a lost transition race; if the order landed in
// one of the acceptable states the race was benign.
func (m *DepositManager) resolveStale(ctx context.Context, orderNo string, acceptable ...string) (*models.DepositOrder, error) {
	order, err := m.getDeposit(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	for _, s := range acceptable {
		if order.Status == s {
			return order, nil
		}
	}
	return nil, ErrInvalidTransition
}
