package order

import (
	"context"
	"errors"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories"

	"github.com/google/uuid"
)

// WithdrawManager runs the payout state machine:
//
//	pending -> approved -> processing -> completed
//	pending -> rejected
//	pending | approved -> cancelled
//
// Creating an order reserves the amount into the wallet's frozen pool;
// every resolving transition settles or returns that reservation exactly
// once, guarded by a conditional status update. Re-resolving an
// already-resolved order is a no-op that returns the current state so
// unreliable external callers can retry safely.
type WithdrawManager struct {
	orders  repositories.OrderRepository
	mutator Mutator
	cfg     Config
	now     func() time.Time
}

func NewWithdrawManager(orders repositories.OrderRepository, mutator Mutator, cfg Config) *WithdrawManager {
	if orders == nil {
		panic("order repository is required")
	}
	if mutator == nil {
		panic("mutator is required")
	}
	if cfg.WithdrawFeeBps == 0 {
		cfg.WithdrawFeeBps = DefaultWithdrawFeeBps
	}
	return &WithdrawManager{orders: orders, mutator: mutator, cfg: cfg, now: time.Now}
}

// Create reserves the funds first, then records the order; a failed insert
// releases the reservation again.
func (m *WithdrawManager) Create(ctx context.Context, p CreateWithdrawParams) (*models.WithdrawOrder, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if p.Destination == "" {
		return nil, errors.New("destination is required")
	}

	orderNo := uuid.New().String()
	if err := m.mutator.Reserve(ctx, p.UserID, p.Amount, orderNo); err != nil {
		return nil, err
	}

	fee := feeOf(p.Amount, m.cfg.WithdrawFeeBps)
	order := &models.WithdrawOrder{
		OrderNo:     orderNo,
		UserID:      p.UserID,
		Amount:      p.Amount,
		Fee:         fee,
		NetAmount:   p.Amount - fee,
		Destination: p.Destination,
		Method:      p.Method,
		Status:      models.WithdrawStatusPending,
	}
	if err := m.orders.CreateWithdrawOrder(ctx, order); err != nil {
		if relErr := m.mutator.Release(ctx, p.UserID, p.Amount, orderNo); relErr != nil {
			return nil, errors.Join(err, relErr)
		}
		return nil, err
	}
	return order, nil
}

// Approve moves a pending order into review-approved state.
func (m *WithdrawManager) Approve(ctx context.Context, orderNo string, reviewerID uint) (*models.WithdrawOrder, error) {
	return m.transition(ctx, orderNo,
		[]string{models.WithdrawStatusPending}, models.WithdrawStatusApproved,
		map[string]interface{}{"reviewer_id": reviewerID}, nil)
}

// MarkProcessing flags an approved order as handed to the payout channel.
func (m *WithdrawManager) MarkProcessing(ctx context.Context, orderNo string) (*models.WithdrawOrder, error) {
	return m.transition(ctx, orderNo,
		[]string{models.WithdrawStatusApproved}, models.WithdrawStatusProcessing, nil, nil)
}

// Complete settles the reservation: frozen funds become total withdrawn and
// the withdraw ledger entry is written. A replay against an already-completed
// order still re-runs the order-keyed settlement: if a crash separated the
// status flip from the funds move the replay heals it, and otherwise the
// settlement is a no-op. Rejected and cancelled stay plain no-ops because
// Release carries no order key of its own.
func (m *WithdrawManager) Complete(ctx context.Context, orderNo, externalRef string) (*models.WithdrawOrder, error) {
	order, err := m.getWithdraw(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order.Status == models.WithdrawStatusCompleted {
		if _, err := m.mutator.Settle(ctx, order.UserID, order.Amount, order.OrderNo); err != nil {
			return nil, err
		}
		return order, nil
	}
	return m.transition(ctx, orderNo,
		[]string{models.WithdrawStatusApproved, models.WithdrawStatusProcessing},
		models.WithdrawStatusCompleted,
		map[string]interface{}{"external_ref": externalRef},
		func(ctx context.Context, o *models.WithdrawOrder) error {
			_, err := m.mutator.Settle(ctx, o.UserID, o.Amount, o.OrderNo)
			return err
		})
}

// Reject returns the reservation to the spendable balance.
func (m *WithdrawManager) Reject(ctx context.Context, orderNo string, reviewerID uint, reason string) (*models.WithdrawOrder, error) {
	return m.transition(ctx, orderNo,
		[]string{models.WithdrawStatusPending}, models.WithdrawStatusRejected,
		map[string]interface{}{"reviewer_id": reviewerID, "reason": reason},
		func(ctx context.Context, o *models.WithdrawOrder) error {
			return m.mutator.Release(ctx, o.UserID, o.Amount, o.OrderNo)
		})
}

// Cancel is the user (or admin, userID zero) withdrawing the request before
// it reaches the payout channel.
func (m *WithdrawManager) Cancel(ctx context.Context, orderNo string, userID uint) (*models.WithdrawOrder, error) {
	order, err := m.getWithdraw(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if userID != 0 && order.UserID != userID {
		return nil, ErrNotOwner
	}
	return m.transition(ctx, orderNo,
		[]string{models.WithdrawStatusPending, models.WithdrawStatusApproved},
		models.WithdrawStatusCancelled, nil,
		func(ctx context.Context, o *models.WithdrawOrder) error {
			return m.mutator.Release(ctx, o.UserID, o.Amount, o.OrderNo)
		})
}

func (m *WithdrawManager) Get(ctx context.Context, orderNo string) (*models.WithdrawOrder, error) {
	return m.getWithdraw(ctx, orderNo)
}

func (m *WithdrawManager) List(ctx context.Context, userID uint, status string, limit, offset int) ([]models.WithdrawOrder, int64, error) {
	return m.orders.ListWithdrawOrders(ctx, userID, status, limit, offset)
}

// transition performs one guarded state change, then the funds move, rolling
// the status back if the mutator fails so the transition can be retried.
func (m *WithdrawManager) transition(
	ctx context.Context,
	orderNo string,
	from []string,
	to string,
	updates map[string]interface{},
	settle func(context.Context, *models.WithdrawOrder) error,
) (*models.WithdrawOrder, error) {
	order, err := m.getWithdraw(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	// Idempotent no-ops: already in the target state, or already resolved.
	if order.Status == to || order.Resolved() {
		return order, nil
	}

	prev := order.Status
	if err := m.orders.TransitionWithdraw(ctx, orderNo, from, to, updates); err != nil {
		if errors.Is(err, repositories.ErrStaleStatus) {
			// Lost the race; the re-read applies the same no-op rules.
			fresh, getErr := m.getWithdraw(ctx, orderNo)
			if getErr != nil {
				return nil, getErr
			}
			if fresh.Status == to || fresh.Resolved() {
				return fresh, nil
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if settle != nil {
		if err := settle(ctx, order); err != nil {
			rbErr := m.orders.TransitionWithdraw(ctx, orderNo, []string{to}, prev, nil)
			if rbErr != nil {
				return nil, errors.Join(err, rbErr)
			}
			return nil, err
		}
	}
	return m.getWithdraw(ctx, orderNo)
}

func (m *WithdrawManager) getWithdraw(ctx context.Context, orderNo string) (*models.WithdrawOrder, error) {
	order, err := m.orders.GetWithdrawOrder(ctx, orderNo)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}
