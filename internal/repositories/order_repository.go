package repositories

import (
	"context"
	"time"

	"aurum/internal/models"
)

// OrderRepository persists deposit and withdraw orders. Status transitions go
// through the guarded Transition* methods so a resolving move can only win
// once; losing a race surfaces as ErrStaleStatus and the caller re-reads.
type OrderRepository interface {
	CreateDepositOrder(ctx context.Context, order *models.DepositOrder) error
	GetDepositOrder(ctx context.Context, orderNo string) (*models.DepositOrder, error)
	ListDepositOrders(ctx context.Context, userID uint, status string, limit, offset int) ([]models.DepositOrder, int64, error)

	// TransitionDeposit moves the order from one of the expected statuses to
	// the target status, applying updates atomically. Zero rows affected is
	// reported as ErrStaleStatus.
	TransitionDeposit(ctx context.Context, orderNo string, from []string, to string, updates map[string]interface{}) error

	// ListDueDeposits returns pending deposit orders whose expiry passed.
	ListDueDeposits(ctx context.Context, cutoff time.Time, limit int) ([]models.DepositOrder, error)

	CreateWithdrawOrder(ctx context.Context, order *models.WithdrawOrder) error
	GetWithdrawOrder(ctx context.Context, orderNo string) (*models.WithdrawOrder, error)
	ListWithdrawOrders(ctx context.Context, userID uint, status string, limit, offset int) ([]models.WithdrawOrder, int64, error)
	TransitionWithdraw(ctx context.Context, orderNo string, from []string, to string, updates map[string]interface{}) error
}
