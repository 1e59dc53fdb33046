package order

import (
	"context"
	"time"

	"aurum/internal/services/ledger"
)

// Mutator is the slice of the ledger service the order manager drives.
type Mutator interface {
	Deposit(ctx context.Context, p ledger.DepositParams) (*ledger.Result, error)
	Reserve(ctx context.Context, userID uint, amount int64, orderNo string) error
	Release(ctx context.Context, userID uint, amount int64, orderNo string) error
	Settle(ctx context.Context, userID uint, amount int64, orderNo string) (*ledger.Result, error)
}

// Config holds order lifecycle tunables.
type Config struct {
	// DepositTTL is how long a pending deposit order stays payable.
	DepositTTL time.Duration
	// DepositFeeBps / WithdrawFeeBps are fees in basis points of the amount.
	DepositFeeBps  int64
	WithdrawFeeBps int64
	// SweepBatchSize bounds one ExpireDue pass.
	SweepBatchSize int
}

// Default configuration values
const (
	DefaultDepositTTL     = 30 * time.Minute
	DefaultWithdrawFeeBps = 100
	DefaultSweepBatchSize = 200
)

// CreateDepositParams describes a new deposit order request.
type CreateDepositParams struct {
	UserID      uint
	Amount      int64
	BonusAmount int64
	Method      string
	Channel     string
}

// CreateWithdrawParams describes a new payout request.
type CreateWithdrawParams struct {
	UserID      uint
	Amount      int64
	Destination string
	Method      string
}

func feeOf(amount, bps int64) int64 {
	return amount * bps / 10000
}
