package ledger

import (
	"context"

	"aurum/internal/models"
	"aurum/internal/repositories"
)

// Service is the balance mutator: the only code path allowed to change a
// wallet's balance pools and the sole writer of ledger entries.
type Service interface {
	// Core mutations
	Deposit(ctx context.Context, p DepositParams) (*Result, error)
	Consume(ctx context.Context, p ConsumeParams) (*Result, error)
	Refund(ctx context.Context, p RefundParams) (*Result, error)
	Adjust(ctx context.Context, p AdjustParams) (*Result, error)

	// Withdrawal reservation lifecycle. These are the only movements between
	// the spendable and frozen pools; idempotency is supplied by the order
	// manager's status guards, not by order-id replay.
	Reserve(ctx context.Context, userID uint, amount int64, orderNo string) error
	Release(ctx context.Context, userID uint, amount int64, orderNo string) error
	Settle(ctx context.Context, userID uint, amount int64, orderNo string) (*Result, error)

	// Reads
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID uint) (int64, error)
	ListEntries(ctx context.Context, userID uint, filter repositories.EntryFilter, limit, offset int) ([]models.LedgerEntry, int64, error)

	// Wallet status management
	FreezeWallet(ctx context.Context, userID uint, reason string) error
	UnfreezeWallet(ctx context.Context, userID uint) error
	CloseWallet(ctx context.Context, userID uint, reason string) error
}
