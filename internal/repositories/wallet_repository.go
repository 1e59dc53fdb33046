package repositories

import (
	"context"
	"time"

	"aurum/internal/models"
)

// EntryFilter narrows ListEntries results. Zero values mean "no filter".
type EntryFilter struct {
	Type     string
	Category string
	Status   string
	From     time.Time
	To       time.Time
}

// WalletRepository is the ledger store: wallets plus their append-only entry
// history. The unique index on ledger_entries.order_id is the idempotency
// backstop; UpdateWithVersion is the optimistic-concurrency primitive.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)

	// CreateIfAbsent returns the user's wallet, creating it on first access.
	CreateIfAbsent(ctx context.Context, userID uint) (*models.Wallet, error)

	// UpdateWithVersion writes the wallet's balance fields conditioned on the
	// version read earlier (WHERE id = ? AND version = ?). Zero rows affected
	// is reported as ErrVersionConflict; on success the in-memory version is
	// bumped to match the stored row.
	UpdateWithVersion(ctx context.Context, wallet *models.Wallet) error

	// UpdateStatus changes only the wallet's status and reason, unconditionally.
	UpdateStatus(ctx context.Context, walletID uint, status, reason string) error

	// AppendEntry records one immutable ledger entry. A duplicate order id is
	// reported as ErrDuplicateOrder.
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error

	GetEntryByOrderID(ctx context.Context, orderID string) (*models.LedgerEntry, error)

	// MarkEntryRefunded is the single permitted mutation of an existing entry.
	MarkEntryRefunded(ctx context.Context, entryID uint) error

	ListEntries(ctx context.Context, userID uint, filter EntryFilter, limit, offset int) ([]models.LedgerEntry, int64, error)

	// SumConsumedSince totals the successful consume entries for a user and
	// category recorded at or after the given instant (rolling ceilings).
	SumConsumedSince(ctx context.Context, userID uint, category string, since time.Time) (int64, error)

	// ExecuteInTransaction runs fn against a repository bound to one storage
	// transaction; any error rolls the whole transaction back.
	ExecuteInTransaction(fn func(WalletRepository) error) error
}
