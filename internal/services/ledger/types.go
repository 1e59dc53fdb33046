package ledger

import (
	"context"
	"time"

	"aurum/internal/models"
)

// DepositParams describes a credit to a wallet. OrderID is the caller's
// idempotency key; replaying it returns the original entry unapplied.
type DepositParams struct {
	UserID        uint
	Amount        int64
	BonusAmount   int64
	OrderID       string
	Category      string
	Description   string
	ReferenceID   string
	ReferenceType string
	Metadata      map[string]interface{}
}

// ConsumeParams describes a spend. PreferBonus selects which pool is drawn
// first; the remainder spills to the other pool.
type ConsumeParams struct {
	UserID        uint
	Amount        int64
	Category      string
	OrderID       string
	PreferBonus   bool
	Description   string
	ReferenceID   string
	ReferenceType string
	Metadata      map[string]interface{}
}

// RefundParams reverses (part of) a prior consume identified by its order id.
// Amount zero means a full refund.
type RefundParams struct {
	UserID          uint
	OriginalOrderID string
	Amount          int64
	Reason          string
}

// AdjustParams is the administrative correction path. Amount is signed and
// applies to the main pool only.
type AdjustParams struct {
	UserID        uint
	Amount        int64
	Reason        string
	ActorID       uint
	AllowNegative bool
}

// Result reports the outcome of a mutation. Applied is false when the order
// id had already been recorded: the returned Entry is the original one and no
// balance change happened on this call. Wallet is set only when Applied.
type Result struct {
	Entry   *models.LedgerEntry
	Wallet  *models.Wallet
	Applied bool
}

// Config holds the tunables of the ledger service.
type Config struct {
	// MaxRetries bounds the optimistic-lock retry loop.
	MaxRetries int
	// RetryBackoff is the base delay between retries; attempt n waits n times
	// this long.
	RetryBackoff time.Duration
	CacheTTL     time.Duration
}

// Cache is the slice of the cache service the ledger needs.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GenerateKey(entityType, keyType string, value interface{}) string
}

// MetricsCollector receives mutation outcomes. A nil collector is replaced
// with a no-op implementation.
type MetricsCollector interface {
	RecordMutation(op string, amount int64)
	RecordRetry(op string, attempt int)
	RecordError(op string, errType string)
}
