package ledger

import "time"

// Default configuration values
const (
	DefaultMaxRetries   = 4
	DefaultRetryBackoff = 10 * time.Millisecond
	DefaultCacheTTL     = 5 * time.Minute
)

// Cache key prefix for wallet reads
const walletCacheEntity = "wallet"

// Order id prefixes for internally generated idempotency keys
const (
	refundOrderPrefix = "RF-"
	adjustOrderPrefix = "ADJ-"
)
