package repositories

import "errors"

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrEntryNotFound  = errors.New("ledger entry not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrUserNotFound   = errors.New("user not found")

	// ErrVersionConflict means a conditional wallet update matched zero rows:
	// another writer bumped the version between our read and write.
	ErrVersionConflict = errors.New("wallet version conflict")

	// ErrDuplicateOrder means an entry with the same order id already exists.
	ErrDuplicateOrder = errors.New("duplicate order id")

	// ErrStaleStatus means a guarded status transition matched zero rows:
	// the order is no longer in any of the expected source states.
	ErrStaleStatus = errors.New("order status changed concurrently")
)
