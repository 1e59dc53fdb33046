package ledger

import "errors"

// Service errors
var (
	// ErrInsufficientFunds is terminal: the wallet cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConcurrentModification surfaces after the bounded optimistic retry
	// is exhausted. Callers may retry the whole operation.
	ErrConcurrentModification = errors.New("concurrent wallet modification")

	ErrWalletClosed  = errors.New("wallet is closed")
	ErrWalletFrozen  = errors.New("wallet is frozen")
	ErrNotRefundable = errors.New("entry is not refundable")
	ErrOrderNotFound = errors.New("order not found")

	ErrInvalidAmount  = errors.New("invalid amount")
	ErrMissingOrderID = errors.New("order id is required")

	// ErrReservationMismatch means a release or settle asked for more than the
	// wallet's frozen pool holds; it indicates a caller bug, never user input.
	ErrReservationMismatch = errors.New("reservation amount mismatch")
)
