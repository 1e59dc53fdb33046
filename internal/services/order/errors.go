package order

import "errors"

// Service errors
var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition means the order is in a state the requested
	// transition cannot leave from (and is not the idempotent-no-op case).
	ErrInvalidTransition = errors.New("invalid order state transition")

	ErrOrderExpired  = errors.New("deposit order expired")
	ErrNotOwner      = errors.New("order belongs to another user")
	ErrInvalidAmount = errors.New("invalid amount")
)
