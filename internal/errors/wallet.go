package errors

var (
	ErrInsufficientBalance = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient wallet balance",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrConcurrentUpdate = &DomainError{
		Code:    "CONCURRENT_MODIFICATION",
		Message: "wallet was modified concurrently, retry the operation",
	}
	ErrWalletFrozen = &DomainError{
		Code:    "WALLET_FROZEN",
		Message: "wallet is frozen",
	}
	ErrWalletClosed = &DomainError{
		Code:    "WALLET_CLOSED",
		Message: "wallet is closed",
	}
	ErrNotRefundable = &DomainError{
		Code:    "NOT_REFUNDABLE",
		Message: "entry is not refundable",
	}
)
