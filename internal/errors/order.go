package errors

var (
	ErrOrderNotFound = &DomainError{
		Code:    "ORDER_NOT_FOUND",
		Message: "order not found",
	}
	ErrOrderExpired = &DomainError{
		Code:    "ORDER_EXPIRED",
		Message: "order has expired",
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "order state does not allow this operation",
	}
)
