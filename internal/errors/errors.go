// Package errors defines the domain error carrier used at the HTTP boundary.
package errors

import "fmt"

// DomainError pairs a stable machine-readable code with a human message.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
