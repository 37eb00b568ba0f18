package ticket

import "errors"

var (
	// ErrNotFound indicates the backend has no such ticket.
	ErrNotFound = errors.New("ticket not found")
	// ErrInvalidKey indicates a malformed ticket key.
	ErrInvalidKey = errors.New("invalid ticket key")
	// ErrInvalidInput indicates invalid input for a ticket operation.
	ErrInvalidInput = errors.New("invalid ticket input")
)
