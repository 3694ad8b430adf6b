package repository

import "errors"

// Common repository errors.
// These errors provide a consistent error interface across different storage implementations.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRecord indicates a stored record is missing required fields.
	ErrInvalidRecord = errors.New("invalid record")
)
