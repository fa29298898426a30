package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in
	// the store. Entity-specific variants below wrap it so callers can
	// match either form with errors.Is.
	ErrNotFound = errors.New("entity not found")

	// ErrNotInitialized is returned when the persistence layer is
	// unavailable or was never opened. It is fatal and is surfaced
	// immediately, never silently retried.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrInvalidEntity is returned when an entity fails validation
	// before being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrDuplicateEntity is returned when an insert collides with an
	// existing row (same primary key or unique constraint).
	ErrDuplicateEntity = errors.New("entity already exists")

	// ErrTransactionFailed is returned when a transaction fails to
	// commit or an operation within it fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors.

	// ErrCardNotFound indicates the requested card does not exist.
	ErrCardNotFound = fmt.Errorf("%w: card", ErrNotFound)

	// ErrDeckNotFound indicates the requested deck does not exist.
	ErrDeckNotFound = fmt.Errorf("%w: deck", ErrNotFound)

	// ErrProfileNotFound indicates the requested profile does not exist.
	ErrProfileNotFound = fmt.Errorf("%w: profile", ErrNotFound)

	// ErrSessionNotFound indicates the requested review session does
	// not exist.
	ErrSessionNotFound = fmt.Errorf("%w: review session", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
