package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrEntityNotFound indicates that the entity does not exist locally
	ErrEntityNotFound = errors.New("entity not found")

	// ErrOperationNotFound indicates that the operation is not in the outbox
	// or applied log
	ErrOperationNotFound = errors.New("operation not found")

	// ErrConflictNotFound indicates that no pending conflict exists for the
	// given identifier
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrStateNotFound indicates that no persisted engine state exists yet
	ErrStateNotFound = errors.New("engine state not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
