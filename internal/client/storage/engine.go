package storage

import (
	"context"

	"github.com/iudanet/coinkeeper/internal/crdt"
)

// EngineState is the durable part of the sync engine: the device identity,
// the local operation sequence and the current vector clock. It survives
// restarts so the clock never rolls back.
type EngineState struct {
	Clock    crdt.VectorClock `json:"clock"`
	DeviceID string           `json:"device_id"`
	Seq      uint64           `json:"seq"`
}

// OutboxStorage persists operations sent but not yet acknowledged, or
// queued while offline. Pending returns entries in original creation order
// (FIFO) so intra-device causal order is preserved on retry.
type OutboxStorage interface {
	// Enqueue appends an operation to the outbox.
	Enqueue(ctx context.Context, op *crdt.Operation) error

	// Remove deletes an operation after acknowledgment.
	// Returns ErrOperationNotFound if the operation is not queued.
	Remove(ctx context.Context, opID string) error

	// Pending returns all queued operations in creation order.
	Pending(ctx context.Context) ([]*crdt.Operation, error)

	// PendingForEntity returns the oldest queued operation targeting the
	// entity. Returns ErrOperationNotFound if none is queued.
	PendingForEntity(ctx context.Context, entityType, entityID string) (*crdt.Operation, error)

	// Len returns the number of queued operations.
	Len(ctx context.Context) (int, error)
}

// StateStorage persists the engine state and the applied-operation log used
// to make remote applies idempotent.
type StateStorage interface {
	// SaveState stores the engine state.
	SaveState(ctx context.Context, state *EngineState) error

	// GetState retrieves the engine state.
	// Returns ErrStateNotFound on first run.
	GetState(ctx context.Context) (*EngineState, error)

	// MarkApplied records an operation as applied at this device.
	MarkApplied(ctx context.Context, op *crdt.Operation) error

	// GetApplied returns a previously applied operation.
	// Returns ErrOperationNotFound if the identifier was never applied.
	GetApplied(ctx context.Context, opID string) (*crdt.Operation, error)
}

// ConflictStorage persists unresolved conflicts until they are manually
// resolved or superseded by a newer operation on the same entity.
type ConflictStorage interface {
	// SaveConflict stores a pending conflict keyed by its identifier.
	SaveConflict(ctx context.Context, conflict *crdt.Conflict) error

	// GetConflict retrieves a pending conflict.
	// Returns ErrConflictNotFound if it does not exist.
	GetConflict(ctx context.Context, id string) (*crdt.Conflict, error)

	// ListConflicts returns all pending conflicts.
	ListConflicts(ctx context.Context) ([]*crdt.Conflict, error)

	// DeleteConflict removes a conflict after resolution.
	DeleteConflict(ctx context.Context, id string) error

	// DeleteConflictsForEntity removes conflicts superseded by a newer
	// operation on the entity.
	DeleteConflictsForEntity(ctx context.Context, entityType, entityID string) error
}
