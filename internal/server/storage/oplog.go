package storage

import (
	"context"

	"github.com/iudanet/coinkeeper/internal/crdt"
)

// OplogStorage defines the interface for the per-user operation log. The
// log is append-only; operation identifiers are unique, so re-ingesting a
// delivered operation is a no-op.
type OplogStorage interface {
	// AppendOperation stores one operation for a user. Returns false
	// without error when the operation ID is already present.
	AppendOperation(ctx context.Context, userID string, op *crdt.Operation) (bool, error)

	// MissingOperations returns all stored operations the given clock has
	// not observed, ordered by device ID and per-device sequence so each
	// device's operations arrive in causal order.
	MissingOperations(ctx context.Context, userID string, clock crdt.VectorClock) ([]*crdt.Operation, error)

	// OperationCount returns the number of logged operations for a user.
	OperationCount(ctx context.Context, userID string) (int, error)
}

// ClockStorage persists the server's merged vector clock per user. The
// clock summarizes everything in the user's oplog.
type ClockStorage interface {
	// GetClock returns the user's merged clock, an empty clock when the
	// user has no operations yet.
	GetClock(ctx context.Context, userID string) (crdt.VectorClock, error)

	// MergeClock folds the given clock into the stored one and returns
	// the merged result.
	MergeClock(ctx context.Context, userID string, clock crdt.VectorClock) (crdt.VectorClock, error)
}

// EntityStorage maintains the server-side materialized entity state so a
// fresh device can be audited or inspected without replaying the oplog.
type EntityStorage interface {
	// ApplyEntity applies one operation's effect to the materialized
	// state. Deletes are soft so concurrent writers still see the tomb.
	ApplyEntity(ctx context.Context, userID string, op *crdt.Operation) error

	// GetEntity returns the materialized payload for an entity.
	// Returns ErrEntityNotFound when absent or deleted.
	GetEntity(ctx context.Context, userID, entityType, entityID string) (crdt.Payload, error)

	// ListEntities returns all live entities of one type for a user,
	// keyed by entity ID.
	ListEntities(ctx context.Context, userID, entityType string) (map[string]crdt.Payload, error)
}
