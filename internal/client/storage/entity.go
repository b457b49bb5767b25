package storage

import (
	"context"

	"github.com/iudanet/coinkeeper/internal/crdt"
)

//go:generate moq -out entitystore_mock.go . EntityStore

// EntityStore holds the current state of synchronized entities on the
// client. The sync core never inspects the persisted schema; payload fields
// pass through opaquely.
type EntityStore interface {
	// Apply commits one mutation to the local entity state. Create stores
	// the payload, update overlays the given fields onto the existing
	// payload, delete removes the entity.
	Apply(ctx context.Context, entityType, entityID string, kind crdt.OperationKind, payload crdt.Payload) error

	// Query returns the current payload of an entity.
	// Returns ErrEntityNotFound if the entity does not exist.
	Query(ctx context.Context, entityType, entityID string) (crdt.Payload, error)

	// List returns the payloads of all entities of a type, keyed by entity
	// ID.
	List(ctx context.Context, entityType string) (map[string]crdt.Payload, error)
}
