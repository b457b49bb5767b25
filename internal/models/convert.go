package models

import (
	"fmt"

	"github.com/iudanet/coinkeeper/internal/crdt"
	"github.com/iudanet/coinkeeper/pkg/api"
)

// OperationToAPI converts an internal operation to its wire form.
func OperationToAPI(op *crdt.Operation) api.Operation {
	return api.Operation{
		ID:         op.ID,
		EntityType: op.EntityType,
		EntityID:   op.EntityID,
		DeviceID:   op.DeviceID,
		Kind:       string(op.Kind),
		Payload:    op.Payload.Clone(),
		Clock:      op.Clock.Clone(),
		Timestamp:  op.Timestamp,
	}
}

// OperationsToAPI converts a batch of operations preserving order.
func OperationsToAPI(ops []*crdt.Operation) []api.Operation {
	out := make([]api.Operation, 0, len(ops))
	for _, op := range ops {
		out = append(out, OperationToAPI(op))
	}
	return out
}

// OperationFromAPI validates and converts a wire operation into the
// internal form.
func OperationFromAPI(wire api.Operation) (*crdt.Operation, error) {
	kind := crdt.OperationKind(wire.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("operation %s: unknown kind %q", wire.ID, wire.Kind)
	}
	if wire.ID == "" || wire.DeviceID == "" {
		return nil, fmt.Errorf("operation is missing identifiers")
	}
	if wire.EntityType == "" || wire.EntityID == "" {
		return nil, fmt.Errorf("operation %s: missing entity reference", wire.ID)
	}
	if len(wire.Clock) == 0 {
		return nil, fmt.Errorf("operation %s: %w", wire.ID, crdt.ErrMissingClock)
	}

	op := &crdt.Operation{
		ID:         wire.ID,
		EntityType: wire.EntityType,
		EntityID:   wire.EntityID,
		Kind:       kind,
		Payload:    crdt.Payload(wire.Payload).Clone(),
		Clock:      crdt.VectorClock(wire.Clock).Clone(),
		DeviceID:   wire.DeviceID,
		Timestamp:  wire.Timestamp,
	}
	return op, nil
}

// OperationsFromAPI converts a batch, failing on the first invalid entry.
func OperationsFromAPI(wire []api.Operation) ([]*crdt.Operation, error) {
	out := make([]*crdt.Operation, 0, len(wire))
	for _, w := range wire {
		op, err := OperationFromAPI(w)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}
