package crdt

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// OperationKind enumerates the mutation kinds carried by an operation.
type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

// Valid reports whether the kind is one of the known mutation kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case OpCreate, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}

// Payload is the flat field-to-value mapping carried by create and update
// operations. The sync core never interprets field names; values are the
// scalars JSON produces (string, float64, bool, nil).
type Payload map[string]any

// Clone returns an independent copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	cloned := make(Payload, len(p))
	maps.Copy(cloned, p)
	return cloned
}

// Operation is an immutable record of one local or remote mutation targeting
// a single entity.
//
// The ID is the originating device identifier plus that device's local
// sequence number, which is unique without relying on wall-clock time. The
// clock snapshot is taken immediately after the increment that produced the
// operation, so Clock[DeviceID] equals the local counter at creation time;
// receivers rely on that to compute causal relationships. Timestamp is a
// tie-breaker only, never the primary ordering signal.
type Operation struct {
	Timestamp  time.Time     `json:"timestamp"`
	Clock      VectorClock   `json:"clock"`
	Payload    Payload       `json:"payload,omitempty"`
	ID         string        `json:"id"`
	EntityType string        `json:"entity_type"`
	EntityID   string        `json:"entity_id"`
	DeviceID   string        `json:"device_id"`
	Kind       OperationKind `json:"kind"`
}

// OperationID builds the globally unique identifier for the seq-th operation
// of a device.
func OperationID(deviceID string, seq uint64) string {
	return fmt.Sprintf("%s:%d", deviceID, seq)
}

// ParseOperationID splits an operation identifier back into the device ID
// and sequence number it was built from. Device IDs never contain a colon,
// so the last separator is unambiguous.
func ParseOperationID(id string) (string, uint64, error) {
	idx := strings.LastIndexByte(id, ':')
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, fmt.Errorf("malformed operation id: %q", id)
	}
	seq, err := strconv.ParseUint(id[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed operation id: %q", id)
	}
	return id[:idx], seq, nil
}

// NewOperation stamps a new operation with its origin and creation time.
// clock must already incorporate the increment that produced this operation.
func NewOperation(deviceID string, seq uint64, entityType, entityID string, kind OperationKind, payload Payload, clock VectorClock) *Operation {
	if kind == OpDelete {
		payload = nil
	}
	return &Operation{
		ID:         OperationID(deviceID, seq),
		EntityType: entityType,
		EntityID:   entityID,
		Kind:       kind,
		Payload:    payload.Clone(),
		Clock:      clock.Clone(),
		DeviceID:   deviceID,
		Timestamp:  time.Now().UTC(),
	}
}

// SameEntity reports whether both operations target the same entity.
func (op *Operation) SameEntity(other *Operation) bool {
	return op.EntityType == other.EntityType && op.EntityID == other.EntityID
}

// Equal treats two operations with the same identifier as the same logical
// event regardless of payload. Content divergence under a shared ID is an
// integrity violation detected by the resolver, not here.
func (op *Operation) Equal(other *Operation) bool {
	return other != nil && op.ID == other.ID
}

// Clone returns a deep copy; the payload and clock are independent of the
// original.
func (op *Operation) Clone() *Operation {
	cloned := *op
	cloned.Payload = op.Payload.Clone()
	cloned.Clock = op.Clock.Clone()
	return &cloned
}
