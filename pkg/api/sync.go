// Package api defines the wire-level DTOs exchanged between CoinKeeper
// clients and the sync server. Types here are standalone JSON shapes;
// conversion to internal models happens at the engine and server boundary.
package api

import "time"

// MessageKind identifies the purpose of a sync envelope.
type MessageKind string

const (
	// MessageOperationPush carries freshly recorded operations to a peer.
	MessageOperationPush MessageKind = "operation_push"
	// MessageSyncRequest asks the peer for every operation the sender has
	// not yet observed, described by the sender's vector clock.
	MessageSyncRequest MessageKind = "sync_request"
	// MessageSyncResponse answers a sync request with the missing
	// operations and the responder's merged clock.
	MessageSyncResponse MessageKind = "sync_response"
	// MessageAck confirms that pushed operations were durably ingested.
	MessageAck MessageKind = "ack"
	// MessageError reports a peer-side failure tied to a correlation ID.
	MessageError MessageKind = "error"
)

// Operation is the wire form of a single sync operation.
type Operation struct {
	Timestamp  time.Time         `json:"timestamp"`
	Payload    map[string]any    `json:"payload,omitempty"`
	Clock      map[string]uint64 `json:"clock"`
	ID         string            `json:"id"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	DeviceID   string            `json:"device_id"`
	Kind       string            `json:"kind"`
}

// Message is the self-describing envelope for all sync traffic. Which
// fields are populated depends on Kind:
//
//   - operation_push: Operations
//   - sync_request:   Clock, CorrelationID
//   - sync_response:  Operations, Clock, CorrelationID, Final on the
//     terminal message of the session
//   - ack:            AckIDs
//   - error:          Error, CorrelationID when tied to a request
type Message struct {
	Clock         map[string]uint64 `json:"clock,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	DeviceID      string            `json:"device_id,omitempty"`
	Error         string            `json:"error,omitempty"`
	Operations    []Operation       `json:"operations,omitempty"`
	AckIDs        []string          `json:"ack_ids,omitempty"`
	Kind          MessageKind       `json:"kind"`
	Final         bool              `json:"final,omitempty"`
}
