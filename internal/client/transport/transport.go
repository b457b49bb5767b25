// Package transport abstracts the message channel between the sync engine
// and its remote peer. The engine consumes this interface only; the
// concrete implementation is a WebSocket connection to the sync server.
package transport

import "context"

//go:generate moq -out transport_mock.go . Transport

// ConnState describes the connection lifecycle reported on the state
// stream.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns a human-readable name for the state.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Transport carries raw message bytes between the engine and its peer.
//
// Implementations must report every lifecycle change on the States channel
// and deliver inbound messages on the Receive channel. A failed Send leaves
// the caller responsible for retry; the transport never buffers outbound
// messages itself.
type Transport interface {
	// Connect establishes the connection to the peer. It may be called
	// again after a disconnect.
	Connect(ctx context.Context) error

	// Send delivers one message to the peer.
	Send(ctx context.Context, data []byte) error

	// Receive returns the inbound message stream.
	Receive() <-chan []byte

	// States returns the connection-state stream.
	States() <-chan ConnState

	// Close tears the connection down; both streams go quiet afterwards.
	Close() error
}
