package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// TokenProvider returns the current access token for the WebSocket
// handshake. It is called on every Connect so a refreshed token is picked
// up automatically.
type TokenProvider func(ctx context.Context) (string, error)

// WSTransport is a WebSocket implementation of Transport backed by
// gorilla/websocket. One instance manages at most one live connection;
// Connect may be called again after a drop.
type WSTransport struct {
	endpoint string
	tokens   TokenProvider

	mu      sync.Mutex // guards conn and writes
	conn    *websocket.Conn
	receive chan []byte
	states  chan ConnState
	done    chan struct{}
	closed  bool
}

var _ Transport = (*WSTransport)(nil)

// NewWSTransport creates a transport dialing the given ws:// or wss://
// endpoint. tokens supplies the bearer token for the handshake.
func NewWSTransport(endpoint string, tokens TokenProvider) *WSTransport {
	return &WSTransport{
		endpoint: endpoint,
		tokens:   tokens,
		receive:  make(chan []byte, 64),
		states:   make(chan ConnState, 8),
	}
}

// Connect dials the sync endpoint and starts the read pump.
func (t *WSTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	t.emitState(StateConnecting)

	header := http.Header{}
	if t.tokens != nil {
		token, err := t.tokens(ctx)
		if err != nil {
			t.emitState(StateDisconnected)
			return fmt.Errorf("failed to get access token: %w", err)
		}
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, t.endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.emitState(StateDisconnected)
		return fmt.Errorf("failed to dial %s: %w", t.endpoint, err)
	}

	done := make(chan struct{})

	t.mu.Lock()
	t.conn = conn
	t.done = done
	t.mu.Unlock()

	t.emitState(StateConnected)

	go t.readPump(conn, done)
	go t.pingLoop(conn, done)

	return nil
}

// Send delivers one message over the live connection.
func (t *WSTransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return fmt.Errorf("transport is not connected")
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive returns the inbound message stream.
func (t *WSTransport) Receive() <-chan []byte {
	return t.receive
}

// States returns the connection-state stream.
func (t *WSTransport) States() <-chan ConnState {
	return t.states
}

// Close tears the connection down. The receive and state streams go quiet
// after Close; they are not closed so late pump writes can never panic.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	return nil
}

// readPump delivers inbound frames until the connection drops, then marks
// the transport disconnected so the engine can schedule a reconnect.
func (t *WSTransport) readPump(conn *websocket.Conn, done chan struct{}) {
	defer t.dropConn(conn, done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return
		}

		t.receive <- message
	}
}

func (t *WSTransport) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.conn != conn {
				t.mu.Unlock()
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			t.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// dropConn clears the live connection exactly once and reports the
// disconnect.
func (t *WSTransport) dropConn(conn *websocket.Conn, done chan struct{}) {
	t.mu.Lock()
	current := t.conn == conn
	if current {
		t.conn = nil
	}
	closed := t.closed
	t.mu.Unlock()

	if !current {
		return
	}

	close(done)
	conn.Close()
	if !closed {
		t.emitState(StateDisconnected)
	}
}

// emitState reports a lifecycle change without ever blocking the pumps.
func (t *WSTransport) emitState(state ConnState) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}

	select {
	case t.states <- state:
	default:
	}
}
