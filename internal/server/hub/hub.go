// Package hub tracks live websocket connections per user and fans
// operation traffic out to a user's other devices.
package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second

	// sendBuffer bounds the per-client outbound queue. A client that
	// cannot drain it is disconnected; it will catch up through a full
	// sync on reconnect.
	sendBuffer = 64
)

// Client is one device's live connection.
type Client struct {
	UserID   string
	DeviceID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection.
func NewClient(h *Hub, conn *websocket.Conn, userID, deviceID string) *Client {
	return &Client{
		UserID:   userID,
		DeviceID: deviceID,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
}

// Send queues data for delivery. It reports false when the client is
// closed or its queue is full; a full queue tears the connection down.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.closeLocked()
		return false
	}
}

// Close shuts the connection down; the write pump exits when the send
// channel closes.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// WritePump drains the send queue onto the connection and keeps the
// connection alive with pings. It owns all writes to the socket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub is the registry of live clients, keyed by user and device. A
// device reconnecting replaces its previous registration.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]map[string]*Client
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]map[string]*Client),
	}
}

// Register adds a client, closing any previous connection of the same
// device.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	devices, ok := h.clients[c.UserID]
	if !ok {
		devices = make(map[string]*Client)
		h.clients[c.UserID] = devices
	}
	if prev, ok := devices[c.DeviceID]; ok {
		prev.Close()
	}
	devices[c.DeviceID] = c

	h.logger.Debug("client registered", "user_id", c.UserID, "device_id", c.DeviceID)
}

// Unregister removes a client if it is still the registered connection
// for its device.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	devices, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if devices[c.DeviceID] != c {
		return
	}
	delete(devices, c.DeviceID)
	if len(devices) == 0 {
		delete(h.clients, c.UserID)
	}

	h.logger.Debug("client unregistered", "user_id", c.UserID, "device_id", c.DeviceID)
}

// SendToUser delivers data to every connected device of a user except
// excludeDevice. It returns the number of devices reached.
func (h *Hub) SendToUser(userID, excludeDevice string, data []byte) int {
	h.mu.RLock()
	var targets []*Client
	for deviceID, client := range h.clients[userID] {
		if deviceID == excludeDevice {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range targets {
		if client.Send(data) {
			sent++
		}
	}
	return sent
}

// ConnectedDevices returns how many devices of a user are online.
func (h *Hub) ConnectedDevices(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
