package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/iudanet/coinkeeper/internal/server/hub"
	syncsvc "github.com/iudanet/coinkeeper/internal/server/sync"
	"github.com/iudanet/coinkeeper/pkg/api"
)

type contextKey string

const (
	// UserIDKey holds the authenticated user's ID in the request context.
	UserIDKey contextKey = "user_id"
	// UsernameKey holds the authenticated username in the request context.
	UsernameKey contextKey = "username"
	// DeviceIDKey holds the authenticated device ID in the request context.
	DeviceIDKey contextKey = "device_id"
)

// GetUserID extracts the user ID set by the auth middleware.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUsername extracts the username set by the auth middleware.
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// GetDeviceID extracts the device ID set by the auth middleware.
func GetDeviceID(ctx context.Context) (string, bool) {
	deviceID, ok := ctx.Value(DeviceIDKey).(string)
	return deviceID, ok
}

// SyncService processes sync protocol messages for one user.
type SyncService interface {
	HandlePush(ctx context.Context, userID, deviceID string, msg api.Message) (*syncsvc.PushResult, error)
	HandleSyncRequest(ctx context.Context, userID string, msg api.Message) (api.Message, error)
}

// SyncHandler upgrades authenticated requests to websocket sync sessions.
type SyncHandler struct {
	logger   *slog.Logger
	hub      *hub.Hub
	service  SyncService
	upgrader websocket.Upgrader
}

// NewSyncHandler creates the websocket sync handler.
func NewSyncHandler(logger *slog.Logger, h *hub.Hub, service SyncService) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		hub:     h,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// HandleWS handles GET /api/v1/sync/ws.
func (h *SyncHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	deviceID, ok := GetDeviceID(ctx)
	if !ok || deviceID == "" {
		http.Error(w, "token carries no device identity", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := hub.NewClient(h.hub, conn, userID, deviceID)
	h.hub.Register(client)
	go client.WritePump()

	h.logger.InfoContext(ctx, "sync session opened",
		slog.String("user_id", userID),
		slog.String("device_id", deviceID))

	h.readLoop(client, conn)

	h.hub.Unregister(client)
	client.Close()
	h.logger.InfoContext(ctx, "sync session closed",
		slog.String("user_id", userID),
		slog.String("device_id", deviceID))
}

// readLoop is the single reader of the connection. Messages are handled
// in arrival order; per-device operation order is preserved end to end.
func (h *SyncHandler) readLoop(client *hub.Client, conn *websocket.Conn) {
	ctx := context.Background()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg api.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(client, "", "malformed message")
			continue
		}

		switch msg.Kind {
		case api.MessageOperationPush:
			result, err := h.service.HandlePush(ctx, client.UserID, client.DeviceID, msg)
			if err != nil {
				h.logger.Warn("push rejected",
					"user_id", client.UserID,
					"device_id", client.DeviceID,
					"error", err)
				h.sendError(client, msg.CorrelationID, err.Error())
				continue
			}
			h.sendMessage(client, result.Ack)
			if result.Fanout != nil {
				h.fanout(client, *result.Fanout)
			}

		case api.MessageSyncRequest:
			resp, err := h.service.HandleSyncRequest(ctx, client.UserID, msg)
			if err != nil {
				h.logger.Error("sync request failed",
					"user_id", client.UserID,
					"error", err)
				h.sendError(client, msg.CorrelationID, "sync failed")
				continue
			}
			h.sendMessage(client, resp)

		case api.MessageAck:
			// Fan-out deliveries are best effort; a missed ack is repaired
			// by the device's next full sync.

		default:
			h.sendError(client, msg.CorrelationID, "unknown message kind")
		}
	}
}

func (h *SyncHandler) fanout(from *hub.Client, msg api.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal fanout", "error", err)
		return
	}
	reached := h.hub.SendToUser(from.UserID, from.DeviceID, data)
	h.logger.Debug("operations fanned out",
		"user_id", from.UserID,
		"devices", reached)
}

func (h *SyncHandler) sendMessage(client *hub.Client, msg api.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", "kind", string(msg.Kind), "error", err)
		return
	}
	client.Send(data)
}

func (h *SyncHandler) sendError(client *hub.Client, correlationID, errMsg string) {
	h.sendMessage(client, api.Message{
		Kind:          api.MessageError,
		CorrelationID: correlationID,
		Error:         errMsg,
	})
}
