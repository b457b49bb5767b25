package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/coinkeeper/internal/crdt"
	srvstorage "github.com/iudanet/coinkeeper/internal/server/storage"
	"github.com/iudanet/coinkeeper/internal/server/storage/sqlite"
	"github.com/iudanet/coinkeeper/pkg/api"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, store, store, logger)
}

func wireOp(deviceID string, seq uint64, entityID string, clock map[string]uint64, ts time.Time) api.Operation {
	return api.Operation{
		ID:         fmt.Sprintf("%s:%d", deviceID, seq),
		EntityType: "transaction",
		EntityID:   entityID,
		DeviceID:   deviceID,
		Kind:       string(crdt.OpCreate),
		Payload:    map[string]any{"amount": 42.0, "category": "groceries"},
		Clock:      clock,
		Timestamp:  ts,
	}
}

func pushMsg(ops ...api.Operation) api.Message {
	return api.Message{Kind: api.MessageOperationPush, Operations: ops}
}

func TestService_HandlePush_StoresAndAcks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	msg := pushMsg(
		wireOp("laptop-1", 1, "tx-1", map[string]uint64{"laptop-1": 1}, now),
		wireOp("laptop-1", 2, "tx-2", map[string]uint64{"laptop-1": 2}, now),
	)

	result, err := svc.HandlePush(ctx, "user-1", "laptop-1", msg)
	require.NoError(t, err)

	assert.Equal(t, api.MessageAck, result.Ack.Kind)
	assert.Equal(t, []string{"laptop-1:1", "laptop-1:2"}, result.Ack.AckIDs)

	require.NotNil(t, result.Fanout)
	assert.Equal(t, api.MessageOperationPush, result.Fanout.Kind)
	assert.Equal(t, "laptop-1", result.Fanout.DeviceID)
	assert.Len(t, result.Fanout.Operations, 2)
}

func TestService_HandlePush_IdempotentRedelivery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	msg := pushMsg(wireOp("laptop-1", 1, "tx-1", map[string]uint64{"laptop-1": 1}, time.Now().UTC()))

	first, err := svc.HandlePush(ctx, "user-1", "laptop-1", msg)
	require.NoError(t, err)
	require.NotNil(t, first.Fanout)

	// Redelivery is acked again but not stored or fanned out twice.
	second, err := svc.HandlePush(ctx, "user-1", "laptop-1", msg)
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop-1:1"}, second.Ack.AckIDs)
	assert.Nil(t, second.Fanout)
}

func TestService_HandlePush_RejectsForeignDevice(t *testing.T) {
	svc := newTestService(t)

	msg := pushMsg(wireOp("phone-1", 1, "tx-1", map[string]uint64{"phone-1": 1}, time.Now().UTC()))

	_, err := svc.HandlePush(context.Background(), "user-1", "laptop-1", msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claims device")
}

func TestService_HandlePush_RejectsMalformed(t *testing.T) {
	svc := newTestService(t)

	op := wireOp("laptop-1", 1, "tx-1", nil, time.Now().UTC())

	_, err := svc.HandlePush(context.Background(), "user-1", "laptop-1", pushMsg(op))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed push")
}

func TestService_HandlePush_MergesServerClock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.HandlePush(ctx, "user-1", "laptop-1", pushMsg(
		wireOp("laptop-1", 2, "tx-1", map[string]uint64{"laptop-1": 2}, now),
	))
	require.NoError(t, err)

	_, err = svc.HandlePush(ctx, "user-1", "phone-1", pushMsg(
		wireOp("phone-1", 1, "tx-2", map[string]uint64{"phone-1": 1, "laptop-1": 1}, now),
	))
	require.NoError(t, err)

	resp, err := svc.HandleSyncRequest(ctx, "user-1", api.Message{
		Kind:          api.MessageSyncRequest,
		CorrelationID: "req-1",
		Clock:         map[string]uint64{"laptop-1": 2, "phone-1": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"laptop-1": 2, "phone-1": 1}, resp.Clock)
	assert.Empty(t, resp.Operations)
}

func TestService_HandleSyncRequest_ReturnsMissing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.HandlePush(ctx, "user-1", "laptop-1", pushMsg(
		wireOp("laptop-1", 1, "tx-1", map[string]uint64{"laptop-1": 1}, now),
		wireOp("laptop-1", 2, "tx-2", map[string]uint64{"laptop-1": 2}, now),
	))
	require.NoError(t, err)
	_, err = svc.HandlePush(ctx, "user-1", "phone-1", pushMsg(
		wireOp("phone-1", 1, "tx-3", map[string]uint64{"phone-1": 1}, now),
	))
	require.NoError(t, err)

	// A device that has seen only laptop-1:1 is missing two operations.
	resp, err := svc.HandleSyncRequest(ctx, "user-1", api.Message{
		Kind:          api.MessageSyncRequest,
		CorrelationID: "req-42",
		Clock:         map[string]uint64{"laptop-1": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, api.MessageSyncResponse, resp.Kind)
	assert.Equal(t, "req-42", resp.CorrelationID)
	assert.True(t, resp.Final)

	ids := make([]string, 0, len(resp.Operations))
	for _, op := range resp.Operations {
		ids = append(ids, op.ID)
	}
	assert.Equal(t, []string{"laptop-1:2", "phone-1:1"}, ids)
}

func TestService_HandleSyncRequest_EmptyClockGetsEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.HandlePush(ctx, "user-1", "laptop-1", pushMsg(
		wireOp("laptop-1", 1, "tx-1", map[string]uint64{"laptop-1": 1}, now),
	))
	require.NoError(t, err)

	resp, err := svc.HandleSyncRequest(ctx, "user-1", api.Message{
		Kind: api.MessageSyncRequest,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Operations, 1)
}

func TestService_OperationsScopedToUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.HandlePush(ctx, "user-1", "laptop-1", pushMsg(
		wireOp("laptop-1", 1, "tx-1", map[string]uint64{"laptop-1": 1}, now),
	))
	require.NoError(t, err)

	resp, err := svc.HandleSyncRequest(ctx, "user-2", api.Message{Kind: api.MessageSyncRequest})
	require.NoError(t, err)
	assert.Empty(t, resp.Operations)
	assert.Empty(t, resp.Clock)
}

// countingOplog records how often the oplog is scanned for missing
// operations.
type countingOplog struct {
	srvstorage.OplogStorage
	missingCalls int
}

func (c *countingOplog) MissingOperations(ctx context.Context, userID string, clock crdt.VectorClock) ([]*crdt.Operation, error) {
	c.missingCalls++
	return c.OplogStorage.MissingOperations(ctx, userID, clock)
}

func TestService_HandleSyncRequest_CaughtUpDeviceSkipsOplogScan(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	oplog := &countingOplog{OplogStorage: store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(oplog, store, store, logger)

	_, err = svc.HandlePush(ctx, "user-1", "laptop-1", pushMsg(
		wireOp("laptop-1", 1, "tx-1", map[string]uint64{"laptop-1": 1}, time.Now().UTC()),
	))
	require.NoError(t, err)

	// A clock that dominates the server's answers without a scan.
	resp, err := svc.HandleSyncRequest(ctx, "user-1", api.Message{
		Kind:          api.MessageSyncRequest,
		CorrelationID: "req-1",
		Clock:         map[string]uint64{"laptop-1": 1},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Operations)
	assert.True(t, resp.Final)
	assert.Equal(t, map[string]uint64{"laptop-1": 1}, resp.Clock)
	assert.Zero(t, oplog.missingCalls)

	// A clock behind the server's still triggers the scan.
	resp, err = svc.HandleSyncRequest(ctx, "user-1", api.Message{
		Kind:          api.MessageSyncRequest,
		CorrelationID: "req-2",
	})
	require.NoError(t, err)
	assert.Len(t, resp.Operations, 1)
	assert.Equal(t, 1, oplog.missingCalls)
}
