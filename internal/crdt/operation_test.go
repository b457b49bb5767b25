package crdt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOperation(t *testing.T) {
	clock := NewVectorClock().Increment("device-a")

	op := NewOperation("device-a", 1, "transaction", "tx-1", OpCreate, Payload{"amount": 12.5}, clock)

	assert.Equal(t, "device-a:1", op.ID)
	assert.Equal(t, "transaction", op.EntityType)
	assert.Equal(t, "tx-1", op.EntityID)
	assert.Equal(t, OpCreate, op.Kind)
	assert.Equal(t, "device-a", op.DeviceID)
	assert.False(t, op.Timestamp.IsZero())

	// The snapshot invariant receivers rely on.
	assert.Equal(t, uint64(1), op.Clock.Get(op.DeviceID))
}

func TestNewOperation_SnapshotIsIndependent(t *testing.T) {
	clock := NewVectorClock().Increment("device-a")
	payload := Payload{"note": "coffee"}

	op := NewOperation("device-a", 1, "transaction", "tx-1", OpUpdate, payload, clock)

	clock["device-a"] = 99
	payload["note"] = "mutated"

	assert.Equal(t, uint64(1), op.Clock.Get("device-a"), "operation owns its clock snapshot")
	assert.Equal(t, "coffee", op.Payload["note"], "operation owns its payload")
}

func TestNewOperation_DeleteDropsPayload(t *testing.T) {
	clock := NewVectorClock().Increment("device-a")

	op := NewOperation("device-a", 1, "transaction", "tx-1", OpDelete, Payload{"amount": 1.0}, clock)

	assert.Nil(t, op.Payload, "delete operations carry no payload")
}

func TestOperation_Equal(t *testing.T) {
	clock := NewVectorClock().Increment("a")
	op := NewOperation("a", 1, "budget", "b-1", OpCreate, Payload{"limit": 100.0}, clock)
	same := NewOperation("a", 1, "budget", "b-1", OpUpdate, Payload{"limit": 200.0}, clock)
	other := NewOperation("a", 2, "budget", "b-1", OpCreate, Payload{"limit": 100.0}, clock)

	assert.True(t, op.Equal(same), "equality is by identifier only")
	assert.False(t, op.Equal(other))
	assert.False(t, op.Equal(nil))
}

func TestOperation_JSONRoundTrip(t *testing.T) {
	clock := NewVectorClock().Increment("device-a").Increment("device-b")
	op := NewOperation("device-b", 1, "account", "acc-1", OpUpdate, Payload{"name": "checking", "balance": 10.0}, clock)

	data, err := json.Marshal(op)
	require.NoError(t, err)

	var restored Operation
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, op.ID, restored.ID)
	assert.Equal(t, op.Kind, restored.Kind)
	assert.Equal(t, op.Clock, restored.Clock)
	assert.Equal(t, op.Payload, restored.Payload)
	assert.True(t, op.Timestamp.Equal(restored.Timestamp))
}

func TestOperationKind_Valid(t *testing.T) {
	assert.True(t, OpCreate.Valid())
	assert.True(t, OpUpdate.Valid())
	assert.True(t, OpDelete.Valid())
	assert.False(t, OperationKind("rename").Valid())
	assert.False(t, OperationKind("").Valid())
}
