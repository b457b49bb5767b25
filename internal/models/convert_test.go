package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/coinkeeper/internal/crdt"
	"github.com/iudanet/coinkeeper/pkg/api"
)

func TestOperation_WireRoundTrip(t *testing.T) {
	clock := crdt.NewVectorClock().Increment("device-a")
	op := crdt.NewOperation("device-a", 1, "transaction", "tx-1", crdt.OpUpdate,
		crdt.Payload{"amount": 12.5, "note": "coffee"}, clock)

	restored, err := OperationFromAPI(OperationToAPI(op))
	require.NoError(t, err)

	assert.Equal(t, op.ID, restored.ID)
	assert.Equal(t, op.Kind, restored.Kind)
	assert.Equal(t, op.Payload, restored.Payload)
	assert.Equal(t, op.Clock, restored.Clock)
	assert.Equal(t, op.DeviceID, restored.DeviceID)
}

func TestOperationFromAPI_Validation(t *testing.T) {
	valid := api.Operation{
		ID:         "device-a:1",
		EntityType: "transaction",
		EntityID:   "tx-1",
		DeviceID:   "device-a",
		Kind:       "create",
		Clock:      map[string]uint64{"device-a": 1},
		Timestamp:  time.Now(),
	}

	tests := []struct {
		mutate func(op *api.Operation)
		name   string
	}{
		{name: "unknown kind", mutate: func(op *api.Operation) { op.Kind = "rename" }},
		{name: "missing id", mutate: func(op *api.Operation) { op.ID = "" }},
		{name: "missing device", mutate: func(op *api.Operation) { op.DeviceID = "" }},
		{name: "missing entity type", mutate: func(op *api.Operation) { op.EntityType = "" }},
		{name: "missing entity id", mutate: func(op *api.Operation) { op.EntityID = "" }},
		{name: "missing clock", mutate: func(op *api.Operation) { op.Clock = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := valid
			tt.mutate(&wire)
			_, err := OperationFromAPI(wire)
			assert.Error(t, err)
		})
	}

	_, err := OperationFromAPI(valid)
	assert.NoError(t, err)
}
