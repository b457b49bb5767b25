package crdt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeOp(deviceID string, seq uint64, entityID string, kind OperationKind, payload Payload, clock VectorClock, ts time.Time) *Operation {
	return &Operation{
		ID:         OperationID(deviceID, seq),
		EntityType: "transaction",
		EntityID:   entityID,
		Kind:       kind,
		Payload:    payload,
		Clock:      clock,
		DeviceID:   deviceID,
		Timestamp:  ts,
	}
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestResolve_LocalBeforeRemote_AcceptsRemote(t *testing.T) {
	// Device B already merged A's prior op, then updated: A's {A:2,B:1} is
	// before B's {A:2,B:2}.
	local := makeOp("a", 2, "e1", OpUpdate, Payload{"amount": 10.0}, VectorClock{"a": 2, "b": 1}, baseTime)
	remote := makeOp("b", 2, "e1", OpUpdate, Payload{"amount": 20.0}, VectorClock{"a": 2, "b": 2}, baseTime.Add(time.Second))

	res, err := Resolve(local, remote)
	require.NoError(t, err)

	assert.Equal(t, AcceptRemote, res.Outcome)
	assert.Equal(t, remote.ID, res.Apply.ID)
	assert.Nil(t, res.Conflict)
}

func TestResolve_RemoteBeforeLocal_KeepsLocal(t *testing.T) {
	local := makeOp("a", 2, "e1", OpUpdate, Payload{"amount": 10.0}, VectorClock{"a": 2, "b": 2}, baseTime)
	remote := makeOp("b", 2, "e1", OpUpdate, Payload{"amount": 20.0}, VectorClock{"a": 1, "b": 2}, baseTime)

	res, err := Resolve(local, remote)
	require.NoError(t, err)

	assert.Equal(t, KeepLocal, res.Outcome)
	assert.Equal(t, local.ID, res.Apply.ID)
}

func TestResolve_SameIdentifier_Duplicate(t *testing.T) {
	op := makeOp("a", 1, "e1", OpCreate, Payload{"amount": 10.0}, VectorClock{"a": 1}, baseTime)

	res, err := Resolve(op, op.Clone())
	require.NoError(t, err)

	assert.Equal(t, Duplicate, res.Outcome)
	assert.Nil(t, res.Apply, "duplicate delivery applies nothing")
}

func TestResolve_SameIdentifierDifferentContent_IntegrityError(t *testing.T) {
	local := makeOp("a", 1, "e1", OpCreate, Payload{"amount": 10.0}, VectorClock{"a": 1}, baseTime)
	remote := makeOp("a", 1, "e1", OpCreate, Payload{"amount": 99.0}, VectorClock{"a": 1}, baseTime)

	_, err := Resolve(local, remote)

	assert.ErrorIs(t, err, ErrIdentityMismatch)
}

func TestResolve_ConcurrentCreates_LastWriteWins(t *testing.T) {
	// Two devices independently create the same entity: concurrent, same
	// kind, overlapping fields. LWW default surfaced as unresolved.
	local := makeOp("a", 1, "e1", OpCreate, Payload{"amount": 10.0}, VectorClock{"a": 1}, baseTime)
	remote := makeOp("b", 1, "e1", OpCreate, Payload{"amount": 25.0}, VectorClock{"b": 1}, baseTime.Add(time.Minute))

	res, err := Resolve(local, remote)
	require.NoError(t, err)

	assert.Equal(t, Unresolved, res.Outcome)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, remote.ID, res.Conflict.ID)
	assert.Equal(t, remote.ID, res.Conflict.Winner.ID, "later timestamp wins")
	assert.Equal(t, 25.0, res.Merged["amount"])
}

func TestResolve_ConcurrentDisjointUpdates_AutoMerged(t *testing.T) {
	// A updates amount, B concurrently updates note from the same prior
	// state: disjoint field sets merge without conflict.
	local := makeOp("a", 2, "e1", OpUpdate, Payload{"amount": 42.0}, VectorClock{"a": 2, "b": 1}, baseTime)
	remote := makeOp("b", 2, "e1", OpUpdate, Payload{"note": "dinner"}, VectorClock{"a": 1, "b": 2}, baseTime.Add(time.Second))

	res, err := Resolve(local, remote)
	require.NoError(t, err)

	assert.Equal(t, AutoMerged, res.Outcome)
	assert.Equal(t, Payload{"amount": 42.0, "note": "dinner"}, res.Merged)
	assert.Nil(t, res.Conflict)
}

func TestResolve_ConcurrentOverlappingUpdates_FieldLevelLWW(t *testing.T) {
	local := makeOp("a", 2, "e1", OpUpdate, Payload{"amount": 42.0, "note": "lunch"}, VectorClock{"a": 2, "b": 1}, baseTime.Add(time.Hour))
	remote := makeOp("b", 2, "e1", OpUpdate, Payload{"amount": 7.0, "category": "food"}, VectorClock{"a": 1, "b": 2}, baseTime)

	res, err := Resolve(local, remote)
	require.NoError(t, err)

	assert.Equal(t, Unresolved, res.Outcome)
	require.NotNil(t, res.Conflict)
	// Local wrote later: colliding amount comes from local, the rest is the
	// union of both.
	assert.Equal(t, Payload{"amount": 42.0, "note": "lunch", "category": "food"}, res.Merged)
	assert.Equal(t, local.ID, res.Conflict.Winner.ID)
}

func TestResolve_ConcurrentDeleteVersusUpdate_NoFieldMerge(t *testing.T) {
	local := makeOp("a", 2, "e1", OpDelete, nil, VectorClock{"a": 2, "b": 1}, baseTime.Add(time.Minute))
	remote := makeOp("b", 2, "e1", OpUpdate, Payload{"amount": 5.0}, VectorClock{"a": 1, "b": 2}, baseTime)

	res, err := Resolve(local, remote)
	require.NoError(t, err)

	assert.Equal(t, Unresolved, res.Outcome)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, local.ID, res.Conflict.Winner.ID)
	assert.Nil(t, res.Conflict.Provisional, "winning delete carries no payload")
}

func TestResolve_ConcurrentCreateVersusUpdate_NoFieldMerge(t *testing.T) {
	local := makeOp("a", 1, "e1", OpCreate, Payload{"amount": 1.0}, VectorClock{"a": 1}, baseTime)
	remote := makeOp("b", 2, "e1", OpUpdate, Payload{"note": "x"}, VectorClock{"b": 2}, baseTime.Add(time.Second))

	res, err := Resolve(local, remote)
	require.NoError(t, err)

	assert.Equal(t, Unresolved, res.Outcome, "differing kinds never auto-merge even with disjoint fields")
	assert.Equal(t, remote.ID, res.Conflict.Winner.ID)
}

func TestResolve_TimestampTie_BreaksOnDeviceID(t *testing.T) {
	local := makeOp("a", 1, "e1", OpCreate, Payload{"amount": 1.0}, VectorClock{"a": 1}, baseTime)
	remote := makeOp("b", 1, "e1", OpCreate, Payload{"amount": 2.0}, VectorClock{"b": 1}, baseTime)

	res, err := Resolve(local, remote)
	require.NoError(t, err)

	require.NotNil(t, res.Conflict)
	assert.Equal(t, remote.ID, res.Conflict.Winner.ID, `"b" sorts after "a"`)
}

func TestResolve_Deterministic_BothPeersConverge(t *testing.T) {
	opA := makeOp("a", 2, "e1", OpUpdate, Payload{"amount": 42.0, "note": "a"}, VectorClock{"a": 2, "b": 1}, baseTime.Add(time.Second))
	opB := makeOp("b", 2, "e1", OpUpdate, Payload{"amount": 7.0, "note": "b"}, VectorClock{"a": 1, "b": 2}, baseTime)

	// Peer one holds opA locally and receives opB; peer two the reverse.
	resOne, err := Resolve(opA, opB)
	require.NoError(t, err)
	resTwo, err := Resolve(opB, opA)
	require.NoError(t, err)

	assert.Equal(t, resOne.Merged, resTwo.Merged, "both peers must commit the same default")
	assert.Equal(t, resOne.Conflict.Winner.ID, resTwo.Conflict.Winner.ID)
}

func TestResolve_EntityMismatch(t *testing.T) {
	local := makeOp("a", 1, "e1", OpCreate, Payload{"amount": 1.0}, VectorClock{"a": 1}, baseTime)
	remote := makeOp("b", 1, "e2", OpCreate, Payload{"amount": 2.0}, VectorClock{"b": 1}, baseTime)

	_, err := Resolve(local, remote)

	assert.ErrorIs(t, err, ErrEntityMismatch)
}

func TestResolve_MissingClock(t *testing.T) {
	local := makeOp("a", 1, "e1", OpCreate, Payload{"amount": 1.0}, nil, baseTime)
	remote := makeOp("b", 1, "e1", OpCreate, Payload{"amount": 2.0}, VectorClock{"b": 1}, baseTime)

	_, err := Resolve(local, remote)

	assert.ErrorIs(t, err, ErrMissingClock)
}
