package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/crdt"
)

func TestEntity_CreateAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	payload := crdt.Payload{"amount": 12.5, "note": "coffee"}
	require.NoError(t, s.Apply(ctx, "transaction", "tx-1", crdt.OpCreate, payload))

	got, err := s.Query(ctx, "transaction", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEntity_UpdateOverlaysFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.Apply(ctx, "transaction", "tx-1", crdt.OpCreate,
		crdt.Payload{"amount": 12.5, "note": "coffee"}))
	require.NoError(t, s.Apply(ctx, "transaction", "tx-1", crdt.OpUpdate,
		crdt.Payload{"amount": 15.0}))

	got, err := s.Query(ctx, "transaction", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, crdt.Payload{"amount": 15.0, "note": "coffee"}, got, "untouched fields survive updates")
}

func TestEntity_UpdateWithoutCreate(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	// A concurrent merge may apply an update before the create arrives.
	require.NoError(t, s.Apply(ctx, "transaction", "tx-1", crdt.OpUpdate,
		crdt.Payload{"note": "dinner"}))

	got, err := s.Query(ctx, "transaction", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, crdt.Payload{"note": "dinner"}, got)
}

func TestEntity_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.Apply(ctx, "transaction", "tx-1", crdt.OpCreate, crdt.Payload{"amount": 1.0}))
	require.NoError(t, s.Apply(ctx, "transaction", "tx-1", crdt.OpDelete, nil))

	_, err := s.Query(ctx, "transaction", "tx-1")
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}

func TestEntity_ListByType(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.Apply(ctx, "transaction", "tx-1", crdt.OpCreate, crdt.Payload{"amount": 1.0}))
	require.NoError(t, s.Apply(ctx, "transaction", "tx-2", crdt.OpCreate, crdt.Payload{"amount": 2.0}))
	require.NoError(t, s.Apply(ctx, "budget", "b-1", crdt.OpCreate, crdt.Payload{"limit": 100.0}))

	transactions, err := s.List(ctx, "transaction")
	require.NoError(t, err)
	assert.Len(t, transactions, 2)
	assert.Equal(t, crdt.Payload{"amount": 1.0}, transactions["tx-1"])

	budgets, err := s.List(ctx, "budget")
	require.NoError(t, err)
	assert.Len(t, budgets, 1)

	accounts, err := s.List(ctx, "account")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
