package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/crdt"
)

var keyEngineState = []byte("engine_state")

// SaveState stores the engine state.
func (s *Storage) SaveState(ctx context.Context, state *storage.EngineState) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal engine state: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).Put(keyEngineState, data)
	})
	if err != nil {
		return fmt.Errorf("save state transaction failed: %w", err)
	}

	return nil
}

// GetState retrieves the engine state.
func (s *Storage) GetState(ctx context.Context) (*storage.EngineState, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var state *storage.EngineState

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketState).Get(keyEngineState)
		if data == nil {
			return storage.ErrStateNotFound
		}

		state = &storage.EngineState{}
		if err := json.Unmarshal(data, state); err != nil {
			return fmt.Errorf("failed to unmarshal engine state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// MarkApplied records an operation as applied at this device.
func (s *Storage) MarkApplied(ctx context.Context, op *crdt.Operation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketApplied).Put([]byte(op.ID), data)
	})
	if err != nil {
		return fmt.Errorf("mark applied transaction failed: %w", err)
	}

	return nil
}

// GetApplied returns a previously applied operation.
func (s *Storage) GetApplied(ctx context.Context, opID string) (*crdt.Operation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var op *crdt.Operation

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketApplied).Get([]byte(opID))
		if data == nil {
			return storage.ErrOperationNotFound
		}

		op = &crdt.Operation{}
		if err := json.Unmarshal(data, op); err != nil {
			return fmt.Errorf("failed to unmarshal operation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return op, nil
}
