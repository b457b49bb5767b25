package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/crdt"
)

// SaveConflict stores a pending conflict keyed by its identifier.
func (s *Storage) SaveConflict(ctx context.Context, conflict *crdt.Conflict) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(conflict)
	if err != nil {
		return fmt.Errorf("failed to marshal conflict: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConflicts).Put([]byte(conflict.ID), data)
	})
	if err != nil {
		return fmt.Errorf("save conflict transaction failed: %w", err)
	}

	return nil
}

// GetConflict retrieves a pending conflict.
func (s *Storage) GetConflict(ctx context.Context, id string) (*crdt.Conflict, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var conflict *crdt.Conflict

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketConflicts).Get([]byte(id))
		if data == nil {
			return storage.ErrConflictNotFound
		}

		conflict = &crdt.Conflict{}
		if err := json.Unmarshal(data, conflict); err != nil {
			return fmt.Errorf("failed to unmarshal conflict: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conflict, nil
}

// ListConflicts returns all pending conflicts.
func (s *Storage) ListConflicts(ctx context.Context) ([]*crdt.Conflict, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var conflicts []*crdt.Conflict

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConflicts).ForEach(func(k, v []byte) error {
			var conflict crdt.Conflict
			if err := json.Unmarshal(v, &conflict); err != nil {
				return fmt.Errorf("failed to unmarshal conflict: %w", err)
			}
			conflicts = append(conflicts, &conflict)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}

	return conflicts, nil
}

// DeleteConflict removes a conflict after resolution.
func (s *Storage) DeleteConflict(ctx context.Context, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConflicts).Delete([]byte(id))
	})
}

// DeleteConflictsForEntity removes conflicts superseded by a newer operation
// on the entity.
func (s *Storage) DeleteConflictsForEntity(ctx context.Context, entityType, entityID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)

		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var conflict crdt.Conflict
			if err := json.Unmarshal(v, &conflict); err != nil {
				return fmt.Errorf("failed to unmarshal conflict: %w", err)
			}
			if conflict.Remote.EntityType == entityType && conflict.Remote.EntityID == entityID {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete conflict: %w", err)
			}
		}
		return nil
	})
}
