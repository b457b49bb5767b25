package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/crdt"
)

// The outbox bucket is keyed by a big-endian auto-incremented sequence so a
// cursor walk yields operations in creation order (FIFO). The index bucket
// maps operation ID to that sequence key for O(1) removal on ack.

// Enqueue appends an operation to the outbox.
func (s *Storage) Enqueue(ctx context.Context, op *crdt.Operation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate outbox sequence: %w", err)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to save operation: %w", err)
		}
		if err := tx.Bucket(bucketOutboxIndex).Put([]byte(op.ID), key); err != nil {
			return fmt.Errorf("failed to index operation: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue transaction failed: %w", err)
	}

	return nil
}

// Remove deletes an operation after acknowledgment.
func (s *Storage) Remove(ctx context.Context, opID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketOutboxIndex)

		key := index.Get([]byte(opID))
		if key == nil {
			return storage.ErrOperationNotFound
		}

		if err := tx.Bucket(bucketOutbox).Delete(key); err != nil {
			return fmt.Errorf("failed to delete operation: %w", err)
		}
		if err := index.Delete([]byte(opID)); err != nil {
			return fmt.Errorf("failed to delete operation index: %w", err)
		}
		return nil
	})
}

// Pending returns all queued operations in creation order.
func (s *Storage) Pending(ctx context.Context) ([]*crdt.Operation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ops []*crdt.Operation

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutbox).ForEach(func(k, v []byte) error {
			var op crdt.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			ops = append(ops, &op)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}

	return ops, nil
}

// PendingForEntity returns the oldest queued operation targeting the entity.
func (s *Storage) PendingForEntity(ctx context.Context, entityType, entityID string) (*crdt.Operation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var found *crdt.Operation

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketOutbox).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var op crdt.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			if op.EntityType == entityType && op.EntityID == entityID {
				found = &op
				return nil
			}
		}
		return storage.ErrOperationNotFound
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// Len returns the number of queued operations.
func (s *Storage) Len(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketOutbox).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox: %w", err)
	}

	return count, nil
}
