package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/crdt"
)

// entityKey builds the bucket key for an entity. Entity types and IDs are
// opaque strings; the separator just namespaces types within one bucket.
func entityKey(entityType, entityID string) []byte {
	return []byte(entityType + "\x00" + entityID)
}

func entityPrefix(entityType string) []byte {
	return []byte(entityType + "\x00")
}

// Apply commits one mutation to the local entity state.
func (s *Storage) Apply(ctx context.Context, entityType, entityID string, kind crdt.OperationKind, payload crdt.Payload) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	key := entityKey(entityType, entityID)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities)

		switch kind {
		case crdt.OpCreate:
			data, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("failed to marshal payload: %w", err)
			}
			return bucket.Put(key, data)

		case crdt.OpUpdate:
			// Overlay the updated fields onto the existing payload so an
			// update touching a subset of fields preserves the rest.
			current := crdt.Payload{}
			if existing := bucket.Get(key); existing != nil {
				if err := json.Unmarshal(existing, &current); err != nil {
					return fmt.Errorf("failed to unmarshal entity: %w", err)
				}
			}
			for field, value := range payload {
				current[field] = value
			}
			data, err := json.Marshal(current)
			if err != nil {
				return fmt.Errorf("failed to marshal payload: %w", err)
			}
			return bucket.Put(key, data)

		case crdt.OpDelete:
			return bucket.Delete(key)

		default:
			return fmt.Errorf("unknown operation kind: %q", kind)
		}
	})

	if err != nil {
		return fmt.Errorf("apply transaction failed: %w", err)
	}

	return nil
}

// Query returns the current payload of an entity.
func (s *Storage) Query(ctx context.Context, entityType, entityID string) (crdt.Payload, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var payload crdt.Payload

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntities).Get(entityKey(entityType, entityID))
		if data == nil {
			return storage.ErrEntityNotFound
		}

		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// List returns all entities of a type keyed by entity ID.
func (s *Storage) List(ctx context.Context, entityType string) (map[string]crdt.Payload, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	entities := make(map[string]crdt.Payload)
	prefix := entityPrefix(entityType)

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketEntities).Cursor()
		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			var payload crdt.Payload
			if err := json.Unmarshal(v, &payload); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}
			entities[string(bytes.TrimPrefix(k, prefix))] = payload
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return entities, nil
}
