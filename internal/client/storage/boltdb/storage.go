// Package boltdb implements the client storage interfaces on top of a
// single BoltDB file. It backs the entity state, the sync outbox, the
// engine state and pending conflicts, so one local database holds
// everything the offline client needs.
package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketAuth        = []byte("auth")
	bucketEntities    = []byte("entities")
	bucketOutbox      = []byte("outbox")
	bucketOutboxIndex = []byte("outbox_index")
	bucketState       = []byte("state")
	bucketApplied     = []byte("applied")
	bucketConflicts   = []byte("conflicts")
)

// Storage represents the BoltDB storage implementation for the client.
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance.
// dbPath is the path to the BoltDB database file.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets creates all required buckets if they do not exist yet.
func (s *Storage) initBuckets() error {
	buckets := [][]byte{
		bucketAuth,
		bucketEntities,
		bucketOutbox,
		bucketOutboxIndex,
		bucketState,
		bucketApplied,
		bucketConflicts,
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
