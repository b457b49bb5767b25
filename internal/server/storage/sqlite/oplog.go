package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/coinkeeper/internal/crdt"
	"github.com/iudanet/coinkeeper/internal/server/storage"
)

// AppendOperation stores one operation in the user's log. The primary key
// on (user_id, op_id) makes redelivery a detectable no-op.
func (s *Storage) AppendOperation(ctx context.Context, userID string, op *crdt.Operation) (bool, error) {
	_, seq, err := crdt.ParseOperationID(op.ID)
	if err != nil {
		return false, err
	}

	clockJSON, err := json.Marshal(op.Clock)
	if err != nil {
		return false, fmt.Errorf("failed to marshal clock: %w", err)
	}

	var payloadJSON []byte
	if op.Payload != nil {
		payloadJSON, err = json.Marshal(op.Payload)
		if err != nil {
			return false, fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	query := `
		INSERT INTO oplog (user_id, op_id, device_id, seq, entity_type, entity_id, kind, payload, clock, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		userID,
		op.ID,
		op.DeviceID,
		seq,
		op.EntityType,
		op.EntityID,
		string(op.Kind),
		nullableText(payloadJSON),
		string(clockJSON),
		op.Timestamp.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert operation: %w", err)
	}

	return true, nil
}

// MissingOperations returns the operations the given clock has not
// observed. Rows come back ordered by (device_id, seq), so each device's
// history is delivered in the order it was produced.
func (s *Storage) MissingOperations(ctx context.Context, userID string, clock crdt.VectorClock) ([]*crdt.Operation, error) {
	query := `
		SELECT op_id, device_id, entity_type, entity_id, kind, payload, clock, ts
		FROM oplog
		WHERE user_id = ?
		ORDER BY device_id ASC, seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query oplog: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ops []*crdt.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		_, seq, err := crdt.ParseOperationID(op.ID)
		if err != nil {
			return nil, err
		}
		if seq > clock.Get(op.DeviceID) {
			ops = append(ops, op)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return ops, nil
}

// OperationCount returns the number of logged operations for a user.
func (s *Storage) OperationCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM oplog WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return count, nil
}

// GetClock returns the user's merged clock.
func (s *Storage) GetClock(ctx context.Context, userID string) (crdt.VectorClock, error) {
	var clockJSON string
	err := s.db.QueryRowContext(ctx, `SELECT clock FROM user_clocks WHERE user_id = ?`, userID).Scan(&clockJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return crdt.NewVectorClock(), nil
		}
		return nil, fmt.Errorf("failed to get user clock: %w", err)
	}

	var clock crdt.VectorClock
	if err := json.Unmarshal([]byte(clockJSON), &clock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user clock: %w", err)
	}
	return clock, nil
}

// MergeClock folds the given clock into the stored one.
func (s *Storage) MergeClock(ctx context.Context, userID string, clock crdt.VectorClock) (crdt.VectorClock, error) {
	current, err := s.GetClock(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := current.Merge(clock)
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged clock: %w", err)
	}

	query := `INSERT OR REPLACE INTO user_clocks (user_id, clock) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, userID, string(mergedJSON)); err != nil {
		return nil, fmt.Errorf("failed to save user clock: %w", err)
	}

	return merged, nil
}

// ApplyEntity applies one operation's effect to the materialized state.
// Entity-level conflict resolution happens on the devices; the server
// keeps a Last-Write-Wins projection by operation timestamp.
func (s *Storage) ApplyEntity(ctx context.Context, userID string, op *crdt.Operation) error {
	ts := op.Timestamp.UnixNano()

	switch op.Kind {
	case crdt.OpDelete:
		query := `
			INSERT INTO entities (user_id, entity_type, entity_id, payload, deleted, updated_ts)
			VALUES (?, ?, ?, NULL, 1, ?)
			ON CONFLICT (user_id, entity_type, entity_id)
			DO UPDATE SET payload = NULL, deleted = 1, updated_ts = excluded.updated_ts
			WHERE excluded.updated_ts >= entities.updated_ts
		`
		if _, err := s.db.ExecContext(ctx, query, userID, op.EntityType, op.EntityID, ts); err != nil {
			return fmt.Errorf("failed to apply delete: %w", err)
		}
		return nil

	case crdt.OpCreate:
		payloadJSON, err := json.Marshal(op.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		query := `
			INSERT INTO entities (user_id, entity_type, entity_id, payload, deleted, updated_ts)
			VALUES (?, ?, ?, ?, 0, ?)
			ON CONFLICT (user_id, entity_type, entity_id)
			DO UPDATE SET payload = excluded.payload, deleted = 0, updated_ts = excluded.updated_ts
			WHERE excluded.updated_ts >= entities.updated_ts
		`
		if _, err := s.db.ExecContext(ctx, query, userID, op.EntityType, op.EntityID, string(payloadJSON), ts); err != nil {
			return fmt.Errorf("failed to apply create: %w", err)
		}
		return nil

	case crdt.OpUpdate:
		// Updates overlay only the fields they carry.
		current, err := s.GetEntity(ctx, userID, op.EntityType, op.EntityID)
		if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
			return err
		}
		merged := current.Clone()
		if merged == nil {
			merged = crdt.Payload{}
		}
		for field, value := range op.Payload {
			merged[field] = value
		}
		payloadJSON, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		query := `
			INSERT INTO entities (user_id, entity_type, entity_id, payload, deleted, updated_ts)
			VALUES (?, ?, ?, ?, 0, ?)
			ON CONFLICT (user_id, entity_type, entity_id)
			DO UPDATE SET payload = excluded.payload, deleted = 0, updated_ts = excluded.updated_ts
			WHERE excluded.updated_ts >= entities.updated_ts
		`
		if _, err := s.db.ExecContext(ctx, query, userID, op.EntityType, op.EntityID, string(payloadJSON), ts); err != nil {
			return fmt.Errorf("failed to apply update: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown operation kind: %q", op.Kind)
	}
}

// GetEntity returns the materialized payload for a live entity.
func (s *Storage) GetEntity(ctx context.Context, userID, entityType, entityID string) (crdt.Payload, error) {
	query := `
		SELECT payload, deleted
		FROM entities
		WHERE user_id = ? AND entity_type = ? AND entity_id = ?
	`

	var payloadJSON sql.NullString
	var deleted int
	err := s.db.QueryRowContext(ctx, query, userID, entityType, entityID).Scan(&payloadJSON, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	if deleted != 0 {
		return nil, storage.ErrEntityNotFound
	}

	var payload crdt.Payload
	if payloadJSON.Valid {
		if err := json.Unmarshal([]byte(payloadJSON.String), &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	return payload, nil
}

// ListEntities returns all live entities of one type for a user.
func (s *Storage) ListEntities(ctx context.Context, userID, entityType string) (map[string]crdt.Payload, error) {
	query := `
		SELECT entity_id, payload
		FROM entities
		WHERE user_id = ? AND entity_type = ? AND deleted = 0
	`

	rows, err := s.db.QueryContext(ctx, query, userID, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entities := make(map[string]crdt.Payload)
	for rows.Next() {
		var entityID string
		var payloadJSON sql.NullString
		if err := rows.Scan(&entityID, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		var payload crdt.Payload
		if payloadJSON.Valid {
			if err := json.Unmarshal([]byte(payloadJSON.String), &payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}
		entities[entityID] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entities, nil
}

func scanOperation(rows *sql.Rows) (*crdt.Operation, error) {
	var (
		op          crdt.Operation
		kind        string
		payloadJSON sql.NullString
		clockJSON   string
		ts          int64
	)

	err := rows.Scan(
		&op.ID,
		&op.DeviceID,
		&op.EntityType,
		&op.EntityID,
		&kind,
		&payloadJSON,
		&clockJSON,
		&ts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan operation: %w", err)
	}

	op.Kind = crdt.OperationKind(kind)
	op.Timestamp = time.Unix(0, ts).UTC()

	if payloadJSON.Valid {
		if err := json.Unmarshal([]byte(payloadJSON.String), &op.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(clockJSON), &op.Clock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clock: %w", err)
	}

	return &op, nil
}

func nullableText(data []byte) any {
	if data == nil {
		return nil
	}
	return string(data)
}
