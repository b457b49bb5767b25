// Package sync implements the server side of the synchronization
// protocol: ingesting pushed operations into the per-user oplog and
// answering full-sync requests from a device's vector clock.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iudanet/coinkeeper/internal/crdt"
	"github.com/iudanet/coinkeeper/internal/models"
	"github.com/iudanet/coinkeeper/internal/server/storage"
	"github.com/iudanet/coinkeeper/pkg/api"
)

// Service processes sync messages for authenticated users. The server
// never resolves conflicts; it stores every operation it is given and
// lets the devices reconcile.
type Service struct {
	oplog    storage.OplogStorage
	clocks   storage.ClockStorage
	entities storage.EntityStorage
	logger   *slog.Logger
}

// NewService creates the sync service.
func NewService(oplog storage.OplogStorage, clocks storage.ClockStorage, entities storage.EntityStorage, logger *slog.Logger) *Service {
	return &Service{
		oplog:    oplog,
		clocks:   clocks,
		entities: entities,
		logger:   logger,
	}
}

// PushResult is the outcome of ingesting one push message.
type PushResult struct {
	// Ack acknowledges every operation in the push, including ones the
	// server had already stored. The sender removes them from its outbox
	// either way.
	Ack api.Message
	// Fanout carries only the newly stored operations, for delivery to
	// the user's other devices. Nil when everything was a redelivery.
	Fanout *api.Message
}

// HandlePush ingests pushed operations. Ingest is idempotent: an
// operation ID already in the log is acknowledged again without being
// stored or fanned out a second time.
func (s *Service) HandlePush(ctx context.Context, userID, deviceID string, msg api.Message) (*PushResult, error) {
	ops, err := models.OperationsFromAPI(msg.Operations)
	if err != nil {
		return nil, fmt.Errorf("malformed push: %w", err)
	}

	ackIDs := make([]string, 0, len(ops))
	var stored []*crdt.Operation

	for _, op := range ops {
		if op.DeviceID != deviceID {
			return nil, fmt.Errorf("operation %s claims device %q, connection is %q", op.ID, op.DeviceID, deviceID)
		}

		isNew, err := s.oplog.AppendOperation(ctx, userID, op)
		if err != nil {
			return nil, fmt.Errorf("failed to log operation %s: %w", op.ID, err)
		}
		ackIDs = append(ackIDs, op.ID)
		if !isNew {
			continue
		}

		if err := s.entities.ApplyEntity(ctx, userID, op); err != nil {
			s.logger.ErrorContext(ctx, "failed to materialize entity",
				"op_id", op.ID, "entity_id", op.EntityID, "error", err)
		}
		if _, err := s.clocks.MergeClock(ctx, userID, op.Clock); err != nil {
			return nil, fmt.Errorf("failed to merge clock for %s: %w", op.ID, err)
		}
		stored = append(stored, op)
	}

	s.logger.InfoContext(ctx, "push ingested",
		"user_id", userID,
		"device_id", deviceID,
		"received", len(ops),
		"stored", len(stored))

	result := &PushResult{
		Ack: api.Message{
			Kind:   api.MessageAck,
			AckIDs: ackIDs,
		},
	}
	if len(stored) > 0 {
		result.Fanout = &api.Message{
			Kind:       api.MessageOperationPush,
			DeviceID:   deviceID,
			Operations: models.OperationsToAPI(stored),
		}
	}
	return result, nil
}

// HandleSyncRequest answers a device's full-sync request with every
// operation its clock has not observed, plus the server's merged clock.
// A device whose clock dominates the server's has already seen every
// stored operation, so the oplog is not scanned at all.
func (s *Service) HandleSyncRequest(ctx context.Context, userID string, msg api.Message) (api.Message, error) {
	deviceClock := crdt.VectorClock(msg.Clock)

	serverClock, err := s.clocks.GetClock(ctx, userID)
	if err != nil {
		return api.Message{}, fmt.Errorf("failed to load server clock: %w", err)
	}

	var missing []*crdt.Operation
	if !deviceClock.Dominates(serverClock) {
		missing, err = s.oplog.MissingOperations(ctx, userID, deviceClock)
		if err != nil {
			return api.Message{}, fmt.Errorf("failed to compute missing operations: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "sync request served",
		"user_id", userID,
		"missing", len(missing))

	return api.Message{
		Kind:          api.MessageSyncResponse,
		CorrelationID: msg.CorrelationID,
		Clock:         serverClock,
		Operations:    models.OperationsToAPI(missing),
		Final:         true,
	}, nil
}
