// Package sync implements the offline-first synchronization engine. The
// engine owns the device's vector clock, the pending-operation outbox and
// the inbound message dispatch; conflict decisions are delegated to the
// resolver in internal/crdt.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/client/transport"
	"github.com/iudanet/coinkeeper/internal/crdt"
	"github.com/iudanet/coinkeeper/internal/models"
	"github.com/iudanet/coinkeeper/pkg/api"
)

// Storage aggregates the client-side persistence the engine depends on.
// The BoltDB storage implements all of it; tests may compose pieces.
type Storage interface {
	storage.EntityStore
	storage.OutboxStorage
	storage.StateStorage
	storage.ConflictStorage
}

// DefaultSyncTimeout bounds a full-sync session. A session without a
// terminal response within the timeout degrades to a partial sync instead
// of blocking.
const DefaultSyncTimeout = 30 * time.Second

// Option configures the engine.
type Option func(*Engine)

// WithSyncTimeout overrides the full-sync session timeout.
func WithSyncTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.syncTimeout = d
	}
}

// Engine orchestrates synchronization for one device.
//
// All clock, outbox and resolver work runs under a single mutex: clock
// increments and merges are read-modify-write sequences that must never
// interleave. Transport and store calls are the only blocking operations.
// The engine is an ordinary injectable value; multiple instances can
// coexist (each with its own storage and transport).
type Engine struct {
	store     Storage
	transport transport.Transport
	logger    *slog.Logger

	mu       stdsync.Mutex
	deviceID string
	seq      uint64
	clock    crdt.VectorClock
	state    State

	// pendingSync is the correlation ID of the in-flight full-sync
	// session, empty when none. syncFailed marks a session in which at
	// least one remote operation could not be stored.
	pendingSync  string
	syncApplied  int
	syncFailed   bool
	syncDeadline *time.Timer

	events chan Event
	// wake nudges Run to re-read the sync deadline after a session is
	// opened outside the loop.
	wake        chan struct{}
	syncTimeout time.Duration
}

// NewEngine creates an engine for the given device, restoring persisted
// clock state if present.
func NewEngine(ctx context.Context, deviceID string, tp transport.Transport, store Storage, logger *slog.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:       store,
		transport:   tp,
		logger:      logger,
		deviceID:    deviceID,
		clock:       crdt.NewVectorClock(),
		state:       StateDisconnected,
		events:      make(chan Event, 64),
		wake:        make(chan struct{}, 1),
		syncTimeout: DefaultSyncTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	state, err := store.GetState(ctx)
	switch {
	case err == nil:
		if state.DeviceID != deviceID {
			return nil, fmt.Errorf("storage belongs to device %q, not %q", state.DeviceID, deviceID)
		}
		e.seq = state.Seq
		e.clock = state.Clock.Clone()
	case errors.Is(err, storage.ErrStateNotFound):
		// First run: empty clock, sequence starts at zero.
		if err := e.persistStateLocked(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load engine state: %w", err)
	}

	return e, nil
}

// Events returns the engine's event stream. The stream is buffered; slow
// consumers lose oldest-first rather than blocking the engine.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// State returns the current session state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Clock returns a snapshot of the engine's current vector clock.
func (e *Engine) Clock() crdt.VectorClock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Clone()
}

// DeviceID returns the device identifier the engine stamps operations with.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Connect dials the remote peer. State transitions arrive on the
// transport's state stream and are handled by Run.
func (e *Engine) Connect(ctx context.Context) error {
	return e.transport.Connect(ctx)
}

// Resync opens a fresh full-sync session on the live connection, for
// example after a partial sync left operations unfetched. It fails unless
// the engine is in steady state.
func (e *Engine) Resync(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateSteady {
		return fmt.Errorf("cannot resync while %s", e.state)
	}
	e.beginSyncLocked(ctx)

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run drives the engine until ctx is done or the transport streams close.
// It is the single writer for all session state. The only error Run
// returns (besides ctx.Err) is an integrity violation, which indicates a
// broken upstream invariant and makes continuing unsafe.
func (e *Engine) Run(ctx context.Context) error {
	states := e.transport.States()
	inbound := e.transport.Receive()

	for {
		var deadline <-chan time.Time
		e.mu.Lock()
		if e.syncDeadline != nil {
			deadline = e.syncDeadline.C
		}
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()

		case st, ok := <-states:
			if !ok {
				return nil
			}
			e.handleConnState(ctx, st)

		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			if err := e.handleMessage(ctx, msg); err != nil {
				return err
			}

		case <-deadline:
			e.handleSyncTimeout()

		case <-e.wake:
		}
	}
}

// RecordLocalOperation records one local mutation: the clock is
// incremented, the operation is stamped with the new snapshot, applied to
// the local store, queued in the outbox and pushed immediately when
// connected. The returned operation is the immutable record.
//
// The clock advance is durable even if anything after it fails; a
// rollback could violate the monotonic counter invariant for peers that
// already observed the counter.
func (e *Engine) RecordLocalOperation(ctx context.Context, entityType, entityID string, kind crdt.OperationKind, payload crdt.Payload) (*crdt.Operation, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown operation kind: %q", kind)
	}
	if entityType == "" || entityID == "" {
		return nil, fmt.Errorf("entity reference is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	e.clock = e.clock.Increment(e.deviceID)
	if err := e.persistStateLocked(ctx); err != nil {
		return nil, err
	}

	op := crdt.NewOperation(e.deviceID, e.seq, entityType, entityID, kind, payload, e.clock)

	if err := e.store.Apply(ctx, entityType, entityID, kind, op.Payload); err != nil {
		// The clock stays advanced; the mutation itself did not happen.
		return nil, fmt.Errorf("failed to apply local operation: %w", err)
	}
	if err := e.store.MarkApplied(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to record applied operation: %w", err)
	}
	if err := e.store.Enqueue(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to enqueue operation: %w", err)
	}

	// A newer local operation supersedes any pending conflict on the
	// entity.
	if err := e.store.DeleteConflictsForEntity(ctx, entityType, entityID); err != nil {
		e.logger.Warn("failed to clear superseded conflicts", "entity_id", entityID, "error", err)
	}

	e.emit(Event{Kind: EventOperationRecorded, Operation: op})

	if e.state == StateSteady || e.state == StateSyncing {
		e.pushLocked(ctx, []*crdt.Operation{op})
	}

	return op, nil
}

// ResolveChoice selects the outcome of a manual conflict resolution.
type ResolveChoice string

const (
	// ChooseLocal commits the local operation's effect.
	ChooseLocal ResolveChoice = "local"
	// ChooseRemote commits the remote operation's effect.
	ChooseRemote ResolveChoice = "remote"
	// ChoosePayload commits a caller-supplied payload.
	ChoosePayload ResolveChoice = "payload"
)

// ResolveManually commits an explicit choice for a pending conflict,
// overriding the provisional Last-Write-Wins default, and clears the
// conflict record. payload is consulted only with ChoosePayload.
func (e *Engine) ResolveManually(ctx context.Context, conflictID string, choice ResolveChoice, payload crdt.Payload) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	conflict, err := e.store.GetConflict(ctx, conflictID)
	if err != nil {
		return fmt.Errorf("failed to load conflict %s: %w", conflictID, err)
	}

	entityType := conflict.Remote.EntityType
	entityID := conflict.Remote.EntityID

	var applyErr error
	switch choice {
	case ChooseLocal:
		applyErr = e.applyOperationEffect(ctx, conflict.Local)
	case ChooseRemote:
		applyErr = e.applyOperationEffect(ctx, conflict.Remote)
	case ChoosePayload:
		if payload == nil {
			return fmt.Errorf("payload choice requires a payload")
		}
		applyErr = e.store.Apply(ctx, entityType, entityID, crdt.OpUpdate, payload)
	default:
		return fmt.Errorf("unknown resolve choice: %q", choice)
	}
	if applyErr != nil {
		e.emit(Event{Kind: EventStoreError, Conflict: conflict, Err: applyErr})
		return fmt.Errorf("failed to commit resolution: %w", applyErr)
	}

	if err := e.store.DeleteConflict(ctx, conflictID); err != nil {
		return fmt.Errorf("failed to clear conflict: %w", err)
	}

	e.emit(Event{Kind: EventConflictResolved, Conflict: conflict})
	return nil
}

// PendingOperations returns the outbox contents in creation order.
func (e *Engine) PendingOperations(ctx context.Context) ([]*crdt.Operation, error) {
	return e.store.Pending(ctx)
}

// PendingConflicts returns all conflicts awaiting manual resolution.
func (e *Engine) PendingConflicts(ctx context.Context) ([]*crdt.Conflict, error) {
	return e.store.ListConflicts(ctx)
}

// --- connection lifecycle ---

func (e *Engine) handleConnState(ctx context.Context, st transport.ConnState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch st {
	case transport.StateConnecting:
		e.setStateLocked(StateConnecting)

	case transport.StateConnected:
		e.beginSyncLocked(ctx)

	case transport.StateDisconnected:
		// Nothing is discarded: the outbox replays on the next connect.
		e.cancelSyncLocked()
		e.setStateLocked(StateDisconnected)
	}
}

// beginSyncLocked opens a full-sync session: the local clock is sent so
// the peer can compute which operations this device has not seen.
func (e *Engine) beginSyncLocked(ctx context.Context) {
	e.setStateLocked(StateSyncing)
	e.pendingSync = uuid.New().String()
	e.syncApplied = 0
	e.syncFailed = false

	if e.syncDeadline != nil {
		e.syncDeadline.Stop()
	}
	e.syncDeadline = time.NewTimer(e.syncTimeout)

	e.sendLocked(ctx, api.Message{
		Kind:          api.MessageSyncRequest,
		CorrelationID: e.pendingSync,
		DeviceID:      e.deviceID,
		Clock:         e.clock.Clone(),
	})
}

func (e *Engine) cancelSyncLocked() {
	e.pendingSync = ""
	if e.syncDeadline != nil {
		e.syncDeadline.Stop()
		e.syncDeadline = nil
	}
}

func (e *Engine) handleSyncTimeout() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingSync == "" {
		return
	}
	e.logger.Warn("full sync timed out, continuing with partial state",
		"applied", e.syncApplied)
	e.cancelSyncLocked()
	e.emit(Event{Kind: EventSyncPartial, Applied: e.syncApplied})
	e.enterSteadyLocked(context.Background())
}

// enterSteadyLocked transitions to steady and replays the outbox in FIFO
// order, preserving intra-device causal order at the receiver.
func (e *Engine) enterSteadyLocked(ctx context.Context) {
	e.setStateLocked(StateSteady)

	pending, err := e.store.Pending(ctx)
	if err != nil {
		e.logger.Error("failed to read outbox for replay", "error", err)
		return
	}
	if len(pending) > 0 {
		e.pushLocked(ctx, pending)
	}
}

func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	e.state = s
	e.emit(Event{Kind: EventStateChanged, State: s})
}

// --- inbound dispatch ---

func (e *Engine) handleMessage(ctx context.Context, data []byte) error {
	var msg api.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		e.logger.Warn("dropping malformed message", "error", err)
		return nil
	}

	switch msg.Kind {
	case api.MessageOperationPush:
		return e.handlePush(ctx, msg)
	case api.MessageSyncResponse:
		return e.handleSyncResponse(ctx, msg)
	case api.MessageAck:
		e.handleAck(ctx, msg)
		return nil
	case api.MessageError:
		e.mu.Lock()
		e.emit(Event{Kind: EventTransportError, Err: fmt.Errorf("peer error: %s", msg.Error)})
		e.mu.Unlock()
		return nil
	default:
		e.logger.Warn("dropping message of unknown kind", "kind", msg.Kind)
		return nil
	}
}

func (e *Engine) handlePush(ctx context.Context, msg api.Message) error {
	ops, err := models.OperationsFromAPI(msg.Operations)
	if err != nil {
		e.logger.Warn("rejecting malformed push", "error", err)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var acked []string
	failedDevices := make(map[string]bool)
	for _, op := range ops {
		// A failed store leaves a hole in that device's sequence; later
		// operations from it must wait for the next full sync.
		if failedDevices[op.DeviceID] {
			continue
		}
		handled, err := e.handleRemoteLocked(ctx, op)
		if err != nil {
			return err
		}
		if handled {
			acked = append(acked, op.ID)
		} else {
			failedDevices[op.DeviceID] = true
		}
	}

	if len(acked) > 0 {
		e.sendLocked(ctx, api.Message{Kind: api.MessageAck, DeviceID: e.deviceID, AckIDs: acked})
	}
	return nil
}

func (e *Engine) handleSyncResponse(ctx context.Context, msg api.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.CorrelationID != e.pendingSync || e.pendingSync == "" {
		e.logger.Debug("ignoring stale sync response", "correlation_id", msg.CorrelationID)
		return nil
	}

	ops, err := models.OperationsFromAPI(msg.Operations)
	if err != nil {
		e.logger.Warn("rejecting malformed sync response", "error", err)
		return nil
	}

	failedDevices := make(map[string]bool)
	for _, op := range ops {
		if failedDevices[op.DeviceID] {
			continue
		}
		handled, err := e.handleRemoteLocked(ctx, op)
		if err != nil {
			return err
		}
		if !handled {
			failedDevices[op.DeviceID] = true
			e.syncFailed = true
		}
	}

	// The server clock is folded in only when every operation landed. A
	// clock left behind keeps the unstored operations missing, so the
	// server resends them on the next full sync.
	if len(msg.Clock) > 0 && !e.syncFailed {
		e.clock = e.clock.Merge(crdt.VectorClock(msg.Clock))
		if err := e.persistStateLocked(ctx); err != nil {
			e.logger.Error("failed to persist clock after sync", "error", err)
		}
	}

	if msg.Final {
		applied, partial := e.syncApplied, e.syncFailed
		e.cancelSyncLocked()
		if partial {
			e.emit(Event{Kind: EventSyncPartial, Applied: applied})
		} else {
			e.emit(Event{Kind: EventSyncCompleted, Applied: applied})
		}
		e.enterSteadyLocked(ctx)
	}
	return nil
}

func (e *Engine) handleAck(ctx context.Context, msg api.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, opID := range msg.AckIDs {
		err := e.store.Remove(ctx, opID)
		switch {
		case err == nil:
			e.emit(Event{Kind: EventOperationAcked})
		case errors.Is(err, storage.ErrOperationNotFound):
			// Duplicate ack; nothing left to do.
		default:
			e.logger.Error("failed to remove acked operation", "op_id", opID, "error", err)
		}
	}
}

// handleRemoteLocked reconciles one incoming remote operation. It reports
// whether the operation was durably handled (and may be acknowledged).
// The returned error is non-nil only for integrity violations.
func (e *Engine) handleRemoteLocked(ctx context.Context, op *crdt.Operation) (bool, error) {
	// At-most-once apply: a previously seen identifier is a duplicate
	// delivery unless its content diverged.
	if seen, err := e.store.GetApplied(ctx, op.ID); err == nil {
		if _, rerr := crdt.Resolve(seen, op); rerr != nil {
			return false, fmt.Errorf("remote operation %s: %w", op.ID, rerr)
		}
		return true, nil
	} else if !errors.Is(err, storage.ErrOperationNotFound) {
		e.emit(Event{Kind: EventStoreError, Operation: op, Err: err})
		return false, nil
	}

	// Reconcile against every queued local write for the entity, oldest
	// first. A causally subsumed local operation is dropped and the remote
	// moves on to the next one; any other outcome is terminal.
	for {
		pending, err := e.store.PendingForEntity(ctx, op.EntityType, op.EntityID)
		switch {
		case errors.Is(err, storage.ErrOperationNotFound):
			return e.applyRemoteLocked(ctx, op)
		case err != nil:
			e.emit(Event{Kind: EventStoreError, Operation: op, Err: err})
			return false, nil
		}

		res, err := crdt.Resolve(pending, op)
		if err != nil {
			if errors.Is(err, crdt.ErrEntityMismatch) || errors.Is(err, crdt.ErrIdentityMismatch) || errors.Is(err, crdt.ErrMissingClock) {
				return false, fmt.Errorf("resolving %s against %s: %w", pending.ID, op.ID, err)
			}
			return false, err
		}

		if res.Outcome == crdt.AcceptRemote {
			// Drop the subsumed pending operation without re-sending.
			if err := e.store.Remove(ctx, pending.ID); err != nil && !errors.Is(err, storage.ErrOperationNotFound) {
				e.emit(Event{Kind: EventStoreError, Operation: op, Err: err})
				return false, nil
			}
			continue
		}

		return e.applyResolutionLocked(ctx, pending, op, res)
	}
}

// applyRemoteLocked applies a remote operation with no local pending write:
// no conflict is possible, the store apply goes straight through.
func (e *Engine) applyRemoteLocked(ctx context.Context, op *crdt.Operation) (bool, error) {
	if err := e.store.Apply(ctx, op.EntityType, op.EntityID, op.Kind, op.Payload); err != nil {
		e.emit(Event{Kind: EventStoreError, Operation: op, Err: err})
		return false, nil
	}
	if err := e.finishRemoteLocked(ctx, op); err != nil {
		return false, nil
	}

	// The applied operation supersedes any conflict still pending on this
	// entity.
	if err := e.store.DeleteConflictsForEntity(ctx, op.EntityType, op.EntityID); err != nil {
		e.logger.Warn("failed to clear superseded conflicts", "entity_id", op.EntityID, "error", err)
	}

	e.syncApplied++
	e.emit(Event{Kind: EventOperationApplied, Operation: op})
	return true, nil
}

// applyResolutionLocked commits a terminal resolution outcome. AcceptRemote
// never reaches here; handleRemoteLocked drops subsumed pending operations
// itself and applies the remote once no pending operation is left.
func (e *Engine) applyResolutionLocked(ctx context.Context, local, remote *crdt.Operation, res crdt.Resolution) (bool, error) {
	switch res.Outcome {
	case crdt.Duplicate:
		return true, nil

	case crdt.KeepLocal:
		// The remote operation is stale; record it as seen and re-push the
		// local one so the peer converges.
		if err := e.finishRemoteLocked(ctx, remote); err != nil {
			return false, nil
		}
		e.pushLocked(ctx, []*crdt.Operation{local})
		return true, nil

	case crdt.AutoMerged:
		if err := e.store.Apply(ctx, remote.EntityType, remote.EntityID, crdt.OpUpdate, res.Merged); err != nil {
			e.emit(Event{Kind: EventStoreError, Operation: remote, Err: err})
			return false, nil
		}
		if err := e.finishRemoteLocked(ctx, remote); err != nil {
			return false, nil
		}
		e.syncApplied++
		e.emit(Event{Kind: EventConflictAutoMerged, Operation: remote})
		return true, nil

	case crdt.Unresolved:
		// Commit the deterministic Last-Write-Wins default provisionally;
		// the conflict record lets the caller override it.
		if err := e.applyProvisionalLocked(ctx, res); err != nil {
			e.emit(Event{Kind: EventStoreError, Operation: remote, Err: err})
			return false, nil
		}
		if err := e.store.SaveConflict(ctx, res.Conflict); err != nil {
			e.emit(Event{Kind: EventStoreError, Operation: remote, Err: err})
			return false, nil
		}
		if err := e.finishRemoteLocked(ctx, remote); err != nil {
			return false, nil
		}
		e.syncApplied++
		e.emit(Event{Kind: EventConflictDetected, Conflict: res.Conflict})
		return true, nil

	default:
		return false, fmt.Errorf("unknown resolution outcome: %v", res.Outcome)
	}
}

func (e *Engine) applyProvisionalLocked(ctx context.Context, res crdt.Resolution) error {
	conflict := res.Conflict
	if conflict.Winner.Kind == crdt.OpDelete {
		return e.store.Apply(ctx, conflict.Winner.EntityType, conflict.Winner.EntityID, crdt.OpDelete, nil)
	}
	return e.store.Apply(ctx, conflict.Winner.EntityType, conflict.Winner.EntityID, crdt.OpUpdate, conflict.Provisional)
}

// finishRemoteLocked records the operation as applied and folds its clock
// into the local clock (merge, not replace, so both lineages survive).
func (e *Engine) finishRemoteLocked(ctx context.Context, op *crdt.Operation) error {
	if err := e.store.MarkApplied(ctx, op); err != nil {
		e.emit(Event{Kind: EventStoreError, Operation: op, Err: err})
		return err
	}
	e.clock = e.clock.Merge(op.Clock)
	if err := e.persistStateLocked(ctx); err != nil {
		e.emit(Event{Kind: EventStoreError, Operation: op, Err: err})
		return err
	}
	return nil
}

// applyOperationEffect replays one operation's effect on the entity store.
func (e *Engine) applyOperationEffect(ctx context.Context, op *crdt.Operation) error {
	return e.store.Apply(ctx, op.EntityType, op.EntityID, op.Kind, op.Payload)
}

// --- outbound ---

// pushLocked delivers operations to the peer. A transport failure leaves
// every operation queued; only an acknowledgment removes outbox entries.
func (e *Engine) pushLocked(ctx context.Context, ops []*crdt.Operation) {
	e.sendLocked(ctx, api.Message{
		Kind:       api.MessageOperationPush,
		DeviceID:   e.deviceID,
		Operations: models.OperationsToAPI(ops),
	})
}

func (e *Engine) sendLocked(ctx context.Context, msg api.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		e.logger.Error("failed to marshal message", "kind", msg.Kind, "error", err)
		return
	}
	if err := e.transport.Send(ctx, data); err != nil {
		e.logger.Warn("send failed, operations stay queued", "kind", msg.Kind, "error", err)
		e.emit(Event{Kind: EventTransportError, Err: err})
	}
}

func (e *Engine) persistStateLocked(ctx context.Context) error {
	state := &storage.EngineState{
		DeviceID: e.deviceID,
		Seq:      e.seq,
		Clock:    e.clock.Clone(),
	}
	if err := e.store.SaveState(ctx, state); err != nil {
		return fmt.Errorf("failed to persist engine state: %w", err)
	}
	return nil
}

// emit publishes an event without ever blocking the engine; the oldest
// event is dropped when the buffer is full.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		select {
		case <-e.events:
		default:
		}
		select {
		case e.events <- ev:
		default:
		}
	}
}
