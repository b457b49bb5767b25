package sync

import (
	"github.com/iudanet/coinkeeper/internal/crdt"
)

// State is the engine's synchronization session state.
type State int

const (
	// StateDisconnected: no transport connection; operations queue in the
	// outbox.
	StateDisconnected State = iota
	// StateConnecting: transport dial in progress.
	StateConnecting
	// StateSyncing: full-sync session in progress after connect.
	StateSyncing
	// StateSteady: connected and exchanging operations as they happen.
	StateSteady
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSyncing:
		return "syncing"
	case StateSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// EventKind classifies engine events.
type EventKind string

const (
	// EventStateChanged reports a session state transition.
	EventStateChanged EventKind = "state_changed"
	// EventOperationRecorded reports a freshly recorded local operation.
	EventOperationRecorded EventKind = "operation_recorded"
	// EventOperationApplied reports a remote operation applied to the
	// local store.
	EventOperationApplied EventKind = "operation_applied"
	// EventOperationAcked reports a local operation acknowledged by the
	// peer and removed from the outbox.
	EventOperationAcked EventKind = "operation_acked"
	// EventConflictAutoMerged reports a concurrent pair merged without
	// data loss.
	EventConflictAutoMerged EventKind = "conflict_auto_merged"
	// EventConflictDetected reports an unresolved conflict awaiting manual
	// resolution; the Last-Write-Wins default has been committed
	// provisionally.
	EventConflictDetected EventKind = "conflict_detected"
	// EventConflictResolved reports a manual resolution committed.
	EventConflictResolved EventKind = "conflict_resolved"
	// EventSyncCompleted reports a finished full-sync session.
	EventSyncCompleted EventKind = "sync_completed"
	// EventSyncPartial reports a full-sync session that ended without
	// fetching everything, either on timeout or because an operation
	// could not be stored. A later Resync retries.
	EventSyncPartial EventKind = "sync_partial"
	// EventTransportError reports a recoverable transport failure; the
	// affected operations stay queued.
	EventTransportError EventKind = "transport_error"
	// EventStoreError reports a store-apply failure; the operation stays
	// pending for retry.
	EventStoreError EventKind = "store_error"
)

// Event is emitted on the engine's event stream. Which fields are set
// depends on Kind.
type Event struct {
	Err       error
	Operation *crdt.Operation
	Conflict  *crdt.Conflict
	Kind      EventKind
	State     State
	Applied   int
}
