package crdt

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Resolver contract violations. These indicate a broken invariant upstream
// (identifier generation or dispatch) and are the only failures the sync
// core lets escape as errors.
var (
	// ErrEntityMismatch is returned when the two operations reference
	// different entities.
	ErrEntityMismatch = errors.New("operations reference different entities")

	// ErrMissingClock is returned when an operation carries no vector clock
	// snapshot.
	ErrMissingClock = errors.New("operation is missing vector clock data")

	// ErrIdentityMismatch is returned when two operations share an
	// identifier but differ in content.
	ErrIdentityMismatch = errors.New("operations share an identifier but differ in content")
)

// Outcome classifies the result of reconciling a local pending operation
// against an incoming remote operation.
type Outcome int

const (
	// AcceptRemote: the local operation causally precedes the remote one;
	// the remote supersedes and the local pending operation is discarded.
	AcceptRemote Outcome = iota
	// KeepLocal: the remote operation is causally stale; the local pending
	// operation stays and should be re-pushed.
	KeepLocal
	// Duplicate: same logical event delivered again; acknowledge and do
	// nothing.
	Duplicate
	// AutoMerged: concurrent updates touching disjoint field sets; the
	// merged payload is the union of both.
	AutoMerged
	// Unresolved: a true conflict with a deterministic Last-Write-Wins
	// default, surfaced for manual resolution before the default becomes
	// final.
	Unresolved
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case AcceptRemote:
		return "accept_remote"
	case KeepLocal:
		return "keep_local"
	case Duplicate:
		return "duplicate"
	case AutoMerged:
		return "auto_merged"
	case Unresolved:
		return "unresolved"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Conflict describes a concurrent pair that could not be auto-merged. The
// Winner is the deterministic Last-Write-Wins default; Provisional is the
// payload committed pending manual resolution (nil when the winner is a
// delete). The conflict is keyed by the remote operation's identifier.
type Conflict struct {
	DetectedAt  time.Time  `json:"detected_at"`
	Local       *Operation `json:"local"`
	Remote      *Operation `json:"remote"`
	Winner      *Operation `json:"winner"`
	Provisional Payload    `json:"provisional,omitempty"`
	ID          string     `json:"id"`
}

// Resolution is the decision produced by Resolve. Apply carries the
// operation to apply for AcceptRemote and KeepLocal (and the LWW winner for
// Unresolved); Merged carries the combined payload for AutoMerged and for
// unresolved overlapping-field conflicts.
type Resolution struct {
	Apply    *Operation
	Merged   Payload
	Conflict *Conflict
	Outcome  Outcome
}

// Resolve reconciles a local pending operation against an incoming remote
// operation targeting the same entity.
//
// Causally ordered pairs resolve without conflict: before means the remote
// supersedes, after means the local wins and is re-pushed, equal means
// duplicate delivery. Concurrent pairs auto-merge only when both operations
// are non-delete mutations of the same kind touching disjoint fields;
// everything else falls back to a deterministic Last-Write-Wins default
// surfaced as Unresolved so a caller may override it.
//
// Resolve never fails for a valid concurrent pair. It fails only on caller
// contract violations: different entities, missing clock data, or two
// operations sharing an identifier with diverging content.
func Resolve(local, remote *Operation) (Resolution, error) {
	if local == nil || remote == nil {
		return Resolution{}, fmt.Errorf("resolve requires both operations: %w", ErrMissingClock)
	}
	if !local.SameEntity(remote) {
		return Resolution{}, fmt.Errorf("local targets %s/%s, remote targets %s/%s: %w",
			local.EntityType, local.EntityID, remote.EntityType, remote.EntityID, ErrEntityMismatch)
	}
	if len(local.Clock) == 0 || len(remote.Clock) == 0 {
		return Resolution{}, fmt.Errorf("operation %s: %w", missingClockID(local, remote), ErrMissingClock)
	}

	if local.ID == remote.ID {
		if !sameContent(local, remote) {
			return Resolution{}, fmt.Errorf("operation %s: %w", local.ID, ErrIdentityMismatch)
		}
		return Resolution{Outcome: Duplicate}, nil
	}

	switch local.Clock.Compare(remote.Clock) {
	case OrderedBefore:
		return Resolution{Outcome: AcceptRemote, Apply: remote}, nil
	case OrderedAfter:
		return Resolution{Outcome: KeepLocal, Apply: local}, nil
	case OrderedEqual:
		// Distinct operations cannot share a clock under correct
		// sequencing; treat as duplicate delivery.
		return Resolution{Outcome: Duplicate}, nil
	}

	// True conflict.
	if mergeable(local, remote) && disjointFields(local.Payload, remote.Payload) {
		return Resolution{Outcome: AutoMerged, Merged: unionPayload(local, remote)}, nil
	}

	winner := newerOf(local, remote)
	conflict := &Conflict{
		ID:         remote.ID,
		Local:      local.Clone(),
		Remote:     remote.Clone(),
		Winner:     winner.Clone(),
		DetectedAt: time.Now().UTC(),
	}
	if mergeable(local, remote) {
		// Overlapping fields: union with colliding fields taken from the
		// later writer.
		conflict.Provisional = unionPayload(local, remote)
	} else if winner.Kind != OpDelete {
		conflict.Provisional = winner.Payload.Clone()
	}

	return Resolution{
		Outcome:  Unresolved,
		Apply:    conflict.Winner,
		Merged:   conflict.Provisional,
		Conflict: conflict,
	}, nil
}

// mergeable reports whether field-level merge may be attempted: both
// operations are the same non-delete kind.
func mergeable(a, b *Operation) bool {
	return a.Kind == b.Kind && a.Kind != OpDelete
}

// disjointFields reports whether the two payloads touch no common field.
func disjointFields(a, b Payload) bool {
	for field := range a {
		if _, ok := b[field]; ok {
			return false
		}
	}
	return true
}

// unionPayload combines both payloads; colliding fields take the value from
// the later writer (timestamp, then device identifier, so both peers pick
// the same winner without coordination).
func unionPayload(local, remote *Operation) Payload {
	winner, loser := newerOf(local, remote), olderOf(local, remote)

	merged := make(Payload, len(local.Payload)+len(remote.Payload))
	for field, value := range loser.Payload {
		merged[field] = value
	}
	for field, value := range winner.Payload {
		merged[field] = value
	}
	return merged
}

// newerOf picks the Last-Write-Wins winner: strictly later timestamp first,
// exact ties break on device identifier lexical order.
func newerOf(a, b *Operation) *Operation {
	if a.Timestamp.After(b.Timestamp) {
		return a
	}
	if b.Timestamp.After(a.Timestamp) {
		return b
	}
	if a.DeviceID > b.DeviceID {
		return a
	}
	return b
}

func olderOf(a, b *Operation) *Operation {
	if newerOf(a, b) == a {
		return b
	}
	return a
}

// sameContent reports whether two operations carrying the same identifier
// also agree on everything a receiver would act on.
func sameContent(a, b *Operation) bool {
	return a.Kind == b.Kind &&
		a.DeviceID == b.DeviceID &&
		a.Clock.Equal(b.Clock) &&
		reflect.DeepEqual(a.Payload, b.Payload)
}

func missingClockID(local, remote *Operation) string {
	if len(local.Clock) == 0 {
		return local.ID
	}
	return remote.ID
}
