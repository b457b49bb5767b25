package crdt

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Ordering is the result of comparing two vector clocks.
type Ordering int

const (
	// OrderedBefore means the receiver causally precedes the other clock.
	OrderedBefore Ordering = iota
	// OrderedAfter means the other clock causally precedes the receiver.
	OrderedAfter
	// OrderedEqual means both clocks are entrywise identical.
	OrderedEqual
	// Concurrent means neither clock precedes the other.
	Concurrent
)

// String returns a human-readable name for the ordering.
func (o Ordering) String() string {
	switch o {
	case OrderedBefore:
		return "before"
	case OrderedAfter:
		return "after"
	case OrderedEqual:
		return "equal"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// VectorClock maps a device identifier to a monotonically growing counter.
// It tracks causal relationships between events without a shared wall clock.
//
// Clocks are treated as immutable value objects: Increment and Merge return
// a fresh clock and never modify the receiver. A device absent from the map
// has counter 0.
type VectorClock map[string]uint64

// NewVectorClock returns an empty clock (no device has ticked yet).
func NewVectorClock() VectorClock {
	return VectorClock{}
}

// Get returns the counter for deviceID, 0 if the device is unknown.
func (vc VectorClock) Get(deviceID string) uint64 {
	return vc[deviceID]
}

// Increment returns a copy of the clock with deviceID's counter advanced by
// one. The receiver is left unchanged.
func (vc VectorClock) Increment(deviceID string) VectorClock {
	next := vc.Clone()
	next[deviceID]++
	return next
}

// Merge returns the entrywise maximum over the union of both clocks.
// The operation is commutative and idempotent; neither input is modified.
func (vc VectorClock) Merge(other VectorClock) VectorClock {
	merged := vc.Clone()
	for deviceID, counter := range other {
		if counter > merged[deviceID] {
			merged[deviceID] = counter
		}
	}
	return merged
}

// Compare determines the causal relationship between two clocks.
//
// The receiver is before the other clock when every counter is less than or
// equal to the other's and at least one is strictly less. After is the
// symmetric case. Clocks that are neither ordered nor entrywise equal are
// concurrent.
func (vc VectorClock) Compare(other VectorClock) Ordering {
	var less, greater bool

	for deviceID, counter := range vc {
		otherCounter := other[deviceID]
		if counter < otherCounter {
			less = true
		} else if counter > otherCounter {
			greater = true
		}
	}
	for deviceID, otherCounter := range other {
		if _, ok := vc[deviceID]; ok {
			continue
		}
		if otherCounter > 0 {
			less = true
		}
	}

	switch {
	case less && greater:
		return Concurrent
	case less:
		return OrderedBefore
	case greater:
		return OrderedAfter
	default:
		return OrderedEqual
	}
}

// Dominates reports whether the receiver already covers other, meaning
// every counter of other is less than or equal to the receiver's. A clock
// dominates everything it is equal to or after.
func (vc VectorClock) Dominates(other VectorClock) bool {
	ord := vc.Compare(other)
	return ord == OrderedAfter || ord == OrderedEqual
}

// Equal reports entrywise equality, ignoring zero-valued entries.
func (vc VectorClock) Equal(other VectorClock) bool {
	return vc.Compare(other) == OrderedEqual
}

// Clone returns an independent copy of the clock.
func (vc VectorClock) Clone() VectorClock {
	cloned := make(VectorClock, len(vc))
	maps.Copy(cloned, vc)
	return cloned
}

// MarshalJSON serializes the clock as a plain device-to-counter object.
// encoding/json sorts map keys, so the wire form is deterministic.
func (vc VectorClock) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]uint64(vc))
}

// UnmarshalJSON restores a clock from its wire form. Counters and device
// identifiers round-trip exactly.
func (vc *VectorClock) UnmarshalJSON(data []byte) error {
	var m map[string]uint64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to unmarshal vector clock: %w", err)
	}
	if m == nil {
		m = map[string]uint64{}
	}
	*vc = VectorClock(m)
	return nil
}
