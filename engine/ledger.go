/*
ledger.go - Capacity ledger contract

PURPOSE:
  The Ledger is the single source of truth for admission decisions.
  It keeps one counter per SlotKey and answers exactly one question
  atomically: is there room for one more appointment in this slot?

CRITICAL INVARIANTS:
  1. 0 <= booked <= limit for every counter, at all times, under
     concurrent increments. This is the system's one hard correctness
     property: two Reserve calls on the same key must never both succeed
     once the admission ceiling is reached.
  2. Release is floored at zero, guarding against double-release from
     retried failure paths.
  3. Snapshot is a heuristic ordering hint only. A slot visible as open
     may be claimed before the caller's Reserve; the Reserve outcome is
     authoritative and the caller moves on to the next slot/date/center.

LIFECYCLE:
  Counters are created lazily on the first Reserve against a SlotKey and
  destroyed only by ZeroAll (the full system reset).

IMPLEMENTATIONS:
  - engine/store/memory.go: Sharded in-memory counters (tests/dev)
  - store/sqlite/sqlite.go: Durable counters via conditional UPDATE

SEE ALSO:
  - allocator.go: Sole producer of Reserve calls on the booking path
  - redistribute.go: Pairs Release with re-Reserve per request
*/
package engine

import "context"

// =============================================================================
// COUNTER - Booked vs limit for one SlotKey
// =============================================================================

// Counter is the per-SlotKey capacity state.
type Counter struct {
	Booked int
	Limit  int
}

// Remaining returns the open seats under the hard limit.
func (c Counter) Remaining() int {
	if c.Limit < c.Booked {
		return 0
	}
	return c.Limit - c.Booked
}

// =============================================================================
// LEDGER - Atomic admission interface
// =============================================================================

// Ledger holds per-SlotKey capacity counters.
//
// Reserve must be linearizable per SlotKey: implementations serialize
// concurrent reservations against the same key so that no more than the
// admission ceiling ever succeed. No external calls happen inside the
// per-key critical section, so every operation completes in bounded time.
type Ledger interface {
	// Reserve atomically admits one appointment into the slot when
	// booked < min(admit, limit), incrementing booked and returning true.
	// Otherwise it returns false without mutation.
	//
	// limit is the hard per-slot capacity recorded on the counter (from
	// the owning center's template). admit is this caller's admission
	// ceiling: scheduled bookings pass the walk-in-buffered share, walk-ins
	// pass the full limit.
	Reserve(ctx context.Context, key SlotKey, limit, admit int) (bool, error)

	// Release decrements the slot's booked count, floored at zero.
	Release(ctx context.Context, key SlotKey) error

	// Snapshot returns a read-only view of every live counter for a center
	// on a date. Used by callers that need an ordering hint or a load
	// report without holding a lock across the whole decision.
	Snapshot(ctx context.Context, centerID CenterID, date Date) (map[SlotKey]Counter, error)

	// BookedByCenter returns the sum of booked across all counters for a
	// center. Used by conservation checks and load reporting.
	BookedByCenter(ctx context.Context, centerID CenterID) (int, error)

	// ZeroAll resets every counter's booked value to zero (limits are
	// template-derived and unaffected). Only the reset control calls this,
	// under the global write barrier.
	ZeroAll(ctx context.Context) error
}
