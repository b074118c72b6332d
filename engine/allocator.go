/*
allocator.go - Deterministic center/date/slot selection

PURPOSE:
  Stateless decision logic. Given an ordered candidate list and the
  capacity ledger, the allocator picks the first admissible (center,
  date, slot) or declares overload.

SCAN ORDER (the tie-break policy):
  Centers strictly in resolution order (most-preferred first); within a
  center, dates earliest-first across the look-ahead window; within a
  date, slots in template order. Given identical inputs and ledger
  state, the allocator always lands on the same slot.

SNAPSHOT vs RESERVE:
  The allocator never trusts a read. Reserve's own Denied outcome is
  authoritative: a denial simply advances the scan to the next slot,
  date, or center. There is no lock held across the whole decision, so
  a snapshot going stale between read and reserve is expected and
  harmless.

WALK-IN BUFFER:
  A configurable share of every slot (the stock network holds back 20%)
  is reserved for walk-ins. Scheduled bookings reserve against the
  buffered ceiling, walk-ins against the full limit - walk-ins compete
  with everyone. The share is taken literally: zero means no hold-back.

SEE ALSO:
  - ledger.go: Reserve semantics
  - redistribute.go: Re-runs this scan with the saturated center excluded
*/
package engine

import (
	"context"
	"math"
	"time"
)

// =============================================================================
// CANDIDATE - The allocator's view of a center
// =============================================================================

// Candidate carries just what the scan needs: identity, the hard
// per-slot limit, and the ordered daily template.
type Candidate struct {
	ID       CenterID
	Name     string
	Limit    int
	Template []SlotLabel
}

// Resolver produces ordered candidate lists. Implementations must be
// fast local reads; the allocator calls this on its critical path.
type Resolver interface {
	// Candidates returns the ordered, total candidate list for a
	// citizen's city/pincode. Order is significant: it is the tie-break.
	Candidates(city, pincode string) []Candidate

	// Candidate looks up a single center.
	Candidate(id CenterID) (Candidate, bool)
}

// =============================================================================
// ALLOCATOR
// =============================================================================

// DefaultLookaheadDays bounds how far into the future the scan walks
// before declaring overload.
const DefaultLookaheadDays = 14

// DefaultWalkinBuffer is the share of each slot held back for walk-ins.
const DefaultWalkinBuffer = 0.20

// Placement is a successful allocation decision.
type Placement struct {
	Center Candidate
	Key    SlotKey

	// Deferred is true when the slot is not on the earliest scanned day.
	Deferred bool
}

// Allocator picks a (center, date, slot) for a request, or declares
// overload. It holds no mutable state of its own; all bookkeeping lives
// in the Ledger.
type Allocator struct {
	Ledger Ledger

	// LookaheadDays bounds the scan. Zero means DefaultLookaheadDays.
	LookaheadDays int

	// WalkinBuffer is the reserved walk-in share of each slot, in [0, 1),
	// taken literally: zero holds nothing back. The engine resolves the
	// default before constructing the allocator.
	WalkinBuffer float64

	// Clock is injectable for deterministic tests. Defaults to time.Now.
	Clock func() time.Time
}

func (a *Allocator) window() int {
	if a.LookaheadDays > 0 {
		return a.LookaheadDays
	}
	return DefaultLookaheadDays
}

func (a *Allocator) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}

// AdmitCeiling returns the admission ceiling for a caller against a slot
// with the given hard limit: the buffered share for scheduled bookings,
// the full limit for walk-ins. Never below 1 so tiny slots stay bookable.
func (a *Allocator) AdmitCeiling(limit int, userType UserType) int {
	if userType == UserWalkIn {
		return limit
	}
	admit := int(math.Floor(float64(limit) * (1 - a.WalkinBuffer)))
	if admit < 1 {
		admit = 1
	}
	if admit > limit {
		admit = limit
	}
	return admit
}

// Place scans the candidates for the first admissible slot and reserves
// it. On success the returned Placement's capacity counter has been
// incremented exactly once; the caller owns pairing it with a tracker
// record (and releasing it if that pairing fails).
//
// When every candidate is exhausted across the window, Place returns an
// OverloadError naming the first (most-preferred) candidate.
func (a *Allocator) Place(ctx context.Context, candidates []Candidate, userType UserType) (*Placement, error) {
	if len(candidates) == 0 {
		return nil, ErrCenterNotFound
	}

	now := a.now()
	start := DateOf(now)
	window := a.window()

	for _, center := range candidates {
		admit := a.AdmitCeiling(center.Limit, userType)

		for offset := 0; offset < window; offset++ {
			date := start.AddDays(offset)

			for _, slot := range center.Template {
				// Same-day cutoff: scheduled bookings never target a slot
				// at or before the current hour. Walk-ins are already at
				// the door, so they may take the current hour.
				if offset == 0 && userType != UserWalkIn && slot.Hour() <= now.Hour() {
					continue
				}

				key := SlotKey{CenterID: center.ID, Date: date, Slot: slot}
				granted, err := a.Ledger.Reserve(ctx, key, center.Limit, admit)
				if err != nil {
					return nil, err
				}
				if granted {
					return &Placement{
						Center:   center,
						Key:      key,
						Deferred: offset > 0,
					}, nil
				}
				// Denied is authoritative: keep scanning.
			}
		}
	}

	return nil, &OverloadError{CenterID: candidates[0].ID, WindowDays: window}
}
