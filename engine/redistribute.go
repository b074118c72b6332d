/*
redistribute.go - Moving demand away from a saturated center

PURPOSE:
  When a center is saturated, the controller re-runs the allocator for
  that center's unconfirmed and future demand against the remaining
  centers. Triggered manually by an administrator, or automatically when
  overload signals for one center cross a configurable threshold.

PER-REQUEST ATOMICITY:
  The batch is not atomic - each request is. Every request is processed
  under the tracker's per-request mutation lock and re-read once the
  lock is held, so a request cancelled between the batch listing and its
  turn is skipped untouched instead of having a stale seat released. The
  order of operations then guarantees a request is never left holding
  two slots, and never left with an incremented counter and no recorded
  assignment:

    1. Release the currently held SlotKey (if Confirmed)
    2. Reserve a new slot via the allocator (target center excluded)
    3. Record the new assignment; if recording fails, release the new
       reservation immediately

  A request that cannot be placed anywhere is parked as Pending with its
  capacity released - it re-enters the overload pool holding no phantom
  reservation.

FAIRNESS:
  Requests are processed oldest-first (creation order), so the citizens
  who have waited longest are reassigned first.

HISTORY:
  Past-dated confirmed appointments are never touched. Redistribution
  reshapes the future, it does not rewrite what already happened.

SEE ALSO:
  - allocator.go: The scan re-run here with the target excluded
  - engine.go: Wires the automatic trigger behind the facade
*/
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// RedistributionReport summarizes one controller run.
type RedistributionReport struct {
	CenterID   CenterID
	Considered int // requests loaded for the target center
	Moved      int // successfully reassigned (status Redistributed)
	Parked     int // left Pending with capacity released
}

// Controller moves pending and future-confirmed demand off a target
// center onto the remaining network.
type Controller struct {
	Allocator *Allocator
	Tracker   *Tracker
	Ledger    Ledger
	Resolver  Resolver

	// Logf records per-request redistribution failures. Defaults to
	// log.Printf.
	Logf func(format string, args ...any)
}

func (c *Controller) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// ExcludeCenter filters a candidate list down to everything but one center.
func ExcludeCenter(candidates []Candidate, exclude CenterID) []Candidate {
	var out []Candidate
	for _, cand := range candidates {
		if cand.ID != exclude {
			out = append(out, cand)
		}
	}
	return out
}

// Redistribute processes the target center's redistributable demand:
// Pending requests routed to it plus Confirmed requests assigned to it
// for today or later, oldest first.
func (c *Controller) Redistribute(ctx context.Context, target CenterID) (*RedistributionReport, error) {
	if _, ok := c.Resolver.Candidate(target); !ok {
		return nil, ErrCenterNotFound
	}

	today := DateOf(c.Allocator.now())
	requests, err := c.Tracker.Store.List(ctx, Filter{
		CenterScope: target,
		Statuses:    []Status{StatusPending, StatusConfirmed},
		FromDate:    today,
	})
	if err != nil {
		return nil, err
	}

	report := &RedistributionReport{CenterID: target, Considered: len(requests)}
	for _, listed := range requests {
		moved, err := c.redistributeOne(ctx, listed.ID, target)
		if err != nil {
			c.logf("redistribute: request %s parked: %v", listed.ID, err)
			report.Parked++
			continue
		}
		if moved {
			report.Moved++
		}
	}
	return report, nil
}

// redistributeOne reassigns a single request under its mutation lock.
// The listed snapshot is not trusted: the record is re-read once the
// lock is held, and a request no longer redistributable (cancelled or
// deleted since the listing) is skipped, reported as neither moved nor
// parked. On a placement failure the request ends Pending with no
// assignment and no held capacity.
func (c *Controller) redistributeOne(ctx context.Context, id RequestID, target CenterID) (bool, error) {
	unlock := c.Tracker.lockRequest(id)
	defer unlock()

	current, err := c.Tracker.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return false, nil
		}
		return false, err
	}
	req := *current
	if req.Status != StatusPending && req.Status != StatusConfirmed {
		return false, nil
	}

	// Step 1: let go of the current slot so its seat is usable again.
	if req.Status == StatusConfirmed && req.Assigned() {
		if err := c.Ledger.Release(ctx, req.AssignedKey()); err != nil {
			return false, err
		}
		req.ClearAssignment()
	}

	// Step 2: re-run the allocator without the saturated center.
	candidates := ExcludeCenter(c.Resolver.Candidates(req.City, req.Pincode), target)
	placement, err := c.Allocator.Place(ctx, candidates, req.UserType)
	if err != nil {
		// Park the request: Pending, unassigned, capacity already released.
		req.Status = StatusPending
		if updateErr := c.Tracker.Update(ctx, req); updateErr != nil {
			return false, errors.Join(err, updateErr)
		}
		return false, err
	}

	// Step 3: record the new assignment; undo the reservation if the
	// record cannot be written.
	req.AssignedCenter = placement.Key.CenterID
	req.AssignedDate = placement.Key.Date
	req.AssignedSlot = placement.Key.Slot
	req.Status = StatusRedistributed
	if err := c.Tracker.Update(ctx, req); err != nil {
		if releaseErr := c.Ledger.Release(ctx, placement.Key); releaseErr != nil {
			return false, errors.Join(err, releaseErr)
		}
		return false, err
	}
	return true, nil
}

// =============================================================================
// OVERLOAD MONITOR - Automatic trigger policy
// =============================================================================

// OverloadMonitor counts overload signals per center within a sliding
// window. The automatic redistribution trigger is a configurable
// extension: with Threshold zero the monitor never fires and only the
// manual admin trigger operates.
type OverloadMonitor struct {
	// Threshold is the number of overload signals within Window that
	// fires the trigger. Zero disables automatic triggering.
	Threshold int

	// Window is the sliding window length. Zero means one minute.
	Window time.Duration

	mu     sync.Mutex
	events map[CenterID][]time.Time
}

func (m *OverloadMonitor) window() time.Duration {
	if m.Window > 0 {
		return m.Window
	}
	return time.Minute
}

// Record notes an overload signal for a center and reports whether the
// threshold was crossed. Crossing drains the center's window so one
// sustained burst fires exactly once.
func (m *OverloadMonitor) Record(center CenterID, at time.Time) bool {
	if m.Threshold <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.events == nil {
		m.events = make(map[CenterID][]time.Time)
	}

	cutoff := at.Add(-m.window())
	kept := m.events[center][:0]
	for _, t := range m.events[center] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, at)

	if len(kept) >= m.Threshold {
		m.events[center] = nil
		return true
	}
	m.events[center] = kept
	return false
}
