/*
engine.go - The allocation engine facade

PURPOSE:
  Wires the allocator, ledger, tracker, and redistribution controller
  behind one façade and enforces the global maintenance barrier. This is
  the only type the API layer talks to.

CONCURRENCY MODEL:
  Every operation takes the gate's read lock; Reset takes the write
  lock. Independent bookings, lookups, queries, and redistribution runs
  proceed in parallel - fine-grained atomicity lives in the ledger and
  tracker. Reset is the one operation that blocks the whole engine:
  while it runs, everything else queues on the gate and resumes when the
  wipe completes.

  Mutating one request is a read-modify-write against both the tracker
  and the ledger, and a cancellation can race another cancellation or a
  redistribution run over the same identifier. The tracker's striped
  per-request lock serializes those flows: whoever holds it sees the
  current status and owns the release-then-update sequence outright.

BOOKING FLOW:
  Validate -> resolve candidates -> allocator scan (reserves capacity)
  -> tracker create. Reserve-then-record order means a failed record
  write releases the reservation: no counter increment ever exists
  without a matching stored assignment.

SEE ALSO:
  - allocator.go, redistribute.go, tracker.go: The composed parts
  - api/handlers.go: The HTTP surface over this facade
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// METRICS RECORDER - Instrumentation seam
// =============================================================================

// Recorder receives engine events. The metrics package implements this
// with Prometheus counters; the zero engine uses a no-op.
type Recorder interface {
	BookingConfirmed(center CenterID)
	OverloadSignaled(center CenterID)
	RequestsRedistributed(count int)
	RequestCancelled()
	ResetPerformed()
}

type nopRecorder struct{}

func (nopRecorder) BookingConfirmed(CenterID) {}
func (nopRecorder) OverloadSignaled(CenterID) {}
func (nopRecorder) RequestsRedistributed(int) {}
func (nopRecorder) RequestCancelled()         {}
func (nopRecorder) ResetPerformed()           {}

// =============================================================================
// ENGINE
// =============================================================================

// Options tunes an Engine. The zero value is a working default.
type Options struct {
	LookaheadDays int

	// WalkinBuffer overrides the walk-in hold-back share. Nil means
	// DefaultWalkinBuffer; a pointer to zero disables the hold-back, so
	// an explicit zero from configuration is honored rather than
	// silently re-defaulted.
	WalkinBuffer *float64

	OverloadThreshold int           // 0 disables the automatic trigger
	OverloadWindow    time.Duration // sliding window for the trigger
	Clock             func() time.Time
	Metrics           Recorder
	Logf              func(format string, args ...any)
}

// Engine is the appointment allocation and capacity redistribution
// engine.
type Engine struct {
	// gate is the global maintenance barrier. Readers are every normal
	// operation; the sole writer is Reset.
	gate sync.RWMutex

	ledger     Ledger
	tracker    *Tracker
	resolver   Resolver
	allocator  *Allocator
	controller *Controller
	monitor    *OverloadMonitor
	metrics    Recorder
}

// New assembles an engine over a capacity ledger, a tracker store, and
// a center resolver.
func New(ledger Ledger, trackerStore TrackerStore, resolver Resolver, opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	buffer := DefaultWalkinBuffer
	if opts.WalkinBuffer != nil {
		buffer = *opts.WalkinBuffer
	}

	tracker := NewTracker(trackerStore)
	tracker.Clock = clock

	allocator := &Allocator{
		Ledger:        ledger,
		LookaheadDays: opts.LookaheadDays,
		WalkinBuffer:  buffer,
		Clock:         clock,
	}

	return &Engine{
		ledger:    ledger,
		tracker:   tracker,
		resolver:  resolver,
		allocator: allocator,
		controller: &Controller{
			Allocator: allocator,
			Tracker:   tracker,
			Ledger:    ledger,
			Resolver:  resolver,
			Logf:      opts.Logf,
		},
		monitor: &OverloadMonitor{
			Threshold: opts.OverloadThreshold,
			Window:    opts.OverloadWindow,
		},
		metrics: metrics,
	}
}

// Ready reports whether the engine is accepting work, without queueing
// behind an in-flight reset.
func (e *Engine) Ready() error {
	if !e.gate.TryRLock() {
		return ErrMaintenanceInProgress
	}
	e.gate.RUnlock()
	return nil
}

// =============================================================================
// BOOKING
// =============================================================================

// BookingInput is the citizen-supplied request.
type BookingInput struct {
	Name        string
	Phone       string
	Age         int
	RequestType string
	UserType    UserType
	City        string
	Pincode     string
}

func (in *BookingInput) validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", in.Name},
		{"phone", in.Phone},
		{"request_type", in.RequestType},
		{"city", in.City},
		{"pincode", in.Pincode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	if in.Age < 0 || in.Age > 150 {
		return &ValidationError{Field: "age", Reason: "must be between 0 and 150"}
	}
	switch in.UserType {
	case "":
		in.UserType = UserScheduled
	case UserScheduled, UserWalkIn:
	default:
		return &ValidationError{Field: "user_type", Reason: "must be Scheduled or Walk-in"}
	}
	return nil
}

// BookingResult is a booking outcome. On overload, Request holds the
// Pending record and the returned error wraps ErrOverload.
type BookingResult struct {
	Request    Request
	CenterName string
	Message    string
}

// Book is the citizen entry point: resolve candidates, reserve the
// first admissible slot, persist the record. This is the sole path to
// status Confirmed.
func (e *Engine) Book(ctx context.Context, in BookingInput) (*BookingResult, error) {
	e.gate.RLock()
	defer e.gate.RUnlock()

	if err := in.validate(); err != nil {
		return nil, err
	}

	candidates := e.resolver.Candidates(in.City, in.Pincode)
	if len(candidates) == 0 {
		return nil, ErrCenterNotFound
	}
	preferred := candidates[0]

	record := Request{
		Name:            in.Name,
		Phone:           in.Phone,
		Age:             in.Age,
		AgeGroup:        AgeGroupFor(in.Age),
		RequestType:     in.RequestType,
		UserType:        in.UserType,
		City:            in.City,
		Pincode:         in.Pincode,
		PreferredCenter: preferred.ID,
	}

	placement, err := e.allocator.Place(ctx, candidates, in.UserType)
	if err != nil {
		var overload *OverloadError
		if !errors.As(err, &overload) {
			return nil, err
		}

		// Overload: persist a Pending record with no assignment, then
		// surface the signal. This is what the redistribution controller
		// and the automatic trigger watch.
		record.Status = StatusPending
		created, createErr := e.tracker.Create(ctx, record)
		if createErr != nil {
			return nil, createErr
		}
		e.metrics.OverloadSignaled(overload.CenterID)
		e.maybeAutoRedistribute(overload.CenterID)

		return &BookingResult{
			Request:    created,
			CenterName: preferred.Name,
			Message:    fmt.Sprintf("All nearby centers are full for the next %d days. Your request %s is queued.", overload.WindowDays, created.ID),
		}, err
	}

	record.Status = StatusConfirmed
	record.AssignedCenter = placement.Key.CenterID
	record.AssignedDate = placement.Key.Date
	record.AssignedSlot = placement.Key.Slot

	created, err := e.tracker.Create(ctx, record)
	if err != nil {
		// No partial state: undo the reservation when the record cannot
		// be written.
		if releaseErr := e.ledger.Release(ctx, placement.Key); releaseErr != nil {
			return nil, errors.Join(err, releaseErr)
		}
		return nil, err
	}

	e.metrics.BookingConfirmed(placement.Key.CenterID)
	return &BookingResult{
		Request:    created,
		CenterName: placement.Center.Name,
		Message:    confirmationMessage(created, placement.Center.Name),
	}, nil
}

// confirmationMessage renders the citizen-facing confirmation text.
func confirmationMessage(r Request, centerName string) string {
	return fmt.Sprintf(
		"Dear Citizen, your appointment at %s is confirmed for %s at %s. Request ID: %s. Please carry your documents.",
		centerName, r.AssignedDate, r.AssignedSlot, r.ID)
}

// maybeAutoRedistribute fires the controller in the background when the
// overload monitor's threshold is crossed. Runs detached so the booking
// caller is never blocked, and takes the gate afresh.
func (e *Engine) maybeAutoRedistribute(center CenterID) {
	if !e.monitor.Record(center, e.allocator.now()) {
		return
	}
	go func() {
		if _, err := e.Redistribute(context.Background(), center); err != nil && !IsExpected(err) {
			e.controller.logf("auto-redistribute %s: %v", center, err)
		}
	}()
}

// =============================================================================
// TRACKING, QUERY, CANCEL
// =============================================================================

// Track returns the stored record for a request identifier.
func (e *Engine) Track(ctx context.Context, id RequestID) (*Request, error) {
	e.gate.RLock()
	defer e.gate.RUnlock()
	return e.tracker.Get(ctx, id)
}

// Query runs the filtered admin query with aggregates.
func (e *Engine) Query(ctx context.Context, f Filter) (*QueryResult, error) {
	e.gate.RLock()
	defer e.gate.RUnlock()
	return e.tracker.Query(ctx, f)
}

// Cancel releases a request's capacity and marks it Cancelled.
// Cancelling an already-cancelled request is a no-op.
func (e *Engine) Cancel(ctx context.Context, id RequestID) (*Request, error) {
	e.gate.RLock()
	defer e.gate.RUnlock()

	// Hold the per-request lock across read, release, and update: without
	// it two racing cancels would both see Confirmed and release the same
	// seat twice, stealing capacity from another holder of the slot.
	unlock := e.tracker.lockRequest(id)
	defer unlock()

	record, err := e.tracker.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == StatusCancelled {
		return record, nil
	}

	if record.Assigned() {
		if err := e.ledger.Release(ctx, record.AssignedKey()); err != nil {
			return nil, err
		}
		record.ClearAssignment()
	}
	record.Status = StatusCancelled
	if err := e.tracker.Update(ctx, *record); err != nil {
		return nil, err
	}

	e.metrics.RequestCancelled()
	return record, nil
}

// =============================================================================
// REDISTRIBUTION, LOAD, RESET
// =============================================================================

// Redistribute runs the controller against a target center.
func (e *Engine) Redistribute(ctx context.Context, target CenterID) (*RedistributionReport, error) {
	e.gate.RLock()
	defer e.gate.RUnlock()

	report, err := e.controller.Redistribute(ctx, target)
	if err != nil {
		return nil, err
	}
	e.metrics.RequestsRedistributed(report.Moved)
	return report, nil
}

// SlotLoad is a per-slot load figure for a center on a date.
type SlotLoad struct {
	Slot        SlotLabel
	Booked      int
	Limit       int
	Utilization decimal.Decimal // booked/limit, 4 decimal places
}

// CenterLoad reports per-slot occupancy for a center on a date. Slots
// with no counter yet (lazily created) report zero booked.
func (e *Engine) CenterLoad(ctx context.Context, centerID CenterID, date Date) ([]SlotLoad, error) {
	e.gate.RLock()
	defer e.gate.RUnlock()

	center, ok := e.resolver.Candidate(centerID)
	if !ok {
		return nil, ErrCenterNotFound
	}

	snapshot, err := e.ledger.Snapshot(ctx, centerID, date)
	if err != nil {
		return nil, err
	}

	loads := make([]SlotLoad, 0, len(center.Template))
	for _, slot := range center.Template {
		counter := snapshot[SlotKey{CenterID: centerID, Date: date, Slot: slot}]
		if counter.Limit == 0 {
			counter.Limit = center.Limit
		}
		util := decimal.Zero
		if counter.Limit > 0 {
			util = decimal.NewFromInt(int64(counter.Booked)).
				DivRound(decimal.NewFromInt(int64(counter.Limit)), 4)
		}
		loads = append(loads, SlotLoad{
			Slot:        slot,
			Booked:      counter.Booked,
			Limit:       counter.Limit,
			Utilization: util,
		})
	}
	return loads, nil
}

// Reset wipes all requests and zeroes every capacity counter under the
// exclusive maintenance barrier. No booking or redistribution is in
// flight while it runs; queued operations resume against empty state.
func (e *Engine) Reset(ctx context.Context) error {
	e.gate.Lock()
	defer e.gate.Unlock()

	if err := e.tracker.Store.DeleteAll(ctx); err != nil {
		return err
	}
	if err := e.ledger.ZeroAll(ctx); err != nil {
		return err
	}
	e.metrics.ResetPerformed()
	return nil
}

// BookedByCenter exposes the ledger's per-center booked sum, used by
// conservation checks and operational tooling.
func (e *Engine) BookedByCenter(ctx context.Context, centerID CenterID) (int, error) {
	e.gate.RLock()
	defer e.gate.RUnlock()
	return e.ledger.BookedByCenter(ctx, centerID)
}
