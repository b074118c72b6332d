/*
tracker.go - Durable request records and admin queries

PURPOSE:
  The Tracker owns the lifecycle of AppointmentRequest records: creation
  with a collision-checked generated identifier, idempotent status lookup,
  and the filtered admin query with its aggregate counts. It also owns
  the per-request mutation lock that cancellation and redistribution
  take before any release-then-update sequence.

IDENTIFIERS:
  Request IDs are opaque: "REQ-" plus the first ten hex characters of a
  random UUID. Uniqueness under concurrent creation is guaranteed by the
  store's insert-if-absent plus a retry loop on the (vanishingly rare)
  collision.

QUERY AGGREGATES:
  The admin query returns, alongside the matching records ordered newest
  first:
  - total matching requests
  - requests assigned to today's date
  - overload/redistribution events (Pending + Redistributed records)

SEE ALSO:
  - engine/store/memory.go: In-memory TrackerStore
  - store/sqlite/sqlite.go: Durable TrackerStore
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TRACKER STORE - Persistence interface for request records
// =============================================================================

// Filter narrows a tracker listing. Zero values mean "match everything".
type Filter struct {
	// Region matches requests whose input city contains the region string
	// (case-insensitive), mirroring the admin console's region scoping.
	Region string

	AgeGroup AgeGroup
	Statuses []Status

	// CenterScope matches requests currently assigned to the center OR
	// Pending requests whose preferred center is the center. This is what
	// the redistribution controller loads.
	CenterScope CenterID

	// FromDate, when set, keeps only requests assigned to this date or
	// later, plus unassigned requests.
	FromDate Date
}

func (f Filter) matchStatus(s Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, want := range f.Statuses {
		if s == want {
			return true
		}
	}
	return false
}

// Match reports whether a record passes the filter. Shared by the memory
// store; the SQLite store compiles the same predicate to a WHERE clause.
func (f Filter) Match(r Request) bool {
	if f.Region != "" && !strings.Contains(strings.ToLower(r.City), strings.ToLower(f.Region)) {
		return false
	}
	if f.AgeGroup != "" && r.AgeGroup != f.AgeGroup {
		return false
	}
	if !f.matchStatus(r.Status) {
		return false
	}
	if f.CenterScope != "" {
		inScope := r.AssignedCenter == f.CenterScope ||
			(!r.Assigned() && r.PreferredCenter == f.CenterScope)
		if !inScope {
			return false
		}
	}
	if !f.FromDate.IsZero() && r.Assigned() && r.AssignedDate.Before(f.FromDate) {
		return false
	}
	return true
}

// TrackerStore persists request records.
type TrackerStore interface {
	// Insert adds a new record. Returns ErrDuplicateRequestID if the ID
	// already exists (never overwrites).
	Insert(ctx context.Context, r Request) error

	// Get returns the record, or nil if the ID is unknown.
	Get(ctx context.Context, id RequestID) (*Request, error)

	// Update replaces an existing record. Returns ErrRequestNotFound if
	// the ID is unknown.
	Update(ctx context.Context, r Request) error

	// List returns matching records ordered by creation time ascending.
	List(ctx context.Context, f Filter) ([]Request, error)

	// DeleteAll removes every record. Only the reset control calls this.
	DeleteAll(ctx context.Context) error
}

// =============================================================================
// TRACKER - ID generation and admin aggregates over the store
// =============================================================================

// QueryResult is the admin query payload: aggregates plus the matching
// records ordered by creation time descending.
type QueryResult struct {
	Total             int
	Today             int
	OverloadRedirects int
	Requests          []Request
}

// requestLockStripes sizes the per-request mutation lock table.
const requestLockStripes = 32

// Tracker wraps a TrackerStore with identifier generation and the
// aggregate computation the admin console consumes.
type Tracker struct {
	Store TrackerStore

	// Clock is injectable for deterministic tests. Defaults to time.Now.
	Clock func() time.Time

	// locks serializes read-modify-write flows on a single request, so a
	// cancellation and a redistribution (or two cancellations) touching
	// the same ID never release one reservation twice. Striped: two IDs
	// sharing a stripe serialize harmlessly.
	locks [requestLockStripes]sync.Mutex
}

func NewTracker(store TrackerStore) *Tracker {
	return &Tracker{Store: store, Clock: time.Now}
}

func (t *Tracker) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

// lockRequest takes the mutation lock for a request identifier and
// returns the unlock. Callers re-read the record after acquiring it: a
// status observed before the lock may already be stale.
func (t *Tracker) lockRequest(id RequestID) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &t.locks[h.Sum32()%requestLockStripes]
	mu.Lock()
	return mu.Unlock
}

// newRequestID generates an opaque request identifier.
func newRequestID() RequestID {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return RequestID("REQ-" + strings.ToUpper(raw[:10]))
}

// Create persists a new record under a freshly generated identifier,
// retrying on the improbable ID collision.
func (t *Tracker) Create(ctx context.Context, r Request) (Request, error) {
	now := t.now()
	r.CreatedAt = now
	r.UpdatedAt = now

	for attempt := 0; attempt < 5; attempt++ {
		r.ID = newRequestID()
		err := t.Store.Insert(ctx, r)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrDuplicateRequestID) {
			return Request{}, err
		}
	}
	return Request{}, fmt.Errorf("could not generate unique request id: %w", ErrDuplicateRequestID)
}

// Get returns the stored record. Read-only: repeated calls never mutate
// state.
func (t *Tracker) Get(ctx context.Context, id RequestID) (*Request, error) {
	r, err := t.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRequestNotFound
	}
	return r, nil
}

// Update replaces an existing record, stamping UpdatedAt.
func (t *Tracker) Update(ctx context.Context, r Request) error {
	r.UpdatedAt = t.now()
	return t.Store.Update(ctx, r)
}

// Query runs the admin query: filtered records newest first, plus the
// aggregate counts computed over the full match set.
func (t *Tracker) Query(ctx context.Context, f Filter) (*QueryResult, error) {
	records, err := t.Store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	today := DateOf(t.now())
	result := &QueryResult{Total: len(records)}
	for _, r := range records {
		if r.Assigned() && r.AssignedDate.Equal(today) {
			result.Today++
		}
		if r.Status == StatusRedistributed || r.Status == StatusPending {
			result.OverloadRedirects++
		}
	}

	// Store order is ascending; the admin display wants newest first.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	result.Requests = records
	return result, nil
}
