package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/engine"
	"github.com/warp/allocation-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testKey(center string, slot string) engine.SlotKey {
	return engine.SlotKey{
		CenterID: engine.CenterID(center),
		Date:     engine.NewDate(2026, time.September, 3),
		Slot:     engine.SlotLabel(slot),
	}
}

func storedRequest(id string) engine.Request {
	now := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	return engine.Request{
		ID:              engine.RequestID(id),
		Name:            "Kiran Rao",
		Phone:           "9876500003",
		Age:             52,
		AgeGroup:        engine.AgeGroupAdult,
		RequestType:     "Passport Verification",
		UserType:        engine.UserScheduled,
		City:            "Mumbai",
		Pincode:         "400014",
		Status:          engine.StatusConfirmed,
		AssignedCenter:  "ASK006",
		AssignedDate:    engine.NewDate(2026, time.September, 3),
		AssignedSlot:    "11:00",
		PreferredCenter: "ASK006",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// =============================================================================
// LEDGER
// =============================================================================

func TestSQLite_Reserve_ConditionalUpdate(t *testing.T) {
	// GIVEN: A slot with limit 3
	// WHEN: Five reservations are attempted
	// THEN: Three granted, two denied, counter sits at the limit

	store := newTestStore(t)
	ctx := context.Background()
	key := testKey("ASK001", "09:00")

	granted := 0
	for i := 0; i < 5; i++ {
		ok, err := store.Reserve(ctx, key, 3, 3)
		require.NoError(t, err)
		if ok {
			granted++
		}
	}
	assert.Equal(t, 3, granted)

	snap, err := store.Snapshot(ctx, key.CenterID, key.Date)
	require.NoError(t, err)
	require.Contains(t, snap, key)
	assert.Equal(t, 3, snap[key].Booked)
	assert.Equal(t, 3, snap[key].Limit)
}

func TestSQLite_Reserve_AdmitBelowLimit(t *testing.T) {
	// GIVEN: A 10-seat slot with an admit ceiling of 8
	// WHEN: Reservations run to exhaustion at that ceiling
	// THEN: The ninth is denied even though the slot has seats

	store := newTestStore(t)
	ctx := context.Background()
	key := testKey("ASK001", "10:00")

	for i := 0; i < 8; i++ {
		ok, err := store.Reserve(ctx, key, 10, 8)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := store.Reserve(ctx, key, 10, 8)
	require.NoError(t, err)
	assert.False(t, ok)

	// A walk-in style reservation against the full limit still fits.
	ok, err = store.Reserve(ctx, key, 10, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLite_Release_Floor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := testKey("ASK002", "09:00")

	// Releasing an untouched counter never errors or goes negative.
	require.NoError(t, store.Release(ctx, key))

	ok, err := store.Reserve(ctx, key, 2, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, key))
	require.NoError(t, store.Release(ctx, key))

	snap, err := store.Snapshot(ctx, key.CenterID, key.Date)
	require.NoError(t, err)
	assert.Equal(t, 0, snap[key].Booked)
}

func TestSQLite_BookedByCenter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, slot := range []string{"09:00", "10:00", "11:00"} {
		ok, err := store.Reserve(ctx, testKey("ASK003", slot), 5, 5)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := store.Reserve(ctx, testKey("ASK004", "09:00"), 5, 5)
	require.NoError(t, err)
	require.True(t, ok)

	total, err := store.BookedByCenter(ctx, "ASK003")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	empty, err := store.BookedByCenter(ctx, "ASK999")
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestSQLite_ZeroAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, testKey("ASK001", "09:00"), 5, 5)
	require.NoError(t, err)

	require.NoError(t, store.ZeroAll(ctx))

	total, err := store.BookedByCenter(ctx, "ASK001")
	require.NoError(t, err)
	assert.Zero(t, total)
}

// =============================================================================
// TRACKER
// =============================================================================

func TestSQLite_InsertGet_RoundTrip(t *testing.T) {
	// GIVEN: A fully populated record
	// WHEN: It is inserted and read back
	// THEN: Every field survives, including dates and timestamps

	store := newTestStore(t)
	ctx := context.Background()

	want := storedRequest("REQ-SQL1")
	require.NoError(t, store.Insert(ctx, want))

	got, err := store.Get(ctx, "REQ-SQL1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSQLite_Insert_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, storedRequest("REQ-DUP")))
	err := store.Insert(ctx, storedRequest("REQ-DUP"))
	assert.ErrorIs(t, err, engine.ErrDuplicateRequestID)
}

func TestSQLite_Get_Missing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), "REQ-NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Update(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := storedRequest("REQ-UPD")
	require.NoError(t, store.Insert(ctx, r))

	r.Status = engine.StatusRedistributed
	r.AssignedCenter = "ASK007"
	require.NoError(t, store.Update(ctx, r))

	got, err := store.Get(ctx, "REQ-UPD")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusRedistributed, got.Status)
	assert.Equal(t, engine.CenterID("ASK007"), got.AssignedCenter)

	err = store.Update(ctx, storedRequest("REQ-GHOST"))
	assert.ErrorIs(t, err, engine.ErrRequestNotFound)
}

func TestSQLite_Update_UnassignedClearsDate(t *testing.T) {
	// GIVEN: A confirmed record with an assignment
	// WHEN: It is parked (assignment cleared)
	// THEN: The read-back record has a zero date

	store := newTestStore(t)
	ctx := context.Background()

	r := storedRequest("REQ-PARK")
	require.NoError(t, store.Insert(ctx, r))

	r.ClearAssignment()
	r.Status = engine.StatusPending
	require.NoError(t, store.Update(ctx, r))

	got, err := store.Get(ctx, "REQ-PARK")
	require.NoError(t, err)
	assert.False(t, got.Assigned())
	assert.True(t, got.AssignedDate.IsZero())
}

func TestSQLite_List_FiltersCompileToSQL(t *testing.T) {
	// GIVEN: Records spanning cities, statuses, and assignment states
	// WHEN: Each filter dimension is applied
	// THEN: The WHERE clause matches the in-memory predicate's semantics

	store := newTestStore(t)
	ctx := context.Background()

	mumbai := storedRequest("REQ-MUM")
	require.NoError(t, store.Insert(ctx, mumbai))

	delhi := storedRequest("REQ-DEL")
	delhi.City = "New Delhi"
	delhi.AgeGroup = engine.AgeGroupSenior
	delhi.CreatedAt = mumbai.CreatedAt.Add(time.Minute)
	require.NoError(t, store.Insert(ctx, delhi))

	pending := storedRequest("REQ-PEN")
	pending.Status = engine.StatusPending
	pending.AssignedCenter = ""
	pending.AssignedDate = engine.Date{}
	pending.AssignedSlot = ""
	pending.CreatedAt = mumbai.CreatedAt.Add(2 * time.Minute)
	require.NoError(t, store.Insert(ctx, pending))

	// Region, case-insensitive substring.
	out, err := store.List(ctx, engine.Filter{Region: "delhi"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, engine.RequestID("REQ-DEL"), out[0].ID)

	// Age group.
	out, err = store.List(ctx, engine.Filter{AgeGroup: engine.AgeGroupSenior})
	require.NoError(t, err)
	require.Len(t, out, 1)

	// Status set.
	out, err = store.List(ctx, engine.Filter{Statuses: []engine.Status{engine.StatusPending}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, engine.RequestID("REQ-PEN"), out[0].ID)

	// Center scope covers assigned and queued-preferring records.
	out, err = store.List(ctx, engine.Filter{CenterScope: "ASK006"})
	require.NoError(t, err)
	assert.Len(t, out, 3)

	// FromDate keeps future assignments and all unassigned.
	out, err = store.List(ctx, engine.Filter{FromDate: engine.NewDate(2026, time.September, 4)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, engine.RequestID("REQ-PEN"), out[0].ID)

	// Creation order, oldest first.
	out, err = store.List(ctx, engine.Filter{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, engine.RequestID("REQ-MUM"), out[0].ID)
	assert.Equal(t, engine.RequestID("REQ-PEN"), out[2].ID)
}

func TestSQLite_DeleteAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, storedRequest("REQ-GONE")))
	require.NoError(t, store.DeleteAll(ctx))

	out, err := store.List(ctx, engine.Filter{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
