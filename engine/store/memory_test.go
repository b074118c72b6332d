package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/engine"
	"github.com/warp/allocation-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func slotKey(center string, day int, slot string) engine.SlotKey {
	return engine.SlotKey{
		CenterID: engine.CenterID(center),
		Date:     engine.NewDate(2026, time.September, day),
		Slot:     engine.SlotLabel(slot),
	}
}

// =============================================================================
// RESERVE - ADMISSION CONTROL
// =============================================================================

func TestMemory_Reserve_StopsAtAdmitCeiling(t *testing.T) {
	// GIVEN: A slot with limit 50 but an admit ceiling of 40
	// WHEN: 45 sequential reservations are attempted
	// THEN: Exactly 40 are granted, the rest denied

	m := store.NewMemory()
	ctx := context.Background()
	key := slotKey("ASK001", 1, "09:00")

	granted := 0
	for i := 0; i < 45; i++ {
		ok, err := m.Reserve(ctx, key, 50, 40)
		require.NoError(t, err)
		if ok {
			granted++
		}
	}

	assert.Equal(t, 40, granted)
}

func TestMemory_Reserve_AdmitClampedToLimit(t *testing.T) {
	// GIVEN: An admit ceiling above the hard slot limit
	// WHEN: Reserving past the limit
	// THEN: The hard limit wins

	m := store.NewMemory()
	ctx := context.Background()
	key := slotKey("ASK001", 1, "10:00")

	granted := 0
	for i := 0; i < 10; i++ {
		ok, err := m.Reserve(ctx, key, 5, 100)
		require.NoError(t, err)
		if ok {
			granted++
		}
	}

	assert.Equal(t, 5, granted)
}

func TestMemory_Reserve_ConcurrentNeverOverbooks(t *testing.T) {
	// GIVEN: 200 goroutines racing for a slot with capacity 25
	// WHEN: All attempt to reserve simultaneously
	// THEN: Exactly 25 succeed and the counter matches

	m := store.NewMemory()
	ctx := context.Background()
	key := slotKey("ASK004", 2, "11:00")

	const attempts = 200
	const limit = 25

	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.Reserve(ctx, key, limit, limit)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for ok := range results {
		if ok {
			granted++
		}
	}
	assert.Equal(t, limit, granted, "grants must equal capacity exactly")

	snap, err := m.Snapshot(ctx, key.CenterID, key.Date)
	require.NoError(t, err)
	assert.Equal(t, limit, snap[key].Booked)
}

func TestMemory_Reserve_ConcurrentAcrossSlots(t *testing.T) {
	// GIVEN: Heavy concurrent traffic spread over many slots
	// WHEN: Each slot has capacity 10 and receives 30 attempts
	// THEN: Every slot independently admits exactly 10

	m := store.NewMemory()
	ctx := context.Background()

	const slots = 8
	const perSlot = 30
	const limit = 10

	var wg sync.WaitGroup
	for s := 0; s < slots; s++ {
		key := slotKey("ASK006", 3, fmt.Sprintf("%02d:00", 9+s))
		for i := 0; i < perSlot; i++ {
			wg.Add(1)
			go func(k engine.SlotKey) {
				defer wg.Done()
				_, err := m.Reserve(ctx, k, limit, limit)
				assert.NoError(t, err)
			}(key)
		}
	}
	wg.Wait()

	total, err := m.BookedByCenter(ctx, "ASK006")
	require.NoError(t, err)
	assert.Equal(t, slots*limit, total)
}

// =============================================================================
// RELEASE
// =============================================================================

func TestMemory_Release_FreesCapacity(t *testing.T) {
	// GIVEN: A full slot
	// WHEN: One reservation is released
	// THEN: Exactly one new reservation is admitted

	m := store.NewMemory()
	ctx := context.Background()
	key := slotKey("ASK002", 1, "09:00")

	for i := 0; i < 3; i++ {
		ok, err := m.Reserve(ctx, key, 3, 3)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := m.Reserve(ctx, key, 3, 3)
	require.NoError(t, err)
	require.False(t, ok, "slot should be full")

	require.NoError(t, m.Release(ctx, key))

	ok, err = m.Reserve(ctx, key, 3, 3)
	require.NoError(t, err)
	assert.True(t, ok, "released capacity should be reusable")
}

func TestMemory_Release_FlooredAtZero(t *testing.T) {
	// GIVEN: A slot with no reservations
	// WHEN: Release is called repeatedly
	// THEN: The counter never goes negative

	m := store.NewMemory()
	ctx := context.Background()
	key := slotKey("ASK003", 1, "12:00")

	require.NoError(t, m.Release(ctx, key))
	require.NoError(t, m.Release(ctx, key))

	ok, err := m.Reserve(ctx, key, 1, 1)
	require.NoError(t, err)
	require.True(t, ok)

	snap, err := m.Snapshot(ctx, key.CenterID, key.Date)
	require.NoError(t, err)
	assert.Equal(t, 1, snap[key].Booked)
}

// =============================================================================
// SNAPSHOT / ZEROALL
// =============================================================================

func TestMemory_Snapshot_IsDetached(t *testing.T) {
	// GIVEN: A snapshot of live counters
	// WHEN: The snapshot copy is mutated
	// THEN: The ledger is unaffected

	m := store.NewMemory()
	ctx := context.Background()
	key := slotKey("ASK005", 4, "14:00")

	_, err := m.Reserve(ctx, key, 60, 60)
	require.NoError(t, err)

	snap, err := m.Snapshot(ctx, key.CenterID, key.Date)
	require.NoError(t, err)
	c := snap[key]
	c.Booked = 999
	snap[key] = c

	again, err := m.Snapshot(ctx, key.CenterID, key.Date)
	require.NoError(t, err)
	assert.Equal(t, 1, again[key].Booked)
}

func TestMemory_Snapshot_ScopedToCenterAndDate(t *testing.T) {
	// GIVEN: Counters across two centers and two dates
	// WHEN: Snapshotting one center/date
	// THEN: Only its counters appear

	m := store.NewMemory()
	ctx := context.Background()

	keys := []engine.SlotKey{
		slotKey("ASK001", 1, "09:00"),
		slotKey("ASK001", 2, "09:00"),
		slotKey("ASK002", 1, "09:00"),
	}
	for _, k := range keys {
		_, err := m.Reserve(ctx, k, 10, 10)
		require.NoError(t, err)
	}

	snap, err := m.Snapshot(ctx, "ASK001", engine.NewDate(2026, time.September, 1))
	require.NoError(t, err)
	assert.Len(t, snap, 1)
	assert.Contains(t, snap, keys[0])
}

func TestMemory_ZeroAll_DropsEverything(t *testing.T) {
	// GIVEN: Counters for several centers
	// WHEN: ZeroAll runs
	// THEN: Every center reports zero booked

	m := store.NewMemory()
	ctx := context.Background()

	for _, center := range []string{"ASK001", "ASK002", "ASK003"} {
		_, err := m.Reserve(ctx, slotKey(center, 1, "09:00"), 10, 10)
		require.NoError(t, err)
	}

	require.NoError(t, m.ZeroAll(ctx))

	for _, center := range []engine.CenterID{"ASK001", "ASK002", "ASK003"} {
		total, err := m.BookedByCenter(ctx, center)
		require.NoError(t, err)
		assert.Zero(t, total)
	}
}

// =============================================================================
// MEMORY TRACKER
// =============================================================================

func TestMemoryTracker_Insert_RejectsDuplicateID(t *testing.T) {
	// GIVEN: A stored request
	// WHEN: Inserting another request with the same ID
	// THEN: ErrDuplicateRequestID

	tr := store.NewMemoryTracker()
	ctx := context.Background()

	r := engine.Request{ID: "REQ-AAA", Name: "First"}
	require.NoError(t, tr.Insert(ctx, r))

	r2 := engine.Request{ID: "REQ-AAA", Name: "Second"}
	err := tr.Insert(ctx, r2)
	assert.ErrorIs(t, err, engine.ErrDuplicateRequestID)

	got, err := tr.Get(ctx, "REQ-AAA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "First", got.Name, "original record must survive")
}

func TestMemoryTracker_Get_ReturnsCopy(t *testing.T) {
	// GIVEN: A stored request
	// WHEN: The caller mutates the returned record
	// THEN: The stored record is unaffected

	tr := store.NewMemoryTracker()
	ctx := context.Background()

	require.NoError(t, tr.Insert(ctx, engine.Request{ID: "REQ-BBB", Status: engine.StatusConfirmed}))

	got, err := tr.Get(ctx, "REQ-BBB")
	require.NoError(t, err)
	got.Status = engine.StatusCancelled

	again, err := tr.Get(ctx, "REQ-BBB")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusConfirmed, again.Status)
}

func TestMemoryTracker_Get_MissingIsNil(t *testing.T) {
	tr := store.NewMemoryTracker()

	got, err := tr.Get(context.Background(), "REQ-NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryTracker_Update_MissingFails(t *testing.T) {
	tr := store.NewMemoryTracker()

	err := tr.Update(context.Background(), engine.Request{ID: "REQ-NOPE"})
	assert.ErrorIs(t, err, engine.ErrRequestNotFound)
}

func TestMemoryTracker_List_SortedByCreation(t *testing.T) {
	// GIVEN: Requests inserted out of creation order
	// WHEN: Listing with no filter
	// THEN: Results come back oldest first

	tr := store.NewMemoryTracker()
	ctx := context.Background()

	base := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, tr.Insert(ctx, engine.Request{ID: "REQ-2", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, tr.Insert(ctx, engine.Request{ID: "REQ-1", CreatedAt: base}))
	require.NoError(t, tr.Insert(ctx, engine.Request{ID: "REQ-3", CreatedAt: base.Add(2 * time.Minute)}))

	out, err := tr.List(ctx, engine.Filter{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, engine.RequestID("REQ-1"), out[0].ID)
	assert.Equal(t, engine.RequestID("REQ-2"), out[1].ID)
	assert.Equal(t, engine.RequestID("REQ-3"), out[2].ID)
}

func TestMemoryTracker_DeleteAll(t *testing.T) {
	tr := store.NewMemoryTracker()
	ctx := context.Background()

	require.NoError(t, tr.Insert(ctx, engine.Request{ID: "REQ-X"}))
	require.NoError(t, tr.DeleteAll(ctx))

	out, err := tr.List(ctx, engine.Filter{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
