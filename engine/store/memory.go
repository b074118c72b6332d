// Package store provides in-memory implementations of the engine's
// persistence interfaces, used by tests and development servers.
package store

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/warp/allocation-engine/engine"
)

// =============================================================================
// MEMORY LEDGER - Sharded capacity counters
// =============================================================================

// shardCount spreads unrelated SlotKeys over independent locks so that
// concurrent bookings against different centers never serialize on a
// single global mutex. Reservations against the SAME key always land on
// the same shard, which is what makes Reserve linearizable per key.
const shardCount = 32

// Memory is the in-memory capacity ledger.
type Memory struct {
	shards [shardCount]*shard
}

type shard struct {
	mu       sync.Mutex
	counters map[engine.SlotKey]*engine.Counter
}

func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i] = &shard{counters: make(map[engine.SlotKey]*engine.Counter)}
	}
	return m
}

func (m *Memory) shardFor(key engine.SlotKey) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return m.shards[h.Sum32()%shardCount]
}

// Reserve admits one appointment when booked < min(admit, limit).
// Counter creation is lazy: the first reservation against a key
// materializes it with the given limit.
func (m *Memory) Reserve(_ context.Context, key engine.SlotKey, limit, admit int) (bool, error) {
	if admit > limit {
		admit = limit
	}

	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok {
		c = &engine.Counter{Limit: limit}
		s.counters[key] = c
	}
	if c.Booked >= admit {
		return false, nil
	}
	c.Booked++
	return true, nil
}

// Release decrements booked, floored at zero.
func (m *Memory) Release(_ context.Context, key engine.SlotKey) error {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.counters[key]; ok && c.Booked > 0 {
		c.Booked--
	}
	return nil
}

// Snapshot copies every live counter for the center/date. The copy is
// detached: mutating it has no effect on the ledger.
func (m *Memory) Snapshot(_ context.Context, centerID engine.CenterID, date engine.Date) (map[engine.SlotKey]engine.Counter, error) {
	out := make(map[engine.SlotKey]engine.Counter)
	for _, s := range m.shards {
		s.mu.Lock()
		for key, c := range s.counters {
			if key.CenterID == centerID && key.Date.Equal(date) {
				out[key] = *c
			}
		}
		s.mu.Unlock()
	}
	return out, nil
}

// BookedByCenter sums booked across all counters for a center.
func (m *Memory) BookedByCenter(_ context.Context, centerID engine.CenterID) (int, error) {
	total := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for key, c := range s.counters {
			if key.CenterID == centerID {
				total += c.Booked
			}
		}
		s.mu.Unlock()
	}
	return total, nil
}

// ZeroAll drops every counter. Limits are template-derived, so dropping
// and zeroing are equivalent here.
func (m *Memory) ZeroAll(_ context.Context) error {
	for _, s := range m.shards {
		s.mu.Lock()
		s.counters = make(map[engine.SlotKey]*engine.Counter)
		s.mu.Unlock()
	}
	return nil
}

// =============================================================================
// MEMORY TRACKER - Request records
// =============================================================================

// MemoryTracker is the in-memory TrackerStore.
type MemoryTracker struct {
	mu      sync.RWMutex
	records map[engine.RequestID]engine.Request
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{records: make(map[engine.RequestID]engine.Request)}
}

func (t *MemoryTracker) Insert(_ context.Context, r engine.Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.records[r.ID]; exists {
		return engine.ErrDuplicateRequestID
	}
	t.records[r.ID] = r
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, id engine.RequestID) (*engine.Request, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.records[id]
	if !ok {
		return nil, nil
	}
	rec := r
	return &rec, nil
}

func (t *MemoryTracker) Update(_ context.Context, r engine.Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.records[r.ID]; !exists {
		return engine.ErrRequestNotFound
	}
	t.records[r.ID] = r
	return nil
}

func (t *MemoryTracker) List(_ context.Context, f engine.Filter) ([]engine.Request, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []engine.Request
	for _, r := range t.records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *MemoryTracker) DeleteAll(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[engine.RequestID]engine.Request)
	return nil
}
