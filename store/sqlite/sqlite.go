/*
Package sqlite provides a SQLite-backed implementation of the engine's
persistence interfaces.

PURPOSE:
  Implements engine.Ledger and engine.TrackerStore on SQLite. The engine
  only requires a store exposing atomic increment-with-ceiling and
  decrement-with-floor keyed by SlotKey, plus create/read/query/delete-all
  keyed by request identifier; any store with those primitives would do,
  and in production the same statements port to PostgreSQL with minor
  dialect changes.

ATOMIC ADMISSION:
  Reserve is a conditional UPDATE:

    UPDATE capacity_counters SET booked = booked + 1
    WHERE center_id=? AND date=? AND slot=? AND booked < ?

  RowsAffected tells us whether admission was granted. Combined with the
  store mutex (SQLite is single-writer anyway) this makes Reserve
  linearizable per SlotKey: concurrent reservations against one key can
  never push booked past the ceiling.

RELEASE FLOOR:
  Release uses the mirrored condition (AND booked > 0), so double-release
  from retried failure paths can never drive a counter negative.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, one
  writer at a time, better crash recovery.

KEY TABLES:
  capacity_counters: One row per SlotKey, created lazily on first Reserve
  requests:          Appointment records keyed by request identifier

SEE ALSO:
  - engine/ledger.go: Interface contracts
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/allocation-engine/engine"
)

// Store implements engine.Ledger and engine.TrackerStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Capacity counters, one row per SlotKey, created lazily
	CREATE TABLE IF NOT EXISTS capacity_counters (
		center_id  TEXT NOT NULL,
		date       TEXT NOT NULL,
		slot       TEXT NOT NULL,
		booked     INTEGER NOT NULL DEFAULT 0,
		slot_limit INTEGER NOT NULL,
		PRIMARY KEY (center_id, date, slot),
		CHECK (booked >= 0),
		CHECK (booked <= slot_limit)
	);

	CREATE INDEX IF NOT EXISTS idx_counters_center
		ON capacity_counters(center_id);

	-- Appointment request records
	CREATE TABLE IF NOT EXISTS requests (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		phone            TEXT NOT NULL,
		age              INTEGER NOT NULL,
		age_group        TEXT NOT NULL,
		request_type     TEXT NOT NULL,
		user_type        TEXT NOT NULL,
		city             TEXT NOT NULL,
		pincode          TEXT NOT NULL,
		status           TEXT NOT NULL,
		assigned_center  TEXT NOT NULL DEFAULT '',
		assigned_date    TEXT NOT NULL DEFAULT '',
		assigned_slot    TEXT NOT NULL DEFAULT '',
		preferred_center TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_assigned_center
		ON requests(assigned_center);
	CREATE INDEX IF NOT EXISTS idx_requests_created_at
		ON requests(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER - engine.Ledger implementation
// =============================================================================

// Reserve admits one appointment when booked < min(admit, limit).
func (s *Store) Reserve(ctx context.Context, key engine.SlotKey, limit, admit int) (bool, error) {
	if admit > limit {
		admit = limit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Materialize the counter lazily; the insert is a no-op when the
	// row already exists.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capacity_counters (center_id, date, slot, booked, slot_limit)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT (center_id, date, slot) DO NOTHING`,
		string(key.CenterID), key.Date.String(), string(key.Slot), limit)
	if err != nil {
		return false, fmt.Errorf("create counter: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE capacity_counters SET booked = booked + 1
		WHERE center_id = ? AND date = ? AND slot = ? AND booked < ?`,
		string(key.CenterID), key.Date.String(), string(key.Slot), admit)
	if err != nil {
		return false, fmt.Errorf("reserve: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release decrements booked, floored at zero.
func (s *Store) Release(ctx context.Context, key engine.SlotKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE capacity_counters SET booked = booked - 1
		WHERE center_id = ? AND date = ? AND slot = ? AND booked > 0`,
		string(key.CenterID), key.Date.String(), string(key.Slot))
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// Snapshot returns all live counters for a center on a date.
func (s *Store) Snapshot(ctx context.Context, centerID engine.CenterID, date engine.Date) (map[engine.SlotKey]engine.Counter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, booked, slot_limit FROM capacity_counters
		WHERE center_id = ? AND date = ?`,
		string(centerID), date.String())
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer rows.Close()

	out := make(map[engine.SlotKey]engine.Counter)
	for rows.Next() {
		var slot string
		var c engine.Counter
		if err := rows.Scan(&slot, &c.Booked, &c.Limit); err != nil {
			return nil, err
		}
		out[engine.SlotKey{CenterID: centerID, Date: date, Slot: engine.SlotLabel(slot)}] = c
	}
	return out, rows.Err()
}

// BookedByCenter sums booked across all counters for a center.
func (s *Store) BookedByCenter(ctx context.Context, centerID engine.CenterID) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(booked), 0) FROM capacity_counters
		WHERE center_id = ?`,
		string(centerID)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("booked by center: %w", err)
	}
	return total, nil
}

// ZeroAll drops all counters; limits are template-derived and recreated
// lazily on the next Reserve.
func (s *Store) ZeroAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM capacity_counters`)
	return err
}

// =============================================================================
// TRACKER - engine.TrackerStore implementation
// =============================================================================

func (s *Store) Insert(ctx context.Context, r engine.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (
			id, name, phone, age, age_group, request_type, user_type,
			city, pincode, status, assigned_center, assigned_date,
			assigned_slot, preferred_center, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		string(r.ID), r.Name, r.Phone, r.Age, string(r.AgeGroup),
		r.RequestType, string(r.UserType), r.City, r.Pincode,
		string(r.Status), string(r.AssignedCenter), dateColumn(r.AssignedDate),
		string(r.AssignedSlot), string(r.PreferredCenter),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
		r.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrDuplicateRequestID
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id engine.RequestID) (*engine.Request, error) {
	row := s.db.QueryRowContext(ctx, selectRequests+` WHERE id = ?`, string(id))
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) Update(ctx context.Context, r engine.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE requests SET
			name = ?, phone = ?, age = ?, age_group = ?, request_type = ?,
			user_type = ?, city = ?, pincode = ?, status = ?,
			assigned_center = ?, assigned_date = ?, assigned_slot = ?,
			preferred_center = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Phone, r.Age, string(r.AgeGroup), r.RequestType,
		string(r.UserType), r.City, r.Pincode, string(r.Status),
		string(r.AssignedCenter), dateColumn(r.AssignedDate),
		string(r.AssignedSlot), string(r.PreferredCenter),
		r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(r.ID))
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrRequestNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, f engine.Filter) ([]engine.Request, error) {
	query := selectRequests
	var conds []string
	var args []any

	if f.Region != "" {
		conds = append(conds, `city LIKE '%' || ? || '%' COLLATE NOCASE`)
		args = append(args, f.Region)
	}
	if f.AgeGroup != "" {
		conds = append(conds, `age_group = ?`)
		args = append(args, string(f.AgeGroup))
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conds = append(conds, `status IN (`+strings.Join(placeholders, ", ")+`)`)
	}
	if f.CenterScope != "" {
		conds = append(conds, `(assigned_center = ? OR (assigned_center = '' AND preferred_center = ?))`)
		args = append(args, string(f.CenterScope), string(f.CenterScope))
	}
	if !f.FromDate.IsZero() {
		// Dates are stored as "2006-01-02", so lexical comparison is
		// chronological. Unassigned requests always pass.
		conds = append(conds, `(assigned_date = '' OR assigned_date >= ?)`)
		args = append(args, f.FromDate.String())
	}

	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []engine.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM requests`)
	return err
}

// =============================================================================
// ROW MAPPING
// =============================================================================

const selectRequests = `
	SELECT id, name, phone, age, age_group, request_type, user_type,
	       city, pincode, status, assigned_center, assigned_date,
	       assigned_slot, preferred_center, created_at, updated_at
	FROM requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*engine.Request, error) {
	var r engine.Request
	var id, ageGroup, userType, status, assignedCenter, assignedDate string
	var assignedSlot, preferredCenter, createdAt, updatedAt string

	err := row.Scan(&id, &r.Name, &r.Phone, &r.Age, &ageGroup, &r.RequestType,
		&userType, &r.City, &r.Pincode, &status, &assignedCenter,
		&assignedDate, &assignedSlot, &preferredCenter, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	r.ID = engine.RequestID(id)
	r.AgeGroup = engine.AgeGroup(ageGroup)
	r.UserType = engine.UserType(userType)
	r.Status = engine.Status(status)
	r.AssignedCenter = engine.CenterID(assignedCenter)
	r.AssignedSlot = engine.SlotLabel(assignedSlot)
	r.PreferredCenter = engine.CenterID(preferredCenter)

	if assignedDate != "" {
		d, err := engine.ParseDate(assignedDate)
		if err != nil {
			return nil, err
		}
		r.AssignedDate = d
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// dateColumn renders an assignment date, empty when unassigned.
func dateColumn(d engine.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
