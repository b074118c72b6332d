/*
Package engine provides the core appointment allocation engine.

PURPOSE:
  This package contains the types and algorithms for allocating citizen
  service appointments across a network of regional service centers with
  finite per-slot capacity. The same engine handles admission decisions,
  capacity bookkeeping, overload detection, and redistribution of demand
  away from saturated centers.

KEY CONCEPTS IN THIS FILE (types.go):
  - SlotKey: (center, date, slot) triple identifying one bookable unit
  - Date: A calendar day (used as ledger keys, normalized to UTC midnight)
  - SlotLabel: A time-slot label from the daily template (e.g., "09:00")
  - Request: The durable appointment record with its status lifecycle
  - Status/AgeGroup/UserType: Enumerations shared across the engine

DESIGN PRINCIPLES:
  1. Determinism: identical inputs + identical ledger state = same decision
  2. Conservation: booked counters always match confirmed assignments
  3. Type Safety: strong typing for IDs prevents mixing center/request IDs
  4. No partial state: a request never holds a counter without an assignment

SEE ALSO:
  - ledger.go: Capacity counter contract
  - allocator.go: Center/date/slot selection
  - tracker.go: Request persistence and admin queries
*/
package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CenterID string
type RequestID string

// =============================================================================
// DATE - Calendar day abstraction (ledger keys are day-granular)
// =============================================================================

// Date is a calendar day normalized to midnight UTC, so values built through
// the constructors are comparable and usable as map keys.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }
func (d Date) IsZero() bool           { return d.Time.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.Time.AddDate(0, 0, n)) }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// =============================================================================
// SLOT KEY - One bookable unit of capacity
// =============================================================================

// SlotLabel is a time-slot label from a center's daily template ("09:00").
type SlotLabel string

// HourLabel formats a starting hour as a template label ("09:00").
func HourLabel(hour int) SlotLabel {
	return SlotLabel(fmt.Sprintf("%02d:00", hour))
}

// Hour returns the starting hour encoded in the label, or -1 if malformed.
func (s SlotLabel) Hour() int {
	var h, m int
	if _, err := fmt.Sscanf(string(s), "%d:%d", &h, &m); err != nil {
		return -1
	}
	return h
}

// SlotKey uniquely identifies a bookable unit of capacity.
type SlotKey struct {
	CenterID CenterID
	Date     Date
	Slot     SlotLabel
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.CenterID, k.Date, k.Slot)
}

// =============================================================================
// REQUEST - Durable appointment record
// =============================================================================

type Status string

const (
	StatusPending       Status = "Pending"
	StatusConfirmed     Status = "Confirmed"
	StatusRedistributed Status = "Redistributed"
	StatusCancelled     Status = "Cancelled"
)

// UserType distinguishes scheduled bookings from walk-ins. Walk-ins compete
// for the buffered share of each slot and skip the same-day hour cutoff.
type UserType string

const (
	UserScheduled UserType = "Scheduled"
	UserWalkIn    UserType = "Walk-in"
)

type AgeGroup string

const (
	AgeGroupChild   AgeGroup = "Child (0-18)"
	AgeGroupAdult   AgeGroup = "Adult (18-60)"
	AgeGroupSenior  AgeGroup = "Senior (60+)"
	AgeGroupUnknown AgeGroup = "Unknown"
)

// AgeGroupFor derives the display age group from a raw age.
func AgeGroupFor(age int) AgeGroup {
	switch {
	case age < 0:
		return AgeGroupUnknown
	case age < 18:
		return AgeGroupChild
	case age < 60:
		return AgeGroupAdult
	default:
		return AgeGroupSenior
	}
}

// Request is the appointment record tracked for its whole lifetime.
//
// INVARIANTS:
//   - At most one currently-assigned SlotKey (AssignedKey zero when unassigned)
//   - Status Confirmed/Redistributed implies a non-zero assignment whose
//     capacity counter was incremented exactly once on its behalf
//   - Never mutated concurrently for the same ID (single-flow ownership)
type Request struct {
	ID          RequestID
	Name        string
	Phone       string
	Age         int
	AgeGroup    AgeGroup
	RequestType string
	UserType    UserType
	City        string
	Pincode     string

	Status Status

	// Assignment. Zero values mean no slot is held.
	AssignedCenter CenterID
	AssignedDate   Date
	AssignedSlot   SlotLabel

	// PreferredCenter is the center the citizen was originally routed to.
	// Set for every request; it is what overload signals name and what the
	// redistribution controller matches Pending requests against.
	PreferredCenter CenterID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assigned reports whether the request currently holds a slot assignment.
func (r Request) Assigned() bool {
	return r.AssignedCenter != "" && !r.AssignedDate.IsZero() && r.AssignedSlot != ""
}

// AssignedKey returns the currently held SlotKey. Only meaningful when
// Assigned() is true.
func (r Request) AssignedKey() SlotKey {
	return SlotKey{CenterID: r.AssignedCenter, Date: r.AssignedDate, Slot: r.AssignedSlot}
}

// ClearAssignment drops the slot assignment. The caller is responsible for
// releasing the matching capacity counter first.
func (r *Request) ClearAssignment() {
	r.AssignedCenter = ""
	r.AssignedDate = Date{}
	r.AssignedSlot = ""
}
