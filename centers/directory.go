/*
Package centers provides the service-center directory.

PURPOSE:
  Centers are the immutable metadata side of the system: identifier,
  display name, city, pincode, and the daily slot template with its
  hourly capacity. The directory resolves a citizen's city/pincode into
  an ordered candidate list for the allocator, and that order IS the
  tie-break policy: the allocator tries centers strictly in directory
  resolution order.

RESOLUTION ORDER (deterministic, total):
  1. Exact pincode matches, in directory order
  2. Same-city matches (case-insensitive), in directory order
  3. Every remaining center, in directory order

  The list is total so a booking always has a full fallback chain; a
  request only overloads when every center in the network is exhausted
  across the look-ahead window.

PERFORMANCE:
  Resolution is a fast in-process scan over a small static list - no
  remote call ever happens on the allocator's critical path.

SEE ALSO:
  - toml.go: Loading center definitions from configuration
  - engine/allocator.go: Consumer of the candidate order
*/
package centers

import (
	"sort"
	"strings"

	"github.com/warp/allocation-engine/engine"
)

// =============================================================================
// CENTER - Immutable metadata + capacity template
// =============================================================================

// Center describes one regional service center. Immutable after
// directory construction; capacity edits happen by reloading the
// directory, never on the booking hot path.
type Center struct {
	ID      engine.CenterID
	Name    string
	City    string
	Pincode string

	// HourlyCapacity is the hard per-slot limit from the daily template.
	HourlyCapacity int

	// Daily template bounds: slots cover [OpenHour, CloseHour).
	OpenHour  int
	CloseHour int
}

// Template returns the ordered daily slot labels, e.g. 09:00 .. 16:00
// for a 9-to-5 center. The set of valid SlotKeys for a date is derived
// from this, never stored per request.
func (c Center) Template() []engine.SlotLabel {
	var slots []engine.SlotLabel
	for h := c.OpenHour; h < c.CloseHour; h++ {
		slots = append(slots, engine.HourLabel(h))
	}
	return slots
}

// =============================================================================
// DIRECTORY - Ordered center collection with candidate resolution
// =============================================================================

type Directory struct {
	centers []Center
	byID    map[engine.CenterID]Center
}

// NewDirectory builds a directory preserving the given order. Duplicate
// IDs keep the first definition.
func NewDirectory(list []Center) *Directory {
	d := &Directory{byID: make(map[engine.CenterID]Center)}
	for _, c := range list {
		if _, exists := d.byID[c.ID]; exists {
			continue
		}
		d.centers = append(d.centers, c)
		d.byID[c.ID] = c
	}
	return d
}

// Get returns a center by ID.
func (d *Directory) Get(id engine.CenterID) (Center, bool) {
	c, ok := d.byID[id]
	return c, ok
}

// List returns all centers ordered by ID for stable display.
func (d *Directory) List() []Center {
	out := make([]Center, len(d.centers))
	copy(out, d.centers)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the ordered candidate centers for a citizen's
// city/pincode: pincode matches, then city matches, then the rest.
func (d *Directory) Resolve(city, pincode string) []Center {
	seen := make(map[engine.CenterID]bool)
	var out []Center

	add := func(c Center) {
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}

	for _, c := range d.centers {
		if pincode != "" && c.Pincode == pincode {
			add(c)
		}
	}
	for _, c := range d.centers {
		if city != "" && strings.EqualFold(c.City, city) {
			add(c)
		}
	}
	for _, c := range d.centers {
		add(c)
	}
	return out
}

// =============================================================================
// ENGINE RESOLVER - Adapts the directory to the allocator's view
// =============================================================================

// Candidate converts a center into the allocator's view of it.
func (c Center) Candidate() engine.Candidate {
	return engine.Candidate{
		ID:       c.ID,
		Name:     c.Name,
		Limit:    c.HourlyCapacity,
		Template: c.Template(),
	}
}

// Candidates implements engine.Resolver.
func (d *Directory) Candidates(city, pincode string) []engine.Candidate {
	resolved := d.Resolve(city, pincode)
	out := make([]engine.Candidate, len(resolved))
	for i, c := range resolved {
		out[i] = c.Candidate()
	}
	return out
}

// Candidate implements engine.Resolver.
func (d *Directory) Candidate(id engine.CenterID) (engine.Candidate, bool) {
	c, ok := d.byID[id]
	if !ok {
		return engine.Candidate{}, false
	}
	return c.Candidate(), true
}

// =============================================================================
// DEFAULTS - Demo network
// =============================================================================

// DefaultCenters is the demo network used when no centers are configured.
func DefaultCenters() []Center {
	return []Center{
		{ID: "ASK001", Name: "ASK Delhi - Connaught Place", City: "New Delhi", Pincode: "110001", HourlyCapacity: 50, OpenHour: 9, CloseHour: 17},
		{ID: "ASK002", Name: "ASK Delhi - Laxmi Nagar", City: "New Delhi", Pincode: "110092", HourlyCapacity: 40, OpenHour: 9, CloseHour: 17},
		{ID: "ASK003", Name: "ASK Noida - Sector 18", City: "Noida", Pincode: "201301", HourlyCapacity: 30, OpenHour: 9, CloseHour: 17},
		{ID: "ASK004", Name: "ASK Ghaziabad - Raj Nagar", City: "Ghaziabad", Pincode: "201002", HourlyCapacity: 25, OpenHour: 9, CloseHour: 17},
		{ID: "ASK005", Name: "ASK Gurugram - Cyber Hub", City: "Gurugram", Pincode: "122002", HourlyCapacity: 60, OpenHour: 9, CloseHour: 17},
		{ID: "ASK006", Name: "ASK Mumbai - Dadar", City: "Mumbai", Pincode: "400014", HourlyCapacity: 80, OpenHour: 9, CloseHour: 17},
		{ID: "ASK007", Name: "ASK Mumbai - Andheri", City: "Mumbai", Pincode: "400053", HourlyCapacity: 70, OpenHour: 9, CloseHour: 17},
		{ID: "ASK008", Name: "ASK Bengaluru - Indiranagar", City: "Bengaluru", Pincode: "560038", HourlyCapacity: 45, OpenHour: 9, CloseHour: 17},
	}
}
