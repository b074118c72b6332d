package centers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/centers"
	"github.com/warp/allocation-engine/engine"
)

// =============================================================================
// RESOLUTION ORDER
// =============================================================================

func TestDirectory_Resolve_PincodeBeatsCity(t *testing.T) {
	// GIVEN: The demo network
	// WHEN: A Delhi citizen with the Laxmi Nagar pincode resolves
	// THEN: Their pincode center leads, then the other Delhi center,
	//       then the rest of the network in directory order

	d := centers.NewDirectory(centers.DefaultCenters())

	out := d.Resolve("New Delhi", "110092")
	require.Len(t, out, 8, "resolution is total")

	assert.Equal(t, engine.CenterID("ASK002"), out[0].ID)
	assert.Equal(t, engine.CenterID("ASK001"), out[1].ID)
	assert.Equal(t, engine.CenterID("ASK003"), out[2].ID)
}

func TestDirectory_Resolve_CityIsCaseInsensitive(t *testing.T) {
	d := centers.NewDirectory(centers.DefaultCenters())

	out := d.Resolve("mumbai", "999999")
	require.NotEmpty(t, out)
	assert.Equal(t, engine.CenterID("ASK006"), out[0].ID)
	assert.Equal(t, engine.CenterID("ASK007"), out[1].ID)
}

func TestDirectory_Resolve_UnknownLocationStillTotal(t *testing.T) {
	// GIVEN: A city/pincode matching nothing
	// WHEN: Resolution runs
	// THEN: The full network comes back in directory order

	d := centers.NewDirectory(centers.DefaultCenters())

	out := d.Resolve("Chennai", "600001")
	require.Len(t, out, 8)
	assert.Equal(t, engine.CenterID("ASK001"), out[0].ID)
	assert.Equal(t, engine.CenterID("ASK008"), out[7].ID)
}

func TestDirectory_Resolve_NoDuplicates(t *testing.T) {
	d := centers.NewDirectory(centers.DefaultCenters())

	out := d.Resolve("New Delhi", "110001")
	seen := make(map[engine.CenterID]bool)
	for _, c := range out {
		assert.False(t, seen[c.ID], "center %s appears twice", c.ID)
		seen[c.ID] = true
	}
}

// =============================================================================
// TEMPLATE
// =============================================================================

func TestCenter_Template(t *testing.T) {
	c := centers.Center{ID: "X", OpenHour: 9, CloseHour: 12}

	slots := c.Template()
	assert.Equal(t, []engine.SlotLabel{"09:00", "10:00", "11:00"}, slots)
}

func TestCenter_Candidate(t *testing.T) {
	c := centers.DefaultCenters()[0]

	cand := c.Candidate()
	assert.Equal(t, engine.CenterID("ASK001"), cand.ID)
	assert.Equal(t, 50, cand.Limit)
	assert.Len(t, cand.Template, 8)
}

// =============================================================================
// DIRECTORY BASICS
// =============================================================================

func TestDirectory_Get(t *testing.T) {
	d := centers.NewDirectory(centers.DefaultCenters())

	c, ok := d.Get("ASK005")
	require.True(t, ok)
	assert.Equal(t, "Gurugram", c.City)

	_, ok = d.Get("ASK999")
	assert.False(t, ok)
}

func TestDirectory_DuplicateIDsKeepFirst(t *testing.T) {
	d := centers.NewDirectory([]centers.Center{
		{ID: "A", Name: "first", City: "X", HourlyCapacity: 1, OpenHour: 9, CloseHour: 10},
		{ID: "A", Name: "second", City: "Y", HourlyCapacity: 2, OpenHour: 9, CloseHour: 10},
	})

	c, ok := d.Get("A")
	require.True(t, ok)
	assert.Equal(t, "first", c.Name)
	assert.Len(t, d.List(), 1)
}

// =============================================================================
// TOML DEFINITIONS
// =============================================================================

func TestFromDefinitions_EmptyFallsBackToDefaults(t *testing.T) {
	out, err := centers.FromDefinitions(nil)
	require.NoError(t, err)
	assert.Len(t, out, 8)
}

func TestFromDefinitions_Valid(t *testing.T) {
	out, err := centers.FromDefinitions([]centers.Definition{
		{ID: "C1", Name: "Center One", City: "Pune", Pincode: "411001", HourlyCapacity: 20, OpenHour: 10, CloseHour: 16},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, engine.CenterID("C1"), out[0].ID)
	assert.Len(t, out[0].Template(), 6)
}

func TestFromDefinitions_Invalid(t *testing.T) {
	cases := []struct {
		name string
		def  centers.Definition
	}{
		{"missing id", centers.Definition{Name: "n", HourlyCapacity: 1, OpenHour: 9, CloseHour: 10}},
		{"missing name", centers.Definition{ID: "i", HourlyCapacity: 1, OpenHour: 9, CloseHour: 10}},
		{"zero capacity", centers.Definition{ID: "i", Name: "n", OpenHour: 9, CloseHour: 10}},
		{"inverted hours", centers.Definition{ID: "i", Name: "n", HourlyCapacity: 1, OpenHour: 17, CloseHour: 9}},
		{"hours past midnight", centers.Definition{ID: "i", Name: "n", HourlyCapacity: 1, OpenHour: 9, CloseHour: 25}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := centers.FromDefinitions([]centers.Definition{tc.def})
			assert.Error(t, err)
		})
	}
}

func TestFromDefinitions_DuplicateID(t *testing.T) {
	_, err := centers.FromDefinitions([]centers.Definition{
		{ID: "C1", Name: "a", HourlyCapacity: 1, OpenHour: 9, CloseHour: 10},
		{ID: "C1", Name: "b", HourlyCapacity: 1, OpenHour: 9, CloseHour: 10},
	})
	assert.Error(t, err)
}
