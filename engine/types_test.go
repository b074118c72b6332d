package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/engine"
)

func TestDate_Normalization(t *testing.T) {
	// Any wall-clock instant collapses to the same UTC date.
	at := time.Date(2026, time.September, 1, 23, 59, 59, 0, time.UTC)
	d := engine.DateOf(at)

	assert.Equal(t, engine.NewDate(2026, time.September, 1), d)
	assert.Equal(t, "2026-09-01", d.String())
}

func TestDate_ParseRoundTrip(t *testing.T) {
	d, err := engine.ParseDate("2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, engine.NewDate(2026, time.September, 15), d)
	assert.Equal(t, "2026-09-15", d.String())

	_, err = engine.ParseDate("15/09/2026")
	assert.Error(t, err)
}

func TestDate_ArithmeticAndOrder(t *testing.T) {
	d := engine.NewDate(2026, time.September, 30)

	next := d.AddDays(1)
	assert.Equal(t, engine.NewDate(2026, time.October, 1), next)
	assert.True(t, d.Before(next))
	assert.True(t, next.After(d))
	assert.False(t, d.Equal(next))
	assert.True(t, engine.Date{}.IsZero())
}

func TestSlotLabel_Hour(t *testing.T) {
	assert.Equal(t, 9, engine.SlotLabel("09:00").Hour())
	assert.Equal(t, 16, engine.SlotLabel("16:00").Hour())
	assert.Equal(t, engine.SlotLabel("09:00"), engine.HourLabel(9))
}

func TestSlotKey_String(t *testing.T) {
	key := engine.SlotKey{
		CenterID: "ASK001",
		Date:     engine.NewDate(2026, time.September, 1),
		Slot:     "09:00",
	}
	assert.Equal(t, "ASK001/2026-09-01/09:00", key.String())
}

func TestAgeGroupFor_Boundaries(t *testing.T) {
	assert.Equal(t, engine.AgeGroupChild, engine.AgeGroupFor(0))
	assert.Equal(t, engine.AgeGroupChild, engine.AgeGroupFor(17))
	assert.Equal(t, engine.AgeGroupAdult, engine.AgeGroupFor(18))
	assert.Equal(t, engine.AgeGroupAdult, engine.AgeGroupFor(59))
	assert.Equal(t, engine.AgeGroupSenior, engine.AgeGroupFor(60))
	assert.Equal(t, engine.AgeGroupSenior, engine.AgeGroupFor(95))
}

func TestRequest_AssignmentHelpers(t *testing.T) {
	r := engine.Request{
		AssignedCenter: "ASK001",
		AssignedDate:   engine.NewDate(2026, time.September, 1),
		AssignedSlot:   "09:00",
	}
	require.True(t, r.Assigned())
	assert.Equal(t, "ASK001/2026-09-01/09:00", r.AssignedKey().String())

	r.ClearAssignment()
	assert.False(t, r.Assigned())
	assert.True(t, r.AssignedDate.IsZero())
}
