package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotID_Deterministic(t *testing.T) {
	a := SlotID("dr-1", "2026-09-10", "09:30")
	b := SlotID("dr-1", "2026-09-10", "09:30")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestSlotID_DistinguishesFields(t *testing.T) {
	base := SlotID("dr-1", "2026-09-10", "09:30")
	assert.NotEqual(t, base, SlotID("dr-2", "2026-09-10", "09:30"))
	assert.NotEqual(t, base, SlotID("dr-1", "2026-09-11", "09:30"))
	assert.NotEqual(t, base, SlotID("dr-1", "2026-09-10", "10:00"))
}

func TestSlot_StartTime(t *testing.T) {
	loc := time.UTC
	s := &Slot{Date: "2026-09-10", Time: "14:30"}

	start, err := s.StartTime(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 10, 14, 30, 0, 0, loc), start)
}

func TestSlot_StartTime_Invalid(t *testing.T) {
	s := &Slot{Date: "2026-13-40", Time: "14:30"}
	_, err := s.StartTime(time.UTC)
	assert.Error(t, err)
}

func TestSlot_Month(t *testing.T) {
	s := &Slot{Date: "2026-09-10"}
	assert.Equal(t, "2026-09", s.Month())
}

func TestCountAvailable(t *testing.T) {
	slots := []Slot{
		{ID: "a", Available: true},
		{ID: "b", Available: false},
		{ID: "c", Available: true},
	}
	assert.Equal(t, 2, CountAvailable(slots))
	assert.Equal(t, 0, CountAvailable(nil))
}
