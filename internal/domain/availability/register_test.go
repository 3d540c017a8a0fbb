package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staynest/internal/domain/availability"
	"staynest/internal/domain/shared/daterange"
)

var regNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func span(t *testing.T, checkInDay, checkOutDay int) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(
		time.Date(2026, 6, checkInDay, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, checkOutDay, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return dr
}

func TestReserveClaimsFreeDates(t *testing.T) {
	reg := availability.NewRegister("lst-1")

	require.NoError(t, reg.Reserve(span(t, 1, 5), "bk-1", regNow))
	require.Len(t, reg.Holds, 1)
	assert.Equal(t, "bk-1", reg.Holds[0].BookingID)

	events := reg.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "availability.reserved", events[0].EventName())
}

func TestReserveRejectsOverlap(t *testing.T) {
	reg := availability.NewRegister("lst-1")
	require.NoError(t, reg.Reserve(span(t, 1, 5), "bk-1", regNow))
	reg.ClearEvents()

	err := reg.Reserve(span(t, 4, 6), "bk-2", regNow)
	assert.ErrorIs(t, err, availability.ErrDatesTaken)
	assert.Len(t, reg.Holds, 1, "losing reservation leaves no hold")

	events := reg.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "availability.overbooking_prevented", events[0].EventName())
}

func TestReserveAllowsBackToBackStays(t *testing.T) {
	reg := availability.NewRegister("lst-1")
	require.NoError(t, reg.Reserve(span(t, 1, 5), "bk-1", regNow))

	assert.NoError(t, reg.Reserve(span(t, 5, 8), "bk-2", regNow))
	assert.Len(t, reg.Holds, 2)
}

func TestConflictsReportsEveryOverlappingHold(t *testing.T) {
	reg := availability.NewRegister("lst-1")
	require.NoError(t, reg.Reserve(span(t, 1, 3), "bk-1", regNow))
	require.NoError(t, reg.Reserve(span(t, 10, 12), "bk-2", regNow))

	conflicts := reg.Conflicts(span(t, 2, 11))
	require.Len(t, conflicts, 2)
	assert.False(t, reg.CanReserve(span(t, 2, 11)))
	assert.True(t, reg.CanReserve(span(t, 20, 22)))
}

func TestReleaseFreesTheDatesForRebooking(t *testing.T) {
	reg := availability.NewRegister("lst-1")
	require.NoError(t, reg.Reserve(span(t, 1, 5), "bk-1", regNow))
	reg.ClearEvents()

	require.NoError(t, reg.Release("bk-1", regNow))
	assert.Empty(t, reg.Holds)

	events := reg.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "availability.released", events[0].EventName())

	assert.NoError(t, reg.Reserve(span(t, 2, 4), "bk-2", regNow))
}

func TestReleaseUnknownHold(t *testing.T) {
	reg := availability.NewRegister("lst-1")
	assert.ErrorIs(t, reg.Release("bk-missing", regNow), availability.ErrHoldNotFound)
}

func TestMonthCalendar(t *testing.T) {
	reg := availability.NewRegister("lst-1")
	require.NoError(t, reg.Reserve(span(t, 10, 13), "bk-1", regNow))

	days := reg.MonthCalendar(2026, time.June)
	require.Len(t, days, 30)

	byDay := make(map[int]bool, len(days))
	for _, d := range days {
		byDay[d.Date.Day()] = d.Available
	}
	assert.True(t, byDay[9])
	assert.False(t, byDay[10], "check-in night is booked")
	assert.False(t, byDay[12])
	assert.True(t, byDay[13], "checkout day is free")
}
