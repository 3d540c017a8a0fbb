package daterange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staynest/internal/domain/shared/daterange"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, checkIn, checkOut time.Time) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(checkIn, checkOut)
	require.NoError(t, err)
	return dr
}

func TestNewRejectsInvertedAndZeroLengthRanges(t *testing.T) {
	_, err := daterange.New(day(2026, 6, 5), day(2026, 6, 1))
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = daterange.New(day(2026, 6, 1), day(2026, 6, 1))
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = daterange.New(time.Time{}, day(2026, 6, 1))
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestOverlaps(t *testing.T) {
	existing := mustRange(t, day(2026, 6, 1), day(2026, 6, 5))

	cases := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		want     bool
	}{
		{"identical range", day(2026, 6, 1), day(2026, 6, 5), true},
		{"fully inside", day(2026, 6, 2), day(2026, 6, 4), true},
		{"straddles start", day(2026, 5, 30), day(2026, 6, 2), true},
		{"straddles end", day(2026, 6, 4), day(2026, 6, 8), true},
		{"covers entirely", day(2026, 5, 30), day(2026, 6, 8), true},
		{"back to back after", day(2026, 6, 5), day(2026, 6, 8), false},
		{"back to back before", day(2026, 5, 28), day(2026, 6, 1), false},
		{"clearly before", day(2026, 5, 20), day(2026, 5, 25), false},
		{"clearly after", day(2026, 6, 10), day(2026, 6, 12), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			candidate := mustRange(t, tc.checkIn, tc.checkOut)
			assert.Equal(t, tc.want, candidate.Overlaps(existing))
			assert.Equal(t, tc.want, existing.Overlaps(candidate), "predicate must be symmetric")
		})
	}
}

func TestNightsRoundsPartialDaysUp(t *testing.T) {
	dr := mustRange(t, day(2026, 6, 1), day(2026, 6, 5))
	assert.Equal(t, 4, dr.Nights())

	lateCheckIn := mustRange(t,
		time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 3, 11, 0, 0, 0, time.UTC),
	)
	assert.Equal(t, 2, lateCheckIn.Nights())
}

func TestContainsDate(t *testing.T) {
	dr := mustRange(t, day(2026, 6, 1), day(2026, 6, 5))

	assert.True(t, dr.ContainsDate(day(2026, 6, 1)), "check-in night is occupied")
	assert.True(t, dr.ContainsDate(day(2026, 6, 4)))
	assert.False(t, dr.ContainsDate(day(2026, 6, 5)), "checkout day is free")
	assert.False(t, dr.ContainsDate(day(2026, 5, 31)))
}

func TestAdjacent(t *testing.T) {
	first := mustRange(t, day(2026, 6, 1), day(2026, 6, 5))
	second := mustRange(t, day(2026, 6, 5), day(2026, 6, 8))

	assert.True(t, first.Adjacent(second))
	assert.True(t, second.Adjacent(first))
	assert.False(t, first.Overlaps(second))
}

func TestDaysUntilRoundsUp(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 7, daterange.DaysUntil(now, now.Add(7*24*time.Hour)))
	assert.Equal(t, 7, daterange.DaysUntil(now, now.Add(6*24*time.Hour+time.Hour)))
	assert.Equal(t, 6, daterange.DaysUntil(now, now.Add(6*24*time.Hour)))
	assert.Equal(t, 0, daterange.DaysUntil(now, now))
}

func TestTruncateKeepsUTCCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2026, 6, 2, 1, 30, 0, 0, loc)
	assert.Equal(t, day(2026, 6, 1), daterange.Truncate(local))
}
