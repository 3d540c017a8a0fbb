package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	availabilityapp "staynest/internal/app/handlers/availability"
	"staynest/internal/domain/listings"
	domainrange "staynest/internal/domain/shared/daterange"
	"staynest/internal/domain/shared/fault"
	"staynest/internal/domain/shared/money"
	"staynest/internal/infra/storage/memory"
)

func seedCalendarEnv(t *testing.T) memory.Factory {
	t.Helper()
	factory := memory.NewFactory()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	listing, err := listings.NewListing(listings.CreateParams{
		ID:          "lst-1",
		Host:        "host-1",
		Title:       "Calendar Listing",
		MaxGuests:   2,
		Nightly:     money.Must(10000, "USD"),
		CleaningFee: money.Must(0, "USD"),
		Now:         now,
	})
	require.NoError(t, err)
	require.NoError(t, factory.ListingsRepo.Save(context.Background(), listing))

	register, err := factory.AvailabilityRepo.Register(context.Background(), "lst-1")
	require.NoError(t, err)
	dr, err := domainrange.New(
		time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.NoError(t, register.Reserve(dr, "bk-1", now))
	require.NoError(t, factory.AvailabilityRepo.Save(context.Background(), register))
	return factory
}

func TestGetCalendarMarksBookedNights(t *testing.T) {
	factory := seedCalendarEnv(t)
	handler := &availabilityapp.GetCalendarHandler{UoWFactory: factory}

	cal, err := handler.Handle(context.Background(), availabilityapp.GetCalendarQuery{
		ListingID: "lst-1",
		Year:      2026,
		Month:     time.June,
	})
	require.NoError(t, err)

	assert.Equal(t, "lst-1", cal.ListingID)
	require.Len(t, cal.Days, 30)

	byDate := make(map[string]bool, len(cal.Days))
	for _, day := range cal.Days {
		byDate[day.Date] = day.Available
	}
	assert.True(t, byDate["2026-06-09"])
	assert.False(t, byDate["2026-06-10"])
	assert.False(t, byDate["2026-06-12"])
	assert.True(t, byDate["2026-06-13"], "checkout day stays available")
}

func TestGetCalendarUnknownListing(t *testing.T) {
	handler := &availabilityapp.GetCalendarHandler{UoWFactory: memory.NewFactory()}

	_, err := handler.Handle(context.Background(), availabilityapp.GetCalendarQuery{
		ListingID: "missing",
		Year:      2026,
		Month:     time.June,
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}

func TestGetCalendarRejectsBadMonth(t *testing.T) {
	factory := seedCalendarEnv(t)
	handler := &availabilityapp.GetCalendarHandler{UoWFactory: factory}

	_, err := handler.Handle(context.Background(), availabilityapp.GetCalendarQuery{
		ListingID: "lst-1",
		Year:      2026,
		Month:     time.Month(13),
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindInvalidInput, fault.KindOf(err))
}
