package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "staynest/internal/app/handlers/booking"
	domainavailability "staynest/internal/domain/availability"
	domainbooking "staynest/internal/domain/booking"
	"staynest/internal/domain/listings"
	domainrange "staynest/internal/domain/shared/daterange"
	"staynest/internal/domain/shared/fault"
	"staynest/internal/domain/shared/money"
	"staynest/internal/infra/storage/memory"
)

var flowNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	factory memory.Factory
	outbox  *memory.Outbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		factory: memory.NewFactory(),
		outbox:  memory.NewOutbox(),
	}
}

func (e *testEnv) seedListing(t *testing.T, id, host, policy string, instantBook bool) {
	t.Helper()
	listing, err := listings.NewListing(listings.CreateParams{
		ID:                 listings.ListingID(id),
		Host:               listings.HostID(host),
		Title:              "Test Listing",
		City:               "Lisbon",
		Country:            "PT",
		MaxGuests:          4,
		Nightly:            money.Must(25000, "USD"),
		CleaningFee:        money.Must(5000, "USD"),
		InstantBook:        instantBook,
		CancellationPolicy: policy,
		Now:                flowNow,
	})
	require.NoError(t, err)
	require.NoError(t, e.factory.ListingsRepo.Save(context.Background(), listing))
}

func (e *testEnv) requestHandler() *bookingapp.RequestBookingHandler {
	return &bookingapp.RequestBookingHandler{
		UoWFactory: e.factory,
		Outbox:     e.outbox,
		Now:        func() time.Time { return flowNow },
	}
}

func (e *testEnv) cancelHandler() *bookingapp.CancelBookingHandler {
	return &bookingapp.CancelBookingHandler{
		UoWFactory: e.factory,
		Outbox:     e.outbox,
		Now:        func() time.Time { return flowNow },
	}
}

func (e *testEnv) transitionHandler() *bookingapp.TransitionHandler {
	return &bookingapp.TransitionHandler{
		UoWFactory: e.factory,
		Outbox:     e.outbox,
		Now:        func() time.Time { return flowNow },
	}
}

func (e *testEnv) queryHandler() *bookingapp.BookingQueryHandler {
	return &bookingapp.BookingQueryHandler{
		UoWFactory: e.factory,
		Now:        func() time.Time { return flowNow },
	}
}

func requestCmd(id string, daysAhead, nights int) bookingapp.RequestBookingCommand {
	checkIn := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, daysAhead)
	return bookingapp.RequestBookingCommand{
		CommandID: id,
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   checkIn,
		CheckOut:  checkIn.AddDate(0, 0, nights),
		Guests:    2,
	}
}

func TestRequestBookingPendingFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)

	result, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.NoError(t, err)

	assert.Equal(t, "bk-1", result.BookingID)
	assert.Equal(t, "pending", result.Status)
	assert.Equal(t, int64(100000), result.Pricing.BasePrice.Amount)
	assert.Equal(t, int64(10000), result.Pricing.ServiceFee.Amount)
	assert.Equal(t, int64(9200), result.Pricing.Taxes.Amount)
	assert.Equal(t, int64(124200), result.Pricing.Total.Amount)

	stored, err := env.factory.BookingRepo.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, stored.Status)
	assert.Equal(t, "host-1", stored.HostID)
	assert.Equal(t, domainbooking.TierModerate, stored.Policy)

	names := make([]string, 0)
	for _, rec := range env.outbox.Records() {
		names = append(names, rec.Name)
	}
	assert.Contains(t, names, "booking.requested")
	assert.Contains(t, names, "availability.reserved")
}

func TestRequestBookingInstantBookConfirms(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "flexible", true)

	result, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.NoError(t, err)
	assert.Equal(t, "confirmed", result.Status)
}

func TestRequestBookingRejectsOverlapAllowsBackToBack(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)
	handler := env.requestHandler()

	_, err := handler.Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.NoError(t, err)

	overlapping := requestCmd("bk-2", 32, 4)
	_, err = handler.Handle(context.Background(), overlapping)
	require.Error(t, err)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))
	assert.Equal(t, "date_range", fault.FieldOf(err))

	backToBack := requestCmd("bk-3", 34, 3)
	_, err = handler.Handle(context.Background(), backToBack)
	assert.NoError(t, err, "stay starting on the previous checkout day is not a conflict")
}

func TestRequestBookingOwnListingForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "guest-1", "moderate", false)

	_, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.Error(t, err)
	assert.Equal(t, fault.KindForbidden, fault.KindOf(err))
}

func TestRequestBookingUnknownListing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
	assert.Equal(t, "listing_id", fault.FieldOf(err))
}

func TestRequestBookingValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)
	handler := env.requestHandler()

	tooMany := requestCmd("bk-1", 30, 4)
	tooMany.Guests = 9
	_, err := handler.Handle(context.Background(), tooMany)
	assert.Equal(t, fault.KindInvalidInput, fault.KindOf(err))
	assert.Equal(t, "guests", fault.FieldOf(err))

	past := requestCmd("bk-2", -3, 4)
	_, err = handler.Handle(context.Background(), past)
	assert.Equal(t, fault.KindInvalidInput, fault.KindOf(err))
	assert.Equal(t, "check_in", fault.FieldOf(err))

	inverted := requestCmd("bk-3", 30, 4)
	inverted.CheckOut = inverted.CheckIn.AddDate(0, 0, -1)
	_, err = handler.Handle(context.Background(), inverted)
	assert.Equal(t, fault.KindInvalidInput, fault.KindOf(err))
	assert.Equal(t, "date_range", fault.FieldOf(err))
}

func TestCancelThenRebook(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)
	handler := env.requestHandler()

	_, err := handler.Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.NoError(t, err)

	result, err := env.cancelHandler().Handle(context.Background(), bookingapp.CancelBookingCommand{
		BookingID: "bk-1",
		ActorID:   "guest-1",
		Reason:    "plans changed",
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.Status)
	assert.Equal(t, "guest", result.CancelledBy)
	assert.Equal(t, flowNow, result.CancelledAt)

	_, err = handler.Handle(context.Background(), requestCmd("bk-2", 30, 4))
	assert.NoError(t, err, "cancelled dates are free for rebooking")
}

func TestCancelByStrangerForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)

	_, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.NoError(t, err)

	_, err = env.cancelHandler().Handle(context.Background(), bookingapp.CancelBookingCommand{
		BookingID: "bk-1",
		ActorID:   "someone-else",
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindForbidden, fault.KindOf(err))
}

func TestCancelNoticeTooShort(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "strict", false)

	_, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 3, 4))
	require.NoError(t, err)

	_, err = env.cancelHandler().Handle(context.Background(), bookingapp.CancelBookingCommand{
		BookingID: "bk-1",
		ActorID:   "guest-1",
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindForbidden, fault.KindOf(err))

	stored, err := env.factory.BookingRepo.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, stored.Status, "failed cancel leaves the booking untouched")
}

func TestHostConfirmAndComplete(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)

	_, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.NoError(t, err)
	transitions := env.transitionHandler()

	_, err = transitions.HandleConfirm(context.Background(), bookingapp.ConfirmBookingCommand{BookingID: "bk-1", HostID: "not-the-host"})
	assert.Equal(t, fault.KindForbidden, fault.KindOf(err))

	result, err := transitions.HandleConfirm(context.Background(), bookingapp.ConfirmBookingCommand{BookingID: "bk-1", HostID: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", result.Status)

	_, err = transitions.HandleConfirm(context.Background(), bookingapp.ConfirmBookingCommand{BookingID: "bk-1", HostID: "host-1"})
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))

	result, err = transitions.HandleComplete(context.Background(), bookingapp.CompleteBookingCommand{BookingID: "bk-1", HostID: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
}

func TestRefundAfterCancel(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "flexible", false)

	_, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.NoError(t, err)
	_, err = env.cancelHandler().Handle(context.Background(), bookingapp.CancelBookingCommand{BookingID: "bk-1", ActorID: "guest-1"})
	require.NoError(t, err)

	result, err := env.transitionHandler().HandleRefund(context.Background(), bookingapp.RefundBookingCommand{
		BookingID:    "bk-1",
		RefundAmount: 124200,
		Currency:     "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "refunded", result.Status)

	stored, err := env.factory.BookingRepo.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, int64(124200), stored.RefundAmount.Amount)
}

func TestGetBookingVisibleToGuestAndHostOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)

	_, err := env.requestHandler().Handle(context.Background(), requestCmd("bk-1", 30, 4))
	require.NoError(t, err)
	queriesHandler := env.queryHandler()

	asGuest, err := queriesHandler.HandleGet(context.Background(), bookingapp.GetBookingQuery{BookingID: "bk-1", ActorID: "guest-1"})
	require.NoError(t, err)
	assert.True(t, asGuest.CanCancel)
	assert.Equal(t, 4, asGuest.Nights)

	_, err = queriesHandler.HandleGet(context.Background(), bookingapp.GetBookingQuery{BookingID: "bk-1", ActorID: "host-1"})
	assert.NoError(t, err)

	_, err = queriesHandler.HandleGet(context.Background(), bookingapp.GetBookingQuery{BookingID: "bk-1", ActorID: "stranger"})
	assert.Equal(t, fault.KindForbidden, fault.KindOf(err))
}

func TestListBookingsWithStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)
	handler := env.requestHandler()

	_, err := handler.Handle(context.Background(), requestCmd("bk-1", 10, 4))
	require.NoError(t, err)
	_, err = handler.Handle(context.Background(), requestCmd("bk-2", 20, 4))
	require.NoError(t, err)
	_, err = env.cancelHandler().Handle(context.Background(), bookingapp.CancelBookingCommand{BookingID: "bk-1", ActorID: "guest-1"})
	require.NoError(t, err)
	queriesHandler := env.queryHandler()

	all, err := queriesHandler.HandleListGuest(context.Background(), bookingapp.ListGuestBookingsQuery{GuestID: "guest-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)

	pending, err := queriesHandler.HandleListGuest(context.Background(), bookingapp.ListGuestBookingsQuery{GuestID: "guest-1", Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, 1, pending.Count)
	assert.Equal(t, "bk-2", pending.Items[0].ID)

	hosted, err := queriesHandler.HandleListHost(context.Background(), bookingapp.ListHostBookingsQuery{HostID: "host-1", Status: "cancelled"})
	require.NoError(t, err)
	require.Equal(t, 1, hosted.Count)
	assert.Equal(t, "bk-1", hosted.Items[0].ID)
}

func TestConcurrentRequestsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)
	handler := env.requestHandler()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			cmd := requestCmd("", 30, 4)
			cmd.CommandID = "bk-race-" + string(rune('a'+slot))
			_, err := handler.Handle(context.Background(), cmd)
			errs[slot] = err
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.Equal(t, fault.KindConflict, fault.KindOf(err))
	}
	assert.Equal(t, 1, winners, "exactly one concurrent request for the same dates may win")

	checkIn := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	dr, err := domainrange.New(checkIn, checkIn.AddDate(0, 0, 4))
	require.NoError(t, err)
	active, err := env.factory.BookingRepo.ActiveForListing(context.Background(), "lst-1", dr)
	require.NoError(t, err)
	assert.Len(t, active, 1, "losing requests must not leave bookings in the store")
}

// contendedAvailability injects a competing writer between a register
// read and its save, forcing the optimistic check to fail.
type contendedAvailability struct {
	domainavailability.Repository
	once    sync.Once
	compete func()
}

func (r *contendedAvailability) Save(ctx context.Context, register *domainavailability.Register) error {
	r.once.Do(r.compete)
	return r.Repository.Save(ctx, register)
}

func TestLosingRequestLeavesNoBooking(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, "lst-1", "host-1", "moderate", false)

	rival := env.requestHandler()
	contended := &contendedAvailability{Repository: env.factory.AvailabilityRepo}
	contended.compete = func() {
		_, err := rival.Handle(context.Background(), requestCmd("bk-winner", 30, 4))
		require.NoError(t, err)
	}
	loserFactory := env.factory
	loserFactory.AvailabilityRepo = contended
	loser := &bookingapp.RequestBookingHandler{
		UoWFactory: loserFactory,
		Outbox:     env.outbox,
		Now:        func() time.Time { return flowNow },
	}

	_, err := loser.Handle(context.Background(), requestCmd("bk-loser", 30, 4))
	require.Error(t, err)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))

	_, err = env.factory.BookingRepo.ByID(context.Background(), "bk-loser")
	assert.ErrorIs(t, err, memory.ErrBookingNotFound, "rejected request must not persist a booking")

	winner, err := env.factory.BookingRepo.ByID(context.Background(), "bk-winner")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, winner.Status)
}
