package booking

import (
	"context"
	"errors"
	"time"

	"staynest/internal/app/commands"
	"staynest/internal/app/dto"
	"staynest/internal/app/middleware"
	"staynest/internal/app/outbox"
	"staynest/internal/app/uow"
	domainavailability "staynest/internal/domain/availability"
	domainbooking "staynest/internal/domain/booking"
	domainlistings "staynest/internal/domain/listings"
	"staynest/internal/domain/pricing"
	domainrange "staynest/internal/domain/shared/daterange"
	"staynest/internal/domain/shared/fault"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	CommandID       string
	ListingID       string
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	SpecialRequests string
	GuestMessage    string
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

type RequestBookingResult struct {
	BookingID string                `json:"booking_id"`
	Status    string                `json:"status"`
	Pricing   dto.PriceBreakdownDTO `json:"pricing"`
}

type RequestBookingHandler struct {
	UoWFactory uow.Factory
	Rates      pricing.Rates
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

// Handle runs the booking pipeline: validate the range, check the
// listing, reserve the dates on the availability register, price the
// stay, then persist register and booking inside one unit of work. The
// register save carries the optimistic guard and is written first, so
// a concurrent request for overlapping dates fails before any of its
// state is stored.
func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	ctx, unit, finish, err := beginIfNeeded(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finish.rollbackUnlessCommitted(ctx)

	now := h.now()
	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, fault.Invalid("date_range", err)
	}
	if err := domainbooking.ValidateDateRange(dr, now); err != nil {
		return nil, fault.Invalid("check_in", err)
	}
	if cmd.Guests <= 0 {
		return nil, fault.Invalid("guests", domainbooking.ErrInvalidGuests)
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, fault.NotFound("listing_id", err)
	}
	if string(listing.Host) == cmd.GuestID {
		return nil, fault.Forbidden(domainbooking.ErrOwnListing)
	}
	if cmd.Guests > listing.MaxGuests {
		return nil, fault.Invalid("guests", errors.New("booking: guests exceed listing capacity"))
	}

	// Declarative store-side overlap query, re-verified in process so
	// the half-open predicate stays the single correctness oracle.
	active, err := unit.Bookings().ActiveForListing(ctx, listing.ID, dr)
	if err != nil {
		return nil, err
	}
	var conflicts []domainbooking.BookingID
	for _, existing := range active {
		if existing.Range.Overlaps(dr) {
			conflicts = append(conflicts, existing.ID)
		}
	}
	if len(conflicts) > 0 {
		return nil, fault.Conflict("date_range", &domainbooking.DatesUnavailableError{ConflictIDs: conflicts})
	}

	quote, err := pricing.Quote(listing.Nightly, listing.CleaningFee, dr.Nights(), h.rates())
	if err != nil {
		return nil, fault.Invalid("pricing", err)
	}

	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              domainbooking.BookingID(cmd.CommandID),
		ListingID:       listing.ID,
		GuestID:         cmd.GuestID,
		HostID:          string(listing.Host),
		Range:           dr,
		Guests:          cmd.Guests,
		Price:           quote,
		Policy:          domainbooking.ParseTier(listing.CancellationPolicy),
		InstantBook:     listing.InstantBook,
		SpecialRequests: cmd.SpecialRequests,
		GuestMessage:    cmd.GuestMessage,
		Now:             now,
	})
	if err != nil {
		return nil, fault.Invalid("booking", err)
	}

	register, err := unit.Availability().Register(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if err := register.Reserve(dr, string(b.ID), now); err != nil {
		return nil, fault.Conflict("date_range", err)
	}

	// The register save is the serialization point and must land before
	// the booking does: a request that loses the optimistic check here
	// leaves no state behind.
	if err := unit.Availability().Save(ctx, register); err != nil {
		if errors.Is(err, domainavailability.ErrStaleRegister) {
			return nil, fault.Conflict("date_range", err)
		}
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	if err := drainEvents(ctx, h.Outbox, h.encoder(), b, register); err != nil {
		return nil, err
	}
	if err := finish.commit(ctx); err != nil {
		return nil, err
	}

	return &RequestBookingResult{
		BookingID: string(b.ID),
		Status:    string(b.Status),
		Pricing:   dto.MapPriceBreakdown(b.Price),
	}, nil
}

func (h *RequestBookingHandler) rates() pricing.Rates {
	if h.Rates.ServiceFeeBP == 0 && h.Rates.TaxBP == 0 {
		return pricing.DefaultRates()
	}
	return h.Rates
}

func (h *RequestBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
