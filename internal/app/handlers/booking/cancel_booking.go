package booking

import (
	"context"
	"errors"
	"time"

	"staynest/internal/app/commands"
	"staynest/internal/app/outbox"
	"staynest/internal/app/uow"
	domainavailability "staynest/internal/domain/availability"
	domainbooking "staynest/internal/domain/booking"
	"staynest/internal/domain/shared/fault"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID string
	ActorID   string
	Reason    string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingResult struct {
	BookingID   string    `json:"booking_id"`
	Status      string    `json:"status"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type CancelBookingHandler struct {
	UoWFactory uow.Factory
	Notice     domainbooking.NoticeRules
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

// Handle cancels a booking on behalf of its guest or host. The policy
// evaluator gates the transition; the availability hold is released in
// the same unit of work so the dates free up atomically.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
	ctx, unit, finish, err := beginIfNeeded(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finish.rollbackUnlessCommitted(ctx)

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, fault.NotFound("booking_id", err)
	}

	var actor domainbooking.Actor
	switch cmd.ActorID {
	case b.GuestID:
		actor = domainbooking.ActorGuest
	case b.HostID:
		actor = domainbooking.ActorHost
	default:
		return nil, fault.Forbidden(errors.New("booking: actor is neither guest nor host"))
	}

	now := h.now()
	if err := b.Cancel(actor, cmd.Reason, h.rules(), now); err != nil {
		return nil, fault.Forbidden(err)
	}

	register, err := unit.Availability().Register(ctx, b.ListingID)
	if err != nil {
		return nil, err
	}
	if err := register.Release(string(b.ID), now); err != nil && !errors.Is(err, domainavailability.ErrHoldNotFound) {
		return nil, err
	}

	// Register first: if the release loses a concurrent register write
	// the booking stays untouched instead of being half-cancelled.
	if err := unit.Availability().Save(ctx, register); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	if err := drainEvents(ctx, h.Outbox, h.cancelEncoder(), b, register); err != nil {
		return nil, err
	}
	if err := finish.commit(ctx); err != nil {
		return nil, err
	}

	return &CancelBookingResult{
		BookingID:   string(b.ID),
		Status:      string(b.Status),
		CancelledBy: string(b.CancelledBy),
		CancelledAt: b.CancelledAt,
	}, nil
}

func (h *CancelBookingHandler) rules() domainbooking.NoticeRules {
	if h.Notice == (domainbooking.NoticeRules{}) {
		return domainbooking.DefaultNoticeRules()
	}
	return h.Notice
}

func (h *CancelBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *CancelBookingHandler) cancelEncoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
