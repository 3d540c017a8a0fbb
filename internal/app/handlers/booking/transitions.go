package booking

import (
	"context"
	"errors"
	"time"

	"staynest/internal/app/commands"
	"staynest/internal/app/outbox"
	"staynest/internal/app/uow"
	domainbooking "staynest/internal/domain/booking"
	"staynest/internal/domain/shared/fault"
	"staynest/internal/domain/shared/money"
)

const (
	confirmBookingKey  = "booking.confirm"
	completeBookingKey = "booking.complete"
	refundBookingKey   = "booking.refund"
)

var errHostOnly = errors.New("booking: only the host can perform this transition")

// ConfirmBookingCommand is the host accepting a pending request.
type ConfirmBookingCommand struct {
	BookingID string
	HostID    string
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

// CompleteBookingCommand marks a stay finished after checkout.
type CompleteBookingCommand struct {
	BookingID string
	HostID    string
}

func (c CompleteBookingCommand) Key() string { return completeBookingKey }

// RefundBookingCommand records a payment reversal settled externally.
type RefundBookingCommand struct {
	BookingID    string
	RefundAmount int64
	Currency     string
}

func (c RefundBookingCommand) Key() string { return refundBookingKey }

type TransitionResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// TransitionHandler serves the narrow status transitions that share the
// same load-mutate-save shape.
type TransitionHandler struct {
	UoWFactory uow.Factory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *TransitionHandler) HandleConfirm(ctx context.Context, cmd ConfirmBookingCommand) (*TransitionResult, error) {
	return h.apply(ctx, cmd.BookingID, func(b *domainbooking.Booking, now time.Time) error {
		if b.HostID != cmd.HostID {
			return fault.Forbidden(errHostOnly)
		}
		if err := b.Confirm(now); err != nil {
			return fault.Conflict("status", err)
		}
		return nil
	})
}

func (h *TransitionHandler) HandleComplete(ctx context.Context, cmd CompleteBookingCommand) (*TransitionResult, error) {
	return h.apply(ctx, cmd.BookingID, func(b *domainbooking.Booking, now time.Time) error {
		if b.HostID != cmd.HostID {
			return fault.Forbidden(errHostOnly)
		}
		if err := b.Complete(now); err != nil {
			return fault.Conflict("status", err)
		}
		return nil
	})
}

func (h *TransitionHandler) HandleRefund(ctx context.Context, cmd RefundBookingCommand) (*TransitionResult, error) {
	return h.apply(ctx, cmd.BookingID, func(b *domainbooking.Booking, now time.Time) error {
		refund, err := money.New(cmd.RefundAmount, cmd.Currency)
		if err != nil {
			return fault.Invalid("refund_amount", err)
		}
		if err := b.MarkRefunded(refund, now); err != nil {
			return fault.Conflict("status", err)
		}
		return nil
	})
}

func (h *TransitionHandler) apply(ctx context.Context, bookingID string, mutate func(*domainbooking.Booking, time.Time) error) (*TransitionResult, error) {
	ctx, unit, finish, err := beginIfNeeded(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finish.rollbackUnlessCommitted(ctx)

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		return nil, fault.NotFound("booking_id", err)
	}

	now := h.now()
	if err := mutate(b, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.transitionEncoder(), b); err != nil {
		return nil, err
	}
	if err := finish.commit(ctx); err != nil {
		return nil, err
	}
	return &TransitionResult{BookingID: string(b.ID), Status: string(b.Status)}, nil
}

func (h *TransitionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *TransitionHandler) transitionEncoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

// handler adapters so each command registers independently on the bus

type confirmAdapter struct{ *TransitionHandler }

func (a confirmAdapter) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*TransitionResult, error) {
	return a.HandleConfirm(ctx, cmd)
}

type completeAdapter struct{ *TransitionHandler }

func (a completeAdapter) Handle(ctx context.Context, cmd CompleteBookingCommand) (*TransitionResult, error) {
	return a.HandleComplete(ctx, cmd)
}

type refundAdapter struct{ *TransitionHandler }

func (a refundAdapter) Handle(ctx context.Context, cmd RefundBookingCommand) (*TransitionResult, error) {
	return a.HandleRefund(ctx, cmd)
}

// ConfirmHandler exposes the confirm transition as a typed bus handler.
func (h *TransitionHandler) ConfirmHandler() commands.Handler[ConfirmBookingCommand, *TransitionResult] {
	return confirmAdapter{h}
}

// CompleteHandler exposes the complete transition as a typed bus handler.
func (h *TransitionHandler) CompleteHandler() commands.Handler[CompleteBookingCommand, *TransitionResult] {
	return completeAdapter{h}
}

// RefundHandler exposes the refund transition as a typed bus handler.
func (h *TransitionHandler) RefundHandler() commands.Handler[RefundBookingCommand, *TransitionResult] {
	return refundAdapter{h}
}
