package booking

import (
	"context"
	"errors"
	"time"

	"staynest/internal/app/dto"
	"staynest/internal/app/queries"
	"staynest/internal/app/uow"
	domainbooking "staynest/internal/domain/booking"
	"staynest/internal/domain/shared/fault"
)

const (
	getBookingKey        = "booking.get"
	listGuestBookingsKey = "booking.list_guest"
	listHostBookingsKey  = "booking.list_host"
)

// GetBookingQuery fetches one booking, visible only to its guest or host.
type GetBookingQuery struct {
	BookingID string
	ActorID   string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

// ListGuestBookingsQuery lists a guest's bookings, optionally filtered by status.
type ListGuestBookingsQuery struct {
	GuestID string
	Status  string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

// ListHostBookingsQuery lists bookings across a host's listings.
type ListHostBookingsQuery struct {
	HostID string
	Status string
}

func (q ListHostBookingsQuery) Key() string { return listHostBookingsKey }

type BookingQueryHandler struct {
	UoWFactory uow.Factory
	Notice     domainbooking.NoticeRules
	Now        func() time.Time
}

func (h *BookingQueryHandler) HandleGet(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, release, err := h.readUnit(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	defer release()

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, fault.NotFound("booking_id", err)
	}
	if q.ActorID != b.GuestID && q.ActorID != b.HostID {
		return dto.Booking{}, fault.Forbidden(errors.New("booking: not authorized to view this booking"))
	}
	return dto.MapBooking(b, h.rules(), h.now()), nil
}

func (h *BookingQueryHandler) HandleListGuest(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	unit, release, err := h.readUnit(ctx)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer release()

	items, err := unit.Bookings().ListByGuest(ctx, q.GuestID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.collect(items, q.Status), nil
}

func (h *BookingQueryHandler) HandleListHost(ctx context.Context, q ListHostBookingsQuery) (dto.BookingCollection, error) {
	unit, release, err := h.readUnit(ctx)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer release()

	items, err := unit.Bookings().ListByHost(ctx, q.HostID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.collect(items, q.Status), nil
}

func (h *BookingQueryHandler) collect(items []*domainbooking.Booking, statusFilter string) dto.BookingCollection {
	now := h.now()
	rules := h.rules()
	out := dto.BookingCollection{Items: make([]dto.Booking, 0, len(items))}
	for _, b := range items {
		if statusFilter != "" && string(b.Status) != statusFilter {
			continue
		}
		out.Items = append(out.Items, dto.MapBooking(b, rules, now))
	}
	out.Count = len(out.Items)
	return out
}

func (h *BookingQueryHandler) readUnit(ctx context.Context) (uow.UnitOfWork, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, func() {}, nil
	}
	if h.UoWFactory == nil {
		return nil, nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, err
	}
	return unit, func() { _ = unit.Rollback(ctx) }, nil
}

func (h *BookingQueryHandler) rules() domainbooking.NoticeRules {
	if h.Notice == (domainbooking.NoticeRules{}) {
		return domainbooking.DefaultNoticeRules()
	}
	return h.Notice
}

func (h *BookingQueryHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

type getAdapter struct{ *BookingQueryHandler }

func (a getAdapter) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	return a.HandleGet(ctx, q)
}

type listGuestAdapter struct{ *BookingQueryHandler }

func (a listGuestAdapter) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	return a.HandleListGuest(ctx, q)
}

type listHostAdapter struct{ *BookingQueryHandler }

func (a listHostAdapter) Handle(ctx context.Context, q ListHostBookingsQuery) (dto.BookingCollection, error) {
	return a.HandleListHost(ctx, q)
}

func (h *BookingQueryHandler) GetHandler() queries.Handler[GetBookingQuery, dto.Booking] {
	return getAdapter{h}
}

func (h *BookingQueryHandler) ListGuestHandler() queries.Handler[ListGuestBookingsQuery, dto.BookingCollection] {
	return listGuestAdapter{h}
}

func (h *BookingQueryHandler) ListHostHandler() queries.Handler[ListHostBookingsQuery, dto.BookingCollection] {
	return listHostAdapter{h}
}
