package availability

import (
	"context"
	"errors"
	"time"

	"staynest/internal/app/dto"
	"staynest/internal/app/queries"
	"staynest/internal/app/uow"
	domainlistings "staynest/internal/domain/listings"
	"staynest/internal/domain/shared/fault"
)

const getCalendarKey = "availability.calendar"

var errMonthOutOfRange = errors.New("availability: month out of range")

// GetCalendarQuery asks for the per-day availability of one month.
type GetCalendarQuery struct {
	ListingID string
	Year      int
	Month     time.Month
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.Factory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.Calendar{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.Calendar{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	if q.Month < time.January || q.Month > time.December || q.Year < 1 {
		return dto.Calendar{}, fault.Invalid("month", errMonthOutOfRange)
	}

	// Listing existence gate so unknown ids do not yield an all-free month.
	if _, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID)); err != nil {
		return dto.Calendar{}, fault.NotFound("listing_id", err)
	}

	register, err := unit.Availability().Register(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(q.ListingID, register.MonthCalendar(q.Year, q.Month)), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
