// Package availability keeps one register of active date holds per
// listing. The register is the serialization point for the
// check-then-write sequence: repositories persist it with an optimistic
// version guard, so of two concurrent reservations for overlapping
// dates exactly one lands.
package availability

import (
	"context"
	"errors"
	"time"

	"staynest/internal/domain/listings"
	"staynest/internal/domain/shared/daterange"
	"staynest/internal/domain/shared/events"
)

var (
	ErrDatesTaken   = errors.New("availability: dates overlap an existing booking")
	ErrHoldNotFound = errors.New("availability: hold not found")
	// ErrStaleRegister is returned by repositories when the optimistic
	// version guard trips: another writer saved the register first.
	ErrStaleRegister = errors.New("availability: register modified concurrently")
)

// Hold is an active booking's claim on a date range.
type Hold struct {
	Range     daterange.DateRange
	BookingID string
	CreatedAt time.Time
}

type Register struct {
	ListingID listings.ListingID
	Holds     []Hold
	Version   int64
	events.EventRecorder
}

type Repository interface {
	Register(ctx context.Context, id listings.ListingID) (*Register, error)
	Save(ctx context.Context, register *Register) error
}

func NewRegister(id listings.ListingID) *Register {
	return &Register{ListingID: id}
}

// Conflicts returns every hold overlapping dr under the half-open
// predicate. An empty result means the range is free; a non-empty one
// doubles as the diagnostic payload for a rejected booking.
func (r *Register) Conflicts(dr daterange.DateRange) []Hold {
	var conflicts []Hold
	for _, hold := range r.Holds {
		if hold.Range.Overlaps(dr) {
			conflicts = append(conflicts, hold)
		}
	}
	return conflicts
}

// CanReserve reports whether dr is free of conflicts.
func (r *Register) CanReserve(dr daterange.DateRange) bool {
	return len(r.Conflicts(dr)) == 0
}

// Reserve claims dr for a booking, rejecting any overlap.
func (r *Register) Reserve(dr daterange.DateRange, bookingID string, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if conflicts := r.Conflicts(dr); len(conflicts) > 0 {
		r.Record(OverbookingPrevented{ListingID: r.ListingID, Range: dr, At: now.UTC()})
		return ErrDatesTaken
	}
	r.Holds = append(r.Holds, Hold{Range: dr, BookingID: bookingID, CreatedAt: now.UTC()})
	r.Record(DatesReserved{ListingID: r.ListingID, BookingID: bookingID, Range: dr, At: now.UTC()})
	return nil
}

// Release frees the hold owned by a booking, typically on cancellation.
func (r *Register) Release(bookingID string, now time.Time) error {
	idx := -1
	for i, hold := range r.Holds {
		if hold.BookingID == bookingID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrHoldNotFound
	}
	released := r.Holds[idx]
	r.Holds = append(r.Holds[:idx], r.Holds[idx+1:]...)
	r.Record(DatesReleased{ListingID: r.ListingID, BookingID: bookingID, Range: released.Range, At: now.UTC()})
	return nil
}

// Day is one calendar cell of the month view.
type Day struct {
	Date      time.Time
	Available bool
}

// MonthCalendar derives per-day availability for a month: a day is
// booked iff some hold satisfies checkIn <= day < checkOut.
func (r *Register) MonthCalendar(year int, month time.Month) []Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	days := make([]Day, 0, 31)
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		booked := false
		for _, hold := range r.Holds {
			if hold.Range.ContainsDate(d) {
				booked = true
				break
			}
		}
		days = append(days, Day{Date: d, Available: !booked})
	}
	return days
}
