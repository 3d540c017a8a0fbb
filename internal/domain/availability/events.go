package availability

import (
	"time"

	"staynest/internal/domain/listings"
	"staynest/internal/domain/shared/daterange"
)

type DatesReserved struct {
	ListingID listings.ListingID
	BookingID string
	Range     daterange.DateRange
	At        time.Time
}

func (e DatesReserved) EventName() string     { return "availability.reserved" }
func (e DatesReserved) AggregateID() string   { return string(e.ListingID) }
func (e DatesReserved) OccurredAt() time.Time { return e.At }

type DatesReleased struct {
	ListingID listings.ListingID
	BookingID string
	Range     daterange.DateRange
	At        time.Time
}

func (e DatesReleased) EventName() string     { return "availability.released" }
func (e DatesReleased) AggregateID() string   { return string(e.ListingID) }
func (e DatesReleased) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	ListingID listings.ListingID
	Range     daterange.DateRange
	At        time.Time
}

func (e OverbookingPrevented) EventName() string     { return "availability.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return string(e.ListingID) }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }
