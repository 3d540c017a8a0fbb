package booking

import (
	"time"

	"staynest/internal/domain/listings"
	"staynest/internal/domain/shared/daterange"
	"staynest/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID   BookingID
	ListingID   listings.ListingID
	GuestID     string
	Range       daterange.DateRange
	GuestsCount int
	Total       money.Money
	At          time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID
	ListingID listings.ListingID
	Range     daterange.DateRange
	Total     money.Money
	At        time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID   BookingID
	ListingID   listings.ListingID
	CancelledBy Actor
	Reason      string
	At          time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID
	ListingID listings.ListingID
	At        time.Time
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingRefunded struct {
	BookingID BookingID
	Refund    money.Money
	At        time.Time
}

func (e BookingRefunded) EventName() string     { return "booking.refunded" }
func (e BookingRefunded) AggregateID() string   { return string(e.BookingID) }
func (e BookingRefunded) OccurredAt() time.Time { return e.At }
