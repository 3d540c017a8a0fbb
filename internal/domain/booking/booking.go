package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"staynest/internal/domain/listings"
	"staynest/internal/domain/pricing"
	"staynest/internal/domain/shared/daterange"
	"staynest/internal/domain/shared/events"
	"staynest/internal/domain/shared/money"
)

var (
	ErrInvalidGuests     = errors.New("booking: guests count must be positive")
	ErrGuestRequired     = errors.New("booking: guest id required")
	ErrOwnListing        = errors.New("booking: cannot book your own listing")
	ErrInvalidTransition = errors.New("booking: invalid state transition")
	ErrNotCancellable    = errors.New("booking: not cancellable in its current state")
	ErrNoticeTooShort    = errors.New("booking: cancellation notice period has passed")
	ErrBookingNotFound   = errors.New("booking: not found")
)

type BookingID string

// Status is the booking lifecycle state. cancelled, completed and
// refunded are terminal for cancellation purposes.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

// Actor identifies which side of the stay performed an operation.
type Actor string

const (
	ActorGuest Actor = "guest"
	ActorHost  Actor = "host"
)

type Booking struct {
	ID              BookingID
	ListingID       listings.ListingID
	GuestID         string
	HostID          string
	Range           daterange.DateRange
	Guests          int
	Nights          int
	Price           pricing.Breakdown
	Status          Status
	Policy          PolicyTier
	SpecialRequests string
	GuestMessage    string

	CancelledBy        Actor
	CancelledAt        time.Time
	CancellationReason string
	RefundAmount       money.Money

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
	// ActiveForListing returns pending and confirmed bookings of the
	// listing whose range intersects dr. Callers re-verify each hit
	// with the in-process overlap predicate.
	ActiveForListing(ctx context.Context, id listings.ListingID, dr daterange.DateRange) ([]*Booking, error)
}

type CreateParams struct {
	ID              BookingID
	ListingID       listings.ListingID
	GuestID         string
	HostID          string
	Range           daterange.DateRange
	Guests          int
	Price           pricing.Breakdown
	Policy          PolicyTier
	InstantBook     bool
	SpecialRequests string
	GuestMessage    string
	Now             time.Time
}

// NewBooking builds the aggregate after availability and pricing have
// been settled. Instant-book listings confirm immediately, everything
// else awaits the host.
func NewBooking(params CreateParams) (*Booking, error) {
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if params.GuestID == params.HostID {
		return nil, ErrOwnListing
	}
	nights := params.Range.Nights()
	if err := params.Price.Verify(); err != nil {
		return nil, err
	}
	if params.Price.Nights != nights {
		return nil, errors.New("booking: price breakdown nights mismatch")
	}

	status := StatusPending
	if params.InstantBook {
		status = StatusConfirmed
	}
	now := params.Now.UTC()
	b := &Booking{
		ID:              params.ID,
		ListingID:       params.ListingID,
		GuestID:         params.GuestID,
		HostID:          params.HostID,
		Range:           params.Range,
		Guests:          params.Guests,
		Nights:          nights,
		Price:           params.Price,
		Status:          status,
		Policy:          params.Policy,
		SpecialRequests: strings.TrimSpace(params.SpecialRequests),
		GuestMessage:    strings.TrimSpace(params.GuestMessage),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingRequested{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, GuestsCount: b.Guests, Total: b.Price.Total, At: now})
	if status == StatusConfirmed {
		b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, Range: b.Range, Total: b.Price.Total, At: now})
	}
	return b, nil
}

// IsActive reports whether the booking still holds its dates.
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Confirm is the host accepting a pending request.
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, Range: b.Range, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

// Cancel releases the stay if the policy tier still allows it. The
// transition is one-way: a cancelled booking rejects a second cancel
// and keeps its original audit fields.
func (b *Booking) Cancel(actor Actor, reason string, rules NoticeRules, now time.Time) error {
	if !b.IsActive() {
		return ErrNotCancellable
	}
	if actor != ActorGuest && actor != ActorHost {
		return errors.New("booking: unknown cancelling actor")
	}
	if !CanCancelAt(b.Status, b.Policy, b.Range.CheckIn, now, rules) {
		return ErrNoticeTooShort
	}
	b.Status = StatusCancelled
	b.CancelledBy = actor
	b.CancelledAt = now.UTC()
	b.CancellationReason = strings.TrimSpace(reason)
	b.UpdatedAt = b.CancelledAt
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, CancelledBy: actor, Reason: b.CancellationReason, At: b.CancelledAt})
	return nil
}

// Complete marks a confirmed stay as finished after checkout.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, ListingID: b.ListingID, At: b.UpdatedAt})
	return nil
}

// MarkRefunded records a payment reversal performed outside the core.
func (b *Booking) MarkRefunded(refund money.Money, now time.Time) error {
	if b.Status != StatusCancelled && b.Status != StatusCompleted {
		return ErrInvalidTransition
	}
	if refund.IsNegative() {
		return errors.New("booking: refund amount cannot be negative")
	}
	b.Status = StatusRefunded
	b.RefundAmount = refund
	b.UpdatedAt = now.UTC()
	b.Record(BookingRefunded{BookingID: b.ID, Refund: refund, At: b.UpdatedAt})
	return nil
}

// DatesUnavailableError names the active bookings blocking a requested
// range so the caller can report the conflict precisely.
type DatesUnavailableError struct {
	ConflictIDs []BookingID
}

func (e *DatesUnavailableError) Error() string {
	return fmt.Sprintf("booking: dates held by %d existing booking(s)", len(e.ConflictIDs))
}

var ErrCheckInInPast = errors.New("booking: check-in date is in the past")

// ValidateDateRange rejects stays whose check-in day already passed.
func ValidateDateRange(dr daterange.DateRange, now time.Time) error {
	if daterange.Truncate(dr.CheckIn).Before(daterange.Truncate(now)) {
		return ErrCheckInInPast
	}
	return nil
}
