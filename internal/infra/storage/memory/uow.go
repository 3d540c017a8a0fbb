package memory

import (
	"context"
	"errors"

	"staynest/internal/app/uow"
	domainavailability "staynest/internal/domain/availability"
	domainbooking "staynest/internal/domain/booking"
	domainlistings "staynest/internal/domain/listings"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo     domainlistings.Repository
	BookingRepo      domainbooking.Repository
	AvailabilityRepo domainavailability.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// NewFactory builds a factory over freshly created empty repositories.
func NewFactory() Factory {
	return Factory{
		ListingsRepo:     NewListingRepository(),
		BookingRepo:      NewBookingRepository(),
		AvailabilityRepo: NewAvailabilityRepository(),
	}
}

// Begin starts a lightweight transaction boundary. Writes apply
// immediately and Rollback cannot undo them, so handlers put the
// version-guarded register save ahead of the writes it protects.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.BookingRepo == nil || f.AvailabilityRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		listings:     f.ListingsRepo,
		booking:      f.BookingRepo,
		availability: f.AvailabilityRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	listings     domainlistings.Repository
	booking      domainbooking.Repository
	availability domainavailability.Repository
}

func (u *Unit) Listings() domainlistings.Repository {
	return u.listings
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.booking
}

func (u *Unit) Availability() domainavailability.Repository {
	return u.availability
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}

var _ uow.Factory = Factory{}
