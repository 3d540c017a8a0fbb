package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	domainavailability "staynest/internal/domain/availability"
	domainbooking "staynest/internal/domain/booking"
	domainlistings "staynest/internal/domain/listings"
	domainrange "staynest/internal/domain/shared/daterange"
	"staynest/internal/domain/shared/events"
)

var (
	// ErrListingNotFound is returned when a listing cannot be located in memory.
	ErrListingNotFound = errors.New("memory: listing not found")
	// ErrBookingNotFound is returned when a booking does not exist.
	ErrBookingNotFound = errors.New("memory: booking not found")
)

// ListingRepository is an in-memory implementation for tests and local runs.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

// NewListingRepository builds an empty repository.
func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlistings.ListingID]*domainlistings.Listing)}
}

// ByID returns a listing copy or ErrListingNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	clone := *listing
	return &clone, nil
}

// Save stores/updates a listing entry.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *listing
	r.items[listing.ID] = &clone
	return nil
}

// BookingRepository stores bookings in memory.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

// NewBookingRepository builds an empty booking repo.
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

// ByID fetches a booking snapshot.
func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	booking, ok := r.items[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return cloneBooking(booking), nil
}

// Save stores the current booking state.
func (r *BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking.Version++
	r.items[booking.ID] = cloneBooking(booking)
	return nil
}

// ListByGuest returns a guest's bookings, newest first.
func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.listBy(func(b *domainbooking.Booking) bool { return b.GuestID == guestID }, guestID)
}

// ListByHost returns bookings across a host's listings, newest first.
func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.listBy(func(b *domainbooking.Booking) bool { return b.HostID == hostID }, hostID)
}

func (r *BookingRepository) listBy(match func(*domainbooking.Booking) bool, id string) ([]*domainbooking.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("memory: id required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, booking := range r.items {
		if match(booking) {
			matches = append(matches, cloneBooking(booking))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

// ActiveForListing applies the store-side range filter: pending and
// confirmed bookings of the listing whose interval intersects dr.
func (r *BookingRepository) ActiveForListing(ctx context.Context, id domainlistings.ListingID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, booking := range r.items {
		if booking.ListingID != id || !booking.IsActive() {
			continue
		}
		if booking.Range.Overlaps(dr) {
			matches = append(matches, cloneBooking(booking))
		}
	}
	return matches, nil
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	clone := *b
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}

// AvailabilityRepository keeps per-listing registers in memory, guarded
// by the same optimistic version check the Mongo store applies.
type AvailabilityRepository struct {
	mu        sync.Mutex
	registers map[domainlistings.ListingID]*domainavailability.Register
}

// NewAvailabilityRepository returns a repository with no registers yet.
func NewAvailabilityRepository() *AvailabilityRepository {
	return &AvailabilityRepository{registers: make(map[domainlistings.ListingID]*domainavailability.Register)}
}

// Register retrieves a snapshot of the listing's register, lazily
// creating an empty one.
func (r *AvailabilityRepository) Register(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Register, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.registers[id]
	if !ok {
		stored = domainavailability.NewRegister(id)
		r.registers[id] = stored
	}
	return cloneRegister(stored), nil
}

// Save persists the register if nobody else saved since it was read.
// Losing the race yields ErrStaleRegister, which callers surface as a
// booking conflict.
func (r *AvailabilityRepository) Save(ctx context.Context, register *domainavailability.Register) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.registers[register.ListingID]
	if ok && stored.Version != register.Version {
		return domainavailability.ErrStaleRegister
	}
	register.Version++
	r.registers[register.ListingID] = cloneRegister(register)
	return nil
}

func cloneRegister(reg *domainavailability.Register) *domainavailability.Register {
	clone := &domainavailability.Register{
		ListingID: reg.ListingID,
		Holds:     append([]domainavailability.Hold(nil), reg.Holds...),
		Version:   reg.Version,
	}
	return clone
}
