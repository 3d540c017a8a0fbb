package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"staynest/internal/domain/shared/money"
)

var (
	ErrTitleRequired  = errors.New("listings: title is required")
	ErrHostRequired   = errors.New("listings: host is required")
	ErrGuestsLimit    = errors.New("listings: max guests must be at least 1")
	ErrNegativeRate   = errors.New("listings: nightly rate must be non-negative")
	ErrNegativeFee    = errors.New("listings: cleaning fee must be non-negative")
	ErrListingMissing = errors.New("listings: not found")
)

type ListingID string
type HostID string

// Listing is the part of the catalog record the booking core reads:
// pricing inputs, capacity, instant-book behavior and the cancellation
// tier new bookings snapshot.
type Listing struct {
	ID                 ListingID
	Host               HostID
	Title              string
	City               string
	Country            string
	MaxGuests          int
	Nightly            money.Money
	CleaningFee        money.Money
	InstantBook        bool
	CancellationPolicy string
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateParams struct {
	ID                 ListingID
	Host               HostID
	Title              string
	City               string
	Country            string
	MaxGuests          int
	Nightly            money.Money
	CleaningFee        money.Money
	InstantBook        bool
	CancellationPolicy string
	Now                time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.MaxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	if params.Nightly.IsNegative() {
		return nil, ErrNegativeRate
	}
	if params.CleaningFee.IsNegative() {
		return nil, ErrNegativeFee
	}
	now := params.Now.UTC()
	return &Listing{
		ID:                 params.ID,
		Host:               params.Host,
		Title:              strings.TrimSpace(params.Title),
		City:               strings.TrimSpace(params.City),
		Country:            strings.TrimSpace(params.Country),
		MaxGuests:          params.MaxGuests,
		Nightly:            params.Nightly,
		CleaningFee:        params.CleaningFee,
		InstantBook:        params.InstantBook,
		CancellationPolicy: strings.TrimSpace(params.CancellationPolicy),
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}
