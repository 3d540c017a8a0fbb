// Package pricing derives the stored price breakdown for a stay. The
// computation is fixed-point over minor units and staged so the same
// inputs always produce the same cents.
package pricing

import (
	"errors"

	"staynest/internal/domain/shared/money"
)

var (
	ErrInvalidNights   = errors.New("pricing: nights must be positive")
	ErrNegativeNightly = errors.New("pricing: nightly rate cannot be negative")
	ErrNegativeFee     = errors.New("pricing: cleaning fee cannot be negative")
	ErrCurrencyUnset   = errors.New("pricing: currency must be defined")
	ErrTotalDrift      = errors.New("pricing: total does not equal the sum of components")
)

// Rates holds the marketplace fee schedule in basis points. The values
// are policy constants surfaced through configuration; the shipped
// defaults match the product's 10% service fee and 8% tax.
type Rates struct {
	ServiceFeeBP int64
	TaxBP        int64
}

// DefaultRates is the fee schedule applied when none is configured.
func DefaultRates() Rates {
	return Rates{ServiceFeeBP: 1000, TaxBP: 800}
}

// Breakdown is the persisted price decomposition of a booking.
type Breakdown struct {
	Nights   int         `json:"nights" bson:"nights"`
	Nightly  money.Money `json:"nightly" bson:"nightly"`
	Base     money.Money `json:"base_price" bson:"base_price"`
	Cleaning money.Money `json:"cleaning_fee" bson:"cleaning_fee"`
	Service  money.Money `json:"service_fee" bson:"service_fee"`
	Taxes    money.Money `json:"taxes" bson:"taxes"`
	Total    money.Money `json:"total" bson:"total"`
}

// Quote computes the breakdown in stages, rounding each derived fee to
// the minor unit before the next stage. The total is the literal sum of
// the four components, never rounded independently.
func Quote(nightly, cleaning money.Money, nights int, rates Rates) (Breakdown, error) {
	if nights < 1 {
		return Breakdown{}, ErrInvalidNights
	}
	if nightly.Currency == "" || cleaning.Currency == "" {
		return Breakdown{}, ErrCurrencyUnset
	}
	if nightly.IsNegative() {
		return Breakdown{}, ErrNegativeNightly
	}
	if cleaning.IsNegative() {
		return Breakdown{}, ErrNegativeFee
	}

	base := nightly.Multiply(int64(nights))
	service := base.ApplyRate(rates.ServiceFeeBP)

	taxable, err := base.Add(cleaning)
	if err != nil {
		return Breakdown{}, err
	}
	taxable, err = taxable.Add(service)
	if err != nil {
		return Breakdown{}, err
	}
	taxes := taxable.ApplyRate(rates.TaxBP)

	total, err := taxable.Add(taxes)
	if err != nil {
		return Breakdown{}, err
	}

	return Breakdown{
		Nights:   nights,
		Nightly:  nightly,
		Base:     base,
		Cleaning: cleaning,
		Service:  service,
		Taxes:    taxes,
		Total:    total,
	}, nil
}

// Verify re-adds the components and confirms the stored total matches.
// Persistence calls it before writing so drifted documents never land.
func (b Breakdown) Verify() error {
	if b.Nights < 1 {
		return ErrInvalidNights
	}
	sum := b.Base
	for _, part := range []money.Money{b.Cleaning, b.Service, b.Taxes} {
		var err error
		sum, err = sum.Add(part)
		if err != nil {
			return err
		}
	}
	if sum != b.Total {
		return ErrTotalDrift
	}
	return nil
}
