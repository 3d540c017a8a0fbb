package dto

import (
	"time"

	domainbooking "staynest/internal/domain/booking"
	"staynest/internal/domain/pricing"
	"staynest/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type PriceBreakdownDTO struct {
	Nights      int      `json:"nights"`
	Nightly     MoneyDTO `json:"nightly"`
	BasePrice   MoneyDTO `json:"base_price"`
	CleaningFee MoneyDTO `json:"cleaning_fee"`
	ServiceFee  MoneyDTO `json:"service_fee"`
	Taxes       MoneyDTO `json:"taxes"`
	Total       MoneyDTO `json:"total"`
}

type Booking struct {
	ID                 string            `json:"id"`
	ListingID          string            `json:"listing_id"`
	GuestID            string            `json:"guest_id"`
	HostID             string            `json:"host_id"`
	CheckIn            time.Time         `json:"check_in"`
	CheckOut           time.Time         `json:"check_out"`
	Guests             int               `json:"guests"`
	Nights             int               `json:"total_nights"`
	Pricing            PriceBreakdownDTO `json:"pricing"`
	Status             string            `json:"status"`
	CancellationPolicy string            `json:"cancellation_policy"`
	SpecialRequests    string            `json:"special_requests,omitempty"`
	CanCancel          bool              `json:"can_cancel"`
	CancelledBy        string            `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	RefundAmount       *MoneyDTO         `json:"refund_amount,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
	Count int       `json:"count"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func MapPriceBreakdown(b pricing.Breakdown) PriceBreakdownDTO {
	return PriceBreakdownDTO{
		Nights:      b.Nights,
		Nightly:     MapMoney(b.Nightly),
		BasePrice:   MapMoney(b.Base),
		CleaningFee: MapMoney(b.Cleaning),
		ServiceFee:  MapMoney(b.Service),
		Taxes:       MapMoney(b.Taxes),
		Total:       MapMoney(b.Total),
	}
}

// MapBooking renders a booking snapshot. canCancel is computed against
// the supplied clock instead of being cached on the record.
func MapBooking(b *domainbooking.Booking, rules domainbooking.NoticeRules, now time.Time) Booking {
	out := Booking{
		ID:                 string(b.ID),
		ListingID:          string(b.ListingID),
		GuestID:            b.GuestID,
		HostID:             b.HostID,
		CheckIn:            b.Range.CheckIn,
		CheckOut:           b.Range.CheckOut,
		Guests:             b.Guests,
		Nights:             b.Nights,
		Pricing:            MapPriceBreakdown(b.Price),
		Status:             string(b.Status),
		CancellationPolicy: string(b.Policy),
		SpecialRequests:    b.SpecialRequests,
		CanCancel:          domainbooking.CanCancelAt(b.Status, b.Policy, b.Range.CheckIn, now, rules),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
	}
	if b.CancelledBy != "" {
		out.CancelledBy = string(b.CancelledBy)
	}
	if !b.CancelledAt.IsZero() {
		at := b.CancelledAt
		out.CancelledAt = &at
	}
	if b.Status == domainbooking.StatusRefunded {
		refund := MapMoney(b.RefundAmount)
		out.RefundAmount = &refund
	}
	return out
}
