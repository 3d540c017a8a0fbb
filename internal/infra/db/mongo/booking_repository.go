package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staynest/internal/domain/booking"
	"staynest/internal/domain/listings"
	domainpricing "staynest/internal/domain/pricing"
	domainrange "staynest/internal/domain/shared/daterange"
	"staynest/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"guest_id": guestID})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"host_id": hostID})
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainbooking.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

// ActiveForListing filters with the same half-open interval arithmetic
// the domain predicate applies: stored check-in strictly before the
// requested check-out and stored check-out strictly after the requested
// check-in.
func (r *BookingRepository) ActiveForListing(ctx context.Context, id listings.ListingID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id":      string(id),
		"status":          bson.M{"$in": []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}},
		"range.check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
	return r.list(ctx, filter)
}

type bookingDocument struct {
	ID              string                  `bson:"_id"`
	ListingID       string                  `bson:"listing_id"`
	GuestID         string                  `bson:"guest_id"`
	HostID          string                  `bson:"host_id"`
	Range           rangeDocument           `bson:"range"`
	Guests          int                     `bson:"guests"`
	Nights          int                     `bson:"nights"`
	Price           domainpricing.Breakdown `bson:"price"`
	Status          string                  `bson:"status"`
	Policy          string                  `bson:"policy"`
	SpecialRequests string                  `bson:"special_requests,omitempty"`
	GuestMessage    string                  `bson:"guest_message,omitempty"`
	CancelledBy     string                  `bson:"cancelled_by,omitempty"`
	CancelledAt     int64                   `bson:"cancelled_at,omitempty"`
	CancelReason    string                  `bson:"cancel_reason,omitempty"`
	RefundAmount    money.Money             `bson:"refund_amount,omitempty"`
	CreatedAt       int64                   `bson:"created_at"`
	UpdatedAt       int64                   `bson:"updated_at"`
	Version         int64                   `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:              string(b.ID),
		ListingID:       string(b.ListingID),
		GuestID:         b.GuestID,
		HostID:          b.HostID,
		Range:           rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:          b.Guests,
		Nights:          b.Nights,
		Price:           b.Price,
		Status:          string(b.Status),
		Policy:          string(b.Policy),
		SpecialRequests: b.SpecialRequests,
		GuestMessage:    b.GuestMessage,
		CancelledBy:     string(b.CancelledBy),
		CancelReason:    b.CancellationReason,
		RefundAmount:    b.RefundAmount,
		CreatedAt:       b.CreatedAt.UnixMilli(),
		UpdatedAt:       b.UpdatedAt.UnixMilli(),
		Version:         b.Version,
	}
	if !b.CancelledAt.IsZero() {
		doc.CancelledAt = b.CancelledAt.UnixMilli()
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	dr := domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)}
	agg := &domainbooking.Booking{
		ID:                 domainbooking.BookingID(d.ID),
		ListingID:          listings.ListingID(d.ListingID),
		GuestID:            d.GuestID,
		HostID:             d.HostID,
		Range:              dr,
		Guests:             d.Guests,
		Nights:             d.Nights,
		Price:              d.Price,
		Status:             domainbooking.Status(d.Status),
		Policy:             domainbooking.PolicyTier(d.Policy),
		SpecialRequests:    d.SpecialRequests,
		GuestMessage:       d.GuestMessage,
		CancelledBy:        domainbooking.Actor(d.CancelledBy),
		CancellationReason: d.CancelReason,
		RefundAmount:       d.RefundAmount,
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
	if d.CancelledAt != 0 {
		agg.CancelledAt = timestampToTime(d.CancelledAt)
	}
	return agg
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
