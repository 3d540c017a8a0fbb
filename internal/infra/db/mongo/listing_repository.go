package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "staynest/internal/domain/listings"
	"staynest/internal/domain/shared/money"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("agg_listing")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingMissing
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	filter := bson.M{"_id": doc.ID, "version": listing.Version}
	doc.Version = listing.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	listing.Version = doc.Version
	return nil
}

type listingDocument struct {
	ID                 string      `bson:"_id"`
	Host               string      `bson:"host_id"`
	Title              string      `bson:"title"`
	City               string      `bson:"city"`
	Country            string      `bson:"country"`
	MaxGuests          int         `bson:"max_guests"`
	Nightly            money.Money `bson:"nightly"`
	CleaningFee        money.Money `bson:"cleaning_fee"`
	InstantBook        bool        `bson:"instant_book"`
	CancellationPolicy string      `bson:"cancellation_policy"`
	Active             bool        `bson:"active"`
	CreatedAt          int64       `bson:"created_at"`
	UpdatedAt          int64       `bson:"updated_at"`
	Version            int64       `bson:"version"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:                 string(l.ID),
		Host:               string(l.Host),
		Title:              l.Title,
		City:               l.City,
		Country:            l.Country,
		MaxGuests:          l.MaxGuests,
		Nightly:            l.Nightly,
		CleaningFee:        l.CleaningFee,
		InstantBook:        l.InstantBook,
		CancellationPolicy: l.CancellationPolicy,
		Active:             l.Active,
		CreatedAt:          l.CreatedAt.UnixMilli(),
		UpdatedAt:          l.UpdatedAt.UnixMilli(),
		Version:            l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:                 domainlistings.ListingID(d.ID),
		Host:               domainlistings.HostID(d.Host),
		Title:              d.Title,
		City:               d.City,
		Country:            d.Country,
		MaxGuests:          d.MaxGuests,
		Nightly:            d.Nightly,
		CleaningFee:        d.CleaningFee,
		InstantBook:        d.InstantBook,
		CancellationPolicy: d.CancellationPolicy,
		Active:             d.Active,
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
}
