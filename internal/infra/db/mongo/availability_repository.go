package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "staynest/internal/domain/availability"
	domainlistings "staynest/internal/domain/listings"
	domainrange "staynest/internal/domain/shared/daterange"
)

// AvailabilityRepository persists the per-listing register document.
// Save filters on the version read earlier, so concurrent writers race
// on the CAS and the loser reports ErrStaleRegister.
type AvailabilityRepository struct {
	col *mongo.Collection
}

func NewAvailabilityRepository(db *mongo.Database) *AvailabilityRepository {
	return &AvailabilityRepository{col: db.Collection("agg_availability")}
}

func (r *AvailabilityRepository) Register(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Register, error) {
	var doc registerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewRegister(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *AvailabilityRepository) Save(ctx context.Context, register *domainavailability.Register) error {
	doc := newRegisterDocument(register)
	filter := bson.M{"_id": doc.ID, "version": register.Version}
	doc.Version = register.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainavailability.ErrStaleRegister
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainavailability.ErrStaleRegister
	}
	register.Version = doc.Version
	return nil
}

type registerDocument struct {
	ID      string         `bson:"_id"`
	Holds   []holdDocument `bson:"holds"`
	Version int64          `bson:"version"`
}

type holdDocument struct {
	Range     rangeDocument `bson:"range"`
	BookingID string        `bson:"booking_id"`
	CreatedAt int64         `bson:"created_at"`
}

func newRegisterDocument(reg *domainavailability.Register) registerDocument {
	doc := registerDocument{
		ID:      string(reg.ListingID),
		Holds:   make([]holdDocument, 0, len(reg.Holds)),
		Version: reg.Version,
	}
	for _, hold := range reg.Holds {
		doc.Holds = append(doc.Holds, holdDocument{
			Range:     rangeDocument{CheckIn: hold.Range.CheckIn.UnixMilli(), CheckOut: hold.Range.CheckOut.UnixMilli()},
			BookingID: hold.BookingID,
			CreatedAt: hold.CreatedAt.UnixMilli(),
		})
	}
	return doc
}

func (d registerDocument) toAggregate() *domainavailability.Register {
	reg := &domainavailability.Register{
		ListingID: domainlistings.ListingID(d.ID),
		Holds:     make([]domainavailability.Hold, 0, len(d.Holds)),
		Version:   d.Version,
	}
	for _, hold := range d.Holds {
		reg.Holds = append(reg.Holds, domainavailability.Hold{
			Range:     domainrange.DateRange{CheckIn: timestampToTime(hold.Range.CheckIn), CheckOut: timestampToTime(hold.Range.CheckOut)},
			BookingID: hold.BookingID,
			CreatedAt: timestampToTime(hold.CreatedAt),
		})
	}
	return reg
}
