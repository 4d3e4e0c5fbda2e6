package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wheelhub-backend/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ListingsCollection = "listings"

// listingDocument is the listings collection shape. discountedPrice is absent unless offered.
type listingDocument struct {
	ID              string    `bson:"_id"`
	Type            string    `bson:"type"`
	Name            string    `bson:"name"`
	Manufacturer    string    `bson:"manufacturer"`
	Model           string    `bson:"model"`
	Year            int       `bson:"year"`
	Mileage         float64   `bson:"mileage"`
	FuelType        string    `bson:"fuelType"`
	Transmission    string    `bson:"transmission"`
	Description     string    `bson:"description"`
	Offer           bool      `bson:"offer"`
	RegularPrice    float64   `bson:"regularPrice"`
	DiscountedPrice *float64  `bson:"discountedPrice,omitempty"`
	Images          []string  `bson:"images"`
	UserRef         string    `bson:"userRef"`
	Timestamp       time.Time `bson:"timestamp"`
}

var mongoFields = map[string]bool{
	domain.FieldType:         true,
	domain.FieldManufacturer: true,
	domain.FieldRegularPrice: true,
	domain.FieldOffer:        true,
	domain.FieldTimestamp:    true,
	domain.FieldUserRef:      true,
}

var mongoOps = map[domain.Op]string{
	domain.OpEq:  "$eq",
	domain.OpGte: "$gte",
	domain.OpLte: "$lte",
}

// MongoListingStore keeps listings in a MongoDB collection.
type MongoListingStore struct {
	Coll *mongo.Collection
	Now  func() time.Time
}

func NewMongoListingStore(db *mongo.Database) *MongoListingStore {
	return &MongoListingStore{Coll: db.Collection(ListingsCollection), Now: time.Now}
}

// EnsureIndexes creates the indexes the browse and search queries sort and filter on.
func (s *MongoListingStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "offer", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "userRef", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "manufacturer", Value: 1}}},
		{Keys: bson.D{{Key: "regularPrice", Value: 1}, {Key: "_id", Value: 1}}},
	})
	return err
}

func (s *MongoListingStore) Query(ctx context.Context, q domain.Query) (domain.Page, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return domain.Page{}, err
	}
	opts := options.Find().SetSort(buildSort(q.OrderBy))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.Coll.Find(ctx, filter, opts)
	if err != nil {
		return domain.Page{}, err
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return domain.Page{}, err
	}
	items := make([]domain.Listing, 0, len(docs))
	for _, d := range docs {
		l, err := d.toDomain()
		if err != nil {
			return domain.Page{}, err
		}
		items = append(items, l)
	}
	return domain.Page{Items: items, Next: nextCursor(q.OrderBy, items)}, nil
}

func (s *MongoListingStore) Get(ctx context.Context, id string) (*domain.Listing, error) {
	var d listingDocument
	if err := s.Coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	l, err := d.toDomain()
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *MongoListingStore) Create(ctx context.Context, l *domain.Listing) error {
	l.ID = uuid.New().String()
	l.CreatedAt = s.now()
	_, err := s.Coll.InsertOne(ctx, documentOf(l))
	return err
}

// Update replaces the document, so discountedPrice disappears when the offer is removed.
func (s *MongoListingStore) Update(ctx context.Context, l *domain.Listing) error {
	res, err := s.Coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: l.ID}, {Key: "userRef", Value: l.OwnerRef}},
		documentOf(l))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (s *MongoListingStore) Delete(ctx context.Context, id string) error {
	res, err := s.Coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

// BSON dates keep milliseconds only; truncating here keeps cursors exact.
func (s *MongoListingStore) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Truncate(time.Millisecond)
}

func buildFilter(q domain.Query) (bson.D, error) {
	var and bson.A
	for _, p := range q.Predicates {
		if !mongoFields[p.Field] {
			return nil, fmt.Errorf("unknown field %q", p.Field)
		}
		op, ok := mongoOps[p.Op]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", p.Op)
		}
		and = append(and, bson.D{{Key: p.Field, Value: bson.D{{Key: op, Value: p.Value}}}})
	}

	if q.StartAfter != "" {
		k, err := decodeCursor(q.StartAfter, q.OrderBy)
		if err != nil {
			return nil, err
		}
		cmp := "$lt"
		if q.OrderBy.Direction == domain.Asc {
			cmp = "$gt"
		}
		v := k.value()
		field := q.OrderBy.Field
		and = append(and, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: field, Value: bson.D{{Key: cmp, Value: v}}}},
			bson.D{{Key: field, Value: v}, {Key: "_id", Value: bson.D{{Key: cmp, Value: k.ID}}}},
		}}})
	}

	if len(and) == 0 {
		return bson.D{}, nil
	}
	return bson.D{{Key: "$and", Value: and}}, nil
}

func buildSort(o domain.OrderBy) bson.D {
	dir := -1
	if o.Direction == domain.Asc {
		dir = 1
	}
	field := o.Field
	if !mongoFields[field] {
		field = domain.FieldTimestamp
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

func documentOf(l *domain.Listing) listingDocument {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	d := listingDocument{
		ID:           l.ID,
		Type:         string(l.Category),
		Name:         l.Name,
		Manufacturer: l.Manufacturer,
		Model:        l.Model,
		Year:         l.Year,
		Mileage:      l.Mileage,
		FuelType:     string(l.FuelType),
		Transmission: string(l.Transmission),
		Description:  l.Description,
		Images:       images,
		UserRef:      l.OwnerRef,
		Timestamp:    l.CreatedAt,
	}
	if l.Pricing != nil {
		d.Offer = l.Pricing.HasOffer()
		d.RegularPrice = l.Pricing.Regular()
		if p, ok := domain.DiscountOf(l.Pricing); ok {
			d.DiscountedPrice = &p
		}
	}
	return d
}

func (d listingDocument) toDomain() (domain.Listing, error) {
	pricing, err := pricingOf(d.RegularPrice, d.Offer, d.DiscountedPrice)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", d.ID, err)
	}
	return domain.Listing{
		ID:           d.ID,
		Category:     domain.Category(d.Type),
		Name:         d.Name,
		Manufacturer: d.Manufacturer,
		Model:        d.Model,
		Year:         d.Year,
		Mileage:      d.Mileage,
		FuelType:     domain.FuelType(d.FuelType),
		Transmission: domain.Transmission(d.Transmission),
		Description:  d.Description,
		Pricing:      pricing,
		Images:       d.Images,
		OwnerRef:     d.UserRef,
		CreatedAt:    d.Timestamp.UTC(),
	}, nil
}
