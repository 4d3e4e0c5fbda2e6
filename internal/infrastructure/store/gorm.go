package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wheelhub-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingRecord is the listings table row.
type ListingRecord struct {
	ID              string         `gorm:"column:id;primaryKey;size:36"`
	Category        string         `gorm:"column:category;type:varchar(10);not null;index"`
	Name            string         `gorm:"column:name;not null"`
	Manufacturer    string         `gorm:"column:manufacturer;not null;index"`
	Model           string         `gorm:"column:model;not null"`
	Year            int            `gorm:"column:year;not null"`
	Mileage         float64        `gorm:"column:mileage;not null"`
	FuelType        string         `gorm:"column:fuel_type;not null"`
	Transmission    string         `gorm:"column:transmission;not null"`
	Description     string         `gorm:"column:description;not null"`
	Offer           bool           `gorm:"column:offer;not null;default:false;index"`
	RegularPrice    float64        `gorm:"column:regular_price;not null;index"`
	DiscountedPrice *float64       `gorm:"column:discounted_price"`
	Images          datatypes.JSON `gorm:"column:images;type:json"`
	UserRef         string         `gorm:"column:user_ref;not null;index"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null;index"`
}

func (ListingRecord) TableName() string {
	return "listings"
}

var columns = map[string]string{
	domain.FieldType:         "category",
	domain.FieldManufacturer: "manufacturer",
	domain.FieldRegularPrice: "regular_price",
	domain.FieldOffer:        "offer",
	domain.FieldTimestamp:    "created_at",
	domain.FieldUserRef:      "user_ref",
}

var sqlOps = map[domain.Op]string{
	domain.OpEq:  "=",
	domain.OpGte: ">=",
	domain.OpLte: "<=",
}

// GormListingStore keeps listings in a SQL table (Postgres in production, SQLite in tests).
type GormListingStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewGormListingStore(db *gorm.DB) *GormListingStore {
	return &GormListingStore{DB: db, Now: time.Now}
}

func (s *GormListingStore) Query(ctx context.Context, q domain.Query) (domain.Page, error) {
	tx := s.DB.WithContext(ctx).Model(&ListingRecord{})
	for _, p := range q.Predicates {
		col, ok := columns[p.Field]
		if !ok {
			return domain.Page{}, fmt.Errorf("unknown field %q", p.Field)
		}
		op, ok := sqlOps[p.Op]
		if !ok {
			return domain.Page{}, fmt.Errorf("unknown operator %q", p.Op)
		}
		tx = tx.Where(fmt.Sprintf("%s %s ?", col, op), p.Value)
	}

	sortCol, ok := columns[q.OrderBy.Field]
	if !ok {
		return domain.Page{}, fmt.Errorf("unknown sort field %q", q.OrderBy.Field)
	}
	dir, cmp := "DESC", "<"
	if q.OrderBy.Direction == domain.Asc {
		dir, cmp = "ASC", ">"
	}

	if q.StartAfter != "" {
		k, err := decodeCursor(q.StartAfter, q.OrderBy)
		if err != nil {
			return domain.Page{}, err
		}
		v := k.value()
		tx = tx.Where(fmt.Sprintf("(%s %s ? OR (%s = ? AND id %s ?))", sortCol, cmp, sortCol, cmp), v, v, k.ID)
	}

	tx = tx.Order(sortCol + " " + dir).Order("id " + dir)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []ListingRecord
	if err := tx.Find(&rows).Error; err != nil {
		return domain.Page{}, err
	}
	items := make([]domain.Listing, 0, len(rows))
	for _, r := range rows {
		l, err := r.toDomain()
		if err != nil {
			return domain.Page{}, err
		}
		items = append(items, l)
	}
	return domain.Page{Items: items, Next: nextCursor(q.OrderBy, items)}, nil
}

func (s *GormListingStore) Get(ctx context.Context, id string) (*domain.Listing, error) {
	var r ListingRecord
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	l, err := r.toDomain()
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *GormListingStore) Create(ctx context.Context, l *domain.Listing) error {
	l.ID = uuid.New().String()
	l.CreatedAt = s.now()
	r, err := recordOf(l)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Create(r).Error
}

// Update leaves created_at untouched. A missing row, or one owned by someone else, is ErrListingNotFound.
func (s *GormListingStore) Update(ctx context.Context, l *domain.Listing) error {
	r, err := recordOf(l)
	if err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Model(&ListingRecord{}).
		Where("id = ? AND user_ref = ?", l.ID, l.OwnerRef).
		Updates(map[string]interface{}{
			"category":         r.Category,
			"name":             r.Name,
			"manufacturer":     r.Manufacturer,
			"model":            r.Model,
			"year":             r.Year,
			"mileage":          r.Mileage,
			"fuel_type":        r.FuelType,
			"transmission":     r.Transmission,
			"description":      r.Description,
			"offer":            r.Offer,
			"regular_price":    r.RegularPrice,
			"discounted_price": r.DiscountedPrice,
			"images":           r.Images,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (s *GormListingStore) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&ListingRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (s *GormListingStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func recordOf(l *domain.Listing) (*ListingRecord, error) {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}
	r := &ListingRecord{
		ID:           l.ID,
		Category:     string(l.Category),
		Name:         l.Name,
		Manufacturer: l.Manufacturer,
		Model:        l.Model,
		Year:         l.Year,
		Mileage:      l.Mileage,
		FuelType:     string(l.FuelType),
		Transmission: string(l.Transmission),
		Description:  l.Description,
		Images:       datatypes.JSON(b),
		UserRef:      l.OwnerRef,
		CreatedAt:    l.CreatedAt,
	}
	if l.Pricing != nil {
		r.Offer = l.Pricing.HasOffer()
		r.RegularPrice = l.Pricing.Regular()
		if d, ok := domain.DiscountOf(l.Pricing); ok {
			r.DiscountedPrice = &d
		}
	}
	return r, nil
}

func (r ListingRecord) toDomain() (domain.Listing, error) {
	var images []string
	if len(r.Images) > 0 {
		if err := json.Unmarshal(r.Images, &images); err != nil {
			return domain.Listing{}, fmt.Errorf("listing %s images: %w", r.ID, err)
		}
	}
	pricing, err := pricingOf(r.RegularPrice, r.Offer, r.DiscountedPrice)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", r.ID, err)
	}
	return domain.Listing{
		ID:           r.ID,
		Category:     domain.Category(r.Category),
		Name:         r.Name,
		Manufacturer: r.Manufacturer,
		Model:        r.Model,
		Year:         r.Year,
		Mileage:      r.Mileage,
		FuelType:     domain.FuelType(r.FuelType),
		Transmission: domain.Transmission(r.Transmission),
		Description:  r.Description,
		Pricing:      pricing,
		Images:       images,
		OwnerRef:     r.UserRef,
		CreatedAt:    r.CreatedAt.UTC(),
	}, nil
}

// An offer row without a discount is read as not offered.
func pricingOf(regular float64, offer bool, discounted *float64) (domain.Pricing, error) {
	if !offer || discounted == nil {
		return domain.NotOffered{RegularPrice: regular}, nil
	}
	return domain.NewPricing(regular, true, *discounted)
}
