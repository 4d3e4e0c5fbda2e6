package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Category is the listing type: a vehicle for rent or for sale.
type Category string

const (
	CategoryRent Category = "rent"
	CategorySale Category = "sale"
)

func (c Category) Valid() bool {
	return c == CategoryRent || c == CategorySale
}

type FuelType string

const (
	FuelPetrol   FuelType = "Petrol"
	FuelDiesel   FuelType = "Diesel"
	FuelElectric FuelType = "Electric"
	FuelHybrid   FuelType = "Hybrid"
)

func (f FuelType) Valid() bool {
	switch f {
	case FuelPetrol, FuelDiesel, FuelElectric, FuelHybrid:
		return true
	}
	return false
}

type Transmission string

const (
	TransmissionAutomatic Transmission = "Automatic"
	TransmissionManual    Transmission = "Manual"
)

func (t Transmission) Valid() bool {
	return t == TransmissionAutomatic || t == TransmissionManual
}

var ErrInvalidPricing = errors.New("Discounted price must be less than regular price.")

// Pricing is either NotOffered or Offered. The discounted price only exists on Offered,
// so a listing without an offer can never carry one.
type Pricing interface {
	Regular() float64
	HasOffer() bool
	isPricing()
}

type NotOffered struct {
	RegularPrice float64
}

func (p NotOffered) Regular() float64 { return p.RegularPrice }
func (NotOffered) HasOffer() bool      { return false }
func (NotOffered) isPricing()          {}

type Offered struct {
	RegularPrice    float64
	DiscountedPrice float64
}

func (p Offered) Regular() float64 { return p.RegularPrice }
func (Offered) HasOffer() bool      { return true }
func (Offered) isPricing()          {}

// NewPricing builds the pricing variant. discounted is ignored when hasOffer is false.
func NewPricing(regular float64, hasOffer bool, discounted float64) (Pricing, error) {
	if !hasOffer {
		return NotOffered{RegularPrice: regular}, nil
	}
	if discounted >= regular {
		return nil, ErrInvalidPricing
	}
	return Offered{RegularPrice: regular, DiscountedPrice: discounted}, nil
}

// DiscountOf returns the discounted price and true for an Offered pricing.
func DiscountOf(p Pricing) (float64, bool) {
	if o, ok := p.(Offered); ok {
		return o.DiscountedPrice, true
	}
	return 0, false
}

// Listing is a single vehicle-for-rent-or-sale record.
type Listing struct {
	ID           string
	Category     Category
	Name         string
	Manufacturer string
	Model        string
	Year         int
	Mileage      float64
	FuelType     FuelType
	Transmission Transmission
	Description  string
	Pricing      Pricing
	Images       []string
	OwnerRef     string
	CreatedAt    time.Time
}

type listingJSON struct {
	ID              string       `json:"id"`
	Type            Category     `json:"type"`
	Name            string       `json:"name"`
	Manufacturer    string       `json:"manufacturer"`
	Model           string       `json:"model"`
	Year            int          `json:"year"`
	Mileage         float64      `json:"mileage"`
	FuelType        FuelType     `json:"fuelType"`
	Transmission    Transmission `json:"transmission"`
	Description     string       `json:"description"`
	Offer           bool         `json:"offer"`
	RegularPrice    float64      `json:"regularPrice"`
	DiscountedPrice *float64     `json:"discountedPrice,omitempty"`
	Images          []string     `json:"images"`
	UserRef         string       `json:"userRef"`
	Timestamp       time.Time    `json:"timestamp"`
}

// MarshalJSON writes the persisted record shape; discountedPrice is absent unless offered.
func (l Listing) MarshalJSON() ([]byte, error) {
	out := listingJSON{
		ID:           l.ID,
		Type:         l.Category,
		Name:         l.Name,
		Manufacturer: l.Manufacturer,
		Model:        l.Model,
		Year:         l.Year,
		Mileage:      l.Mileage,
		FuelType:     l.FuelType,
		Transmission: l.Transmission,
		Description:  l.Description,
		Images:       l.Images,
		UserRef:      l.OwnerRef,
		Timestamp:    l.CreatedAt,
	}
	if out.Images == nil {
		out.Images = []string{}
	}
	if l.Pricing != nil {
		out.Offer = l.Pricing.HasOffer()
		out.RegularPrice = l.Pricing.Regular()
		if d, ok := DiscountOf(l.Pricing); ok {
			out.DiscountedPrice = &d
		}
	}
	return json.Marshal(out)
}

func (l *Listing) UnmarshalJSON(data []byte) error {
	var in listingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	discounted := 0.0
	if in.DiscountedPrice != nil {
		discounted = *in.DiscountedPrice
	}
	pricing, err := NewPricing(in.RegularPrice, in.Offer, discounted)
	if err != nil {
		return err
	}
	*l = Listing{
		ID:           in.ID,
		Category:     in.Type,
		Name:         in.Name,
		Manufacturer: in.Manufacturer,
		Model:        in.Model,
		Year:         in.Year,
		Mileage:      in.Mileage,
		FuelType:     in.FuelType,
		Transmission: in.Transmission,
		Description:  in.Description,
		Pricing:      pricing,
		Images:       in.Images,
		OwnerRef:     in.UserRef,
		CreatedAt:    in.Timestamp,
	}
	return nil
}

var (
	ErrListingNotFound = errors.New("Listing not found")
	ErrInvalidCursor   = errors.New("Invalid cursor")
)
