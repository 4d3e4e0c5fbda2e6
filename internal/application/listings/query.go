package listings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"wheelhub-backend/internal/domain"
)

// Page sizes used by the browse views.
const (
	FirstPageLimit = 8
	NextPageLimit  = 4
	SectionLimit   = 4
	SliderLimit    = 5
	SearchLimit    = 0
)

// prefixSentinel is appended to a text bound so a range query behaves like "starts with".
const prefixSentinel = "\uf8ff"

var (
	ErrFetchListings = errors.New("Could not fetch listings")
	ErrInvalidFilter = errors.New("Invalid filter")
)

type SortBy string

const (
	SortNewest         SortBy = "newest"
	SortPriceLowToHigh SortBy = "priceLowToHigh"
	SortPriceHighToLow SortBy = "priceHighToLow"
)

func (s SortBy) Valid() bool {
	switch s {
	case "", SortNewest, SortPriceLowToHigh, SortPriceHighToLow:
		return true
	}
	return false
}

// Filter is the user's current search criteria.
type Filter struct {
	Category     domain.Category `json:"category,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	MinPrice     *float64        `json:"minPrice,omitempty"`
	MaxPrice     *float64        `json:"maxPrice,omitempty"`
	OffersOnly   bool            `json:"offersOnly,omitempty"`
	OwnerRef     string          `json:"ownerRef,omitempty"`
	SortBy       SortBy          `json:"sortBy,omitempty"`
}

// BuildQuery turns a filter into store clauses. The same filter always yields the same clauses.
func BuildQuery(f Filter, limit int) domain.Query {
	var preds []domain.Predicate

	if f.OffersOnly {
		preds = append(preds, domain.Predicate{Field: domain.FieldOffer, Op: domain.OpEq, Value: true})
	} else if f.Category != "" {
		preds = append(preds, domain.Predicate{Field: domain.FieldType, Op: domain.OpEq, Value: string(f.Category)})
	}

	if f.Manufacturer != "" {
		preds = append(preds,
			domain.Predicate{Field: domain.FieldManufacturer, Op: domain.OpGte, Value: f.Manufacturer},
			domain.Predicate{Field: domain.FieldManufacturer, Op: domain.OpLte, Value: f.Manufacturer + prefixSentinel},
		)
	}

	if f.MinPrice != nil {
		preds = append(preds, domain.Predicate{Field: domain.FieldRegularPrice, Op: domain.OpGte, Value: *f.MinPrice})
	}
	if f.MaxPrice != nil {
		preds = append(preds, domain.Predicate{Field: domain.FieldRegularPrice, Op: domain.OpLte, Value: *f.MaxPrice})
	}

	if f.OwnerRef != "" {
		preds = append(preds, domain.Predicate{Field: domain.FieldUserRef, Op: domain.OpEq, Value: f.OwnerRef})
	}

	return domain.Query{
		Predicates: preds,
		OrderBy:    orderFor(f.SortBy),
		Limit:      limit,
	}
}

func orderFor(s SortBy) domain.OrderBy {
	switch s {
	case SortPriceLowToHigh:
		return domain.OrderBy{Field: domain.FieldRegularPrice, Direction: domain.Asc}
	case SortPriceHighToLow:
		return domain.OrderBy{Field: domain.FieldRegularPrice, Direction: domain.Desc}
	default:
		return domain.OrderBy{Field: domain.FieldTimestamp, Direction: domain.Desc}
	}
}

// ParseFilter reads the search query string: type, manufacturer, minPrice, maxPrice, offer, sortBy.
func ParseFilter(params map[string]string) (Filter, error) {
	var f Filter

	if t := strings.TrimSpace(params["type"]); t != "" {
		c := domain.Category(t)
		if !c.Valid() {
			return Filter{}, fmt.Errorf("%w: type must be rent or sale", ErrInvalidFilter)
		}
		f.Category = c
	}

	if m := params["manufacturer"]; strings.TrimSpace(m) != "" {
		f.Manufacturer = m
	}

	var err error
	if f.MinPrice, err = parsePrice(params["minPrice"], "minPrice"); err != nil {
		return Filter{}, err
	}
	if f.MaxPrice, err = parsePrice(params["maxPrice"], "maxPrice"); err != nil {
		return Filter{}, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return Filter{}, fmt.Errorf("%w: minPrice is greater than maxPrice", ErrInvalidFilter)
	}

	if o := strings.TrimSpace(params["offer"]); o != "" {
		b, err := strconv.ParseBool(o)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: offer must be true or false", ErrInvalidFilter)
		}
		f.OffersOnly = b
	}

	s := SortBy(strings.TrimSpace(params["sortBy"]))
	if !s.Valid() {
		return Filter{}, fmt.Errorf("%w: unknown sortBy %q", ErrInvalidFilter, s)
	}
	f.SortBy = s
	return f, nil
}

func parsePrice(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, ok := parseNumber(raw)
	if !ok || n < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidFilter, name)
	}
	return &n, nil
}
