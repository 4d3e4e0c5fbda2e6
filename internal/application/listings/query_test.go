package listings

import (
	"testing"

	"wheelhub-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestBuildQuery_ClauseOrder(t *testing.T) {
	q := BuildQuery(Filter{
		Category:     domain.CategoryRent,
		Manufacturer: "Toy",
		MinPrice:     ptr(100),
		MaxPrice:     ptr(500),
		SortBy:       SortPriceLowToHigh,
	}, FirstPageLimit)

	assert.Equal(t, []domain.Predicate{
		{Field: domain.FieldType, Op: domain.OpEq, Value: "rent"},
		{Field: domain.FieldManufacturer, Op: domain.OpGte, Value: "Toy"},
		{Field: domain.FieldManufacturer, Op: domain.OpLte, Value: "Toy\uf8ff"},
		{Field: domain.FieldRegularPrice, Op: domain.OpGte, Value: 100.0},
		{Field: domain.FieldRegularPrice, Op: domain.OpLte, Value: 500.0},
	}, q.Predicates)
	assert.Equal(t, domain.OrderBy{Field: domain.FieldRegularPrice, Direction: domain.Asc}, q.OrderBy)
	assert.Equal(t, 8, q.Limit)
	assert.Empty(t, q.StartAfter)
}

func TestBuildQuery_Deterministic(t *testing.T) {
	f := Filter{OffersOnly: true, Manufacturer: "BMW", MaxPrice: ptr(90), SortBy: SortPriceHighToLow}
	first := BuildQuery(f, NextPageLimit)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BuildQuery(f, NextPageLimit))
	}
}

func TestBuildQuery_OffersReplaceCategory(t *testing.T) {
	q := BuildQuery(Filter{OffersOnly: true, Category: domain.CategorySale}, 0)
	require.Len(t, q.Predicates, 1)
	assert.Equal(t, domain.Predicate{Field: domain.FieldOffer, Op: domain.OpEq, Value: true}, q.Predicates[0])
}

func TestBuildQuery_DefaultSortIsNewest(t *testing.T) {
	q := BuildQuery(Filter{}, SliderLimit)
	assert.Empty(t, q.Predicates)
	assert.Equal(t, domain.OrderBy{Field: domain.FieldTimestamp, Direction: domain.Desc}, q.OrderBy)
	assert.Equal(t, 5, q.Limit)

	q = BuildQuery(Filter{SortBy: SortNewest, OwnerRef: "u1"}, 0)
	assert.Equal(t, domain.OrderBy{Field: domain.FieldTimestamp, Direction: domain.Desc}, q.OrderBy)
	assert.Equal(t, []domain.Predicate{{Field: domain.FieldUserRef, Op: domain.OpEq, Value: "u1"}}, q.Predicates)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(map[string]string{
		"type":         "rent",
		"manufacturer": "Ford",
		"minPrice":     "100",
		"maxPrice":     "500",
		"offer":        "false",
		"sortBy":       "priceLowToHigh",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryRent, f.Category)
	assert.Equal(t, "Ford", f.Manufacturer)
	assert.Equal(t, 100.0, *f.MinPrice)
	assert.Equal(t, 500.0, *f.MaxPrice)
	assert.False(t, f.OffersOnly)
	assert.Equal(t, SortPriceLowToHigh, f.SortBy)

	f, err = ParseFilter(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Filter{}, f)
}

func TestParseFilter_Rejects(t *testing.T) {
	bad := []map[string]string{
		{"type": "lease"},
		{"minPrice": "cheap"},
		{"maxPrice": "-1"},
		{"minPrice": "500", "maxPrice": "100"},
		{"offer": "maybe"},
		{"sortBy": "random"},
	}
	for _, params := range bad {
		_, err := ParseFilter(params)
		assert.ErrorIs(t, err, ErrInvalidFilter, "%v", params)
	}
}
