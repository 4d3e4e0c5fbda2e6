package listings_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wheelhub-backend/internal/application/listings"
	"wheelhub-backend/internal/domain"
	"wheelhub-backend/internal/infrastructure/store"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *store.GormListingStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&store.ListingRecord{}))

	st := store.NewGormListingStore(db)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	st.Now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return st
}

func seed(t *testing.T, st listings.Store, cat domain.Category, prices ...float64) []domain.Listing {
	t.Helper()
	out := make([]domain.Listing, 0, len(prices))
	for i, p := range prices {
		l := &domain.Listing{
			Category:     cat,
			Name:         fmt.Sprintf("%s car %d", cat, i),
			Manufacturer: "Toyota",
			Model:        "Corolla",
			Year:         2020,
			FuelType:     domain.FuelPetrol,
			Transmission: domain.TransmissionManual,
			Description:  "ok",
			Pricing:      domain.NotOffered{RegularPrice: p},
			Images:       []string{"https://img/1"},
			OwnerRef:     "owner",
		}
		require.NoError(t, st.Create(context.Background(), l))
		out = append(out, *l)
	}
	return out
}

func repeat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func ids(items []domain.Listing) []string {
	out := make([]string, len(items))
	for i, l := range items {
		out[i] = l.ID
	}
	return out
}

// countingStore counts queries and can be told to fail.
type countingStore struct {
	listings.Store
	queries int
	fail    error
}

func (c *countingStore) Query(ctx context.Context, q domain.Query) (domain.Page, error) {
	c.queries++
	if c.fail != nil {
		return domain.Page{}, c.fail
	}
	return c.Store.Query(ctx, q)
}

func TestPager_StopsAfterShortPage(t *testing.T) {
	st := setupStore(t)
	seed(t, st, domain.CategoryRent, repeat(10, 100)...)
	cs := &countingStore{Store: st}
	p := listings.NewPager(cs, listings.FirstPageLimit, listings.NextPageLimit)
	ctx := context.Background()

	first, err := p.FetchFirstPage(ctx, listings.Filter{Category: domain.CategoryRent})
	require.NoError(t, err)
	assert.Len(t, first, 8)
	assert.True(t, p.HasMore())

	next, err := p.FetchNextPage(ctx)
	require.NoError(t, err)
	assert.Len(t, next, 2)
	assert.False(t, p.HasMore())
	assert.Len(t, p.Items(), 10)
	assert.Equal(t, 2, cs.queries)

	more, err := p.FetchNextPage(ctx)
	require.NoError(t, err)
	assert.Nil(t, more)
	assert.Equal(t, 2, cs.queries, "no query after the end was reached")
}

func TestPager_ExactMultipleEndsWithEmptyPage(t *testing.T) {
	st := setupStore(t)
	seed(t, st, domain.CategorySale, repeat(8, 50)...)
	p := listings.NewPager(st, listings.FirstPageLimit, listings.NextPageLimit)
	ctx := context.Background()

	first, err := p.FetchFirstPage(ctx, listings.Filter{Category: domain.CategorySale})
	require.NoError(t, err)
	assert.Len(t, first, 8)
	assert.True(t, p.HasMore())

	next, err := p.FetchNextPage(ctx)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.False(t, p.HasMore())
}

func TestPager_NewestFirstWithoutDuplicates(t *testing.T) {
	st := setupStore(t)
	created := seed(t, st, domain.CategoryRent, repeat(15, 10)...)
	p := listings.NewPager(st, listings.FirstPageLimit, listings.NextPageLimit)
	ctx := context.Background()

	_, err := p.FetchFirstPage(ctx, listings.Filter{Category: domain.CategoryRent})
	require.NoError(t, err)
	for p.HasMore() {
		_, err := p.FetchNextPage(ctx)
		require.NoError(t, err)
	}

	want := ids(created)
	for i, j := 0, len(want)-1; i < j; i, j = i+1, j-1 {
		want[i], want[j] = want[j], want[i]
	}
	assert.Equal(t, want, ids(p.Items()))
}

func TestPager_NextPageIsIdempotentForSameCursor(t *testing.T) {
	st := setupStore(t)
	seed(t, st, domain.CategoryRent, repeat(20, 10)...)
	ctx := context.Background()

	p := listings.NewPager(st, listings.FirstPageLimit, listings.NextPageLimit)
	_, err := p.FetchFirstPage(ctx, listings.Filter{Category: domain.CategoryRent})
	require.NoError(t, err)
	saved := p.State()

	a, err := p.FetchNextPage(ctx)
	require.NoError(t, err)

	again := listings.RestorePager(st, listings.FirstPageLimit, listings.NextPageLimit, saved)
	b, err := again.FetchNextPage(ctx)
	require.NoError(t, err)

	require.Len(t, a, 4)
	assert.Equal(t, ids(a), ids(b))
	assert.Equal(t, p.State(), again.State())
}

func TestPager_FilterChangeResets(t *testing.T) {
	st := setupStore(t)
	seed(t, st, domain.CategoryRent, repeat(12, 10)...)
	seed(t, st, domain.CategorySale, repeat(3, 10)...)
	p := listings.NewPager(st, listings.FirstPageLimit, listings.NextPageLimit)
	ctx := context.Background()

	_, err := p.FetchFirstPage(ctx, listings.Filter{Category: domain.CategoryRent})
	require.NoError(t, err)
	_, err = p.FetchNextPage(ctx)
	require.NoError(t, err)
	require.Len(t, p.Items(), 12)

	sale, err := p.FetchFirstPage(ctx, listings.Filter{Category: domain.CategorySale})
	require.NoError(t, err)
	assert.Len(t, sale, 3)
	assert.Len(t, p.Items(), 3)
	for _, l := range p.Items() {
		assert.Equal(t, domain.CategorySale, l.Category)
	}
	assert.False(t, p.HasMore())
}

func TestPager_FailedFetchKeepsCursor(t *testing.T) {
	st := setupStore(t)
	seed(t, st, domain.CategoryRent, repeat(12, 10)...)
	cs := &countingStore{Store: st}
	p := listings.NewPager(cs, listings.FirstPageLimit, listings.NextPageLimit)
	ctx := context.Background()

	_, err := p.FetchFirstPage(ctx, listings.Filter{Category: domain.CategoryRent})
	require.NoError(t, err)
	before := p.State()

	cs.fail = errors.New("index missing")
	_, err = p.FetchNextPage(ctx)
	require.Error(t, err)
	assert.Equal(t, before, p.State())
	assert.Len(t, p.Items(), 8)

	cs.fail = nil
	next, err := p.FetchNextPage(ctx)
	require.NoError(t, err)
	assert.Len(t, next, 4)
}

func TestPager_EmptyResult(t *testing.T) {
	st := setupStore(t)
	p := listings.NewPager(st, listings.FirstPageLimit, listings.NextPageLimit)
	page, err := p.FetchFirstPage(context.Background(), listings.Filter{OffersOnly: true})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.False(t, p.HasMore())
}

func TestPager_RentPriceRangeLowToHigh(t *testing.T) {
	st := setupStore(t)
	seed(t, st, domain.CategoryRent, 50, 100, 300, 300, 300, 300, 450, 500, 501, 250, 120, 300, 700)
	seed(t, st, domain.CategorySale, 200, 300, 400)
	p := listings.NewPager(st, 3, 2)
	ctx := context.Background()

	f := listings.Filter{
		Category: domain.CategoryRent,
		MinPrice: ptrF(100),
		MaxPrice: ptrF(500),
		SortBy:   listings.SortPriceLowToHigh,
	}
	_, err := p.FetchFirstPage(ctx, f)
	require.NoError(t, err)
	for p.HasMore() {
		_, err := p.FetchNextPage(ctx)
		require.NoError(t, err)
	}

	var prices []float64
	seen := map[string]bool{}
	for _, l := range p.Items() {
		assert.Equal(t, domain.CategoryRent, l.Category)
		assert.False(t, seen[l.ID], "duplicate %s", l.ID)
		seen[l.ID] = true
		prices = append(prices, l.Pricing.Regular())
	}
	assert.Equal(t, []float64{100, 120, 250, 300, 300, 300, 300, 300, 450, 500}, prices)
}

func ptrF(f float64) *float64 { return &f }
