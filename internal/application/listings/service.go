package listings

import (
	"context"
	"errors"
	"fmt"

	"wheelhub-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnauthenticated = errors.New("You must be signed in")
	ErrForbidden       = errors.New("You can not edit that listing")
	ErrUploadFailed    = errors.New("Could not upload images")
	ErrSaveListing     = errors.New("Could not save listing")
)

// Store is the document store holding listings.
type Store interface {
	Query(ctx context.Context, q domain.Query) (domain.Page, error)
	Get(ctx context.Context, id string) (*domain.Listing, error)
	// Create assigns the id and creation timestamp.
	Create(ctx context.Context, l *domain.Listing) error
	// Update rewrites the listing with l.ID if it is still owned by l.OwnerRef. CreatedAt is kept.
	Update(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id string) error
}

// BlobStore stores image bytes under key and returns a public URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Service is the listing use-case layer.
type Service struct {
	Store        Store
	Blobs        BlobStore
	Validator    Validator
	UploadPolicy UploadPolicy
}

// Get returns a listing by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Listing, error) {
	if id == "" {
		return nil, domain.ErrListingNotFound
	}
	return s.Store.Get(ctx, id)
}

// CheckOwner loads a listing for editing. Only its owner may proceed.
func (s *Service) CheckOwner(ctx context.Context, who *domain.Identity, id string) (*domain.Listing, error) {
	if who == nil || who.UserID == "" {
		return nil, ErrUnauthenticated
	}
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerRef != who.UserID {
		return nil, ErrForbidden
	}
	return l, nil
}

// Delete removes a listing owned by who. Stored images are left in the blob store.
func (s *Service) Delete(ctx context.Context, who *domain.Identity, id string) error {
	l, err := s.CheckOwner(ctx, who, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, l.ID); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	log.Info().Str("listing_id", l.ID).Int("images", len(l.Images)).Msg("listing deleted, images kept in blob store")
	return nil
}

// Search runs one query for f starting after cursor. Store errors come back as ErrFetchListings.
func (s *Service) Search(ctx context.Context, f Filter, limit int, cursor domain.Cursor) (domain.Page, error) {
	q := BuildQuery(f, limit)
	q.StartAfter = cursor
	page, err := s.Store.Query(ctx, q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			return domain.Page{}, err
		}
		log.Error().Err(err).Interface("filter", f).Msg("listings: query failed")
		return domain.Page{}, fmt.Errorf("%w: %v", ErrFetchListings, err)
	}
	return page, nil
}

// Mine returns the caller's listings, newest first.
func (s *Service) Mine(ctx context.Context, who *domain.Identity) ([]domain.Listing, error) {
	if who == nil || who.UserID == "" {
		return nil, ErrUnauthenticated
	}
	page, err := s.Search(ctx, Filter{OwnerRef: who.UserID}, SearchLimit, "")
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Home is the landing page: newest offers, rentals and sales, plus the slider.
type Home struct {
	Offers []domain.Listing `json:"offers"`
	Rent   []domain.Listing `json:"rent"`
	Sale   []domain.Listing `json:"sale"`
	Slider []domain.Listing `json:"slider"`
}

func (s *Service) Home(ctx context.Context) (*Home, error) {
	var home Home
	g, gctx := errgroup.WithContext(ctx)
	section := func(dst *[]domain.Listing, f Filter, limit int) {
		g.Go(func() error {
			page, err := s.Search(gctx, f, limit, "")
			if err != nil {
				return err
			}
			*dst = page.Items
			return nil
		})
	}
	section(&home.Offers, Filter{OffersOnly: true}, SectionLimit)
	section(&home.Rent, Filter{Category: domain.CategoryRent}, SectionLimit)
	section(&home.Sale, Filter{Category: domain.CategorySale}, SectionLimit)
	section(&home.Slider, Filter{}, SliderLimit)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &home, nil
}

// Browse returns a pager for a category or offers view.
func (s *Service) Browse() *Pager {
	return NewPager(s.Store, FirstPageLimit, NextPageLimit)
}

// ResumeBrowse rebuilds a browse pager from saved state.
func (s *Service) ResumeBrowse(state PagerState) *Pager {
	return RestorePager(s.Store, FirstPageLimit, NextPageLimit, state)
}
