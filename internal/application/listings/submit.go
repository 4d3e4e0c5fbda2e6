package listings

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"wheelhub-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// UploadPolicy decides what a failed image upload does to the rest of the submission.
type UploadPolicy string

const (
	// SkipSlot keeps the other uploads going and leaves an empty slot with a warning.
	SkipSlot UploadPolicy = "skipSlot"
	// AbortAll cancels the remaining uploads and fails the submission before any document write.
	AbortAll UploadPolicy = "abortAll"
)

func ParseUploadPolicy(s string) (UploadPolicy, error) {
	switch UploadPolicy(s) {
	case "", SkipSlot:
		return SkipSlot, nil
	case AbortAll:
		return AbortAll, nil
	}
	return "", fmt.Errorf("unknown upload failure policy %q", s)
}

// SubmitResult is the saved listing plus any upload warnings.
type SubmitResult struct {
	Listing  *domain.Listing `json:"listing"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Create validates the form, uploads pending images and writes a new listing owned by who.
func (s *Service) Create(ctx context.Context, who *domain.Identity, form Form) (*SubmitResult, error) {
	if who == nil || who.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if err := s.Validator.Validate(form); err != nil {
		return nil, err
	}

	images, warnings, err := s.resolveImages(ctx, who.UserID, form.Images)
	if err != nil {
		return nil, err
	}
	l, err := buildListing(form, images)
	if err != nil {
		return nil, err
	}
	l.OwnerRef = who.UserID

	if err := s.Store.Create(ctx, l); err != nil {
		logOrphans(err, form.Images, images)
		return nil, fmt.Errorf("%w: %v", ErrSaveListing, err)
	}
	log.Info().Str("listing_id", l.ID).Str("user_id", who.UserID).Msg("listing created")
	return &SubmitResult{Listing: l, Warnings: warnings}, nil
}

// Update rewrites the listing if who owns it and the form is valid. Ownership is checked first,
// so a non-owner never learns anything about the form. The creation timestamp is kept.
func (s *Service) Update(ctx context.Context, who *domain.Identity, id string, form Form) (*SubmitResult, error) {
	if who == nil || who.UserID == "" {
		return nil, ErrUnauthenticated
	}
	existing, err := s.CheckOwner(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if err := s.Validator.Validate(form); err != nil {
		return nil, err
	}

	images, warnings, err := s.resolveImages(ctx, who.UserID, form.Images)
	if err != nil {
		return nil, err
	}
	l, err := buildListing(form, images)
	if err != nil {
		return nil, err
	}
	l.ID = existing.ID
	l.OwnerRef = existing.OwnerRef
	l.CreatedAt = existing.CreatedAt

	if err := s.Store.Update(ctx, l); err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, err
		}
		logOrphans(err, form.Images, images)
		return nil, fmt.Errorf("%w: %v", ErrSaveListing, err)
	}
	log.Info().Str("listing_id", l.ID).Str("user_id", who.UserID).Msg("listing updated")
	return &SubmitResult{Listing: l, Warnings: warnings}, nil
}

// resolveImages uploads pending files concurrently and returns the final URL list in form order.
func (s *Service) resolveImages(ctx context.Context, uid string, refs []ImageRef) ([]string, []string, error) {
	urls := make([]string, len(refs))
	slotWarnings := make([]string, len(refs))

	abort := s.UploadPolicy == AbortAll
	var g *errgroup.Group
	gctx := ctx
	if abort {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}

	for i, ref := range refs {
		if !ref.Pending() {
			urls[i] = ref.URL
			continue
		}
		file := ref.File
		g.Go(func() error {
			key := UploadKey(uid, file.Filename)
			url, err := s.Blobs.Put(gctx, key, file.ContentType, file.Data)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Int("slot", i).Msg("listing image upload failed")
				if abort {
					return fmt.Errorf("%w: %s: %v", ErrUploadFailed, file.Filename, err)
				}
				slotWarnings[i] = fmt.Sprintf("Image %s could not be uploaded.", file.Filename)
				return nil
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var warnings []string
	for _, w := range slotWarnings {
		if w != "" {
			warnings = append(warnings, w)
		}
	}
	return urls, warnings, nil
}

// UploadKey is unique per user, file name and upload. Characters other than letters, digits,
// '.', '_' and '-' become '_' so the key is a plain URL path segment for every blob backend.
func UploadKey(uid, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "image"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
	return fmt.Sprintf("%s-%s-%s", uid, name, uuid.NewString())
}

// buildListing coerces the validated form into a listing. Owner, id and timestamp are left to the caller.
func buildListing(f Form, images []string) (*domain.Listing, error) {
	year, err := strconv.Atoi(strings.TrimSpace(f.Year))
	if err != nil {
		return nil, err
	}
	mileage, _ := parseNumber(f.Mileage)
	regular, _ := parseNumber(f.RegularPrice)
	discounted := 0.0
	if f.Offer {
		discounted, _ = parseNumber(f.DiscountedPrice)
	}
	pricing, err := domain.NewPricing(regular, f.Offer, discounted)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{FieldDiscountedPrice: err.Error()}}
	}
	return &domain.Listing{
		Category:     domain.Category(f.Type),
		Name:         strings.TrimSpace(f.Name),
		Manufacturer: strings.TrimSpace(f.Manufacturer),
		Model:        strings.TrimSpace(f.Model),
		Year:         year,
		Mileage:      mileage,
		FuelType:     domain.FuelType(f.FuelType),
		Transmission: domain.Transmission(f.Transmission),
		Description:  strings.TrimSpace(f.Description),
		Pricing:      pricing,
		Images:       images,
	}, nil
}

// Uploaded images are not removed when the document write fails.
func logOrphans(cause error, refs []ImageRef, urls []string) {
	var orphans []string
	for i, ref := range refs {
		if ref.Pending() && urls[i] != "" {
			orphans = append(orphans, urls[i])
		}
	}
	if len(orphans) > 0 {
		log.Warn().Err(cause).Strs("urls", orphans).Msg("listing write failed, uploaded images orphaned")
	}
}
