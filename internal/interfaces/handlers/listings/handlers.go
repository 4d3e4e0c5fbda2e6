package listings

import (
	"encoding/json"
	"errors"

	listsvc "wheelhub-backend/internal/application/listings"
	"wheelhub-backend/internal/domain"
	"wheelhub-backend/internal/middleware"
	"wheelhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// MaxSearchLimit caps the limit query parameter of /listings/search.
const MaxSearchLimit = 50

const browseKeyPrefix = "browse:"

type Handlers struct {
	Service *listsvc.Service
	Config  middleware.SessionConfig
}

// Search GET /api/v1/listings/search?type=&manufacturer=&minPrice=&maxPrice=&offer=&sortBy=&cursor=&limit=
func (h *Handlers) Search(c *fiber.Ctx) error {
	f, err := listsvc.ParseFilter(c.Queries())
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	limit := c.QueryInt("limit", listsvc.FirstPageLimit)
	if limit < 1 || limit > MaxSearchLimit {
		return response.Error(c, "limit must be between 1 and 50", fiber.StatusBadRequest, nil)
	}

	page, err := h.Service.Search(c.Context(), f, limit, domain.Cursor(c.Query("cursor")))
	if err != nil {
		return fetchError(c, err)
	}
	hasMore := page.Next != "" && len(page.Items) == limit
	next := page.Next
	if !hasMore {
		next = ""
	}
	return response.Success(c, "Listings found", fiber.Map{"listings": page.Items},
		response.PageMeta{NextCursor: string(next), HasMore: hasMore, Count: len(page.Items)})
}

// Home GET /api/v1/listings/home
func (h *Handlers) Home(c *fiber.Ctx) error {
	home, err := h.Service.Home(c.Context())
	if err != nil {
		return fetchError(c, err)
	}
	return response.Success(c, "Home listings", home, nil)
}

// Category GET /api/v1/listings/category/:category: first page, newest first.
func (h *Handlers) Category(c *fiber.Ctx) error {
	cat := domain.Category(c.Params("category"))
	if !cat.Valid() {
		return response.Error(c, "Category must be rent or sale", fiber.StatusBadRequest, nil)
	}
	return h.firstPage(c, string(cat), listsvc.Filter{Category: cat})
}

// CategoryMore GET /api/v1/listings/category/:category/more
func (h *Handlers) CategoryMore(c *fiber.Ctx) error {
	cat := domain.Category(c.Params("category"))
	if !cat.Valid() {
		return response.Error(c, "Category must be rent or sale", fiber.StatusBadRequest, nil)
	}
	return h.nextPage(c, string(cat), listsvc.Filter{Category: cat})
}

// Offers GET /api/v1/listings/offers
func (h *Handlers) Offers(c *fiber.Ctx) error {
	return h.firstPage(c, "offers", listsvc.Filter{OffersOnly: true})
}

// OffersMore GET /api/v1/listings/offers/more
func (h *Handlers) OffersMore(c *fiber.Ctx) error {
	return h.nextPage(c, "offers", listsvc.Filter{OffersOnly: true})
}

// Get GET /api/v1/listings/:listing_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	l, err := h.Service.Get(c.Context(), c.Params("listing_id"))
	if err != nil {
		return submitError(c, err)
	}
	return response.Success(c, "Listing found", fiber.Map{"listing": l}, nil)
}

// Mine GET /api/v1/listings/mine
func (h *Handlers) Mine(c *fiber.Ctx) error {
	items, err := h.Service.Mine(c.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		if errors.Is(err, listsvc.ErrUnauthenticated) {
			return submitError(c, err)
		}
		return fetchError(c, err)
	}
	return response.Success(c, "Listings found", fiber.Map{"listings": items}, fiber.Map{"count": len(items)})
}

// Edit GET /api/v1/listings/:listing_id/edit: the listing, only for its owner.
func (h *Handlers) Edit(c *fiber.Ctx) error {
	l, err := h.Service.CheckOwner(c.Context(), middleware.CurrentIdentity(c), c.Params("listing_id"))
	if err != nil {
		return submitError(c, err)
	}
	return response.Success(c, "Listing found", fiber.Map{"listing": l}, nil)
}

// Create POST /api/v1/listings (JSON or multipart/form-data)
func (h *Handlers) Create(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.Create(c.Context(), middleware.CurrentIdentity(c), form)
	if err != nil {
		return submitError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", res, nil)
}

// Update PUT /api/v1/listings/:listing_id (JSON or multipart/form-data)
func (h *Handlers) Update(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.Update(c.Context(), middleware.CurrentIdentity(c), c.Params("listing_id"), form)
	if err != nil {
		return submitError(c, err)
	}
	return response.Success(c, "Listing updated successfully", res, nil)
}

// Delete DELETE /api/v1/listings/:listing_id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	if err := h.Service.Delete(c.Context(), middleware.CurrentIdentity(c), c.Params("listing_id")); err != nil {
		return submitError(c, err)
	}
	return response.Success(c, "Listing deleted", nil, nil)
}

func (h *Handlers) firstPage(c *fiber.Ctx, view string, f listsvc.Filter) error {
	p := h.Service.Browse()
	items, err := p.FetchFirstPage(c.Context(), f)
	if err != nil {
		return fetchError(c, err)
	}
	h.saveBrowse(c, view, p)
	return response.Success(c, "Listings found", fiber.Map{"listings": items},
		response.BrowseMeta{HasMore: p.HasMore(), Count: len(items)})
}

// nextPage continues the view saved in the session. Without saved state it serves the first page.
func (h *Handlers) nextPage(c *fiber.Ctx, view string, f listsvc.Filter) error {
	state, ok := loadBrowse(c, view)
	if !ok || !state.Started || state.Filter != f {
		return h.firstPage(c, view, f)
	}
	p := h.Service.ResumeBrowse(state)
	items, err := p.FetchNextPage(c.Context())
	if err != nil {
		return fetchError(c, err)
	}
	if items == nil {
		items = []domain.Listing{}
	}
	h.saveBrowse(c, view, p)
	return response.Success(c, "Listings found", fiber.Map{"listings": items},
		response.BrowseMeta{HasMore: p.HasMore(), Count: len(items)})
}

func (h *Handlers) saveBrowse(c *fiber.Ctx, view string, p *listsvc.Pager) {
	if middleware.GetSessionID(c) == "" {
		sid := middleware.RegenerateSessionID(c)
		cookie := middleware.SessionCookieConfig(h.Config)
		cookie.Value = "s:" + sid
		c.Cookie(&cookie)
	}
	b, err := json.Marshal(p.State())
	if err != nil {
		log.Error().Err(err).Str("view", view).Msg("listings: could not encode browse state")
		return
	}
	middleware.SetSessionValue(c, browseKeyPrefix+view, string(b))
}

func loadBrowse(c *fiber.Ctx, view string) (listsvc.PagerState, bool) {
	raw := middleware.SessionValue(c, browseKeyPrefix+view)
	if raw == "" {
		return listsvc.PagerState{}, false
	}
	var state listsvc.PagerState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return listsvc.PagerState{}, false
	}
	return state, true
}

// fetchError renders read failures. A failed fetch is retryable, so the client is told to reload.
func fetchError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCursor):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, listsvc.ErrInvalidFilter):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("listings: fetch failed")
	return response.Error(c, listsvc.ErrFetchListings.Error(), fiber.StatusInternalServerError, fiber.Map{"reload": true})
}

func submitError(c *fiber.Ctx, err error) error {
	var ve *listsvc.ValidationError
	switch {
	case errors.As(err, &ve):
		return response.Invalid(c, ve.Error(), ve.Fields)
	case errors.Is(err, listsvc.ErrUnauthenticated):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, listsvc.ErrForbidden):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrListingNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidPricing):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, listsvc.ErrUploadFailed):
		return response.Error(c, listsvc.ErrUploadFailed.Error(), fiber.StatusBadGateway, nil)
	case errors.Is(err, listsvc.ErrSaveListing):
		return response.Error(c, listsvc.ErrSaveListing.Error(), fiber.StatusInternalServerError, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("listings: unexpected error")
	return response.Internal(c)
}
