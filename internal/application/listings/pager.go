package listings

import (
	"context"

	"wheelhub-backend/internal/domain"
)

// PagerState is the part of a Pager that survives between requests.
type PagerState struct {
	Filter  Filter        `json:"filter"`
	Cursor  domain.Cursor `json:"cursor"`
	Done    bool          `json:"done"`
	Started bool          `json:"started"`
}

// Pager tracks the cursor of one browse view and accumulates its pages.
// It is not safe for concurrent use.
type Pager struct {
	store      Store
	firstLimit int
	nextLimit  int

	state PagerState
	items []domain.Listing
}

func NewPager(store Store, firstLimit, nextLimit int) *Pager {
	return &Pager{store: store, firstLimit: firstLimit, nextLimit: nextLimit}
}

// RestorePager rebuilds a pager from saved state. Accumulated items are not restored.
func RestorePager(store Store, firstLimit, nextLimit int, state PagerState) *Pager {
	p := NewPager(store, firstLimit, nextLimit)
	p.state = state
	return p
}

// FetchFirstPage drops any previous cursor and items and loads the first page for f.
// On error the pager is left as it was.
func (p *Pager) FetchFirstPage(ctx context.Context, f Filter) ([]domain.Listing, error) {
	page, err := p.store.Query(ctx, BuildQuery(f, p.firstLimit))
	if err != nil {
		return nil, err
	}
	p.state = PagerState{
		Filter:  f,
		Cursor:  page.Next,
		Done:    endOfData(page, p.firstLimit),
		Started: true,
	}
	p.items = append([]domain.Listing(nil), page.Items...)
	return page.Items, nil
}

// FetchNextPage loads the page after the cursor and appends it. It returns nil, nil
// when there is nothing more to fetch. On error the cursor is not advanced.
func (p *Pager) FetchNextPage(ctx context.Context) ([]domain.Listing, error) {
	if !p.HasMore() {
		return nil, nil
	}
	q := BuildQuery(p.state.Filter, p.nextLimit)
	q.StartAfter = p.state.Cursor
	page, err := p.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	p.items = append(p.items, page.Items...)
	if page.Next != "" {
		p.state.Cursor = page.Next
	}
	p.state.Done = endOfData(page, p.nextLimit)
	return page.Items, nil
}

func (p *Pager) HasMore() bool {
	return p.state.Started && !p.state.Done && p.state.Cursor != ""
}

func (p *Pager) Items() []domain.Listing { return p.items }

func (p *Pager) Filter() Filter { return p.state.Filter }

func (p *Pager) State() PagerState { return p.state }

// A short page is the end of data. Limit 0 means unbounded, so any page is the last.
func endOfData(page domain.Page, limit int) bool {
	if limit <= 0 {
		return true
	}
	return len(page.Items) < limit || page.Next == ""
}
