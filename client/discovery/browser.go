package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitea.kood.tech/saathi/matchmaking/client/api"
)

// Lister fetches one page of profiles. *api.Client satisfies it.
type Lister interface {
	ListProfiles(ctx context.Context, q api.ProfileQuery) (*api.ProfilePage, error)
}

// Browser holds the active filters and the last page the store returned.
// Pagination state is only ever taken from the store's response.
type Browser struct {
	lister   Lister
	now      func() time.Time
	pageSize int
	logger   *zap.Logger

	mu      sync.Mutex
	filters Filters
	query   api.ProfileQuery
	page    *api.ProfilePage
}

type BrowserOption func(*Browser)

func WithClock(now func() time.Time) BrowserOption {
	return func(b *Browser) { b.now = now }
}

func WithPageSize(n int) BrowserOption {
	return func(b *Browser) { b.pageSize = n }
}

func WithLogger(l *zap.Logger) BrowserOption {
	return func(b *Browser) { b.logger = l }
}

func NewBrowser(l Lister, opts ...BrowserOption) *Browser {
	b := &Browser{lister: l, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Apply validates f and loads its first page. On failure the previous
// filters and page are kept.
func (b *Browser) Apply(ctx context.Context, f Filters) error {
	if err := f.Validate(); err != nil {
		return err
	}
	q := f.ToQuery(b.now(), 1)
	q.Limit = b.pageSize

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fetch(ctx, q); err != nil {
		return err
	}
	b.filters = f
	return nil
}

// Clear resets every filter and reloads the initial page.
func (b *Browser) Clear(ctx context.Context) error {
	return b.Apply(ctx, Filters{})
}

// SetSearch changes the free-text query. It never issues a request.
func (b *Browser) SetSearch(query string) {
	b.mu.Lock()
	b.filters.Search = query
	b.mu.Unlock()
}

// Next loads the following page when the store said there is one and no
// search is active. It reports whether a request was made.
func (b *Browser) Next(ctx context.Context) (bool, error) {
	return b.step(ctx, 1)
}

func (b *Browser) Prev(ctx context.Context) (bool, error) {
	return b.step(ctx, -1)
}

func (b *Browser) step(ctx context.Context, delta int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// a free-text search only narrows the current page
	if b.page == nil || strings.TrimSpace(b.filters.Search) != "" {
		return false, nil
	}
	pg := b.page.Pagination
	if (delta > 0 && !pg.HasNextPage) || (delta < 0 && !pg.HasPrevPage) {
		return false, nil
	}
	q := b.query
	q.Page = pg.CurrentPage + delta
	return true, b.fetch(ctx, q)
}

// fetch replaces the page with the store's answer for q. Caller holds mu.
func (b *Browser) fetch(ctx context.Context, q api.ProfileQuery) error {
	start := b.now()
	page, err := b.lister.ListProfiles(ctx, q)
	if err != nil {
		b.logger.Warn("profile listing failed", zap.Int("page", q.Page), zap.Error(err))
		return err
	}
	b.logger.Debug("profile page loaded",
		zap.Int("page", page.Pagination.CurrentPage),
		zap.Int("count", len(page.Profiles)),
		zap.Duration("took", b.now().Sub(start)))
	b.query = q
	b.page = page
	return nil
}

func (b *Browser) Filters() Filters {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filters
}

// Visible is the current page narrowed by the free-text query.
func (b *Browser) Visible() []api.Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil {
		return nil
	}
	return ApplySearch(b.page.Profiles, b.filters.Search)
}

// ShowPagination is false while a free-text query narrows the page.
func (b *Browser) ShowPagination() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page != nil && strings.TrimSpace(b.filters.Search) == ""
}

func (b *Browser) Pagination() api.Pagination {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil {
		return api.Pagination{}
	}
	return b.page.Pagination
}
