package view

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/gutendex"
	"github.com/piligrim/bookshelf/internal/logger"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

// Params are the addressing parameters of the catalog page
type Params struct {
	Search string
	Genre  string
	Cursor string
	Page   int
}

// ListState is a consistent copy of what the catalog page shows
type ListState struct {
	Status        Status
	Cards         []Card
	Genres        []string
	Search        string
	Genre         string
	Page          int
	Next          string
	Previous      string
	Total         int
	WishlistCount int
}

// HasNext reports whether a following page exists
func (s ListState) HasNext() bool { return s.Next != "" }

// HasPrevious reports whether a preceding page exists
func (s ListState) HasPrevious() bool { return s.Previous != "" }

// load is one catalog request together with the state it produces
type load struct {
	ctx    context.Context
	seq    uint64
	query  gutendex.Query
	cursor string
	search string
	genre  string
	page   int
}

// ListView browses the catalog: search, genre filter and pagination.
// At most one request is outstanding at a time; a load requested meanwhile
// waits as the single pending load and the newest one wins.
type ListView struct {
	catalog  Catalog
	store    *wishlist.Store
	opts     Options
	debounce *Debouncer

	mu       sync.Mutex
	seq      uint64
	busy     bool
	idle     chan struct{}
	pending  *load
	status   Status
	books    []book.Book
	genres   []string
	search   string
	genre    string
	page     int
	next     string
	previous string
	total    int
}

// NewListView creates an idle list view
func NewListView(catalog Catalog, store *wishlist.Store, opts Options) *ListView {
	opts = opts.withDefaults()
	idle := make(chan struct{})
	close(idle)
	return &ListView{
		catalog:  catalog,
		store:    store,
		opts:     opts,
		debounce: NewDebouncer(opts.Debounce),
		idle:     idle,
		page:     1,
	}
}

// Mount performs the initial load from the addressing parameters.
// A search term takes precedence over a genre.
func (v *ListView) Mount(ctx context.Context, p Params) {
	search := normalizeSearch(p.Search)
	genre := strings.TrimSpace(p.Genre)
	if search != "" {
		genre = ""
	}
	page := p.Page
	if page < 1 || p.Cursor == "" {
		page = 1
	}
	v.request(ctx, newLoad(search, genre, p.Cursor, page))
}

// InputSearch records typed text; only the last value within the quiet
// window is searched for
func (v *ListView) InputSearch(text string) {
	v.debounce.Trigger(func() {
		v.SubmitSearch(context.Background(), text)
	})
}

// SubmitSearch searches immediately. Empty text lists the whole catalog.
func (v *ListView) SubmitSearch(ctx context.Context, text string) {
	v.request(ctx, newLoad(normalizeSearch(text), "", "", 1))
}

// SelectGenre filters by a subject or bookshelf; empty clears the filter
func (v *ListView) SelectGenre(ctx context.Context, genre string) {
	v.request(ctx, newLoad("", strings.TrimSpace(genre), "", 1))
}

// NextPage loads the following page, if there is one
func (v *ListView) NextPage(ctx context.Context) {
	v.mu.Lock()
	cursor, search, genre, page := v.next, v.search, v.genre, v.page
	v.mu.Unlock()
	if cursor == "" {
		return
	}
	v.request(ctx, newLoad(search, genre, cursor, page+1))
}

// PrevPage loads the preceding page, if there is one
func (v *ListView) PrevPage(ctx context.Context) {
	v.mu.Lock()
	cursor, search, genre, page := v.previous, v.search, v.genre, v.page
	v.mu.Unlock()
	if cursor == "" {
		return
	}
	if page <= 1 {
		page = 2
	}
	v.request(ctx, newLoad(search, genre, cursor, page-1))
}

// ClickLike toggles a book in the wishlist without touching the network
func (v *ListView) ClickLike(id int) (bool, int, error) {
	liked, err := v.store.Toggle(id)
	return liked, v.store.Count(), err
}

// Snapshot returns the current page state
func (v *ListView) Snapshot() ListState {
	v.mu.Lock()
	defer v.mu.Unlock()

	cards := make([]Card, 0, len(v.books))
	for _, b := range v.books {
		cards = append(cards, NewCard(b, v.store.Contains(b.ID), v.opts.Placeholder))
	}
	return ListState{
		Status:        v.status,
		Cards:         cards,
		Genres:        append([]string(nil), v.genres...),
		Search:        v.search,
		Genre:         v.genre,
		Page:          v.page,
		Next:          v.next,
		Previous:      v.previous,
		Total:         v.total,
		WishlistCount: v.store.Count(),
	}
}

// Wait blocks until no input is waiting out its quiet window and no load
// is outstanding or pending
func (v *ListView) Wait(ctx context.Context) error {
	for {
		select {
		case <-v.debounce.Done():
		case <-ctx.Done():
			return ctx.Err()
		}

		v.mu.Lock()
		busy, idle := v.busy, v.idle
		v.mu.Unlock()
		if !busy {
			return nil
		}

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels scheduled input
func (v *ListView) Close() {
	v.debounce.Stop()
}

func newLoad(search, genre, cursor string, page int) load {
	q := gutendex.All()
	switch {
	case search != "":
		q = gutendex.Search(search)
	case genre != "":
		q = gutendex.Topic(genre)
	}
	return load{query: q, cursor: cursor, search: search, genre: genre, page: page}
}

// request starts l, or parks it as the pending load when one is outstanding
func (v *ListView) request(ctx context.Context, l load) {
	v.mu.Lock()
	v.seq++
	l.seq = v.seq
	l.ctx = ctx
	v.status = StatusLoading
	v.search, v.genre, v.page = l.search, l.genre, l.page

	if v.busy {
		v.pending = &l
		v.mu.Unlock()
		return
	}
	v.busy = true
	v.idle = make(chan struct{})
	v.mu.Unlock()

	go v.run(l)
}

func (v *ListView) run(l load) {
	for {
		batch, err := v.catalog.Fetch(l.ctx, l.query, l.cursor)

		v.mu.Lock()
		if l.seq == v.seq {
			v.apply(l, batch, err)
		}
		if v.pending == nil {
			v.busy = false
			close(v.idle)
			v.mu.Unlock()
			return
		}
		l = *v.pending
		v.pending = nil
		v.mu.Unlock()
	}
}

// apply writes the result of the newest load. Callers hold mu.
func (v *ListView) apply(l load, batch *book.Batch, err error) {
	if err != nil {
		logger.For(l.ctx).WithError(err).WithFields(logrus.Fields{
			"kind":  l.query.Kind(),
			"query": l.search + l.genre,
		}).Warn("catalog.load.failed")
		v.status = StatusFailed
		v.books, v.genres = nil, nil
		v.next, v.previous, v.total = "", "", 0
		return
	}

	v.books = batch.Books
	v.genres = book.Vocabulary(batch.Books)
	v.next, v.previous, v.total = batch.Next, batch.Previous, batch.Count
	if len(batch.Books) == 0 {
		v.status = StatusEmpty
		return
	}
	v.status = StatusLoaded
}

func normalizeSearch(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
