package view

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/gutendex"
	"github.com/piligrim/bookshelf/internal/logger"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

// WishlistState is what the wishlist page shows
type WishlistState struct {
	Status Status
	Cards  []Card
	Count  int
}

// WishlistView resolves the stored identifiers into cards
type WishlistView struct {
	catalog Catalog
	store   *wishlist.Store
	opts    Options

	mu      sync.Mutex
	status  Status
	records map[int]book.Book
}

// NewWishlistView creates an idle wishlist view
func NewWishlistView(catalog Catalog, store *wishlist.Store, opts Options) *WishlistView {
	return &WishlistView{catalog: catalog, store: store, opts: opts.withDefaults()}
}

// Load fetches exactly the stored books. An empty wishlist makes no request.
func (v *WishlistView) Load(ctx context.Context) {
	ids := v.store.All()
	if len(ids) == 0 {
		v.mu.Lock()
		v.status, v.records = StatusEmpty, nil
		v.mu.Unlock()
		return
	}

	v.mu.Lock()
	v.status = StatusLoading
	v.mu.Unlock()

	batch, err := v.catalog.FetchAll(ctx, gutendex.IDs(ids...), v.opts.FetchLimit)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		logger.For(ctx).WithError(err).WithField("ids", len(ids)).Warn("wishlist.resolve.failed")
		v.status, v.records = StatusFailed, nil
		return
	}

	v.records = make(map[int]book.Book, len(batch.Books))
	for _, b := range batch.Books {
		v.records[b.ID] = b
	}
	if missing := len(ids) - len(v.records); missing > 0 {
		logger.For(ctx).WithFields(logrus.Fields{
			"requested": len(ids),
			"missing":   missing,
		}).Debug("wishlist.resolve.partial")
	}
	v.refresh()
}

// ClickLike toggles id and re-renders from current membership, so an
// unliked book leaves the page at once
func (v *WishlistView) ClickLike(id int) (bool, int, error) {
	liked, err := v.store.Toggle(id)

	v.mu.Lock()
	if v.records != nil {
		v.refresh()
	}
	v.mu.Unlock()

	return liked, v.store.Count(), err
}

// Snapshot returns the current page state in wishlist order
func (v *WishlistView) Snapshot() WishlistState {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := WishlistState{Status: v.status, Count: v.store.Count()}
	for _, id := range v.store.All() {
		if b, ok := v.records[id]; ok {
			st.Cards = append(st.Cards, NewCard(b, true, v.opts.Placeholder))
		}
	}
	return st
}

// refresh recomputes the status from membership. Callers hold mu.
func (v *WishlistView) refresh() {
	for _, id := range v.store.All() {
		if _, ok := v.records[id]; ok {
			v.status = StatusLoaded
			return
		}
	}
	v.status = StatusEmpty
}
