package view

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/gutendex"
	"github.com/piligrim/bookshelf/internal/logger"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

// ErrNothingLoaded is returned by a like toggle on a page without a book
var ErrNothingLoaded = errors.New("no book loaded")

// DetailState is what the detail page shows
type DetailState struct {
	Status        Status
	Book          *book.Book
	CoverURL      string
	Formats       []book.FormatLink
	Liked         bool
	WishlistCount int
}

// DetailView shows the full metadata of one book
type DetailView struct {
	catalog Catalog
	store   *wishlist.Store
	opts    Options

	mu     sync.Mutex
	status Status
	book   *book.Book
}

// NewDetailView creates an idle detail view
func NewDetailView(catalog Catalog, store *wishlist.Store, opts Options) *DetailView {
	return &DetailView{catalog: catalog, store: store, opts: opts.withDefaults()}
}

// Load resolves the id addressing parameter. Missing, malformed and
// unknown identifiers end in StatusEmpty.
func (v *DetailView) Load(ctx context.Context, rawID string) {
	v.set(StatusLoading, nil)

	id, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil || id <= 0 {
		logger.For(ctx).WithField("id", rawID).Debug("detail.invalid_id")
		v.set(StatusEmpty, nil)
		return
	}

	b, err := v.catalog.Get(ctx, id)
	switch {
	case errors.Is(err, gutendex.ErrNotFound):
		logger.For(ctx).WithField("id", id).Info("detail.not_found")
		v.set(StatusEmpty, nil)
	case err != nil:
		logger.For(ctx).WithError(err).WithField("id", id).Warn("detail.load.failed")
		v.set(StatusFailed, nil)
	default:
		v.set(StatusLoaded, b)
	}
}

// ClickLike toggles the shown book in the wishlist
func (v *DetailView) ClickLike() (bool, int, error) {
	v.mu.Lock()
	b := v.book
	v.mu.Unlock()
	if b == nil {
		return false, v.store.Count(), ErrNothingLoaded
	}
	liked, err := v.store.Toggle(b.ID)
	return liked, v.store.Count(), err
}

// Snapshot returns the current page state
func (v *DetailView) Snapshot() DetailState {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := DetailState{Status: v.status, WishlistCount: v.store.Count()}
	if v.book != nil {
		b := *v.book
		st.Book = &b
		st.CoverURL = b.CoverURL(v.opts.Placeholder)
		st.Formats = b.FormatLinks()
		st.Liked = v.store.Contains(b.ID)
	}
	return st
}

func (v *DetailView) set(status Status, b *book.Book) {
	v.mu.Lock()
	v.status, v.book = status, b
	v.mu.Unlock()
}
