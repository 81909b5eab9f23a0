package opds

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"strings"

	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/gutendex"
	"github.com/piligrim/bookshelf/internal/logger"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

// Catalog is the part of the remote client the feeds read from
type Catalog interface {
	Fetch(ctx context.Context, q gutendex.Query, cursor string) (*book.Batch, error)
	FetchAll(ctx context.Context, q gutendex.Query, limit int) (*book.Batch, error)
}

// WishlistFunc returns the wishlist of the visitor making r
type WishlistFunc func(r *http.Request) *wishlist.Store

// Handler handles OPDS requests
type Handler struct {
	catalog    Catalog
	wishlist   WishlistFunc
	fetchLimit int
	builder    *Builder
}

// NewHandler creates a new OPDS handler
func NewHandler(catalog Catalog, wishlist WishlistFunc, fetchLimit int, builder *Builder) *Handler {
	return &Handler{
		catalog:    catalog,
		wishlist:   wishlist,
		fetchLimit: fetchLimit,
		builder:    builder,
	}
}

// Root serves the navigation root with one subsection per genre of the
// first catalog page
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	var genres []string
	batch, err := h.catalog.Fetch(r.Context(), gutendex.All(), "")
	if err != nil {
		logger.For(r.Context()).WithError(err).Warn("opds.root.genres_failed")
	} else {
		genres = book.Vocabulary(batch.Books)
	}

	h.writeFeed(w, h.builder.BuildRootFeed(genres))
}

// Books serves an acquisition feed for a search term, a topic or the whole catalog
func (h *Handler) Books(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	search := strings.ToLower(strings.TrimSpace(params.Get("search")))
	topic := strings.TrimSpace(params.Get("topic"))

	q, title := gutendex.All(), "Popular books"
	switch {
	case search != "":
		q, title = gutendex.Search(search), "Search: "+search
		params.Del("topic")
	case topic != "":
		q, title = gutendex.Topic(topic), h.builder.labels.Label(topic)
	}

	batch, err := h.catalog.Fetch(r.Context(), q, params.Get("cursor"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeFeed(w, h.builder.BuildBooksFeed(batch, title, "/opds/books", params))
}

// Wishlist serves the visitor's liked books
func (h *Handler) Wishlist(w http.ResponseWriter, r *http.Request) {
	ids := h.wishlist(r).All()

	batch := &book.Batch{}
	if len(ids) > 0 {
		resolved, err := h.catalog.FetchAll(r.Context(), gutendex.IDs(ids...), h.fetchLimit)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		batch.Books = resolved.Books
		batch.Count = resolved.Count
	}

	h.writeFeed(w, h.builder.BuildBooksFeed(batch, "Wishlist", "/opds/wishlist", nil))
}

// OpenSearch serves the OpenSearch description
func (h *Handler) OpenSearch(w http.ResponseWriter, r *http.Request) {
	h.writeXML(w, TypeSearch, h.builder.BuildOpenSearch())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger.For(r.Context()).WithError(err).Warn("opds.feed.failed")
	if errors.Is(err, gutendex.ErrBadCursor) {
		http.Error(w, "invalid cursor", http.StatusBadRequest)
		return
	}
	http.Error(w, "catalog unavailable", http.StatusBadGateway)
}

// writeFeed writes OPDS feed as XML
func (h *Handler) writeFeed(w http.ResponseWriter, feed *Feed) {
	w.Header().Set("Cache-Control", "private, max-age=60")
	h.writeXML(w, "application/atom+xml", feed)
}

func (h *Handler) writeXML(w http.ResponseWriter, contentType string, v any) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(v); err != nil {
		http.Error(w, "Failed to encode feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	buf.WriteTo(w)
}
