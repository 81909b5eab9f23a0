package opds

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/gutendex"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

type stubCatalog struct {
	batch   *book.Batch
	err     error
	queries []gutendex.Query
	cursors []string
}

func (s *stubCatalog) Fetch(ctx context.Context, q gutendex.Query, cursor string) (*book.Batch, error) {
	s.queries = append(s.queries, q)
	s.cursors = append(s.cursors, cursor)
	return s.batch, s.err
}

func (s *stubCatalog) FetchAll(ctx context.Context, q gutendex.Query, limit int) (*book.Batch, error) {
	return s.Fetch(ctx, q, "")
}

func sampleBatch() *book.Batch {
	return &book.Batch{
		Count: 2,
		Next:  "bmV4dA",
		Books: []book.Book{
			{
				ID:          84,
				Title:       "Frankenstein; Or, The Modern Prometheus",
				Authors:     []book.Person{{Name: "Shelley, Mary Wollstonecraft"}},
				Subjects:    []string{"Gothic fiction", "Science fiction"},
				Bookshelves: []string{"Gothic Fiction"},
				Languages:   []string{"en"},
				MediaType:   "Text",
				Formats: map[string]string{
					"application/epub+zip": "https://www.gutenberg.org/ebooks/84.epub3.images",
					book.FormatJPEG:        "https://www.gutenberg.org/cache/epub/84/pg84.cover.medium.jpg",
				},
			},
			{
				ID:          1342,
				Title:       "Pride and Prejudice",
				Authors:     []book.Person{{Name: "Austen, Jane"}},
				Translators: []book.Person{{Name: "Nobody"}},
				Subjects:    []string{"Love stories"},
			},
		},
	}
}

func newTestHandler(catalog Catalog, store *wishlist.Store) *Handler {
	labels := book.Labels{"science fiction": "Sci-Fi"}
	builder := NewBuilder("http://books.test/", "Bookshelf", labels)
	return NewHandler(catalog, func(*http.Request) *wishlist.Store { return store }, 100, builder)
}

func quietStore(data string) *wishlist.Store {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return wishlist.Open(wishlist.NewMemoryPersistence([]byte(data)), log)
}

func decodeFeed(t *testing.T, rec *httptest.ResponseRecorder) Feed {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/atom+xml")

	var feed Feed
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &feed))
	return feed
}

func findLink(links []Link, rel string) (Link, bool) {
	for _, l := range links {
		if l.Rel == rel {
			return l, true
		}
	}
	return Link{}, false
}

func TestBooksFeed(t *testing.T) {
	catalog := &stubCatalog{batch: sampleBatch()}
	h := newTestHandler(catalog, quietStore(""))

	rec := httptest.NewRecorder()
	h.Books(rec, httptest.NewRequest(http.MethodGet, "/opds/books?topic=gothic+fiction", nil))
	feed := decodeFeed(t, rec)

	assert.Equal(t, []gutendex.Query{gutendex.Topic("gothic fiction")}, catalog.queries)
	assert.Equal(t, "Gothic Fiction", feed.Title)
	require.Len(t, feed.Entries, 2)

	next, ok := findLink(feed.Links, RelNext)
	require.True(t, ok)
	u, err := url.Parse(next.Href)
	require.NoError(t, err)
	assert.Equal(t, "bmV4dA", u.Query().Get("cursor"))
	assert.Equal(t, "gothic fiction", u.Query().Get("topic"))
	_, hasPrev := findLink(feed.Links, RelPrev)
	assert.False(t, hasPrev)

	frankenstein := feed.Entries[0]
	assert.Equal(t, "urn:gutenberg:84", frankenstein.ID)
	require.Len(t, frankenstein.Authors, 1)
	assert.Equal(t, "Shelley, Mary Wollstonecraft", frankenstein.Authors[0].Name)
	require.Len(t, frankenstein.Categories, 2)
	assert.Equal(t, "Sci-Fi", frankenstein.Categories[1].Label)

	acquisition, ok := findLink(frankenstein.Links, RelAcquisitionOpen)
	require.True(t, ok)
	assert.Equal(t, "application/epub+zip", acquisition.Type)
	image, ok := findLink(frankenstein.Links, RelImage)
	require.True(t, ok)
	assert.Equal(t, book.FormatJPEG, image.Type)
	alternate, ok := findLink(frankenstein.Links, RelAlternate)
	require.True(t, ok)
	assert.Equal(t, "http://books.test/book?id=84", alternate.Href)
}

func TestBooksFeedSearchWinsOverTopic(t *testing.T) {
	catalog := &stubCatalog{batch: sampleBatch()}
	h := newTestHandler(catalog, quietStore(""))

	rec := httptest.NewRecorder()
	h.Books(rec, httptest.NewRequest(http.MethodGet, "/opds/books?search=Pride&topic=love+stories&cursor=abc", nil))
	feed := decodeFeed(t, rec)

	assert.Equal(t, []gutendex.Query{gutendex.Search("pride")}, catalog.queries)
	assert.Equal(t, []string{"abc"}, catalog.cursors)
	assert.Equal(t, "Search: pride", feed.Title)
}

func TestBooksFeedErrors(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{
		{gutendex.ErrBadCursor, http.StatusBadRequest},
		{gutendex.ErrNetwork, http.StatusBadGateway},
	} {
		h := newTestHandler(&stubCatalog{err: tc.err}, quietStore(""))
		rec := httptest.NewRecorder()
		h.Books(rec, httptest.NewRequest(http.MethodGet, "/opds/books", nil))
		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestRootFeedListsGenres(t *testing.T) {
	h := newTestHandler(&stubCatalog{batch: sampleBatch()}, quietStore(""))

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/opds", nil))
	feed := decodeFeed(t, rec)

	require.Len(t, feed.Entries, 5)
	assert.Equal(t, "Popular books", feed.Entries[0].Title)
	assert.Equal(t, "Wishlist", feed.Entries[1].Title)
	assert.Equal(t, "Gothic Fiction", feed.Entries[2].Title)
	assert.Equal(t, "Love Stories", feed.Entries[3].Title)
	assert.Equal(t, "Sci-Fi", feed.Entries[4].Title)

	search, ok := findLink(feed.Links, RelSearch)
	require.True(t, ok)
	assert.Equal(t, "http://books.test/opds/opensearch.xml", search.Href)
}

func TestRootFeedSurvivesCatalogFailure(t *testing.T) {
	h := newTestHandler(&stubCatalog{err: gutendex.ErrNetwork}, quietStore(""))

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/opds", nil))
	feed := decodeFeed(t, rec)
	assert.Len(t, feed.Entries, 2)
}

func TestWishlistFeed(t *testing.T) {
	empty := &stubCatalog{batch: sampleBatch()}
	h := newTestHandler(empty, quietStore(""))
	rec := httptest.NewRecorder()
	h.Wishlist(rec, httptest.NewRequest(http.MethodGet, "/opds/wishlist", nil))
	assert.Empty(t, decodeFeed(t, rec).Entries)
	assert.Empty(t, empty.queries, "empty wishlist makes no request")

	catalog := &stubCatalog{batch: sampleBatch()}
	h = newTestHandler(catalog, quietStore(`[84, 1342]`))
	rec = httptest.NewRecorder()
	h.Wishlist(rec, httptest.NewRequest(http.MethodGet, "/opds/wishlist", nil))
	feed := decodeFeed(t, rec)

	assert.Equal(t, []gutendex.Query{gutendex.IDs(84, 1342)}, catalog.queries)
	assert.Len(t, feed.Entries, 2)
	_, hasNext := findLink(feed.Links, RelNext)
	assert.False(t, hasNext)
}

func TestOpenSearchDescription(t *testing.T) {
	h := newTestHandler(&stubCatalog{}, quietStore(""))

	rec := httptest.NewRecorder()
	h.OpenSearch(rec, httptest.NewRequest(http.MethodGet, "/opds/opensearch.xml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), TypeSearch)

	var desc OpenSearchDescription
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &desc))
	assert.Equal(t, "Bookshelf", desc.ShortName)
	assert.Equal(t, "http://books.test/opds/books?search={searchTerms}", desc.URL.Template)
}
