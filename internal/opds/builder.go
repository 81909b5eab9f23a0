package opds

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/piligrim/bookshelf/internal/book"
)

// Builder creates OPDS feeds
type Builder struct {
	baseURL      string
	catalogTitle string
	labels       book.Labels
}

// NewBuilder creates a new OPDS builder
func NewBuilder(baseURL, catalogTitle string, labels book.Labels) *Builder {
	return &Builder{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		catalogTitle: catalogTitle,
		labels:       labels,
	}
}

// BuildRootFeed creates the root OPDS catalog
func (b *Builder) BuildRootFeed(genres []string) *Feed {
	now := time.Now()

	feed := b.newFeed(b.baseURL+"/opds", b.catalogTitle, TypeNavigation, now)
	feed.Icon = b.baseURL + "/static/default-cover.svg"
	feed.Links = append(feed.Links, Link{
		Rel:  RelSearch,
		Type: TypeSearch,
		Href: b.baseURL + "/opds/opensearch.xml",
	})

	feed.Entries = append(feed.Entries,
		b.subsection("/opds/books", "Popular books", "The whole catalog by download count", now),
		b.subsection("/opds/wishlist", "Wishlist", "Books you liked", now),
	)

	for _, genre := range genres {
		path := "/opds/books?" + url.Values{"topic": {genre}}.Encode()
		label := b.labels.Label(genre)
		feed.Entries = append(feed.Entries, b.subsection(path, label, "Books about "+label, now))
	}

	return feed
}

// BuildBooksFeed creates an acquisition feed for one batch. params are the
// query parameters of the feed itself; continuation links replace the cursor.
func (b *Builder) BuildBooksFeed(batch *book.Batch, title, path string, params url.Values) *Feed {
	now := time.Now()
	feed := b.newFeed(b.pageURL(path, params, params.Get("cursor")), title, TypeAcquisition, now)

	if batch.Previous != "" {
		feed.Links = append(feed.Links, Link{
			Rel:  RelPrev,
			Type: TypeAcquisition,
			Href: b.pageURL(path, params, batch.Previous),
		})
	}
	if batch.Next != "" {
		feed.Links = append(feed.Links, Link{
			Rel:  RelNext,
			Type: TypeAcquisition,
			Href: b.pageURL(path, params, batch.Next),
		})
	}

	for _, bk := range batch.Books {
		feed.Entries = append(feed.Entries, b.bookToEntry(bk, now))
	}

	return feed
}

// BuildOpenSearch describes the search template of the books feed
func (b *Builder) BuildOpenSearch() *OpenSearchDescription {
	return &OpenSearchDescription{
		Xmlns:       nsOpenSearch,
		ShortName:   b.catalogTitle,
		Description: "Search books in " + b.catalogTitle,
		Tags:        "books gutenberg catalog",
		URL: OpenSearchURL{
			Type:     TypeAcquisition,
			Template: b.baseURL + "/opds/books?search={searchTerms}",
		},
		Query:          OpenSearchTerm{Role: "example", SearchTerms: "frankenstein"},
		Language:       "en-us",
		InputEncoding:  "UTF-8",
		OutputEncoding: "UTF-8",
	}
}

func (b *Builder) newFeed(id, title, kind string, now time.Time) *Feed {
	return &Feed{
		Xmlns:     nsAtom,
		XmlnsDC:   nsDC,
		XmlnsOPDS: nsOPDS,

		ID:      id,
		Title:   title,
		Updated: now,

		Author: &Person{
			Name: b.catalogTitle,
			URI:  b.baseURL,
		},

		Links: []Link{
			{
				Rel:  RelSelf,
				Type: kind,
				Href: id,
			},
			{
				Rel:  RelStart,
				Type: TypeNavigation,
				Href: b.baseURL + "/opds",
			},
			{
				Rel:  RelUp,
				Type: TypeNavigation,
				Href: b.baseURL + "/opds",
			},
		},
	}
}

func (b *Builder) subsection(path, title, summary string, now time.Time) Entry {
	href := b.baseURL + path
	return Entry{
		ID:      href,
		Title:   title,
		Updated: now,
		Summary: summary,
		Links: []Link{
			{
				Rel:  RelSubsection,
				Type: TypeAcquisition,
				Href: href,
			},
		},
	}
}

// bookToEntry converts a book to an OPDS entry
func (b *Builder) bookToEntry(bk book.Book, now time.Time) Entry {
	id := strconv.Itoa(bk.ID)
	entry := Entry{
		ID:         "urn:gutenberg:" + id,
		Title:      bk.Title,
		Updated:    now,
		Languages:  bk.Languages,
		Identifier: id,
		Rights:     bk.CopyrightLabel(),
	}

	for _, author := range bk.Authors {
		entry.Authors = append(entry.Authors, Person{Name: author.Name})
	}
	for _, translator := range bk.Translators {
		entry.Contributors = append(entry.Contributors, Person{Name: translator.Name})
	}

	for _, subject := range bk.Subjects {
		entry.Categories = append(entry.Categories, Category{
			Term:  strings.ToLower(subject),
			Label: b.labels.Label(subject),
		})
	}

	entry.Links = append(entry.Links, Link{
		Rel:  RelAlternate,
		Type: TypeHTML,
		Href: b.baseURL + "/book?id=" + id,
	})

	for _, format := range bk.FormatLinks() {
		if format.Label == book.FormatJPEG {
			entry.Links = append(entry.Links,
				Link{Rel: RelImage, Type: format.Label, Href: format.URL},
				Link{Rel: RelThumbnail, Type: format.Label, Href: format.URL},
			)
			continue
		}
		entry.Links = append(entry.Links, Link{
			Rel:  RelAcquisitionOpen,
			Type: format.Label,
			Href: format.URL,
		})
	}

	var details []string
	if len(bk.Bookshelves) > 0 {
		details = append(details, "Bookshelves: "+strings.Join(bk.Bookshelves, ", "))
	}
	details = append(details, "Subjects: "+bk.SubjectSummary())
	details = append(details, "Downloads: "+bk.DownloadLabel())
	if bk.MediaType != "" {
		details = append(details, "Media type: "+bk.MediaType)
	}

	entry.Content = &Content{
		Type: "text",
		Text: strings.Join(details, "\n"),
	}

	return entry
}

// pageURL builds the feed URL for params with cursor set or removed
func (b *Builder) pageURL(path string, params url.Values, cursor string) string {
	q := url.Values{}
	for k, v := range params {
		if k != "cursor" {
			q[k] = v
		}
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	u := b.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}
