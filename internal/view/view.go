// Package view holds the page state machines behind the catalog, detail and
// wishlist pages. Views are plain structs driven through event methods so the
// HTTP layer and the tests exercise the same code.
package view

import (
	"context"
	"strconv"
	"time"

	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/gutendex"
)

// Status is the load state of a view
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ShowsEmpty reports whether the empty-state indicator should be visible
func (s Status) ShowsEmpty() bool {
	return s == StatusEmpty || s == StatusFailed
}

// Catalog is the part of the remote client the views depend on
type Catalog interface {
	Fetch(ctx context.Context, q gutendex.Query, cursor string) (*book.Batch, error)
	FetchAll(ctx context.Context, q gutendex.Query, limit int) (*book.Batch, error)
	Get(ctx context.Context, id int) (*book.Book, error)
}

// Options carries the settings shared by all views
type Options struct {
	// Placeholder is the cover shown for books without an image/jpeg format
	Placeholder string
	// Debounce is the quiet window for live search input
	Debounce time.Duration
	// FetchLimit caps how many records the wishlist page resolves
	FetchLimit int
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 300 * time.Millisecond
	}
	if o.FetchLimit <= 0 {
		o.FetchLimit = 256
	}
	return o
}

// Card is the summary rendering of one book, used by the list and wishlist pages
type Card struct {
	ID        int
	Title     string
	Subjects  string
	Authors   string
	Downloads string
	CoverURL  string
	Liked     bool
	DetailURL string
}

// NewCard renders b as a card
func NewCard(b book.Book, liked bool, placeholder string) Card {
	return Card{
		ID:        b.ID,
		Title:     b.Title,
		Subjects:  b.SubjectSummary(),
		Authors:   b.AuthorNames(),
		Downloads: b.DownloadLabel(),
		CoverURL:  b.CoverURL(placeholder),
		Liked:     liked,
		DetailURL: DetailURL(b.ID),
	}
}

// DetailURL is the address of the detail page for id
func DetailURL(id int) string {
	return "/book?id=" + strconv.Itoa(id)
}
