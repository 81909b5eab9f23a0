package book

import (
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FormatJPEG is the format label Gutendex uses for cover images.
const FormatJPEG = "image/jpeg"

// Book represents a catalog entry returned by the remote API
type Book struct {
	ID            int               `json:"id"`
	Title         string            `json:"title"`
	Authors       []Person          `json:"authors"`
	Translators   []Person          `json:"translators"`
	Subjects      []string          `json:"subjects"`
	Bookshelves   []string          `json:"bookshelves"`
	Languages     []string          `json:"languages"`
	Copyright     *bool             `json:"copyright"`
	MediaType     string            `json:"media_type"`
	Formats       map[string]string `json:"formats"`
	DownloadCount *int              `json:"download_count"`
}

// Person represents an author or translator
type Person struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year,omitempty"`
	DeathYear *int   `json:"death_year,omitempty"`
}

// Batch is one page of books plus continuation cursors
type Batch struct {
	Books    []Book `json:"books"`
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// FormatLink is a single format label and the address it points to
type FormatLink struct {
	Label string
	URL   string
}

var strictPolicy = bluemonday.StrictPolicy()

// Normalize strips markup from upstream text and drops unusable format entries
func (b *Book) Normalize() {
	b.Title = cleanText(b.Title)
	for i := range b.Authors {
		b.Authors[i].Name = cleanText(b.Authors[i].Name)
	}
	for i := range b.Translators {
		b.Translators[i].Name = cleanText(b.Translators[i].Name)
	}
	b.Subjects = cleanList(b.Subjects)
	b.Bookshelves = cleanList(b.Bookshelves)
	b.Languages = cleanList(b.Languages)

	formats := make(map[string]string, len(b.Formats))
	for label, addr := range b.Formats {
		label = strings.TrimSpace(label)
		addr = strings.TrimSpace(addr)
		if label == "" || addr == "" {
			continue
		}
		formats[label] = addr
	}
	b.Formats = formats
}

// CoverURL returns the JPEG cover address or the placeholder when absent
func (b Book) CoverURL(placeholder string) string {
	if u, ok := b.Formats[FormatJPEG]; ok && u != "" {
		return u
	}
	return placeholder
}

// SubjectSummary returns up to three subjects, or "Unknown" when there are none
func (b Book) SubjectSummary() string {
	if len(b.Subjects) == 0 {
		return "Unknown"
	}
	n := len(b.Subjects)
	if n > 3 {
		n = 3
	}
	return strings.Join(b.Subjects[:n], ", ")
}

// AuthorNames joins author names with a comma
func (b Book) AuthorNames() string {
	return joinNames(b.Authors)
}

// TranslatorNames joins translator names with a comma
func (b Book) TranslatorNames() string {
	return joinNames(b.Translators)
}

// FormatLinks returns every format entry sorted by label
func (b Book) FormatLinks() []FormatLink {
	links := make([]FormatLink, 0, len(b.Formats))
	for label, addr := range b.Formats {
		links = append(links, FormatLink{Label: label, URL: addr})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Label < links[j].Label })
	return links
}

// CopyrightLabel describes the copyright status, defaulting to public domain
func (b Book) CopyrightLabel() string {
	if b.Copyright != nil && *b.Copyright {
		return "Copyrighted"
	}
	return "Public Domain"
}

// DownloadLabel renders the download count or "N/A" when unknown
func (b Book) DownloadLabel() string {
	if b.DownloadCount == nil {
		return "N/A"
	}
	return strconv.Itoa(*b.DownloadCount)
}

func joinNames(people []Person) string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = cleanText(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
