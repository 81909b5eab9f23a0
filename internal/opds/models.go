package opds

import (
	"encoding/xml"
	"time"
)

// Feed is an OPDS 1.2 Atom feed, either navigation or acquisition
type Feed struct {
	XMLName   xml.Name `xml:"feed"`
	Xmlns     string   `xml:"xmlns,attr"`
	XmlnsDC   string   `xml:"xmlns:dc,attr"`
	XmlnsOPDS string   `xml:"xmlns:opds,attr"`

	ID      string    `xml:"id"`
	Title   string    `xml:"title"`
	Updated time.Time `xml:"updated"`
	Icon    string    `xml:"icon,omitempty"`
	Author  *Person   `xml:"author,omitempty"`
	Links   []Link    `xml:"link"`
	Entries []Entry   `xml:"entry"`
}

// Entry is a navigation subsection or one Gutenberg book
type Entry struct {
	ID      string    `xml:"id"`
	Title   string    `xml:"title"`
	Updated time.Time `xml:"updated"`
	Summary string    `xml:"summary,omitempty"`
	Content *Content  `xml:"content,omitempty"`

	Authors      []Person   `xml:"author"`
	Contributors []Person   `xml:"contributor"`
	Categories   []Category `xml:"category"`
	Links        []Link     `xml:"link"`

	Languages  []string `xml:"dc:language"`
	Identifier string   `xml:"dc:identifier,omitempty"`
	Rights     string   `xml:"dc:rights,omitempty"`
}

type Person struct {
	Name string `xml:"name"`
	URI  string `xml:"uri,omitempty"`
}

type Link struct {
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr,omitempty"`
}

// Category carries a subject; Label is the display name from the genre labels
type Category struct {
	Term  string `xml:"term,attr"`
	Label string `xml:"label,attr"`
}

type Content struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// OpenSearchDescription advertises the search template of the books feed
type OpenSearchDescription struct {
	XMLName        xml.Name       `xml:"OpenSearchDescription"`
	Xmlns          string         `xml:"xmlns,attr"`
	ShortName      string         `xml:"ShortName"`
	Description    string         `xml:"Description"`
	Tags           string         `xml:"Tags"`
	URL            OpenSearchURL  `xml:"Url"`
	Query          OpenSearchTerm `xml:"Query"`
	Language       string         `xml:"Language"`
	InputEncoding  string         `xml:"InputEncoding"`
	OutputEncoding string         `xml:"OutputEncoding"`
}

type OpenSearchURL struct {
	Type     string `xml:"type,attr"`
	Template string `xml:"template,attr"`
}

type OpenSearchTerm struct {
	Role        string `xml:"role,attr"`
	SearchTerms string `xml:"searchTerms,attr"`
}

const (
	RelSelf       = "self"
	RelStart      = "start"
	RelUp         = "up"
	RelNext       = "next"
	RelPrev       = "prev"
	RelSubsection = "subsection"
	RelSearch     = "search"
	RelAlternate  = "alternate"

	RelAcquisitionOpen = "http://opds-spec.org/acquisition/open-access"
	RelImage           = "http://opds-spec.org/image"
	RelThumbnail       = "http://opds-spec.org/image/thumbnail"

	TypeNavigation  = "application/atom+xml;profile=opds-catalog;kind=navigation"
	TypeAcquisition = "application/atom+xml;profile=opds-catalog;kind=acquisition"
	TypeSearch      = "application/opensearchdescription+xml"
	TypeHTML        = "text/html"
)

const (
	nsAtom       = "http://www.w3.org/2005/Atom"
	nsDC         = "http://purl.org/dc/terms/"
	nsOPDS       = "http://opds-spec.org/2010/catalog"
	nsOpenSearch = "http://a9.com/-/spec/opensearch/1.1/"
)
