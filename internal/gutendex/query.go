package gutendex

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query selects which books a request returns. At most one of Search, Topic
// and IDs may be set; the zero Query lists the whole catalog.
type Query struct {
	Search string
	Topic  string
	IDs    []int
}

// All returns the unfiltered catalog query
func All() Query { return Query{} }

// Search returns a free-text search query
func Search(term string) Query { return Query{Search: term} }

// Topic returns a subject/bookshelf filter query
func Topic(topic string) Query { return Query{Topic: topic} }

// IDs returns a query for exactly the given identifiers
func IDs(ids ...int) Query { return Query{IDs: ids} }

// Validate rejects queries that combine filters
func (q Query) Validate() error {
	set := 0
	if q.Search != "" {
		set++
	}
	if q.Topic != "" {
		set++
	}
	if len(q.IDs) > 0 {
		set++
	}
	if set > 1 {
		return ErrConflictingQuery
	}
	for _, id := range q.IDs {
		if id <= 0 {
			return fmt.Errorf("%w: id %d", ErrInvalidQuery, id)
		}
	}
	return nil
}

// Kind names the governing filter, used for logs and metrics
func (q Query) Kind() string {
	switch {
	case q.Search != "":
		return "search"
	case q.Topic != "":
		return "topic"
	case len(q.IDs) > 0:
		return "ids"
	default:
		return "all"
	}
}

// values encodes the query as Gutendex URL parameters
func (q Query) values() url.Values {
	v := url.Values{}
	switch {
	case q.Search != "":
		v.Set("search", q.Search)
	case q.Topic != "":
		v.Set("topic", q.Topic)
	case len(q.IDs) > 0:
		ids := make([]string, len(q.IDs))
		for i, id := range q.IDs {
			ids[i] = strconv.Itoa(id)
		}
		v.Set("ids", strings.Join(ids, ","))
	}
	return v
}
