package gutendex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/logger"
	"github.com/piligrim/bookshelf/internal/metrics"
)

var (
	// ErrNetwork is returned when the transport call cannot complete
	ErrNetwork = errors.New("catalog unreachable")
	// ErrBadResponse is returned for non-success statuses and malformed payloads
	ErrBadResponse = errors.New("bad catalog response")
	// ErrNotFound is returned when a requested book does not exist
	ErrNotFound = errors.New("book not found")
	// ErrConflictingQuery is returned when a query combines several filters
	ErrConflictingQuery = errors.New("query combines search, topic and id filters")
	// ErrInvalidQuery is returned for identifiers that cannot exist
	ErrInvalidQuery = errors.New("invalid query")
	// ErrBadCursor is returned for cursors that do not point at the catalog
	ErrBadCursor = errors.New("invalid continuation cursor")
)

// maxBodySize caps how much of a response is read
const maxBodySize = 8 << 20

// Options configures a Client
type Options struct {
	BaseURL    string
	UserAgent  string
	RPS        int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to a Gutendex-compatible books API
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	limiter    *rate.Limiter
	validator  *validator
}

// NewClient creates a catalog client
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid catalog base URL %q", opts.BaseURL)
	}

	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Every(time.Second / time.Duration(opts.RPS))
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(limit, 1),
		validator:  v,
	}, nil
}

// page matches one Gutendex list response
type page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []book.Book `json:"results"`
}

// Fetch returns one batch for q, or the batch a cursor from an earlier
// response points at. A cursor takes the place of the query.
func (c *Client) Fetch(ctx context.Context, q Query, cursor string) (*book.Batch, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	target := c.endpoint("books/", q.values())
	if cursor != "" {
		continuation, err := book.DecodeCursor(cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		if err := c.checkContinuation(continuation); err != nil {
			return nil, err
		}
		target = continuation
	}

	var p page
	if err := c.get(ctx, q.Kind(), target, c.validator.validatePage, &p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: listing returned 404", ErrBadResponse)
		}
		return nil, err
	}

	batch := &book.Batch{
		Books: make([]book.Book, 0, len(p.Results)),
		Count: p.Count,
	}
	if p.Next != nil {
		batch.Next = book.EncodeCursor(*p.Next)
	}
	if p.Previous != nil {
		batch.Previous = book.EncodeCursor(*p.Previous)
	}
	for _, b := range p.Results {
		b.Normalize()
		batch.Books = append(batch.Books, b)
	}
	return batch, nil
}

// FetchAll follows continuation cursors until the listing is exhausted or
// limit books were collected
func (c *Client) FetchAll(ctx context.Context, q Query, limit int) (*book.Batch, error) {
	first, err := c.Fetch(ctx, q, "")
	if err != nil {
		return nil, err
	}

	all := &book.Batch{Books: first.Books, Count: first.Count}
	next := first.Next
	for next != "" && (limit <= 0 || len(all.Books) < limit) {
		batch, err := c.Fetch(ctx, q, next)
		if err != nil {
			return nil, err
		}
		all.Books = append(all.Books, batch.Books...)
		next = batch.Next
	}

	if limit > 0 && len(all.Books) > limit {
		all.Books = all.Books[:limit]
	}
	return all, nil
}

// Get returns a single book by identifier
func (c *Client) Get(ctx context.Context, id int) (*book.Book, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	var b book.Book
	target := c.endpoint("books/"+strconv.Itoa(id)+"/", nil)
	if err := c.get(ctx, "get", target, c.validator.validateBook, &b); err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, fmt.Errorf("%w: response for %d has no id", ErrNotFound, id)
	}
	b.Normalize()
	return &b, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// checkContinuation makes sure a decoded cursor still targets the books
// listing under the configured base URL
func (c *Client) checkContinuation(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if !strings.EqualFold(u.Scheme, c.baseURL.Scheme) {
		return fmt.Errorf("%w: scheme %q", ErrBadCursor, u.Scheme)
	}
	if !strings.EqualFold(u.Host, c.baseURL.Host) {
		return fmt.Errorf("%w: host %q", ErrBadCursor, u.Host)
	}
	if u.User != nil || !strings.HasPrefix(u.EscapedPath(), c.listingPath()) {
		return fmt.Errorf("%w: path %q", ErrBadCursor, u.Path)
	}
	return nil
}

func (c *Client) listingPath() string {
	return strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + "/books/"
}

func (c *Client) get(ctx context.Context, kind, target string, check func([]byte) error, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamRequestsTotal.WithLabelValues(kind, outcome(err)).Inc()
		metrics.UpstreamRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	logger.For(ctx).WithFields(logrus.Fields{
		"kind":   kind,
		"url":    target,
		"status": resp.StatusCode,
		"took":   time.Since(start),
	}).Debug("catalog.request")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: unexpected status code %d", ErrBadResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if err := check(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "bad_response"
	}
}
