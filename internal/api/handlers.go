package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/logger"
	"github.com/piligrim/bookshelf/internal/view"
)

// Pinger reports whether a dependency is healthy
type Pinger interface {
	Ping() error
}

// Handlers contains all page handlers
type Handlers struct {
	catalog  view.Catalog
	sessions *Sessions
	opts     view.Options
	labels   book.Labels
	title    string
	db       Pinger
	pages    *renderer
}

// NewHandlers creates new page handlers
func NewHandlers(catalog view.Catalog, sessions *Sessions, opts view.Options, labels book.Labels, title string, db Pinger) (*Handlers, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Handlers{
		catalog:  catalog,
		sessions: sessions,
		opts:     opts,
		labels:   labels,
		title:    title,
		db:       db,
		pages:    pages,
	}, nil
}

// NavLink is one entry of the navigation chrome
type NavLink struct {
	Label   string
	Href    string
	Active  bool
	Counter bool
}

// Chrome is the data shared by every page layout
type Chrome struct {
	Title         string
	PageTitle     string
	Nav           []NavLink
	WishlistCount int
}

type likeView struct {
	Liked      bool
	LikeAction string
	Return     string
}

type cardView struct {
	view.Card
	LikeAction string
	Return     string
}

type genreOption struct {
	Value    string
	Label    string
	Selected bool
}

type booksPage struct {
	Chrome  Chrome
	Status  view.Status
	Search  string
	Genres  []genreOption
	Cards   []cardView
	Page    int
	PrevURL string
	NextURL string
	Loading bool
	Empty   bool
}

type detailPage struct {
	Chrome   Chrome
	Empty    bool
	Book     *book.Book
	CoverURL string
	Formats  []book.FormatLink
	Like     likeView
}

type wishlistPage struct {
	Chrome Chrome
	Empty  bool
	Failed bool
	Cards  []cardView
}

type likeResponse struct {
	ID    int  `json:"id"`
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Index redirects to the catalog
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/books", http.StatusFound)
}

// Books renders the catalog page for the addressing parameters
func (h *Handlers) Books(w http.ResponseWriter, r *http.Request) {
	defer logger.Track(r.Context(), "books page")()

	sess := h.pageSession(r)
	query := r.URL.Query()

	v := view.NewListView(h.catalog, sess.Store, h.opts)
	defer v.Close()

	v.Mount(r.Context(), view.Params{
		Search: query.Get("search"),
		Genre:  query.Get("genre"),
		Cursor: query.Get("cursor"),
		Page:   parseInt(query.Get("page"), 1),
	})
	if err := v.Wait(r.Context()); err != nil {
		logger.For(r.Context()).WithError(err).Warn("books.wait.aborted")
	}

	h.pages.render(w, r, "books", http.StatusOK, h.booksPage(r, v.Snapshot()))
}

// LiveSearch feeds typed text to the visitor's session view and returns the
// catalog fragment: genre filter, results and pager of the new batch.
// Without a search parameter, or for a keystroke older than one already
// seen, the current state is returned.
func (h *Handlers) LiveSearch(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	v := sess.List()
	query := r.URL.Query()

	seq, _ := strconv.ParseInt(query.Get("seq"), 10, 64)
	if query.Has("search") && sess.acceptLive(seq) {
		v.InputSearch(query.Get("search"))
		if err := v.Wait(r.Context()); err != nil {
			logger.For(r.Context()).WithError(err).Debug("live.wait.aborted")
		}
	}

	h.pages.fragment(w, r, "books", "catalog", h.booksPage(r, v.Snapshot()))
}

// LikeBook toggles a book from the catalog or detail page
func (h *Handlers) LikeBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	liked, count, err := h.pageSession(r).List().ClickLike(id)
	h.respondLike(w, r, id, liked, count, err, returnPath(r.FormValue("return"), "/books"))
}

// Book renders the detail page
func (h *Handlers) Book(w http.ResponseWriter, r *http.Request) {
	sess := h.pageSession(r)
	v := view.NewDetailView(h.catalog, sess.Store, h.opts)
	v.Load(r.Context(), r.URL.Query().Get("id"))
	st := v.Snapshot()

	data := detailPage{
		Chrome:   h.chrome("", "", st.WishlistCount),
		Empty:    st.Status.ShowsEmpty(),
		Book:     st.Book,
		CoverURL: st.CoverURL,
		Formats:  st.Formats,
	}
	status := http.StatusOK
	switch st.Status {
	case view.StatusEmpty:
		status = http.StatusNotFound
	case view.StatusFailed:
		status = http.StatusBadGateway
	default:
		data.Chrome.PageTitle = st.Book.Title
		data.Like = likeView{
			Liked:      st.Liked,
			LikeAction: "/books/" + strconv.Itoa(st.Book.ID) + "/like",
			Return:     view.DetailURL(st.Book.ID),
		}
	}

	h.pages.render(w, r, "detail", status, data)
}

// Wishlist renders the wishlist page
func (h *Handlers) Wishlist(w http.ResponseWriter, r *http.Request) {
	sess := h.pageSession(r)
	v := view.NewWishlistView(h.catalog, sess.Store, h.opts)
	v.Load(r.Context())
	st := v.Snapshot()

	data := wishlistPage{
		Chrome: h.chrome("Wishlist", "/wishlist", st.Count),
		Empty:  st.Status.ShowsEmpty(),
		Failed: st.Status == view.StatusFailed,
	}
	for _, c := range st.Cards {
		data.Cards = append(data.Cards, cardView{
			Card:       c,
			LikeAction: "/wishlist/" + strconv.Itoa(c.ID) + "/like",
			Return:     "/wishlist",
		})
	}

	status := http.StatusOK
	if data.Failed {
		status = http.StatusBadGateway
	}
	h.pages.render(w, r, "wishlist", status, data)
}

// LikeWishlist toggles a book from the wishlist page
func (h *Handlers) LikeWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	v := view.NewWishlistView(h.catalog, h.pageSession(r).Store, h.opts)
	liked, count, err := v.ClickLike(id)
	h.respondLike(w, r, id, liked, count, err, "/wishlist")
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":   "ok",
		"service":  "bookshelf",
		"sessions": h.sessions.Len(),
	}
	status := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			response["status"] = "degraded"
			response["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, response)
}

func (h *Handlers) session(r *http.Request) *Session {
	return h.sessions.Get(VisitorID(r.Context()))
}

// pageSession returns the session with its wishlist re-read from storage,
// so page loads and toggles see changes made outside this process
func (h *Handlers) pageSession(r *http.Request) *Session {
	sess := h.session(r)
	if err := sess.Store.Reload(); err != nil {
		logger.For(r.Context()).WithError(err).Warn("wishlist.reload.failed")
	}
	return sess
}

func (h *Handlers) chrome(pageTitle, active string, count int) Chrome {
	nav := []NavLink{
		{Label: "Books", Href: "/books"},
		{Label: "Wishlist", Href: "/wishlist", Counter: true},
	}
	for i := range nav {
		nav[i].Active = nav[i].Href == active
	}
	return Chrome{
		Title:         h.title,
		PageTitle:     pageTitle,
		Nav:           nav,
		WishlistCount: count,
	}
}

func (h *Handlers) booksPage(r *http.Request, st view.ListState) booksPage {
	data := booksPage{
		Chrome:  h.chrome("", "/books", st.WishlistCount),
		Status:  st.Status,
		Search:  st.Search,
		Page:    st.Page,
		Loading: st.Status == view.StatusLoading,
		Empty:   st.Status.ShowsEmpty(),
	}

	current := pageURL(st.Search, st.Genre, "", 0)
	if r.URL.Path == "/books" {
		current = r.URL.RequestURI()
	}
	for _, c := range st.Cards {
		data.Cards = append(data.Cards, cardView{
			Card:       c,
			LikeAction: "/books/" + strconv.Itoa(c.ID) + "/like",
			Return:     current,
		})
	}

	genres := st.Genres
	if st.Genre != "" && !containsString(genres, st.Genre) {
		genres = append([]string{st.Genre}, genres...)
	}
	for _, g := range genres {
		data.Genres = append(data.Genres, genreOption{
			Value:    g,
			Label:    h.labels.Label(g),
			Selected: g == st.Genre,
		})
	}

	if st.HasPrevious() {
		data.PrevURL = pageURL(st.Search, st.Genre, st.Previous, st.Page-1)
	}
	if st.HasNext() {
		data.NextURL = pageURL(st.Search, st.Genre, st.Next, st.Page+1)
	}
	return data
}

func (h *Handlers) bookID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.fail(w, r, http.StatusBadRequest, "invalid_id", "Invalid book ID")
		return 0, false
	}
	return id, true
}

func (h *Handlers) respondLike(w http.ResponseWriter, r *http.Request, id int, liked bool, count int, err error, back string) {
	if err != nil {
		logger.For(r.Context()).WithError(err).WithField("id", id).Error("wishlist.toggle.failed")
		if wantsJSON(r) {
			h.fail(w, r, http.StatusInternalServerError, "wishlist_unavailable", "The wishlist could not be saved")
			return
		}
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, likeResponse{ID: id, Liked: liked, Count: count})
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// fail answers JSON clients with an error envelope and browsers with plain text
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if wantsJSON(r) {
		writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
		return
	}
	http.Error(w, message, status)
}

// pageURL builds a shareable catalog address
func pageURL(search, genre, cursor string, page int) string {
	q := url.Values{}
	switch {
	case search != "":
		q.Set("search", search)
	case genre != "":
		q.Set("genre", genre)
	}
	if cursor != "" {
		q.Set("cursor", cursor)
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return "/books"
	}
	return "/books?" + q.Encode()
}

// returnPath accepts only local absolute paths
func returnPath(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	return raw
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

// parseInt parses string to int with default value
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}

	if val, err := strconv.Atoi(s); err == nil {
		return val
	}

	return defaultValue
}
