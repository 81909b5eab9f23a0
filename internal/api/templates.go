package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/piligrim/bookshelf/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the embedded static assets rooted at the static directory
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// renderer executes the page templates; each page is parsed together with
// the shared layout and partials
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	rd := &renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{"books", "detail", "wishlist"} {
		t, err := template.New(page).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		rd.pages[page] = t
	}
	return rd, nil
}

// render writes a full page
func (rd *renderer) render(w http.ResponseWriter, r *http.Request, page string, status int, data any) {
	rd.execute(w, r, page, "layout", status, data)
}

// fragment writes a single named template of page without the layout
func (rd *renderer) fragment(w http.ResponseWriter, r *http.Request, page, name string, data any) {
	rd.execute(w, r, page, name, http.StatusOK, data)
}

func (rd *renderer) execute(w http.ResponseWriter, r *http.Request, page, name string, status int, data any) {
	t, ok := rd.pages[page]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		logger.For(r.Context()).WithError(err).WithField("template", page+"/"+name).Error("template.execute.failed")
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
