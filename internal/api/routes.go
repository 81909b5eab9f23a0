package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/piligrim/bookshelf/internal/opds"
)

// AuthConfig enables HTTP basic auth for the pages and feeds
type AuthConfig struct {
	Enabled bool
	Realm   string
	User    string
	Hash    []byte
}

// SetupRoutes configures all routes
func SetupRoutes(handlers *Handlers, opdsHandler *opds.Handler, auth AuthConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(Instrument)
	r.Use(SecurityHeaders)

	// Health check and metrics stay reachable for probes
	r.Get("/health", handlers.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if auth.Enabled {
			r.Use(BasicAuth(auth.Realm, auth.User, auth.Hash))
		}
		r.Use(Visitor)

		r.Get("/", handlers.Index)
		r.Get("/books", handlers.Books)
		r.Get("/books/live", handlers.LiveSearch)
		r.Post("/books/{id}/like", handlers.LikeBook)
		r.Get("/book", handlers.Book)
		r.Get("/wishlist", handlers.Wishlist)
		r.Post("/wishlist/{id}/like", handlers.LikeWishlist)

		SetupOPDSRoutes(r, opdsHandler)
	})

	// Serve static files
	fileServer := http.FileServer(http.FS(Static()))
	r.Handle("/static/*", http.StripPrefix("/static", fileServer))

	return r
}
