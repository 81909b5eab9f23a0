package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/piligrim/bookshelf/internal/logger"
	"github.com/piligrim/bookshelf/internal/opds"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

// SetupOPDSRoutes configures OPDS routes
func SetupOPDSRoutes(r chi.Router, opdsHandler *opds.Handler) {
	r.Route("/opds", func(r chi.Router) {
		// Root catalog
		r.Get("/", opdsHandler.Root)
		r.Get("/opensearch.xml", opdsHandler.OpenSearch)

		// Acquisition feeds
		r.Get("/books", opdsHandler.Books)
		r.Get("/wishlist", opdsHandler.Wishlist)
	})
}

// WishlistFor returns the visitor's wishlist, re-read from storage, for the OPDS feeds
func (s *Sessions) WishlistFor(r *http.Request) *wishlist.Store {
	store := s.Get(VisitorID(r.Context())).Store
	if err := store.Reload(); err != nil {
		logger.For(r.Context()).WithError(err).Warn("wishlist.reload.failed")
	}
	return store
}
