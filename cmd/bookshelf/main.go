package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/piligrim/bookshelf/internal/api"
	"github.com/piligrim/bookshelf/internal/book"
	"github.com/piligrim/bookshelf/internal/config"
	"github.com/piligrim/bookshelf/internal/gutendex"
	"github.com/piligrim/bookshelf/internal/logger"
	"github.com/piligrim/bookshelf/internal/opds"
	"github.com/piligrim/bookshelf/internal/storage"
	"github.com/piligrim/bookshelf/internal/view"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

// wishlistKey is the storage key holding a visitor's wishlist
const wishlistKey = "wishlist"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	baseURL := cfg.BaseURL()

	log.WithFields(logrus.Fields{
		"port":     cfg.Port,
		"catalog":  cfg.GutendexURL,
		"database": cfg.DatabasePath,
	}).Info("Bookshelf starting")

	// Initialize database
	db, err := storage.NewDatabase(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Initialize repository
	repo := storage.NewRepository(db)

	catalog, err := gutendex.NewClient(gutendex.Options{
		BaseURL:   cfg.GutendexURL,
		UserAgent: cfg.UserAgent,
		RPS:       cfg.RateLimitRPS,
		Timeout:   cfg.RequestTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create catalog client")
	}

	// Load genre label overrides
	labels, err := book.LoadLabels(cfg.GenreLabelsPath)
	if err != nil {
		log.WithError(err).WithField("path", cfg.GenreLabelsPath).Warn("Failed to load genre labels")
		labels = book.Labels{}
	}

	opts := view.Options{
		Placeholder: cfg.PlaceholderCover,
		Debounce:    cfg.SearchDebounce,
		FetchLimit:  cfg.WishlistFetchLimit,
	}

	sessions := api.NewSessions(cfg.SessionTTL,
		func(visitorID string) *wishlist.Store {
			if err := repo.Touch(visitorID); err != nil {
				log.WithError(err).WithField("visitor", visitorID).Warn("Failed to register visitor")
			}
			return wishlist.Open(storage.VisitorKV(repo, visitorID, wishlistKey), log.WithField("visitor", visitorID))
		},
		func(store *wishlist.Store) *view.ListView {
			return view.NewListView(catalog, store, opts)
		},
	)

	// Setup routes
	handlers, err := api.NewHandlers(catalog, sessions, opts, labels, cfg.CatalogTitle, db)
	if err != nil {
		log.WithError(err).Fatal("Failed to load templates")
	}
	opdsHandler := opds.NewHandler(catalog, sessions.WishlistFor, cfg.WishlistFetchLimit,
		opds.NewBuilder(baseURL, cfg.CatalogTitle, labels))

	router := api.SetupRoutes(handlers, opdsHandler, api.AuthConfig{
		Enabled: cfg.BasicAuthEnabled,
		Realm:   cfg.CatalogTitle,
		User:    cfg.BasicAuthUser,
		Hash:    cfg.BasicAuthHash,
	})

	// Setup HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"web":    baseURL + "/books",
			"opds":   baseURL + "/opds",
			"health": baseURL + "/health",
		}).Infof("Starting HTTP server on port %s", cfg.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Failed to shutdown server")
	}

	log.Info("Server stopped")
}
