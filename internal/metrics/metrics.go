package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookshelf_http_requests_total",
		Help: "Total number of HTTP requests served",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookshelf_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookshelf_upstream_requests_total",
		Help: "Requests sent to the catalog API by kind and outcome",
	}, []string{"kind", "outcome"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookshelf_upstream_request_duration_seconds",
		Help:    "Duration of catalog API requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	WishlistTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookshelf_wishlist_toggles_total",
		Help: "Wishlist toggles by resulting state",
	}, []string{"state"})
)
