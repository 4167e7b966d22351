// Package metrics declares the Prometheus collectors of the storefront.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "Outbound requests to the shop API by outcome",
		},
		[]string{"method", "endpoint", "outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_request_duration_seconds",
			Help:    "Latency of outbound requests to the shop API, retries included",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_lookups_total",
			Help: "Memoized API reads by key and result",
		},
		[]string{"key", "result"},
	)

	BookingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_bookings_submitted_total",
			Help: "Appointment submissions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_notifications_published_total",
			Help: "Notifications shown to visitors by severity",
		},
		[]string{"severity"},
	)

	SessionsCleared = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_sessions_cleared_total",
			Help: "Sessions removed by reason",
		},
		[]string{"reason"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rate_limited_total",
			Help: "Requests rejected by the submit limiter",
		},
		[]string{"route"},
	)
)
