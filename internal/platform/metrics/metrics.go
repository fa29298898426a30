// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RatingsTotal counts processed ratings by rating value.
	RatingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engram",
		Name:      "ratings_total",
		Help:      "Number of card ratings processed, by rating.",
	}, []string{"rating"})

	// NextCardRequests counts getNext decisions by result kind
	// (review, new, none).
	NextCardRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engram",
		Name:      "next_card_requests_total",
		Help:      "Number of next-card selections, by result kind.",
	}, []string{"result"})

	// ForecastRuns counts forecast simulations by kind (backlog,
	// maturity).
	ForecastRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engram",
		Name:      "forecast_runs_total",
		Help:      "Number of forecast simulations executed, by kind.",
	}, []string{"kind"})

	// ForecastDuration observes forecast run duration in seconds by
	// kind.
	ForecastDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "engram",
		Name:      "forecast_duration_seconds",
		Help:      "Duration of forecast simulations in seconds, by kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
