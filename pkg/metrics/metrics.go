// Package metrics provides Prometheus metrics for the rate-oracle system.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RateQueriesTotal is a counter of rate engine queries.
	RateQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_queries_total",
			Help: "Total number of rate engine queries",
		},
		[]string{"operation", "status"},
	)

	// RateQueryDuration is a histogram of rate engine query latencies.
	RateQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rate_query_duration_seconds",
			Help:    "Duration of rate engine queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// RegisteredBindings is a gauge of assets with a bound price source.
	RegisteredBindings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registered_bindings",
			Help: "Number of assets with a registered price source",
		},
	)

	// SourceRoundsTotal is a counter of rounds recorded per feed and symbol.
	SourceRoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_rounds_total",
			Help: "Total number of price rounds recorded from feeds",
		},
		[]string{"source", "symbol"},
	)

	// SourceHealth is a gauge of the health status of price feeds.
	SourceHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_health",
			Help: "Health status of price feeds (1=healthy, 0=unhealthy)",
		},
		[]string{"source", "type"},
	)

	// SourceLastUpdate is a gauge of the last update timestamp per feed.
	SourceLastUpdate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_last_update_timestamp",
			Help: "Unix timestamp of last update from feed",
		},
		[]string{"source"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		RateQueriesTotal,
		RateQueryDuration,
		RegisteredBindings,
		SourceRoundsTotal,
		SourceHealth,
		SourceLastUpdate,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// Handler returns an HTTP handler exposing the metrics under path.
func Handler(path string) http.Handler {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return mux
}

// ServeHTTP serves Prometheus metrics on the specified address and path.
func ServeHTTP(addr, path string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      Handler(path),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordRateQuery records a rate engine query with its outcome.
func RecordRateQuery(operation, status string, duration time.Duration) {
	RateQueriesTotal.WithLabelValues(operation, status).Inc()
	RateQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSourceRound records a round appended from a feed.
func RecordSourceRound(source, symbol string) {
	SourceRoundsTotal.WithLabelValues(source, symbol).Inc()
	SourceLastUpdate.WithLabelValues(source).SetToCurrentTime()
}

// RecordSourceHealth records the health status of a feed.
func RecordSourceHealth(source, sourceType string, healthy bool) {
	val := 0.0
	if healthy {
		val = 1.0
	}
	SourceHealth.WithLabelValues(source, sourceType).Set(val)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetRegisteredBindings records the current number of registered assets.
func SetRegisteredBindings(n int) {
	RegisteredBindings.Set(float64(n))
}
