// Package metrics provides Prometheus metrics for the rates system.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TickerUpdatesTotal is a counter of ticker maps received from sources.
	TickerUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticker_updates_total",
			Help: "Total number of ticker updates received from sources",
		},
		[]string{"source"},
	)

	// FetchErrorsTotal is a counter of failed source fetches.
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_errors_total",
			Help: "Total number of failed fetches from sources",
		},
		[]string{"source"},
	)

	// ConsensusRejectionsTotal is a counter of pairs rejected by consensus checks.
	ConsensusRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_rejections_total",
			Help: "Total number of pairs rejected due to ambiguous or missing consensus",
		},
		[]string{"pair"},
	)

	// ResolvedPairs is a gauge of the number of pairs in the current snapshot.
	ResolvedPairs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resolved_pairs",
			Help: "Number of pairs in the current resolved snapshot",
		},
	)

	// CycleDuration is a histogram of update cycle durations.
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "update_cycle_duration_seconds",
			Help:    "Duration of fetch-merge-persist cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	// LastUpdateTimestamp is a gauge of the last successful snapshot save time.
	LastUpdateTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "last_update_timestamp",
			Help: "Unix timestamp of the last successful snapshot save",
		},
	)

	// HistoryWriteErrorsTotal is a counter of failed history store writes.
	HistoryWriteErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "history_write_errors_total",
			Help: "Total number of failed history store writes",
		},
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

// Init initializes the Prometheus metrics registry.
func Init() {
	prometheus.MustRegister(
		TickerUpdatesTotal,
		FetchErrorsTotal,
		ConsensusRejectionsTotal,
		ResolvedPairs,
		CycleDuration,
		LastUpdateTimestamp,
		HistoryWriteErrorsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordSourceUpdate records a successful ticker fetch from a source.
func RecordSourceUpdate(source string) {
	TickerUpdatesTotal.WithLabelValues(source).Inc()
}

// RecordFetchError records a failed fetch from a source.
func RecordFetchError(source string) {
	FetchErrorsTotal.WithLabelValues(source).Inc()
}

// RecordConsensusRejection records a pair rejected by consensus checks.
func RecordConsensusRejection(pair string) {
	ConsensusRejectionsTotal.WithLabelValues(pair).Inc()
}

// RecordCycle records a completed update cycle.
func RecordCycle(duration time.Duration, resolvedPairs int) {
	CycleDuration.Observe(duration.Seconds())
	ResolvedPairs.Set(float64(resolvedPairs))
}

// RecordSnapshotSaved records a successful history store write.
func RecordSnapshotSaved() {
	LastUpdateTimestamp.SetToCurrentTime()
}

// RecordHistoryWriteError records a failed history store write.
func RecordHistoryWriteError() {
	HistoryWriteErrorsTotal.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
