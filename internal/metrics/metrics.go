package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suplementor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Scoring
	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suplementor_candidates_scored_total",
			Help: "Total number of catalog items scored against a profile",
		},
	)

	RecommendationsReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suplementor_recommendations_returned_total",
			Help: "Total number of recommendation results returned",
		},
	)

	// Interactions
	InteractionsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suplementor_interactions_detected_total",
			Help: "Interactions found during pairwise analysis",
		},
		[]string{"severity", "basis"},
	)

	// Research collaborator
	ResearchLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suplementor_research_lookups_total",
			Help: "Evidence lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss, error, timeout, breaker_open
	)

	// Catalog
	CatalogItemsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "suplementor_catalog_items",
			Help: "Number of items in the catalog index",
		},
	)

	CatalogRecordsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suplementor_catalog_records_rejected_total",
			Help: "Catalog records rejected during load",
		},
	)
)

// ObserveHTTPRequest records one finished request
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// RecordInteraction counts one detected pair
func RecordInteraction(severity, basis string) {
	InteractionsDetected.WithLabelValues(severity, basis).Inc()
}

// RecordResearchLookup counts one evidence lookup outcome
func RecordResearchLookup(outcome string) {
	ResearchLookups.WithLabelValues(outcome).Inc()
}
