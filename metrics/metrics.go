// Package metrics exposes Prometheus collectors for ingestion, price
// resolution and scraping. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingestion outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeUnparsed = "unparsed"
)

// Metrics bundles every collector on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	IngestLinesTotal      *prometheus.CounterVec
	ValidationErrorsTotal *prometheus.CounterVec

	SearchesTotal  *prometheus.CounterVec
	SearchDuration prometheus.Histogram

	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	SnippetsTotal   prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// New constructs and registers all metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	ingestLines := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_ingest_lines_total",
			Help: "Imported records by outcome.",
		},
		[]string{"outcome"},
	)
	validationErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_validation_errors_total",
			Help: "Validation failures by reason.",
		},
		[]string{"reason"},
	)
	searches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_searches_total",
			Help: "Price searches by resolving source.",
		},
		[]string{"source"},
	)
	searchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricescout_search_duration_seconds",
			Help:    "End-to-end price search latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	snippets := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_snippets_total",
			Help: "Text snippets extracted from scraped pages.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(
		ingestLines, validationErrors,
		searches, searchDuration,
		requests, requestDuration, snippets, retries, errorsTotal,
	)

	return &Metrics{
		Registry:              registry,
		IngestLinesTotal:      ingestLines,
		ValidationErrorsTotal: validationErrors,
		SearchesTotal:         searches,
		SearchDuration:        searchDuration,
		RequestsTotal:         requests,
		RequestDuration:       requestDuration,
		SnippetsTotal:         snippets,
		RetriesTotal:          retries,
		ErrorsTotal:           errorsTotal,
	}
}

// IncIngest counts one imported record.
func (m *Metrics) IncIngest(outcome string) {
	if m == nil {
		return
	}
	m.IngestLinesTotal.WithLabelValues(outcome).Inc()
}

// IncValidation counts one validation failure reason.
func (m *Metrics) IncValidation(reason string) {
	if m == nil {
		return
	}
	m.ValidationErrorsTotal.WithLabelValues(reason).Inc()
}

// ObserveSearch records a finished search.
func (m *Metrics) ObserveSearch(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(source).Inc()
	m.SearchDuration.Observe(d.Seconds())
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncSnippets adds n extracted snippets.
func (m *Metrics) IncSnippets(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SnippetsTotal.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
