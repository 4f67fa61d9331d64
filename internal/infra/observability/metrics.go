package observability

import (
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for FinHelper.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	snapshots       *prometheus.CounterVec
	integrityErrors *prometheus.CounterVec
	parseResults    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests build as many
// Metrics as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finhelper_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finhelper_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finhelper_store_errors_total",
				Help: "Total failed store reads or writes.",
			},
			[]string{"store"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finhelper_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finhelper_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		snapshots: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finhelper_snapshots_total",
				Help: "Dashboard snapshots by outcome.",
			},
			[]string{"status"},
		),
		integrityErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finhelper_integrity_errors_total",
				Help: "Records referencing a category missing from the catalog.",
			},
			[]string{"entity"},
		),
		parseResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finhelper_parse_results_total",
				Help: "Free-text transaction parses by outcome.",
			},
			[]string{"result"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(store string) {
	m.storeErrors.WithLabelValues(store).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSnapshot counts a dashboard build as "success" or "error".
func (m *Metrics) IncrSnapshot(status string) {
	m.snapshots.WithLabelValues(status).Inc()
}

// IncrIntegrityError counts a dangling category reference.
func (m *Metrics) IncrIntegrityError(entity string) {
	m.integrityErrors.WithLabelValues(entity).Inc()
}

// IncrParse counts a parse as "parsed" or "fallback".
func (m *Metrics) IncrParse(result string) {
	m.parseResults.WithLabelValues(result).Inc()
}

// GetEngineSnapshot returns the counters exposed on GET /v1/metrics/engine.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	hits := getCounterValue(m.cacheHits, "advice")
	misses := getCounterValue(m.cacheMisses, "advice")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.EngineMetrics{
		SnapshotsBuilt:     int64(getCounterValue(m.snapshots, "success")),
		SnapshotFailures:   int64(getCounterValue(m.snapshots, "error")),
		IntegrityFailures:  int64(getCounterValue(m.integrityErrors, "budget") + getCounterValue(m.integrityErrors, "transaction")),
		ParseFallbacks:     int64(getCounterValue(m.parseResults, "fallback")),
		AdviceCacheHitRate: hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
