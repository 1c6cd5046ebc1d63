package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Decision metrics
	ChecksTotal        *prometheus.CounterVec
	CheckDuration      *prometheus.HistogramVec
	BatchChecksTotal   prometheus.Counter
	BatchSizePaths     prometheus.Histogram

	// Cache metrics
	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter
	CacheInvalidationsTotal prometheus.Counter
	CacheEntries            prometheus.Gauge

	// Grant lifecycle metrics
	GrantMutationsTotal *prometheus.CounterVec
	GrantsActive        prometheus.Gauge
	SweepsTotal         prometheus.Counter
	SweptGrantsTotal    prometheus.Counter
}

// NewMetrics creates and registers all engine metrics on the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"level", "decision", "source"},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_check_duration_seconds",
				Help:    "Permission check duration in seconds",
				Buckets: []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .005},
			},
			[]string{"level"},
		),
		BatchChecksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_batch_checks_total",
				Help: "Total number of batch permission checks",
			},
		),
		BatchSizePaths: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warden_batch_size_paths",
				Help:    "Number of paths per batch check",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),

		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_decision_cache_hits_total",
				Help: "Total number of decision cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_decision_cache_misses_total",
				Help: "Total number of decision cache misses",
			},
		),
		CacheInvalidationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_decision_cache_invalidations_total",
				Help: "Total number of per-principal cache invalidations",
			},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_decision_cache_entries",
				Help: "Current number of cached decisions",
			},
		),

		GrantMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_grant_mutations_total",
				Help: "Total number of grant mutations",
			},
			[]string{"operation"},
		),
		GrantsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_grants_active",
				Help: "Current number of grant records (including not-yet-swept expired ones)",
			},
		),
		SweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_sweeps_total",
				Help: "Total number of expired-grant sweeps",
			},
		),
		SweptGrantsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_swept_grants_total",
				Help: "Total number of expired grants removed by sweeps",
			},
		),
	}

	registry.MustRegister(
		m.ChecksTotal,
		m.CheckDuration,
		m.BatchChecksTotal,
		m.BatchSizePaths,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheInvalidationsTotal,
		m.CacheEntries,
		m.GrantMutationsTotal,
		m.GrantsActive,
		m.SweepsTotal,
		m.SweptGrantsTotal,
	)

	return m
}
