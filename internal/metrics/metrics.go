// Package metrics exposes Prometheus instrumentation for the cache
// reconciliation runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all derivscan Prometheus metrics.
type Registry struct {
	EntitiesProcessed *prometheus.CounterVec
	EntitiesSkipped   *prometheus.CounterVec
	EntitiesFailed    *prometheus.CounterVec
	RowsWritten       *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	LastRunTimestamp  *prometheus.GaugeVec
}

// NewRegistry creates the derivscan metric set, unregistered.
func NewRegistry() *Registry {
	return &Registry{
		EntitiesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivscan_entities_processed_total",
				Help: "Entities whose cache rows were computed and written",
			},
			[]string{"cache"},
		),
		EntitiesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivscan_entities_skipped_total",
				Help: "Entities skipped, by reason (up_to_date, short_history, empty)",
			},
			[]string{"cache", "reason"},
		),
		EntitiesFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivscan_entities_failed_total",
				Help: "Entities whose computation failed and will be retried next run",
			},
			[]string{"cache"},
		),
		RowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivscan_rows_written_total",
				Help: "Cache rows actually inserted (conflicts excluded)",
			},
			[]string{"cache"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "derivscan_run_duration_seconds",
				Help:    "Wall-clock duration of one reconciliation run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"cache"},
		),
		LastRunTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "derivscan_last_run_timestamp_seconds",
				Help: "Unix time of the last completed reconciliation run",
			},
			[]string{"cache"},
		),
	}
}

// Register registers all metrics with the given registerer.
func (r *Registry) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.EntitiesProcessed,
		r.EntitiesSkipped,
		r.EntitiesFailed,
		r.RowsWritten,
		r.RunDuration,
		r.LastRunTimestamp,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Cache label values.
const (
	CacheTechnical = "technical"
	CacheExpiry    = "expiry"
	CacheSignal    = "signal"
)

// Skip reason label values.
const (
	ReasonUpToDate     = "up_to_date"
	ReasonShortHistory = "short_history"
	ReasonEmpty        = "empty"
)
