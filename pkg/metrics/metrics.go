// Package metrics defines the Prometheus metric collectors used by the
// importer and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the importer.
type Metrics struct {
	FilesProcessedTotal     *prometheus.CounterVec
	FileProcessingDuration  prometheus.Histogram
	SessionsStartedTotal    prometheus.Counter
	SessionsJoinedTotal     prometheus.Counter
	SessionIndexShiftsTotal prometheus.Counter
	DedupCacheHitsTotal     prometheus.Counter
	DedupCacheMissesTotal   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		FilesProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_files_processed_total",
				Help: "Total summary files processed by terminal status (inserted, duplicate, needs_review, error, dry_run).",
			},
			[]string{"status"},
		),
		FileProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "import_file_processing_duration_seconds",
				Help:    "Per-file processing latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		SessionsStartedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "import_sessions_started_total",
				Help: "Total brand-new sessions minted during import.",
			},
		),
		SessionsJoinedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "import_sessions_joined_total",
				Help: "Total results added to an existing session.",
			},
		),
		SessionIndexShiftsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "import_session_index_shifts_total",
				Help: "Total sibling rows renumbered to make room for an out-of-order insertion.",
			},
		),
		DedupCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "import_dedup_cache_hits_total",
				Help: "Total duplicate pre-checks answered by the seen-hash cache.",
			},
		),
		DedupCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "import_dedup_cache_misses_total",
				Help: "Total duplicate pre-checks that fell through to the store.",
			},
		),
	}

	prometheus.MustRegister(
		m.FilesProcessedTotal,
		m.FileProcessingDuration,
		m.SessionsStartedTotal,
		m.SessionsJoinedTotal,
		m.SessionIndexShiftsTotal,
		m.DedupCacheHitsTotal,
		m.DedupCacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
