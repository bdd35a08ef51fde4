// Package metrics collects Prometheus counters and histograms for VMShift.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the workflow and inventory surfaces.
type Metrics struct {
	registry *prometheus.Registry

	migrationsStarted  prometheus.Counter
	migrationsFinished *prometheus.CounterVec
	migrationSeconds   *prometheus.HistogramVec
	vmsDiscovered      prometheus.Counter
	vmsAnalyzed        *prometheus.CounterVec
	jobsEnqueued       *prometheus.CounterVec
}

// New constructs a metrics registry and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	migrationsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vmshift",
		Subsystem: "migration",
		Name:      "started_total",
		Help:      "Total migration workflow starts.",
	})
	migrationsFinished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vmshift",
			Subsystem: "migration",
			Name:      "finished_total",
			Help:      "Total migration workflows reaching a terminal status.",
		},
		[]string{"status"},
	)
	migrationSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vmshift",
			Subsystem: "migration",
			Name:      "duration_seconds",
			Help:      "Migration runtime from start to terminal status.",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"status"},
	)
	vmsDiscovered := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vmshift",
		Subsystem: "inventory",
		Name:      "vms_discovered_total",
		Help:      "Total newly cataloged virtual machines.",
	})
	vmsAnalyzed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vmshift",
			Subsystem: "inventory",
			Name:      "vms_analyzed_total",
			Help:      "Total VM analysis runs by result.",
		},
		[]string{"result"},
	)
	jobsEnqueued := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vmshift",
			Subsystem: "queue",
			Name:      "jobs_enqueued_total",
			Help:      "Total jobs enqueued by kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(
		migrationsStarted,
		migrationsFinished,
		migrationSeconds,
		vmsDiscovered,
		vmsAnalyzed,
		jobsEnqueued,
	)

	return &Metrics{
		registry:           registry,
		migrationsStarted:  migrationsStarted,
		migrationsFinished: migrationsFinished,
		migrationSeconds:   migrationSeconds,
		vmsDiscovered:      vmsDiscovered,
		vmsAnalyzed:        vmsAnalyzed,
		jobsEnqueued:       jobsEnqueued,
	}
}

// Handler returns an HTTP handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MigrationStarted() {
	if m == nil {
		return
	}
	m.migrationsStarted.Inc()
}

func (m *Metrics) MigrationFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.migrationsFinished.WithLabelValues(status).Inc()
	m.migrationSeconds.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (m *Metrics) VMsDiscovered(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.vmsDiscovered.Add(float64(count))
}

func (m *Metrics) VMAnalyzed(result string) {
	if m == nil {
		return
	}
	m.vmsAnalyzed.WithLabelValues(result).Inc()
}

func (m *Metrics) JobEnqueued(kind string) {
	if m == nil {
		return
	}
	m.jobsEnqueued.WithLabelValues(kind).Inc()
}
