// Package metrics exposes check counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gamscheck"

// Metrics holds the collectors of one process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessions      *prometheus.CounterVec
	inflight      prometheus.Gauge
	duration      *prometheus.HistogramVec
	diagnostics   prometheus.Counter
	skippedBlocks prometheus.Counter
	unmapped      prometheus.Counter
	cleanupFails  prometheus.Counter
	spawnFails    prometheus.Counter
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished check sessions by final status.",
		}, []string{"status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_inflight",
			Help:      "Check sessions currently running.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of check stages.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics delivered to callers.",
		}),
		skippedBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_blocks_skipped_total",
			Help:      "Listing blocks dropped because they were malformed.",
		}),
		unmapped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_unmapped_total",
			Help:      "Listing records whose line was outside the checked buffer.",
		}),
		cleanupFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Artifacts that could not be removed.",
		}),
		spawnFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawn_failures_total",
			Help:      "Compiler processes that could not be started.",
		}),
	}
	m.registry.MustRegister(
		m.sessions, m.inflight, m.duration, m.diagnostics,
		m.skippedBlocks, m.unmapped, m.cleanupFails, m.spawnFails,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// SessionFinished records the final status and the number of delivered diagnostics.
func (m *Metrics) SessionFinished(status string, diagnostics int) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.sessions.WithLabelValues(status).Inc()
	m.diagnostics.Add(float64(diagnostics))
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) BlocksSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedBlocks.Add(float64(n))
}

func (m *Metrics) RecordUnmapped() {
	if m == nil {
		return
	}
	m.unmapped.Inc()
}

func (m *Metrics) CleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFails.Inc()
}

func (m *Metrics) SpawnFailed() {
	if m == nil {
		return
	}
	m.spawnFails.Inc()
}
