// Package metrics exposes the server's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cohortscope"

// Metrics holds every instrument on a private registry so tests can build
// as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	GeneratorRuns      *prometheus.CounterVec
	GeneratorDuration  *prometheus.HistogramVec
	Transitions        *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
	ChartCacheRequests *prometheus.CounterVec
	ChartRenderSeconds *prometheus.HistogramVec
	ContrastJobs       *prometheus.CounterVec
	ContrastQueueDepth prometheus.Gauge
}

// New registers all instruments, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)

	m := &Metrics{
		registry: reg,
		GeneratorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_runs_total",
			Help:      "Synthetic dataset draws by generator.",
		}, []string{"generator"}),
		GeneratorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_duration_seconds",
			Help:      "Time spent drawing a synthetic dataset.",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"generator"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_transitions_total",
			Help:      "Navigation actions by outcome.",
		}, []string{"action", "result"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Dashboard sessions currently held in memory.",
		}),
		ChartCacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_cache_requests_total",
			Help:      "Chart cache lookups by result.",
		}, []string{"chart", "result"}),
		ChartRenderSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chart_render_duration_seconds",
			Help:      "Time spent rendering a chart PNG.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chart"}),
		ContrastJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contrast_jobs_total",
			Help:      "Outcome contrast jobs by final status.",
		}, []string{"status"}),
		ContrastQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contrast_queue_depth",
			Help:      "Contrast jobs waiting for a worker.",
		}),
	}

	reg.MustRegister(
		m.GeneratorRuns,
		m.GeneratorDuration,
		m.Transitions,
		m.ActiveSessions,
		m.ChartCacheRequests,
		m.ChartRenderSeconds,
		m.ContrastJobs,
		m.ContrastQueueDepth,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveGenerator records one generator draw.
func (m *Metrics) ObserveGenerator(name string, start time.Time) {
	if m == nil {
		return
	}
	m.GeneratorRuns.WithLabelValues(name).Inc()
	m.GeneratorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// ObserveTransition records a navigation action.
func (m *Metrics) ObserveTransition(action string, accepted bool) {
	if m == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "ignored"
	}
	m.Transitions.WithLabelValues(action, result).Inc()
}

// ObserveChartCache records a chart cache hit or miss.
func (m *Metrics) ObserveChartCache(chart string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ChartCacheRequests.WithLabelValues(chart, result).Inc()
}

// ObserveChartRender records the time spent rendering a chart.
func (m *Metrics) ObserveChartRender(chart string, start time.Time) {
	if m == nil {
		return
	}
	m.ChartRenderSeconds.WithLabelValues(chart).Observe(time.Since(start).Seconds())
}

// ObserveContrastJob records a job reaching a terminal status.
func (m *Metrics) ObserveContrastJob(status string) {
	if m == nil {
		return
	}
	m.ContrastJobs.WithLabelValues(status).Inc()
}

// SetQueueDepth publishes the contrast queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.ContrastQueueDepth.Set(float64(n))
}

// SetActiveSessions publishes the session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
