package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes counters/histograms for generation calls and rules updates.
type Metrics struct {
	registry          *prometheus.Registry
	generationTotal   *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	rulesUpdatesTotal *prometheus.CounterVec
	rulesReloadsTotal *prometheus.CounterVec
}

// New registers the collectors on a private registry so tests can build
// as many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quote_assistant",
			Subsystem: "gemini",
			Name:      "requests_total",
			Help:      "Total generation requests by payload mode and outcome",
		}, []string{"mode", "status"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quote_assistant",
			Subsystem: "gemini",
			Name:      "request_duration_seconds",
			Help:      "Latency of Gemini generation calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"mode"}),
		rulesUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quote_assistant",
			Subsystem: "rules",
			Name:      "updates_total",
			Help:      "Total rules update attempts by outcome",
		}, []string{"status"}),
		rulesReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quote_assistant",
			Subsystem: "rules",
			Name:      "reloads_total",
			Help:      "Rules reloads triggered by update notifications",
		}, []string{"status"}),
	}
	reg.MustRegister(
		m.generationTotal,
		m.generationLatency,
		m.rulesUpdatesTotal,
		m.rulesReloadsTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveGeneration(mode, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(mode, status).Inc()
	if elapsed > 0 {
		m.generationLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveRulesUpdate(status string) {
	if m == nil {
		return
	}
	m.rulesUpdatesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRulesReload(status string) {
	if m == nil {
		return
	}
	m.rulesReloadsTotal.WithLabelValues(status).Inc()
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
