package analytics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors the gateway exposes on /metrics.
// Each Metrics owns its registry so tests can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	exchangesTotal   *prometheus.CounterVec
	toolCallsTotal   *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collector set.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.exchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skydesk_exchanges_total",
			Help: "Total exchanges handled, by backend and outcome",
		},
		[]string{"backend", "status"},
	)
	m.toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skydesk_tool_calls_total",
			Help: "Total tool invocations, by tool",
		},
		[]string{"tool"},
	)
	m.exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skydesk_exchange_duration_seconds",
			Help:    "Exchange latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	m.registry.MustRegister(m.exchangesTotal, m.toolCallsTotal, m.exchangeDuration)
	return m
}

// Handler returns the /metrics HTTP handler for this collector set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(in Interaction) {
	status := "success"
	if in.Error != "" {
		status = "failure"
	}
	m.exchangesTotal.WithLabelValues(in.Backend, status).Inc()
	for _, tool := range in.ToolsUsed {
		m.toolCallsTotal.WithLabelValues(tool).Inc()
	}
	m.exchangeDuration.WithLabelValues(in.Backend).Observe(in.ResponseTimeMS / 1000)
}
