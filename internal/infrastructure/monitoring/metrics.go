// Package monitoring holds the Prometheus metrics and the gin middleware
// recording them.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Workspace metrics
	SessionsActive prometheus.Gauge
	TabsActive     prometheus.Gauge
	SavesTotal     prometheus.Counter
	ImportsTotal   *prometheus.CounterVec

	// Bridge metrics
	BridgeFetches *prometheus.CounterVec
	WSConnections prometheus.Gauge
}

// NewMetrics creates and registers the metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabflow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabflow_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabflow_sessions_active",
				Help: "Number of sessions in the workspace",
			},
		),
		TabsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabflow_tabs_active",
				Help: "Number of tabs across all sessions",
			},
		),
		SavesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tabflow_workspace_saves_total",
				Help: "Total number of workspace snapshot writes",
			},
		),
		ImportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabflow_workspace_imports_total",
				Help: "Total number of snapshot imports by result",
			},
			[]string{"result"},
		),
		BridgeFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabflow_bridge_fetches_total",
				Help: "Total number of bridge fetches by result",
			},
			[]string{"result"},
		),
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tabflow_ws_connections",
				Help: "Number of active extension connections",
			},
		),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWorkspace updates the workspace gauges. Implements
// workspace.Observer.
func (m *Metrics) RecordWorkspace(sessions, tabs int) {
	m.SessionsActive.Set(float64(sessions))
	m.TabsActive.Set(float64(tabs))
}

// RecordSave counts one snapshot write. Implements workspace.Observer.
func (m *Metrics) RecordSave() {
	m.SavesTotal.Inc()
}

// RecordImport counts one import attempt by result.
func (m *Metrics) RecordImport(result string) {
	m.ImportsTotal.WithLabelValues(result).Inc()
}

// RecordFetch counts one bridge fetch by result. Implements
// bridge.Observer.
func (m *Metrics) RecordFetch(result string) {
	m.BridgeFetches.WithLabelValues(result).Inc()
}

// WSConnected increments the extension connection gauge. Implements
// ws.ConnObserver.
func (m *Metrics) WSConnected() {
	m.WSConnections.Inc()
}

// WSDisconnected decrements the extension connection gauge.
func (m *Metrics) WSDisconnected() {
	m.WSConnections.Dec()
}
