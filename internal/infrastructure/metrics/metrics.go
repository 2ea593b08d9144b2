package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dashboard"

// Metrics bundles every collector the dashboard exports.
type Metrics struct {
	gatherer prometheus.Gatherer

	RemoteRequests *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec

	GatewayReads     *prometheus.CounterVec
	GatewayFallbacks *prometheus.CounterVec
	Degraded         prometheus.Gauge

	PushEvents    *prometheus.CounterVec
	PushConnected prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		RemoteRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Calls to the remote civic-issue service by outcome",
		}, []string{"method", "endpoint", "outcome"}),
		RemoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of calls to the remote civic-issue service",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		GatewayReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_reads_total",
			Help:      "Gateway reads by the source that answered them",
		}, []string{"operation", "source"}),
		GatewayFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_fallbacks_total",
			Help:      "Reads answered from synthetic data, by reason",
		}, []string{"operation", "reason"}),
		Degraded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_degraded",
			Help:      "1 while reads bypass the remote service",
		}),

		PushEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push events received by name",
		}, []string{"event"}),
		PushConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_connected",
			Help:      "1 while the push channel is connected",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// SetDegraded flips the degraded gauge.
func (m *Metrics) SetDegraded(degraded bool) {
	m.Degraded.Set(boolGauge(degraded))
}

// SetPushConnected flips the push connection gauge.
func (m *Metrics) SetPushConnected(connected bool) {
	m.PushConnected.Set(boolGauge(connected))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
