// Package metrics exposes the Prometheus collectors shared by the SDK.
//
// Collectors are registered on the default registry the first time they are
// requested. All observer methods are safe on a nil receiver.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics tracks JSON-RPC traffic towards the chain provider.
type ClientMetrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// IntegrationMetrics tracks participant discovery and balance queries.
type IntegrationMetrics struct {
	scanWindows  *prometheus.CounterVec
	participants *prometheus.GaugeVec
	balances     *prometheus.CounterVec
}

var (
	clientOnce     sync.Once
	clientRegistry *ClientMetrics

	integrationOnce     sync.Once
	integrationRegistry *IntegrationMetrics
)

// Client returns the process-wide RPC collectors.
func Client() *ClientMetrics {
	clientOnce.Do(func() {
		clientRegistry = &ClientMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rpc_requests_total",
				Help: "Count of JSON-RPC requests by method and result.",
			}, []string{"method", "result"}),
			retries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rpc_retries_total",
				Help: "Count of JSON-RPC retry attempts by method.",
			}, []string{"method"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "rpc_request_duration_seconds",
				Help:    "Latency of JSON-RPC requests including retries.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			clientRegistry.requests,
			clientRegistry.retries,
			clientRegistry.latency,
		)
	})
	return clientRegistry
}

// ObserveRequest records one completed request.
func (m *ClientMetrics) ObserveRequest(method, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, result).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRetry records one retry attempt.
func (m *ClientMetrics) ObserveRetry(method string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(method).Inc()
}

// Integrations returns the process-wide integration collectors.
func Integrations() *IntegrationMetrics {
	integrationOnce.Do(func() {
		integrationRegistry = &IntegrationMetrics{
			scanWindows: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "integration_scan_windows_total",
				Help: "Count of log scan windows fetched during participant discovery.",
			}, []string{"integration"}),
			participants: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "integration_participants",
				Help: "Number of participants found by the last completed discovery.",
			}, []string{"integration"}),
			balances: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "integration_balance_queries_total",
				Help: "Count of balance queries by outcome (ok, zero, error).",
			}, []string{"integration", "outcome"}),
		}
		prometheus.MustRegister(
			integrationRegistry.scanWindows,
			integrationRegistry.participants,
			integrationRegistry.balances,
		)
	})
	return integrationRegistry
}

func (m *IntegrationMetrics) ObserveScanWindow(integration string) {
	if m == nil {
		return
	}
	m.scanWindows.WithLabelValues(integration).Inc()
}

func (m *IntegrationMetrics) SetParticipants(integration string, count int) {
	if m == nil {
		return
	}
	m.participants.WithLabelValues(integration).Set(float64(count))
}

func (m *IntegrationMetrics) ObserveBalance(integration, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.balances.WithLabelValues(integration, outcome).Inc()
}
