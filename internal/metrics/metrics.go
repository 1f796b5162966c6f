// Package metrics exposes Prometheus counters for the camera session.
//
// A nil *Metrics is valid and records nothing, so components can be
// constructed without metrics in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ptzlink"

// Metrics holds the collectors registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	pollCycles       prometheus.Counter
	pollSkipped      prometheus.Counter
	endpointFailures *prometheus.CounterVec
	lastPoll         prometheus.Gauge
	reconciliations  *prometheus.CounterVec
	transportStatus  *prometheus.GaugeVec
	commandFailures  prometheus.Counter
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Telemetry poll cycles started.",
		}),
		pollSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_skipped_total",
			Help:      "Timer ticks skipped because a cycle was still in flight.",
		}),
		endpointFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_endpoint_failures_total",
			Help:      "Failed telemetry fetches by endpoint.",
		}, []string{"endpoint"}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle with at least one successful endpoint.",
		}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Configuration reconciliations by outcome.",
		}, []string{"outcome"}),
		transportStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_status",
			Help:      "1 for the current command channel status, 0 otherwise.",
		}, []string{"status"}),
		commandFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_failures_total",
			Help:      "VISCA commands that returned an error.",
		}),
	}

	m.registry.MustRegister(
		m.pollCycles,
		m.pollSkipped,
		m.endpointFailures,
		m.lastPoll,
		m.reconciliations,
		m.transportStatus,
		m.commandFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CycleStarted records the start of a poll cycle
func (m *Metrics) CycleStarted() {
	if m == nil {
		return
	}
	m.pollCycles.Inc()
}

// CycleSucceeded records a cycle in which at least one endpoint answered
func (m *Metrics) CycleSucceeded(at time.Time) {
	if m == nil {
		return
	}
	m.lastPoll.Set(float64(at.Unix()))
}

// TickSkipped records a timer tick dropped by the in-flight guard
func (m *Metrics) TickSkipped() {
	if m == nil {
		return
	}
	m.pollSkipped.Inc()
}

// EndpointFailed records a failed fetch of one telemetry endpoint
func (m *Metrics) EndpointFailed(endpoint string) {
	if m == nil {
		return
	}
	m.endpointFailures.WithLabelValues(endpoint).Inc()
}

// Reconciled records the outcome of one reconciliation
func (m *Metrics) Reconciled(outcome string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(outcome).Inc()
}

// TransportStatus marks status as the current command channel status
func (m *Metrics) TransportStatus(status string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		m.transportStatus.WithLabelValues(s).Set(0)
	}
	m.transportStatus.WithLabelValues(status).Set(1)
}

// CommandFailed records a failed VISCA command
func (m *Metrics) CommandFailed() {
	if m == nil {
		return
	}
	m.commandFailures.Inc()
}
