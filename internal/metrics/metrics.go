// Package metrics exposes Prometheus instrumentation for the latency monitor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "latency_monitor"

// Metrics groups the collectors updated by the monitor components.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SlowQueries  prometheus.Gauge
	ActiveErrors prometheus.Gauge
	Dispatches   *prometheus.CounterVec
	Transitions  *prometheus.CounterVec
	Probes       *prometheus.CounterVec
	ProbeLatency prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SlowQueries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slow_queries",
			Help:      "Number of observed queries pending longer than the slow threshold.",
		}),
		ActiveErrors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_errors",
			Help:      "Number of entries in the global error table.",
		}),
		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "error_dispatches_total",
			Help:      "Actions dispatched to the global error store.",
		}, []string{"action"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_transitions_total",
			Help:      "Latency monitor state transitions that produced a dispatch.",
		}, []string{"state"}),
		Probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_probes_total",
			Help:      "RPC endpoint probes by outcome.",
		}, []string{"outcome"}),
		ProbeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_probe_duration_seconds",
			Help:      "Duration of RPC endpoint probes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
	}
}

func (m *Metrics) SetSlowQueries(n int) {
	if m == nil {
		return
	}
	m.SlowQueries.Set(float64(n))
}

func (m *Metrics) SetActiveErrors(n int) {
	if m == nil {
		return
	}
	m.ActiveErrors.Set(float64(n))
}

func (m *Metrics) ObserveDispatch(action string) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveTransition(state string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(state).Inc()
}

// ObserveProbe records the outcome and duration of one endpoint probe.
func (m *Metrics) ObserveProbe(working bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failed"
	if working {
		outcome = "working"
	}
	m.Probes.WithLabelValues(outcome).Inc()
	m.ProbeLatency.Observe(d.Seconds())
}
