package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"latency-monitor/internal/metrics"
)

func TestMetrics_Record(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.SetSlowQueries(3)
	m.SetActiveErrors(1)
	m.ObserveDispatch("SET_ERROR")
	m.ObserveDispatch("SET_ERROR")
	m.ObserveTransition("triggering")
	m.ObserveProbe(true, 50*time.Millisecond)
	m.ObserveProbe(false, time.Second)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.SlowQueries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("SET_ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("triggering")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Probes.WithLabelValues("working")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Probes.WithLabelValues("failed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.SetSlowQueries(1)
		m.SetActiveErrors(1)
		m.ObserveDispatch("CLEAR_ERROR")
		m.ObserveTransition("resolving")
		m.ObserveProbe(true, time.Millisecond)
	})
}
