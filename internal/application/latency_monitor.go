package application

import (
	"context"

	"latency-monitor/internal/domain/entity"
	domainRepo "latency-monitor/internal/domain/repository"
	"latency-monitor/internal/metrics"

	"go.uber.org/zap"
)

// NetworkLatencyKey is the error slot shared by every latency monitor.
var NetworkLatencyKey = entity.CompositeKey{"slowQueries"}

// NetworkLatencyClassification tags the entry raised for slow queries.
const NetworkLatencyClassification = "NetworkLatency"

// Translation keys of the network latency entry.
const (
	NetworkLatencyTitleKey   = "errors.networkLatency.title"
	NetworkLatencyMessageKey = "errors.networkLatency.message"
)

// MonitorState is the outcome of one latency monitor evaluation.
type MonitorState string

const (
	StateQuiet      MonitorState = "quiet"
	StateTriggering MonitorState = "triggering"
	StateActive     MonitorState = "active"
	StateResolving  MonitorState = "resolving"
)

// Translator resolves a message key to user-facing text.
type Translator interface {
	T(key string) string
}

// SnapshotSource is the read side of the slow-query bridge.
type SnapshotSource interface {
	Subscribe(onChange func()) (unsubscribe func())
	GetSnapshot() entity.DetectionSnapshot
}

// LatencyMonitor raises and clears the network latency entry of the error
// store as the slow-query count crosses zero.
type LatencyMonitor struct {
	name     string
	bridge   SnapshotSource
	store    domainRepo.ErrorStore
	i18n     Translator
	priority int
	logger   *zap.Logger
	metrics  *metrics.Metrics
	wake     chan struct{}
}

// NewLatencyMonitor creates a monitor. m may be nil.
func NewLatencyMonitor(
	name string,
	bridge SnapshotSource,
	store domainRepo.ErrorStore,
	i18n Translator,
	priority int,
	logger *zap.Logger,
	m *metrics.Metrics,
) *LatencyMonitor {
	return &LatencyMonitor{
		name:     name,
		bridge:   bridge,
		store:    store,
		i18n:     i18n,
		priority: priority,
		logger:   logger.Named("LatencyMonitor").With(zap.String("monitor", name)),
		metrics:  m,
		wake:     make(chan struct{}, 1),
	}
}

// Run evaluates the monitor on every bridge notification until ctx is done.
func (m *LatencyMonitor) Run(ctx context.Context) {
	unsubscribe := m.bridge.Subscribe(m.notify)
	defer unsubscribe()

	m.logger.Info("Latency monitor started")
	m.Evaluate()

	for {
		select {
		case <-m.wake:
			m.Evaluate()
		case <-ctx.Done():
			m.logger.Info("Latency monitor stopping due to context cancellation.")
			return
		}
	}
}

// notify wakes the run loop. Bursts collapse into one pending evaluation.
func (m *LatencyMonitor) notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Evaluate reads a fresh snapshot and applies the matching transition.
func (m *LatencyMonitor) Evaluate() MonitorState {
	snapshot := m.bridge.GetSnapshot()
	_, active := m.store.State().Get(NetworkLatencyKey)
	m.metrics.SetSlowQueries(snapshot.SlowCount)

	switch {
	case snapshot.SlowCount > 0 && !active:
		m.logger.Warn("Slow queries detected, raising network latency error",
			zap.Int("slowCount", snapshot.SlowCount),
		)
		m.store.Dispatch(entity.SetError(m.entry()))
		m.metrics.ObserveTransition(string(StateTriggering))
		return StateTriggering

	case snapshot.SlowCount > 0:
		return StateActive

	case active:
		m.logger.Info("No slow queries left, clearing network latency error")
		m.store.Dispatch(entity.ClearError(NetworkLatencyKey))
		m.metrics.ObserveTransition(string(StateResolving))
		return StateResolving

	default:
		return StateQuiet
	}
}

func (m *LatencyMonitor) entry() entity.ErrorEntry {
	return entity.ErrorEntry{
		Key:            NetworkLatencyKey.Clone(),
		Title:          m.i18n.T(NetworkLatencyTitleKey),
		Message:        m.i18n.T(NetworkLatencyMessageKey),
		Classification: NetworkLatencyClassification,
		Priority:       m.priority,
	}
}
