package application

import (
	"sync"
	"sync/atomic"
	"time"

	"latency-monitor/internal/domain/entity"
	domainRepo "latency-monitor/internal/domain/repository"
	domainService "latency-monitor/internal/domain/service"
	"latency-monitor/internal/pkg/notify"

	"go.uber.org/zap"
)

// SlowQueryBridge turns query cache mutations into change notifications and
// exposes the current slow-query count as a side-effect free snapshot.
//
// Becoming slow is a time-based transition, so every mutation also arms a
// one-shot re-check that fires once the threshold has elapsed.
type SlowQueryBridge struct {
	source        domainRepo.QuerySource
	notifier      *notify.Manager
	threshold     time.Duration
	referenceTime time.Time
	now           func() time.Time
	logger        *zap.Logger
}

// BridgeOption customizes a SlowQueryBridge.
type BridgeOption func(*SlowQueryBridge)

// WithClock sets the time source. The reference time is taken from it at construction.
func WithClock(now func() time.Time) BridgeOption {
	return func(b *SlowQueryBridge) {
		b.now = now
	}
}

// WithReferenceTime overrides the start of the monitored session.
func WithReferenceTime(t time.Time) BridgeOption {
	return func(b *SlowQueryBridge) {
		b.referenceTime = t
	}
}

// NewSlowQueryBridge creates a bridge whose monitored session starts now.
func NewSlowQueryBridge(
	source domainRepo.QuerySource,
	notifier *notify.Manager,
	threshold time.Duration,
	logger *zap.Logger,
	opts ...BridgeOption,
) *SlowQueryBridge {
	b := &SlowQueryBridge{
		source:    source,
		notifier:  notifier,
		threshold: threshold,
		now:       time.Now,
		logger:    logger.Named("SlowQueryBridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.referenceTime.IsZero() {
		b.referenceTime = b.now()
	}
	return b
}

// Subscribe registers onChange for cache mutations and threshold re-checks.
// The returned function stops notifications and cancels pending re-checks.
func (b *SlowQueryBridge) Subscribe(onChange func()) func() {
	var (
		alive  atomic.Bool
		mu     sync.Mutex
		timers = make(map[*time.Timer]struct{})
	)
	alive.Store(true)

	notifyChange := b.notifier.BatchCalls(func() {
		if alive.Load() {
			onChange()
		}
	})

	unsubscribeSource := b.source.Subscribe(func() {
		if !alive.Load() {
			return
		}
		notifyChange()

		mu.Lock()
		defer mu.Unlock()
		if !alive.Load() {
			return
		}
		var t *time.Timer
		t = time.AfterFunc(b.threshold, func() {
			mu.Lock()
			delete(timers, t)
			mu.Unlock()

			if !alive.Load() {
				return
			}
			b.logger.Debug("Threshold elapsed, re-checking slow queries")
			notifyChange()
		})
		timers[t] = struct{}{}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			alive.Store(false)
			unsubscribeSource()

			mu.Lock()
			for t := range timers {
				t.Stop()
			}
			stopped := len(timers)
			timers = make(map[*time.Timer]struct{})
			mu.Unlock()

			b.logger.Debug("Bridge subscription closed", zap.Int("cancelledRechecks", stopped))
		})
	}
}

// GetSnapshot computes the slow-query count from the current cache contents.
func (b *SlowQueryBridge) GetSnapshot() entity.DetectionSnapshot {
	return domainService.Snapshot(b.source.GetAll(), b.referenceTime, b.now(), b.threshold)
}

// GetServerSnapshot is identical to GetSnapshot.
func (b *SlowQueryBridge) GetServerSnapshot() entity.DetectionSnapshot {
	return b.GetSnapshot()
}

// ReferenceTime returns the start of the monitored session.
func (b *SlowQueryBridge) ReferenceTime() time.Time {
	return b.referenceTime
}

// Threshold returns the slow-query detection threshold.
func (b *SlowQueryBridge) Threshold() time.Duration {
	return b.threshold
}
