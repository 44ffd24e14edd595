package application

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"latency-monitor/internal/domain/entity"
	"latency-monitor/internal/pkg/notify"
)

func pendingRecord(key string, updated time.Time, observers int) entity.QueryRecord {
	return entity.QueryRecord{
		Key:             entity.CompositeKey{key},
		Status:          entity.QueryPending,
		LastUpdatedAt:   updated,
		ActiveObservers: observers,
	}
}

func TestBridge_GetSnapshot(t *testing.T) {
	now := time.Now()
	src := newFakeSource(pendingRecord("q", now.Add(-6*time.Second), 1))
	b := NewSlowQueryBridge(src, notify.NewManager(), 5*time.Second, zap.NewNop(),
		WithClock(func() time.Time { return now }),
		WithReferenceTime(now.Add(-7*time.Second)),
	)

	assert.Equal(t, entity.DetectionSnapshot{SlowCount: 1}, b.GetSnapshot())
	assert.Equal(t, b.GetSnapshot(), b.GetServerSnapshot())
	// Repeated reads have no side effects.
	assert.Equal(t, 1, b.GetSnapshot().SlowCount)
}

func TestBridge_ReferenceTimeDefaultsToConstruction(t *testing.T) {
	now := time.Now()
	src := newFakeSource(pendingRecord("q", now.Add(-time.Hour), 1))
	b := NewSlowQueryBridge(src, notify.NewManager(), 5*time.Second, zap.NewNop(),
		WithClock(func() time.Time { return now }),
	)

	assert.Equal(t, now, b.ReferenceTime())
	assert.Zero(t, b.GetSnapshot().SlowCount)
}

func TestBridge_NotifiesOnMutation(t *testing.T) {
	src := newFakeSource()
	b := NewSlowQueryBridge(src, notify.NewManager(), time.Hour, zap.NewNop())

	var calls atomic.Int32
	unsubscribe := b.Subscribe(func() { calls.Add(1) })
	defer unsubscribe()

	src.put(pendingRecord("q", time.Now(), 1))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBridge_BatchCoalescesIntoOneFlush(t *testing.T) {
	src := newFakeSource()
	manager := notify.NewManager()
	b := NewSlowQueryBridge(src, manager, time.Hour, zap.NewNop())

	var calls atomic.Int32
	unsubscribe := b.Subscribe(func() { calls.Add(1) })
	defer unsubscribe()

	manager.Batch(func() {
		src.put(pendingRecord("a", time.Now(), 1))
		src.put(pendingRecord("b", time.Now(), 1))
		src.put(pendingRecord("c", time.Now(), 1))
		assert.Zero(t, calls.Load(), "nothing delivered inside the batch")
	})
	assert.Equal(t, int32(1), calls.Load())
}

func TestBridge_RecheckFiresWithoutFurtherMutation(t *testing.T) {
	threshold := 30 * time.Millisecond
	src := newFakeSource()
	b := NewSlowQueryBridge(src, notify.NewManager(), threshold, zap.NewNop())

	var calls atomic.Int32
	unsubscribe := b.Subscribe(func() { calls.Add(1) })
	defer unsubscribe()

	src.put(pendingRecord("q", time.Now(), 1))
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, b.GetSnapshot().SlowCount)

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.GetSnapshot().SlowCount)
}

func TestBridge_UnsubscribeCancelsRechecks(t *testing.T) {
	threshold := 20 * time.Millisecond
	src := newFakeSource()
	b := NewSlowQueryBridge(src, notify.NewManager(), threshold, zap.NewNop())

	var calls atomic.Int32
	unsubscribe := b.Subscribe(func() { calls.Add(1) })

	src.put(pendingRecord("q", time.Now(), 1))
	unsubscribe()
	unsubscribe()
	assert.Zero(t, src.listenerCount())

	time.Sleep(5 * threshold)
	assert.Equal(t, int32(1), calls.Load(), "no notification after unsubscribe")
}
