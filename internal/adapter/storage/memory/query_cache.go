package memory

import (
	"fmt"
	"sync"
	"time"

	"latency-monitor/internal/config"
	"latency-monitor/internal/domain/entity"
	domainRepo "latency-monitor/internal/domain/repository"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.QueryCache = (*QueryCache)(nil)

// QueryCache tracks asynchronous query records in a go-cache instance and
// notifies subscribers on every mutation, including expiry of idle records.
//
// Records that are pending, fetching or observed never expire; finished, unobserved
// records expire after the configured default expiration.
type QueryCache struct {
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex // serializes read-modify-write of records

	listenersMu sync.RWMutex
	listeners   map[uint64]func()
	nextID      uint64
}

// NewQueryCache creates a new in-memory query cache.
func NewQueryCache(cfg config.CacheConfig, logger *zap.Logger) *QueryCache {
	defaultExpiration := cfg.GetDefaultExpiration()
	cleanupInterval := cfg.GetCleanupInterval()

	q := &QueryCache{
		cache:     cache.New(defaultExpiration, cleanupInterval),
		logger:    logger.Named("QueryCache"),
		now:       time.Now,
		listeners: make(map[uint64]func()),
	}
	q.cache.OnEvicted(func(key string, _ interface{}) {
		q.logger.Debug("Query record evicted", zap.String("key", key))
		q.notify()
	})

	logger.Info(
		"Initialized go-cache for query records",
		zap.Duration("defaultExpiration", defaultExpiration),
		zap.Duration("cleanupInterval", cleanupInterval),
	)
	return q
}

// SetClock replaces the time source used to stamp record updates.
func (q *QueryCache) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// GetAll returns a copy of every live record.
func (q *QueryCache) GetAll() []entity.QueryRecord {
	items := q.cache.Items()
	records := make([]entity.QueryRecord, 0, len(items))
	for key, item := range items {
		rec, ok := item.Object.(entity.QueryRecord)
		if !ok {
			q.logger.Warn("Query cache data type mismatch for key",
				zap.String("key", key), zap.String("type", fmt.Sprintf("%T", item.Object)),
			)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// Get returns the record stored for key.
func (q *QueryCache) Get(key entity.CompositeKey) (entity.QueryRecord, bool) {
	x, found := q.cache.Get(key.Canonical())
	if !found {
		return entity.QueryRecord{}, false
	}
	rec, ok := x.(entity.QueryRecord)
	return rec, ok
}

// Subscribe registers listener for mutation events.
func (q *QueryCache) Subscribe(listener func()) func() {
	q.listenersMu.Lock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = listener
	q.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.listenersMu.Lock()
			delete(q.listeners, id)
			q.listenersMu.Unlock()
		})
	}
}

// MarkPending records that a fetch of key started, creating the record if needed.
// Only a record that never received data moves to pending; a refetch keeps the
// current status and LastUpdatedAt and only sets Fetching.
func (q *QueryCache) MarkPending(key entity.CompositeKey) {
	q.update(key, func(r *entity.QueryRecord) {
		r.Fetching = true
		if r.LastUpdatedAt.IsZero() {
			r.Status = entity.QueryPending
			r.Err = ""
		}
	})
}

// MarkSuccess moves the record for key to success and stamps LastUpdatedAt.
func (q *QueryCache) MarkSuccess(key entity.CompositeKey) {
	q.update(key, func(r *entity.QueryRecord) {
		r.Status = entity.QuerySuccess
		r.Fetching = false
		r.LastUpdatedAt = q.now()
		r.Err = ""
	})
}

// MarkError moves the record for key to error.
func (q *QueryCache) MarkError(key entity.CompositeKey, err error) {
	q.update(key, func(r *entity.QueryRecord) {
		r.Status = entity.QueryError
		r.Fetching = false
		if err != nil {
			r.Err = err.Error()
		}
	})
}

// AddObserver increments the active observer count of key.
func (q *QueryCache) AddObserver(key entity.CompositeKey) {
	q.update(key, func(r *entity.QueryRecord) {
		r.ActiveObservers++
	})
}

// RemoveObserver decrements the active observer count of key, never below zero.
func (q *QueryCache) RemoveObserver(key entity.CompositeKey) {
	q.update(key, func(r *entity.QueryRecord) {
		if r.ActiveObservers > 0 {
			r.ActiveObservers--
		}
	})
}

// Remove drops the record for key. Subscribers are notified through eviction.
func (q *QueryCache) Remove(key entity.CompositeKey) {
	q.cache.Delete(key.Canonical())
}

func (q *QueryCache) update(key entity.CompositeKey, mutate func(*entity.QueryRecord)) {
	canonical := key.Canonical()

	q.mu.Lock()
	rec, found := q.Get(key)
	if !found {
		rec = entity.QueryRecord{Key: key.Clone(), Status: entity.QueryIdle}
	}
	mutate(&rec)

	ttl := cache.DefaultExpiration
	if rec.Status == entity.QueryPending || rec.Fetching || rec.ActiveObservers > 0 {
		ttl = cache.NoExpiration
	}
	q.cache.Set(canonical, rec, ttl)
	q.mu.Unlock()

	q.logger.Debug("Query record updated",
		zap.String("key", canonical),
		zap.String("status", string(rec.Status)),
		zap.Bool("fetching", rec.Fetching),
		zap.Int("observers", rec.ActiveObservers),
	)
	q.notify()
}

func (q *QueryCache) notify() {
	q.listenersMu.RLock()
	listeners := make([]func(), 0, len(q.listeners))
	for _, l := range q.listeners {
		listeners = append(listeners, l)
	}
	q.listenersMu.RUnlock()

	for _, l := range listeners {
		l()
	}
}
