package application

import (
	"context"
	"sync"

	"latency-monitor/internal/domain/entity"
	domainRepo "latency-monitor/internal/domain/repository"
	"latency-monitor/internal/pkg/notify"

	"go.uber.org/zap"
)

// QueryClient runs asynchronous reads through the query cache so their
// status is visible to observers of the cache.
type QueryClient struct {
	cache    domainRepo.QueryCache
	notifier *notify.Manager
	logger   *zap.Logger
}

// NewQueryClient creates a query client over cache.
func NewQueryClient(cache domainRepo.QueryCache, notifier *notify.Manager, logger *zap.Logger) *QueryClient {
	return &QueryClient{
		cache:    cache,
		notifier: notifier,
		logger:   logger.Named("QueryClient"),
	}
}

// Fetch marks key pending, runs fn, and records its outcome.
func (c *QueryClient) Fetch(ctx context.Context, key entity.CompositeKey, fn func(context.Context) error) error {
	c.notifier.Batch(func() {
		c.cache.MarkPending(key)
	})

	err := fn(ctx)

	c.notifier.Batch(func() {
		if err != nil {
			c.cache.MarkError(key, err)
			return
		}
		c.cache.MarkSuccess(key)
	})
	if err != nil {
		c.logger.Debug("Query failed", zap.Stringer("key", key), zap.Error(err))
	}
	return err
}

// Observe marks key as actively observed until the returned release is called.
// Calling release more than once has no further effect.
func (c *QueryClient) Observe(key entity.CompositeKey) (release func()) {
	c.cache.AddObserver(key)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.cache.RemoveObserver(key)
		})
	}
}

// Batch runs fn with cache notifications deferred until it returns.
func (c *QueryClient) Batch(fn func()) {
	c.notifier.Batch(fn)
}
