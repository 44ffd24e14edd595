package repository

import (
	"latency-monitor/internal/domain/entity"
)

// QuerySource is a read/subscribe view over the asynchronous query cache.
type QuerySource interface {
	// GetAll returns a snapshot of every tracked query record.
	GetAll() []entity.QueryRecord

	// Subscribe registers listener for cache mutations. It may fire spuriously.
	// The returned function removes the listener.
	Subscribe(listener func()) (unsubscribe func())
}

// QueryCache is the writable side of the query cache, owned by the request layer.
type QueryCache interface {
	QuerySource

	MarkPending(key entity.CompositeKey)
	MarkSuccess(key entity.CompositeKey)
	MarkError(key entity.CompositeKey, err error)
	AddObserver(key entity.CompositeKey)
	RemoveObserver(key entity.CompositeKey)
}
