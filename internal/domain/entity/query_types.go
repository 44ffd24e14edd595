package entity

import "time"

// QueryStatus is the lifecycle status of an asynchronous query record.
type QueryStatus string

// Known query statuses.
const (
	QueryIdle    QueryStatus = "idle"
	QueryPending QueryStatus = "pending"
	QuerySuccess QueryStatus = "success"
	QueryError   QueryStatus = "error"
)

// QueryRecord is a point-in-time view of one entry of the query cache.
// ActiveObservers == 0 means nothing currently renders the query.
// Status is pending only while a query without data loads; a refetch of a
// query that has data keeps its status and sets Fetching instead.
type QueryRecord struct {
	Key             CompositeKey `json:"key"`
	Status          QueryStatus  `json:"status"`
	Fetching        bool         `json:"isFetching"`
	LastUpdatedAt   time.Time    `json:"lastUpdatedAt"`
	ActiveObservers int          `json:"activeObservers"`
	Err             string       `json:"error,omitempty"`
}

// DetectionSnapshot is the derived result of a slow-query scan.
type DetectionSnapshot struct {
	SlowCount int `json:"slowCount"`
}
