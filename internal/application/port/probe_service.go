package port

import (
	"latency-monitor/internal/domain/entity"
)

// ProbeService exposes the latest RPC endpoint probe results.
type ProbeService interface {
	// Results returns the latest probe result of every watched endpoint, ordered by URL.
	Results() []entity.ProbeResult
}

// SnapshotReader exposes the current slow-query detection snapshot.
type SnapshotReader interface {
	GetSnapshot() entity.DetectionSnapshot
}
