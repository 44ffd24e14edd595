package service

import (
	"time"

	"latency-monitor/internal/domain/entity"
)

// DetectSlowQueries counts the records that are pending, actively observed,
// and have not been updated for longer than threshold.
//
// Age is measured from the later of the record's LastUpdatedAt and referenceTime,
// so queries that were already stale when monitoring began only count once they
// stay pending for a full threshold inside the monitored session.
func DetectSlowQueries(
	records []entity.QueryRecord,
	referenceTime, now time.Time,
	threshold time.Duration,
) int {
	slow := 0
	for _, r := range records {
		if r.Status != entity.QueryPending || r.ActiveObservers <= 0 {
			continue
		}
		since := r.LastUpdatedAt
		if referenceTime.After(since) {
			since = referenceTime
		}
		if now.Sub(since) > threshold {
			slow++
		}
	}
	return slow
}

// Snapshot wraps DetectSlowQueries into a DetectionSnapshot.
func Snapshot(
	records []entity.QueryRecord,
	referenceTime, now time.Time,
	threshold time.Duration,
) entity.DetectionSnapshot {
	return entity.DetectionSnapshot{SlowCount: DetectSlowQueries(records, referenceTime, now, threshold)}
}
