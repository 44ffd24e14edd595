package memory

import (
	"sync"

	"latency-monitor/internal/domain/entity"
	domainRepo "latency-monitor/internal/domain/repository"
	"latency-monitor/internal/metrics"

	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.ErrorStore = (*ErrorStore)(nil)

// ErrorStore is the in-memory global error table.
type ErrorStore struct {
	mu      sync.RWMutex
	errors  map[string]entity.ErrorEntry
	version uint64
	logger  *zap.Logger
	metrics *metrics.Metrics

	listenersMu sync.RWMutex
	listeners   map[uint64]func(entity.GlobalErrorState)
	nextID      uint64
}

// NewErrorStore creates an empty error store. m may be nil.
func NewErrorStore(logger *zap.Logger, m *metrics.Metrics) *ErrorStore {
	return &ErrorStore{
		errors:    make(map[string]entity.ErrorEntry),
		logger:    logger.Named("ErrorStore"),
		metrics:   m,
		listeners: make(map[uint64]func(entity.GlobalErrorState)),
	}
}

// Reduce applies action to errors and reports whether the table changed.
// It never modifies its input; a changed table is returned as a fresh map.
func Reduce(errors map[string]entity.ErrorEntry, action entity.Action) (map[string]entity.ErrorEntry, bool) {
	switch action.Type {
	case entity.ActionSetError:
		key := action.Entry.Key.Canonical()
		if prev, ok := errors[key]; ok && sameEntry(prev, action.Entry) {
			return errors, false
		}
		next := copyErrors(errors)
		entry := action.Entry
		entry.Key = entry.Key.Clone()
		next[key] = entry
		return next, true

	case entity.ActionClearError:
		key := action.Clear.Key.Canonical()
		if _, ok := errors[key]; !ok {
			return errors, false
		}
		next := copyErrors(errors)
		delete(next, key)
		return next, true

	default:
		return errors, false
	}
}

// Dispatch applies action atomically and notifies subscribers if the table changed.
func (s *ErrorStore) Dispatch(action entity.Action) {
	switch action.Type {
	case entity.ActionSetError, entity.ActionClearError:
	default:
		s.logger.Warn("Ignoring unknown error store action", zap.String("type", string(action.Type)))
		return
	}
	s.metrics.ObserveDispatch(string(action.Type))

	s.mu.Lock()
	next, changed := Reduce(s.errors, action)
	if changed {
		s.errors = next
		s.version++
	}
	version := s.version
	s.mu.Unlock()

	if !changed {
		s.logger.Debug("Error store action had no effect", zap.String("type", string(action.Type)))
		return
	}

	s.logger.Info("Error store updated",
		zap.String("type", string(action.Type)),
		zap.Int("active", len(next)),
		zap.Uint64("version", version),
	)
	s.metrics.SetActiveErrors(len(next))

	s.listenersMu.RLock()
	listeners := make([]func(entity.GlobalErrorState), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()
	for _, l := range listeners {
		l(entity.GlobalErrorState{Errors: copyErrors(next), Version: version})
	}
}

// State returns a copy of the current table.
func (s *ErrorStore) State() entity.GlobalErrorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entity.GlobalErrorState{Errors: copyErrors(s.errors), Version: s.version}
}

// Subscribe registers listener for table changes.
// Listeners run outside the store lock, so concurrent dispatches may deliver
// states out of order; a listener that cares keeps the highest Version it saw.
func (s *ErrorStore) Subscribe(listener func(entity.GlobalErrorState)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func copyErrors(in map[string]entity.ErrorEntry) map[string]entity.ErrorEntry {
	out := make(map[string]entity.ErrorEntry, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sameEntry(a, b entity.ErrorEntry) bool {
	return a.Key.Canonical() == b.Key.Canonical() &&
		a.Title == b.Title &&
		a.Message == b.Message &&
		a.Classification == b.Classification &&
		a.Priority == b.Priority
}
