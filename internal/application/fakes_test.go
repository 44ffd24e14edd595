package application

import (
	"context"
	"sync"
	"time"

	"latency-monitor/internal/domain/entity"
)

// fakeSource is an in-memory QuerySource whose mutations are driven by tests.
type fakeSource struct {
	mu        sync.Mutex
	records   map[string]entity.QueryRecord
	listeners map[int]func()
	nextID    int
}

func newFakeSource(records ...entity.QueryRecord) *fakeSource {
	s := &fakeSource{
		records:   make(map[string]entity.QueryRecord),
		listeners: make(map[int]func()),
	}
	for _, r := range records {
		s.records[r.Key.Canonical()] = r
	}
	return s
}

func (s *fakeSource) GetAll() []entity.QueryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.QueryRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

func (s *fakeSource) Subscribe(listener func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *fakeSource) listenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// put stores r and fires a mutation event.
func (s *fakeSource) put(r entity.QueryRecord) {
	s.mu.Lock()
	s.records[r.Key.Canonical()] = r
	listeners := make([]func(), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// fakeTranslator echoes keys back.
type fakeTranslator struct{}

func (fakeTranslator) T(key string) string { return "t:" + key }

// fakeChecker is an RPCChecker whose behaviour is set per URL.
type fakeChecker struct {
	mu      sync.Mutex
	delay   time.Duration
	failing map[entity.RPCURL]error
	calls   map[entity.RPCURL]int
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{
		failing: make(map[entity.RPCURL]error),
		calls:   make(map[entity.RPCURL]int),
	}
}

func (c *fakeChecker) CheckRPC(ctx context.Context, u entity.RPCURL) (bool, time.Duration, error) {
	c.mu.Lock()
	c.calls[u]++
	err := c.failing[u]
	delay := c.delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, delay, ctx.Err()
		}
	}
	if err != nil {
		return false, delay, err
	}
	return true, 12 * time.Millisecond, nil
}

func (c *fakeChecker) callCount(u entity.RPCURL) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[u]
}

// fakeChainRepo returns the fixed groups of the requested chains.
type fakeChainRepo struct {
	groups []entity.ChainEndpoints
	err    error
}

func (r fakeChainRepo) GetChainEndpoints(_ context.Context, chainIDs []int64) ([]entity.ChainEndpoints, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []entity.ChainEndpoints
	for _, id := range chainIDs {
		for _, g := range r.groups {
			if g.ChainID == id {
				out = append(out, g)
			}
		}
	}
	return out, nil
}
