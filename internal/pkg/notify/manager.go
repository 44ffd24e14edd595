// Package notify coalesces listener notifications raised while a batch of
// mutations is in progress.
package notify

import "sync"

// Manager queues notifications scheduled inside Batch and flushes them once the
// outermost batch returns. Outside a batch, notifications run immediately.
type Manager struct {
	mu           sync.Mutex
	transactions int
	queue        []queued
	notifyFn     func(func())
}

type queued struct {
	cb   func()
	call *batchedCall
}

// batchedCall is the state of one BatchCalls wrapper. queued is set while the
// wrapper sits in the batch queue, so repeated calls in one batch collapse.
type batchedCall struct {
	cb     func()
	queued bool
}

// NewManager creates a Manager that runs notifications synchronously.
func NewManager() *Manager {
	return &Manager{
		notifyFn: func(cb func()) { cb() },
	}
}

// SetNotifyFunction replaces the function used to deliver each notification.
func (m *Manager) SetNotifyFunction(fn func(func())) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifyFn = fn
}

// Batch runs fn and defers every notification scheduled during it until fn returns.
// Nested batches flush when the outermost one completes.
func (m *Manager) Batch(fn func()) {
	m.mu.Lock()
	m.transactions++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.transactions--
		var pending []queued
		if m.transactions == 0 {
			pending = m.queue
			m.queue = nil
			for _, q := range pending {
				if q.call != nil {
					q.call.queued = false
				}
			}
		}
		notifyFn := m.notifyFn
		m.mu.Unlock()

		for _, q := range pending {
			notifyFn(q.cb)
		}
	}()

	fn()
}

// Schedule delivers cb now, or after the current batch if one is running.
func (m *Manager) Schedule(cb func()) {
	m.schedule(queued{cb: cb})
}

// BatchCalls wraps cb so that calling the result schedules cb through the manager.
// However often the wrapper is called inside one batch, cb runs once when it flushes.
func (m *Manager) BatchCalls(cb func()) func() {
	call := &batchedCall{cb: cb}
	return func() {
		m.schedule(queued{cb: call.cb, call: call})
	}
}

func (m *Manager) schedule(q queued) {
	m.mu.Lock()
	if m.transactions > 0 {
		if q.call != nil {
			if q.call.queued {
				m.mu.Unlock()
				return
			}
			q.call.queued = true
		}
		m.queue = append(m.queue, q)
		m.mu.Unlock()
		return
	}
	notifyFn := m.notifyFn
	m.mu.Unlock()

	notifyFn(q.cb)
}
