package ble

import "sync"

// eventQueue holds stack callbacks raised on library goroutines until the
// owner drains them with run. Each push raises the pending signal.
type eventQueue struct {
	mu      sync.Mutex
	pending []func()
	signal  func()
}

// setSignal registers the function called after every push.
func (q *eventQueue) setSignal(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.signal = fn
}

// push queues fn and raises the pending signal outside the lock.
func (q *eventQueue) push(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	signal := q.signal
	q.mu.Unlock()
	if signal != nil {
		signal()
	}
}

// run executes every queued callback in order on the calling goroutine.
func (q *eventQueue) run() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// handlers stores the connect/disconnect callbacks, last registration wins.
type handlers struct {
	mu           sync.Mutex
	onConnect    func()
	onDisconnect func()
}

func (h *handlers) setConnect(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = fn
}

func (h *handlers) setDisconnect(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconnect = fn
}

// fire calls the handler matching connected, if one is registered.
func (h *handlers) fire(connected bool) {
	h.mu.Lock()
	fn := h.onDisconnect
	if connected {
		fn = h.onConnect
	}
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}
