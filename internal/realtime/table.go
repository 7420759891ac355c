package realtime

import "sync"

// Sender is a send-capable handle on one live client socket. The concrete
// implementation wraps a WebSocket connection; tests substitute recorders.
type Sender interface {
	// Send enqueues an outbound frame. It never blocks; false means the
	// socket's buffer is full or the socket is closed, and the frame is
	// dropped.
	Send(payload []byte) bool
	// Close tears the socket down. Safe to call more than once.
	Close()
}

// Table is the per-instance map of userId to live socket. It is exclusively
// owned and mutated by its own instance; cross-instance ownership lives in
// the shared registry, never here.
type Table struct {
	mu    sync.RWMutex
	conns map[string]Sender
}

// NewTable creates an empty connection table.
func NewTable() *Table {
	return &Table{conns: make(map[string]Sender)}
}

// Put records the user's live socket, overwriting any prior mapping. A
// second socket for the same identity silently evicts the first from the
// table; the first stays open but is no longer a delivery target.
func (t *Table) Put(userID string, s Sender) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[userID] = s
}

// Remove deletes the user's entry only while it still refers to the given
// socket, so a replaced socket's teardown cannot evict its successor.
func (t *Table) Remove(userID string, s Sender) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.conns[userID]; ok && current == s {
		delete(t.conns, userID)
	}
}

// Deliver sends a frame to the user's local socket. False means the user
// has no socket on this instance.
func (t *Table) Deliver(userID string, payload []byte) bool {
	t.mu.RLock()
	s, ok := t.conns[userID]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	return s.Send(payload)
}

// Has reports whether the user has a socket on this instance.
func (t *Table) Has(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.conns[userID]
	return ok
}

// Len returns the number of live sockets on this instance.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}
