package sqlite

import "sync"

// listener is one live query waiting for changes to its collection.
type listener struct {
	collection string
	// signal has room for one pending wake-up; further notifications
	// coalesce into it.
	signal chan struct{}
}

// hub fans change notifications out to live queries.
type hub struct {
	mu        sync.Mutex
	listeners map[string]map[*listener]struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newHub() *hub {
	return &hub{
		listeners: make(map[string]map[*listener]struct{}),
		done:      make(chan struct{}),
	}
}

// add registers a listener. It starts signalled so the first result set is
// delivered straight away.
func (h *hub) add(collection string) *listener {
	l := &listener{collection: collection, signal: make(chan struct{}, 1)}
	l.signal <- struct{}{}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners[collection] == nil {
		h.listeners[collection] = make(map[*listener]struct{})
	}
	h.listeners[collection][l] = struct{}{}
	return l
}

func (h *hub) remove(l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners[l.collection], l)
}

// notify wakes every listener of collection without blocking.
func (h *hub) notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for l := range h.listeners[collection] {
		select {
		case l.signal <- struct{}{}:
		default:
		}
	}
}

// count returns the number of live queries on collection.
func (h *hub) count(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[collection])
}

func (h *hub) close() {
	h.closeOnce.Do(func() { close(h.done) })
}
