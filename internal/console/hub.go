package console

import "sync"

// Hub fans console lines out to subscribers and keeps a short backlog for
// late joiners. Slow subscribers miss lines rather than block the reader.
type Hub struct {
	mu        sync.RWMutex
	backlog   []string
	max       int
	listeners map[chan string]struct{}
}

func NewHub(backlog int) *Hub {
	return &Hub{max: backlog, listeners: make(map[chan string]struct{})}
}

func (h *Hub) Broadcast(line string) {
	h.mu.Lock()
	h.backlog = append(h.backlog, line)
	if len(h.backlog) > h.max {
		h.backlog = h.backlog[len(h.backlog)-h.max:]
	}
	for ch := range h.listeners {
		select {
		case ch <- line:
		default:
		}
	}
	h.mu.Unlock()
}

// Backlog returns a copy of the most recent lines, oldest first.
func (h *Hub) Backlog() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.backlog))
	copy(out, h.backlog)
	return out
}

// Attach subscribes and returns the backlog up to that moment, so a caller
// that replays the backlog then reads the channel sees each line once.
func (h *Hub) Attach() ([]string, chan string) {
	ch := make(chan string, 256)
	h.mu.Lock()
	defer h.mu.Unlock()
	backlog := make([]string, len(h.backlog))
	copy(backlog, h.backlog)
	h.listeners[ch] = struct{}{}
	return backlog, ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[ch]; ok {
		delete(h.listeners, ch)
		close(ch)
	}
}
