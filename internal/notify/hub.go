package notify

import (
	"sync"
	"time"
)

// sessionBuffer bounds how many undelivered events a session may hold
// before new ones are dropped.
const sessionBuffer = 16

// Hub tracks connected vendor sessions and pushes events to them,
// best-effort. A vendor with no session, or a session with a full buffer,
// simply misses the event.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64][]chan Event
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[int64][]chan Event)}
}

// Subscribe registers a session for the vendor and returns the event
// channel plus a cancel func the caller must invoke on disconnect.
func (h *Hub) Subscribe(vendorID int64) (<-chan Event, func()) {
	ch := make(chan Event, sessionBuffer)

	h.mu.Lock()
	h.sessions[vendorID] = append(h.sessions[vendorID], ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		chans := h.sessions[vendorID]
		for i, c := range chans {
			if c == ch {
				h.sessions[vendorID] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		if len(h.sessions[vendorID]) == 0 {
			delete(h.sessions, vendorID)
		}
		close(ch)
	}
	return ch, cancel
}

// PushToVendorSession delivers the event to every connected session of
// the vendor without ever blocking the caller.
func (h *Hub) PushToVendorSession(vendorID int64, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.sessions[vendorID] {
		select {
		case ch <- event:
		default:
			// Session buffer full; drop rather than block.
		}
	}
}
