package activity

import "sync"

// DefaultSubscriberBuffer is the per-subscriber queue length.
const DefaultSubscriberBuffer = 64

// Hub fans entries out to live subscribers.
// Delivery is at most once: a subscriber whose queue is full misses the entry.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Entry
	next   uint64
	buffer int
	onDrop func()
}

// NewHub creates a hub with the given per-subscriber buffer.
// onDrop, if set, is called for every entry a subscriber missed.
func NewHub(buffer int, onDrop func()) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{subs: make(map[uint64]chan Entry), buffer: buffer, onDrop: onDrop}
}

// Publish delivers e to every subscriber without blocking.
func (h *Hub) Publish(e Entry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Subscribe registers a subscriber. The returned cancel func closes the
// channel and must be called exactly once.
func (h *Hub) Subscribe() (<-chan Entry, func()) {
	ch := make(chan Entry, h.buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
