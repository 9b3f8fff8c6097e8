// Package ws fans resolved-turn frames out to websocket subscribers and
// accepts order envelopes from connected clients. Subscribers are fully
// isolated: a slow or dead connection drops its own oldest frames and can
// never slow the engine.
package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks subscriber outbound queues. Publish never blocks.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]chan []byte
	onDrop func()
}

// NewHub creates a hub. onDrop, if non-nil, is called once per dropped
// frame (wired to the broadcast-dropped metric).
func NewHub(onDrop func()) *Hub {
	return &Hub{subs: map[string]chan []byte{}, onDrop: onDrop}
}

// Attach registers a subscriber and returns its id and outbound queue.
func (h *Hub) Attach(queueSize int) (string, chan []byte) {
	if queueSize <= 0 {
		queueSize = 16
	}
	id := uuid.NewString()
	out := make(chan []byte, queueSize)
	h.mu.Lock()
	h.subs[id] = out
	h.mu.Unlock()
	return id, out
}

func (h *Hub) Detach(id string) {
	h.mu.Lock()
	if out, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(out)
	}
	h.mu.Unlock()
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish enqueues a frame for every subscriber, dropping that
// subscriber's oldest frame when its queue is full.
func (h *Hub) Publish(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.subs {
		select {
		case out <- b:
			continue
		default:
		}
		// Queue full: drop one, then retry once.
		select {
		case <-out:
			if h.onDrop != nil {
				h.onDrop()
			}
		default:
		}
		select {
		case out <- b:
		default:
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}
