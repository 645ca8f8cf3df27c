// Package events carries change notifications between cart views and
// browsing contexts sharing the same storage. Notifications carry no
// cart payload: a subscriber that wants the new state re-reads storage
// on receipt, which keeps every context convergent on the last write.
package events

import (
	"log/slog"
	"sync"
)

// Notification announces that the payload under Key changed. Origin
// identifies the publishing store instance so it can recognize its own
// notifications.
type Notification struct {
	Key    string
	Origin string
}

// Handler receives notifications for a subscribed key
type Handler func(Notification)

// Hub fans change notifications out to subscribers, keyed by storage
// key. Delivery is synchronous: Publish returns only after every
// subscriber for the key has run, so a read performed after a mutation
// in the same call chain always sees the post-mutation state.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[int]Handler
	nextID      int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[int]Handler),
	}
}

// Subscribe registers a handler for notifications on key and returns an
// unsubscribe function.
func (h *Hub) Subscribe(key string, handler Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[key] == nil {
		h.subscribers[key] = make(map[int]Handler)
	}
	id := h.nextID
	h.nextID++
	h.subscribers[key][id] = handler

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[key], id)
	}
}

// Publish delivers the notification to every subscriber of its key
// before returning.
func (h *Hub) Publish(n Notification) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subscribers[n.Key]))
	for _, handler := range h.subscribers[n.Key] {
		handlers = append(handlers, handler)
	}
	h.mu.RUnlock()

	slog.Debug("Publishing change notification",
		"key", n.Key,
		"origin", n.Origin,
		"subscriber_count", len(handlers))

	for _, handler := range handlers {
		handler(n)
	}
}
