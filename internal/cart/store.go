// Package cart implements the session cart: the single source of truth
// for the current browsing session's line items, persisted through an
// injected storage capability and kept consistent across views and
// browsing contexts through change notifications.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace-storefront-api/internal/events"
	"marketplace-storefront-api/internal/models"
	"marketplace-storefront-api/internal/storage"
)

// ErrStorageWrite wraps a failed persistence round-trip. The mutation
// that caused it still succeeded in memory; callers surface the
// condition as a non-fatal warning, never as a failed operation.
var ErrStorageWrite = errors.New("cart: failed to persist")

// ViewFunc receives the post-change collection. Views are invoked
// synchronously after every state change, own mutations and external
// refreshes alike.
type ViewFunc func(items []models.LineItem)

// Store owns one session's cart. It is the sole writer of its storage
// key; other stores on the same key (other browsing contexts) converge
// through last-writer-wins refreshes triggered by hub notifications.
type Store struct {
	key     string
	origin  string
	storage storage.Storage
	hub     *events.Hub

	mu              sync.RWMutex
	items           []models.LineItem
	lastWriteFailed bool
	views           []ViewFunc

	unsubscribe func()
}

// NewStore creates a cart store bound to a storage key. The initial
// collection is read from storage; an absent key or a corrupt payload
// both mean an empty cart. The store subscribes to the hub so external
// mutations of the same key are picked up without a reload.
func NewStore(key string, st storage.Storage, hub *events.Hub) *Store {
	s := &Store{
		key:     key,
		origin:  uuid.NewString(),
		storage: st,
		hub:     hub,
	}

	s.items = s.readCollection()

	if hub != nil {
		s.unsubscribe = hub.Subscribe(key, s.onNotification)
	}

	return s
}

// Close detaches the store from the hub
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Add appends a new line item, assigning it a fresh line id. Duplicate
// service/package combinations are deliberately not merged; every add
// creates its own line.
func (s *Store) Add(item models.LineItem) (models.LineItem, error) {
	s.mu.Lock()

	item.LineID = uuid.NewString()
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	s.items = append(s.items, item)

	err := s.completeLocked("item_added", "line_id", item.LineID, "service_id", item.ServiceID)
	return item, err
}

// Remove deletes exactly one line if present; removing an unknown line
// id is a no-op, not an error.
func (s *Store) Remove(lineID string) error {
	s.mu.Lock()

	idx := -1
	for i, item := range s.items {
		if item.LineID == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)

	return s.completeLocked("item_removed", "line_id", lineID)
}

// UpdateQuantity sets the quantity on an existing line. It reports
// whether the line was found.
func (s *Store) UpdateQuantity(lineID string, quantity int) (bool, error) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].LineID == lineID {
			s.items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return false, nil
	}

	err := s.completeLocked("quantity_updated", "line_id", lineID, "quantity", quantity)
	return true, err
}

// Clear empties the collection and persists the empty state
func (s *Store) Clear() error {
	s.mu.Lock()
	s.items = nil

	return s.completeLocked("cart_cleared")
}

// Snapshot returns a copy of the current collection
func (s *Store) Snapshot() []models.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.LineItem, len(s.items))
	copy(items, s.items)
	return items
}

// Total returns the sum of unit price times quantity over the cart
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, item := range s.items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// LastWriteFailed reports whether the most recent persistence attempt
// failed, leaving memory ahead of storage for this view.
func (s *Store) LastWriteFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastWriteFailed
}

// OnChange registers a view callback, invoked synchronously after every
// state change.
func (s *Store) OnChange(view ViewFunc) {
	s.mu.Lock()
	s.views = append(s.views, view)
	s.mu.Unlock()
}

// completeLocked finishes a mutation: persist, release the lock,
// broadcast, and notify views. No mutation is complete until storage
// and every live view have seen the new state; a persistence failure
// downgrades to a warning with memory staying authoritative.
func (s *Store) completeLocked(operation string, logArgs ...any) error {
	data, marshalErr := json.Marshal(s.items)

	var writeErr error
	if marshalErr != nil {
		writeErr = marshalErr
	} else {
		writeErr = s.storage.Write(s.key, data)
	}
	s.lastWriteFailed = writeErr != nil

	items := make([]models.LineItem, len(s.items))
	copy(items, s.items)
	views := make([]ViewFunc, len(s.views))
	copy(views, s.views)
	s.mu.Unlock()

	if writeErr != nil {
		slog.Warn("Cart mutation not persisted, in-memory state stays authoritative",
			append([]any{"operation", operation, "key", s.key, "error", writeErr}, logArgs...)...)
	} else {
		slog.Debug("Cart mutation persisted",
			append([]any{"operation", operation, "key", s.key, "item_count", len(items)}, logArgs...)...)
	}

	if s.hub != nil {
		s.hub.Publish(events.Notification{Key: s.key, Origin: s.origin})
	}
	for _, view := range views {
		view(items)
	}

	if writeErr != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, writeErr)
	}
	return nil
}

// onNotification refreshes the in-memory collection from storage when
// another context mutated the same key. Own notifications are skipped:
// memory is already current, and overwriting it after a failed write
// would discard the authoritative state.
func (s *Store) onNotification(n events.Notification) {
	if n.Origin == s.origin {
		return
	}

	s.mu.Lock()
	s.items = s.readCollection()
	items := make([]models.LineItem, len(s.items))
	copy(items, s.items)
	views := make([]ViewFunc, len(s.views))
	copy(views, s.views)
	s.mu.Unlock()

	slog.Debug("Cart refreshed from storage after external change",
		"key", s.key, "item_count", len(items))

	for _, view := range views {
		view(items)
	}
}

// readCollection loads the persisted collection, treating an absent key
// or malformed payload as an empty cart. A corrupt payload is discarded
// by the next successful write.
func (s *Store) readCollection() []models.LineItem {
	data, ok, err := s.storage.Read(s.key)
	if err != nil {
		slog.Warn("Failed to read persisted cart, starting empty", "key", s.key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var items []models.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		slog.Warn("Persisted cart payload is malformed, starting empty", "key", s.key, "error", err)
		return nil
	}
	return items
}
