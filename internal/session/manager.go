package session

import (
	"sync"

	"marketplace-storefront-api/internal/cart"
	"marketplace-storefront-api/internal/events"
	"marketplace-storefront-api/internal/storage"
)

// Manager hands out the cart store and gate for each browsing session,
// creating them lazily on first use. Every session's cart is persisted
// under its own storage key, so two requests for the same session id
// converge on the same collection.
type Manager struct {
	mu       sync.Mutex
	storage  storage.Storage
	hub      *events.Hub
	sessions map[string]*sessionState
}

type sessionState struct {
	store *cart.Store
	gate  *Gate
}

// NewManager creates a session manager over the shared storage and hub
func NewManager(st storage.Storage, hub *events.Hub) *Manager {
	return &Manager{
		storage:  st,
		hub:      hub,
		sessions: make(map[string]*sessionState),
	}
}

// Session returns the cart store and gate for the session id
func (m *Manager) Session(sessionID string) (*cart.Store, *Gate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		store := cart.NewStore("cart_"+sessionID, m.storage, m.hub)
		state = &sessionState{
			store: store,
			gate:  NewGate(store),
		}
		m.sessions[sessionID] = state
	}
	return state.store, state.gate
}

// Close detaches every session's store from the hub
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, state := range m.sessions {
		state.store.Close()
	}
}
