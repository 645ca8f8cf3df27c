// Package session implements the handoff between an anonymous
// add-to-cart attempt and authentication. An attempt made while
// authenticated commits straight to the cart; an anonymous attempt is
// staged until the visitor logs in, proceeds without logging in, or
// cancels.
package session

import (
	"log/slog"
	"sync"
	"time"

	"marketplace-storefront-api/internal/cart"
	"marketplace-storefront-api/internal/models"
)

// Gate states
const (
	StateIdle    = "idle"
	StateStaging = "staging"
)

// Outcome of a gate operation
type Outcome string

const (
	// OutcomeAddedDirectly: the caller was authenticated and the item
	// went straight into the cart.
	OutcomeAddedDirectly Outcome = "added_directly"
	// OutcomeLoginRequired: the item was staged; the caller must prompt
	// for authentication.
	OutcomeLoginRequired Outcome = "login_required"
	// OutcomeFlushed: the staged item was committed to the cart.
	OutcomeFlushed Outcome = "flushed"
	// OutcomeDiscarded: the staged item was dropped without a cart add.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeNothingStaged: a terminal event arrived with no pending item.
	OutcomeNothingStaged Outcome = "nothing_staged"
)

// PendingItem is the at-most-one staged cart addition
type PendingItem struct {
	Item     models.LineItem
	StagedAt time.Time
}

// Gate is the staging state machine for one browsing session, bound to
// that session's cart store.
//
// Invariant: a staged item leaves the gate through exactly one
// cart.Add call, except on explicit cancellation, which is the only
// transition allowed to drop it.
type Gate struct {
	mu      sync.Mutex
	store   *cart.Store
	pending *PendingItem
}

// NewGate creates an idle gate over the given cart store
func NewGate(store *cart.Store) *Gate {
	return &Gate{store: store}
}

// State returns the current gate state
func (g *Gate) State() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		return StateStaging
	}
	return StateIdle
}

// Pending returns the currently staged item, if any
func (g *Gate) Pending() (models.LineItem, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return models.LineItem{}, false
	}
	return g.pending.Item, true
}

// RequestAdd handles one add-to-cart attempt. Authenticated attempts
// bypass staging entirely. An anonymous attempt while already staging
// replaces the previous pending item: only the most recent anonymous
// attempt survives.
func (g *Gate) RequestAdd(item models.LineItem, authenticated bool) (Outcome, models.LineItem, error) {
	if authenticated {
		added, err := g.store.Add(item)
		return OutcomeAddedDirectly, added, err
	}

	g.mu.Lock()
	if g.pending != nil {
		slog.Debug("Replacing staged cart item with newer attempt",
			"previous_service_id", g.pending.Item.ServiceID,
			"service_id", item.ServiceID)
	}
	g.pending = &PendingItem{Item: item, StagedAt: time.Now()}
	g.mu.Unlock()

	return OutcomeLoginRequired, models.LineItem{}, nil
}

// Resolve flushes the staged item into the cart after authentication
// completed successfully.
func (g *Gate) Resolve() (Outcome, models.LineItem, error) {
	return g.flush("authentication resolved")
}

// ProceedAnonymously flushes the staged item into the cart without
// authentication. Anonymous carts are allowed to accumulate; login is
// required later, at order placement, not at cart time.
func (g *Gate) ProceedAnonymously() (Outcome, models.LineItem, error) {
	return g.flush("proceeding without login")
}

// Decline discards the staged item without adding it. This is the only
// transition that drops a pending item.
func (g *Gate) Decline() Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return OutcomeNothingStaged
	}

	slog.Debug("Staged cart item discarded", "service_id", g.pending.Item.ServiceID)
	g.pending = nil
	return OutcomeDiscarded
}

func (g *Gate) flush(reason string) (Outcome, models.LineItem, error) {
	g.mu.Lock()
	if g.pending == nil {
		g.mu.Unlock()
		return OutcomeNothingStaged, models.LineItem{}, nil
	}
	item := g.pending.Item
	g.pending = nil
	g.mu.Unlock()

	slog.Debug("Flushing staged cart item", "service_id", item.ServiceID, "reason", reason)

	added, err := g.store.Add(item)
	return OutcomeFlushed, added, err
}
