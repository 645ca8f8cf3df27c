package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-storefront-api/internal/cart"
	"marketplace-storefront-api/internal/models"
	"marketplace-storefront-api/internal/storage"
)

func newTestGate(t *testing.T) (*Gate, *cart.Store) {
	t.Helper()
	store := cart.NewStore("cart_test", storage.NewMemoryStorage(), nil)
	return NewGate(store), store
}

func item(serviceID string) models.LineItem {
	return models.LineItem{ServiceID: serviceID, UnitPrice: 45, Quantity: 1}
}

// TestGate_AuthenticatedBypassesStaging verifies an authenticated add
// commits immediately and the gate stays idle.
func TestGate_AuthenticatedBypassesStaging(t *testing.T) {
	gate, store := newTestGate(t)

	outcome, added, err := gate.RequestAdd(item("svc_1"), true)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAddedDirectly, outcome)
	assert.NotEmpty(t, added.LineID)
	assert.Equal(t, StateIdle, gate.State())
	assert.Len(t, store.Snapshot(), 1)
}

// TestGate_AnonymousAddThenResolve covers scenario A: stage, then
// authentication resolves and the item lands in the cart.
func TestGate_AnonymousAddThenResolve(t *testing.T) {
	gate, store := newTestGate(t)

	outcome, _, err := gate.RequestAdd(item("svc_1"), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoginRequired, outcome)
	assert.Equal(t, StateStaging, gate.State())

	pending, ok := gate.Pending()
	require.True(t, ok)
	assert.Equal(t, "svc_1", pending.ServiceID)
	assert.Empty(t, store.Snapshot(), "staged item is not in the cart yet")

	flushed, added, err := gate.Resolve()
	require.NoError(t, err)
	assert.Equal(t, OutcomeFlushed, flushed)
	assert.Equal(t, "svc_1", added.ServiceID)
	assert.Equal(t, StateIdle, gate.State())

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "svc_1", snapshot[0].ServiceID)
}

// TestGate_SecondAnonymousAddReplacesStaged covers scenario B: only the
// most recent anonymous attempt survives.
func TestGate_SecondAnonymousAddReplacesStaged(t *testing.T) {
	gate, store := newTestGate(t)

	_, _, err := gate.RequestAdd(item("svc_X"), false)
	require.NoError(t, err)
	_, _, err = gate.RequestAdd(item("svc_Y"), false)
	require.NoError(t, err)

	pending, ok := gate.Pending()
	require.True(t, ok)
	assert.Equal(t, "svc_Y", pending.ServiceID)

	_, _, err = gate.Resolve()
	require.NoError(t, err)

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1, "exactly one add for the staged item")
	assert.Equal(t, "svc_Y", snapshot[0].ServiceID)
}

// TestGate_ProceedAnonymously verifies the "add without logging in"
// path flushes the staged item just like resolution does.
func TestGate_ProceedAnonymously(t *testing.T) {
	gate, store := newTestGate(t)

	_, _, err := gate.RequestAdd(item("svc_1"), false)
	require.NoError(t, err)

	outcome, added, err := gate.ProceedAnonymously()
	require.NoError(t, err)
	assert.Equal(t, OutcomeFlushed, outcome)
	assert.Equal(t, "svc_1", added.ServiceID)
	assert.Equal(t, StateIdle, gate.State())
	assert.Len(t, store.Snapshot(), 1)
}

// TestGate_DeclineDiscards verifies cancellation is the only path that
// drops the pending item without a cart add.
func TestGate_DeclineDiscards(t *testing.T) {
	gate, store := newTestGate(t)

	_, _, err := gate.RequestAdd(item("svc_1"), false)
	require.NoError(t, err)

	outcome := gate.Decline()

	assert.Equal(t, OutcomeDiscarded, outcome)
	assert.Equal(t, StateIdle, gate.State())
	assert.Empty(t, store.Snapshot())
}

// TestGate_TerminalEventsWithNothingStaged verifies terminal events on
// an idle gate are harmless no-ops.
func TestGate_TerminalEventsWithNothingStaged(t *testing.T) {
	gate, store := newTestGate(t)

	outcome, _, err := gate.Resolve()
	require.NoError(t, err)
	assert.Equal(t, OutcomeNothingStaged, outcome)

	outcome, _, err = gate.ProceedAnonymously()
	require.NoError(t, err)
	assert.Equal(t, OutcomeNothingStaged, outcome)

	assert.Equal(t, OutcomeNothingStaged, gate.Decline())
	assert.Empty(t, store.Snapshot())
}

// TestGate_ResolveFlushesOnlyOnce verifies a second resolve after the
// flush finds nothing staged.
func TestGate_ResolveFlushesOnlyOnce(t *testing.T) {
	gate, store := newTestGate(t)

	_, _, err := gate.RequestAdd(item("svc_1"), false)
	require.NoError(t, err)

	first, _, err := gate.Resolve()
	require.NoError(t, err)
	assert.Equal(t, OutcomeFlushed, first)

	second, _, err := gate.Resolve()
	require.NoError(t, err)
	assert.Equal(t, OutcomeNothingStaged, second)
	assert.Len(t, store.Snapshot(), 1)
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	manager := NewManager(storage.NewMemoryStorage(), nil)
	defer manager.Close()

	storeA, gateA := manager.Session("session-a")
	storeB, _ := manager.Session("session-b")

	_, _, err := gateA.RequestAdd(item("svc_1"), true)
	require.NoError(t, err)

	assert.Len(t, storeA.Snapshot(), 1)
	assert.Empty(t, storeB.Snapshot())

	// Same session id returns the same store
	storeA2, _ := manager.Session("session-a")
	assert.Len(t, storeA2.Snapshot(), 1)
}
