package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"marketplace-storefront-api/internal/cart"
	"marketplace-storefront-api/internal/catalog"
	"marketplace-storefront-api/internal/middleware"
	"marketplace-storefront-api/internal/models"
	"marketplace-storefront-api/internal/session"
	"marketplace-storefront-api/internal/telemetry"
)

// CartHandler handles cart and session-gate requests. Every request
// names its browsing session with the X-Session-ID header; the cart add
// flows through the session gate, which decides between an immediate
// commit and staging pending authentication.
type CartHandler struct {
	sessions  *session.Manager
	resolver  *catalog.Resolver
	telemetry *telemetry.StorefrontTelemetry
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions *session.Manager, resolver *catalog.Resolver, t *telemetry.StorefrontTelemetry) *CartHandler {
	return &CartHandler{
		sessions:  sessions,
		resolver:  resolver,
		telemetry: t,
	}
}

// GetCart handles GET /v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSONResponse(w, http.StatusOK, models.CartResponse{
		Items:          store.Snapshot(),
		Total:          store.Total(),
		PersistWarning: store.LastWriteFailed(),
	})
}

// AddItem handles POST /v1/cart/items. Authenticated sessions get the
// item committed immediately (201); anonymous sessions get it staged
// and are told a login prompt is required (202).
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	_, gate, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in add-item request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	svc, err := h.resolver.Resolve(req.ServiceID)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			writeErrorResponse(w, http.StatusNotFound, "not_found", "Service not found", nil)
			return
		}
		slog.Error("Failed to resolve service for cart add", "service_id", req.ServiceID, "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	if req.PackageIndex < 0 || req.PackageIndex >= len(svc.Packages) {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid package index", []models.ErrorDetail{
			{Field: "packageIndex", Issue: "out of range for this service"},
		})
		return
	}

	item := models.LineItem{
		ServiceID:    svc.ID,
		PackageIndex: req.PackageIndex,
		Title:        svc.Title,
		UnitPrice:    svc.Packages[req.PackageIndex].Price,
		Quantity:     req.Quantity,
	}

	identity := middleware.IdentityFromRequest(r)

	slog.Info("Processing add-to-cart attempt",
		"service_id", svc.ID,
		"package_index", req.PackageIndex,
		"authenticated", identity.Authenticated,
		"remote_addr", r.RemoteAddr)

	outcome, added, addErr := gate.RequestAdd(item, identity.Authenticated)

	switch outcome {
	case session.OutcomeAddedDirectly:
		h.telemetry.RegisterCartMutation(r.Context(), "add", addErr == nil)
		writeJSONResponse(w, http.StatusCreated, models.AddItemResponse{
			Outcome:        models.OutcomeAdded,
			Item:           &added,
			PersistWarning: persistWarning(addErr),
		})
	case session.OutcomeLoginRequired:
		h.telemetry.RegisterGateStaging(r.Context())
		writeJSONResponse(w, http.StatusAccepted, models.AddItemResponse{
			Outcome: models.OutcomeLoginRequired,
		})
	}
}

// UpdateItem handles PATCH /v1/cart/items/{lineId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	if req.Quantity < 1 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Quantity must be at least 1", []models.ErrorDetail{
			{Field: "quantity", Issue: "must be >= 1"},
		})
		return
	}

	lineID := mux.Vars(r)["lineId"]
	found, err := store.UpdateQuantity(lineID, req.Quantity)
	if !found {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Line item not found", nil)
		return
	}

	h.telemetry.RegisterCartMutation(r.Context(), "update_quantity", err == nil)
	writeJSONResponse(w, http.StatusOK, models.CartResponse{
		Items:          store.Snapshot(),
		Total:          store.Total(),
		PersistWarning: persistWarning(err),
	})
}

// RemoveItem handles DELETE /v1/cart/items/{lineId}. Removing an
// unknown line is a no-op, not an error.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.session(w, r)
	if !ok {
		return
	}

	lineID := mux.Vars(r)["lineId"]
	err := store.Remove(lineID)

	h.telemetry.RegisterCartMutation(r.Context(), "remove", err == nil)
	writeJSONResponse(w, http.StatusOK, models.CartResponse{
		Items:          store.Snapshot(),
		Total:          store.Total(),
		PersistWarning: persistWarning(err),
	})
}

// ClearCart handles DELETE /v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.session(w, r)
	if !ok {
		return
	}

	err := store.Clear()

	h.telemetry.RegisterCartMutation(r.Context(), "clear", err == nil)
	writeJSONResponse(w, http.StatusOK, models.CartResponse{
		Items:          store.Snapshot(),
		Total:          store.Total(),
		PersistWarning: persistWarning(err),
	})
}

// ResolveSession handles POST /v1/session/resolve - authentication
// completed, flush the staged item.
func (h *CartHandler) ResolveSession(w http.ResponseWriter, r *http.Request) {
	h.terminal(w, r, func(gate *session.Gate) (session.Outcome, models.LineItem, error) {
		return gate.Resolve()
	})
}

// ProceedAnonymously handles POST /v1/session/anonymous - the visitor
// opted to add without logging in.
func (h *CartHandler) ProceedAnonymously(w http.ResponseWriter, r *http.Request) {
	h.terminal(w, r, func(gate *session.Gate) (session.Outcome, models.LineItem, error) {
		return gate.ProceedAnonymously()
	})
}

// DeclineSession handles POST /v1/session/decline - the visitor
// cancelled; the staged item is discarded.
func (h *CartHandler) DeclineSession(w http.ResponseWriter, r *http.Request) {
	_, gate, ok := h.session(w, r)
	if !ok {
		return
	}

	outcome := gate.Decline()
	writeJSONResponse(w, http.StatusOK, models.AddItemResponse{
		Outcome: outcomeLabel(outcome),
	})
}

func (h *CartHandler) terminal(w http.ResponseWriter, r *http.Request, fn func(*session.Gate) (session.Outcome, models.LineItem, error)) {
	_, gate, ok := h.session(w, r)
	if !ok {
		return
	}

	outcome, item, err := fn(gate)
	resp := models.AddItemResponse{
		Outcome:        outcomeLabel(outcome),
		PersistWarning: persistWarning(err),
	}
	if outcome == session.OutcomeFlushed {
		h.telemetry.RegisterCartMutation(r.Context(), "add", err == nil)
		resp.Item = &item
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// session extracts the browsing session from the X-Session-ID header
// and returns its cart store and gate.
func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (*cart.Store, *session.Gate, bool) {
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "X-Session-ID header required", nil)
		return nil, nil, false
	}

	store, gate := h.sessions.Session(sessionID)
	return store, gate, true
}

func outcomeLabel(outcome session.Outcome) string {
	switch outcome {
	case session.OutcomeFlushed:
		return models.OutcomeFlushed
	case session.OutcomeDiscarded:
		return models.OutcomeDiscarded
	case session.OutcomeNothingStaged:
		return models.OutcomeNothingStaged
	case session.OutcomeAddedDirectly:
		return models.OutcomeAdded
	default:
		return models.OutcomeLoginRequired
	}
}

// persistWarning maps a persistence failure to the non-fatal warning
// flag; the mutation itself already succeeded in memory.
func persistWarning(err error) bool {
	return errors.Is(err, cart.ErrStorageWrite)
}
