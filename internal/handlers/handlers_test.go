package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-storefront-api/internal/catalog"
	"marketplace-storefront-api/internal/events"
	"marketplace-storefront-api/internal/middleware"
	"marketplace-storefront-api/internal/models"
	"marketplace-storefront-api/internal/session"
	"marketplace-storefront-api/internal/slug"
	"marketplace-storefront-api/internal/storage"
	"marketplace-storefront-api/internal/telemetry"
)

func testServices() []models.Service {
	return []models.Service{
		{
			ID: "svc_1", Title: "Minimalist Logo Design", Category: models.CategoryDesign,
			Packages: []models.Package{{Price: 45}, {Price: 120}},
			Rating:   4.8, TotalReviews: 214,
		},
		{
			ID: "svc_2", Title: "WordPress Site Setup", Category: models.CategoryDevelopment,
			Packages: []models.Package{{Price: 150}},
			Rating:   4.6, TotalReviews: 98,
		},
		{
			ID: "svc_3", Title: "Blog Article Writing", Category: models.CategoryWriting,
			Packages: []models.Package{{Price: 35}},
			Rating:   4.9, TotalReviews: 412,
		},
	}
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	c := catalog.New(testServices())
	resolver := catalog.NewResolver(c, time.Minute, 30*time.Second)
	t.Cleanup(resolver.Stop)

	sessions := session.NewManager(storage.NewMemoryStorage(), events.NewHub())
	t.Cleanup(sessions.Close)

	apiTelemetry := telemetry.NewStorefrontTelemetry()

	catalogHandler := NewCatalogHandler(c, resolver, apiTelemetry, 12)
	cartHandler := NewCartHandler(sessions, resolver, apiTelemetry)
	healthHandler := NewHealthHandler()

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.SessionAuth(map[string]string{"tok-alice": "user_alice"}))

	v1.HandleFunc("/services", catalogHandler.ListServices).Methods("GET")
	v1.HandleFunc("/services/{slugOrId}", catalogHandler.GetService).Methods("GET")
	v1.HandleFunc("/cart", cartHandler.GetCart).Methods("GET")
	v1.HandleFunc("/cart", cartHandler.ClearCart).Methods("DELETE")
	v1.HandleFunc("/cart/items", cartHandler.AddItem).Methods("POST")
	v1.HandleFunc("/cart/items/{lineId}", cartHandler.UpdateItem).Methods("PATCH")
	v1.HandleFunc("/cart/items/{lineId}", cartHandler.RemoveItem).Methods("DELETE")
	v1.HandleFunc("/session/resolve", cartHandler.ResolveSession).Methods("POST")
	v1.HandleFunc("/session/anonymous", cartHandler.ProceedAnonymously).Methods("POST")
	v1.HandleFunc("/session/decline", cartHandler.DeclineSession).Methods("POST")
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	return r
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func anonSession() map[string]string {
	return map[string]string{"X-Session-ID": "sess-1"}
}

func authedSession() map[string]string {
	return map[string]string{"X-Session-ID": "sess-1", "X-Session-Token": "tok-alice"}
}

func TestListServices(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, "GET", "/v1/services?search=logo&sort=price-asc", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp models.ServiceListResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "svc_1", resp.Items[0].ID)
	assert.Equal(t, 1, resp.TotalCount)
}

func TestListServices_PageBeyondEnd(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, "GET", "/v1/services?page=99", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp models.ServiceListResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
	assert.Equal(t, 3, resp.TotalCount)
}

func TestListServices_CityIsAdvisory(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, "GET", "/v1/services?city=Berlin", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp models.ServiceListResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "Berlin", resp.City)
	assert.Len(t, resp.Items, 3, "city is echoed for display, never filtered on")
}

// TestGetService_DualPathResolution verifies the detail endpoint accepts
// both the bare id and the encoded slug.
func TestGetService_DualPathResolution(t *testing.T) {
	router := newTestRouter(t)

	byID := doRequest(t, router, "GET", "/v1/services/svc_1", nil, nil)
	require.Equal(t, http.StatusOK, byID.Code)

	encoded := slug.Encode("Minimalist Logo Design", "svc_1")
	bySlug := doRequest(t, router, "GET", "/v1/services/"+encoded, nil, nil)
	require.Equal(t, http.StatusOK, bySlug.Code)

	var respA, respB models.ServiceResponse
	require.NoError(t, json.Unmarshal(byID.Body.Bytes(), &respA))
	require.NoError(t, json.Unmarshal(bySlug.Body.Bytes(), &respB))
	assert.Equal(t, respA.Service.ID, respB.Service.ID)
	assert.Equal(t, encoded, respA.Slug)
}

func TestGetService_NotFound(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, "GET", "/v1/services/unknown-thing-svc_999", nil, nil)

	require.Equal(t, http.StatusNotFound, recorder.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Code)
}

func TestAddItem_AuthenticatedCommitsImmediately(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, "POST", "/v1/cart/items",
		models.AddItemRequest{ServiceID: "svc_1", PackageIndex: 1, Quantity: 2}, authedSession())

	require.Equal(t, http.StatusCreated, recorder.Code)
	var resp models.AddItemResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, models.OutcomeAdded, resp.Outcome)
	require.NotNil(t, resp.Item)
	assert.Equal(t, float64(120), resp.Item.UnitPrice)
	assert.Equal(t, 2, resp.Item.Quantity)
}

// TestAddItem_AnonymousFlow walks the staging handoff over HTTP: the
// add is staged with a login prompt required, then resolution flushes
// it into the cart.
func TestAddItem_AnonymousFlow(t *testing.T) {
	router := newTestRouter(t)

	staged := doRequest(t, router, "POST", "/v1/cart/items",
		models.AddItemRequest{ServiceID: "svc_1", PackageIndex: 0, Quantity: 1}, anonSession())

	require.Equal(t, http.StatusAccepted, staged.Code)
	var stagedResp models.AddItemResponse
	require.NoError(t, json.Unmarshal(staged.Body.Bytes(), &stagedResp))
	assert.Equal(t, models.OutcomeLoginRequired, stagedResp.Outcome)

	// Nothing in the cart while staged
	cartBefore := doRequest(t, router, "GET", "/v1/cart", nil, anonSession())
	var before models.CartResponse
	require.NoError(t, json.Unmarshal(cartBefore.Body.Bytes(), &before))
	assert.Empty(t, before.Items)

	// Authentication resolves
	resolved := doRequest(t, router, "POST", "/v1/session/resolve", nil, authedSession())
	require.Equal(t, http.StatusOK, resolved.Code)
	var resolvedResp models.AddItemResponse
	require.NoError(t, json.Unmarshal(resolved.Body.Bytes(), &resolvedResp))
	assert.Equal(t, models.OutcomeFlushed, resolvedResp.Outcome)

	cartAfter := doRequest(t, router, "GET", "/v1/cart", nil, authedSession())
	var after models.CartResponse
	require.NoError(t, json.Unmarshal(cartAfter.Body.Bytes(), &after))
	require.Len(t, after.Items, 1)
	assert.Equal(t, "svc_1", after.Items[0].ServiceID)
}

func TestAddItem_DeclineDiscardsStaged(t *testing.T) {
	router := newTestRouter(t)

	doRequest(t, router, "POST", "/v1/cart/items",
		models.AddItemRequest{ServiceID: "svc_1", PackageIndex: 0, Quantity: 1}, anonSession())

	declined := doRequest(t, router, "POST", "/v1/session/decline", nil, anonSession())
	require.Equal(t, http.StatusOK, declined.Code)
	var declinedResp models.AddItemResponse
	require.NoError(t, json.Unmarshal(declined.Body.Bytes(), &declinedResp))
	assert.Equal(t, models.OutcomeDiscarded, declinedResp.Outcome)

	cart := doRequest(t, router, "GET", "/v1/cart", nil, anonSession())
	var resp models.CartResponse
	require.NoError(t, json.Unmarshal(cart.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

func TestAddItem_Validation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name           string
		body           models.AddItemRequest
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Unknown service",
			body:           models.AddItemRequest{ServiceID: "svc_999", PackageIndex: 0, Quantity: 1},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "Package index out of range",
			body:           models.AddItemRequest{ServiceID: "svc_2", PackageIndex: 3, Quantity: 1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := doRequest(t, router, "POST", "/v1/cart/items", tc.body, authedSession())

			require.Equal(t, tc.expectedStatus, recorder.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
			assert.Equal(t, tc.expectedCode, resp.Code)
		})
	}
}

func TestCart_UpdateRemoveClear(t *testing.T) {
	router := newTestRouter(t)

	added := doRequest(t, router, "POST", "/v1/cart/items",
		models.AddItemRequest{ServiceID: "svc_1", PackageIndex: 0, Quantity: 1}, authedSession())
	require.Equal(t, http.StatusCreated, added.Code)
	var addResp models.AddItemResponse
	require.NoError(t, json.Unmarshal(added.Body.Bytes(), &addResp))
	lineID := addResp.Item.LineID

	updated := doRequest(t, router, "PATCH", "/v1/cart/items/"+lineID,
		models.UpdateItemRequest{Quantity: 3}, authedSession())
	require.Equal(t, http.StatusOK, updated.Code)
	var updateResp models.CartResponse
	require.NoError(t, json.Unmarshal(updated.Body.Bytes(), &updateResp))
	assert.Equal(t, 3, updateResp.Items[0].Quantity)
	assert.Equal(t, float64(135), updateResp.Total)

	removed := doRequest(t, router, "DELETE", "/v1/cart/items/"+lineID, nil, authedSession())
	require.Equal(t, http.StatusOK, removed.Code)
	var removeResp models.CartResponse
	require.NoError(t, json.Unmarshal(removed.Body.Bytes(), &removeResp))
	assert.Empty(t, removeResp.Items)

	doRequest(t, router, "POST", "/v1/cart/items",
		models.AddItemRequest{ServiceID: "svc_2", PackageIndex: 0, Quantity: 1}, authedSession())
	cleared := doRequest(t, router, "DELETE", "/v1/cart", nil, authedSession())
	require.Equal(t, http.StatusOK, cleared.Code)
	var clearResp models.CartResponse
	require.NoError(t, json.Unmarshal(cleared.Body.Bytes(), &clearResp))
	assert.Empty(t, clearResp.Items)
}

func TestCart_MissingSessionHeader(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, "GET", "/v1/cart", nil, nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	recorder := doRequest(t, router, "GET", "/health", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, recorder.Body.String())
}
