package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"marketplace-storefront-api/internal/catalog"
	"marketplace-storefront-api/internal/models"
	"marketplace-storefront-api/internal/slug"
	"marketplace-storefront-api/internal/telemetry"
)

// CatalogHandler handles catalog listing and detail requests
type CatalogHandler struct {
	catalog         *catalog.Catalog
	resolver        *catalog.Resolver
	telemetry       *telemetry.StorefrontTelemetry
	defaultPageSize int
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(c *catalog.Catalog, resolver *catalog.Resolver, t *telemetry.StorefrontTelemetry, defaultPageSize int) *CatalogHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = catalog.DefaultPageSize
	}
	return &CatalogHandler{
		catalog:         c,
		resolver:        resolver,
		telemetry:       t,
		defaultPageSize: defaultPageSize,
	}
}

// ListServices handles GET /v1/services - filtered, sorted, paginated listing
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	spec := catalog.QuerySpec{
		FreeText:    q.Get("search"),
		Category:    q.Get("category"),
		PriceBucket: q.Get("price"),
		SortKey:     q.Get("sort"),
		Page:        1,
		PageSize:    h.defaultPageSize,
	}

	// Unknown categories mean an empty result, not an error; the query
	// engine is total and the filter simply matches nothing.
	if spec.Category != "" && !models.IsValidCategory(spec.Category) {
		slog.Debug("Listing requested with unknown category", "category", spec.Category)
	}

	if pageStr := q.Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil {
			spec.Page = page
		}
	}
	if sizeStr := q.Get("pageSize"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 {
			spec.PageSize = size
			// Cap the page size to prevent excessive response payloads
			if spec.PageSize > 100 {
				spec.PageSize = 100
			}
		}
	}

	slog.Debug("Querying catalog listing",
		"search", spec.FreeText,
		"category", spec.Category,
		"price", spec.PriceBucket,
		"sort", spec.SortKey,
		"page", spec.Page,
		"page_size", spec.PageSize,
		"remote_addr", r.RemoteAddr)

	result := h.catalog.Query(spec)
	h.telemetry.RegisterCatalogQuery(r.Context(), spec.SortKey, result.TotalCount)

	writeJSONResponse(w, http.StatusOK, models.ServiceListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
		Page:       result.Page,
		PageSize:   result.PageSize,
		// The city parameter is advisory: echoed for display, never
		// filtered on.
		City: q.Get("city"),
	})
}

// GetService handles GET /v1/services/{slugOrId} - dual-path resolution
func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	segment := mux.Vars(r)["slugOrId"]

	svc, err := h.resolver.Resolve(segment)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			slog.Debug("Service not found", "segment", segment, "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusNotFound, "not_found", "Service not found", nil)
			return
		}
		slog.Error("Failed to resolve service", "segment", segment, "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.ServiceResponse{
		Service: svc,
		Slug:    slug.Encode(svc.Title, svc.ID),
	})
}
