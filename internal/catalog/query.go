package catalog

import (
	"sort"
	"strings"

	"marketplace-storefront-api/internal/models"
)

// Sort keys accepted by Query. Unknown keys fall back to SortRecommended.
const (
	SortRecommended = "recommended"
	SortRating      = "rating"
	SortPriceAsc    = "price-asc"
	SortPriceDesc   = "price-desc"
	SortReviews     = "reviews"
)

// Price buckets over the starting price. Boundaries are inclusive on the
// low end and exclusive on the high end.
const (
	PriceUnder50  = "under-50"
	Price50To100  = "50-100"
	Price100To200 = "100-200"
	Price200Plus  = "200-plus"
)

// DefaultPageSize is used when a query spec carries no page size
const DefaultPageSize = 12

// QuerySpec describes one listing query. Constructed per request, never
// persisted.
type QuerySpec struct {
	FreeText    string
	Category    string
	PriceBucket string
	SortKey     string
	Page        int
	PageSize    int
}

// QueryResult is one page of the filtered, ordered listing. TotalCount
// and TotalPages describe the filtered set before pagination.
type QueryResult struct {
	Items      []models.Service
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
}

// Query filters, sorts, and paginates the listing. It is total over its
// input domain: no spec can make it fail, and repeated calls with the
// same spec against an unchanged listing return identical output.
func (c *Catalog) Query(spec QuerySpec) QueryResult {
	filtered := make([]models.Service, 0, len(c.services))
	for _, svc := range c.services {
		if matches(svc, spec) {
			filtered = append(filtered, svc)
		}
	}

	sortServices(filtered, spec.SortKey)

	pageSize := spec.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := spec.Page
	if page <= 0 {
		page = 1
	}

	totalCount := len(filtered)
	totalPages := (totalCount + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	items := []models.Service{}
	if start < totalCount {
		end := start + pageSize
		if end > totalCount {
			end = totalCount
		}
		items = filtered[start:end]
	}

	return QueryResult{
		Items:      items,
		TotalCount: totalCount,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}
}

// matches applies the three filter stages. The stages are independent,
// so their order only affects how quickly non-matches are rejected.
func matches(svc models.Service, spec QuerySpec) bool {
	if spec.Category != "" && svc.Category != spec.Category {
		return false
	}

	if spec.FreeText != "" {
		// Broad-recall policy: a hit on either title or category
		// qualifies.
		needle := strings.ToLower(spec.FreeText)
		if !strings.Contains(strings.ToLower(svc.Title), needle) &&
			!strings.Contains(strings.ToLower(svc.Category), needle) {
			return false
		}
	}

	if spec.PriceBucket != "" && !inPriceBucket(svc.StartingPrice(), spec.PriceBucket) {
		return false
	}

	return true
}

// inPriceBucket checks the starting price against a named bucket.
// Unknown bucket names filter nothing out.
func inPriceBucket(price float64, bucket string) bool {
	switch bucket {
	case PriceUnder50:
		return price < 50
	case Price50To100:
		return price >= 50 && price < 100
	case Price100To200:
		return price >= 100 && price < 200
	case Price200Plus:
		return price >= 200
	default:
		return true
	}
}

// sortServices orders the filtered set by the requested key. The sort
// is stable so ties keep their original listing order and repeated
// queries are reproducible. SortRecommended keeps listing order as-is.
func sortServices(services []models.Service, sortKey string) {
	switch sortKey {
	case SortRating:
		sort.SliceStable(services, func(i, j int) bool {
			return services[i].Rating > services[j].Rating
		})
	case SortPriceAsc:
		sort.SliceStable(services, func(i, j int) bool {
			return services[i].StartingPrice() < services[j].StartingPrice()
		})
	case SortPriceDesc:
		sort.SliceStable(services, func(i, j int) bool {
			return services[i].StartingPrice() > services[j].StartingPrice()
		})
	case SortReviews:
		sort.SliceStable(services, func(i, j int) bool {
			return services[i].TotalReviews > services[j].TotalReviews
		})
	default:
		// recommended: original listing order
	}
}
