package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-storefront-api/internal/models"
)

func testListing() []models.Service {
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
		{
			ID: "svc_4", Title: "Logo Animation", Category: models.CategoryVideo,
			Packages: []models.Package{{Price: 95}},
			Rating:   4.8, TotalReviews: 151,
		},
		{
			ID: "svc_5", Title: "Social Media Campaign", Category: models.CategoryMarketing,
			Packages: []models.Package{{Price: 220}},
			Rating:   4.4, TotalReviews: 65,
		},
		{
			ID: "svc_6", Title: "Design Consultation", Category: models.CategoryDesign,
			Packages: []models.Package{{Price: 75}},
			Rating:   4.8, TotalReviews: 30,
		},
	}
}

func ids(services []models.Service) []string {
	out := make([]string, len(services))
	for i, svc := range services {
		out[i] = svc.ID
	}
	return out
}

func TestQuery_NoFilters(t *testing.T) {
	c := New(testListing())

	result := c.Query(QuerySpec{})

	assert.Equal(t, 6, result.TotalCount)
	assert.Equal(t, 1, result.TotalPages)
	// recommended order == original listing order
	assert.Equal(t, []string{"svc_1", "svc_2", "svc_3", "svc_4", "svc_5", "svc_6"}, ids(result.Items))
}

func TestQuery_CategoryFilter(t *testing.T) {
	c := New(testListing())

	result := c.Query(QuerySpec{Category: models.CategoryDesign})

	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, []string{"svc_1", "svc_6"}, ids(result.Items))
}

// TestQuery_FreeTextMatchesTitleAndCategory verifies the broad-recall
// policy: a hit on either field qualifies.
func TestQuery_FreeTextMatchesTitleAndCategory(t *testing.T) {
	c := New(testListing())

	// "logo" hits two titles
	byTitle := c.Query(QuerySpec{FreeText: "LOGO"})
	assert.Equal(t, []string{"svc_1", "svc_4"}, ids(byTitle.Items))

	// "design" hits the design category plus title matches
	byCategory := c.Query(QuerySpec{FreeText: "design"})
	assert.Equal(t, []string{"svc_1", "svc_6"}, ids(byCategory.Items))
}

func TestQuery_PriceBuckets(t *testing.T) {
	c := New(testListing())

	tests := []struct {
		bucket   string
		expected []string
	}{
		{PriceUnder50, []string{"svc_1", "svc_3"}},
		{Price50To100, []string{"svc_4", "svc_6"}},
		{Price100To200, []string{"svc_2"}},
		{Price200Plus, []string{"svc_5"}},
		{"no-such-bucket", []string{"svc_1", "svc_2", "svc_3", "svc_4", "svc_5", "svc_6"}},
	}

	for _, tc := range tests {
		t.Run(tc.bucket, func(t *testing.T) {
			result := c.Query(QuerySpec{PriceBucket: tc.bucket})
			assert.Equal(t, tc.expected, ids(result.Items))
		})
	}
}

// TestQuery_FilterComposition verifies that combining filters equals the
// intersection of applying each filter independently.
func TestQuery_FilterComposition(t *testing.T) {
	c := New(testListing())

	combined := c.Query(QuerySpec{
		Category:    models.CategoryDesign,
		FreeText:    "logo",
		PriceBucket: PriceUnder50,
	})

	byCategory := map[string]bool{}
	for _, svc := range c.Query(QuerySpec{Category: models.CategoryDesign}).Items {
		byCategory[svc.ID] = true
	}
	byText := map[string]bool{}
	for _, svc := range c.Query(QuerySpec{FreeText: "logo"}).Items {
		byText[svc.ID] = true
	}
	byPrice := map[string]bool{}
	for _, svc := range c.Query(QuerySpec{PriceBucket: PriceUnder50}).Items {
		byPrice[svc.ID] = true
	}

	var intersection []string
	for _, svc := range c.Services() {
		if byCategory[svc.ID] && byText[svc.ID] && byPrice[svc.ID] {
			intersection = append(intersection, svc.ID)
		}
	}

	assert.Equal(t, intersection, ids(combined.Items))
	assert.Equal(t, []string{"svc_1"}, ids(combined.Items))
}

// TestQuery_SortStability verifies ties keep original listing order
func TestQuery_SortStability(t *testing.T) {
	c := New(testListing())

	result := c.Query(QuerySpec{SortKey: SortRating})

	// svc_3 leads at 4.9; svc_1, svc_4, svc_6 tie at 4.8 and must keep
	// listing order.
	assert.Equal(t, []string{"svc_3", "svc_1", "svc_4", "svc_6", "svc_2", "svc_5"}, ids(result.Items))
}

func TestQuery_SortKeys(t *testing.T) {
	c := New(testListing())

	priceAsc := c.Query(QuerySpec{SortKey: SortPriceAsc})
	assert.Equal(t, []string{"svc_3", "svc_1", "svc_6", "svc_4", "svc_2", "svc_5"}, ids(priceAsc.Items))

	priceDesc := c.Query(QuerySpec{SortKey: SortPriceDesc})
	assert.Equal(t, []string{"svc_5", "svc_2", "svc_4", "svc_6", "svc_1", "svc_3"}, ids(priceDesc.Items))

	reviews := c.Query(QuerySpec{SortKey: SortReviews})
	assert.Equal(t, []string{"svc_3", "svc_1", "svc_4", "svc_2", "svc_5", "svc_6"}, ids(reviews.Items))
}

// TestQuery_UnknownSortKeyFallsBack verifies unknown sort keys degrade
// to recommended order instead of erroring.
func TestQuery_UnknownSortKeyFallsBack(t *testing.T) {
	c := New(testListing())

	result := c.Query(QuerySpec{SortKey: "cheapest-first-typo"})

	assert.Equal(t, ids(c.Query(QuerySpec{}).Items), ids(result.Items))
}

func TestQuery_Pagination(t *testing.T) {
	c := New(testListing())

	// 6 services, page size 4: last page holds the remainder
	page1 := c.Query(QuerySpec{Page: 1, PageSize: 4})
	require.Equal(t, 6, page1.TotalCount)
	assert.Equal(t, 2, page1.TotalPages)
	assert.Len(t, page1.Items, 4)

	page2 := c.Query(QuerySpec{Page: 2, PageSize: 4})
	assert.Len(t, page2.Items, 2)
	assert.Equal(t, []string{"svc_5", "svc_6"}, ids(page2.Items))

	// Beyond the last page: empty items, counts unchanged
	page3 := c.Query(QuerySpec{Page: 3, PageSize: 4})
	assert.Empty(t, page3.Items)
	assert.Equal(t, 6, page3.TotalCount)
	assert.Equal(t, 2, page3.TotalPages)

	// Page <= 0 clamps to page 1
	clamped := c.Query(QuerySpec{Page: -2, PageSize: 4})
	assert.Equal(t, ids(page1.Items), ids(clamped.Items))
	assert.Equal(t, 1, clamped.Page)

	// Exact multiple: last page is full
	exact := c.Query(QuerySpec{Page: 2, PageSize: 3})
	assert.Len(t, exact.Items, 3)
}

// TestQuery_Idempotence verifies repeated identical queries return
// identical output, element order included.
func TestQuery_Idempotence(t *testing.T) {
	c := New(testListing())
	spec := QuerySpec{FreeText: "o", SortKey: SortRating, Page: 1, PageSize: 3}

	first := c.Query(spec)
	second := c.Query(spec)

	assert.Equal(t, first, second)
}

// TestNew_ValidationSkipsBadEntries verifies boundary validation drops
// malformed entries without failing the load.
func TestNew_ValidationSkipsBadEntries(t *testing.T) {
	c := New([]models.Service{
		{ID: "ok_1", Title: "Valid", Category: models.CategoryDesign, Packages: []models.Package{{Price: 10}}},
		{ID: "", Title: "No ID", Category: models.CategoryDesign, Packages: []models.Package{{Price: 10}}},
		{ID: "no_pkg", Title: "No Packages", Category: models.CategoryDesign},
		{ID: "bad_cat", Title: "Bad Category", Category: "gardening", Packages: []models.Package{{Price: 10}}},
		{ID: "ok_1", Title: "Duplicate", Category: models.CategoryDesign, Packages: []models.Package{{Price: 10}}},
	})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("ok_1")
	assert.True(t, ok)
}
