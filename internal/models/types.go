package models

import "time"

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Category constants for the fixed catalog category set
const (
	CategoryDesign      = "design"
	CategoryDevelopment = "development"
	CategoryWriting     = "writing"
	CategoryMarketing   = "marketing"
	CategoryVideo       = "video"
	CategoryMusic       = "music"
	CategoryBusiness    = "business"
	CategoryLifestyle   = "lifestyle"
)

// Categories lists every valid catalog category.
var Categories = []string{
	CategoryDesign,
	CategoryDevelopment,
	CategoryWriting,
	CategoryMarketing,
	CategoryVideo,
	CategoryMusic,
	CategoryBusiness,
	CategoryLifestyle,
}

// IsValidCategory reports whether category is part of the fixed set.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Package represents one pricing tier of a service. Package order is
// significant: index 0 is the default, cheapest offering shown in
// listing summaries.
type Package struct {
	Price        float64  `json:"price"`
	DeliveryDays int      `json:"deliveryDays"`
	Revisions    int      `json:"revisions"`
	Features     []string `json:"features,omitempty"`
}

// Service represents a catalog entry
type Service struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Description  string    `json:"description,omitempty"`
	City         string    `json:"city,omitempty"`
	Packages     []Package `json:"packages"`
	Rating       float64   `json:"rating"`
	TotalReviews int       `json:"totalReviews"`
	TotalSales   int       `json:"totalSales"`
}

// StartingPrice returns the canonical listing price, Packages[0].Price.
// A service with no packages is invalid; callers validate at the boundary.
func (s Service) StartingPrice() float64 {
	if len(s.Packages) == 0 {
		return 0
	}
	return s.Packages[0].Price
}

// ServiceListResponse represents the response for the listing endpoint
type ServiceListResponse struct {
	Items      []Service `json:"items"`
	TotalCount int       `json:"totalCount"`
	TotalPages int       `json:"totalPages"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	City       string    `json:"city,omitempty"`
}

// ServiceResponse represents the detail endpoint response
type ServiceResponse struct {
	Service Service `json:"service"`
	Slug    string  `json:"slug"`
}

// LineItem is one entry in a cart, referencing a service and a specific
// package tier. LineID is generated locally, not server-assigned, so
// repeated additions of the same service/package combination stay
// distinguishable.
type LineItem struct {
	LineID       string    `json:"lineId"`
	ServiceID    string    `json:"serviceId"`
	PackageIndex int       `json:"packageIndex"`
	Title        string    `json:"title"`
	UnitPrice    float64   `json:"unitPrice"`
	Quantity     int       `json:"quantity"`
	AddedAt      time.Time `json:"addedAt"`
}

// AddItemRequest represents the body of POST /v1/cart/items
type AddItemRequest struct {
	ServiceID    string `json:"serviceId"`
	PackageIndex int    `json:"packageIndex"`
	Quantity     int    `json:"quantity"`
}

// UpdateItemRequest represents the body of PATCH /v1/cart/items/{lineId}
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse represents the cart endpoints' response
type CartResponse struct {
	Items          []LineItem `json:"items"`
	Total          float64    `json:"total"`
	PersistWarning bool       `json:"persistWarning,omitempty"`
}

// AddItemResponse represents the response of POST /v1/cart/items
type AddItemResponse struct {
	Outcome        string    `json:"outcome"`
	Item           *LineItem `json:"item,omitempty"`
	PersistWarning bool      `json:"persistWarning,omitempty"`
}

// Gate outcome constants returned by the cart add and session endpoints
const (
	OutcomeAdded         = "added"
	OutcomeLoginRequired = "login_required"
	OutcomeFlushed       = "flushed"
	OutcomeDiscarded     = "discarded"
	OutcomeNothingStaged = "nothing_staged"
)
