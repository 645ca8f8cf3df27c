// Package catalog holds the in-memory service listing and the query and
// resolution operations over it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"marketplace-storefront-api/internal/models"
)

// ErrServiceNotFound is returned when neither the raw-id nor the
// slug-decode lookup path finds a service.
var ErrServiceNotFound = errors.New("catalog: service not found")

// Catalog is the full in-memory listing, in its original order. The
// listing is read-only after load; queries never mutate it.
type Catalog struct {
	services []models.Service
	byID     map[string]int
}

// New builds a catalog from a listing, validating each entry at the
// boundary. Invalid entries (empty id or title, no packages, unknown
// category) are skipped with a warning rather than aborting the load.
func New(services []models.Service) *Catalog {
	c := &Catalog{
		byID: make(map[string]int),
	}

	for _, svc := range services {
		if err := validate(svc); err != nil {
			slog.Warn("Skipping invalid catalog entry", "id", svc.ID, "error", err)
			continue
		}
		if _, dup := c.byID[svc.ID]; dup {
			slog.Warn("Skipping duplicate catalog entry", "id", svc.ID)
			continue
		}
		c.byID[svc.ID] = len(c.services)
		c.services = append(c.services, svc)
	}

	return c
}

// LoadFile reads a catalog listing from a JSON file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var services []models.Service
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	c := New(services)
	slog.Info("Catalog loaded", "path", path, "service_count", c.Len())
	return c, nil
}

// Len returns the number of services in the listing
func (c *Catalog) Len() int {
	return len(c.services)
}

// Get returns the service with the given id
func (c *Catalog) Get(id string) (models.Service, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return models.Service{}, false
	}
	return c.services[idx], true
}

// Services returns the listing in original order. The returned slice is
// shared; callers must not mutate it.
func (c *Catalog) Services() []models.Service {
	return c.services
}

func validate(svc models.Service) error {
	if svc.ID == "" {
		return errors.New("missing id")
	}
	if svc.Title == "" {
		return errors.New("missing title")
	}
	if len(svc.Packages) == 0 {
		return errors.New("service has no packages")
	}
	if !models.IsValidCategory(svc.Category) {
		return fmt.Errorf("unknown category %q", svc.Category)
	}
	return nil
}
