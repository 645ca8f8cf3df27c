package catalog

import (
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"marketplace-storefront-api/internal/cache"
	"marketplace-storefront-api/internal/models"
	"marketplace-storefront-api/internal/slug"
)

// Resolver turns a path segment into a service. The segment may be a
// bare id (deep links, legacy URLs) or a slug-encoded canonical share
// link; the caller never has to know which form it received.
type Resolver struct {
	catalog *Catalog
	cache   *cache.TTLCache
	sfg     singleflight.Group
}

// NewResolver creates a resolver over the catalog with a lookup cache
func NewResolver(c *Catalog, ttl, cleanupInterval time.Duration) *Resolver {
	return &Resolver{
		catalog: c,
		cache:   cache.NewTTLCache(ttl, cleanupInterval),
	}
}

// Resolve looks the segment up as a raw id first, then falls back to
// decoding it as a slug. A malformed slug is absorbed into
// ErrServiceNotFound; resolution never surfaces a decode failure.
func (r *Resolver) Resolve(slugOrID string) (models.Service, error) {
	if cached, ok := r.cache.Get(slugOrID); ok {
		return cached.(models.Service), nil
	}

	// Collapse concurrent misses for the same segment into one lookup.
	v, err, _ := r.sfg.Do(slugOrID, func() (interface{}, error) {
		svc, err := r.lookup(slugOrID)
		if err != nil {
			return nil, err
		}
		r.cache.Set(slugOrID, svc)
		return svc, nil
	})
	if err != nil {
		return models.Service{}, err
	}
	return v.(models.Service), nil
}

// Stop releases the resolver's cache resources
func (r *Resolver) Stop() {
	r.cache.Stop()
}

func (r *Resolver) lookup(slugOrID string) (models.Service, error) {
	if svc, ok := r.catalog.Get(slugOrID); ok {
		return svc, nil
	}

	id, err := slug.Decode(slugOrID)
	if err != nil {
		slog.Debug("Segment is neither a known id nor a well-formed slug", "segment", slugOrID)
		return models.Service{}, ErrServiceNotFound
	}

	if svc, ok := r.catalog.Get(id); ok {
		return svc, nil
	}
	return models.Service{}, ErrServiceNotFound
}
