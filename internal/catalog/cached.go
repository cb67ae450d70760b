package catalog

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/visit-api/internal/model"
)

// CachedResolver is a read-through cache over a catalog resolver. Catalog
// rows change rarely, so a short TTL keeps repeat keystrokes and page
// flips off the database without staleness concerns.
type CachedResolver struct {
	next  Resolver
	cache *gocache.Cache
}

func NewCachedResolver(next Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *CachedResolver) Search(ctx context.Context, kind model.CatalogKind, q model.CatalogQuery) (*model.CatalogPage, error) {
	q = q.Normalized()
	key := fmt.Sprintf("%s|%s|%d|%d", kind, q.Filter, q.Page, q.PageSize)

	if hit, ok := r.cache.Get(key); ok {
		return hit.(*model.CatalogPage), nil
	}

	page, err := r.next.Search(ctx, kind, q)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(key, page)
	return page, nil
}
