package api

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/style"
)

const (
	styleCacheTTL = 10 * time.Minute
	initialKey    = "initial"
)

// StyleCache memoises style documents built from the catalog.
type StyleCache struct {
	catalog catalog.Catalog
	cache   *ristretto.Cache[string, *style.Document]
}

// NewStyleCache creates a cache over c.
func NewStyleCache(c catalog.Catalog) (*StyleCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *style.Document]{
		NumCounters:        1000,
		MaxCost:            100,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &StyleCache{catalog: c, cache: cache}, nil
}

// Initial returns the style the map is created with.
func (s *StyleCache) Initial() (style.Document, error) {
	if doc, ok := s.cache.Get(initialKey); ok {
		return *doc, nil
	}
	doc, err := style.BuildInitialStyle(s.catalog)
	if err != nil {
		return style.Document{}, err
	}
	s.cache.SetWithTTL(initialKey, &doc, 1, styleCacheTTL)
	s.cache.Wait()
	return doc, nil
}

// Close releases the cache.
func (s *StyleCache) Close() {
	s.cache.Close()
}
