package memory

import (
	"context"
	"sync"

	"github.com/xenking/footwear-cart/internal/domain/catalog"
)

var _ catalog.Repository = (*Catalog)(nil)

// Catalog is a read-mostly variant table.
type Catalog struct {
	mu       sync.RWMutex
	variants map[string]catalog.Variant
}

// NewCatalog returns a Catalog holding variants.
func NewCatalog(variants ...catalog.Variant) *Catalog {
	c := &Catalog{variants: make(map[string]catalog.Variant, len(variants))}
	c.Put(variants...)
	return c
}

// Put inserts or replaces variants.
func (c *Catalog) Put(variants ...catalog.Variant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range variants {
		c.variants[v.ID] = v
	}
}

func (c *Catalog) GetByID(_ context.Context, id string) (*catalog.Variant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variants[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &v, nil
}

func (c *Catalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Variant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]catalog.Variant, 0, len(ids))
	for _, id := range ids {
		if v, ok := c.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}
