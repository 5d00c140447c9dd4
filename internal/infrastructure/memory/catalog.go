package memory

import (
	"context"
	"sync"

	"github.com/quickmart/ordercore/internal/domain/catalog"
)

type Catalog struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]catalog.Product)}
}

func (c *Catalog) Put(p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	_ = ctx

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := p
	return &clone, nil
}
