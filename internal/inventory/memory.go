package inventory

import (
	"context"
	"sync"

	"github.com/sellora/sellora-api/internal/errs"
	"github.com/sellora/sellora-api/internal/models"
)

// MemoryStore keeps products in a mutex-guarded map. Used by tests.
type MemoryStore struct {
	mu       sync.Mutex
	products map[int64]*models.Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[int64]*models.Product)}
}

// Put seeds or replaces a product.
func (m *MemoryStore) Put(p *models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = cloneProduct(p)
}

func (m *MemoryStore) FindProduct(_ context.Context, productID int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, errs.E(errs.KindNotFound, "product %d not found", productID)
	}
	return cloneProduct(p), nil
}

func (m *MemoryStore) SaveMutation(_ context.Context, productID int64, opt models.VariantOption, status models.ProductStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return errs.E(errs.KindNotFound, "product %d not found", productID)
	}

	for vi := range p.Variants {
		for oi := range p.Variants[vi].Options {
			if p.Variants[vi].Options[oi].SKU == opt.SKU {
				p.Variants[vi].Options[oi] = opt
				p.Status = status
				return nil
			}
		}
	}
	return errs.E(errs.KindNotFound, "option %q not found on product %d", opt.SKU, productID)
}

func cloneProduct(p *models.Product) *models.Product {
	cp := *p
	cp.Variants = make([]models.Variant, len(p.Variants))
	for i, v := range p.Variants {
		cv := v
		cv.Options = append([]models.VariantOption(nil), v.Options...)
		cp.Variants[i] = cv
	}
	return &cp
}
