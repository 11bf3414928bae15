package memory

import (
	"context"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type catalogRepository struct {
	s *store
}

func catalogKey(productID, variantID string) string {
	return productID + "/" + variantID
}

func (r *catalogRepository) GetVariant(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.catalog[catalogKey(productID, variantID)]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "catalog variant", ID: variantID}
	}
	c := *e
	return &c, nil
}

func (r *catalogRepository) GetBySKU(ctx context.Context, sku string) (*domain.CatalogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.catalog {
		if e.SKU == sku {
			c := *e
			return &c, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "catalog sku", ID: sku}
}

func (r *catalogRepository) Upsert(ctx context.Context, entry *domain.CatalogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *entry
	r.s.catalog[catalogKey(entry.ProductID, entry.VariantID)] = &c
	return nil
}
