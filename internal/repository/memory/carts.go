package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type cartRepository struct {
	s *store
}

func copyCart(c *domain.SavedCart) *domain.SavedCart {
	out := *c
	out.Items = make([]domain.CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.SavedCart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	cart.Version = 1
	cart.CreatedAt = now
	cart.UpdatedAt = now
	r.s.carts[cart.ID] = copyCart(cart)
	return nil
}

func (r *cartRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SavedCart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.carts[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "cart", ID: id.String()}
	}
	return copyCart(c), nil
}

func (r *cartRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.SavedCart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	carts := []*domain.SavedCart{}
	for _, c := range r.s.carts {
		if c.CustomerID == customerID {
			carts = append(carts, copyCart(c))
		}
	}
	sort.Slice(carts, func(i, j int) bool {
		return carts[i].CreatedAt.Before(carts[j].CreatedAt)
	})
	return carts, nil
}

func (r *cartRepository) Update(ctx context.Context, cart *domain.SavedCart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.carts[cart.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "cart", ID: cart.ID.String()}
	}
	if stored.Version != cart.Version {
		return &errors.ErrConflict{Resource: "cart", ID: cart.ID.String(), Version: cart.Version}
	}
	cart.Version++
	cart.UpdatedAt = time.Now()
	r.s.carts[cart.ID] = copyCart(cart)
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.carts[id]; !ok {
		return &errors.ErrNotFound{Resource: "cart", ID: id.String()}
	}
	delete(r.s.carts, id)
	return nil
}
