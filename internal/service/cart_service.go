package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/cart"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/pricing"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// CartService runs cart aggregate operations against saved carts. Every mutation is
// load, apply, compare-and-swap; a conflicting concurrent write causes a bounded retry.
type CartService struct {
	maxRetries int
	repos      *repository.Repositories
	catalog    CatalogLookup
	policies   *pricing.PolicyStore
	logger     *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(maxRetries int, repos *repository.Repositories, catalog CatalogLookup, policies *pricing.PolicyStore, logger *zap.Logger) *CartService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &CartService{
		maxRetries: maxRetries,
		repos:      repos,
		catalog:    catalog,
		policies:   policies,
		logger:     logger,
	}
}

// CreateCart starts an empty named cart for a customer
func (s *CartService) CreateCart(ctx context.Context, customer *domain.Principal, name string) (*CartView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Default cart"
	}
	record := &domain.SavedCart{
		CustomerID: customer.ID,
		Name:       name,
		DealerTier: customer.DealerTier,
		Items:      []domain.CartItem{},
	}
	if err := s.repos.Cart.Create(ctx, record); err != nil {
		s.logger.Error("Failed to create cart", zap.Error(err), zap.String("customer_id", customer.ID.String()))
		return nil, err
	}
	return s.view(record)
}

// ListCarts returns every saved cart of a customer
func (s *CartService) ListCarts(ctx context.Context, customer *domain.Principal) ([]*CartView, error) {
	records, err := s.repos.Cart.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	views := make([]*CartView, 0, len(records))
	for _, record := range records {
		record.DealerTier = customer.DealerTier
		v, err := s.view(record)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// GetCart returns a cart with its summary recomputed under the current policy
func (s *CartService) GetCart(ctx context.Context, customer *domain.Principal, cartID uuid.UUID) (*CartView, error) {
	record, err := s.load(ctx, customer, cartID)
	if err != nil {
		return nil, err
	}
	return s.view(record)
}

// Record returns the raw saved cart after the ownership check
func (s *CartService) Record(ctx context.Context, customer *domain.Principal, cartID uuid.UUID) (*domain.SavedCart, error) {
	return s.load(ctx, customer, cartID)
}

// DeleteCart removes a saved cart
func (s *CartService) DeleteCart(ctx context.Context, customer *domain.Principal, cartID uuid.UUID) error {
	if _, err := s.load(ctx, customer, cartID); err != nil {
		return err
	}
	return s.repos.Cart.Delete(ctx, cartID)
}

// AddItem looks the variant up in the catalog and adds quantity units of it
func (s *CartService) AddItem(ctx context.Context, customer *domain.Principal, cartID uuid.UUID, productID, variantID string, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return nil, &errors.ErrInvalidQuantity{Quantity: quantity, Reason: "quantity must be a positive integer"}
	}
	entry, err := s.catalog.GetVariant(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, customer, cartID, func(c *cart.Cart) (*domain.CartSummary, error) {
		return c.AddItem(*entry, quantity)
	})
}

// UpdateQuantity sets a line's quantity; zero removes the line
func (s *CartService) UpdateQuantity(ctx context.Context, customer *domain.Principal, cartID, itemID uuid.UUID, quantity int) (*CartView, error) {
	return s.mutate(ctx, customer, cartID, func(c *cart.Cart) (*domain.CartSummary, error) {
		return c.UpdateQuantity(itemID, quantity)
	})
}

// RemoveItem drops a line
func (s *CartService) RemoveItem(ctx context.Context, customer *domain.Principal, cartID, itemID uuid.UUID) (*CartView, error) {
	return s.mutate(ctx, customer, cartID, func(c *cart.Cart) (*domain.CartSummary, error) {
		return c.RemoveItem(itemID)
	})
}

// Clear empties a cart
func (s *CartService) Clear(ctx context.Context, customer *domain.Principal, cartID uuid.UUID) (*CartView, error) {
	return s.mutate(ctx, customer, cartID, func(c *cart.Cart) (*domain.CartSummary, error) {
		return c.Clear()
	})
}

// Validate re-reads every line from the catalog, saves the refreshed snapshot and
// runs the cart validator over the result
func (s *CartService) Validate(ctx context.Context, customer *domain.Principal, cartID uuid.UUID) (*ValidationReport, error) {
	record, summary, err := s.refresh(ctx, customer, cartID)
	if err != nil {
		return nil, err
	}
	policy := s.policies.Current()
	results := cart.NewValidator(policy).Validate(summary, record.DealerTier)
	return &ValidationReport{
		Summary:             summary,
		Results:             results,
		CanCheckout:         len(summary.Items) > 0 && !cart.HasBlocking(results),
		CreditTermsEligible: policy.HasCreditTerms(record.DealerTier),
	}, nil
}

// refresh brings each line's catalog snapshot up to date. Only changed carts are written.
func (s *CartService) refresh(ctx context.Context, customer *domain.Principal, cartID uuid.UUID) (*domain.SavedCart, *domain.CartSummary, error) {
	record, err := s.load(ctx, customer, cartID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.lookupLines(ctx, record.Items)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 1; ; attempt++ {
		summary, changed, err := cart.New(record, s.policies.Current()).Refresh(entries)
		if err != nil {
			return nil, nil, err
		}
		if !changed {
			return record, summary, nil
		}

		err = s.repos.Cart.Update(ctx, record)
		if err == nil {
			s.logger.Info("Cart catalog snapshot refreshed", zap.String("cart_id", cartID.String()))
			return record, summary, nil
		}
		if !errors.IsConflict(err) || attempt >= s.maxRetries {
			if !errors.IsConflict(err) {
				s.logger.Error("Failed to save cart", zap.Error(err), zap.String("cart_id", cartID.String()))
			}
			return nil, nil, err
		}
		if record, err = s.load(ctx, customer, cartID); err != nil {
			return nil, nil, err
		}
	}
}

// lookupLines reads the catalog for every line. A variant the catalog no longer knows
// is kept with its old data but marked discontinued and out of stock.
func (s *CartService) lookupLines(ctx context.Context, items []domain.CartItem) (map[uuid.UUID]domain.CatalogEntry, error) {
	entries := make(map[uuid.UUID]domain.CatalogEntry, len(items))
	for _, item := range items {
		entry, err := s.catalog.GetVariant(ctx, item.ProductID, item.VariantID)
		if err != nil {
			if !errors.IsNotFound(err) {
				s.logger.Error("Failed to refresh cart line",
					zap.Error(err),
					zap.String("sku", item.SKU),
					zap.String("variant_id", item.VariantID),
				)
				return nil, err
			}
			gone := cart.Snapshot(item)
			gone.Discontinued = true
			gone.InStock = false
			entries[item.ID] = gone
			continue
		}
		entries[item.ID] = *entry
	}
	return entries, nil
}

func (s *CartService) mutate(ctx context.Context, customer *domain.Principal, cartID uuid.UUID, apply func(c *cart.Cart) (*domain.CartSummary, error)) (*CartView, error) {
	for attempt := 1; ; attempt++ {
		record, err := s.load(ctx, customer, cartID)
		if err != nil {
			return nil, err
		}

		summary, err := apply(cart.New(record, s.policies.Current()))
		if err != nil {
			return nil, err
		}

		err = s.repos.Cart.Update(ctx, record)
		if err == nil {
			return &CartView{
				ID:        record.ID,
				Name:      record.Name,
				Version:   record.Version,
				CreatedAt: record.CreatedAt,
				UpdatedAt: record.UpdatedAt,
				Summary:   summary,
			}, nil
		}
		if !errors.IsConflict(err) || attempt >= s.maxRetries {
			if !errors.IsConflict(err) {
				s.logger.Error("Failed to save cart", zap.Error(err), zap.String("cart_id", cartID.String()))
			}
			return nil, err
		}
		s.logger.Warn("Cart modified concurrently, retrying",
			zap.String("cart_id", cartID.String()),
			zap.Int("attempt", attempt),
		)
	}
}

// load fetches a cart owned by customer. The dealer tier always comes from the
// customer's profile, never from what was stored with the cart.
func (s *CartService) load(ctx context.Context, customer *domain.Principal, cartID uuid.UUID) (*domain.SavedCart, error) {
	record, err := s.repos.Cart.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if record.CustomerID != customer.ID {
		// do not reveal other customers' carts
		return nil, &errors.ErrNotFound{Resource: "cart", ID: cartID.String()}
	}
	record.DealerTier = customer.DealerTier
	return record, nil
}

func (s *CartService) view(record *domain.SavedCart) (*CartView, error) {
	summary, err := cart.New(record, s.policies.Current()).Summary()
	if err != nil {
		return nil, err
	}
	return &CartView{
		ID:        record.ID,
		Name:      record.Name,
		Version:   record.Version,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Summary:   summary,
	}, nil
}
