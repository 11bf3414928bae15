package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/cart"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// racingCarts writes the same cart behind the caller's back before the next `races` updates
type racingCarts struct {
	repository.CartRepository
	races int
}

func (r *racingCarts) Update(ctx context.Context, cart *domain.SavedCart) error {
	if r.races > 0 {
		r.races--
		other, err := r.CartRepository.GetByID(ctx, cart.ID)
		if err != nil {
			return err
		}
		other.Name = "renamed elsewhere"
		if err := r.CartRepository.Update(ctx, other); err != nil {
			return err
		}
	}
	return r.CartRepository.Update(ctx, cart)
}

func TestCartService_AddItemPricesForTier(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierPremium, "NE")
	f.stock(t, "v1", "100.00")

	cart, err := f.svc.Carts.CreateCart(f.ctx, customer, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Default cart", cart.Name)

	view, err := f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v1", "v1", 3)
	require.NoError(t, err)
	require.Len(t, view.Summary.Items, 1)
	assert.Equal(t, "90.00", view.Summary.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "270.00", view.Summary.TotalEstimated.StringFixed(2))
	assert.Equal(t, 2, view.Version)

	view, err = f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v1", "v1", 2)
	require.NoError(t, err)
	require.Len(t, view.Summary.Items, 1)
	assert.Equal(t, 5, view.Summary.Items[0].Quantity)
}

func TestCartService_UnknownVariant(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	cart, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)

	_, err = f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-x", "x", 1)
	assert.True(t, errors.IsNotFound(err))
}

func TestCartService_RejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "10")
	cart, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)

	_, err = f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v1", "v1", 0)
	var invalid *errors.ErrInvalidQuantity
	assert.ErrorAs(t, err, &invalid)
}

func TestCartService_OtherCustomersCartIsNotFound(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(domain.DealerTierStandard, "")
	stranger := f.customer(domain.DealerTierStandard, "")

	cart, err := f.svc.Carts.CreateCart(f.ctx, owner, "mine")
	require.NoError(t, err)

	_, err = f.svc.Carts.GetCart(f.ctx, stranger, cart.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(f.svc.Carts.DeleteCart(f.ctx, stranger, cart.ID)))

	_, err = f.svc.Carts.GetCart(f.ctx, owner, cart.ID)
	assert.NoError(t, err)
}

func TestCartService_TierComesFromProfile(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "100")

	cart, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)
	_, err = f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v1", "v1", 1)
	require.NoError(t, err)

	customer.DealerTier = domain.DealerTierEnterprise
	view, err := f.svc.Carts.GetCart(f.ctx, customer, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealerTierEnterprise, view.Summary.DealerTier)
	assert.Equal(t, "85.00", view.Summary.TotalEstimated.StringFixed(2))
}

func TestCartService_UpdateRemoveClear(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "10")
	f.stock(t, "v2", "20")

	cart, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)
	_, err = f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v1", "v1", 1)
	require.NoError(t, err)
	view, err := f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v2", "v2", 1)
	require.NoError(t, err)
	first := view.Summary.Items[0].ID

	view, err = f.svc.Carts.UpdateQuantity(f.ctx, customer, cart.ID, first, 4)
	require.NoError(t, err)
	assert.Equal(t, "60.00", view.Summary.TotalEstimated.StringFixed(2))

	view, err = f.svc.Carts.UpdateQuantity(f.ctx, customer, cart.ID, first, 0)
	require.NoError(t, err)
	require.Len(t, view.Summary.Items, 1)
	assert.Equal(t, "SKU-v2", view.Summary.Items[0].SKU)

	_, err = f.svc.Carts.RemoveItem(f.ctx, customer, cart.ID, uuid.New())
	assert.True(t, errors.IsNotFound(err))

	view, err = f.svc.Carts.Clear(f.ctx, customer, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Summary.Items)
	assert.True(t, view.Summary.TotalEstimated.IsZero())
}

func TestCartService_RetriesOnConflict(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "10")
	cart, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)

	f.repos.Cart = &racingCarts{CartRepository: f.repos.Cart, races: 1}

	view, err := f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v1", "v1", 2)
	require.NoError(t, err)
	assert.Equal(t, "renamed elsewhere", view.Name)
	assert.Equal(t, 3, view.Version)
	require.Len(t, view.Summary.Items, 1)
	assert.Equal(t, 2, view.Summary.Items[0].Quantity)
}

func TestCartService_GivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "10")
	cart, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)

	f.repos.Cart = &racingCarts{CartRepository: f.repos.Cart, races: 10}

	_, err = f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v1", "v1", 2)
	assert.True(t, errors.IsConflict(err))

	stored, err := f.repos.Cart.GetByID(f.ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Items)
}

func TestCartService_Validate(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "10", func(e *domain.CatalogEntry) { e.MinimumQuantity = intPtr(6) })

	cart, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)

	report, err := f.svc.Carts.Validate(f.ctx, customer, cart.ID)
	require.NoError(t, err)
	assert.False(t, report.CanCheckout, "an empty cart cannot check out")

	_, err = f.svc.Carts.AddItem(f.ctx, customer, cart.ID, "prod-v1", "v1", 2)
	require.NoError(t, err)
	report, err = f.svc.Carts.Validate(f.ctx, customer, cart.ID)
	require.NoError(t, err)
	assert.False(t, report.CanCheckout)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.ValidationMinimumQuantity, report.Results[0].Type)
}

// catalogFunc adapts a function to CatalogLookup
type catalogFunc func(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error)

func (f catalogFunc) GetVariant(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error) {
	return f(ctx, productID, variantID)
}

func TestCartService_ValidateRefreshesCatalog(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "50.00")

	created, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)
	_, err = f.svc.Carts.AddItem(f.ctx, customer, created.ID, "prod-v1", "v1", 4)
	require.NoError(t, err)

	report, err := f.svc.Carts.Validate(f.ctx, customer, created.ID)
	require.NoError(t, err)
	assert.True(t, report.CanCheckout)
	unchanged, err := f.repos.Cart.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unchanged.Version, "an unchanged catalog is not written back")

	f.stock(t, "v1", "80.00", func(e *domain.CatalogEntry) { e.StockQuantity = intPtr(1) })
	f.repos.Cart = &racingCarts{CartRepository: f.repos.Cart, races: 1}

	report, err = f.svc.Carts.Validate(f.ctx, customer, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "80.00", report.Summary.Items[0].ListPrice.StringFixed(2))
	assert.Equal(t, "320.00", report.Summary.TotalEstimated.StringFixed(2))
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.ValidationStock, report.Results[0].Type)

	stored, err := f.repos.Cart.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed elsewhere", stored.Name)
	assert.Equal(t, 4, stored.Version)
	assert.Equal(t, 4, stored.Items[0].Quantity)
	assert.True(t, stored.Items[0].ListPrice.Equal(report.Summary.Items[0].ListPrice))
}

func TestCartService_ValidateFlagsVanishedVariant(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "50.00")

	created, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)
	_, err = f.svc.Carts.AddItem(f.ctx, customer, created.ID, "prod-v1", "v1", 1)
	require.NoError(t, err)

	gone := catalogFunc(func(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error) {
		return nil, &errors.ErrNotFound{Resource: "catalog variant", ID: variantID}
	})
	carts := NewCartService(3, f.repos, gone, f.policies, zap.NewNop())

	report, err := carts.Validate(f.ctx, customer, created.ID)
	require.NoError(t, err)
	assert.False(t, report.CanCheckout)
	assert.True(t, cart.HasBlocking(report.Results))
	assert.True(t, report.Summary.Items[0].Discontinued)
	assert.Equal(t, "50.00", report.Summary.Items[0].ListPrice.StringFixed(2))
}

func TestCartService_ValidateStopsOnCatalogOutage(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	f.stock(t, "v1", "50.00")

	created, err := f.svc.Carts.CreateCart(f.ctx, customer, "dock")
	require.NoError(t, err)
	_, err = f.svc.Carts.AddItem(f.ctx, customer, created.ID, "prod-v1", "v1", 1)
	require.NoError(t, err)

	outage := assert.AnError
	down := catalogFunc(func(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error) {
		return nil, outage
	})
	carts := NewCartService(3, f.repos, down, f.policies, zap.NewNop())

	_, err = carts.Validate(f.ctx, customer, created.ID)
	assert.ErrorIs(t, err, outage)
}
