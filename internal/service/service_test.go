package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/pricing"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/repository/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeGateway struct {
	calls   int
	terms   domain.PaymentTerms
	summary *domain.CartSummary
	receipt *domain.CheckoutReceipt
	err     error
}

func (g *fakeGateway) CreateDraftOrder(ctx context.Context, customer *domain.Principal, summary *domain.CartSummary, terms domain.PaymentTerms) (*domain.CheckoutReceipt, error) {
	g.calls++
	g.terms = terms
	g.summary = summary
	if g.err != nil {
		return nil, g.err
	}
	r := *g.receipt
	r.TotalEstimated = summary.TotalEstimated
	return &r, nil
}

type fixture struct {
	ctx      context.Context
	repos    *repository.Repositories
	policies *pricing.PolicyStore
	clock    *testClock
	gateway  *fakeGateway
	svc      *Services
}

func newFixture(t *testing.T, mutate ...func(cfg *config.Config)) *fixture {
	t.Helper()
	logger := zap.NewNop()

	policies, err := pricing.NewPolicyStore(pricing.DefaultPolicy(), logger)
	require.NoError(t, err)

	cfg := &config.Config{
		RFQ: config.RFQConfig{
			QuoteDefaultValidDays: 30,
			AssignMaxRetries:      5,
			CartMaxRetries:        3,
		},
	}
	for _, m := range mutate {
		m(cfg)
	}

	repos := memory.NewRepositories()
	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	gateway := &fakeGateway{receipt: &domain.CheckoutReceipt{DraftOrderID: "gid://shopify/DraftOrder/1", DraftOrderName: "#D1"}}
	catalog := NewCatalogService(nil, repos, logger)

	return &fixture{
		ctx:      context.Background(),
		repos:    repos,
		policies: policies,
		clock:    clock,
		gateway:  gateway,
		svc:      NewServices(cfg, repos, catalog, gateway, policies, logger, clock.Now),
	}
}

func (f *fixture) customer(tier domain.DealerTier, region string) *domain.Principal {
	return &domain.Principal{
		ID:         uuid.New(),
		Name:       "Harbor Marine Supply",
		Role:       domain.RoleCustomer,
		DealerTier: tier,
		Region:     region,
		IsActive:   true,
	}
}

func (f *fixture) admin() *domain.Principal {
	return &domain.Principal{ID: uuid.New(), Name: "ops", Role: domain.RoleAdmin, IsActive: true}
}

// rep creates an account rep and the principal that acts for it
func (f *fixture) rep(t *testing.T, name string, capacity *int, regions ...string) (*domain.AccountRep, *domain.Principal) {
	t.Helper()
	rep := &domain.AccountRep{
		Name:             name,
		ContactEmail:     name + "@example.com",
		TerritoryRegions: regions,
		MaxRfqCapacity:   capacity,
		IsActive:         true,
	}
	require.NoError(t, f.repos.AccountRep.Create(f.ctx, rep))
	repID := rep.ID
	return rep, &domain.Principal{ID: uuid.New(), Name: name, Role: domain.RoleRep, RepID: &repID, IsActive: true}
}

func (f *fixture) stock(t *testing.T, variantID, price string, opts ...func(e *domain.CatalogEntry)) *domain.CatalogEntry {
	t.Helper()
	e := &domain.CatalogEntry{
		ProductID: "prod-" + variantID,
		VariantID: variantID,
		SKU:       "SKU-" + variantID,
		Title:     "Deck cleat " + variantID,
		ListPrice: decimal.RequireFromString(price),
		InStock:   true,
	}
	for _, o := range opts {
		o(e)
	}
	require.NoError(t, f.repos.Catalog.Upsert(f.ctx, e))
	return e
}

func (f *fixture) submit(t *testing.T, customer *domain.Principal, priority domain.RfqPriority, quantities ...int) *domain.RfqRequest {
	t.Helper()
	input := SubmitRFQInput{Priority: priority, CustomerMessage: "need pricing for spring refit"}
	for i, q := range quantities {
		input.Items = append(input.Items, SubmitRFQItem{
			ProductTitle: "Bronze through-hull",
			SKU:          "TH-" + string(rune('A'+i)),
			Quantity:     q,
		})
	}
	request, err := f.svc.RFQs.Submit(f.ctx, customer, input)
	require.NoError(t, err)
	return request
}

func intPtr(v int) *int { return &v }
