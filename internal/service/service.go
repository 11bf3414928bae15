package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/pricing"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// CatalogLookup supplies point-in-time product data for a variant
type CatalogLookup interface {
	GetVariant(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error)
}

// CheckoutGateway receives validated carts
type CheckoutGateway interface {
	CreateDraftOrder(ctx context.Context, customer *domain.Principal, summary *domain.CartSummary, terms domain.PaymentTerms) (*domain.CheckoutReceipt, error)
}

// Services groups the application services the API layer calls
type Services struct {
	Carts      *CartService
	Checkout   *CheckoutService
	RFQs       *RFQService
	Assignment *AssignmentService
	Quotes     *QuoteService
}

// Clock returns the current time; tests replace it
type Clock func() time.Time

// NewServices wires every service. gateway may be nil when checkout hand-off is not configured.
func NewServices(
	cfg *config.Config,
	repos *repository.Repositories,
	catalog CatalogLookup,
	gateway CheckoutGateway,
	policies *pricing.PolicyStore,
	logger *zap.Logger,
	clock Clock,
) *Services {
	if clock == nil {
		clock = time.Now
	}
	rfqs := NewRFQService(cfg.RFQ, repos, logger, clock)
	carts := NewCartService(cfg.RFQ.CartMaxRetries, repos, catalog, policies, logger)
	return &Services{
		Carts:      carts,
		Checkout:   NewCheckoutService(carts, gateway, logger),
		RFQs:       rfqs,
		Assignment: NewAssignmentService(cfg.RFQ.AssignMaxRetries, repos, rfqs, logger, clock),
		Quotes:     NewQuoteService(cfg.RFQ.QuoteDefaultValidDays, repos, rfqs, logger, clock),
	}
}

// UpdateRFQStatus applies a status change requested through the generic status endpoint.
// IN_REVIEW claims the RFQ for the calling rep, ACCEPTED and DECLINED record a decision
// (admins only, on the customer's behalf),
// EXPIRED succeeds only once the RFQ is overdue. QUOTED needs line prices, so it is refused here.
func (s *Services) UpdateRFQStatus(ctx context.Context, caller *domain.Principal, id uuid.UUID, status domain.RfqStatus) (*domain.RfqRequest, error) {
	switch status {
	case domain.RfqStatusInReview:
		return s.Assignment.Claim(ctx, caller, id)
	case domain.RfqStatusAccepted, domain.RfqStatusDeclined:
		return s.RFQs.Respond(ctx, caller, id, status)
	case domain.RfqStatusExpired:
		return s.RFQs.Expire(ctx, caller, id)
	case domain.RfqStatusQuoted:
		return nil, &errors.ErrInvalidInput{Field: "status", Message: "use the quote endpoint to quote a request"}
	default:
		return nil, &errors.ErrInvalidInput{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
}
