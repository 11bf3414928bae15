package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// ErrCheckoutUnavailable is returned when no checkout gateway is configured
var ErrCheckoutUnavailable = fmt.Errorf("checkout hand-off is not configured")

// CheckoutService validates a cart and hands it to the storefront
type CheckoutService struct {
	carts   *CartService
	gateway CheckoutGateway
	logger  *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(carts *CartService, gateway CheckoutGateway, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		carts:   carts,
		gateway: gateway,
		logger:  logger,
	}
}

// Checkout blocks on error-severity findings and otherwise creates a draft order.
// Warnings and info findings travel back with the receipt.
func (s *CheckoutService) Checkout(ctx context.Context, customer *domain.Principal, cartID uuid.UUID) (*CheckoutResult, error) {
	report, err := s.carts.Validate(ctx, customer, cartID)
	if err != nil {
		return nil, err
	}
	if len(report.Summary.Items) == 0 {
		return nil, &errors.ErrInvalidQuantity{Reason: "cannot check out an empty cart"}
	}
	if !report.CanCheckout {
		return nil, &errors.ErrValidationFailed{Results: report.Results}
	}
	if s.gateway == nil {
		return nil, ErrCheckoutUnavailable
	}

	terms := domain.PaymentTermsPrepaid
	if report.CreditTermsEligible {
		terms = domain.PaymentTermsCredit
	}
	receipt, err := s.gateway.CreateDraftOrder(ctx, customer, report.Summary, terms)
	if err != nil {
		s.logger.Error("Failed to hand off cart",
			zap.Error(err),
			zap.String("cart_id", cartID.String()),
		)
		return nil, err
	}

	s.logger.Info("Cart checked out",
		zap.String("cart_id", cartID.String()),
		zap.String("draft_order_id", receipt.DraftOrderID),
		zap.String("total_estimated", report.Summary.TotalEstimated.StringFixed(2)),
		zap.String("payment_terms", string(terms)),
	)
	return &CheckoutResult{Receipt: receipt, Warnings: report.Results, PaymentTerms: terms}, nil
}
