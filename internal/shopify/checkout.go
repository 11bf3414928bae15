package shopify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
)

// CreateDraftOrder hands a validated cart to Shopify as a draft order. Each line keeps its
// variant and carries the dealer discount as a fixed per-unit amount, so the draft order
// totals match the portal's prices. Payment terms travel as a tag and an order attribute.
func (c *Client) CreateDraftOrder(ctx context.Context, customer *domain.Principal, summary *domain.CartSummary, terms domain.PaymentTerms) (*domain.CheckoutReceipt, error) {
	lineItems := make([]DraftOrderLineItemInput, 0, len(summary.Items))
	for _, item := range summary.Items {
		line := DraftOrderLineItemInput{
			VariantID: variantGID(item.VariantID),
			Quantity:  item.Quantity,
			CustomAttributes: []DraftOrderAttributeInput{
				{Key: "unit_price", Value: item.UnitPrice.StringFixed(2)},
				{Key: "discount_source", Value: string(item.DiscountSource)},
			},
		}
		if off := item.ListPrice.Sub(item.UnitPrice); off.IsPositive() {
			line.AppliedDiscount = &AppliedDiscountInput{
				Title:     fmt.Sprintf("Dealer price (%s%%)", item.DiscountPercent.String()),
				Value:     off.StringFixed(2),
				ValueType: "FIXED_AMOUNT",
			}
		}
		lineItems = append(lineItems, line)
	}

	note := fmt.Sprintf("B2B portal cart %s", summary.CartID)
	input := DraftOrderInput{
		LineItems: lineItems,
		Tags: []string{
			fmt.Sprintf("dealer:%s", customer.Name),
			fmt.Sprintf("tier:%s", summary.DealerTier),
			fmt.Sprintf("payment_terms:%s", terms),
			"b2b_portal",
		},
		Note: &note,
		CustomAttributes: []DraftOrderAttributeInput{
			{Key: "cart_id", Value: summary.CartID.String()},
			{Key: "customer_id", Value: customer.ID.String()},
			{Key: "total_estimated", Value: summary.TotalEstimated.StringFixed(2)},
			{Key: "payment_terms", Value: string(terms)},
		},
	}

	resp, err := c.Execute(ctx, DraftOrderCreateMutation, map[string]interface{}{
		"input": input,
	})
	if err != nil {
		c.logger.Error("Failed to create draft order", zap.Error(err), zap.String("cart_id", summary.CartID.String()))
		return nil, fmt.Errorf("failed to create draft order: %w", err)
	}

	var result struct {
		DraftOrderCreate struct {
			DraftOrder *struct {
				ID         string `json:"id"`
				Name       string `json:"name"`
				InvoiceURL string `json:"invoiceUrl"`
			} `json:"draftOrder"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"draftOrderCreate"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse draft order response: %w", err)
	}
	if len(result.DraftOrderCreate.UserErrors) > 0 {
		return nil, fmt.Errorf("shopify user errors: %v", result.DraftOrderCreate.UserErrors)
	}
	if result.DraftOrderCreate.DraftOrder == nil {
		return nil, fmt.Errorf("shopify returned no draft order")
	}

	draft := result.DraftOrderCreate.DraftOrder
	c.logger.Info("Created draft order",
		zap.String("draft_order_id", draft.ID),
		zap.String("cart_id", summary.CartID.String()),
	)
	return &domain.CheckoutReceipt{
		DraftOrderID:   idFromGID(draft.ID),
		DraftOrderName: draft.Name,
		InvoiceURL:     draft.InvoiceURL,
		TotalEstimated: summary.TotalEstimated,
	}, nil
}
