package cart

import (
	"fmt"
	"strings"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/pricing"
)

// Validator checks a cart against stock, quantity and tier rules. It never mutates the cart.
type Validator struct {
	policy *pricing.Policy
}

// NewValidator creates a validator bound to a pricing policy
func NewValidator(policy *pricing.Policy) *Validator {
	return &Validator{policy: policy}
}

// Validate returns every finding for the cart, item findings in cart order followed by cart-level ones
func (v *Validator) Validate(summary *domain.CartSummary, tier domain.DealerTier) []domain.ValidationResult {
	results := []domain.ValidationResult{}
	for _, item := range summary.Items {
		results = append(results, v.validateItem(item, tier)...)
	}

	if minimum := v.policy.MinimumOrder(tier); minimum.IsPositive() && len(summary.Items) > 0 &&
		summary.TotalEstimated.LessThan(minimum) {
		short := minimum.Sub(summary.TotalEstimated)
		results = append(results, domain.ValidationResult{
			Type:            domain.ValidationMinimumOrder,
			Severity:        domain.SeverityError,
			Message:         fmt.Sprintf("%s orders must total at least %s (current total %s)", tier, minimum.StringFixed(2), summary.TotalEstimated.StringFixed(2)),
			SuggestedAction: fmt.Sprintf("add %s more to reach the minimum order", short.StringFixed(2)),
		})
	}
	return results
}

func (v *Validator) validateItem(item domain.CartItem, tier domain.DealerTier) []domain.ValidationResult {
	var results []domain.ValidationResult
	add := func(t domain.ValidationType, sev domain.Severity, msg, action string) {
		results = append(results, domain.ValidationResult{
			ItemID:          item.ID.String(),
			SKU:             item.SKU,
			Type:            t,
			Severity:        sev,
			Message:         msg,
			SuggestedAction: action,
		})
	}

	if item.Discontinued {
		add(domain.ValidationDiscontinued, domain.SeverityError,
			fmt.Sprintf("%s has been discontinued", item.SKU),
			"remove the item from the cart")
	}

	if !item.InStock {
		add(domain.ValidationStock, domain.SeverityError,
			fmt.Sprintf("%s is out of stock", item.SKU),
			"remove the item from the cart or request a quote")
	} else if item.StockQuantity != nil && item.Quantity > *item.StockQuantity {
		severity := domain.SeverityWarning
		msg := fmt.Sprintf("only %d of %s in stock, %d will be backordered", *item.StockQuantity, item.SKU, item.Quantity-*item.StockQuantity)
		if v.policy.StrictStock {
			severity = domain.SeverityError
			msg = fmt.Sprintf("only %d of %s in stock", *item.StockQuantity, item.SKU)
		}
		add(domain.ValidationStock, severity, msg,
			fmt.Sprintf("reduce quantity to %d", *item.StockQuantity))
	}

	if item.MinimumQuantity != nil && item.Quantity < *item.MinimumQuantity {
		add(domain.ValidationMinimumQuantity, domain.SeverityError,
			fmt.Sprintf("%s requires a minimum order quantity of %d", item.SKU, *item.MinimumQuantity),
			fmt.Sprintf("increase quantity to %d", *item.MinimumQuantity))
	}

	if item.QuantityIncrement != nil && *item.QuantityIncrement > 1 && item.Quantity%*item.QuantityIncrement != 0 {
		inc := *item.QuantityIncrement
		rounded := (item.Quantity/inc + 1) * inc
		add(domain.ValidationQuantityIncrement, domain.SeverityWarning,
			fmt.Sprintf("%s is sold in multiples of %d", item.SKU, inc),
			fmt.Sprintf("adjust quantity to %d", rounded))
	}

	if item.IsTierRestricted() && !tierAllowed(item.AllowedTiers, tier) {
		add(domain.ValidationTierRestriction, domain.SeverityError,
			fmt.Sprintf("%s is not available to %s dealers", item.SKU, tier),
			fmt.Sprintf("remove the item; it is available to %s dealers", joinTiers(item.AllowedTiers)))
	}

	if hint := v.volumeHint(item); hint != nil {
		add(domain.ValidationVolumeDiscount, domain.SeverityInfo, hint.message, hint.action)
	}
	return results
}

type hint struct {
	message string
	action  string
}

// volumeHint reports the nearest item-level break that would beat the item's current discount
func (v *Validator) volumeHint(item domain.CartItem) *hint {
	if v.policy.VolumeHintWithin <= 0 {
		return nil
	}
	var next *domain.VolumeDiscount
	for i := range v.policy.VolumeDiscounts {
		rule := v.policy.VolumeDiscounts[i]
		if rule.AppliesTo != domain.DiscountScopeItem || rule.MinQuantity <= item.Quantity {
			continue
		}
		if rule.MinQuantity-item.Quantity > v.policy.VolumeHintWithin || !rule.DiscountPercent.GreaterThan(item.DiscountPercent) {
			continue
		}
		if next == nil || rule.MinQuantity < next.MinQuantity {
			next = &v.policy.VolumeDiscounts[i]
		}
	}
	if next == nil {
		return nil
	}
	more := next.MinQuantity - item.Quantity
	return &hint{
		message: fmt.Sprintf("%s qualifies for a %s%% volume discount at %d units", item.SKU, next.DiscountPercent.String(), next.MinQuantity),
		action:  fmt.Sprintf("add %d more to unlock %s%% off", more, next.DiscountPercent.String()),
	}
}

// HasBlocking reports whether any result must stop checkout
func HasBlocking(results []domain.ValidationResult) bool {
	for _, r := range results {
		if r.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}

func tierAllowed(allowed []domain.DealerTier, tier domain.DealerTier) bool {
	for _, t := range allowed {
		if t == tier {
			return true
		}
	}
	return false
}

func joinTiers(tiers []domain.DealerTier) string {
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
