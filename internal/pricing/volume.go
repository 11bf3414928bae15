package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// CartContext carries the cart-wide figures a volume rule can be measured against
type CartContext struct {
	TotalQuantity int
}

// RuleEvaluation records how one volume rule fared for one item
type RuleEvaluation struct {
	Rule             domain.VolumeDiscount
	MeasuredQuantity int
	Matched          bool
}

// StackResult is the outcome of combining tier and volume discounts for one item
type StackResult struct {
	EffectiveDiscountPercent decimal.Decimal
	Source                   domain.DiscountSource
	Evaluated                []RuleEvaluation
	// Applied holds the best matching rule of each scope
	Applied []domain.VolumeDiscount
	// Winning is the volume rule that set the effective discount, nil when the tier won
	Winning *domain.VolumeDiscount
}

// ApplyVolumeDiscounts picks the best matching rule per scope, keeps the greater of the
// item and cart winners, then takes the maximum of that and the tier discount.
// Discounts never add up: the better of tier or volume applies, not both.
// On equal percentages the tier wins over volume and item scope wins over cart scope.
func (p *Policy) ApplyVolumeDiscounts(item domain.CartItem, cart CartContext, tierDiscountPercent decimal.Decimal) StackResult {
	result := StackResult{
		EffectiveDiscountPercent: tierDiscountPercent,
		Source:                   domain.DiscountSourceTier,
		Evaluated:                make([]RuleEvaluation, 0, len(p.VolumeDiscounts)),
	}

	var bestItem, bestCart *domain.VolumeDiscount
	for i := range p.VolumeDiscounts {
		rule := p.VolumeDiscounts[i]
		measured := item.Quantity
		if rule.AppliesTo == domain.DiscountScopeCart {
			measured = cart.TotalQuantity
		}
		matched := measured >= rule.MinQuantity
		result.Evaluated = append(result.Evaluated, RuleEvaluation{
			Rule:             rule,
			MeasuredQuantity: measured,
			Matched:          matched,
		})
		if !matched {
			continue
		}
		switch rule.AppliesTo {
		case domain.DiscountScopeItem:
			if bestItem == nil || rule.DiscountPercent.GreaterThan(bestItem.DiscountPercent) {
				bestItem = &p.VolumeDiscounts[i]
			}
		case domain.DiscountScopeCart:
			if bestCart == nil || rule.DiscountPercent.GreaterThan(bestCart.DiscountPercent) {
				bestCart = &p.VolumeDiscounts[i]
			}
		}
	}

	if bestItem != nil {
		result.Applied = append(result.Applied, *bestItem)
	}
	if bestCart != nil {
		result.Applied = append(result.Applied, *bestCart)
	}

	var volume *domain.VolumeDiscount
	source := domain.DiscountSourceItemVolume
	switch {
	case bestItem != nil && bestCart != nil:
		volume = bestItem
		if bestCart.DiscountPercent.GreaterThan(bestItem.DiscountPercent) {
			volume = bestCart
			source = domain.DiscountSourceCartVolume
		}
	case bestItem != nil:
		volume = bestItem
	case bestCart != nil:
		volume = bestCart
		source = domain.DiscountSourceCartVolume
	}

	if volume != nil && volume.DiscountPercent.GreaterThan(tierDiscountPercent) {
		winner := *volume
		result.EffectiveDiscountPercent = volume.DiscountPercent
		result.Source = source
		result.Winning = &winner
	}
	if result.EffectiveDiscountPercent.IsZero() {
		result.Source = domain.DiscountSourceNone
	}
	return result
}

// BestVolumeDiscount returns the highest matching volume percent over both scopes, zero when none match
func (r StackResult) BestVolumeDiscount() decimal.Decimal {
	best := decimal.Zero
	for _, rule := range r.Applied {
		if rule.DiscountPercent.GreaterThan(best) {
			best = rule.DiscountPercent
		}
	}
	return best
}

// PriceItem runs the unit pricing resolver and the volume stacker for one line and
// returns a copy of the item with every derived price field rebuilt.
func (p *Policy) PriceItem(item domain.CartItem, cart CartContext, tier domain.DealerTier) (domain.CartItem, StackResult, error) {
	if item.Quantity <= 0 {
		return item, StackResult{}, &errors.ErrInvalidQuantity{
			ItemID:   item.ID.String(),
			Quantity: item.Quantity,
			Reason:   "quantity must be a positive integer",
		}
	}
	base, err := p.ResolveUnitPrice(item.ListPrice, tier)
	if err != nil {
		if priceErr, ok := err.(*errors.ErrInvalidPrice); ok {
			priceErr.SKU = item.SKU
		}
		return item, StackResult{}, err
	}

	stack := p.ApplyVolumeDiscounts(item, cart, base.DiscountPercent)

	priced := item
	priced.DiscountPercent = stack.EffectiveDiscountPercent
	priced.DiscountSource = stack.Source
	priced.UnitPrice = DiscountedPrice(item.ListPrice, stack.EffectiveDiscountPercent)
	priced.TotalPrice = priced.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return priced, stack, nil
}
