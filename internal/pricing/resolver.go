package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// UnitPrice is the tier-only price of one unit
type UnitPrice struct {
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// TierDiscount returns the configured discount percent for a tier.
// Unknown tiers are rejected, never defaulted.
func (p *Policy) TierDiscount(tier domain.DealerTier) (decimal.Decimal, error) {
	if !tier.IsValid() {
		return decimal.Zero, &errors.ErrUnknownTier{Tier: tier}
	}
	pct, ok := p.TierDiscounts[tier]
	if !ok {
		return decimal.Zero, &errors.ErrUnknownTier{Tier: tier}
	}
	return pct, nil
}

// ResolveUnitPrice applies the tier discount to a list price
func (p *Policy) ResolveUnitPrice(listPrice decimal.Decimal, tier domain.DealerTier) (UnitPrice, error) {
	if !listPrice.IsPositive() {
		return UnitPrice{}, &errors.ErrInvalidPrice{Price: listPrice}
	}
	pct, err := p.TierDiscount(tier)
	if err != nil {
		return UnitPrice{}, err
	}
	return UnitPrice{
		UnitPrice:       DiscountedPrice(listPrice, pct),
		DiscountPercent: pct,
	}, nil
}

// DiscountedPrice returns listPrice reduced by pct percent, rounded half-to-even to cents
func DiscountedPrice(listPrice, pct decimal.Decimal) decimal.Decimal {
	return listPrice.Mul(hundred.Sub(pct)).Div(hundred).RoundBank(2)
}
