package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/izerwaren/b2bportal/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Policy is the read-only pricing configuration the engine evaluates.
// A Policy is never mutated after it is published to a PolicyStore.
type Policy struct {
	TierDiscounts      map[domain.DealerTier]decimal.Decimal
	VolumeDiscounts    []domain.VolumeDiscount
	MinimumOrderAmount map[domain.DealerTier]decimal.Decimal
	CreditTermsTiers   []domain.DealerTier
	StrictStock        bool
	// VolumeHintWithin is how many units short of a volume break still produce an info hint; 0 disables hints
	VolumeHintWithin int
}

// DefaultPolicy returns the built-in tier table with no volume rules
func DefaultPolicy() *Policy {
	return &Policy{
		TierDiscounts: map[domain.DealerTier]decimal.Decimal{
			domain.DealerTierStandard:   decimal.Zero,
			domain.DealerTierPremium:    decimal.NewFromInt(10),
			domain.DealerTierEnterprise: decimal.NewFromInt(15),
		},
		MinimumOrderAmount: map[domain.DealerTier]decimal.Decimal{},
		CreditTermsTiers:   []domain.DealerTier{domain.DealerTierPremium, domain.DealerTierEnterprise},
		VolumeHintWithin:   5,
	}
}

// Validate checks the policy for values the engine cannot evaluate
func (p *Policy) Validate() error {
	for tier, pct := range p.TierDiscounts {
		if !tier.IsValid() {
			return fmt.Errorf("tier discount for unknown tier %q", tier)
		}
		if pct.IsNegative() || pct.GreaterThanOrEqual(hundred) {
			return fmt.Errorf("tier %s discount %s must be in [0, 100)", tier, pct)
		}
	}
	for _, tier := range []domain.DealerTier{domain.DealerTierStandard, domain.DealerTierPremium, domain.DealerTierEnterprise} {
		if _, ok := p.TierDiscounts[tier]; !ok {
			return fmt.Errorf("missing tier discount for %s", tier)
		}
	}
	for i, rule := range p.VolumeDiscounts {
		if rule.MinQuantity < 1 {
			return fmt.Errorf("volume discount %d: minQuantity must be at least 1", i)
		}
		if !rule.DiscountPercent.IsPositive() || rule.DiscountPercent.GreaterThanOrEqual(hundred) {
			return fmt.Errorf("volume discount %d: discountPercent %s must be in (0, 100)", i, rule.DiscountPercent)
		}
		if !rule.AppliesTo.IsValid() {
			return fmt.Errorf("volume discount %d: appliesTo %q must be item or cart", i, rule.AppliesTo)
		}
	}
	for tier, amount := range p.MinimumOrderAmount {
		if !tier.IsValid() {
			return fmt.Errorf("minimum order for unknown tier %q", tier)
		}
		if amount.IsNegative() {
			return fmt.Errorf("minimum order for %s cannot be negative", tier)
		}
	}
	if p.VolumeHintWithin < 0 {
		return fmt.Errorf("volumeHintWithin cannot be negative")
	}
	return nil
}

// normalize orders volume rules deterministically so evaluation never depends on file order
func (p *Policy) normalize() {
	sort.SliceStable(p.VolumeDiscounts, func(i, j int) bool {
		a, b := p.VolumeDiscounts[i], p.VolumeDiscounts[j]
		if a.AppliesTo != b.AppliesTo {
			return a.AppliesTo == domain.DiscountScopeItem
		}
		return a.MinQuantity < b.MinQuantity
	})
}

// MinimumOrder returns the minimum cart amount for a tier, zero when none is set
func (p *Policy) MinimumOrder(tier domain.DealerTier) decimal.Decimal {
	if amount, ok := p.MinimumOrderAmount[tier]; ok {
		return amount
	}
	return decimal.Zero
}

// HasCreditTerms reports whether a tier may check out on credit terms
func (p *Policy) HasCreditTerms(tier domain.DealerTier) bool {
	for _, t := range p.CreditTermsTiers {
		if t == tier {
			return true
		}
	}
	return false
}
