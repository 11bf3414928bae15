package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/pricing"
)

func summaryOf(t *testing.T, tier domain.DealerTier, policy *pricing.Policy, items ...domain.CartItem) *domain.CartSummary {
	t.Helper()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		if items[i].ListPrice.IsZero() {
			items[i].ListPrice = decimal.NewFromInt(100)
		}
	}
	s, err := Recompute(uuid.New(), items, tier, policy)
	require.NoError(t, err)
	return s
}

func TestValidate_MinimumQuantity(t *testing.T) {
	policy := pricing.DefaultPolicy()
	s := summaryOf(t, domain.DealerTierStandard, policy,
		domain.CartItem{SKU: "WINCH-40", Quantity: 5, MinimumQuantity: intPtr(10), InStock: true})

	results := NewValidator(policy).Validate(s, domain.DealerTierStandard)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ValidationMinimumQuantity, results[0].Type)
	assert.Equal(t, domain.SeverityError, results[0].Severity)
	assert.Equal(t, "increase quantity to 10", results[0].SuggestedAction)
	assert.Equal(t, s.Items[0].ID.String(), results[0].ItemID)
	assert.True(t, HasBlocking(results))
}

func TestValidate_QuantityIncrement(t *testing.T) {
	policy := pricing.DefaultPolicy()
	s := summaryOf(t, domain.DealerTierStandard, policy,
		domain.CartItem{SKU: "SHACKLE-8", Quantity: 13, QuantityIncrement: intPtr(6), InStock: true})

	results := NewValidator(policy).Validate(s, domain.DealerTierStandard)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ValidationQuantityIncrement, results[0].Type)
	assert.Equal(t, domain.SeverityWarning, results[0].Severity)
	assert.Equal(t, "adjust quantity to 18", results[0].SuggestedAction)
	assert.False(t, HasBlocking(results))
}

func TestValidate_Stock(t *testing.T) {
	policy := pricing.DefaultPolicy()
	s := summaryOf(t, domain.DealerTierStandard, policy,
		domain.CartItem{SKU: "OUT", Quantity: 1, InStock: false},
		domain.CartItem{SKU: "LOW", Quantity: 8, InStock: true, StockQuantity: intPtr(3)},
	)

	results := NewValidator(policy).Validate(s, domain.DealerTierStandard)
	require.Len(t, results, 2)
	assert.Equal(t, domain.SeverityError, results[0].Severity)
	assert.Equal(t, "OUT", results[0].SKU)
	assert.Equal(t, domain.SeverityWarning, results[1].Severity)
	assert.Equal(t, "reduce quantity to 3", results[1].SuggestedAction)

	policy.StrictStock = true
	results = NewValidator(policy).Validate(s, domain.DealerTierStandard)
	require.Len(t, results, 2)
	assert.Equal(t, domain.SeverityError, results[1].Severity)
}

func TestValidate_TierRestrictionAndDiscontinued(t *testing.T) {
	policy := pricing.DefaultPolicy()
	items := []domain.CartItem{
		{SKU: "RADAR-PRO", Quantity: 1, InStock: true, AllowedTiers: []domain.DealerTier{domain.DealerTierEnterprise}},
		{SKU: "OLD-PUMP", Quantity: 1, InStock: true, Discontinued: true},
	}

	standard := summaryOf(t, domain.DealerTierStandard, policy, items...)
	results := NewValidator(policy).Validate(standard, domain.DealerTierStandard)
	require.Len(t, results, 2)
	assert.Equal(t, domain.ValidationTierRestriction, results[0].Type)
	assert.Contains(t, results[0].SuggestedAction, "ENTERPRISE")
	assert.Equal(t, domain.ValidationDiscontinued, results[1].Type)

	enterprise := summaryOf(t, domain.DealerTierEnterprise, policy, items...)
	results = NewValidator(policy).Validate(enterprise, domain.DealerTierEnterprise)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ValidationDiscontinued, results[0].Type)
}

func TestValidate_MinimumOrderAmount(t *testing.T) {
	policy := pricing.DefaultPolicy()
	policy.MinimumOrderAmount[domain.DealerTierStandard] = decimal.NewFromInt(250)
	s := summaryOf(t, domain.DealerTierStandard, policy, domain.CartItem{SKU: "ROPE", Quantity: 2, InStock: true})

	results := NewValidator(policy).Validate(s, domain.DealerTierStandard)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ValidationMinimumOrder, results[0].Type)
	assert.Equal(t, "", results[0].ItemID)
	assert.Equal(t, "add 50.00 more to reach the minimum order", results[0].SuggestedAction)
}

func TestValidate_VolumeHint(t *testing.T) {
	policy := volumePolicy()
	s := summaryOf(t, domain.DealerTierStandard, policy, domain.CartItem{SKU: "CLEAT", Quantity: 17, InStock: true})

	results := NewValidator(policy).Validate(s, domain.DealerTierStandard)
	require.Len(t, results, 1)
	assert.Equal(t, domain.SeverityInfo, results[0].Severity)
	assert.Equal(t, "add 3 more to unlock 12% off", results[0].SuggestedAction)

	// enterprise already gets 15%, so 12% is not worth hinting
	s = summaryOf(t, domain.DealerTierEnterprise, policy, domain.CartItem{SKU: "CLEAT", Quantity: 17, InStock: true})
	assert.Empty(t, NewValidator(policy).Validate(s, domain.DealerTierEnterprise))
}

func TestValidate_DoesNotMutateCart(t *testing.T) {
	policy := pricing.DefaultPolicy()
	s := summaryOf(t, domain.DealerTierStandard, policy,
		domain.CartItem{SKU: "A", Quantity: 5, MinimumQuantity: intPtr(10), InStock: true, StockQuantity: intPtr(2)})
	before := *s
	beforeItem := s.Items[0]

	NewValidator(policy).Validate(s, domain.DealerTierStandard)
	assert.Equal(t, before.TotalEstimated, s.TotalEstimated)
	assert.Equal(t, beforeItem, s.Items[0])
}
