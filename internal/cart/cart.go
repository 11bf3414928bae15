package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/pricing"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// Cart is the cart aggregate. Every mutation stages a new item list, reprices it in
// full and only then replaces the record's items, so a failed mutation leaves the cart untouched.
type Cart struct {
	record *domain.SavedCart
	policy *pricing.Policy
}

// New wraps a saved cart record for mutation under policy
func New(record *domain.SavedCart, policy *pricing.Policy) *Cart {
	return &Cart{record: record, policy: policy}
}

// Record returns the underlying saved cart
func (c *Cart) Record() *domain.SavedCart {
	return c.record
}

// Summary recomputes the summary of the current items
func (c *Cart) Summary() (*domain.CartSummary, error) {
	return Recompute(c.record.ID, c.record.Items, c.record.DealerTier, c.policy)
}

// AddItem adds quantity units of a catalog variant. Adding a variant already in the
// cart merges into the existing line.
func (c *Cart) AddItem(entry domain.CatalogEntry, quantity int) (*domain.CartSummary, error) {
	if quantity <= 0 {
		return nil, &errors.ErrInvalidQuantity{
			Quantity: quantity,
			Reason:   "quantity must be a positive integer",
		}
	}

	items := copyItems(c.record.Items)
	merged := false
	for i := range items {
		if items[i].ProductID == entry.ProductID && items[i].VariantID == entry.VariantID {
			items[i] = applyCatalog(items[i], entry)
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		item := applyCatalog(domain.CartItem{ID: uuid.New()}, entry)
		item.Quantity = quantity
		items = append(items, item)
	}
	return c.commit(items)
}

// UpdateQuantity sets the quantity of a line; zero removes it
func (c *Cart) UpdateQuantity(itemID uuid.UUID, quantity int) (*domain.CartSummary, error) {
	if quantity < 0 {
		return nil, &errors.ErrInvalidQuantity{
			ItemID:   itemID.String(),
			Quantity: quantity,
			Reason:   "quantity cannot be negative",
		}
	}
	if quantity == 0 {
		return c.RemoveItem(itemID)
	}

	items := copyItems(c.record.Items)
	idx := indexOf(items, itemID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "cart item", ID: itemID.String()}
	}
	items[idx].Quantity = quantity
	return c.commit(items)
}

// RemoveItem deletes a line from the cart
func (c *Cart) RemoveItem(itemID uuid.UUID) (*domain.CartSummary, error) {
	idx := indexOf(c.record.Items, itemID)
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "cart item", ID: itemID.String()}
	}
	items := make([]domain.CartItem, 0, len(c.record.Items)-1)
	items = append(items, c.record.Items[:idx]...)
	items = append(items, c.record.Items[idx+1:]...)
	return c.commit(items)
}

// Clear removes every line
func (c *Cart) Clear() (*domain.CartSummary, error) {
	return c.commit([]domain.CartItem{})
}

// Refresh replaces each line's catalog snapshot with a fresh read, keyed by item id.
// Quantities are kept and lines without an entry are left as they are. It reports
// whether any snapshot changed.
func (c *Cart) Refresh(entries map[uuid.UUID]domain.CatalogEntry) (*domain.CartSummary, bool, error) {
	items := copyItems(c.record.Items)
	changed := false
	for i := range items {
		entry, ok := entries[items[i].ID]
		if !ok || sameSnapshot(items[i], entry) {
			continue
		}
		items[i] = applyCatalog(items[i], entry)
		changed = true
	}
	if !changed {
		summary, err := c.Summary()
		return summary, false, err
	}
	summary, err := c.commit(items)
	if err != nil {
		return nil, false, err
	}
	return summary, true, nil
}

// Snapshot returns the catalog data a line currently carries
func Snapshot(item domain.CartItem) domain.CatalogEntry {
	return domain.CatalogEntry{
		ProductID:         item.ProductID,
		VariantID:         item.VariantID,
		SKU:               item.SKU,
		Title:             item.Title,
		ListPrice:         item.ListPrice,
		InStock:           item.InStock,
		StockQuantity:     item.StockQuantity,
		MinimumQuantity:   item.MinimumQuantity,
		QuantityIncrement: item.QuantityIncrement,
		Discontinued:      item.Discontinued,
		AllowedTiers:      item.AllowedTiers,
	}
}

func (c *Cart) commit(items []domain.CartItem) (*domain.CartSummary, error) {
	summary, err := Recompute(c.record.ID, items, c.record.DealerTier, c.policy)
	if err != nil {
		return nil, err
	}
	c.record.Items = copyItems(summary.Items)
	return summary, nil
}

// Recompute rebuilds every derived price and summary field from the item list.
// It never patches a previous summary, so the same input always yields the same output.
func Recompute(cartID uuid.UUID, items []domain.CartItem, tier domain.DealerTier, policy *pricing.Policy) (*domain.CartSummary, error) {
	tierPct, err := policy.TierDiscount(tier)
	if err != nil {
		return nil, err
	}

	summary := &domain.CartSummary{
		CartID:                 cartID,
		DealerTier:             tier,
		Items:                  make([]domain.CartItem, 0, len(items)),
		ItemCount:              len(items),
		Subtotal:               decimal.Zero,
		TierDiscountPercent:    tierPct,
		VolumeDiscountsApplied: []domain.VolumeDiscount{},
		TotalEstimated:         decimal.Zero,
	}
	for _, item := range items {
		summary.TotalQuantity += item.Quantity
	}
	cartCtx := pricing.CartContext{TotalQuantity: summary.TotalQuantity}

	for _, item := range items {
		priced, stack, err := policy.PriceItem(item, cartCtx, tier)
		if err != nil {
			return nil, err
		}
		summary.Items = append(summary.Items, priced)
		summary.Subtotal = summary.Subtotal.Add(priced.ListPrice.Mul(decimal.NewFromInt(int64(priced.Quantity))))
		summary.TotalEstimated = summary.TotalEstimated.Add(priced.TotalPrice)
		if stack.Winning != nil && !containsRule(summary.VolumeDiscountsApplied, *stack.Winning) {
			summary.VolumeDiscountsApplied = append(summary.VolumeDiscountsApplied, *stack.Winning)
		}
	}

	summary.TotalDiscount = summary.Subtotal.Sub(summary.TotalEstimated)
	summary.SavingsFromListPrice = summary.TotalDiscount
	return summary, nil
}

func applyCatalog(item domain.CartItem, entry domain.CatalogEntry) domain.CartItem {
	item.ProductID = entry.ProductID
	item.VariantID = entry.VariantID
	item.SKU = entry.SKU
	item.Title = entry.Title
	item.ListPrice = entry.ListPrice
	item.InStock = entry.InStock
	item.StockQuantity = entry.StockQuantity
	item.MinimumQuantity = entry.MinimumQuantity
	item.QuantityIncrement = entry.QuantityIncrement
	item.Discontinued = entry.Discontinued
	item.AllowedTiers = entry.AllowedTiers
	return item
}

func sameSnapshot(item domain.CartItem, entry domain.CatalogEntry) bool {
	return item.ProductID == entry.ProductID &&
		item.VariantID == entry.VariantID &&
		item.SKU == entry.SKU &&
		item.Title == entry.Title &&
		item.ListPrice.Equal(entry.ListPrice) &&
		item.InStock == entry.InStock &&
		sameInt(item.StockQuantity, entry.StockQuantity) &&
		sameInt(item.MinimumQuantity, entry.MinimumQuantity) &&
		sameInt(item.QuantityIncrement, entry.QuantityIncrement) &&
		item.Discontinued == entry.Discontinued &&
		sameTiers(item.AllowedTiers, entry.AllowedTiers)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTiers(a, b []domain.DealerTier) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsRule(rules []domain.VolumeDiscount, rule domain.VolumeDiscount) bool {
	for _, r := range rules {
		if r.Name == rule.Name && r.MinQuantity == rule.MinQuantity &&
			r.AppliesTo == rule.AppliesTo && r.DiscountPercent.Equal(rule.DiscountPercent) {
			return true
		}
	}
	return false
}

func indexOf(items []domain.CartItem, id uuid.UUID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func copyItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
