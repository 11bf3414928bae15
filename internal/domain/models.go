package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Principal is an authenticated API caller (customer, account rep or admin)
type Principal struct {
	ID         uuid.UUID
	Name       string
	APIKeyHash string
	Role       Role
	DealerTier DealerTier // customers only
	Region     string     // customers only
	RepID      *uuid.UUID // reps only
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CatalogEntry is a point-in-time read of a product variant from the catalog
type CatalogEntry struct {
	ProductID         string
	VariantID         string
	SKU               string
	Title             string
	ListPrice         decimal.Decimal
	InStock           bool
	StockQuantity     *int
	MinimumQuantity   *int
	QuantityIncrement *int
	Discontinued      bool
	AllowedTiers      []DealerTier // empty means unrestricted
}

// VolumeDiscount is a quantity-break rule from the pricing policy
type VolumeDiscount struct {
	Name            string          `json:"name,omitempty"`
	MinQuantity     int             `json:"minQuantity"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	AppliesTo       DiscountScope   `json:"appliesTo"`
}

// CartItem is a priced line in a cart
type CartItem struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         string          `json:"productId"`
	VariantID         string          `json:"variantId"`
	SKU               string          `json:"sku"`
	Title             string          `json:"title"`
	Quantity          int             `json:"quantity"`
	ListPrice         decimal.Decimal `json:"listPrice"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	DiscountPercent   decimal.Decimal `json:"discountPercent"`
	DiscountSource    DiscountSource  `json:"discountSource"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	MinimumQuantity   *int            `json:"minimumQuantity,omitempty"`
	QuantityIncrement *int            `json:"quantityIncrement,omitempty"`
	InStock           bool            `json:"inStock"`
	StockQuantity     *int            `json:"stockQuantity,omitempty"`
	Discontinued      bool            `json:"discontinued"`
	AllowedTiers      []DealerTier    `json:"allowedTiers,omitempty"`
}

// IsTierRestricted reports whether only some tiers may buy this item
func (i CartItem) IsTierRestricted() bool {
	return len(i.AllowedTiers) > 0
}

// CartSummary is the derived view of a cart; every field is rebuilt from Items
type CartSummary struct {
	CartID                 uuid.UUID        `json:"cartId"`
	DealerTier             DealerTier       `json:"dealerTier"`
	Items                  []CartItem       `json:"items"`
	ItemCount              int              `json:"itemCount"`
	TotalQuantity          int              `json:"totalQuantity"`
	Subtotal               decimal.Decimal  `json:"subtotal"`
	TotalDiscount          decimal.Decimal  `json:"totalDiscount"`
	TierDiscountPercent    decimal.Decimal  `json:"tierDiscountPercent"`
	VolumeDiscountsApplied []VolumeDiscount `json:"volumeDiscountsApplied"`
	SavingsFromListPrice   decimal.Decimal  `json:"savingsFromListPrice"`
	TotalEstimated         decimal.Decimal  `json:"totalEstimated"`
}

// SavedCart is the persisted cart record; several named carts may exist per customer
type SavedCart struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Name       string
	DealerTier DealerTier
	Items      []CartItem
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidationResult is one finding of a cart validation run
type ValidationResult struct {
	ItemID          string         `json:"itemId"`
	SKU             string         `json:"sku,omitempty"`
	Type            ValidationType `json:"type"`
	Message         string         `json:"message"`
	Severity        Severity       `json:"severity"`
	SuggestedAction string         `json:"suggestedAction,omitempty"`
}

// AccountRep is a staff user who reviews RFQs and authors quotes
type AccountRep struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	ContactEmail     string    `json:"contactEmail"`
	TerritoryRegions []string  `json:"territoryRegions"`
	MaxRfqCapacity   *int      `json:"maxRfqCapacity,omitempty"`
	IsActive         bool      `json:"isActive"`
	// CurrentAssignedCount is filled from a live count, never stored
	CurrentAssignedCount int       `json:"currentAssignedCount"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// CoversRegion reports whether the rep may take RFQs from region
func (r *AccountRep) CoversRegion(region string) bool {
	if region == "" || len(r.TerritoryRegions) == 0 {
		return true
	}
	for _, t := range r.TerritoryRegions {
		if t == region || t == "*" || t == "ALL" {
			return true
		}
	}
	return false
}

// RfqItem is a requested line on an RFQ
type RfqItem struct {
	ID           uuid.UUID        `json:"id"`
	RfqID        uuid.UUID        `json:"rfqId"`
	ProductTitle string           `json:"productTitle"`
	SKU          string           `json:"sku"`
	Quantity     int              `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unitPrice"`
	TotalPrice   *decimal.Decimal `json:"totalPrice"`
	Notes        *string          `json:"notes,omitempty"`
}

// RfqRequest is a customer request for quote
type RfqRequest struct {
	ID              uuid.UUID        `json:"id"`
	RequestNumber   string           `json:"requestNumber"`
	CustomerID      uuid.UUID        `json:"customerId"`
	Status          RfqStatus        `json:"status"`
	Priority        RfqPriority      `json:"priority"`
	CustomerMessage string           `json:"customerMessage"`
	Region          string           `json:"region,omitempty"`
	Items           []RfqItem        `json:"items"`
	AssignedRepID   *uuid.UUID       `json:"assignedRepId"`
	QuotedTotal     *decimal.Decimal `json:"quotedTotal"`
	ValidUntil      *time.Time       `json:"validUntil"`
	AdminNotes      string           `json:"adminNotes,omitempty"`
	Version         int              `json:"version"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Clone returns a deep copy so callers can stage changes without touching the original
func (r *RfqRequest) Clone() *RfqRequest {
	c := *r
	if r.AssignedRepID != nil {
		id := *r.AssignedRepID
		c.AssignedRepID = &id
	}
	if r.QuotedTotal != nil {
		total := *r.QuotedTotal
		c.QuotedTotal = &total
	}
	if r.ValidUntil != nil {
		until := *r.ValidUntil
		c.ValidUntil = &until
	}
	c.Items = make([]RfqItem, len(r.Items))
	for i, item := range r.Items {
		c.Items[i] = item
		if item.UnitPrice != nil {
			p := *item.UnitPrice
			c.Items[i].UnitPrice = &p
		}
		if item.TotalPrice != nil {
			p := *item.TotalPrice
			c.Items[i].TotalPrice = &p
		}
		if item.Notes != nil {
			n := *item.Notes
			c.Items[i].Notes = &n
		}
	}
	return &c
}

// RfqEvent represents an audit event for an RFQ
type RfqEvent struct {
	ID         uuid.UUID              `json:"id"`
	RfqID      uuid.UUID              `json:"rfqId"`
	EventType  string                 `json:"eventType"`
	FromStatus RfqStatus              `json:"fromStatus,omitempty"`
	ToStatus   RfqStatus              `json:"toStatus"`
	ActorID    *uuid.UUID             `json:"actorId,omitempty"`
	EventData  map[string]interface{} `json:"eventData,omitempty"` // JSONB
	CreatedAt  time.Time              `json:"createdAt"`
}

// CheckoutReceipt identifies the draft order a validated cart was handed off to
type CheckoutReceipt struct {
	DraftOrderID   string          `json:"draftOrderId"`
	DraftOrderName string          `json:"draftOrderName"`
	InvoiceURL     string          `json:"invoiceUrl,omitempty"`
	TotalEstimated decimal.Decimal `json:"totalEstimated"`
}
