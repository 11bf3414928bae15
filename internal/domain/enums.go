package domain

// DealerTier is the dealer classification that drives the baseline discount
type DealerTier string

const (
	DealerTierStandard   DealerTier = "STANDARD"
	DealerTierPremium    DealerTier = "PREMIUM"
	DealerTierEnterprise DealerTier = "ENTERPRISE"
)

// IsValid checks if the dealer tier is one of the known tiers
func (t DealerTier) IsValid() bool {
	switch t {
	case DealerTierStandard, DealerTierPremium, DealerTierEnterprise:
		return true
	default:
		return false
	}
}

// RfqStatus represents the lifecycle state of an RFQ
type RfqStatus string

const (
	RfqStatusPending  RfqStatus = "PENDING"
	RfqStatusInReview RfqStatus = "IN_REVIEW"
	RfqStatusQuoted   RfqStatus = "QUOTED"
	RfqStatusAccepted RfqStatus = "ACCEPTED"
	RfqStatusDeclined RfqStatus = "DECLINED"
	RfqStatusExpired  RfqStatus = "EXPIRED"
)

// IsValid checks if the RFQ status is valid
func (s RfqStatus) IsValid() bool {
	switch s {
	case RfqStatusPending,
		RfqStatusInReview,
		RfqStatusQuoted,
		RfqStatusAccepted,
		RfqStatusDeclined,
		RfqStatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition can leave this status
func (s RfqStatus) IsTerminal() bool {
	return s == RfqStatusAccepted || s == RfqStatusDeclined || s == RfqStatusExpired
}

// CountsTowardCapacity reports whether an RFQ in this status occupies its rep
func (s RfqStatus) CountsTowardCapacity() bool {
	return s == RfqStatusInReview || s == RfqStatusQuoted
}

// CanTransitionTo checks if a status transition is valid
func (s RfqStatus) CanTransitionTo(newStatus RfqStatus) bool {
	switch s {
	case RfqStatusPending:
		return newStatus == RfqStatusInReview ||
			newStatus == RfqStatusExpired
	case RfqStatusInReview:
		return newStatus == RfqStatusQuoted ||
			newStatus == RfqStatusExpired
	case RfqStatusQuoted:
		return newStatus == RfqStatusAccepted ||
			newStatus == RfqStatusDeclined ||
			newStatus == RfqStatusExpired
	case RfqStatusAccepted, RfqStatusDeclined, RfqStatusExpired:
		return false // Terminal states
	default:
		return false
	}
}

// RfqPriority is the customer-declared urgency of an RFQ
type RfqPriority string

const (
	RfqPriorityLow    RfqPriority = "LOW"
	RfqPriorityNormal RfqPriority = "NORMAL"
	RfqPriorityHigh   RfqPriority = "HIGH"
	RfqPriorityUrgent RfqPriority = "URGENT"
)

// IsValid checks if the priority is valid
func (p RfqPriority) IsValid() bool {
	switch p {
	case RfqPriorityLow, RfqPriorityNormal, RfqPriorityHigh, RfqPriorityUrgent:
		return true
	default:
		return false
	}
}

// Rank orders priorities from LOW (0) to URGENT (3); unknown values rank with NORMAL
func (p RfqPriority) Rank() int {
	switch p {
	case RfqPriorityLow:
		return 0
	case RfqPriorityHigh:
		return 2
	case RfqPriorityUrgent:
		return 3
	default:
		return 1
	}
}

// DiscountScope says which quantity a volume rule is measured against
type DiscountScope string

const (
	DiscountScopeItem DiscountScope = "item"
	DiscountScopeCart DiscountScope = "cart"
)

// IsValid checks if the scope is valid
func (s DiscountScope) IsValid() bool {
	return s == DiscountScopeItem || s == DiscountScopeCart
}

// DiscountSource records where an item's effective discount came from
type DiscountSource string

const (
	DiscountSourceNone       DiscountSource = "none"
	DiscountSourceTier       DiscountSource = "tier"
	DiscountSourceItemVolume DiscountSource = "item_volume"
	DiscountSourceCartVolume DiscountSource = "cart_volume"
)

// ValidationType classifies a cart validation finding
type ValidationType string

const (
	ValidationMinimumQuantity   ValidationType = "minimum_quantity"
	ValidationQuantityIncrement ValidationType = "quantity_increment"
	ValidationStock             ValidationType = "stock"
	ValidationDiscontinued      ValidationType = "discontinued"
	ValidationTierRestriction   ValidationType = "tier_restriction"
	ValidationMinimumOrder      ValidationType = "minimum_order"
	ValidationVolumeDiscount    ValidationType = "volume_discount"
)

// Severity decides whether a validation finding blocks checkout
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Role is the kind of caller behind an API key
type Role string

const (
	RoleCustomer Role = "customer"
	RoleRep      Role = "rep"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleRep || r == RoleAdmin
}

// PaymentTerms is how a checked-out order is to be paid
type PaymentTerms string

const (
	PaymentTermsCredit  PaymentTerms = "credit"
	PaymentTermsPrepaid PaymentTerms = "prepaid"
)
