package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/izerwaren/b2bportal/internal/domain"
)

// CartView is a saved cart together with its freshly computed summary
type CartView struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Version   int                 `json:"version"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Summary   *domain.CartSummary `json:"summary"`
}

// ValidationReport is the outcome of validating a cart before checkout.
// CreditTermsEligible reports whether the customer's tier may pay on credit terms.
type ValidationReport struct {
	Summary             *domain.CartSummary       `json:"summary"`
	Results             []domain.ValidationResult `json:"results"`
	CanCheckout         bool                      `json:"canCheckout"`
	CreditTermsEligible bool                      `json:"creditTermsEligible"`
}

// CheckoutResult is returned after a cart was handed off
type CheckoutResult struct {
	Receipt      *domain.CheckoutReceipt   `json:"receipt"`
	Warnings     []domain.ValidationResult `json:"warnings"`
	PaymentTerms domain.PaymentTerms       `json:"paymentTerms"`
}

// SubmitRFQInput is a customer's request for quote
type SubmitRFQInput struct {
	Priority        domain.RfqPriority `json:"priority"`
	CustomerMessage string             `json:"customerMessage"`
	Region          string             `json:"region"`
	Items           []SubmitRFQItem    `json:"items" binding:"required,min=1,dive"`
}

type SubmitRFQItem struct {
	ProductTitle string  `json:"productTitle" binding:"required"`
	SKU          string  `json:"sku" binding:"required"`
	Quantity     int     `json:"quantity" binding:"required"`
	Notes        *string `json:"notes,omitempty"`
}

// QuoteInput is a rep's priced answer to an RFQ. Validity is ValidDays when set,
// otherwise ValidUntil rounded up to whole days, otherwise the configured default.
type QuoteInput struct {
	Lines       []QuoteLineInput
	ValidDays   int
	ValidUntil  *time.Time
	QuotedTotal *decimal.Decimal
	AdminNotes  string
}

type QuoteLineInput struct {
	ItemID    uuid.UUID
	UnitPrice decimal.Decimal
	Notes     *string
}

// AssignmentOutcome is what happened to one RFQ in an assignment run
type AssignmentOutcome string

const (
	AssignmentAssigned     AssignmentOutcome = "assigned"
	AssignmentSkipped      AssignmentOutcome = "skipped"
	AssignmentUnassignable AssignmentOutcome = "unassignable"
	AssignmentFailed       AssignmentOutcome = "failed"
)

// AssignmentItem reports one RFQ of an assignment run
type AssignmentItem struct {
	RfqID         uuid.UUID         `json:"rfqId"`
	RequestNumber string            `json:"requestNumber,omitempty"`
	Outcome       AssignmentOutcome `json:"outcome"`
	AssignedRepID *uuid.UUID        `json:"assignedRepId,omitempty"`
	Status        domain.RfqStatus  `json:"status,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

// AssignmentResult reports an assignment run item by item
type AssignmentResult struct {
	Assigned     int              `json:"assigned"`
	Skipped      int              `json:"skipped"`
	Unassignable int              `json:"unassignable"`
	Failed       int              `json:"failed"`
	Items        []AssignmentItem `json:"items"`
}

func (r *AssignmentResult) add(item AssignmentItem) {
	switch item.Outcome {
	case AssignmentAssigned:
		r.Assigned++
	case AssignmentSkipped:
		r.Skipped++
	case AssignmentUnassignable:
		r.Unassignable++
	case AssignmentFailed:
		r.Failed++
	}
	r.Items = append(r.Items, item)
}
