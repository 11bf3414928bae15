package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/izerwaren/b2bportal/internal/domain"
)

// ErrNotFound is returned when a resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when the caller could not be authenticated
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrForbidden is returned when an authenticated caller may not touch a resource
type ErrForbidden struct {
	Message string
}

func (e *ErrForbidden) Error() string {
	return e.Message
}

// ErrInvalidInput is returned for a malformed request field
type ErrInvalidInput struct {
	Field   string
	Message string
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrConflict is returned when an optimistic concurrency check fails
type ErrConflict struct {
	Resource string
	ID       string
	Version  int
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently (expected version %d)", e.Resource, e.ID, e.Version)
}

// ErrInvalidPrice is returned for a zero or negative list price
type ErrInvalidPrice struct {
	SKU   string
	Price decimal.Decimal
}

func (e *ErrInvalidPrice) Error() string {
	if e.SKU == "" {
		return fmt.Sprintf("invalid list price %s: must be greater than zero", e.Price.String())
	}
	return fmt.Sprintf("invalid list price %s for sku %s: must be greater than zero", e.Price.String(), e.SKU)
}

// ErrUnknownTier is returned when a dealer tier has no discount entry
type ErrUnknownTier struct {
	Tier domain.DealerTier
}

func (e *ErrUnknownTier) Error() string {
	return fmt.Sprintf("unknown dealer tier %q", string(e.Tier))
}

// ErrInvalidQuantity is returned for non-positive or otherwise unusable quantities
type ErrInvalidQuantity struct {
	ItemID   string
	Quantity int
	Reason   string
}

func (e *ErrInvalidQuantity) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("invalid quantity %d: %s", e.Quantity, e.Reason)
	}
	return fmt.Sprintf("invalid quantity %d for item %s: %s", e.Quantity, e.ItemID, e.Reason)
}

// ErrInvalidStateTransition is returned when an RFQ status change is not allowed
type ErrInvalidStateTransition struct {
	From   domain.RfqStatus
	To     domain.RfqStatus
	Reason string
}

func (e *ErrInvalidStateTransition) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid state transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrCapacityExceeded is returned when a rep has no room for another RFQ
type ErrCapacityExceeded struct {
	RepID    string
	Capacity int
	Assigned int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("account rep %s is at capacity (%d/%d)", e.RepID, e.Assigned, e.Capacity)
}

// ErrIncompleteQuote is returned when a quote does not price every RFQ line
type ErrIncompleteQuote struct {
	RfqID   string
	ItemIDs []string
	Reason  string
}

func (e *ErrIncompleteQuote) Error() string {
	return fmt.Sprintf("incomplete quote for rfq %s: %s (items: %s)", e.RfqID, e.Reason, strings.Join(e.ItemIDs, ", "))
}

// ErrValidationFailed wraps the blocking results of a cart validation run
type ErrValidationFailed struct {
	Results []domain.ValidationResult
}

func (e *ErrValidationFailed) Error() string {
	blocking := 0
	for _, r := range e.Results {
		if r.Severity == domain.SeverityError {
			blocking++
		}
	}
	return fmt.Sprintf("cart validation failed with %d blocking issue(s)", blocking)
}

// IsNotFound reports whether err is or wraps an ErrNotFound
func IsNotFound(err error) bool {
	var e *ErrNotFound
	return stderrors.As(err, &e)
}

// IsConflict reports whether err is or wraps an ErrConflict
func IsConflict(err error) bool {
	var e *ErrConflict
	return stderrors.As(err, &e)
}

// IsCapacityExceeded reports whether err is or wraps an ErrCapacityExceeded
func IsCapacityExceeded(err error) bool {
	var e *ErrCapacityExceeded
	return stderrors.As(err, &e)
}
