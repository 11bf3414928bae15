package rfq

import (
	"time"

	"github.com/google/uuid"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// Event types written to the RFQ audit trail
const (
	EventSubmitted = "rfq_submitted"
	EventAssigned  = "rfq_assigned"
	EventQuoted    = "rfq_quoted"
	EventResponded = "rfq_responded"
	EventExpired   = "rfq_expired"
)

// transition is the single place a status is written. Every caller has already checked
// its own preconditions; the allowed-pair check here is the last guard.
func transition(r *domain.RfqRequest, to domain.RfqStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(to) {
		return &errors.ErrInvalidStateTransition{From: r.Status, To: to}
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// Assign sets the rep and moves a PENDING RFQ to IN_REVIEW in one step, so an RFQ is
// never IN_REVIEW without a rep.
func Assign(r *domain.RfqRequest, repID uuid.UUID, now time.Time) error {
	if r.Status != domain.RfqStatusPending {
		return &errors.ErrInvalidStateTransition{
			From:   r.Status,
			To:     domain.RfqStatusInReview,
			Reason: "only PENDING requests can be assigned",
		}
	}
	if repID == uuid.Nil {
		return &errors.ErrInvalidStateTransition{
			From:   r.Status,
			To:     domain.RfqStatusInReview,
			Reason: "an account rep is required",
		}
	}
	if err := transition(r, domain.RfqStatusInReview, now); err != nil {
		return err
	}
	id := repID
	r.AssignedRepID = &id
	return nil
}

// Respond records the customer's decision on a quoted RFQ
func Respond(r *domain.RfqRequest, decision domain.RfqStatus, now time.Time) error {
	if decision != domain.RfqStatusAccepted && decision != domain.RfqStatusDeclined {
		return &errors.ErrInvalidStateTransition{
			From:   r.Status,
			To:     decision,
			Reason: "a response must be ACCEPTED or DECLINED",
		}
	}
	if r.Status != domain.RfqStatusQuoted {
		return &errors.ErrInvalidStateTransition{
			From:   r.Status,
			To:     decision,
			Reason: "only QUOTED requests can be accepted or declined",
		}
	}
	if IsOverdue(r, now) {
		return &errors.ErrInvalidStateTransition{
			From:   r.Status,
			To:     decision,
			Reason: "the quote validity window has passed",
		}
	}
	return transition(r, decision, now)
}

// IsOverdue reports whether a non-terminal RFQ has passed its validUntil
func IsOverdue(r *domain.RfqRequest, now time.Time) bool {
	return !r.Status.IsTerminal() && r.ValidUntil != nil && now.After(*r.ValidUntil)
}

// Expire moves an overdue RFQ to EXPIRED
func Expire(r *domain.RfqRequest, now time.Time) error {
	if !IsOverdue(r, now) {
		return &errors.ErrInvalidStateTransition{
			From:   r.Status,
			To:     domain.RfqStatusExpired,
			Reason: "the request is not past its validity window",
		}
	}
	return transition(r, domain.RfqStatusExpired, now)
}

// ExpireIfDue is the lazy expiry check run whenever an RFQ is read or transitioned.
// It returns the previous status and true when the RFQ was expired.
func ExpireIfDue(r *domain.RfqRequest, now time.Time) (domain.RfqStatus, bool) {
	from := r.Status
	if !IsOverdue(r, now) {
		return from, false
	}
	if err := transition(r, domain.RfqStatusExpired, now); err != nil {
		return from, false
	}
	return from, true
}

// NewEvent builds the audit record for a status change
func NewEvent(r *domain.RfqRequest, from domain.RfqStatus, eventType string, actorID *uuid.UUID, data map[string]interface{}) *domain.RfqEvent {
	return &domain.RfqEvent{
		ID:         uuid.New(),
		RfqID:      r.ID,
		EventType:  eventType,
		FromStatus: from,
		ToStatus:   r.Status,
		ActorID:    actorID,
		EventData:  data,
		CreatedAt:  r.UpdatedAt,
	}
}
