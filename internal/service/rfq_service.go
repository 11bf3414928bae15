package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/rfq"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// RFQService owns RFQ submission, reads, customer responses and expiry
type RFQService struct {
	cfg    config.RFQConfig
	repos  *repository.Repositories
	logger *zap.Logger
	now    Clock
}

// NewRFQService creates a new RFQ service
func NewRFQService(cfg config.RFQConfig, repos *repository.Repositories, logger *zap.Logger, clock Clock) *RFQService {
	return &RFQService{
		cfg:    cfg,
		repos:  repos,
		logger: logger,
		now:    clock,
	}
}

// Submit creates a PENDING RFQ for a customer
func (s *RFQService) Submit(ctx context.Context, customer *domain.Principal, input SubmitRFQInput) (*domain.RfqRequest, error) {
	if len(input.Items) == 0 {
		return nil, &errors.ErrInvalidQuantity{Reason: "an RFQ needs at least one item"}
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.RfqPriorityNormal
	}
	if !priority.IsValid() {
		return nil, &errors.ErrInvalidInput{Field: "priority", Message: fmt.Sprintf("unknown priority %q", priority)}
	}

	now := s.now()
	request := &domain.RfqRequest{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Status:          domain.RfqStatusPending,
		Priority:        priority,
		CustomerMessage: strings.TrimSpace(input.CustomerMessage),
		Region:          input.Region,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if request.Region == "" {
		request.Region = customer.Region
	}
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, &errors.ErrInvalidQuantity{
				ItemID:   fmt.Sprintf("items[%d] (%s)", i, item.SKU),
				Quantity: item.Quantity,
				Reason:   "quantity must be a positive integer",
			}
		}
		request.Items = append(request.Items, domain.RfqItem{
			ID:           uuid.New(),
			RfqID:        request.ID,
			ProductTitle: item.ProductTitle,
			SKU:          item.SKU,
			Quantity:     item.Quantity,
			Notes:        item.Notes,
		})
	}
	if s.cfg.ResponseSLA > 0 {
		deadline := now.Add(s.cfg.ResponseSLA)
		request.ValidUntil = &deadline
	}

	seq, err := s.repos.RFQ.NextRequestSequence(ctx)
	if err != nil {
		return nil, err
	}
	request.RequestNumber = fmt.Sprintf("RFQ-%s-%05d", now.Format("20060102"), seq)

	actor := customer.ID
	event := rfq.NewEvent(request, "", rfq.EventSubmitted, &actor, map[string]interface{}{
		"request_number": request.RequestNumber,
		"item_count":     len(request.Items),
		"priority":       string(request.Priority),
	})
	if err := s.repos.RFQ.Create(ctx, request, event); err != nil {
		s.logger.Error("Failed to create rfq", zap.Error(err), zap.String("customer_id", customer.ID.String()))
		return nil, err
	}

	s.logger.Info("RFQ submitted",
		zap.String("rfq_id", request.ID.String()),
		zap.String("request_number", request.RequestNumber),
		zap.Int("items", len(request.Items)),
	)
	return request, nil
}

// Get returns an RFQ the caller may see, expiring it first when it is overdue
func (s *RFQService) Get(ctx context.Context, caller *domain.Principal, id uuid.UUID) (*domain.RfqRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(caller, request); err != nil {
		return nil, err
	}
	return request, nil
}

// ListForCustomer lists a customer's RFQs, optionally by status
func (s *RFQService) ListForCustomer(ctx context.Context, customer *domain.Principal, status *domain.RfqStatus) ([]*domain.RfqRequest, error) {
	return s.list(ctx, repository.RFQFilter{CustomerID: &customer.ID, Status: status})
}

// ListForRep lists the RFQs assigned to a rep
func (s *RFQService) ListForRep(ctx context.Context, repID uuid.UUID, status *domain.RfqStatus) ([]*domain.RfqRequest, error) {
	return s.list(ctx, repository.RFQFilter{AssignedRepID: &repID, Status: status})
}

// List returns RFQs for the admin view
func (s *RFQService) List(ctx context.Context, filter repository.RFQFilter) ([]*domain.RfqRequest, error) {
	return s.list(ctx, filter)
}

// Events returns an RFQ's audit trail
func (s *RFQService) Events(ctx context.Context, id uuid.UUID) ([]*domain.RfqEvent, error) {
	return s.repos.RFQ.ListEvents(ctx, id)
}

// Respond records the customer's decision on a quote. Only the owning customer may
// decide; an admin may record the decision for the customer, and the event then carries
// on_behalf_of with the customer's id. Reps can never accept or decline.
func (s *RFQService) Respond(ctx context.Context, caller *domain.Principal, id uuid.UUID, decision domain.RfqStatus) (*domain.RfqRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch caller.Role {
	case domain.RoleCustomer:
		if request.CustomerID != caller.ID {
			return nil, &errors.ErrNotFound{Resource: "rfq", ID: id.String()}
		}
	case domain.RoleAdmin:
	default:
		return nil, &errors.ErrForbidden{Message: "only the customer can accept or decline a quote"}
	}

	staged := request.Clone()
	from := staged.Status
	if err := rfq.Respond(staged, decision, s.now()); err != nil {
		return nil, err
	}

	actor := caller.ID
	data := map[string]interface{}{
		"decision": string(decision),
		"role":     string(caller.Role),
	}
	if caller.Role == domain.RoleAdmin {
		data["on_behalf_of"] = request.CustomerID.String()
	}
	event := rfq.NewEvent(staged, from, rfq.EventResponded, &actor, data)
	if err := s.repos.RFQ.Update(ctx, staged, event); err != nil {
		s.logger.Error("Failed to record rfq response", zap.Error(err), zap.String("rfq_id", id.String()))
		return nil, err
	}

	s.logger.Info("RFQ response recorded",
		zap.String("rfq_id", id.String()),
		zap.String("decision", string(decision)),
	)
	return staged, nil
}

// Expire moves an overdue RFQ to EXPIRED on request. It fails when the RFQ is not overdue.
func (s *RFQService) Expire(ctx context.Context, caller *domain.Principal, id uuid.UUID) (*domain.RfqRequest, error) {
	request, err := s.repos.RFQ.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleRep && !assignedTo(caller, request) {
		return nil, &errors.ErrForbidden{Message: "rfq is not assigned to you"}
	}

	staged := request.Clone()
	from := staged.Status
	if err := rfq.Expire(staged, s.now()); err != nil {
		return nil, err
	}
	actor := caller.ID
	event := rfq.NewEvent(staged, from, rfq.EventExpired, &actor, nil)
	if err := s.repos.RFQ.Update(ctx, staged, event); err != nil {
		return nil, err
	}
	return staged, nil
}

// ExpireOverdue expires every overdue RFQ and returns how many were expired.
// RFQs changed concurrently are left to the next sweep.
func (s *RFQService) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.repos.RFQ.ListExpirable(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list overdue rfqs", zap.Error(err))
		return 0, err
	}

	expired := 0
	for _, request := range overdue {
		from, ok := rfq.ExpireIfDue(request, now)
		if !ok {
			continue
		}
		event := rfq.NewEvent(request, from, rfq.EventExpired, nil, map[string]interface{}{
			"trigger": "sweep",
		})
		if err := s.repos.RFQ.Update(ctx, request, event); err != nil {
			if errors.IsConflict(err) {
				s.logger.Warn("RFQ changed during expiry sweep, skipping", zap.String("rfq_id", request.ID.String()))
				continue
			}
			s.logger.Error("Failed to expire rfq", zap.Error(err), zap.String("rfq_id", request.ID.String()))
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("Expired overdue RFQs", zap.Int("count", expired))
	}
	return expired, nil
}

// load reads an RFQ and applies the lazy expiry check, persisting the expiry when it fires
func (s *RFQService) load(ctx context.Context, id uuid.UUID) (*domain.RfqRequest, error) {
	for attempt := 0; attempt < 2; attempt++ {
		request, err := s.repos.RFQ.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		from, expired := rfq.ExpireIfDue(request, s.now())
		if !expired {
			return request, nil
		}

		event := rfq.NewEvent(request, from, rfq.EventExpired, nil, map[string]interface{}{
			"trigger": "read",
		})
		err = s.repos.RFQ.Update(ctx, request, event)
		if err == nil {
			s.logger.Info("RFQ expired", zap.String("rfq_id", id.String()), zap.String("from", string(from)))
			return request, nil
		}
		if !errors.IsConflict(err) {
			s.logger.Error("Failed to expire rfq", zap.Error(err), zap.String("rfq_id", id.String()))
			return nil, err
		}
	}
	return nil, &errors.ErrConflict{Resource: "rfq", ID: id.String()}
}

func (s *RFQService) list(ctx context.Context, filter repository.RFQFilter) ([]*domain.RfqRequest, error) {
	requests, err := s.repos.RFQ.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	// reads never show a stale status; the sweep or the next targeted read persists it
	now := s.now()
	out := make([]*domain.RfqRequest, 0, len(requests))
	for _, request := range requests {
		rfq.ExpireIfDue(request, now)
		if filter.Status != nil && request.Status != *filter.Status {
			continue
		}
		out = append(out, request)
	}
	return out, nil
}

func authorizeRead(caller *domain.Principal, request *domain.RfqRequest) error {
	switch caller.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleRep:
		if request.Status == domain.RfqStatusPending || assignedTo(caller, request) {
			return nil
		}
		return &errors.ErrForbidden{Message: "rfq is not assigned to you"}
	default:
		if request.CustomerID == caller.ID {
			return nil
		}
		return &errors.ErrNotFound{Resource: "rfq", ID: request.ID.String()}
	}
}

func assignedTo(rep *domain.Principal, request *domain.RfqRequest) bool {
	return rep.RepID != nil && request.AssignedRepID != nil && *rep.RepID == *request.AssignedRepID
}
