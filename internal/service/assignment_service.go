package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/rfq"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

var errNoCandidate = stderrors.New("no active account rep with free capacity covers this region")

// repPicker chooses the rep for one RFQ. It is called again on every retry so it sees fresh counts.
type repPicker func(ctx context.Context, request *domain.RfqRequest) (uuid.UUID, error)

// AssignmentService moves PENDING RFQs to IN_REVIEW under a rep, never past the rep's capacity
type AssignmentService struct {
	maxRetries int
	repos      *repository.Repositories
	rfqs       *RFQService
	logger     *zap.Logger
	now        Clock
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(maxRetries int, repos *repository.Repositories, rfqs *RFQService, logger *zap.Logger, clock Clock) *AssignmentService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &AssignmentService{
		maxRetries: maxRetries,
		repos:      repos,
		rfqs:       rfqs,
		logger:     logger,
		now:        clock,
	}
}

// BulkAssign assigns every listed RFQ to one rep and reports each RFQ's outcome.
// RFQs that are no longer PENDING are skipped; once the rep is full the rest fail.
func (s *AssignmentService) BulkAssign(ctx context.Context, actor *domain.Principal, rfqIDs []uuid.UUID, repID uuid.UUID) (*AssignmentResult, error) {
	if len(rfqIDs) == 0 {
		return nil, &errors.ErrInvalidInput{Field: "rfqIds", Message: "at least one RFQ id is required"}
	}
	rep, err := s.repos.AccountRep.GetByID(ctx, repID)
	if err != nil {
		return nil, err
	}
	if !rep.IsActive {
		return nil, &errors.ErrInvalidInput{Field: "assignedRepId", Message: "account rep is inactive"}
	}

	fixed := func(context.Context, *domain.RfqRequest) (uuid.UUID, error) {
		return repID, nil
	}
	result := s.run(ctx, actor, dedupe(rfqIDs), fixed, false)

	s.logger.Info("Bulk assignment finished",
		zap.String("rep_id", repID.String()),
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// AutoAssign picks the least loaded eligible rep for each RFQ. With no ids it takes every
// PENDING RFQ, most urgent first and oldest first within a priority.
func (s *AssignmentService) AutoAssign(ctx context.Context, actor *domain.Principal, rfqIDs []uuid.UUID) (*AssignmentResult, error) {
	if len(rfqIDs) == 0 {
		pending, err := s.pendingQueue(ctx)
		if err != nil {
			return nil, err
		}
		rfqIDs = pending
	}

	result := s.run(ctx, actor, dedupe(rfqIDs), s.leastLoaded, true)

	s.logger.Info("Auto assignment finished",
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", result.Skipped),
		zap.Int("unassignable", result.Unassignable),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// Claim lets a rep take a PENDING RFQ for themselves
func (s *AssignmentService) Claim(ctx context.Context, caller *domain.Principal, rfqID uuid.UUID) (*domain.RfqRequest, error) {
	if caller.Role != domain.RoleRep || caller.RepID == nil {
		return nil, &errors.ErrForbidden{Message: "only account reps can claim requests"}
	}
	rep, err := s.repos.AccountRep.GetByID(ctx, *caller.RepID)
	if err != nil {
		return nil, err
	}
	if !rep.IsActive {
		return nil, &errors.ErrForbidden{Message: "account rep is inactive"}
	}

	self := func(context.Context, *domain.RfqRequest) (uuid.UUID, error) {
		return rep.ID, nil
	}
	return s.assign(ctx, caller, rfqID, self, false)
}

func (s *AssignmentService) run(ctx context.Context, actor *domain.Principal, ids []uuid.UUID, pick repPicker, retryOnCapacity bool) *AssignmentResult {
	result := &AssignmentResult{Items: []AssignmentItem{}}
	for _, id := range ids {
		item := AssignmentItem{RfqID: id}
		assigned, err := s.assign(ctx, actor, id, pick, retryOnCapacity)

		var transitionErr *errors.ErrInvalidStateTransition
		switch {
		case err == nil:
			item.Outcome = AssignmentAssigned
			item.RequestNumber = assigned.RequestNumber
			item.AssignedRepID = assigned.AssignedRepID
			item.Status = assigned.Status
		case stderrors.As(err, &transitionErr):
			item.Outcome = AssignmentSkipped
			item.Status = transitionErr.From
			item.Reason = err.Error()
		case stderrors.Is(err, errNoCandidate):
			item.Outcome = AssignmentUnassignable
			item.Reason = err.Error()
		default:
			item.Outcome = AssignmentFailed
			item.Reason = err.Error()
		}
		result.add(item)
	}
	return result
}

// assign runs one RFQ through load, pick, stage and the capacity-checked write,
// retrying on version conflicts and, when asked, on a rep filling up in between.
func (s *AssignmentService) assign(ctx context.Context, actor *domain.Principal, id uuid.UUID, pick repPicker, retryOnCapacity bool) (*domain.RfqRequest, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		request, err := s.rfqs.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if request.Status != domain.RfqStatusPending {
			return nil, &errors.ErrInvalidStateTransition{
				From:   request.Status,
				To:     domain.RfqStatusInReview,
				Reason: "only PENDING requests can be assigned",
			}
		}

		repID, err := pick(ctx, request)
		if err != nil {
			return nil, err
		}

		staged := request.Clone()
		from := staged.Status
		if err := rfq.Assign(staged, repID, s.now()); err != nil {
			return nil, err
		}
		actorID := actor.ID
		event := rfq.NewEvent(staged, from, rfq.EventAssigned, &actorID, map[string]interface{}{
			"assigned_rep_id": repID.String(),
			"attempt":         attempt,
		})

		err = s.repos.RFQ.AssignWithinCapacity(ctx, staged, event)
		if err == nil {
			s.logger.Info("RFQ assigned",
				zap.String("rfq_id", id.String()),
				zap.String("rep_id", repID.String()),
			)
			return staged, nil
		}

		retryable := errors.IsConflict(err) || (retryOnCapacity && errors.IsCapacityExceeded(err))
		if !retryable {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("Assignment raced with another write, retrying",
			zap.String("rfq_id", id.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("gave up after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *AssignmentService) leastLoaded(ctx context.Context, request *domain.RfqRequest) (uuid.UUID, error) {
	reps, err := s.repos.AccountRep.ListActive(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	rep, ok := rfq.SelectRep(reps, request.Region)
	if !ok {
		return uuid.Nil, errNoCandidate
	}
	return rep.ID, nil
}

func (s *AssignmentService) pendingQueue(ctx context.Context) ([]uuid.UUID, error) {
	status := domain.RfqStatusPending
	pending, err := s.repos.RFQ.List(ctx, repository.RFQFilter{Status: &status})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.RequestNumber < b.RequestNumber
	})

	ids := make([]uuid.UUID, len(pending))
	for i, r := range pending {
		ids[i] = r.ID
	}
	return ids, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
