package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type rfqRepository struct {
	s *store
}

func (r *rfqRepository) Create(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rfq.ID == uuid.Nil {
		rfq.ID = uuid.New()
	}
	for i := range rfq.Items {
		if rfq.Items[i].ID == uuid.Nil {
			rfq.Items[i].ID = uuid.New()
		}
		rfq.Items[i].RfqID = rfq.ID
	}
	rfq.Version = 1
	r.s.rfqs[rfq.ID] = rfq.Clone()
	r.appendEvent(rfq.ID, event)
	return nil
}

func (r *rfqRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RfqRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rfq, ok := r.s.rfqs[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "rfq", ID: id.String()}
	}
	return rfq.Clone(), nil
}

func (r *rfqRepository) List(ctx context.Context, filter repository.RFQFilter) ([]*domain.RfqRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*domain.RfqRequest{}
	for _, rfq := range r.s.rfqs {
		if filter.Status != nil && rfq.Status != *filter.Status {
			continue
		}
		if filter.CustomerID != nil && rfq.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AssignedRepID != nil && (rfq.AssignedRepID == nil || *rfq.AssignedRepID != *filter.AssignedRepID) {
			continue
		}
		out = append(out, rfq.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].RequestNumber > out[j].RequestNumber
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*domain.RfqRequest{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *rfqRepository) Update(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkVersion(rfq); err != nil {
		return err
	}
	rfq.Version++
	r.s.rfqs[rfq.ID] = rfq.Clone()
	r.appendEvent(rfq.ID, event)
	return nil
}

func (r *rfqRepository) AssignWithinCapacity(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rfq.AssignedRepID == nil {
		return &errors.ErrInvalidStateTransition{From: rfq.Status, To: domain.RfqStatusInReview, Reason: "an account rep is required"}
	}
	repID := *rfq.AssignedRepID
	rep, ok := r.s.reps[repID]
	if !ok {
		return &errors.ErrNotFound{Resource: "account rep", ID: repID.String()}
	}
	if err := r.checkVersion(rfq); err != nil {
		return err
	}

	assigned := r.s.activeCount(repID)
	if rep.MaxRfqCapacity != nil && assigned >= *rep.MaxRfqCapacity {
		return &errors.ErrCapacityExceeded{RepID: repID.String(), Capacity: *rep.MaxRfqCapacity, Assigned: assigned}
	}

	rfq.Version++
	r.s.rfqs[rfq.ID] = rfq.Clone()
	r.appendEvent(rfq.ID, event)
	return nil
}

func (r *rfqRepository) ListExpirable(ctx context.Context, now time.Time) ([]*domain.RfqRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*domain.RfqRequest{}
	for _, rfq := range r.s.rfqs {
		if !rfq.Status.IsTerminal() && rfq.ValidUntil != nil && now.After(*rfq.ValidUntil) {
			out = append(out, rfq.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ValidUntil.Before(*out[j].ValidUntil)
	})
	return out, nil
}

func (r *rfqRepository) CountActiveByRep(ctx context.Context, repID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.activeCount(repID), nil
}

func (r *rfqRepository) ListEvents(ctx context.Context, rfqID uuid.UUID) ([]*domain.RfqEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rfqs[rfqID]; !ok {
		return nil, &errors.ErrNotFound{Resource: "rfq", ID: rfqID.String()}
	}
	events := make([]*domain.RfqEvent, 0, len(r.s.events[rfqID]))
	for _, e := range r.s.events[rfqID] {
		events = append(events, copyEvent(e))
	}
	return events, nil
}

func (r *rfqRepository) NextRequestSequence(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.sequence++
	return r.s.sequence, nil
}

func (r *rfqRepository) checkVersion(rfq *domain.RfqRequest) error {
	stored, ok := r.s.rfqs[rfq.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "rfq", ID: rfq.ID.String()}
	}
	if stored.Version != rfq.Version {
		return &errors.ErrConflict{Resource: "rfq", ID: rfq.ID.String(), Version: rfq.Version}
	}
	return nil
}

func (r *rfqRepository) appendEvent(rfqID uuid.UUID, event *domain.RfqEvent) {
	if event == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.RfqID = rfqID
	r.s.events[rfqID] = append(r.s.events[rfqID], copyEvent(event))
}
