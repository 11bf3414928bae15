package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type accountRepRepository struct {
	s *store
}

func (r *accountRepRepository) copyWithCount(rep *domain.AccountRep) *domain.AccountRep {
	c := *rep
	c.TerritoryRegions = append([]string(nil), rep.TerritoryRegions...)
	c.CurrentAssignedCount = r.s.activeCount(rep.ID)
	return &c
}

func (r *accountRepRepository) Create(ctx context.Context, rep *domain.AccountRep) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	rep.CreatedAt = now
	rep.UpdatedAt = now
	c := *rep
	c.CurrentAssignedCount = 0
	r.s.reps[rep.ID] = &c
	return nil
}

func (r *accountRepRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AccountRep, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rep, ok := r.s.reps[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "account rep", ID: id.String()}
	}
	return r.copyWithCount(rep), nil
}

func (r *accountRepRepository) ListActive(ctx context.Context) ([]*domain.AccountRep, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*domain.AccountRep{}
	for _, rep := range r.s.reps {
		if rep.IsActive {
			out = append(out, r.copyWithCount(rep))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
