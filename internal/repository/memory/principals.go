package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type principalRepository struct {
	s *store
}

func (r *principalRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.principals {
		if !p.IsActive {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(p.APIKeyHash), []byte(apiKey)); err == nil {
			c := *p
			return &c, nil
		}
	}
	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (r *principalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.principals[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "principal", ID: id.String()}
	}
	c := *p
	return &c, nil
}

func (r *principalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	if principal.ID == uuid.Nil {
		principal.ID = uuid.New()
	}
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = now
	}
	principal.UpdatedAt = principal.CreatedAt
	c := *principal
	r.s.principals[principal.ID] = &c
	return nil
}
