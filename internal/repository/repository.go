package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/izerwaren/b2bportal/internal/domain"
)

// Repositories groups every store the services depend on
type Repositories struct {
	Principal  PrincipalRepository
	Catalog    CatalogRepository
	Cart       CartRepository
	RFQ        RFQRepository
	AccountRep AccountRepRepository
}

// PrincipalRepository resolves API callers
type PrincipalRepository interface {
	// GetByAPIKey returns the active principal whose bcrypt hash matches apiKey
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Principal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error)
	Create(ctx context.Context, principal *domain.Principal) error
}

// CatalogRepository is the local catalog table used when no Shopify store is configured
type CatalogRepository interface {
	GetVariant(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error)
	GetBySKU(ctx context.Context, sku string) (*domain.CatalogEntry, error)
	Upsert(ctx context.Context, entry *domain.CatalogEntry) error
}

// CartRepository persists saved carts. Update is a compare-and-swap on Version:
// it fails with ErrConflict when the stored version differs and bumps cart.Version on success.
type CartRepository interface {
	Create(ctx context.Context, cart *domain.SavedCart) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SavedCart, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.SavedCart, error)
	Update(ctx context.Context, cart *domain.SavedCart) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RFQFilter narrows List; nil fields match everything
type RFQFilter struct {
	Status        *domain.RfqStatus
	AssignedRepID *uuid.UUID
	CustomerID    *uuid.UUID
	Limit         int
	Offset        int
}

// RFQRepository persists RFQs with their items and audit trail.
// Every write that changes status stores the matching event in the same unit of work.
type RFQRepository interface {
	Create(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RfqRequest, error)
	List(ctx context.Context, filter RFQFilter) ([]*domain.RfqRequest, error)

	// Update writes rfq if its stored version still equals rfq.Version (ErrConflict otherwise)
	// and bumps rfq.Version on success.
	Update(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error

	// AssignWithinCapacity writes an rfq already moved to IN_REVIEW with its rep set. The rep's
	// live assigned count is re-read under a lock in the same transaction, and the write fails
	// with ErrCapacityExceeded when the rep is full.
	AssignWithinCapacity(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error

	// ListExpirable returns non-terminal RFQs whose validUntil is before now
	ListExpirable(ctx context.Context, now time.Time) ([]*domain.RfqRequest, error)
	CountActiveByRep(ctx context.Context, repID uuid.UUID) (int, error)
	ListEvents(ctx context.Context, rfqID uuid.UUID) ([]*domain.RfqEvent, error)
	NextRequestSequence(ctx context.Context) (int64, error)
}

// AccountRepRepository reads account reps; CurrentAssignedCount is always filled from a live count
type AccountRepRepository interface {
	Create(ctx context.Context, rep *domain.AccountRep) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AccountRep, error)
	ListActive(ctx context.Context) ([]*domain.AccountRep, error)
}
