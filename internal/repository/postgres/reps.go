package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type accountRepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAccountRepRepository creates a new account rep repository
func NewAccountRepRepository(db *sql.DB, logger *zap.Logger) *accountRepRepository {
	return &accountRepRepository{
		db:     db,
		logger: logger,
	}
}

// the assigned count is computed in the same statement, never stored
const repSelect = `
	SELECT r.id, r.name, r.contact_email, r.territory_regions, r.max_rfq_capacity, r.is_active,
		(SELECT COUNT(*) FROM rfq_requests q WHERE q.assigned_rep_id = r.id AND q.status IN ('IN_REVIEW', 'QUOTED')),
		r.created_at, r.updated_at
	FROM account_reps r
`

func scanRep(row rowScanner) (*domain.AccountRep, error) {
	var rep domain.AccountRep
	var capacity sql.NullInt64

	err := row.Scan(
		&rep.ID,
		&rep.Name,
		&rep.ContactEmail,
		pq.Array(&rep.TerritoryRegions),
		&capacity,
		&rep.IsActive,
		&rep.CurrentAssignedCount,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rep.MaxRfqCapacity = intFromNull(capacity)
	return &rep, nil
}

func (r *accountRepRepository) Create(ctx context.Context, rep *domain.AccountRep) error {
	query := `
		INSERT INTO account_reps (id, name, contact_email, territory_regions, max_rfq_capacity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	rep.CreatedAt = now
	rep.UpdatedAt = now
	regions := rep.TerritoryRegions
	if regions == nil {
		regions = []string{}
	}

	_, err := r.db.ExecContext(ctx, query,
		rep.ID,
		rep.Name,
		rep.ContactEmail,
		pq.Array(regions),
		nullInt(rep.MaxRfqCapacity),
		rep.IsActive,
		rep.CreatedAt,
		rep.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account rep", zap.Error(err))
		return err
	}
	return nil
}

func (r *accountRepRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AccountRep, error) {
	rep, err := scanRep(r.db.QueryRowContext(ctx, repSelect+` WHERE r.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "account rep", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get account rep", zap.Error(err), zap.String("rep_id", id.String()))
		return nil, err
	}
	return rep, nil
}

func (r *accountRepRepository) ListActive(ctx context.Context) ([]*domain.AccountRep, error) {
	rows, err := r.db.QueryContext(ctx, repSelect+` WHERE r.is_active = true ORDER BY r.id`)
	if err != nil {
		r.logger.Error("Failed to list account reps", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	reps := []*domain.AccountRep{}
	for rows.Next() {
		rep, err := scanRep(rows)
		if err != nil {
			r.logger.Error("Failed to scan account rep", zap.Error(err))
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}
