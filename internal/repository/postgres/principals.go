package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type principalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *sql.DB, logger *zap.Logger) *principalRepository {
	return &principalRepository{
		db:     db,
		logger: logger,
	}
}

const principalColumns = `id, name, api_key_hash, role, dealer_tier, region, rep_id, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrincipal(row rowScanner) (*domain.Principal, error) {
	var p domain.Principal
	var tier, region sql.NullString
	var repID uuid.NullUUID

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.APIKeyHash,
		&p.Role,
		&tier,
		&region,
		&repID,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.DealerTier = domain.DealerTier(tier.String)
	p.Region = region.String
	if repID.Valid {
		p.RepID = &repID.UUID
	}
	return &p, nil
}

func (r *principalRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Principal, error) {
	// bcrypt hashes are salted, so the key cannot be looked up directly
	query := `SELECT ` + principalColumns + ` FROM principals WHERE is_active = true`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query principals", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(p.APIKeyHash), []byte(apiKey)); err == nil {
			return p, nil
		}
	}

	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (r *principalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`

	p, err := scanPrincipal(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "principal", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get principal by ID", zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *principalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	query := `
		INSERT INTO principals (` + principalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	if principal.ID == uuid.Nil {
		principal.ID = uuid.New()
	}
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = now
	}
	if principal.UpdatedAt.IsZero() {
		principal.UpdatedAt = now
	}

	var repID uuid.NullUUID
	if principal.RepID != nil {
		repID = uuid.NullUUID{UUID: *principal.RepID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		principal.ID,
		principal.Name,
		principal.APIKeyHash,
		principal.Role,
		nullString(string(principal.DealerTier)),
		nullString(principal.Region),
		repID,
		principal.IsActive,
		principal.CreatedAt,
		principal.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create principal", zap.Error(err))
		return err
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
