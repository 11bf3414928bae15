package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type cartRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCartRepository creates a new saved cart repository
func NewCartRepository(db *sql.DB, logger *zap.Logger) *cartRepository {
	return &cartRepository{
		db:     db,
		logger: logger,
	}
}

const cartColumns = `id, customer_id, name, dealer_tier, items, version, created_at, updated_at`

func scanCart(row rowScanner) (*domain.SavedCart, error) {
	var c domain.SavedCart
	var items []byte

	err := row.Scan(
		&c.ID,
		&c.CustomerID,
		&c.Name,
		&c.DealerTier,
		&items,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Items = []domain.CartItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &c.Items); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.SavedCart) error {
	query := `
		INSERT INTO saved_carts (` + cartColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	cart.Version = 1
	cart.CreatedAt = now
	cart.UpdatedAt = now

	items, err := marshalItems(cart.Items)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		cart.ID,
		cart.CustomerID,
		cart.Name,
		cart.DealerTier,
		items,
		cart.Version,
		cart.CreatedAt,
		cart.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create cart", zap.Error(err))
		return err
	}
	return nil
}

func (r *cartRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SavedCart, error) {
	query := `SELECT ` + cartColumns + ` FROM saved_carts WHERE id = $1`

	c, err := scanCart(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "cart", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get cart by ID", zap.Error(err), zap.String("cart_id", id.String()))
		return nil, err
	}
	return c, nil
}

func (r *cartRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.SavedCart, error) {
	query := `SELECT ` + cartColumns + ` FROM saved_carts WHERE customer_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		r.logger.Error("Failed to list carts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	carts := []*domain.SavedCart{}
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			r.logger.Error("Failed to scan cart", zap.Error(err))
			return nil, err
		}
		carts = append(carts, c)
	}
	return carts, rows.Err()
}

func (r *cartRepository) Update(ctx context.Context, cart *domain.SavedCart) error {
	query := `
		UPDATE saved_carts
		SET name = $3, dealer_tier = $4, items = $5, version = version + 1, updated_at = $6
		WHERE id = $1 AND version = $2
	`

	items, err := marshalItems(cart.Items)
	if err != nil {
		return err
	}
	updatedAt := time.Now()

	result, err := r.db.ExecContext(ctx, query,
		cart.ID,
		cart.Version,
		cart.Name,
		cart.DealerTier,
		items,
		updatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update cart", zap.Error(err), zap.String("cart_id", cart.ID.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// either gone or a concurrent writer got there first
		if _, err := r.GetByID(ctx, cart.ID); err != nil {
			return err
		}
		return &errors.ErrConflict{Resource: "cart", ID: cart.ID.String(), Version: cart.Version}
	}

	cart.Version++
	cart.UpdatedAt = updatedAt
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_carts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete cart", zap.Error(err), zap.String("cart_id", id.String()))
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &errors.ErrNotFound{Resource: "cart", ID: id.String()}
	}
	return nil
}

func marshalItems(items []domain.CartItem) ([]byte, error) {
	if items == nil {
		items = []domain.CartItem{}
	}
	return json.Marshal(items)
}
