package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type catalogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *sql.DB, logger *zap.Logger) *catalogRepository {
	return &catalogRepository{
		db:     db,
		logger: logger,
	}
}

const catalogColumns = `product_id, variant_id, sku, title, list_price, in_stock, stock_quantity,
	minimum_quantity, quantity_increment, discontinued, allowed_tiers`

func scanCatalogEntry(row rowScanner) (*domain.CatalogEntry, error) {
	var e domain.CatalogEntry
	var stock, minimum, increment sql.NullInt64
	var tiers []string

	err := row.Scan(
		&e.ProductID,
		&e.VariantID,
		&e.SKU,
		&e.Title,
		&e.ListPrice,
		&e.InStock,
		&stock,
		&minimum,
		&increment,
		&e.Discontinued,
		pq.Array(&tiers),
	)
	if err != nil {
		return nil, err
	}

	e.StockQuantity = intFromNull(stock)
	e.MinimumQuantity = intFromNull(minimum)
	e.QuantityIncrement = intFromNull(increment)
	for _, t := range tiers {
		e.AllowedTiers = append(e.AllowedTiers, domain.DealerTier(t))
	}
	return &e, nil
}

func (r *catalogRepository) GetVariant(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_entries WHERE product_id = $1 AND variant_id = $2`

	e, err := scanCatalogEntry(r.db.QueryRowContext(ctx, query, productID, variantID))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "catalog variant", ID: variantID}
	}
	if err != nil {
		r.logger.Error("Failed to get catalog variant", zap.Error(err), zap.String("variant_id", variantID))
		return nil, err
	}
	return e, nil
}

func (r *catalogRepository) GetBySKU(ctx context.Context, sku string) (*domain.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_entries WHERE sku = $1 LIMIT 1`

	e, err := scanCatalogEntry(r.db.QueryRowContext(ctx, query, sku))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "catalog sku", ID: sku}
	}
	if err != nil {
		r.logger.Error("Failed to get catalog entry by SKU", zap.Error(err), zap.String("sku", sku))
		return nil, err
	}
	return e, nil
}

func (r *catalogRepository) Upsert(ctx context.Context, entry *domain.CatalogEntry) error {
	query := `
		INSERT INTO catalog_entries (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (product_id, variant_id) DO UPDATE SET
			sku = EXCLUDED.sku,
			title = EXCLUDED.title,
			list_price = EXCLUDED.list_price,
			in_stock = EXCLUDED.in_stock,
			stock_quantity = EXCLUDED.stock_quantity,
			minimum_quantity = EXCLUDED.minimum_quantity,
			quantity_increment = EXCLUDED.quantity_increment,
			discontinued = EXCLUDED.discontinued,
			allowed_tiers = EXCLUDED.allowed_tiers
	`

	tiers := make([]string, 0, len(entry.AllowedTiers))
	for _, t := range entry.AllowedTiers {
		tiers = append(tiers, string(t))
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ProductID,
		entry.VariantID,
		entry.SKU,
		entry.Title,
		entry.ListPrice,
		entry.InStock,
		nullInt(entry.StockQuantity),
		nullInt(entry.MinimumQuantity),
		nullInt(entry.QuantityIncrement),
		entry.Discontinued,
		pq.Array(tiers),
	)
	if err != nil {
		r.logger.Error("Failed to upsert catalog entry", zap.Error(err), zap.String("sku", entry.SKU))
		return err
	}
	return nil
}
