package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type variantNode struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	AvailableForSale  bool   `json:"availableForSale"`
	InventoryQuantity *int   `json:"inventoryQuantity"`
	Product           struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Status string   `json:"status"`
		Tags   []string `json:"tags"`
	} `json:"product"`
}

// GetVariant reads a product variant as a catalog entry. productID is only used to
// check the variant belongs to the product the caller expects.
func (c *Client) GetVariant(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error) {
	resp, err := c.Execute(ctx, ProductVariantQuery, map[string]interface{}{
		"id": variantGID(variantID),
	})
	if err != nil {
		c.logger.Error("Failed to query product variant", zap.Error(err), zap.String("variant_id", variantID))
		return nil, err
	}

	var result struct {
		ProductVariant *variantNode `json:"productVariant"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse variant response: %w", err)
	}
	if result.ProductVariant == nil {
		return nil, &errors.ErrNotFound{Resource: "catalog variant", ID: variantID}
	}

	entry, err := toCatalogEntry(result.ProductVariant)
	if err != nil {
		return nil, err
	}
	if productID != "" && entry.ProductID != idFromGID(productID) {
		return nil, &errors.ErrNotFound{Resource: "catalog variant", ID: variantID}
	}
	return entry, nil
}

// GetBySKU finds the first variant carrying sku
func (c *Client) GetBySKU(ctx context.Context, sku string) (*domain.CatalogEntry, error) {
	resp, err := c.Execute(ctx, VariantBySKUQuery, map[string]interface{}{
		"query": fmt.Sprintf("sku:%q", sku),
	})
	if err != nil {
		c.logger.Error("Failed to query variant by SKU", zap.Error(err), zap.String("sku", sku))
		return nil, err
	}

	var result struct {
		ProductVariants struct {
			Edges []struct {
				Node variantNode `json:"node"`
			} `json:"edges"`
		} `json:"productVariants"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse variant response: %w", err)
	}

	for _, edge := range result.ProductVariants.Edges {
		if edge.Node.SKU == sku {
			node := edge.Node
			return toCatalogEntry(&node)
		}
	}
	return nil, &errors.ErrNotFound{Resource: "catalog sku", ID: sku}
}

// toCatalogEntry maps a variant onto the catalog model. B2B ordering rules live in
// product tags: "discontinued", "min-qty:N", "qty-increment:N" and "tier:TIER".
func toCatalogEntry(v *variantNode) (*domain.CatalogEntry, error) {
	price, err := decimal.NewFromString(v.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for variant %s: %w", v.Price, v.ID, err)
	}

	entry := &domain.CatalogEntry{
		ProductID:     idFromGID(v.Product.ID),
		VariantID:     idFromGID(v.ID),
		SKU:           v.SKU,
		Title:         v.Product.Title,
		ListPrice:     price,
		InStock:       v.AvailableForSale,
		StockQuantity: v.InventoryQuantity,
		Discontinued:  strings.EqualFold(v.Product.Status, "ARCHIVED"),
	}
	if v.Title != "" && v.Title != "Default Title" {
		entry.Title = v.Product.Title + " - " + v.Title
	}

	for _, tag := range v.Product.Tags {
		key, value, _ := strings.Cut(strings.TrimSpace(tag), ":")
		switch strings.ToLower(key) {
		case "discontinued":
			entry.Discontinued = true
		case "min-qty":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				entry.MinimumQuantity = &n
			}
		case "qty-increment":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				entry.QuantityIncrement = &n
			}
		case "tier":
			tier := domain.DealerTier(strings.ToUpper(value))
			if tier.IsValid() {
				entry.AllowedTiers = append(entry.AllowedTiers, tier)
			}
		}
	}
	return entry, nil
}
