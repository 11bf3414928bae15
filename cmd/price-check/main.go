package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/pricing"
	"github.com/izerwaren/b2bportal/internal/repository/postgres"
	"github.com/izerwaren/b2bportal/internal/shopify"
)

var tiers = []domain.DealerTier{
	domain.DealerTierStandard,
	domain.DealerTierPremium,
	domain.DealerTierEnterprise,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/price-check/main.go <sku> [quantity]")
		fmt.Println("Example: go run cmd/price-check/main.go \"SCM 8502\" 120")
		os.Exit(1)
	}

	sku := os.Args[1]
	quantity := 1
	if len(os.Args) > 2 {
		q, err := strconv.Atoi(os.Args[2])
		if err != nil || q <= 0 {
			fmt.Fprintf(os.Stderr, "Quantity must be a positive integer, got %q\n", os.Args[2])
			os.Exit(1)
		}
		quantity = q
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	policy := pricing.DefaultPolicy()
	if cfg.Pricing.PolicyFile != "" {
		if policy, err = pricing.LoadPolicyFile(cfg.Pricing.PolicyFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load pricing policy: %v\n", err)
			os.Exit(1)
		}
	}
	store, err := pricing.NewPolicyStore(policy, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid pricing policy: %v\n", err)
		os.Exit(1)
	}

	entry, source, err := lookup(context.Background(), cfg, logger, sku)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to find SKU %q: %v\n", sku, err)
		os.Exit(1)
	}

	fmt.Printf("Found SKU in %s\n\n", source)
	fmt.Printf("SKU: %s\n", entry.SKU)
	fmt.Printf("Title: %s\n", entry.Title)
	fmt.Printf("Product ID: %s\n", entry.ProductID)
	fmt.Printf("Variant ID: %s\n", entry.VariantID)
	fmt.Printf("List Price: %s\n", entry.ListPrice.StringFixed(2))
	if entry.Discontinued {
		fmt.Printf("Discontinued: yes\n")
	}
	fmt.Printf("\nPrices for quantity %d:\n", quantity)

	item := domain.CartItem{
		SKU:       entry.SKU,
		Quantity:  quantity,
		ListPrice: entry.ListPrice,
	}
	current := store.Current()
	for _, tier := range tiers {
		priced, stack, err := current.PriceItem(item, pricing.CartContext{TotalQuantity: quantity}, tier)
		if err != nil {
			fmt.Printf("  %-10s  %v\n", tier, err)
			continue
		}
		line := fmt.Sprintf("  %-10s  unit %s  total %s  (%s%% %s",
			tier,
			priced.UnitPrice.StringFixed(2),
			priced.TotalPrice.StringFixed(2),
			priced.DiscountPercent.String(),
			priced.DiscountSource,
		)
		if stack.Winning != nil && stack.Winning.Name != "" {
			line += ": " + stack.Winning.Name
		}
		fmt.Println(line + ")")
	}
}

// lookup prefers the live Shopify catalog and falls back to the local mirror
func lookup(ctx context.Context, cfg *config.Config, logger *zap.Logger, sku string) (*domain.CatalogEntry, string, error) {
	if cfg.Shopify.Enabled() {
		client := shopify.NewClient(cfg.Shopify, logger)
		entry, err := client.GetBySKU(ctx, sku)
		if err == nil {
			return entry, "Shopify", nil
		}
		logger.Warn("Shopify lookup failed, trying local catalog", zap.Error(err))
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	entry, err := repos.Catalog.GetBySKU(ctx, sku)
	if err != nil {
		return nil, "", err
	}
	return entry, "local catalog", nil
}
