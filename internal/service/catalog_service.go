package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// CatalogService reads variants from the storefront when one is configured and mirrors
// every successful read into the local catalog table. When the storefront is unreachable
// the last mirrored entry is served instead.
type CatalogService struct {
	storefront CatalogLookup
	repos      *repository.Repositories
	logger     *zap.Logger
}

// NewCatalogService creates a catalog service. storefront may be nil, in which case
// only the local catalog table is used.
func NewCatalogService(storefront CatalogLookup, repos *repository.Repositories, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		storefront: storefront,
		repos:      repos,
		logger:     logger,
	}
}

func (s *CatalogService) GetVariant(ctx context.Context, productID, variantID string) (*domain.CatalogEntry, error) {
	if s.storefront == nil {
		return s.repos.Catalog.GetVariant(ctx, productID, variantID)
	}

	entry, err := s.storefront.GetVariant(ctx, productID, variantID)
	if err == nil {
		if err := s.repos.Catalog.Upsert(ctx, entry); err != nil {
			s.logger.Warn("Failed to mirror catalog entry", zap.Error(err), zap.String("sku", entry.SKU))
		}
		return entry, nil
	}
	if errors.IsNotFound(err) {
		return nil, err
	}

	s.logger.Warn("Storefront lookup failed, using local catalog",
		zap.Error(err),
		zap.String("variant_id", variantID),
	)
	local, localErr := s.repos.Catalog.GetVariant(ctx, productID, variantID)
	if localErr != nil {
		return nil, err
	}
	return local, nil
}
