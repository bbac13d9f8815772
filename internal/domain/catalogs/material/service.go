package material

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/numerator"
	"kardex/internal/core/tx"
	"kardex/internal/domain"
)

// Service provides business logic for the Material catalog.
type Service struct {
	*domain.CatalogService[*Material]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Material service.
func NewService(
	repo Repository,
	gen numerator.Generator,
	txManager tx.Manager,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Material]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "material",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate generates the code and enforces SKU uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, m *Material) error {
	if m.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("MAT"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		m.Code = code
	}

	if m.SKU != nil && *m.SKU != "" {
		existing, err := s.repo.GetBySKU(ctx, *m.SKU)
		if err != nil && !apperror.IsNotFound(err) {
			return fmt.Errorf("check sku: %w", err)
		}
		if existing != nil && existing.ID != m.ID {
			return apperror.NewDuplicate("material", "sku", *m.SKU)
		}
	}

	return nil
}

// GetBySKU retrieves a material by SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*Material, error) {
	m, err := s.repo.GetBySKU(ctx, sku)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("material", sku)
		}
		return nil, err
	}
	return m, nil
}

// GetByBarcode retrieves a material by barcode.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*Material, error) {
	m, err := s.repo.GetByBarcode(ctx, barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("material", barcode)
		}
		return nil, err
	}
	return m, nil
}
