package warehouse

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/id"
	"kardex/internal/core/numerator"
	"kardex/internal/core/tx"
	"kardex/internal/domain"
)

// Service provides business logic for the Warehouse catalog.
// Composes the generic CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Warehouse]
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
}

// NewService creates a new Warehouse service.
func NewService(
	repo Repository,
	gen numerator.Generator,
	txManager tx.Manager,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Warehouse]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "warehouse",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
		txManager:      txManager,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate handles code generation and the default flag.
func (s *Service) prepareForCreate(ctx context.Context, wh *Warehouse) error {
	if wh.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("WH"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		wh.Code = code
	}

	if wh.IsDefault {
		if err := s.repo.ClearDefault(ctx, wh.CompanyID); err != nil {
			return err
		}
	}

	return nil
}

// prepareForUpdate handles the default flag.
func (s *Service) prepareForUpdate(ctx context.Context, wh *Warehouse) error {
	if wh.IsDefault {
		if err := s.repo.ClearDefault(ctx, wh.CompanyID); err != nil {
			return err
		}
	}

	return nil
}

// AddBin adds a bin to the warehouse under the row lock.
func (s *Service) AddBin(ctx context.Context, warehouseID id.ID, code, name string) (Bin, error) {
	var bin Bin

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		wh, err := s.repo.GetForUpdate(ctx, warehouseID)
		if err != nil {
			return err
		}

		bin, err = wh.AddBin(code, name)
		if err != nil {
			return err
		}

		return s.repo.Update(ctx, wh)
	})
	if err != nil {
		return Bin{}, err
	}

	return bin, nil
}
