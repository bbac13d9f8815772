package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"kardex/internal/core/apperror"
	"kardex/internal/domain/catalogs/material"
	"kardex/internal/infrastructure/storage/postgres"
)

const materialTable = "cat_materials"

// MaterialRepo implements material.Repository.
type MaterialRepo struct {
	*BaseCatalogRepo[*material.Material]
}

// NewMaterialRepo creates a new material repository.
func NewMaterialRepo(txManager *postgres.TxManager) *MaterialRepo {
	return &MaterialRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*material.Material](
			txManager,
			materialTable,
			postgres.ExtractDBColumns[material.Material](),
			func() *material.Material { return &material.Material{} },
		),
	}
}

// GetBySKU retrieves a material by SKU.
func (r *MaterialRepo) GetBySKU(ctx context.Context, sku string) (*material.Material, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"sku": sku}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	item, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("material", sku)
		}
		return nil, err
	}
	return item, nil
}

// GetByBarcode retrieves a material by barcode.
func (r *MaterialRepo) GetByBarcode(ctx context.Context, barcode string) (*material.Material, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	item, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("material", barcode)
		}
		return nil, err
	}
	return item, nil
}

var _ material.Repository = (*MaterialRepo)(nil)
