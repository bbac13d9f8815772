package material

import (
	"context"

	"kardex/internal/domain"
)

// Repository defines the interface for Material persistence.
type Repository interface {
	domain.CatalogRepository[*Material]

	// GetBySKU retrieves a material by SKU.
	GetBySKU(ctx context.Context, sku string) (*Material, error)

	// GetByBarcode retrieves a material by barcode.
	GetByBarcode(ctx context.Context, barcode string) (*Material, error)
}
