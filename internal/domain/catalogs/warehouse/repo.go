package warehouse

import (
	"context"

	"kardex/internal/core/id"
	"kardex/internal/domain"
)

// Repository defines the interface for Warehouse persistence.
type Repository interface {
	domain.CatalogRepository[*Warehouse]

	// GetForUpdate retrieves warehouse with row lock (for transactional updates).
	GetForUpdate(ctx context.Context, id id.ID) (*Warehouse, error)

	// ClearDefault clears the default flag on all warehouses of a company.
	ClearDefault(ctx context.Context, companyID id.ID) error
}
