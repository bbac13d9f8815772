package periods

import (
	"context"
	"time"

	"kardex/internal/core/id"
)

// Repository defines persistence for accounting periods.
type Repository interface {
	// Create inserts a new period
	Create(ctx context.Context, period *Period) error

	// GetByID retrieves a period by ID
	GetByID(ctx context.Context, periodID id.ID) (*Period, error)

	// GetByCode retrieves a period by company and code
	GetByCode(ctx context.Context, companyID id.ID, code string) (*Period, error)

	// GetByDate retrieves the period containing the given date
	GetByDate(ctx context.Context, companyID id.ID, date time.Time) (*Period, error)

	// Update modifies a period (with optimistic locking)
	Update(ctx context.Context, period *Period) error

	// List returns all periods for a company ordered by start date
	List(ctx context.Context, companyID id.ID) ([]*Period, error)

	// CountUnpostedDocuments returns how many completed-but-unposted
	// documents reference the period. Used by the closing guard.
	CountUnpostedDocuments(ctx context.Context, periodID id.ID) (int64, error)
}
