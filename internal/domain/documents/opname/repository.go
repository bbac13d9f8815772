package opname

import (
	"context"
	"time"

	"kardex/internal/core/id"
	"kardex/internal/domain"
)

// Repository defines persistence for opname documents.
type Repository interface {
	Create(ctx context.Context, doc *Opname) error
	GetByID(ctx context.Context, docID id.ID) (*Opname, error)
	Update(ctx context.Context, doc *Opname) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Opname], error)
	GetForUpdate(ctx context.Context, docID id.ID) (*Opname, error)
}

// ListFilter for filtering opnames.
type ListFilter struct {
	domain.ListFilter

	CompanyID   *id.ID
	WarehouseID *id.ID
	Status      *Status
	Posted      *bool
	DateFrom    *time.Time
	DateTo      *time.Time
}
