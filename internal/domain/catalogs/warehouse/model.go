// Package warehouse provides the Warehouse catalog.
// Warehouses are physical storage locations; bins subdivide a warehouse
// and are the finest granularity the ledgers track.
package warehouse

import (
	"context"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
)

// WarehouseType defines the type of warehouse.
type WarehouseType string

const (
	TypeMain       WarehouseType = "main"
	TypeProduction WarehouseType = "production"
	TypeRetail     WarehouseType = "retail"
	TypeTransit    WarehouseType = "transit"
)

// Bin is a storage location inside a warehouse. Bins are stored as a
// JSONB array on the warehouse row; ledger entries reference bins by ID.
type Bin struct {
	ID   id.ID  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// Warehouse represents a storage location.
type Warehouse struct {
	entity.Catalog

	CompanyID id.ID `db:"company_id" json:"companyId"`

	// Type defines the warehouse category
	Type WarehouseType `db:"type" json:"type"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive indicates if warehouse is operational
	IsActive bool `db:"is_active" json:"isActive"`

	// IsDefault indicates if this is the default warehouse
	IsDefault bool `db:"is_default" json:"isDefault"`

	// Bins subdivide the warehouse
	Bins []Bin `db:"bins" json:"bins,omitempty"`

	Description *string `db:"description" json:"description,omitempty"`
}

// NewWarehouse creates a new Warehouse with required fields.
func NewWarehouse(companyID id.ID, code, name string, whType WarehouseType) *Warehouse {
	return &Warehouse{
		Catalog:   entity.NewCatalog(code, name),
		CompanyID: companyID,
		Type:      whType,
		IsActive:  true,
	}
}

// AddBin registers a new bin in the warehouse.
func (w *Warehouse) AddBin(code, name string) (Bin, error) {
	if code == "" {
		return Bin{}, apperror.NewValidation("bin code is required").
			WithDetail("field", "code")
	}
	for _, b := range w.Bins {
		if b.Code == code {
			return Bin{}, apperror.NewDuplicate("bin", "code", code)
		}
	}

	bin := Bin{ID: id.New(), Code: code, Name: name}
	w.Bins = append(w.Bins, bin)
	return bin, nil
}

// FindBin returns the bin with the given ID.
func (w *Warehouse) FindBin(binID id.ID) (Bin, bool) {
	for _, b := range w.Bins {
		if b.ID == binID {
			return b, true
		}
	}
	return Bin{}, false
}

// Validate implements entity.Validatable interface.
func (w *Warehouse) Validate(ctx context.Context) error {
	if err := w.Catalog.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(w.CompanyID) {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}

	if !isValidWarehouseType(w.Type) {
		return apperror.NewValidation("invalid warehouse type").
			WithDetail("field", "type").
			WithDetail("value", string(w.Type))
	}

	seen := make(map[string]bool, len(w.Bins))
	for _, b := range w.Bins {
		if b.Code == "" {
			return apperror.NewValidation("bin code is required")
		}
		if seen[b.Code] {
			return apperror.NewDuplicate("bin", "code", b.Code)
		}
		seen[b.Code] = true
	}

	return nil
}

// CanAcceptStock returns true if warehouse can accept stock.
func (w *Warehouse) CanAcceptStock() bool {
	return w.IsActive && !w.IsFolder
}

func isValidWarehouseType(t WarehouseType) bool {
	switch t {
	case TypeMain, TypeProduction, TypeRetail, TypeTransit:
		return true
	}
	return false
}
