// Package material provides the Material catalog: raw materials consumed
// by production, finished-goods variants, and non-stocked service items.
package material

import (
	"context"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// MaterialKind defines the item category.
type MaterialKind string

const (
	KindRaw      MaterialKind = "raw"      // raw material, tracked in the raw ledger
	KindFinished MaterialKind = "finished" // finished-goods variant
	KindService  MaterialKind = "service"  // never stocked
)

// Material represents a catalog item.
type Material struct {
	entity.Catalog

	CompanyID id.ID `db:"company_id" json:"companyId"`

	// Kind defines item category and ledger class
	Kind MaterialKind `db:"kind" json:"kind"`

	// SKU is the stock-keeping unit code
	SKU *string `db:"sku" json:"sku,omitempty"`

	// Barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// UoM is the base unit of measure (pcs, kg, m)
	UoM string `db:"uom" json:"uom"`

	// DefaultUnitCost seeds receipts when no cost is supplied
	DefaultUnitCost types.Money `db:"default_unit_cost" json:"defaultUnitCost"`

	// IsActive indicates the item can appear on new documents
	IsActive bool `db:"is_active" json:"isActive"`

	// TrackBatch indicates batch/lot tracking
	TrackBatch bool `db:"track_batch" json:"trackBatch"`

	Description *string `db:"description" json:"description,omitempty"`
}

// NewMaterial creates a new Material with required fields.
func NewMaterial(companyID id.ID, code, name string, kind MaterialKind) *Material {
	return &Material{
		Catalog:         entity.NewCatalog(code, name),
		CompanyID:       companyID,
		Kind:            kind,
		UoM:             "pcs",
		DefaultUnitCost: types.Zero(),
		IsActive:        true,
	}
}

// Validate implements entity.Validatable interface.
func (m *Material) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(m.CompanyID) {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}

	if !isValidKind(m.Kind) {
		return apperror.NewValidation("invalid material kind").
			WithDetail("field", "kind").
			WithDetail("value", string(m.Kind))
	}

	if m.UoM == "" {
		return apperror.NewValidation("unit of measure is required").
			WithDetail("field", "uom")
	}

	if m.DefaultUnitCost.IsNegative() {
		return apperror.NewValidation("default unit cost cannot be negative").
			WithDetail("field", "defaultUnitCost")
	}

	// Services are never stocked.
	if m.Kind == KindService && m.TrackBatch {
		return apperror.NewValidation("service items cannot be batch-tracked").
			WithDetail("field", "trackBatch")
	}

	return nil
}

// IsStocked returns true if the item lives in an inventory ledger.
func (m *Material) IsStocked() bool {
	return m.Kind != KindService && !m.IsFolder
}

// Ref returns the ledger item reference for this material.
func (m *Material) Ref() entity.ItemRef {
	if m.Kind == KindFinished {
		return entity.VariantRef(m.ID)
	}
	return entity.MaterialRef(m.ID)
}

func isValidKind(k MaterialKind) bool {
	switch k {
	case KindRaw, KindFinished, KindService:
		return true
	}
	return false
}
