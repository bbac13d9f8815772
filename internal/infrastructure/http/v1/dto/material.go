package dto

import (
	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/catalogs/material"
)

// --- Request DTOs ---

// CreateMaterialRequest is the request body for creating a material.
type CreateMaterialRequest struct {
	Code            string                `json:"code"`
	Name            string                `json:"name" binding:"required"`
	Kind            material.MaterialKind `json:"kind" binding:"required"`
	SKU             *string               `json:"sku"`
	Barcode         *string               `json:"barcode"`
	UoM             string                `json:"uom"`
	DefaultUnitCost *string               `json:"defaultUnitCost"`
	TrackBatch      bool                  `json:"trackBatch"`
	Description     *string               `json:"description"`
	ParentID        *string               `json:"parentId"`
	IsFolder        bool                  `json:"isFolder"`
	Attributes      entity.Attributes     `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateMaterialRequest) ToEntity(companyID id.ID) (*material.Material, error) {
	m := material.NewMaterial(companyID, r.Code, r.Name, r.Kind)
	m.SKU = r.SKU
	m.Barcode = r.Barcode
	if r.UoM != "" {
		m.UoM = r.UoM
	}
	if r.DefaultUnitCost != nil {
		cost, err := types.NewMoneyFromString(*r.DefaultUnitCost)
		if err != nil {
			return nil, apperror.NewValidation("invalid default unit cost").
				WithDetail("field", "defaultUnitCost")
		}
		m.DefaultUnitCost = cost
	}
	m.TrackBatch = r.TrackBatch
	m.Description = r.Description
	m.ParentID = r.ParentID
	m.IsFolder = r.IsFolder
	m.Attributes = r.Attributes
	return m, nil
}

// UpdateMaterialRequest is the request body for updating a material.
type UpdateMaterialRequest struct {
	Code            string                `json:"code"`
	Name            string                `json:"name" binding:"required"`
	Kind            material.MaterialKind `json:"kind" binding:"required"`
	SKU             *string               `json:"sku,omitempty"`
	Barcode         *string               `json:"barcode,omitempty"`
	UoM             string                `json:"uom" binding:"required"`
	DefaultUnitCost *string               `json:"defaultUnitCost"`
	IsActive        bool                  `json:"isActive"`
	TrackBatch      bool                  `json:"trackBatch"`
	Description     *string               `json:"description,omitempty"`
	ParentID        *string               `json:"parentId,omitempty"`
	IsFolder        bool                  `json:"isFolder"`
	Attributes      entity.Attributes     `json:"attributes"`
	Version         int                   `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateMaterialRequest) ApplyTo(m *material.Material) error {
	m.Code = r.Code
	m.Name = r.Name
	m.Kind = r.Kind
	m.SKU = r.SKU
	m.Barcode = r.Barcode
	m.UoM = r.UoM
	if r.DefaultUnitCost != nil {
		cost, err := types.NewMoneyFromString(*r.DefaultUnitCost)
		if err != nil {
			return apperror.NewValidation("invalid default unit cost").
				WithDetail("field", "defaultUnitCost")
		}
		m.DefaultUnitCost = cost
	}
	m.IsActive = r.IsActive
	m.TrackBatch = r.TrackBatch
	m.Description = r.Description
	m.ParentID = r.ParentID
	m.IsFolder = r.IsFolder
	m.Attributes = r.Attributes
	m.Version = r.Version
	return nil
}

// --- Response DTOs ---

// MaterialResponse is the response body for a material.
type MaterialResponse struct {
	ID              string                `json:"id"`
	CompanyID       string                `json:"companyId"`
	Code            string                `json:"code"`
	Name            string                `json:"name"`
	Kind            material.MaterialKind `json:"kind"`
	SKU             *string               `json:"sku,omitempty"`
	Barcode         *string               `json:"barcode,omitempty"`
	UoM             string                `json:"uom"`
	DefaultUnitCost string                `json:"defaultUnitCost"`
	IsActive        bool                  `json:"isActive"`
	TrackBatch      bool                  `json:"trackBatch"`
	Description     *string               `json:"description,omitempty"`
	ParentID        *string               `json:"parentId,omitempty"`
	IsFolder        bool                  `json:"isFolder"`
	DeletionMark    bool                  `json:"deletionMark"`
	Version         int                   `json:"version"`
	Attributes      entity.Attributes     `json:"attributes,omitempty"`
}

// FromMaterial creates response DTO from domain entity.
func FromMaterial(m *material.Material) *MaterialResponse {
	return &MaterialResponse{
		ID:              m.ID.String(),
		CompanyID:       m.CompanyID.String(),
		Code:            m.Code,
		Name:            m.Name,
		Kind:            m.Kind,
		SKU:             m.SKU,
		Barcode:         m.Barcode,
		UoM:             m.UoM,
		DefaultUnitCost: m.DefaultUnitCost.String(),
		IsActive:        m.IsActive,
		TrackBatch:      m.TrackBatch,
		Description:     m.Description,
		ParentID:        m.ParentID,
		IsFolder:        m.IsFolder,
		DeletionMark:    m.DeletionMark,
		Version:         m.Version,
		Attributes:      m.Attributes,
	}
}
