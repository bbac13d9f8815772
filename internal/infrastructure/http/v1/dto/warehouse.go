package dto

import (
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/domain/catalogs/warehouse"
)

// --- Request DTOs ---

// CreateWarehouseRequest is the request body for creating a warehouse.
type CreateWarehouseRequest struct {
	Code        string                  `json:"code"`
	Name        string                  `json:"name" binding:"required"`
	Type        warehouse.WarehouseType `json:"type" binding:"required"`
	Address     *string                 `json:"address"`
	IsActive    *bool                   `json:"isActive"`
	IsDefault   bool                    `json:"isDefault"`
	Description *string                 `json:"description"`
	ParentID    *string                 `json:"parentId"`
	IsFolder    bool                    `json:"isFolder"`
	Attributes  entity.Attributes       `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateWarehouseRequest) ToEntity(companyID id.ID) *warehouse.Warehouse {
	wh := warehouse.NewWarehouse(companyID, r.Code, r.Name, r.Type)
	wh.Address = r.Address
	if r.IsActive != nil {
		wh.IsActive = *r.IsActive
	}
	wh.IsDefault = r.IsDefault
	wh.Description = r.Description
	wh.ParentID = r.ParentID
	wh.IsFolder = r.IsFolder
	wh.Attributes = r.Attributes
	return wh
}

// UpdateWarehouseRequest is the request body for updating a warehouse.
type UpdateWarehouseRequest struct {
	Code        string                  `json:"code"`
	Name        string                  `json:"name" binding:"required"`
	Type        warehouse.WarehouseType `json:"type" binding:"required"`
	Address     *string                 `json:"address,omitempty"`
	IsActive    bool                    `json:"isActive"`
	IsDefault   bool                    `json:"isDefault"`
	Description *string                 `json:"description,omitempty"`
	ParentID    *string                 `json:"parentId,omitempty"`
	IsFolder    bool                    `json:"isFolder"`
	Attributes  entity.Attributes       `json:"attributes"`
	Version     int                     `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity. Bins are managed through
// the dedicated bin endpoint and never overwritten here.
func (r *UpdateWarehouseRequest) ApplyTo(wh *warehouse.Warehouse) {
	wh.Code = r.Code
	wh.Name = r.Name
	wh.Type = r.Type
	wh.Address = r.Address
	wh.IsActive = r.IsActive
	wh.IsDefault = r.IsDefault
	wh.Description = r.Description
	wh.ParentID = r.ParentID
	wh.IsFolder = r.IsFolder
	wh.Attributes = r.Attributes
	wh.Version = r.Version
}

// AddBinRequest is the request body for registering a bin.
type AddBinRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name"`
}

// --- Response DTOs ---

// BinResponse is one bin of a warehouse.
type BinResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// WarehouseResponse is the response body for a warehouse.
type WarehouseResponse struct {
	ID           string                  `json:"id"`
	CompanyID    string                  `json:"companyId"`
	Code         string                  `json:"code"`
	Name         string                  `json:"name"`
	Type         warehouse.WarehouseType `json:"type"`
	Address      *string                 `json:"address,omitempty"`
	IsActive     bool                    `json:"isActive"`
	IsDefault    bool                    `json:"isDefault"`
	Bins         []BinResponse           `json:"bins,omitempty"`
	Description  *string                 `json:"description,omitempty"`
	ParentID     *string                 `json:"parentId,omitempty"`
	IsFolder     bool                    `json:"isFolder"`
	DeletionMark bool                    `json:"deletionMark"`
	Version      int                     `json:"version"`
	Attributes   entity.Attributes       `json:"attributes,omitempty"`
}

// FromWarehouse creates response DTO from domain entity.
func FromWarehouse(wh *warehouse.Warehouse) *WarehouseResponse {
	resp := &WarehouseResponse{
		ID:           wh.ID.String(),
		CompanyID:    wh.CompanyID.String(),
		Code:         wh.Code,
		Name:         wh.Name,
		Type:         wh.Type,
		Address:      wh.Address,
		IsActive:     wh.IsActive,
		IsDefault:    wh.IsDefault,
		Description:  wh.Description,
		ParentID:     wh.ParentID,
		IsFolder:     wh.IsFolder,
		DeletionMark: wh.DeletionMark,
		Version:      wh.Version,
		Attributes:   wh.Attributes,
	}
	for _, b := range wh.Bins {
		resp.Bins = append(resp.Bins, BinResponse{ID: b.ID.String(), Code: b.Code, Name: b.Name})
	}
	return resp
}

// FromBin creates response DTO from a bin.
func FromBin(b warehouse.Bin) BinResponse {
	return BinResponse{ID: b.ID.String(), Code: b.Code, Name: b.Name}
}
