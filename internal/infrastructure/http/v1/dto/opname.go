package dto

import (
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/documents/opname"
)

// --- Request DTOs ---

// CreateOpnameRequest is the request body for creating a stock count.
type CreateOpnameRequest struct {
	WarehouseID string     `json:"warehouseId" binding:"required"`
	Date        *time.Time `json:"date"`
	Comment     string     `json:"comment"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateOpnameRequest) ToEntity(companyID id.ID) (*opname.Opname, error) {
	warehouseID, err := id.Parse(r.WarehouseID)
	if err != nil {
		return nil, apperror.NewValidation("invalid warehouse id format").
			WithDetail("field", "warehouseId")
	}

	doc := opname.New(companyID, warehouseID)
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.Comment = r.Comment
	return doc, nil
}

// UpdateOpnameRequest is the request body for updating a draft stock count.
type UpdateOpnameRequest struct {
	Date    *time.Time `json:"date"`
	Comment *string    `json:"comment"`
	Version int        `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateOpnameRequest) ApplyTo(doc *opname.Opname) {
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}
	doc.Version = r.Version
}

// AddOpnameLineRequest is the request body for adding one count line.
type AddOpnameLineRequest struct {
	Item  ItemRefRequest `json:"item" binding:"required"`
	BinID string         `json:"binId"`
}

// ToLineInput converts the request to an opname.LineInput.
func (r *AddOpnameLineRequest) ToLineInput() (opname.LineInput, error) {
	item, err := r.Item.ToRef()
	if err != nil {
		return opname.LineInput{}, err
	}

	input := opname.LineInput{Item: item}
	if r.BinID != "" {
		binID, err := id.Parse(r.BinID)
		if err != nil {
			return opname.LineInput{}, apperror.NewValidation("invalid bin id format").
				WithDetail("field", "binId")
		}
		input.BinID = binID
	}
	return input, nil
}

// CountLineRequest is the request body for recording a physical count.
type CountLineRequest struct {
	PhysicalQty types.Quantity `json:"physicalQty"`
	ReasonCode  string         `json:"reasonCode"`
}

// --- Response DTOs ---

// OpnameLineResponse is one count sheet line.
type OpnameLineResponse struct {
	LineID         string          `json:"lineId"`
	LineNo         int             `json:"lineNo"`
	Item           ItemRefResponse `json:"item"`
	BinID          string          `json:"binId,omitempty"`
	SystemQty      types.Quantity  `json:"systemQty"`
	SystemUnitCost string          `json:"systemUnitCost"`
	PhysicalQty    *types.Quantity `json:"physicalQty,omitempty"`
	VarianceQty    types.Quantity  `json:"varianceQty"`
	ReasonCode     string          `json:"reasonCode,omitempty"`
	Counted        bool            `json:"counted"`
	CountedAt      *time.Time      `json:"countedAt,omitempty"`
	CountedBy      *string         `json:"countedBy,omitempty"`
}

// FromOpnameLine creates response DTO from a line.
func FromOpnameLine(l opname.Line) OpnameLineResponse {
	resp := OpnameLineResponse{
		LineID:         l.LineID.String(),
		LineNo:         l.LineNo,
		Item:           FromItemRef(l.Item),
		SystemQty:      l.SystemQty,
		SystemUnitCost: l.SystemUnitCost.String(),
		PhysicalQty:    l.PhysicalQty,
		VarianceQty:    l.VarianceQty,
		ReasonCode:     l.ReasonCode,
		Counted:        l.Counted,
		CountedAt:      l.CountedAt,
		CountedBy:      l.CountedBy,
	}
	if !id.IsNil(l.BinID) {
		resp.BinID = l.BinID.String()
	}
	return resp
}

// OpnameResponse is the response body for a stock count document.
type OpnameResponse struct {
	DocumentResponse
	WarehouseID      string               `json:"warehouseId"`
	Status           string               `json:"status"`
	StartedAt        *time.Time           `json:"startedAt,omitempty"`
	CompletedAt      *time.Time           `json:"completedAt,omitempty"`
	TotalSystemQty   types.Quantity       `json:"totalSystemQty"`
	TotalPhysicalQty types.Quantity       `json:"totalPhysicalQty"`
	TotalSurplusQty  types.Quantity       `json:"totalSurplusQty"`
	TotalShortageQty types.Quantity       `json:"totalShortageQty"`
	Lines            []OpnameLineResponse `json:"lines"`
}

// FromOpname creates response DTO from domain entity.
func FromOpname(doc *opname.Opname) *OpnameResponse {
	resp := &OpnameResponse{
		DocumentResponse: FromDocument(doc.Document),
		WarehouseID:      doc.WarehouseID.String(),
		Status:           string(doc.Status),
		StartedAt:        doc.StartedAt,
		CompletedAt:      doc.CompletedAt,
		TotalSystemQty:   doc.TotalSystemQty,
		TotalPhysicalQty: doc.TotalPhysicalQty,
		TotalSurplusQty:  doc.TotalSurplusQty,
		TotalShortageQty: doc.TotalShortageQty,
		Lines:            make([]OpnameLineResponse, len(doc.Lines)),
	}
	for i, l := range doc.Lines {
		resp.Lines[i] = FromOpnameLine(l)
	}
	return resp
}

// ComparisonItemResponse is one line of the system-vs-physical comparison.
type ComparisonItemResponse struct {
	LineNo         int             `json:"lineNo"`
	Item           ItemRefResponse `json:"item"`
	BinID          string          `json:"binId,omitempty"`
	SystemQty      types.Quantity  `json:"systemQty"`
	SystemUnitCost string          `json:"systemUnitCost"`
	PhysicalQty    types.Quantity  `json:"physicalQty"`
	VarianceQty    types.Quantity  `json:"varianceQty"`
	VarianceValue  string          `json:"varianceValue"`
	ReasonCode     string          `json:"reasonCode,omitempty"`
	Counted        bool            `json:"counted"`
}

// ComparisonResponse is the system-vs-physical comparison report.
type ComparisonResponse struct {
	OpnameID         string                   `json:"opnameId"`
	WarehouseID      string                   `json:"warehouseId"`
	Status           string                   `json:"status"`
	Posted           bool                     `json:"posted"`
	Items            []ComparisonItemResponse `json:"items"`
	TotalSystemQty   types.Quantity           `json:"totalSystemQty"`
	TotalPhysicalQty types.Quantity           `json:"totalPhysicalQty"`
	TotalSurplusQty  types.Quantity           `json:"totalSurplusQty"`
	TotalShortageQty types.Quantity           `json:"totalShortageQty"`
}

// FromComparison creates response DTO from a comparison result.
func FromComparison(res *opname.ComparisonResult) ComparisonResponse {
	resp := ComparisonResponse{
		OpnameID:         res.OpnameID.String(),
		WarehouseID:      res.WarehouseID.String(),
		Status:           string(res.Status),
		Posted:           res.Posted,
		Items:            make([]ComparisonItemResponse, len(res.Items)),
		TotalSystemQty:   res.TotalSystemQty,
		TotalPhysicalQty: res.TotalPhysicalQty,
		TotalSurplusQty:  res.TotalSurplusQty,
		TotalShortageQty: res.TotalShortageQty,
	}
	for i, item := range res.Items {
		resp.Items[i] = ComparisonItemResponse{
			LineNo:         item.LineNo,
			Item:           FromItemRef(item.Item),
			SystemQty:      item.SystemQty,
			SystemUnitCost: item.SystemUnitCost.String(),
			PhysicalQty:    item.PhysicalQty,
			VarianceQty:    item.VarianceQty,
			VarianceValue:  item.VarianceValue.String(),
			ReasonCode:     item.ReasonCode,
			Counted:        item.Counted,
		}
		if !id.IsNil(item.BinID) {
			resp.Items[i].BinID = item.BinID.String()
		}
	}
	return resp
}
