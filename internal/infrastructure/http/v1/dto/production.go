package dto

import (
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/production"
)

// --- Request DTOs ---

// BOMLineRequest is one resolved component requirement.
type BOMLineRequest struct {
	Component   ItemRefRequest `json:"component" binding:"required"`
	WarehouseID string         `json:"warehouseId" binding:"required"`
	BinID       string         `json:"binId"`

	QtyPer       types.Quantity `json:"qtyPer" binding:"required"`
	ScrapPercent *string        `json:"scrapPercent"`
}

// CompleteStageRequest is the request body for completing a production stage.
type CompleteStageRequest struct {
	Stage int        `json:"stage" binding:"required"`
	Date  *time.Time `json:"date"`

	Output            ItemRefRequest `json:"output" binding:"required"`
	OutputWarehouseID string         `json:"outputWarehouseId" binding:"required"`
	OutputBinID       string         `json:"outputBinId"`

	CompletedQty types.Quantity `json:"completedQty" binding:"required"`
	RejectedQty  types.Quantity `json:"rejectedQty"`

	Components []BOMLineRequest `json:"components" binding:"required"`

	ReferenceNumber string `json:"referenceNumber"`
}

// ToStageCompletion converts the request to a production.StageCompletion.
func (r *CompleteStageRequest) ToStageCompletion() (production.StageCompletion, error) {
	output, err := r.Output.ToRef()
	if err != nil {
		return production.StageCompletion{}, err
	}

	outputWarehouseID, err := id.Parse(r.OutputWarehouseID)
	if err != nil {
		return production.StageCompletion{}, apperror.NewValidation("invalid output warehouse id").
			WithDetail("field", "outputWarehouseId")
	}

	sc := production.StageCompletion{
		Stage:             r.Stage,
		Date:              time.Now().UTC(),
		Output:            output,
		OutputWarehouseID: outputWarehouseID,
		CompletedQty:      r.CompletedQty,
		RejectedQty:       r.RejectedQty,
		ReferenceNumber:   r.ReferenceNumber,
	}
	if r.Date != nil {
		sc.Date = *r.Date
	}
	if r.OutputBinID != "" {
		if sc.OutputBinID, err = id.Parse(r.OutputBinID); err != nil {
			return production.StageCompletion{}, apperror.NewValidation("invalid output bin id").
				WithDetail("field", "outputBinId")
		}
	}

	sc.Components = make([]production.BOMLine, len(r.Components))
	for i, line := range r.Components {
		component, err := line.Component.ToRef()
		if err != nil {
			return production.StageCompletion{}, err
		}

		warehouseID, err := id.Parse(line.WarehouseID)
		if err != nil {
			return production.StageCompletion{}, apperror.NewValidation("invalid component warehouse id").
				WithDetail("component", i)
		}

		bom := production.BOMLine{
			Component:    component,
			WarehouseID:  warehouseID,
			QtyPer:       line.QtyPer,
			ScrapPercent: types.Zero(),
		}
		if line.BinID != "" {
			if bom.BinID, err = id.Parse(line.BinID); err != nil {
				return production.StageCompletion{}, apperror.NewValidation("invalid component bin id").
					WithDetail("component", i)
			}
		}
		if line.ScrapPercent != nil {
			scrap, err := types.NewMoneyFromString(*line.ScrapPercent)
			if err != nil {
				return production.StageCompletion{}, apperror.NewValidation("invalid scrap percent").
					WithDetail("component", i)
			}
			bom.ScrapPercent = scrap
		}
		sc.Components[i] = bom
	}

	return sc, nil
}

// --- Response DTOs ---

// StageResultResponse is the outcome of a completed stage.
type StageResultResponse struct {
	Issues        []LedgerEntryResponse `json:"issues"`
	Output        LedgerEntryResponse   `json:"output"`
	ConsumedValue string                `json:"consumedValue"`
	OutputCost    string                `json:"outputCost"`
}

// FromStageResult creates response DTO from a stage result.
func FromStageResult(res *production.StageResult) StageResultResponse {
	resp := StageResultResponse{
		Issues:        make([]LedgerEntryResponse, len(res.Issues)),
		Output:        FromLedgerEntry(res.Output),
		ConsumedValue: res.ConsumedValue.String(),
		OutputCost:    res.OutputCost.String(),
	}
	for i, e := range res.Issues {
		resp.Issues[i] = FromLedgerEntry(e)
	}
	return resp
}
