// Package opname provides the stock opname document: a physical stock
// count reconciled against the ledger through adjustment entries.
package opname

import (
	"context"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
)

// Status represents the opname lifecycle state.
// draft → counting → completed (→ posted via the Posted flag);
// cancellation is only possible before completion.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCounting  Status = "counting"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Opname represents a stock count document.
type Opname struct {
	entity.Document

	WarehouseID id.ID  `db:"warehouse_id" json:"warehouseId"`
	Status      Status `db:"status" json:"status"`

	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	// Totals (calculated)
	TotalSystemQty   types.Quantity `db:"total_system_qty" json:"totalSystemQty"`
	TotalPhysicalQty types.Quantity `db:"total_physical_qty" json:"totalPhysicalQty"`
	TotalSurplusQty  types.Quantity `db:"total_surplus_qty" json:"totalSurplusQty"`
	TotalShortageQty types.Quantity `db:"total_shortage_qty" json:"totalShortageQty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line represents one counted item. SystemQty and SystemUnitCost are
// snapshotted from the balance when the line is created; the posting
// values variances at that snapshot, not the live cost.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	Item  entity.ItemRef `db:"-" json:"item"`
	BinID id.ID          `db:"bin_id" json:"binId"`

	SystemQty      types.Quantity `db:"system_qty" json:"systemQty"`
	SystemUnitCost types.Money    `db:"system_unit_cost" json:"systemUnitCost"`

	PhysicalQty *types.Quantity `db:"physical_qty" json:"physicalQty,omitempty"`
	VarianceQty types.Quantity  `db:"variance_qty" json:"varianceQty"`

	ReasonCode string `db:"reason_code" json:"reasonCode,omitempty"`

	Counted   bool       `db:"counted" json:"counted"`
	CountedAt *time.Time `db:"counted_at" json:"countedAt,omitempty"`
	CountedBy *string    `db:"counted_by" json:"countedBy,omitempty"`
}

// New creates a draft opname for a warehouse.
func New(companyID, warehouseID id.ID) *Opname {
	return &Opname{
		Document:    entity.NewDocument(companyID),
		WarehouseID: warehouseID,
		Status:      StatusDraft,
		Lines:       make([]Line, 0),
	}
}

// AddLine snapshots one item into the count sheet.
func (o *Opname) AddLine(item entity.ItemRef, binID id.ID, systemQty types.Quantity, systemUnitCost types.Money) error {
	if o.Status != StatusDraft && o.Status != StatusCounting {
		return apperror.NewBusinessRule("INVALID_STATUS", "Lines can only be added before completion")
	}
	if err := item.Validate(); err != nil {
		return err
	}

	line := Line{
		LineID:         id.New(),
		LineNo:         len(o.Lines) + 1,
		Item:           item,
		BinID:          binID,
		SystemQty:      systemQty,
		SystemUnitCost: types.RoundCost(systemUnitCost),
	}

	o.Lines = append(o.Lines, line)
	o.recalculateTotals()
	return nil
}

// SetPhysicalCount records the counted quantity for a line.
func (o *Opname) SetPhysicalCount(lineNo int, physicalQty types.Quantity, reasonCode, countedBy string) error {
	if o.Status != StatusCounting {
		return apperror.NewBusinessRule("INVALID_STATUS", "Counts can only be recorded in counting status")
	}
	if lineNo < 1 || lineNo > len(o.Lines) {
		return apperror.NewValidation("invalid line number").
			WithDetail("lineNo", lineNo)
	}
	if physicalQty.IsNegative() {
		return apperror.NewValidation("physical quantity must not be negative").
			WithDetail("lineNo", lineNo)
	}

	idx := lineNo - 1
	o.Lines[idx].PhysicalQty = &physicalQty
	o.Lines[idx].VarianceQty = physicalQty - o.Lines[idx].SystemQty
	o.Lines[idx].ReasonCode = reasonCode
	o.Lines[idx].Counted = true
	now := time.Now().UTC()
	o.Lines[idx].CountedAt = &now
	o.Lines[idx].CountedBy = &countedBy

	o.recalculateTotals()
	return nil
}

func (o *Opname) recalculateTotals() {
	o.TotalSystemQty = 0
	o.TotalPhysicalQty = 0
	o.TotalSurplusQty = 0
	o.TotalShortageQty = 0

	for _, line := range o.Lines {
		o.TotalSystemQty += line.SystemQty
		if line.PhysicalQty != nil {
			o.TotalPhysicalQty += *line.PhysicalQty
			if line.VarianceQty > 0 {
				o.TotalSurplusQty += line.VarianceQty
			} else if line.VarianceQty < 0 {
				o.TotalShortageQty += -line.VarianceQty
			}
		}
	}
}

// Validate implements entity.Validatable.
func (o *Opname) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(o.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}

	return nil
}

// StartCounting transitions the opname to counting.
func (o *Opname) StartCounting() error {
	if o.Status != StatusDraft {
		return apperror.NewBusinessRule("INVALID_STATUS", "Can only start counting from draft status")
	}
	if len(o.Lines) == 0 {
		return apperror.NewBusinessRule("EMPTY_SHEET", "Count sheet has no lines")
	}
	o.Status = StatusCounting
	now := time.Now().UTC()
	o.StartedAt = &now
	return nil
}

// Complete freezes the count. Every line must be counted.
func (o *Opname) Complete() error {
	if o.Status != StatusCounting {
		return apperror.NewBusinessRule("INVALID_STATUS", "Can only complete from counting status")
	}

	for i, line := range o.Lines {
		if !line.Counted {
			return apperror.NewBusinessRule(
				"LINE_NOT_COUNTED",
				"All lines must be counted before completing",
			).WithDetail("lineNo", i+1)
		}
	}

	o.Status = StatusCompleted
	now := time.Now().UTC()
	o.CompletedAt = &now
	return nil
}

// Cancel abandons the count. Completed or posted opnames cannot be
// cancelled; their corrections go through a new opname.
func (o *Opname) Cancel() error {
	if o.Status == StatusCompleted || o.Posted {
		return apperror.NewBusinessRule("CANNOT_CANCEL", "Cannot cancel a completed or posted opname")
	}
	o.Status = StatusCancelled
	return nil
}

// CanPost validates if the opname can be posted.
func (o *Opname) CanPost(ctx context.Context) error {
	if err := o.Validate(ctx); err != nil {
		return err
	}

	if o.Status != StatusCompleted {
		return apperror.NewBusinessRule(
			"OPNAME_NOT_COMPLETED",
			"Opname must be completed before posting",
		).WithDetail("status", string(o.Status))
	}

	for i, line := range o.Lines {
		if !line.Counted {
			return apperror.NewBusinessRule(
				"LINE_NOT_COUNTED",
				"All lines must be counted before posting",
			).WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// --- Postable interface implementation ---
// GetID, GetCompanyID, IsPosted, MarkPosted are inherited from entity.Document.

func (o *Opname) GetDocumentType() string { return "Opname" }

// GenerateEntries produces exactly one adjustment per non-zero-variance
// line: surplus becomes ADJUST_IN, shortage becomes ADJUST_OUT, both at
// the line's snapshotted system unit cost. Zero-variance lines post
// nothing.
func (o *Opname) GenerateEntries(ctx context.Context) ([]ledger.EntryRequest, error) {
	reqs := make([]ledger.EntryRequest, 0, len(o.Lines))

	for _, line := range o.Lines {
		if line.VarianceQty == 0 {
			continue
		}

		req := ledger.EntryRequest{
			Item:            line.Item,
			WarehouseID:     o.WarehouseID,
			BinID:           line.BinID,
			Date:            o.Date,
			Qty:             line.VarianceQty.Abs(),
			UnitCost:        line.SystemUnitCost,
			CostFromRequest: true,
			ReferenceType:   entity.RefOpname,
			ReferenceNumber: o.Number,
		}
		if line.VarianceQty > 0 {
			req.Type = entity.EntryAdjustIn
		} else {
			req.Type = entity.EntryAdjustOut
		}

		reqs = append(reqs, req)
	}

	return reqs, nil
}
