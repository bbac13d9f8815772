// Package production provides the stage backflush coordinator: completing
// a production stage consumes component stock per the stage BOM and stocks
// the output at the consumed value.
package production

import (
	"context"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/pkg/logger"

	"github.com/shopspring/decimal"
)

// BOMLine is one component requirement of a production stage.
// BOM explosion happens upstream; the coordinator receives resolved lines.
type BOMLine struct {
	Component   entity.ItemRef `json:"component"`
	WarehouseID id.ID          `json:"warehouseId"`
	BinID       id.ID          `json:"binId"`

	// QtyPer is the component quantity consumed per unit of output.
	QtyPer types.Quantity `json:"qtyPer"`

	// ScrapPercent inflates the requirement: need = qty × qtyPer × (1 + scrap/100).
	ScrapPercent types.Money `json:"scrapPercent"`
}

// Need returns the component requirement for the completed quantity.
func (l BOMLine) Need(completedQty types.Quantity) types.Quantity {
	factor := decimal.New(1, 0).Add(l.ScrapPercent.Div(decimal.New(100, 0)))
	need := completedQty.Decimal().Mul(l.QtyPer.Decimal()).Mul(factor)
	return types.NewQuantityFromDecimal(need)
}

// StageCompletion describes one completed production stage.
type StageCompletion struct {
	Stage int       `json:"stage"`
	Date  time.Time `json:"date"`

	// Output is where the produced units land: WIP for intermediate
	// stages, a finished-goods variant for the final stage.
	Output            entity.ItemRef `json:"output"`
	OutputWarehouseID id.ID          `json:"outputWarehouseId"`
	OutputBinID       id.ID          `json:"outputBinId"`

	// CompletedQty passes on; RejectedQty is scrapped and never stocked.
	CompletedQty types.Quantity `json:"completedQty"`
	RejectedQty  types.Quantity `json:"rejectedQty"`

	Components []BOMLine `json:"components"`

	ReferenceNumber string `json:"referenceNumber"`
}

// Validate checks completion invariants.
func (sc *StageCompletion) Validate() error {
	if sc.Stage <= 0 {
		return apperror.NewValidation("stage must be positive").
			WithDetail("stage", sc.Stage)
	}
	if !sc.CompletedQty.IsPositive() {
		return apperror.NewValidation("completed quantity must be positive").
			WithDetail("completedQty", sc.CompletedQty.String())
	}
	if sc.RejectedQty.IsNegative() {
		return apperror.NewValidation("rejected quantity must not be negative").
			WithDetail("rejectedQty", sc.RejectedQty.String())
	}
	if err := sc.Output.Validate(); err != nil {
		return err
	}
	if id.IsNil(sc.OutputWarehouseID) {
		return apperror.NewValidation("output warehouse is required").
			WithDetail("field", "outputWarehouseId")
	}
	if len(sc.Components) == 0 {
		return apperror.NewValidation("stage has no BOM components")
	}
	for i, line := range sc.Components {
		if err := line.Component.Validate(); err != nil {
			return err
		}
		if !line.QtyPer.IsPositive() {
			return apperror.NewValidation("component qtyPer must be positive").
				WithDetail("component", i)
		}
		if line.ScrapPercent.IsNegative() {
			return apperror.NewValidation("scrap percent must not be negative").
				WithDetail("component", i)
		}
	}
	return nil
}

// StageResult is the outcome of a completed stage.
type StageResult struct {
	Issues        []entity.LedgerEntry `json:"issues"`
	Output        entity.LedgerEntry   `json:"output"`
	ConsumedValue types.Money          `json:"consumedValue"`
	OutputCost    types.Money          `json:"outputCost"`
}

// ComponentShortage describes one short component in a failed backflush.
type ComponentShortage struct {
	Component entity.ItemRef `json:"component"`
	Required  types.Quantity `json:"required"`
	Available types.Quantity `json:"available"`
}

// Coordinator completes production stages with backflush consumption.
type Coordinator struct {
	repo      ledger.Repository
	poster    *ledger.Poster
	txManager tx.Manager
}

// NewCoordinator creates a backflush coordinator.
func NewCoordinator(repo ledger.Repository, poster *ledger.Poster, txManager tx.Manager) *Coordinator {
	return &Coordinator{
		repo:      repo,
		poster:    poster,
		txManager: txManager,
	}
}

// CompleteStage consumes component stock per the BOM and stocks the
// completed output at the consumed value per unit. All issues and the
// output receipt commit in one transaction; a shortage on any component
// aborts the whole completion, reporting every short component at once.
// Rejected quantity is scrapped: component cost for it is consumed, but
// no rejected unit is ever stocked.
func (c *Coordinator) CompleteStage(ctx context.Context, companyID id.ID, sc StageCompletion) (*StageResult, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	var result *StageResult

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Lock every component balance up front so the shortage report
		// covers the full BOM, not just the first failing line.
		var shortages []ComponentShortage
		needs := make([]types.Quantity, len(sc.Components))
		for i, line := range sc.Components {
			needs[i] = line.Need(sc.CompletedQty)

			bal, err := c.repo.GetBalanceForUpdate(ctx, ledger.BalanceKey{
				CompanyID:   companyID,
				Item:        line.Component,
				WarehouseID: line.WarehouseID,
				BinID:       line.BinID,
			})
			if err != nil {
				return err
			}
			if bal.CurrentQty < needs[i] {
				shortages = append(shortages, ComponentShortage{
					Component: line.Component,
					Required:  needs[i],
					Available: bal.CurrentQty,
				})
			}
		}
		if len(shortages) > 0 {
			return apperror.NewBackflushShortage(sc.Stage).
				WithDetail("shortages", shortages)
		}

		// Issue all components at their live weighted-average cost.
		issueReqs := make([]ledger.EntryRequest, len(sc.Components))
		for i, line := range sc.Components {
			issueReqs[i] = ledger.EntryRequest{
				Item:            line.Component,
				WarehouseID:     line.WarehouseID,
				BinID:           line.BinID,
				Date:            sc.Date,
				Type:            entity.EntryProductionOut,
				Qty:             needs[i],
				ReferenceType:   entity.RefProduction,
				ReferenceNumber: sc.ReferenceNumber,
			}
		}
		issues, err := c.poster.PostSet(ctx, companyID, issueReqs)
		if err != nil {
			return err
		}

		// Output unit cost = consumed value / completed quantity. The
		// rejected units' share of cost stays in the completed units.
		consumed := decimal.Zero
		for i := range issues {
			consumed = consumed.Add(issues[i].Qty().Decimal().Mul(issues[i].UnitCost))
		}
		outputCost := types.RoundCost(consumed.DivRound(sc.CompletedQty.Decimal(), types.CostScale))

		outputs, err := c.poster.PostSet(ctx, companyID, []ledger.EntryRequest{{
			Item:            sc.Output,
			WarehouseID:     sc.OutputWarehouseID,
			BinID:           sc.OutputBinID,
			Date:            sc.Date,
			Type:            entity.EntryProductionIn,
			Qty:             sc.CompletedQty,
			UnitCost:        outputCost,
			ReferenceType:   entity.RefProduction,
			ReferenceNumber: sc.ReferenceNumber,
		}})
		if err != nil {
			return err
		}

		result = &StageResult{
			Issues:        issues,
			Output:        outputs[0],
			ConsumedValue: types.RoundCost(consumed),
			OutputCost:    outputCost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "production stage completed",
		"stage", sc.Stage,
		"output", sc.Output.String(),
		"completed_qty", sc.CompletedQty,
		"rejected_qty", sc.RejectedQty,
		"output_cost", result.OutputCost,
	)
	return result, nil
}
