package ledger

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/numerator"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/pkg/logger"
)

// TransferRequest describes a stock move between two locations.
type TransferRequest struct {
	Item entity.ItemRef
	Qty  types.Quantity
	Date time.Time

	FromWarehouseID id.ID
	FromBinID       id.ID
	ToWarehouseID   id.ID
	ToBinID         id.ID

	Comment string
}

// TransferResult is the posted pair: both entries share one reference
// number and carry the identical unit cost.
type TransferResult struct {
	Reference string             `json:"reference"`
	OutEntry  entity.LedgerEntry `json:"outEntry"`
	InEntry   entity.LedgerEntry `json:"inEntry"`
}

// TransferCoordinator moves stock between locations as an atomic
// TRANSFER_OUT / TRANSFER_IN pair. The receiving location's weighted
// average folds the transferred units in at the source cost, so a
// transfer never changes total inventory valuation.
type TransferCoordinator struct {
	poster    *Poster
	numerator numerator.Generator
	txManager tx.Manager
}

// NewTransferCoordinator creates a transfer coordinator.
func NewTransferCoordinator(poster *Poster, gen numerator.Generator, txManager tx.Manager) *TransferCoordinator {
	return &TransferCoordinator{
		poster:    poster,
		numerator: gen,
		txManager: txManager,
	}
}

// Transfer posts both legs in one transaction. If either leg fails
// (insufficient stock, closed period) neither is recorded.
func (c *TransferCoordinator) Transfer(ctx context.Context, companyID id.ID, req TransferRequest) (*TransferResult, error) {
	if req.FromWarehouseID == req.ToWarehouseID && req.FromBinID == req.ToBinID {
		return nil, apperror.NewValidation("transfer source and destination are identical").
			WithDetail("warehouseId", req.FromWarehouseID.String())
	}
	if !req.Qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("qty", req.Qty.String())
	}

	var (
		result    *TransferResult
		reference string
	)

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// The reference is drawn inside the transaction so a failed
		// transfer rolls the strict sequence back with the entries.
		var err error
		reference, err = c.numerator.GetNextNumber(ctx,
			numerator.DefaultConfig("TRF"), numerator.DefaultOptions(), req.Date)
		if err != nil {
			return fmt.Errorf("generate transfer reference: %w", err)
		}

		// The out leg locks the source balance and resolves the unit
		// cost; the in leg must carry exactly that cost.
		out, err := c.poster.postOne(ctx, companyID, EntryRequest{
			Item:            req.Item,
			WarehouseID:     req.FromWarehouseID,
			BinID:           req.FromBinID,
			Date:            req.Date,
			Type:            entity.EntryTransferOut,
			Qty:             req.Qty,
			ReferenceType:   entity.RefTransfer,
			ReferenceNumber: reference,
		})
		if err != nil {
			return err
		}

		in, err := c.poster.postOne(ctx, companyID, EntryRequest{
			Item:            req.Item,
			WarehouseID:     req.ToWarehouseID,
			BinID:           req.ToBinID,
			Date:            req.Date,
			Type:            entity.EntryTransferIn,
			Qty:             req.Qty,
			UnitCost:        out.UnitCost,
			ReferenceType:   entity.RefTransfer,
			ReferenceNumber: reference,
		})
		if err != nil {
			return err
		}

		result = &TransferResult{
			Reference: reference,
			OutEntry:  *out,
			InEntry:   *in,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer posted",
		"reference", reference,
		"item", req.Item.String(),
		"qty", req.Qty,
		"from", req.FromWarehouseID,
		"to", req.ToWarehouseID,
	)
	return result, nil
}
