package ledger

import (
	"context"
	"fmt"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/pkg/logger"
)

// Projector serves balance reads and rebuilds the projection from the
// entry log. The log is the source of truth; the projection is a cache
// the poster keeps transactionally in step, so reads here are
// synchronously consistent with committed postings.
type Projector struct {
	repo      Repository
	txManager tx.Manager
}

// NewProjector creates a balance projector.
func NewProjector(repo Repository, txManager tx.Manager) *Projector {
	return &Projector{
		repo:      repo,
		txManager: txManager,
	}
}

// GetBalance returns the balance for a key. Unknown keys return a
// zero-quantity, zero-cost balance rather than an error.
func (p *Projector) GetBalance(ctx context.Context, key BalanceKey) (entity.Balance, error) {
	return p.repo.GetBalance(ctx, key)
}

// GetWarehouseBalances returns balances for a warehouse.
func (p *Projector) GetWarehouseBalances(ctx context.Context, companyID, warehouseID id.ID, filter BalanceFilter) ([]entity.Balance, error) {
	return p.repo.GetBalancesByWarehouse(ctx, companyID, warehouseID, filter)
}

// GetItemBalances returns per-location balances for one item.
func (p *Projector) GetItemBalances(ctx context.Context, companyID id.ID, item entity.ItemRef) ([]entity.Balance, error) {
	return p.repo.GetBalancesByItem(ctx, companyID, item)
}

// GetItemAvailability returns total quantity for an item across warehouses.
func (p *Projector) GetItemAvailability(ctx context.Context, companyID id.ID, item entity.ItemRef) (entity.Balance, error) {
	balances, err := p.repo.GetBalancesByItem(ctx, companyID, item)
	if err != nil {
		return entity.Balance{}, fmt.Errorf("get balances: %w", err)
	}

	total := entity.Balance{CompanyID: companyID, ItemRef: item}
	for _, b := range balances {
		total.CurrentQty += b.CurrentQty
	}
	return total, nil
}

// Rebuild recomputes one balance from its ordered entry log and replaces
// the projection row. The fold is the same pure function the poster runs,
// so a rebuild over an unchanged log reproduces the stored row exactly.
func (p *Projector) Rebuild(ctx context.Context, key BalanceKey) (entity.Balance, error) {
	var result entity.Balance

	err := p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Take the row lock so in-flight postings drain before the replay.
		if _, err := p.repo.GetBalanceForUpdate(ctx, key); err != nil {
			return fmt.Errorf("lock balance %s: %w", key, err)
		}

		entries, err := p.repo.GetEntriesForKey(ctx, key)
		if err != nil {
			return fmt.Errorf("load entries: %w", err)
		}

		rebuilt := entity.Balance{
			CompanyID:   key.CompanyID,
			ItemRef:     key.Item,
			WarehouseID: key.WarehouseID,
			BinID:       key.BinID,
		}
		for i := range entries {
			rebuilt.Apply(&entries[i])
		}

		if err := p.repo.SaveBalance(ctx, &rebuilt); err != nil {
			return fmt.Errorf("save balance: %w", err)
		}

		result = rebuilt
		return nil
	})
	if err != nil {
		return entity.Balance{}, err
	}

	logger.Info(ctx, "balance rebuilt",
		"key", key.String(),
		"qty", result.CurrentQty,
		"avg_cost", result.AvgCost,
	)
	return result, nil
}

// GetHistory returns movement history from the entry log.
func (p *Projector) GetHistory(ctx context.Context, filter HistoryFilter) ([]entity.LedgerEntry, error) {
	return p.repo.GetHistory(ctx, filter)
}

// GetTurnover aggregates receipt/issue totals for a period.
func (p *Projector) GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	return p.repo.GetTurnover(ctx, filter)
}

// GetValuation returns the stock valuation report.
func (p *Projector) GetValuation(ctx context.Context, companyID id.ID, warehouseID *id.ID) ([]ValuationRow, error) {
	return p.repo.GetValuation(ctx, companyID, warehouseID)
}
