// Package ledger provides the inventory ledgers: an append-only entry log
// per ledger class (raw, wip, finished goods) with a weighted-average cost
// balance projection.
package ledger

import (
	"context"
	"time"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// BalanceKey addresses one balance row: (company, item, warehouse, bin).
type BalanceKey struct {
	CompanyID   id.ID
	Item        entity.ItemRef
	WarehouseID id.ID
	BinID       id.ID
}

// String renders the key for lock ordering and error details.
func (k BalanceKey) String() string {
	return k.CompanyID.String() + "/" + k.Item.String() +
		"/" + k.WarehouseID.String() + "/" + k.BinID.String()
}

// KeyOf extracts the balance key of an entry.
func KeyOf(e *entity.LedgerEntry) BalanceKey {
	return BalanceKey{
		CompanyID:   e.CompanyID,
		Item:        e.ItemRef,
		WarehouseID: e.WarehouseID,
		BinID:       e.BinID,
	}
}

// Repository defines persistence for ledger entries and balances.
// Entries are append-only: there is no update or delete.
type Repository interface {
	// AppendEntries batch-inserts entries into their class tables.
	AppendEntries(ctx context.Context, entries []entity.LedgerEntry) error

	// GetEntriesByRecorder retrieves all entries produced by a document.
	GetEntriesByRecorder(ctx context.Context, recorderID id.ID) ([]entity.LedgerEntry, error)

	// GetEntriesForKey returns all posted entries for one balance key in
	// posting order. Used by the projector rebuild.
	GetEntriesForKey(ctx context.Context, key BalanceKey) ([]entity.LedgerEntry, error)

	// GetHistory returns movement history with filtering.
	GetHistory(ctx context.Context, filter HistoryFilter) ([]entity.LedgerEntry, error)

	// GetBalance returns the balance row, or a zero-quantity balance for
	// the key when none exists yet.
	GetBalance(ctx context.Context, key BalanceKey) (entity.Balance, error)

	// GetBalanceForUpdate locks the balance row (SELECT ... FOR UPDATE),
	// creating it on first touch. Must run inside a transaction; the lock
	// serializes all postings against the key until commit.
	GetBalanceForUpdate(ctx context.Context, key BalanceKey) (entity.Balance, error)

	// SaveBalance upserts the balance projection row.
	SaveBalance(ctx context.Context, balance *entity.Balance) error

	// GetBalancesByWarehouse returns balances for a warehouse.
	GetBalancesByWarehouse(ctx context.Context, companyID, warehouseID id.ID, filter BalanceFilter) ([]entity.Balance, error)

	// GetBalancesByItem returns balances across warehouses for an item.
	GetBalancesByItem(ctx context.Context, companyID id.ID, item entity.ItemRef) ([]entity.Balance, error)

	// GetTurnover aggregates receipt/issue totals over the entry log.
	GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error)

	// GetValuation returns qty × cost per balance key for a warehouse
	// (or the whole company when warehouseID is nil).
	GetValuation(ctx context.Context, companyID id.ID, warehouseID *id.ID) ([]ValuationRow, error)
}

// BalanceFilter for filtering balance queries.
type BalanceFilter struct {
	Class       *entity.LedgerClass
	ExcludeZero bool
}

// HistoryFilter for filtering movement history.
type HistoryFilter struct {
	CompanyID   id.ID
	Item        *entity.ItemRef
	WarehouseID *id.ID
	EntryType   *entity.EntryType
	PeriodID    *id.ID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// TurnoverFilter for turnover reports.
type TurnoverFilter struct {
	CompanyID   id.ID
	Item        *entity.ItemRef
	WarehouseID *id.ID
	FromDate    time.Time
	ToDate      time.Time
}

// Turnover represents receipt/issue totals for a period.
type Turnover struct {
	OpeningQty types.Quantity `json:"openingQty"`
	InQty      types.Quantity `json:"inQty"`
	OutQty     types.Quantity `json:"outQty"`
	ClosingQty types.Quantity `json:"closingQty"`
	InValue    types.Money    `json:"inValue"`
	OutValue   types.Money    `json:"outValue"`
}

// ValuationRow is one line of the stock valuation report.
type ValuationRow struct {
	Item        entity.ItemRef `json:"item"`
	WarehouseID id.ID          `json:"warehouseId"`
	BinID       id.ID          `json:"binId"`
	Qty         types.Quantity `json:"qty"`
	AvgCost     types.Money    `json:"avgCost"`
	TotalValue  types.Money    `json:"totalValue"`
}
