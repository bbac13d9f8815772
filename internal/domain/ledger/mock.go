package ledger

import (
	"context"
	"sync"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
)

// MemoryRepository is an in-memory Repository implementation.
// Use in unit tests to avoid database dependencies; the fold semantics
// match the Postgres implementation because both run the same
// entity.Balance.Apply.
type MemoryRepository struct {
	mu       sync.Mutex
	entries  []entity.LedgerEntry
	balances map[BalanceKey]entity.Balance
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		balances: make(map[BalanceKey]entity.Balance),
	}
}

// Entries returns a copy of the appended entry log in posting order.
func (r *MemoryRepository) Entries() []entity.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.LedgerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// AppendEntries implements Repository.
func (r *MemoryRepository) AppendEntries(ctx context.Context, entries []entity.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

// GetEntriesByRecorder implements Repository.
func (r *MemoryRepository) GetEntriesByRecorder(ctx context.Context, recorderID id.ID) ([]entity.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.LedgerEntry
	for _, e := range r.entries {
		if e.RecorderID == recorderID {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetEntriesForKey implements Repository.
func (r *MemoryRepository) GetEntriesForKey(ctx context.Context, key BalanceKey) ([]entity.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.LedgerEntry
	for _, e := range r.entries {
		if KeyOf(&e) == key {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetHistory implements Repository. Filtering is limited to the item and
// warehouse dimensions, which is all the unit tests need.
func (r *MemoryRepository) GetHistory(ctx context.Context, filter HistoryFilter) ([]entity.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.LedgerEntry
	for _, e := range r.entries {
		if e.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Item != nil && e.ItemRef != *filter.Item {
			continue
		}
		if filter.WarehouseID != nil && e.WarehouseID != *filter.WarehouseID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// GetBalance implements Repository.
func (r *MemoryRepository) GetBalance(ctx context.Context, key BalanceKey) (entity.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balanceLocked(key), nil
}

// GetBalanceForUpdate implements Repository. There is no row locking in
// memory; the mutex stands in for it.
func (r *MemoryRepository) GetBalanceForUpdate(ctx context.Context, key BalanceKey) (entity.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balanceLocked(key), nil
}

func (r *MemoryRepository) balanceLocked(key BalanceKey) entity.Balance {
	if bal, ok := r.balances[key]; ok {
		return bal
	}
	return entity.Balance{
		CompanyID:   key.CompanyID,
		ItemRef:     key.Item,
		WarehouseID: key.WarehouseID,
		BinID:       key.BinID,
	}
}

// SaveBalance implements Repository.
func (r *MemoryRepository) SaveBalance(ctx context.Context, balance *entity.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := BalanceKey{
		CompanyID:   balance.CompanyID,
		Item:        balance.ItemRef,
		WarehouseID: balance.WarehouseID,
		BinID:       balance.BinID,
	}
	r.balances[key] = *balance
	return nil
}

// GetBalancesByWarehouse implements Repository.
func (r *MemoryRepository) GetBalancesByWarehouse(ctx context.Context, companyID, warehouseID id.ID, filter BalanceFilter) ([]entity.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Balance
	for _, bal := range r.balances {
		if bal.CompanyID != companyID || bal.WarehouseID != warehouseID {
			continue
		}
		if filter.ExcludeZero && bal.CurrentQty.IsZero() {
			continue
		}
		if filter.Class != nil && bal.ItemRef.Class() != *filter.Class {
			continue
		}
		out = append(out, bal)
	}
	return out, nil
}

// GetBalancesByItem implements Repository.
func (r *MemoryRepository) GetBalancesByItem(ctx context.Context, companyID id.ID, item entity.ItemRef) ([]entity.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Balance
	for _, bal := range r.balances {
		if bal.CompanyID == companyID && bal.ItemRef == item {
			out = append(out, bal)
		}
	}
	return out, nil
}

// GetTurnover implements Repository by folding the entry log.
func (r *MemoryRepository) GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var t Turnover
	for _, e := range r.entries {
		if e.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Item != nil && e.ItemRef != *filter.Item {
			continue
		}
		if filter.WarehouseID != nil && e.WarehouseID != *filter.WarehouseID {
			continue
		}
		if e.TransactionDate.Before(filter.FromDate) {
			t.OpeningQty += e.SignedQty()
			continue
		}
		if e.TransactionDate.After(filter.ToDate) {
			continue
		}
		if e.EntryType.Inbound() {
			t.InQty += e.QtyIn
			t.InValue = t.InValue.Add(e.QtyIn.Decimal().Mul(e.UnitCost))
		} else {
			t.OutQty += e.QtyOut
			t.OutValue = t.OutValue.Add(e.QtyOut.Decimal().Mul(e.UnitCost))
		}
	}
	t.ClosingQty = t.OpeningQty + t.InQty - t.OutQty
	return t, nil
}

// GetValuation implements Repository from the balance projection.
func (r *MemoryRepository) GetValuation(ctx context.Context, companyID id.ID, warehouseID *id.ID) ([]ValuationRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ValuationRow
	for _, bal := range r.balances {
		if bal.CompanyID != companyID {
			continue
		}
		if warehouseID != nil && bal.WarehouseID != *warehouseID {
			continue
		}
		if bal.CurrentQty.IsZero() {
			continue
		}
		out = append(out, ValuationRow{
			Item:        bal.ItemRef,
			WarehouseID: bal.WarehouseID,
			BinID:       bal.BinID,
			Qty:         bal.CurrentQty,
			AvgCost:     bal.AvgCost,
			TotalValue:  bal.TotalValue(),
		})
	}
	return out, nil
}

// Ensure compile-time interface compliance.
var _ Repository = (*MemoryRepository)(nil)
