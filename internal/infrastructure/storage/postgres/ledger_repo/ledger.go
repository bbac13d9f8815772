// Package ledger_repo provides the PostgreSQL implementation of the
// inventory ledger: three append-only entry tables (one per ledger class)
// plus the ledger_balances projection table.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/storage/postgres"
)

const (
	rawEntriesTable = "ledger_raw_entries"
	wipEntriesTable = "ledger_wip_entries"
	fgEntriesTable  = "ledger_fg_entries"
	balancesTable   = "ledger_balances"
)

var entryColumns = []string{
	"id", "company_id",
	"item_kind", "item_id", "stage",
	"warehouse_id", "bin_id", "period_id",
	"transaction_date", "entry_type",
	"qty_in", "qty_out", "unit_cost",
	"recorder_id", "recorder_type",
	"reference_type", "reference_number",
	"created_by", "created_at", "posted",
}

var balanceColumns = []string{
	"company_id",
	"item_kind", "item_id", "stage",
	"warehouse_id", "bin_id",
	"current_qty", "avg_cost",
	"last_entry_at", "updated_at",
}

// entryTable routes a ledger class to its physical table.
func entryTable(class entity.LedgerClass) string {
	switch class {
	case entity.ClassWIP:
		return wipEntriesTable
	case entity.ClassFinishedGoods:
		return fgEntriesTable
	default:
		return rawEntriesTable
	}
}

// classKind maps a ledger class back to the item kind stored in balances.
func classKind(class entity.LedgerClass) entity.ItemKind {
	switch class {
	case entity.ClassWIP:
		return entity.ItemWIP
	case entity.ClassFinishedGoods:
		return entity.ItemVariant
	default:
		return entity.ItemMaterial
	}
}

// allEntries is a UNION ALL over the three class tables, used by queries
// that are not scoped to a single item.
var allEntries = fmt.Sprintf(
	"(SELECT * FROM %s UNION ALL SELECT * FROM %s UNION ALL SELECT * FROM %s) AS e",
	rawEntriesTable, wipEntriesTable, fgEntriesTable,
)

// LedgerRepo implements ledger.Repository on PostgreSQL.
type LedgerRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *postgres.TxManager
}

// NewLedgerRepo creates a ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

func entryValues(e *entity.LedgerEntry) []any {
	return []any{
		e.ID, e.CompanyID,
		e.ItemKind, e.ItemID, e.Stage,
		e.WarehouseID, e.BinID, e.PeriodID,
		e.TransactionDate, e.EntryType,
		e.QtyIn, e.QtyOut, e.UnitCost,
		e.RecorderID, e.RecorderType,
		e.ReferenceType, e.ReferenceNumber,
		e.CreatedBy, e.CreatedAt, e.Posted,
	}
}

// AppendEntries batch-inserts entries, routed to their class tables.
// Inside a transaction the COPY protocol is used per class.
func (r *LedgerRepo) AppendEntries(ctx context.Context, entries []entity.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	byTable := make(map[string][][]any)
	for i := range entries {
		table := entryTable(entries[i].Class())
		byTable[table] = append(byTable[table], entryValues(&entries[i]))
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		for table, rows := range byTable {
			if _, err := inserter.CopyFromSlice(ctx, table, entryColumns, rows); err != nil {
				return fmt.Errorf("copy entries into %s: %w", table, err)
			}
		}
		return nil
	}

	querier := r.txManager.GetQuerier(ctx)
	for table, rows := range byTable {
		q := r.builder.Insert(table).Columns(entryColumns...)
		for _, row := range rows {
			q = q.Values(row...)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert entries into %s: %w", table, err)
		}
	}
	return nil
}

// GetEntriesByRecorder retrieves all entries produced by a document,
// across every ledger class.
func (r *LedgerRepo) GetEntriesByRecorder(ctx context.Context, recorderID id.ID) ([]entity.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(allEntries).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries by recorder: %w", err)
	}
	return entries, nil
}

// GetEntriesForKey returns all posted entries for one balance key in
// posting order. Entry IDs are UUIDv7, so the id tiebreak is time-ordered.
func (r *LedgerRepo) GetEntriesForKey(ctx context.Context, key ledger.BalanceKey) ([]entity.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(entryTable(key.Item.Class())).
		Where(squirrel.Eq{
			"company_id":   key.CompanyID,
			"item_kind":    key.Item.ItemKind,
			"item_id":      key.Item.ItemID,
			"stage":        key.Item.Stage,
			"warehouse_id": key.WarehouseID,
			"bin_id":       key.BinID,
		}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries for key: %w", err)
	}
	return entries, nil
}

// GetHistory returns movement history. When the filter names an item the
// query hits that item's class table directly, otherwise all three.
func (r *LedgerRepo) GetHistory(ctx context.Context, filter ledger.HistoryFilter) ([]entity.LedgerEntry, error) {
	from := allEntries
	if filter.Item != nil {
		from = entryTable(filter.Item.Class())
	}

	q := r.builder.Select(entryColumns...).
		From(from).
		Where(squirrel.Eq{"company_id": filter.CompanyID})

	if filter.Item != nil {
		q = q.Where(squirrel.Eq{
			"item_kind": filter.Item.ItemKind,
			"item_id":   filter.Item.ItemID,
			"stage":     filter.Item.Stage,
		})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.EntryType != nil {
		q = q.Where(squirrel.Eq{"entry_type": *filter.EntryType})
	}
	if filter.PeriodID != nil {
		q = q.Where(squirrel.Eq{"period_id": *filter.PeriodID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"transaction_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"transaction_date": *filter.ToDate})
	}

	q = q.OrderBy("transaction_date DESC", "created_at DESC", "id DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return entries, nil
}

func zeroBalance(key ledger.BalanceKey) entity.Balance {
	return entity.Balance{
		CompanyID:   key.CompanyID,
		ItemRef:     key.Item,
		WarehouseID: key.WarehouseID,
		BinID:       key.BinID,
		AvgCost:     types.Zero(),
	}
}

// GetBalance returns the balance row, or a zero balance when the key has
// never been touched.
func (r *LedgerRepo) GetBalance(ctx context.Context, key ledger.BalanceKey) (entity.Balance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{
			"company_id":   key.CompanyID,
			"item_kind":    key.Item.ItemKind,
			"item_id":      key.Item.ItemID,
			"stage":        key.Item.Stage,
			"warehouse_id": key.WarehouseID,
			"bin_id":       key.BinID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return entity.Balance{}, fmt.Errorf("build query: %w", err)
	}

	var balance entity.Balance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return zeroBalance(key), nil
		}
		return entity.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// GetBalanceForUpdate locks the balance row, creating it on first touch so
// the lock exists even for keys that have never moved. Must run inside a
// transaction: the row lock is what serializes concurrent postings.
func (r *LedgerRepo) GetBalanceForUpdate(ctx context.Context, key ledger.BalanceKey) (entity.Balance, error) {
	tx := r.txManager.GetTx(ctx)
	if tx == nil {
		return entity.Balance{}, fmt.Errorf("GetBalanceForUpdate requires transaction context")
	}

	insertSQL := `
		INSERT INTO ledger_balances (
			company_id, item_kind, item_id, stage, warehouse_id, bin_id,
			current_qty, avg_cost, last_entry_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, 0, now(), now())
		ON CONFLICT (company_id, item_kind, item_id, stage, warehouse_id, bin_id)
		DO NOTHING
	`
	_, err := tx.Exec(ctx, insertSQL,
		key.CompanyID, key.Item.ItemKind, key.Item.ItemID, key.Item.Stage,
		key.WarehouseID, key.BinID,
	)
	if err != nil {
		return entity.Balance{}, fmt.Errorf("touch balance row: %w", err)
	}

	selectSQL := `
		SELECT company_id, item_kind, item_id, stage, warehouse_id, bin_id,
		       current_qty, avg_cost, last_entry_at, updated_at
		FROM ledger_balances
		WHERE company_id = $1 AND item_kind = $2 AND item_id = $3
		  AND stage = $4 AND warehouse_id = $5 AND bin_id = $6
		FOR UPDATE
	`
	var balance entity.Balance
	err = pgxscan.Get(ctx, tx, &balance, selectSQL,
		key.CompanyID, key.Item.ItemKind, key.Item.ItemID, key.Item.Stage,
		key.WarehouseID, key.BinID,
	)
	if err != nil {
		return entity.Balance{}, fmt.Errorf("get balance for update: %w", err)
	}
	return balance, nil
}

// SaveBalance upserts the balance projection row.
func (r *LedgerRepo) SaveBalance(ctx context.Context, balance *entity.Balance) error {
	sql := `
		INSERT INTO ledger_balances (
			company_id, item_kind, item_id, stage, warehouse_id, bin_id,
			current_qty, avg_cost, last_entry_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (company_id, item_kind, item_id, stage, warehouse_id, bin_id)
		DO UPDATE SET
			current_qty   = EXCLUDED.current_qty,
			avg_cost      = EXCLUDED.avg_cost,
			last_entry_at = EXCLUDED.last_entry_at,
			updated_at    = EXCLUDED.updated_at
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		balance.CompanyID, balance.ItemKind, balance.ItemID, balance.Stage,
		balance.WarehouseID, balance.BinID,
		balance.CurrentQty, balance.AvgCost,
		balance.LastEntryAt, balance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// GetBalancesByWarehouse returns balances for a warehouse.
func (r *LedgerRepo) GetBalancesByWarehouse(ctx context.Context, companyID, warehouseID id.ID, filter ledger.BalanceFilter) ([]entity.Balance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{
			"company_id":   companyID,
			"warehouse_id": warehouseID,
		})

	if filter.Class != nil {
		q = q.Where(squirrel.Eq{"item_kind": classKind(*filter.Class)})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"current_qty": int64(0)})
	}

	q = q.OrderBy("item_kind", "item_id", "stage", "bin_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.Balance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// GetBalancesByItem returns non-zero balances for an item across warehouses.
func (r *LedgerRepo) GetBalancesByItem(ctx context.Context, companyID id.ID, item entity.ItemRef) ([]entity.Balance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{
			"company_id": companyID,
			"item_kind":  item.ItemKind,
			"item_id":    item.ItemID,
			"stage":      item.Stage,
		}).
		Where(squirrel.NotEq{"current_qty": int64(0)}).
		OrderBy("warehouse_id", "bin_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.Balance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// GetTurnover aggregates in/out quantity and value over the entry log.
// Values are qty × unit_cost at entry level, so outbound value reflects the
// average cost each issue was posted at.
func (r *LedgerRepo) GetTurnover(ctx context.Context, filter ledger.TurnoverFilter) (ledger.Turnover, error) {
	var result ledger.Turnover

	from := allEntries
	if filter.Item != nil {
		from = entryTable(filter.Item.Class())
	}

	conditions := "company_id = $1 AND transaction_date >= $2 AND transaction_date < $3"
	args := []any{filter.CompanyID, filter.FromDate, filter.ToDate}
	argIndex := 4

	if filter.Item != nil {
		conditions += fmt.Sprintf(" AND item_kind = $%d AND item_id = $%d AND stage = $%d",
			argIndex, argIndex+1, argIndex+2)
		args = append(args, filter.Item.ItemKind, filter.Item.ItemID, filter.Item.Stage)
		argIndex += 3
	}
	if filter.WarehouseID != nil {
		conditions += fmt.Sprintf(" AND warehouse_id = $%d", argIndex)
		args = append(args, *filter.WarehouseID)
		argIndex++
	}

	sql := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(qty_in), 0)  AS in_qty,
			COALESCE(SUM(qty_out), 0) AS out_qty,
			COALESCE(SUM((qty_in::numeric  / 10000) * unit_cost), 0) AS in_value,
			COALESCE(SUM((qty_out::numeric / 10000) * unit_cost), 0) AS out_value
		FROM %s
		WHERE %s
	`, from, conditions)

	querier := r.txManager.GetQuerier(ctx)
	var inScaled, outScaled int64
	var inValue, outValue types.Money
	err := querier.QueryRow(ctx, sql, args...).Scan(&inScaled, &outScaled, &inValue, &outValue)
	if err != nil && err != pgx.ErrNoRows {
		return result, fmt.Errorf("calculate turnover: %w", err)
	}
	result.InQty = types.NewQuantityFromInt64Scaled(inScaled)
	result.OutQty = types.NewQuantityFromInt64Scaled(outScaled)
	result.InValue = inValue
	result.OutValue = outValue

	// Opening balance: net movement before the window.
	openConditions := "company_id = $1 AND transaction_date < $2"
	openArgs := []any{filter.CompanyID, filter.FromDate}
	argIndex = 3

	if filter.Item != nil {
		openConditions += fmt.Sprintf(" AND item_kind = $%d AND item_id = $%d AND stage = $%d",
			argIndex, argIndex+1, argIndex+2)
		openArgs = append(openArgs, filter.Item.ItemKind, filter.Item.ItemID, filter.Item.Stage)
		argIndex += 3
	}
	if filter.WarehouseID != nil {
		openConditions += fmt.Sprintf(" AND warehouse_id = $%d", argIndex)
		openArgs = append(openArgs, *filter.WarehouseID)
	}

	openSQL := fmt.Sprintf(`
		SELECT COALESCE(SUM(qty_in - qty_out), 0)
		FROM %s
		WHERE %s
	`, from, openConditions)

	var openingScaled int64
	err = querier.QueryRow(ctx, openSQL, openArgs...).Scan(&openingScaled)
	if err != nil && err != pgx.ErrNoRows {
		return result, fmt.Errorf("calculate opening balance: %w", err)
	}
	result.OpeningQty = types.NewQuantityFromInt64Scaled(openingScaled)
	result.ClosingQty = result.OpeningQty + result.InQty - result.OutQty

	return result, nil
}

type valuationRow struct {
	ItemKind    entity.ItemKind `db:"item_kind"`
	ItemID      id.ID           `db:"item_id"`
	Stage       int             `db:"stage"`
	WarehouseID id.ID           `db:"warehouse_id"`
	BinID       id.ID           `db:"bin_id"`
	CurrentQty  types.Quantity  `db:"current_qty"`
	AvgCost     types.Money     `db:"avg_cost"`
	TotalValue  types.Money     `db:"total_value"`
}

// GetValuation returns qty × cost per balance key. warehouseID nil means
// the whole company.
func (r *LedgerRepo) GetValuation(ctx context.Context, companyID id.ID, warehouseID *id.ID) ([]ledger.ValuationRow, error) {
	q := r.builder.Select(
		"item_kind", "item_id", "stage",
		"warehouse_id", "bin_id",
		"current_qty", "avg_cost",
		"round((current_qty::numeric / 10000) * avg_cost, 4) AS total_value",
	).From(balancesTable).
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.NotEq{"current_qty": int64(0)})

	if warehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *warehouseID})
	}

	q = q.OrderBy("warehouse_id", "item_kind", "item_id", "stage", "bin_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []valuationRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select valuation: %w", err)
	}

	result := make([]ledger.ValuationRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, ledger.ValuationRow{
			Item: entity.ItemRef{
				ItemKind: row.ItemKind,
				ItemID:   row.ItemID,
				Stage:    row.Stage,
			},
			WarehouseID: row.WarehouseID,
			BinID:       row.BinID,
			Qty:         row.CurrentQty,
			AvgCost:     row.AvgCost,
			TotalValue:  row.TotalValue,
		})
	}
	return result, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
