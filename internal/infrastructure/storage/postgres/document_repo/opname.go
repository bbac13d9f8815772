package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain"
	"kardex/internal/domain/documents/opname"
	"kardex/internal/infrastructure/storage/postgres"
)

const (
	opnamesTable     = "doc_opnames"
	opnameLinesTable = "doc_opname_lines"
)

// OpnameRepo implements opname.Repository.
type OpnameRepo struct {
	*BaseDocumentRepo[*opname.Opname]
}

// NewOpnameRepo creates a new opname repository.
func NewOpnameRepo(txManager *postgres.TxManager) *OpnameRepo {
	return &OpnameRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*opname.Opname](
			txManager,
			opnamesTable,
			postgres.ExtractDBColumns[opname.Opname](),
			func() *opname.Opname { return &opname.Opname{} },
		),
	}
}

// opnameLineRow flattens the item dimension for scanning.
type opnameLineRow struct {
	LineID         id.ID            `db:"line_id"`
	LineNo         int              `db:"line_no"`
	ItemKind       entity.ItemKind  `db:"item_kind"`
	ItemID         id.ID            `db:"item_id"`
	Stage          int              `db:"stage"`
	BinID          id.ID            `db:"bin_id"`
	SystemQty      types.Quantity   `db:"system_qty"`
	SystemUnitCost types.Money      `db:"system_unit_cost"`
	PhysicalQty    *types.Quantity  `db:"physical_qty"`
	VarianceQty    types.Quantity   `db:"variance_qty"`
	ReasonCode     string           `db:"reason_code"`
	Counted        bool            `db:"counted"`
	CountedAt      *time.Time      `db:"counted_at"`
	CountedBy      *string         `db:"counted_by"`
}

func (r *OpnameRepo) GetLines(ctx context.Context, docID id.ID) ([]opname.Line, error) {
	q := r.Builder().
		Select(
			"line_id", "line_no",
			"item_kind", "item_id", "stage", "bin_id",
			"system_qty", "system_unit_cost",
			"physical_qty", "variance_qty", "reason_code",
			"counted", "counted_at", "counted_by",
		).
		From(opnameLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []opnameLineRow
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	lines := make([]opname.Line, 0, len(rows))
	for _, row := range rows {
		line := opname.Line{
			LineID: row.LineID,
			LineNo: row.LineNo,
			Item: entity.ItemRef{
				ItemKind: row.ItemKind,
				ItemID:   row.ItemID,
				Stage:    row.Stage,
			},
			BinID:          row.BinID,
			SystemQty:      row.SystemQty,
			SystemUnitCost: row.SystemUnitCost,
			PhysicalQty:    row.PhysicalQty,
			VarianceQty:    row.VarianceQty,
			ReasonCode:     row.ReasonCode,
			Counted:        row.Counted,
			CountedAt:      row.CountedAt,
			CountedBy:      row.CountedBy,
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (r *OpnameRepo) SaveLines(ctx context.Context, docID id.ID, lines []opname.Line) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + opnameLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(opnameLinesTable).
		Columns(
			"line_id", "document_id", "line_no",
			"item_kind", "item_id", "stage", "bin_id",
			"system_qty", "system_unit_cost",
			"physical_qty", "variance_qty", "reason_code",
			"counted", "counted_at", "counted_by",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, docID, line.LineNo,
			line.Item.ItemKind, line.Item.ItemID, line.Item.Stage, line.BinID,
			line.SystemQty, line.SystemUnitCost,
			line.PhysicalQty, line.VarianceQty, line.ReasonCode,
			line.Counted, line.CountedAt, line.CountedBy,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

func (r *OpnameRepo) List(ctx context.Context, filter opname.ListFilter) (domain.ListResult[*opname.Opname], error) {
	result := domain.ListResult[*opname.Opname]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.CompanyID != nil {
		q = q.Where(squirrel.Eq{"company_id": *filter.CompanyID})
	}

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.Posted != nil {
		q = q.Where(squirrel.Eq{"posted": *filter.Posted})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select: %w", err)
	}

	return result, nil
}

var _ opname.Repository = (*OpnameRepo)(nil)
