// Package period_repo provides the PostgreSQL implementation of the
// accounting period repository.
package period_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/periods"
	"kardex/internal/infrastructure/storage/postgres"
)

const periodsTable = "acc_periods"

// PeriodRepo implements periods.Repository.
type PeriodRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *postgres.TxManager
}

// NewPeriodRepo creates a period repository.
func NewPeriodRepo(txManager *postgres.TxManager) *PeriodRepo {
	return &PeriodRepo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

var periodColumns = postgres.ExtractDBColumns[periods.Period]()

func (r *PeriodRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(periodColumns...).From(periodsTable)
}

// Create inserts a new period.
func (r *PeriodRepo) Create(ctx context.Context, period *periods.Period) error {
	data := postgres.StructToMap(period)

	q := r.builder.Insert(periodsTable).SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert period: %w", err)
	}
	return nil
}

// GetByID retrieves a period by ID.
func (r *PeriodRepo) GetByID(ctx context.Context, periodID id.ID) (*periods.Period, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": periodID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var period periods.Period
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &period, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("period", periodID.String())
		}
		return nil, fmt.Errorf("get period: %w", err)
	}
	return &period, nil
}

// GetByCode retrieves a period by company and code.
func (r *PeriodRepo) GetByCode(ctx context.Context, companyID id.ID, code string) (*periods.Period, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{
			"company_id": companyID,
			"code":       code,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var period periods.Period
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &period, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("period", code)
		}
		return nil, fmt.Errorf("get period by code: %w", err)
	}
	return &period, nil
}

// GetByDate retrieves the period containing the given date.
// Periods cover [start_date, end_date).
func (r *PeriodRepo) GetByDate(ctx context.Context, companyID id.ID, date time.Time) (*periods.Period, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.LtOrEq{"start_date": date}).
		Where(squirrel.Gt{"end_date": date}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var period periods.Period
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &period, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("period", date.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("get period by date: %w", err)
	}
	return &period, nil
}

// Update modifies a period with optimistic locking.
func (r *PeriodRepo) Update(ctx context.Context, period *periods.Period) error {
	data := postgres.StructToMap(period)
	delete(data, "id")
	delete(data, "version")

	q := r.builder.Update(periodsTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": period.ID}).
		Where(squirrel.Eq{"version": period.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(periodsTable, period.ID)
	}
	return nil
}

// List returns all periods for a company ordered by start date.
func (r *PeriodRepo) List(ctx context.Context, companyID id.ID) ([]*periods.Period, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("start_date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*periods.Period
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return items, nil
}

// CountUnpostedDocuments counts completed-but-unposted stock opnames whose
// date falls inside the period. The closing guard refuses to close a period
// while such documents exist.
func (r *PeriodRepo) CountUnpostedDocuments(ctx context.Context, periodID id.ID) (int64, error) {
	sql := `
		SELECT COUNT(*)
		FROM doc_opnames d
		JOIN acc_periods p ON p.id = $1
		WHERE d.company_id = p.company_id
		  AND d.date >= p.start_date
		  AND d.date < p.end_date
		  AND d.posted = false
		  AND d.status = 'completed'
	`

	var count int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, periodID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unposted documents: %w", err)
	}
	return count, nil
}

// Ensure interface compliance.
var _ periods.Repository = (*PeriodRepo)(nil)
