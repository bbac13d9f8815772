package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/internal/domain/periods"
)

var testDate = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

type testEnv struct {
	companyID  id.ID
	repo       *MemoryRepository
	periodRepo *periods.MemoryRepository
	period     *periods.Period
	periodSvc  *periods.Service
	poster     *Poster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	companyID := id.New()
	periodRepo := periods.NewMemoryRepository()
	period := periods.NewPeriod(companyID, "2026-08",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, periodRepo.Create(context.Background(), period))

	repo := NewMemoryRepository()
	periodSvc := periods.NewService(periodRepo, tx.MockManager{})

	return &testEnv{
		companyID:  companyID,
		repo:       repo,
		periodRepo: periodRepo,
		period:     period,
		periodSvc:  periodSvc,
		poster:     NewPoster(repo, periodSvc, tx.MockManager{}),
	}
}

func (e *testEnv) receive(t *testing.T, item entity.ItemRef, warehouseID id.ID, q types.Quantity, cost string) *entity.LedgerEntry {
	t.Helper()
	entry, err := e.poster.Receive(context.Background(), e.companyID, EntryRequest{
		Item:            item,
		WarehouseID:     warehouseID,
		Date:            testDate,
		Qty:             q,
		UnitCost:        types.MustMoney(cost),
		ReferenceType:   entity.RefManual,
		ReferenceNumber: "SEED",
	})
	require.NoError(t, err)
	return entry
}

func (e *testEnv) closePeriod(t *testing.T) {
	t.Helper()
	e.period.Status = periods.StatusClosed
	require.NoError(t, e.periodRepo.Update(context.Background(), e.period))
}

func TestPosterReceiveCreatesBalance(t *testing.T) {
	env := newTestEnv(t)
	item := entity.MaterialRef(id.New())
	warehouseID := id.New()

	entry := env.receive(t, item, warehouseID, qty(100), "50000")

	assert.Equal(t, entity.EntryReceive, entry.EntryType)
	assert.Equal(t, qty(100), entry.QtyIn)
	assert.Equal(t, env.period.ID, entry.PeriodID)
	assert.True(t, entry.Posted)

	bal, err := env.repo.GetBalance(context.Background(), BalanceKey{
		CompanyID: env.companyID, Item: item, WarehouseID: warehouseID,
	})
	require.NoError(t, err)
	assert.Equal(t, qty(100), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("50000")))
}

func TestPosterWeightedAverageFold(t *testing.T) {
	env := newTestEnv(t)
	item := entity.MaterialRef(id.New())
	warehouseID := id.New()
	key := BalanceKey{CompanyID: env.companyID, Item: item, WarehouseID: warehouseID}

	env.receive(t, item, warehouseID, qty(100), "50000")
	env.receive(t, item, warehouseID, qty(50), "60000")

	bal, err := env.repo.GetBalance(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, qty(150), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("53333.3333")), "avg = %s", bal.AvgCost)

	// The issue consumes at the average and leaves it untouched.
	issue, err := env.poster.Issue(context.Background(), env.companyID, EntryRequest{
		Item:        item,
		WarehouseID: warehouseID,
		Date:        testDate,
		Qty:         qty(30),
	})
	require.NoError(t, err)
	assert.True(t, issue.UnitCost.Equal(types.MustMoney("53333.3333")), "cost = %s", issue.UnitCost)

	bal, err = env.repo.GetBalance(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, qty(120), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("53333.3333")))
}

func TestPosterOutboundIgnoresCallerCost(t *testing.T) {
	env := newTestEnv(t)
	item := entity.MaterialRef(id.New())
	warehouseID := id.New()

	env.receive(t, item, warehouseID, qty(10), "8")

	issue, err := env.poster.Issue(context.Background(), env.companyID, EntryRequest{
		Item:        item,
		WarehouseID: warehouseID,
		Date:        testDate,
		Qty:         qty(2),
		UnitCost:    types.MustMoney("999"), // must be ignored
	})
	require.NoError(t, err)
	assert.True(t, issue.UnitCost.Equal(types.MustMoney("8")), "cost = %s", issue.UnitCost)
}

func TestPosterCostFromRequestOverride(t *testing.T) {
	env := newTestEnv(t)
	item := entity.MaterialRef(id.New())
	warehouseID := id.New()

	env.receive(t, item, warehouseID, qty(10), "8")

	out, err := env.poster.AdjustOut(context.Background(), env.companyID, EntryRequest{
		Item:            item,
		WarehouseID:     warehouseID,
		Date:            testDate,
		Qty:             qty(3),
		UnitCost:        types.MustMoney("7.5"),
		CostFromRequest: true,
	})
	require.NoError(t, err)
	assert.True(t, out.UnitCost.Equal(types.MustMoney("7.5")))

	// The balance average is not rewritten by the snapshotted cost.
	bal, err := env.repo.GetBalance(context.Background(), BalanceKey{
		CompanyID: env.companyID, Item: item, WarehouseID: warehouseID,
	})
	require.NoError(t, err)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("8")))
}

func TestPosterInsufficientStockLeavesNoEntries(t *testing.T) {
	env := newTestEnv(t)
	item := entity.MaterialRef(id.New())

	_, err := env.poster.Issue(context.Background(), env.companyID, EntryRequest{
		Item:        item,
		WarehouseID: id.New(),
		Date:        testDate,
		Qty:         qty(1),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Empty(t, env.repo.Entries())
}

func TestPosterClosedPeriodRejected(t *testing.T) {
	env := newTestEnv(t)
	env.closePeriod(t)

	_, err := env.poster.Receive(context.Background(), env.companyID, EntryRequest{
		Item:        entity.MaterialRef(id.New()),
		WarehouseID: id.New(),
		Date:        testDate,
		Qty:         qty(1),
		UnitCost:    types.MustMoney("1"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodClosed))
	assert.Empty(t, env.repo.Entries())
}

func TestPosterNoPeriodForDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.poster.Receive(context.Background(), env.companyID, EntryRequest{
		Item:        entity.MaterialRef(id.New()),
		WarehouseID: id.New(),
		Date:        testDate.AddDate(0, 2, 0),
		Qty:         qty(1),
		UnitCost:    types.MustMoney("1"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodNotFound))
}

func TestPostSetShortageAbortsWholeSet(t *testing.T) {
	env := newTestEnv(t)
	item := entity.MaterialRef(id.New())
	warehouseID := id.New()

	_, err := env.poster.PostSet(context.Background(), env.companyID, []EntryRequest{
		{
			Item:        item,
			WarehouseID: warehouseID,
			Date:        testDate,
			Type:        entity.EntryReceive,
			Qty:         qty(5),
			UnitCost:    types.MustMoney("10"),
		},
		{
			// No stock for this one: the whole set must fail.
			Item:        entity.MaterialRef(id.New()),
			WarehouseID: warehouseID,
			Date:        testDate,
			Type:        entity.EntryIssue,
			Qty:         qty(1),
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Empty(t, env.repo.Entries())
}

func TestPostSetValidatesBeforePosting(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.poster.PostSet(context.Background(), env.companyID, nil)
	assert.Error(t, err)

	_, err = env.poster.PostSet(context.Background(), id.Nil(), []EntryRequest{{
		Item:        entity.MaterialRef(id.New()),
		WarehouseID: id.New(),
		Date:        testDate,
		Type:        entity.EntryReceive,
		Qty:         qty(1),
		UnitCost:    types.MustMoney("1"),
	}})
	assert.Error(t, err)

	_, err = env.poster.Receive(context.Background(), env.companyID, EntryRequest{
		Item:        entity.MaterialRef(id.New()),
		WarehouseID: id.New(),
		Date:        testDate,
		Qty:         qty(-1),
		UnitCost:    types.MustMoney("1"),
	})
	assert.Error(t, err)
	assert.Empty(t, env.repo.Entries())
}
