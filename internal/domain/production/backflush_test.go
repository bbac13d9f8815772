package production

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
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/periods"
)

var testDate = time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

type stageEnv struct {
	companyID   id.ID
	repo        *ledger.MemoryRepository
	poster      *ledger.Poster
	coordinator *Coordinator
}

func newStageEnv(t *testing.T) *stageEnv {
	t.Helper()

	companyID := id.New()
	periodRepo := periods.NewMemoryRepository()
	period := periods.NewPeriod(companyID, "2026-08",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, periodRepo.Create(context.Background(), period))

	repo := ledger.NewMemoryRepository()
	poster := ledger.NewPoster(repo, periods.NewService(periodRepo, tx.MockManager{}), tx.MockManager{})

	return &stageEnv{
		companyID:   companyID,
		repo:        repo,
		poster:      poster,
		coordinator: NewCoordinator(repo, poster, tx.MockManager{}),
	}
}

func (e *stageEnv) stock(t *testing.T, item entity.ItemRef, warehouseID id.ID, q types.Quantity, cost string) {
	t.Helper()
	_, err := e.poster.Receive(context.Background(), e.companyID, ledger.EntryRequest{
		Item:            item,
		WarehouseID:     warehouseID,
		Date:            testDate,
		Qty:             q,
		UnitCost:        types.MustMoney(cost),
		ReferenceType:   entity.RefManual,
		ReferenceNumber: "SEED",
	})
	require.NoError(t, err)
}

func TestBOMLineNeed(t *testing.T) {
	line := BOMLine{QtyPer: qty(2)}
	assert.Equal(t, qty(20), line.Need(qty(10)))

	// 5% scrap inflates the requirement: 10 × 2 × 1.05 = 21.
	line.ScrapPercent = types.MustMoney("5")
	assert.Equal(t, qty(21), line.Need(qty(10)))

	// Fractional needs round at the fourth digit.
	line = BOMLine{QtyPer: qty(0.3333), ScrapPercent: types.MustMoney("10")}
	assert.Equal(t, types.NewQuantityFromDecimal(
		qty(3).Decimal().Mul(qty(0.3333).Decimal()).Mul(types.MustMoney("1.1")),
	), line.Need(qty(3)))
}

func TestCompleteStageBackflush(t *testing.T) {
	env := newStageEnv(t)
	ctx := context.Background()

	rawWH := id.New()
	wipWH := id.New()
	flour := entity.MaterialRef(id.New())
	sugar := entity.MaterialRef(id.New())
	output := entity.WIPRef(id.New(), 1)

	env.stock(t, flour, rawWH, qty(100), "10")
	env.stock(t, sugar, rawWH, qty(50), "4")

	result, err := env.coordinator.CompleteStage(ctx, env.companyID, StageCompletion{
		Stage:             1,
		Date:              testDate,
		Output:            output,
		OutputWarehouseID: wipWH,
		CompletedQty:      qty(10),
		Components: []BOMLine{
			{Component: flour, WarehouseID: rawWH, QtyPer: qty(2)},
			{Component: sugar, WarehouseID: rawWH, QtyPer: qty(1)},
		},
		ReferenceNumber: "ST-00001",
	})
	require.NoError(t, err)

	// Consumed: 20 × 10 + 10 × 4 = 240; output cost 240 / 10 = 24.
	assert.True(t, result.ConsumedValue.Equal(types.MustMoney("240")), "consumed = %s", result.ConsumedValue)
	assert.True(t, result.OutputCost.Equal(types.MustMoney("24")), "cost = %s", result.OutputCost)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, entity.EntryProductionIn, result.Output.EntryType)
	assert.Equal(t, qty(10), result.Output.QtyIn)

	flourBal, err := env.repo.GetBalance(ctx, ledger.BalanceKey{CompanyID: env.companyID, Item: flour, WarehouseID: rawWH})
	require.NoError(t, err)
	assert.Equal(t, qty(80), flourBal.CurrentQty)

	wipBal, err := env.repo.GetBalance(ctx, ledger.BalanceKey{CompanyID: env.companyID, Item: output, WarehouseID: wipWH})
	require.NoError(t, err)
	assert.Equal(t, qty(10), wipBal.CurrentQty)
	assert.True(t, wipBal.AvgCost.Equal(types.MustMoney("24")))
}

func TestCompleteStageRejectedQtyNotStocked(t *testing.T) {
	env := newStageEnv(t)
	ctx := context.Background()

	rawWH := id.New()
	fgWH := id.New()
	comp := entity.MaterialRef(id.New())
	variant := entity.VariantRef(id.New())

	env.stock(t, comp, rawWH, qty(100), "6")

	result, err := env.coordinator.CompleteStage(ctx, env.companyID, StageCompletion{
		Stage:             2,
		Date:              testDate,
		Output:            variant,
		OutputWarehouseID: fgWH,
		CompletedQty:      qty(8),
		RejectedQty:       qty(2),
		Components: []BOMLine{
			{Component: comp, WarehouseID: rawWH, QtyPer: qty(3)},
		},
		ReferenceNumber: "ST-00002",
	})
	require.NoError(t, err)

	// Only the completed units are stocked; their cost absorbs the full
	// consumed value: 24 × 6 / 8 = 18.
	assert.Equal(t, qty(8), result.Output.QtyIn)
	assert.True(t, result.OutputCost.Equal(types.MustMoney("18")), "cost = %s", result.OutputCost)

	fgBal, err := env.repo.GetBalance(ctx, ledger.BalanceKey{CompanyID: env.companyID, Item: variant, WarehouseID: fgWH})
	require.NoError(t, err)
	assert.Equal(t, qty(8), fgBal.CurrentQty)
}

func TestCompleteStageShortageReportsAllComponents(t *testing.T) {
	env := newStageEnv(t)
	ctx := context.Background()

	rawWH := id.New()
	short1 := entity.MaterialRef(id.New())
	short2 := entity.MaterialRef(id.New())

	env.stock(t, short1, rawWH, qty(5), "1")
	// short2 has no stock at all.

	_, err := env.coordinator.CompleteStage(ctx, env.companyID, StageCompletion{
		Stage:             1,
		Date:              testDate,
		Output:            entity.WIPRef(id.New(), 1),
		OutputWarehouseID: id.New(),
		CompletedQty:      qty(10),
		Components: []BOMLine{
			{Component: short1, WarehouseID: rawWH, QtyPer: qty(1)},
			{Component: short2, WarehouseID: rawWH, QtyPer: qty(2)},
		},
		ReferenceNumber: "ST-00003",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeBackflushShortage))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	shortages, ok := appErr.Details["shortages"].([]ComponentShortage)
	require.True(t, ok)
	assert.Len(t, shortages, 2)

	// Nothing was consumed: only the seed receipt exists.
	assert.Len(t, env.repo.Entries(), 1)
	bal, err := env.repo.GetBalance(ctx, ledger.BalanceKey{CompanyID: env.companyID, Item: short1, WarehouseID: rawWH})
	require.NoError(t, err)
	assert.Equal(t, qty(5), bal.CurrentQty)
}

func TestStageCompletionValidate(t *testing.T) {
	valid := StageCompletion{
		Stage:             1,
		Date:              testDate,
		Output:            entity.WIPRef(id.New(), 1),
		OutputWarehouseID: id.New(),
		CompletedQty:      qty(1),
		Components: []BOMLine{
			{Component: entity.MaterialRef(id.New()), WarehouseID: id.New(), QtyPer: qty(1)},
		},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(sc *StageCompletion)
	}{
		{"zero stage", func(sc *StageCompletion) { sc.Stage = 0 }},
		{"zero completed qty", func(sc *StageCompletion) { sc.CompletedQty = 0 }},
		{"negative rejected qty", func(sc *StageCompletion) { sc.RejectedQty = qty(-1) }},
		{"no components", func(sc *StageCompletion) { sc.Components = nil }},
		{"nil output warehouse", func(sc *StageCompletion) { sc.OutputWarehouseID = id.Nil() }},
		{"zero qtyPer", func(sc *StageCompletion) { sc.Components[0].QtyPer = 0 }},
		{"negative scrap", func(sc *StageCompletion) { sc.Components[0].ScrapPercent = types.MustMoney("-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := valid
			sc.Components = append([]BOMLine(nil), valid.Components...)
			tt.mutate(&sc)
			assert.Error(t, sc.Validate())
		})
	}
}
