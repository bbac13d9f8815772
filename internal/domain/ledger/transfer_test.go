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
	"kardex/internal/core/numerator"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
)

func newTestTransfers(env *testEnv) *TransferCoordinator {
	return NewTransferCoordinator(env.poster, &numerator.MockGenerator{}, tx.MockManager{})
}

type inTxKey struct{}

// markingTxManager tags the context so a test can tell whether a call
// happened inside the transaction scope.
type markingTxManager struct{}

func (markingTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, inTxKey{}, true))
}

func TestTransferDrawsReferenceInsideTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			if ctx.Value(inTxKey{}) == nil {
				t.Error("reference drawn outside the posting transaction")
			}
			return "TRF-00001", nil
		},
	}
	transfers := NewTransferCoordinator(env.poster, gen, markingTxManager{})

	item := entity.MaterialRef(id.New())
	fromWH := id.New()
	env.receive(t, item, fromWH, qty(10), "4")

	result, err := transfers.Transfer(ctx, env.companyID, TransferRequest{
		Item:            item,
		Qty:             qty(3),
		Date:            testDate,
		FromWarehouseID: fromWH,
		ToWarehouseID:   id.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, "TRF-00001", result.Reference)
}

func TestTransferPreservesValuation(t *testing.T) {
	env := newTestEnv(t)
	transfers := newTestTransfers(env)
	ctx := context.Background()

	item := entity.MaterialRef(id.New())
	fromWH := id.New()
	toWH := id.New()

	env.receive(t, item, fromWH, qty(100), "25.5")

	result, err := transfers.Transfer(ctx, env.companyID, TransferRequest{
		Item:            item,
		Qty:             qty(40),
		Date:            testDate,
		FromWarehouseID: fromWH,
		ToWarehouseID:   toWH,
	})
	require.NoError(t, err)

	// Both legs carry one reference and the identical unit cost.
	assert.NotEmpty(t, result.Reference)
	assert.Equal(t, result.Reference, result.OutEntry.ReferenceNumber)
	assert.Equal(t, result.Reference, result.InEntry.ReferenceNumber)
	assert.Equal(t, entity.EntryTransferOut, result.OutEntry.EntryType)
	assert.Equal(t, entity.EntryTransferIn, result.InEntry.EntryType)
	assert.True(t, result.OutEntry.UnitCost.Equal(result.InEntry.UnitCost))
	assert.True(t, result.OutEntry.UnitCost.Equal(types.MustMoney("25.5")))

	source, err := env.repo.GetBalance(ctx, BalanceKey{CompanyID: env.companyID, Item: item, WarehouseID: fromWH})
	require.NoError(t, err)
	dest, err := env.repo.GetBalance(ctx, BalanceKey{CompanyID: env.companyID, Item: item, WarehouseID: toWH})
	require.NoError(t, err)

	assert.Equal(t, qty(60), source.CurrentQty)
	assert.Equal(t, qty(40), dest.CurrentQty)
	assert.True(t, dest.AvgCost.Equal(types.MustMoney("25.5")))

	// Total inventory value is unchanged by the move.
	total := source.TotalValue().Add(dest.TotalValue())
	assert.True(t, total.Equal(types.MustMoney("2550")), "total = %s", total)
}

func TestTransferSameLocationRejected(t *testing.T) {
	env := newTestEnv(t)
	transfers := newTestTransfers(env)
	warehouseID := id.New()

	_, err := transfers.Transfer(context.Background(), env.companyID, TransferRequest{
		Item:            entity.MaterialRef(id.New()),
		Qty:             qty(1),
		Date:            testDate,
		FromWarehouseID: warehouseID,
		ToWarehouseID:   warehouseID,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestTransferInsufficientStockPostsNothing(t *testing.T) {
	env := newTestEnv(t)
	transfers := newTestTransfers(env)

	_, err := transfers.Transfer(context.Background(), env.companyID, TransferRequest{
		Item:            entity.MaterialRef(id.New()),
		Qty:             qty(5),
		Date:            testDate,
		FromWarehouseID: id.New(),
		ToWarehouseID:   id.New(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Empty(t, env.repo.Entries())
}
