package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
)

func TestProjectorRebuildReproducesBalance(t *testing.T) {
	env := newTestEnv(t)
	projector := NewProjector(env.repo, tx.MockManager{})
	ctx := context.Background()

	item := entity.MaterialRef(id.New())
	warehouseID := id.New()
	key := BalanceKey{CompanyID: env.companyID, Item: item, WarehouseID: warehouseID}

	env.receive(t, item, warehouseID, qty(100), "50000")
	env.receive(t, item, warehouseID, qty(50), "60000")
	_, err := env.poster.Issue(ctx, env.companyID, EntryRequest{
		Item:        item,
		WarehouseID: warehouseID,
		Date:        testDate,
		Qty:         qty(30),
	})
	require.NoError(t, err)

	want, err := env.repo.GetBalance(ctx, key)
	require.NoError(t, err)

	// Corrupt the stored projection; the log must win.
	corrupt := want
	corrupt.CurrentQty = qty(9999)
	corrupt.AvgCost = types.MustMoney("1")
	require.NoError(t, env.repo.SaveBalance(ctx, &corrupt))

	rebuilt, err := projector.Rebuild(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want.CurrentQty, rebuilt.CurrentQty)
	assert.True(t, want.AvgCost.Equal(rebuilt.AvgCost), "want %s got %s", want.AvgCost, rebuilt.AvgCost)

	stored, err := env.repo.GetBalance(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want.CurrentQty, stored.CurrentQty)
}

func TestProjectorRebuildEmptyLog(t *testing.T) {
	env := newTestEnv(t)
	projector := NewProjector(env.repo, tx.MockManager{})

	key := BalanceKey{CompanyID: env.companyID, Item: entity.MaterialRef(id.New()), WarehouseID: id.New()}
	rebuilt, err := projector.Rebuild(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, rebuilt.CurrentQty.IsZero())
	assert.True(t, rebuilt.AvgCost.IsZero())
}

func TestProjectorGetItemAvailabilitySums(t *testing.T) {
	env := newTestEnv(t)
	projector := NewProjector(env.repo, tx.MockManager{})

	item := entity.MaterialRef(id.New())
	env.receive(t, item, id.New(), qty(10), "5")
	env.receive(t, item, id.New(), qty(7), "6")

	total, err := projector.GetItemAvailability(context.Background(), env.companyID, item)
	require.NoError(t, err)
	assert.Equal(t, qty(17), total.CurrentQty)
}

func TestProjectorGetBalanceUnknownKeyIsZero(t *testing.T) {
	env := newTestEnv(t)
	projector := NewProjector(env.repo, tx.MockManager{})

	key := BalanceKey{CompanyID: env.companyID, Item: entity.MaterialRef(id.New()), WarehouseID: id.New()}
	bal, err := projector.GetBalance(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, bal.CurrentQty.IsZero())
	assert.Equal(t, key.Item, bal.ItemRef)
}
