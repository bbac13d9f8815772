package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func testEntry(item ItemRef, entryType EntryType, q types.Quantity, cost types.Money) LedgerEntry {
	return NewLedgerEntry(
		id.New(), item, id.New(), id.Nil(), id.New(),
		time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		entryType, q, cost, RefManual, "TEST",
	)
}

func TestBalanceApplyWeightedAverage(t *testing.T) {
	item := MaterialRef(id.New())
	bal := Balance{}

	// 100 units at 50000, then 50 units at 60000:
	// (100*50000 + 50*60000) / 150 = 53333.3333...
	first := testEntry(item, EntryReceive, qty(100), types.MustMoney("50000"))
	bal.Apply(&first)
	assert.Equal(t, qty(100), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("50000")), "avg = %s", bal.AvgCost)

	second := testEntry(item, EntryReceive, qty(50), types.MustMoney("60000"))
	bal.Apply(&second)
	assert.Equal(t, qty(150), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("53333.3333")), "avg = %s", bal.AvgCost)
}

func TestBalanceApplyIssueThenReceive(t *testing.T) {
	item := MaterialRef(id.New())
	bal := Balance{}

	in := testEntry(item, EntryReceive, qty(100), types.MustMoney("50000"))
	bal.Apply(&in)

	out := testEntry(item, EntryIssue, qty(30), bal.AvgCost)
	bal.Apply(&out)
	assert.Equal(t, qty(70), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("50000")), "avg = %s", bal.AvgCost)

	// (70*50000 + 50*60000) / 120 = 54166.6667
	in = testEntry(item, EntryReceive, qty(50), types.MustMoney("60000"))
	bal.Apply(&in)
	assert.Equal(t, qty(120), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("54166.6667")), "avg = %s", bal.AvgCost)
}

func TestBalanceApplyOutboundKeepsAverage(t *testing.T) {
	item := MaterialRef(id.New())
	bal := Balance{}

	in := testEntry(item, EntryReceive, qty(10), types.MustMoney("12.5"))
	bal.Apply(&in)

	out := testEntry(item, EntryIssue, qty(4), bal.AvgCost)
	bal.Apply(&out)

	assert.Equal(t, qty(6), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("12.5")), "avg = %s", bal.AvgCost)
}

func TestBalanceApplyReceiveIntoNegative(t *testing.T) {
	// A receive that does not lift the balance above zero must not divide
	// by a non-positive quantity; the entry cost becomes the new average.
	item := MaterialRef(id.New())
	bal := Balance{CurrentQty: qty(-5), AvgCost: types.MustMoney("10")}

	in := testEntry(item, EntryReceive, qty(5), types.MustMoney("20"))
	bal.Apply(&in)

	assert.Equal(t, types.Quantity(0), bal.CurrentQty)
	assert.True(t, bal.AvgCost.Equal(types.MustMoney("20")), "avg = %s", bal.AvgCost)
}

func TestBalanceTotalValue(t *testing.T) {
	bal := Balance{CurrentQty: qty(3), AvgCost: types.MustMoney("12.3456")}
	assert.True(t, bal.TotalValue().Equal(types.MustMoney("37.0368")), "value = %s", bal.TotalValue())
}

func TestEntryTypeDirection(t *testing.T) {
	inbound := []EntryType{EntryReceive, EntryAdjustIn, EntryTransferIn, EntryProductionIn}
	outbound := []EntryType{EntryIssue, EntryAdjustOut, EntryTransferOut, EntryProductionOut}

	for _, et := range inbound {
		assert.True(t, et.Inbound(), "%s should be inbound", et)
		assert.True(t, et.Valid())
	}
	for _, et := range outbound {
		assert.False(t, et.Inbound(), "%s should be outbound", et)
		assert.True(t, et.Valid())
	}
	assert.False(t, EntryType("BOGUS").Valid())
}

func TestItemRefValidate(t *testing.T) {
	itemID := id.New()

	tests := []struct {
		name    string
		ref     ItemRef
		wantErr bool
	}{
		{"material", MaterialRef(itemID), false},
		{"variant", VariantRef(itemID), false},
		{"wip with stage", WIPRef(itemID, 2), false},
		{"nil item", ItemRef{ItemKind: ItemMaterial}, true},
		{"material with stage", ItemRef{ItemKind: ItemMaterial, ItemID: itemID, Stage: 1}, true},
		{"wip without stage", ItemRef{ItemKind: ItemWIP, ItemID: itemID}, true},
		{"unknown kind", ItemRef{ItemKind: "gadget", ItemID: itemID}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItemRefClass(t *testing.T) {
	itemID := id.New()
	assert.Equal(t, ClassRaw, MaterialRef(itemID).Class())
	assert.Equal(t, ClassFinishedGoods, VariantRef(itemID).Class())
	assert.Equal(t, ClassWIP, WIPRef(itemID, 1).Class())
}

func TestLedgerEntryQtyDirection(t *testing.T) {
	item := MaterialRef(id.New())

	in := testEntry(item, EntryReceive, qty(7), types.MustMoney("1"))
	assert.Equal(t, qty(7), in.QtyIn)
	assert.Equal(t, types.Quantity(0), in.QtyOut)
	assert.Equal(t, qty(7), in.SignedQty())

	out := testEntry(item, EntryIssue, qty(7), types.MustMoney("1"))
	assert.Equal(t, types.Quantity(0), out.QtyIn)
	assert.Equal(t, qty(7), out.QtyOut)
	assert.Equal(t, qty(-7), out.SignedQty())
}

func TestLedgerEntryValidate(t *testing.T) {
	ctx := context.Background()
	item := MaterialRef(id.New())

	entry := testEntry(item, EntryReceive, qty(5), types.MustMoney("2"))
	require.NoError(t, entry.Validate(ctx))

	// Both directions set.
	bad := entry
	bad.QtyOut = qty(1)
	assert.Error(t, bad.Validate(ctx))

	// Direction does not match the entry type.
	bad = entry
	bad.QtyIn = 0
	bad.QtyOut = qty(5)
	assert.Error(t, bad.Validate(ctx))

	bad = entry
	bad.UnitCost = types.MustMoney("-1")
	assert.Error(t, bad.Validate(ctx))

	bad = entry
	bad.CompanyID = id.Nil()
	assert.Error(t, bad.Validate(ctx))
}
