package opname

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func draftWithLines(t *testing.T, lines int) *Opname {
	t.Helper()
	doc := New(id.New(), id.New())
	doc.Number = "OPN-2026-00001"
	for i := 0; i < lines; i++ {
		require.NoError(t, doc.AddLine(entity.MaterialRef(id.New()), id.Nil(), qty(10), types.MustMoney("5")))
	}
	return doc
}

func TestOpnameLifecycle(t *testing.T) {
	doc := draftWithLines(t, 2)
	assert.Equal(t, StatusDraft, doc.Status)

	require.NoError(t, doc.StartCounting())
	assert.Equal(t, StatusCounting, doc.Status)
	assert.NotNil(t, doc.StartedAt)

	// Completing with uncounted lines is rejected.
	require.Error(t, doc.Complete())

	require.NoError(t, doc.SetPhysicalCount(1, qty(10), "", "tester"))
	require.NoError(t, doc.SetPhysicalCount(2, qty(8), "damage", "tester"))
	require.NoError(t, doc.Complete())
	assert.Equal(t, StatusCompleted, doc.Status)
	assert.NotNil(t, doc.CompletedAt)
}

func TestOpnameStartCountingGuards(t *testing.T) {
	empty := New(id.New(), id.New())
	require.Error(t, empty.StartCounting(), "empty sheet cannot start counting")

	doc := draftWithLines(t, 1)
	require.NoError(t, doc.StartCounting())
	require.Error(t, doc.StartCounting(), "only draft can start counting")
}

func TestOpnameSetPhysicalCount(t *testing.T) {
	doc := draftWithLines(t, 2)

	// Counts are only accepted in counting status.
	require.Error(t, doc.SetPhysicalCount(1, qty(5), "", "tester"))

	require.NoError(t, doc.StartCounting())
	require.Error(t, doc.SetPhysicalCount(0, qty(5), "", "tester"))
	require.Error(t, doc.SetPhysicalCount(3, qty(5), "", "tester"))
	require.Error(t, doc.SetPhysicalCount(1, qty(-1), "", "tester"))

	require.NoError(t, doc.SetPhysicalCount(1, qty(12), "", "tester"))
	require.NoError(t, doc.SetPhysicalCount(2, qty(7), "shrinkage", "tester"))

	assert.Equal(t, qty(2), doc.Lines[0].VarianceQty)
	assert.Equal(t, qty(-3), doc.Lines[1].VarianceQty)
	assert.Equal(t, qty(20), doc.TotalSystemQty)
	assert.Equal(t, qty(19), doc.TotalPhysicalQty)
	assert.Equal(t, qty(2), doc.TotalSurplusQty)
	assert.Equal(t, qty(3), doc.TotalShortageQty)
	assert.True(t, doc.Lines[1].Counted)
	assert.Equal(t, "shrinkage", doc.Lines[1].ReasonCode)
}

func TestOpnameCancelRules(t *testing.T) {
	doc := draftWithLines(t, 1)
	require.NoError(t, doc.Cancel())
	assert.Equal(t, StatusCancelled, doc.Status)

	counting := draftWithLines(t, 1)
	require.NoError(t, counting.StartCounting())
	require.NoError(t, counting.Cancel())

	completed := draftWithLines(t, 1)
	require.NoError(t, completed.StartCounting())
	require.NoError(t, completed.SetPhysicalCount(1, qty(10), "", "tester"))
	require.NoError(t, completed.Complete())
	require.Error(t, completed.Cancel(), "completed opname cannot be cancelled")
}

func TestOpnameGenerateEntries(t *testing.T) {
	ctx := context.Background()
	doc := draftWithLines(t, 3)
	require.NoError(t, doc.StartCounting())

	require.NoError(t, doc.SetPhysicalCount(1, qty(12), "", "tester")) // surplus +2
	require.NoError(t, doc.SetPhysicalCount(2, qty(10), "", "tester")) // exact
	require.NoError(t, doc.SetPhysicalCount(3, qty(6), "", "tester"))  // shortage -4
	require.NoError(t, doc.Complete())

	reqs, err := doc.GenerateEntries(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 2, "zero-variance lines post nothing")

	surplus := reqs[0]
	assert.Equal(t, entity.EntryAdjustIn, surplus.Type)
	assert.Equal(t, qty(2), surplus.Qty)
	assert.True(t, surplus.CostFromRequest)
	assert.True(t, surplus.UnitCost.Equal(types.MustMoney("5")), "variance priced at the snapshot")
	assert.Equal(t, entity.RefOpname, surplus.ReferenceType)
	assert.Equal(t, doc.Number, surplus.ReferenceNumber)

	shortage := reqs[1]
	assert.Equal(t, entity.EntryAdjustOut, shortage.Type)
	assert.Equal(t, qty(4), shortage.Qty)
	assert.True(t, shortage.CostFromRequest)
}

func TestOpnameCanPost(t *testing.T) {
	ctx := context.Background()

	doc := draftWithLines(t, 1)
	require.Error(t, doc.CanPost(ctx), "draft cannot post")

	require.NoError(t, doc.StartCounting())
	require.NoError(t, doc.SetPhysicalCount(1, qty(9), "", "tester"))
	require.NoError(t, doc.Complete())
	require.NoError(t, doc.CanPost(ctx))
}

func TestOpnameAddLineAfterCompletionRejected(t *testing.T) {
	doc := draftWithLines(t, 1)
	require.NoError(t, doc.StartCounting())

	// Lines can still be added while counting.
	require.NoError(t, doc.AddLine(entity.MaterialRef(id.New()), id.Nil(), qty(1), types.MustMoney("1")))

	require.NoError(t, doc.SetPhysicalCount(1, qty(10), "", "tester"))
	require.NoError(t, doc.SetPhysicalCount(2, qty(1), "", "tester"))
	require.NoError(t, doc.Complete())
	require.Error(t, doc.AddLine(entity.MaterialRef(id.New()), id.Nil(), qty(1), types.MustMoney("1")))
}
