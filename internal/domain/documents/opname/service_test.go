package opname

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
	"kardex/internal/domain"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/periods"
	"kardex/internal/domain/posting"
)

// memDocRepo is an in-memory opname Repository for service tests.
type memDocRepo struct {
	docs  map[id.ID]Opname
	lines map[id.ID][]Line
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{
		docs:  make(map[id.ID]Opname),
		lines: make(map[id.ID][]Line),
	}
}

func (r *memDocRepo) Create(ctx context.Context, doc *Opname) error {
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memDocRepo) GetByID(ctx context.Context, docID id.ID) (*Opname, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("opname", docID)
	}
	cp := doc
	return &cp, nil
}

func (r *memDocRepo) Update(ctx context.Context, doc *Opname) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("opname", doc.ID)
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memDocRepo) Delete(ctx context.Context, docID id.ID) error {
	delete(r.docs, docID)
	delete(r.lines, docID)
	return nil
}

func (r *memDocRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *memDocRepo) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (r *memDocRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Opname], error) {
	var items []*Opname
	for docID := range r.docs {
		doc, _ := r.GetByID(ctx, docID)
		items = append(items, doc)
	}
	return domain.ListResult[*Opname]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *memDocRepo) GetForUpdate(ctx context.Context, docID id.ID) (*Opname, error) {
	return r.GetByID(ctx, docID)
}

var _ Repository = (*memDocRepo)(nil)

type serviceEnv struct {
	companyID   id.ID
	warehouseID id.ID
	ledgerRepo  *ledger.MemoryRepository
	poster      *ledger.Poster
	service     *Service
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	companyID := id.New()

	// One wide-open period so document dates never fall outside it.
	periodRepo := periods.NewMemoryRepository()
	period := periods.NewPeriod(companyID, "all",
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, periodRepo.Create(context.Background(), period))

	ledgerRepo := ledger.NewMemoryRepository()
	poster := ledger.NewPoster(ledgerRepo, periods.NewService(periodRepo, tx.MockManager{}), tx.MockManager{})
	engine := posting.NewEngine(poster, tx.MockManager{})
	projector := ledger.NewProjector(ledgerRepo, tx.MockManager{})

	service := NewService(newMemDocRepo(), engine, projector, &numerator.MockGenerator{}, tx.MockManager{})

	return &serviceEnv{
		companyID:   companyID,
		warehouseID: id.New(),
		ledgerRepo:  ledgerRepo,
		poster:      poster,
		service:     service,
	}
}

func (e *serviceEnv) stock(t *testing.T, item entity.ItemRef, q types.Quantity, cost string) {
	t.Helper()
	_, err := e.poster.Receive(context.Background(), e.companyID, ledger.EntryRequest{
		Item:            item,
		WarehouseID:     e.warehouseID,
		Date:            time.Now().UTC(),
		Qty:             q,
		UnitCost:        types.MustMoney(cost),
		ReferenceType:   entity.RefManual,
		ReferenceNumber: "SEED",
	})
	require.NoError(t, err)
}

func (e *serviceEnv) lineNoOf(t *testing.T, doc *Opname, item entity.ItemRef) int {
	t.Helper()
	for _, line := range doc.Lines {
		if line.Item == item {
			return line.LineNo
		}
	}
	t.Fatalf("no line for item %s", item)
	return 0
}

func TestServicePrepareSheetSnapshotsBalances(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	itemA := entity.MaterialRef(id.New())
	itemB := entity.MaterialRef(id.New())
	env.stock(t, itemA, qty(10), "5")
	env.stock(t, itemB, qty(4), "2.5")

	doc := New(env.companyID, env.warehouseID)
	require.NoError(t, env.service.Create(ctx, doc))
	assert.NotEmpty(t, doc.Number)

	prepared, err := env.service.PrepareSheet(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, prepared.Lines, 2)

	lineA := prepared.Lines[env.lineNoOf(t, prepared, itemA)-1]
	assert.Equal(t, qty(10), lineA.SystemQty)
	assert.True(t, lineA.SystemUnitCost.Equal(types.MustMoney("5")))
	assert.False(t, lineA.Counted)

	// Only draft documents can prepare a sheet.
	require.NoError(t, env.service.StartCounting(ctx, doc.ID))
	_, err = env.service.PrepareSheet(ctx, doc.ID)
	assert.Error(t, err)
}

func TestServicePostReconcilesLedger(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	itemA := entity.MaterialRef(id.New())
	itemB := entity.MaterialRef(id.New())
	env.stock(t, itemA, qty(10), "5")
	env.stock(t, itemB, qty(4), "2.5")

	doc := New(env.companyID, env.warehouseID)
	require.NoError(t, env.service.Create(ctx, doc))
	prepared, err := env.service.PrepareSheet(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, env.service.StartCounting(ctx, doc.ID))
	require.NoError(t, env.service.UpdatePhysicalCount(ctx, doc.ID, env.lineNoOf(t, prepared, itemA), qty(12), "found"))
	require.NoError(t, env.service.UpdatePhysicalCount(ctx, doc.ID, env.lineNoOf(t, prepared, itemB), qty(1), "shrinkage"))
	require.NoError(t, env.service.Complete(ctx, doc.ID))

	require.NoError(t, env.service.Post(ctx, doc.ID))

	posted, err := env.service.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, posted.Posted)

	// The ledger now matches the physical count.
	balA, err := env.ledgerRepo.GetBalance(ctx, ledger.BalanceKey{CompanyID: env.companyID, Item: itemA, WarehouseID: env.warehouseID})
	require.NoError(t, err)
	assert.Equal(t, qty(12), balA.CurrentQty)

	balB, err := env.ledgerRepo.GetBalance(ctx, ledger.BalanceKey{CompanyID: env.companyID, Item: itemB, WarehouseID: env.warehouseID})
	require.NoError(t, err)
	assert.Equal(t, qty(1), balB.CurrentQty)

	// Every adjustment traces back to the document.
	entries, err := env.ledgerRepo.GetEntriesByRecorder(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "Opname", e.RecorderType)
		assert.Equal(t, entity.RefOpname, e.ReferenceType)
	}

	// Posting is one-way.
	err = env.service.Post(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeAlreadyPosted))
}

func TestServicePostNoVariancePostsNothing(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	item := entity.MaterialRef(id.New())
	env.stock(t, item, qty(10), "5")

	doc := New(env.companyID, env.warehouseID)
	require.NoError(t, env.service.Create(ctx, doc))
	_, err := env.service.PrepareSheet(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, env.service.StartCounting(ctx, doc.ID))
	require.NoError(t, env.service.UpdatePhysicalCount(ctx, doc.ID, 1, qty(10), ""))
	require.NoError(t, env.service.Complete(ctx, doc.ID))
	require.NoError(t, env.service.Post(ctx, doc.ID))

	posted, err := env.service.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, posted.Posted)

	entries, err := env.ledgerRepo.GetEntriesByRecorder(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServiceAddLineSnapshotsBalance(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	item := entity.MaterialRef(id.New())
	env.stock(t, item, qty(7), "3")

	doc := New(env.companyID, env.warehouseID)
	require.NoError(t, env.service.Create(ctx, doc))

	updated, err := env.service.AddLine(ctx, doc.ID, LineInput{Item: item})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, qty(7), updated.Lines[0].SystemQty)
	assert.True(t, updated.Lines[0].SystemUnitCost.Equal(types.MustMoney("3")))

	// Items with no stock still snapshot a zero balance.
	updated, err = env.service.AddLine(ctx, doc.ID, LineInput{Item: entity.MaterialRef(id.New())})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 2)
	assert.True(t, updated.Lines[1].SystemQty.IsZero())
}

func TestServiceGetComparison(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	item := entity.MaterialRef(id.New())
	env.stock(t, item, qty(10), "5")

	doc := New(env.companyID, env.warehouseID)
	require.NoError(t, env.service.Create(ctx, doc))
	_, err := env.service.PrepareSheet(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, env.service.StartCounting(ctx, doc.ID))
	require.NoError(t, env.service.UpdatePhysicalCount(ctx, doc.ID, 1, qty(6), "shrinkage"))

	comparison, err := env.service.GetComparison(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, comparison.Items, 1)

	line := comparison.Items[0]
	assert.Equal(t, qty(10), line.SystemQty)
	assert.Equal(t, qty(6), line.PhysicalQty)
	assert.Equal(t, qty(-4), line.VarianceQty)
	assert.True(t, line.VarianceValue.Equal(types.MustMoney("-20")), "value = %s", line.VarianceValue)
	assert.Equal(t, "shrinkage", line.ReasonCode)
	assert.Equal(t, qty(4), comparison.TotalShortageQty)
}

func TestServiceDeleteRejectsPosted(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	item := entity.MaterialRef(id.New())
	env.stock(t, item, qty(5), "1")

	doc := New(env.companyID, env.warehouseID)
	require.NoError(t, env.service.Create(ctx, doc))
	_, err := env.service.PrepareSheet(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, env.service.StartCounting(ctx, doc.ID))
	require.NoError(t, env.service.UpdatePhysicalCount(ctx, doc.ID, 1, qty(5), ""))
	require.NoError(t, env.service.Complete(ctx, doc.ID))
	require.NoError(t, env.service.Post(ctx, doc.ID))

	err = env.service.Delete(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeAlreadyPosted))
}
