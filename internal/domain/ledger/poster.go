package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kardex/internal/core/apperror"
	appctx "kardex/internal/core/context"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/internal/domain/periods"
	"kardex/pkg/logger"
)

// PostingAudit records posted entry sets to the audit trail.
type PostingAudit interface {
	RecordPosted(ctx context.Context, referenceType string, recorderID id.ID, entries []entity.LedgerEntry) error
}

// EventPublisher hands posted entries to the outbox for downstream
// consumers (reports tolerate eventual consistency).
type EventPublisher interface {
	PublishEntries(ctx context.Context, entries []entity.LedgerEntry) error
}

// EntryRequest describes one ledger entry to post. Qty is always positive;
// EntryType decides the direction.
type EntryRequest struct {
	Item        entity.ItemRef
	WarehouseID id.ID
	BinID       id.ID

	Date time.Time
	Type entity.EntryType
	Qty  types.Quantity

	// UnitCost is required for inbound entries. Outbound entries are
	// valued at the live weighted-average cost; CostFromRequest overrides
	// that for workflows that must post at a snapshotted cost (opname).
	UnitCost        types.Money
	CostFromRequest bool

	ReferenceType   string
	ReferenceNumber string
	RecorderID      id.ID
	RecorderType    string
}

// Validate checks request invariants before any locking happens.
func (r *EntryRequest) Validate() error {
	if err := r.Item.Validate(); err != nil {
		return err
	}
	if id.IsNil(r.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if !r.Type.Valid() {
		return apperror.NewValidation("unknown entry type").
			WithDetail("entryType", string(r.Type))
	}
	if !r.Qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("qty", r.Qty.String())
	}
	if r.Type.Inbound() && r.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost must not be negative").
			WithDetail("field", "unitCost")
	}
	if r.Date.IsZero() {
		return apperror.NewValidation("transaction date is required").
			WithDetail("field", "date")
	}
	return nil
}

// Poster appends entries to the ledgers and keeps the balance projection
// transactionally in step. All posting paths (receipts, issues,
// adjustments, transfers, backflush) go through PostSet.
type Poster struct {
	repo      Repository
	periods   *periods.Service
	txManager tx.Manager
	audit     PostingAudit   // optional
	events    EventPublisher // optional
}

// NewPoster creates a ledger poster.
func NewPoster(repo Repository, periodSvc *periods.Service, txManager tx.Manager) *Poster {
	return &Poster{
		repo:      repo,
		periods:   periodSvc,
		txManager: txManager,
	}
}

// WithAudit attaches the posting audit trail.
func (p *Poster) WithAudit(audit PostingAudit) *Poster {
	p.audit = audit
	return p
}

// WithEvents attaches the outbox publisher.
func (p *Poster) WithEvents(events EventPublisher) *Poster {
	p.events = events
	return p
}

// Receive posts an inbound receipt at an explicit unit cost.
func (p *Poster) Receive(ctx context.Context, companyID id.ID, req EntryRequest) (*entity.LedgerEntry, error) {
	req.Type = entity.EntryReceive
	return p.postOne(ctx, companyID, req)
}

// Issue posts an outbound issue valued at the live weighted-average cost.
// Fails with InsufficientStock when the balance cannot cover the quantity.
func (p *Poster) Issue(ctx context.Context, companyID id.ID, req EntryRequest) (*entity.LedgerEntry, error) {
	req.Type = entity.EntryIssue
	return p.postOne(ctx, companyID, req)
}

// AdjustIn posts a positive adjustment at an explicit unit cost.
func (p *Poster) AdjustIn(ctx context.Context, companyID id.ID, req EntryRequest) (*entity.LedgerEntry, error) {
	req.Type = entity.EntryAdjustIn
	return p.postOne(ctx, companyID, req)
}

// AdjustOut posts a negative adjustment.
func (p *Poster) AdjustOut(ctx context.Context, companyID id.ID, req EntryRequest) (*entity.LedgerEntry, error) {
	req.Type = entity.EntryAdjustOut
	return p.postOne(ctx, companyID, req)
}

func (p *Poster) postOne(ctx context.Context, companyID id.ID, req EntryRequest) (*entity.LedgerEntry, error) {
	entries, err := p.PostSet(ctx, companyID, []EntryRequest{req})
	if err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// PostSet posts a set of entries atomically: either every entry lands in
// its ledger and every touched balance reflects it, or nothing does.
//
// Inside one transaction, for every request in lock order: resolve and
// re-check the period, lock the balance row, verify stock for outbound
// entries, fold the weighted average, append the entry and save the
// projection. The FOR UPDATE lock serializes concurrent postings against
// the same (item, warehouse, bin); disjoint keys never contend.
func (p *Poster) PostSet(ctx context.Context, companyID id.ID, reqs []EntryRequest) ([]entity.LedgerEntry, error) {
	if len(reqs) == 0 {
		return nil, apperror.NewValidation("no entries to post")
	}
	if id.IsNil(companyID) {
		return nil, apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return nil, err
		}
	}

	// Lock balances in a stable order so concurrent multi-entry posts
	// cannot deadlock.
	order := make([]int, len(reqs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka := BalanceKey{CompanyID: companyID, Item: reqs[order[a]].Item, WarehouseID: reqs[order[a]].WarehouseID, BinID: reqs[order[a]].BinID}
		kb := BalanceKey{CompanyID: companyID, Item: reqs[order[b]].Item, WarehouseID: reqs[order[b]].WarehouseID, BinID: reqs[order[b]].BinID}
		return ka.String() < kb.String()
	})

	posted := make([]entity.LedgerEntry, len(reqs))

	err := p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		actor := appctx.Actor(ctx)
		balances := make(map[BalanceKey]*entity.Balance)

		for _, i := range order {
			req := &reqs[i]

			// Period status is re-read inside this transaction so a
			// concurrent close cannot race a posting into it.
			period, err := p.periods.Resolve(ctx, companyID, req.Date)
			if err != nil {
				return err
			}

			key := BalanceKey{CompanyID: companyID, Item: req.Item, WarehouseID: req.WarehouseID, BinID: req.BinID}
			bal, ok := balances[key]
			if !ok {
				locked, err := p.repo.GetBalanceForUpdate(ctx, key)
				if err != nil {
					return fmt.Errorf("lock balance %s: %w", key, err)
				}
				bal = &locked
				balances[key] = bal
			}

			unitCost := req.UnitCost
			if !req.Type.Inbound() {
				if bal.CurrentQty < req.Qty {
					return apperror.NewInsufficientStock(
						req.Item.String(),
						req.Qty.Float64(),
						bal.CurrentQty.Float64(),
					).WithDetail("warehouseId", req.WarehouseID.String())
				}
				if !req.CostFromRequest {
					unitCost = bal.AvgCost
				}
			}

			entry := entity.NewLedgerEntry(
				companyID, req.Item, req.WarehouseID, req.BinID,
				period.ID, req.Date, req.Type, req.Qty, unitCost,
				req.ReferenceType, req.ReferenceNumber,
			)
			entry.RecorderID = req.RecorderID
			entry.RecorderType = req.RecorderType
			entry.CreatedBy = actor

			bal.CompanyID = companyID
			bal.ItemRef = req.Item
			bal.WarehouseID = req.WarehouseID
			bal.BinID = req.BinID
			bal.Apply(&entry)

			posted[i] = entry
		}

		if err := p.repo.AppendEntries(ctx, posted); err != nil {
			return fmt.Errorf("append entries: %w", err)
		}
		for _, bal := range balances {
			if err := p.repo.SaveBalance(ctx, bal); err != nil {
				return fmt.Errorf("save balance: %w", err)
			}
		}

		if p.audit != nil {
			if err := p.audit.RecordPosted(ctx, reqs[0].ReferenceType, reqs[0].RecorderID, posted); err != nil {
				return fmt.Errorf("audit posting: %w", err)
			}
		}
		if p.events != nil {
			if err := p.events.PublishEntries(ctx, posted); err != nil {
				return fmt.Errorf("publish entries: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ledger entries posted",
		"count", len(posted),
		"reference_type", reqs[0].ReferenceType,
	)
	return posted, nil
}
