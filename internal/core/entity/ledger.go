// Package entity provides core domain entities.
package entity

import (
	"context"
	"strconv"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// EntryType defines the movement kind of a ledger entry.
type EntryType string

const (
	EntryReceive       EntryType = "RECEIVE"
	EntryIssue         EntryType = "ISSUE"
	EntryAdjustIn      EntryType = "ADJUST_IN"
	EntryAdjustOut     EntryType = "ADJUST_OUT"
	EntryTransferIn    EntryType = "TRANSFER_IN"
	EntryTransferOut   EntryType = "TRANSFER_OUT"
	EntryProductionIn  EntryType = "PRODUCTION_IN"
	EntryProductionOut EntryType = "PRODUCTION_OUT"
)

// Inbound reports whether the entry type increases stock.
// Only inbound entries may change the weighted-average cost.
func (t EntryType) Inbound() bool {
	switch t {
	case EntryReceive, EntryAdjustIn, EntryTransferIn, EntryProductionIn:
		return true
	}
	return false
}

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryReceive, EntryIssue, EntryAdjustIn, EntryAdjustOut,
		EntryTransferIn, EntryTransferOut, EntryProductionIn, EntryProductionOut:
		return true
	}
	return false
}

// LedgerClass selects the physical ledger partition an entry lands in.
// The three ledgers share one table schema.
type LedgerClass string

const (
	ClassRaw           LedgerClass = "raw"
	ClassWIP           LedgerClass = "wip"
	ClassFinishedGoods LedgerClass = "finished_goods"
)

// ItemKind addresses what a ledger entry moves: a raw material, a sellable
// product variant, or a stage-scoped work-in-progress item.
type ItemKind string

const (
	ItemMaterial ItemKind = "material"
	ItemVariant  ItemKind = "variant"
	ItemWIP      ItemKind = "wip"
)

// Reference types stamped on ledger entries by their originating workflow.
const (
	RefOpname     = "OPNAME"
	RefTransfer   = "TRANSFER"
	RefProduction = "PRODUCTION"
	RefManual     = "MANUAL"
)

// ItemRef identifies the inventory item dimension of a ledger entry.
// Exactly one addressing mode: material XOR variant XOR stage-scoped WIP.
type ItemRef struct {
	ItemKind ItemKind `db:"item_kind" json:"itemKind"`
	ItemID   id.ID    `db:"item_id" json:"itemId"`

	// Stage is only meaningful for WIP items (production stage number).
	Stage int `db:"stage" json:"stage,omitempty"`
}

// MaterialRef addresses a raw material.
func MaterialRef(materialID id.ID) ItemRef {
	return ItemRef{ItemKind: ItemMaterial, ItemID: materialID}
}

// VariantRef addresses a finished-goods product variant.
func VariantRef(variantID id.ID) ItemRef {
	return ItemRef{ItemKind: ItemVariant, ItemID: variantID}
}

// WIPRef addresses work-in-progress output of a production stage.
func WIPRef(itemID id.ID, stage int) ItemRef {
	return ItemRef{ItemKind: ItemWIP, ItemID: itemID, Stage: stage}
}

// Class maps the item kind to its ledger partition.
func (r ItemRef) Class() LedgerClass {
	switch r.ItemKind {
	case ItemVariant:
		return ClassFinishedGoods
	case ItemWIP:
		return ClassWIP
	default:
		return ClassRaw
	}
}

// Validate checks the single-addressing-mode invariant.
func (r ItemRef) Validate() error {
	if id.IsNil(r.ItemID) {
		return apperror.NewValidation("item reference is required").
			WithDetail("field", "itemId")
	}
	switch r.ItemKind {
	case ItemMaterial, ItemVariant:
		if r.Stage != 0 {
			return apperror.NewValidation("stage is only valid for WIP items").
				WithDetail("itemKind", string(r.ItemKind))
		}
	case ItemWIP:
		if r.Stage <= 0 {
			return apperror.NewValidation("WIP items require a positive stage").
				WithDetail("field", "stage")
		}
	default:
		return apperror.NewValidation("unknown item kind").
			WithDetail("itemKind", string(r.ItemKind))
	}
	return nil
}

// String renders the ref for error details and logging.
func (r ItemRef) String() string {
	s := string(r.ItemKind) + ":" + r.ItemID.String()
	if r.ItemKind == ItemWIP {
		s += "@" + strconv.Itoa(r.Stage)
	}
	return s
}

// LedgerEntry is one immutable row in an inventory ledger.
// Entries are append-only: they are never updated or deleted after creation,
// corrections are new compensating entries.
type LedgerEntry struct {
	// ID is unique identifier for this entry (UUIDv7, time-ordered)
	ID id.ID `db:"id" json:"id"`

	// CompanyID keys the ledger partition
	CompanyID id.ID `db:"company_id" json:"companyId"`

	// Item dimension (material XOR variant XOR stage-scoped WIP)
	ItemRef

	// Location dimensions
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	BinID       id.ID `db:"bin_id" json:"binId"`

	// PeriodID is the accounting period the entry posts into
	PeriodID id.ID `db:"period_id" json:"periodId"`

	// TransactionDate is the business date of the movement
	TransactionDate time.Time `db:"transaction_date" json:"transactionDate"`

	EntryType EntryType `db:"entry_type" json:"entryType"`

	// Resources. Exactly one of QtyIn/QtyOut is non-zero.
	QtyIn  types.Quantity `db:"qty_in" json:"qtyIn"`
	QtyOut types.Quantity `db:"qty_out" json:"qtyOut"`

	// UnitCost values the movement. On outbound entries it is the location's
	// weighted-average cost at posting time, never a caller-supplied price.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// Recorder is the document that produced this entry, when one exists
	RecorderID   id.ID  `db:"recorder_id" json:"recorderId,omitempty"`
	RecorderType string `db:"recorder_type" json:"recorderType,omitempty"`

	// Source workflow reference
	ReferenceType   string `db:"reference_type" json:"referenceType"`
	ReferenceNumber string `db:"reference_number" json:"referenceNumber"`

	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Posted bool `db:"posted" json:"posted"`
}

// NewLedgerEntry creates a ledger entry with generated ID and timestamp.
// qty is always positive; the entry type decides the direction.
func NewLedgerEntry(
	companyID id.ID,
	item ItemRef,
	warehouseID, binID id.ID,
	periodID id.ID,
	txDate time.Time,
	entryType EntryType,
	qty types.Quantity,
	unitCost types.Money,
	refType, refNumber string,
) LedgerEntry {
	e := LedgerEntry{
		ID:              id.New(),
		CompanyID:       companyID,
		ItemRef:         item,
		WarehouseID:     warehouseID,
		BinID:           binID,
		PeriodID:        periodID,
		TransactionDate: txDate,
		EntryType:       entryType,
		UnitCost:        types.RoundCost(unitCost),
		ReferenceType:   refType,
		ReferenceNumber: refNumber,
		CreatedAt:       time.Now().UTC(),
		Posted:          true,
	}
	if entryType.Inbound() {
		e.QtyIn = qty
	} else {
		e.QtyOut = qty
	}
	return e
}

// Qty returns the moved quantity regardless of direction.
func (e *LedgerEntry) Qty() types.Quantity {
	if e.QtyIn > 0 {
		return e.QtyIn
	}
	return e.QtyOut
}

// SignedQty returns quantity with sign: inbound positive, outbound negative.
func (e *LedgerEntry) SignedQty() types.Quantity {
	return e.QtyIn - e.QtyOut
}

// Validate implements Validatable.
func (e *LedgerEntry) Validate(ctx context.Context) error {
	if id.IsNil(e.CompanyID) {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if err := e.ItemRef.Validate(); err != nil {
		return err
	}
	if id.IsNil(e.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if id.IsNil(e.PeriodID) {
		return apperror.NewValidation("period is required").
			WithDetail("field", "periodId")
	}
	if !e.EntryType.Valid() {
		return apperror.NewValidation("unknown entry type").
			WithDetail("entryType", string(e.EntryType))
	}
	if e.QtyIn < 0 || e.QtyOut < 0 {
		return apperror.NewValidation("quantities must not be negative")
	}
	if (e.QtyIn > 0) == (e.QtyOut > 0) {
		return apperror.NewValidation("exactly one of qtyIn/qtyOut must be set")
	}
	if e.EntryType.Inbound() != (e.QtyIn > 0) {
		return apperror.NewValidation("quantity direction does not match entry type").
			WithDetail("entryType", string(e.EntryType))
	}
	if e.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost must not be negative").
			WithDetail("field", "unitCost")
	}
	return nil
}

// Balance is the derived projection of one ledger key: current quantity and
// weighted-average unit cost for (item, warehouse, bin). It may be
// materialized for fast reads, but it is always reconstructable by folding
// the posted entries in order; the entry log is the source of truth.
type Balance struct {
	// Dimensions
	CompanyID id.ID `db:"company_id" json:"companyId"`
	ItemRef
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	BinID       id.ID `db:"bin_id" json:"binId"`

	// Resources
	CurrentQty types.Quantity `db:"current_qty" json:"currentQty"`
	AvgCost    types.Money    `db:"avg_cost" json:"avgCost"`

	// Metadata
	LastEntryAt time.Time `db:"last_entry_at" json:"lastEntryAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// TotalValue returns current_qty × weighted_avg_cost.
func (b *Balance) TotalValue() types.Money {
	return types.RoundCost(b.CurrentQty.Decimal().Mul(b.AvgCost))
}

// Apply folds one entry into the balance. The weighted-average update rule
// on a receipt of quantity q at cost c into (Q, C):
//
//	C' = (Q·C + q·c) / (Q + q)   when Q+q > 0, else C' = c
//
// rounded to types.CostScale digits, half away from zero. Outbound entries
// consume at the current average and never change it. The fold is a pure
// function of the entry sequence, so replays are deterministic.
func (b *Balance) Apply(e *LedgerEntry) {
	if e.EntryType.Inbound() {
		newQty := b.CurrentQty + e.QtyIn
		if newQty > 0 {
			total := b.CurrentQty.Decimal().Mul(b.AvgCost).
				Add(e.QtyIn.Decimal().Mul(e.UnitCost))
			b.AvgCost = types.RoundCost(total.Div(newQty.Decimal()))
		} else {
			b.AvgCost = types.RoundCost(e.UnitCost)
		}
		b.CurrentQty = newQty
	} else {
		b.CurrentQty -= e.QtyOut
	}
	b.LastEntryAt = e.CreatedAt
	b.UpdatedAt = time.Now().UTC()
}
