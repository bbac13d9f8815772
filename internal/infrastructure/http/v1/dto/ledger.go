package dto

import (
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
)

// --- Item reference ---

// ItemRefRequest identifies an inventory item in request bodies.
// Exactly one addressing mode: material, variant, or stage-scoped WIP.
type ItemRefRequest struct {
	ItemKind string `json:"itemKind" binding:"required"`
	ItemID   string `json:"itemId" binding:"required"`
	Stage    int    `json:"stage"`
}

// ToRef converts the request to a validated entity.ItemRef.
func (r *ItemRefRequest) ToRef() (entity.ItemRef, error) {
	itemID, err := id.Parse(r.ItemID)
	if err != nil {
		return entity.ItemRef{}, apperror.NewValidation("invalid item id format").
			WithDetail("field", "itemId")
	}

	ref := entity.ItemRef{
		ItemKind: entity.ItemKind(r.ItemKind),
		ItemID:   itemID,
		Stage:    r.Stage,
	}
	if err := ref.Validate(); err != nil {
		return entity.ItemRef{}, err
	}
	return ref, nil
}

// ItemRefResponse renders an item reference.
type ItemRefResponse struct {
	ItemKind string `json:"itemKind"`
	ItemID   string `json:"itemId"`
	Stage    int    `json:"stage,omitempty"`
}

// FromItemRef creates response DTO from entity.ItemRef.
func FromItemRef(r entity.ItemRef) ItemRefResponse {
	return ItemRefResponse{
		ItemKind: string(r.ItemKind),
		ItemID:   r.ItemID.String(),
		Stage:    r.Stage,
	}
}

// --- Posting requests ---

// PostEntryRequest is the request body for receive/issue/adjust operations.
// Qty is always positive; the endpoint decides the direction. UnitCost is
// required for inbound movements and ignored on outbound ones, which are
// valued at the live weighted-average cost.
type PostEntryRequest struct {
	Item        ItemRefRequest `json:"item" binding:"required"`
	WarehouseID string         `json:"warehouseId" binding:"required"`
	BinID       string         `json:"binId"`

	Date time.Time      `json:"date" binding:"required"`
	Qty  types.Quantity `json:"qty" binding:"required"`

	UnitCost *string `json:"unitCost"`

	ReferenceNumber string `json:"referenceNumber"`
}

// ToEntryRequest converts the request to a ledger.EntryRequest.
func (r *PostEntryRequest) ToEntryRequest() (ledger.EntryRequest, error) {
	item, err := r.Item.ToRef()
	if err != nil {
		return ledger.EntryRequest{}, err
	}

	warehouseID, err := id.Parse(r.WarehouseID)
	if err != nil {
		return ledger.EntryRequest{}, apperror.NewValidation("invalid warehouse id format").
			WithDetail("field", "warehouseId")
	}

	req := ledger.EntryRequest{
		Item:            item,
		WarehouseID:     warehouseID,
		Date:            r.Date,
		Qty:             r.Qty,
		UnitCost:        types.Zero(),
		ReferenceType:   entity.RefManual,
		ReferenceNumber: r.ReferenceNumber,
	}

	if r.BinID != "" {
		binID, err := id.Parse(r.BinID)
		if err != nil {
			return ledger.EntryRequest{}, apperror.NewValidation("invalid bin id format").
				WithDetail("field", "binId")
		}
		req.BinID = binID
	}

	if r.UnitCost != nil {
		cost, err := types.NewMoneyFromString(*r.UnitCost)
		if err != nil {
			return ledger.EntryRequest{}, apperror.NewValidation("invalid unit cost").
				WithDetail("field", "unitCost")
		}
		req.UnitCost = cost
	}

	return req, nil
}

// TransferRequest is the request body for a stock transfer.
type TransferRequest struct {
	Item ItemRefRequest `json:"item" binding:"required"`
	Qty  types.Quantity `json:"qty" binding:"required"`
	Date time.Time      `json:"date" binding:"required"`

	FromWarehouseID string `json:"fromWarehouseId" binding:"required"`
	FromBinID       string `json:"fromBinId"`
	ToWarehouseID   string `json:"toWarehouseId" binding:"required"`
	ToBinID         string `json:"toBinId"`

	Comment string `json:"comment"`
}

// ToTransferRequest converts the request to a ledger.TransferRequest.
func (r *TransferRequest) ToTransferRequest() (ledger.TransferRequest, error) {
	item, err := r.Item.ToRef()
	if err != nil {
		return ledger.TransferRequest{}, err
	}

	req := ledger.TransferRequest{
		Item:    item,
		Qty:     r.Qty,
		Date:    r.Date,
		Comment: r.Comment,
	}

	if req.FromWarehouseID, err = id.Parse(r.FromWarehouseID); err != nil {
		return ledger.TransferRequest{}, apperror.NewValidation("invalid source warehouse id").
			WithDetail("field", "fromWarehouseId")
	}
	if req.ToWarehouseID, err = id.Parse(r.ToWarehouseID); err != nil {
		return ledger.TransferRequest{}, apperror.NewValidation("invalid target warehouse id").
			WithDetail("field", "toWarehouseId")
	}
	if r.FromBinID != "" {
		if req.FromBinID, err = id.Parse(r.FromBinID); err != nil {
			return ledger.TransferRequest{}, apperror.NewValidation("invalid source bin id").
				WithDetail("field", "fromBinId")
		}
	}
	if r.ToBinID != "" {
		if req.ToBinID, err = id.Parse(r.ToBinID); err != nil {
			return ledger.TransferRequest{}, apperror.NewValidation("invalid target bin id").
				WithDetail("field", "toBinId")
		}
	}

	return req, nil
}

// --- Responses ---

// LedgerEntryResponse is one ledger entry.
type LedgerEntryResponse struct {
	ID              string          `json:"id"`
	Item            ItemRefResponse `json:"item"`
	WarehouseID     string          `json:"warehouseId"`
	BinID           string          `json:"binId,omitempty"`
	PeriodID        string          `json:"periodId"`
	TransactionDate time.Time       `json:"transactionDate"`
	EntryType       string          `json:"entryType"`
	QtyIn           types.Quantity  `json:"qtyIn"`
	QtyOut          types.Quantity  `json:"qtyOut"`
	UnitCost        string          `json:"unitCost"`
	RecorderID      string          `json:"recorderId,omitempty"`
	RecorderType    string          `json:"recorderType,omitempty"`
	ReferenceType   string          `json:"referenceType"`
	ReferenceNumber string          `json:"referenceNumber,omitempty"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// FromLedgerEntry creates response DTO from a ledger entry.
func FromLedgerEntry(e entity.LedgerEntry) LedgerEntryResponse {
	resp := LedgerEntryResponse{
		ID:              e.ID.String(),
		Item:            FromItemRef(e.ItemRef),
		WarehouseID:     e.WarehouseID.String(),
		PeriodID:        e.PeriodID.String(),
		TransactionDate: e.TransactionDate,
		EntryType:       string(e.EntryType),
		QtyIn:           e.QtyIn,
		QtyOut:          e.QtyOut,
		UnitCost:        e.UnitCost.String(),
		RecorderType:    e.RecorderType,
		ReferenceType:   e.ReferenceType,
		ReferenceNumber: e.ReferenceNumber,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
	}
	if !id.IsNil(e.BinID) {
		resp.BinID = e.BinID.String()
	}
	if !id.IsNil(e.RecorderID) {
		resp.RecorderID = e.RecorderID.String()
	}
	return resp
}

// LedgerEntryListResponse wraps entry collections.
type LedgerEntryListResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	TotalCount int                   `json:"totalCount"`
}

// FromLedgerEntries maps a slice of entries.
func FromLedgerEntries(entries []entity.LedgerEntry) LedgerEntryListResponse {
	items := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = FromLedgerEntry(e)
	}
	return LedgerEntryListResponse{Items: items, TotalCount: len(items)}
}

// BalanceResponse is one balance projection row.
type BalanceResponse struct {
	Item        ItemRefResponse `json:"item"`
	WarehouseID string          `json:"warehouseId"`
	BinID       string          `json:"binId,omitempty"`
	CurrentQty  types.Quantity  `json:"currentQty"`
	AvgCost     string          `json:"avgCost"`
	TotalValue  string          `json:"totalValue"`
	LastEntryAt time.Time       `json:"lastEntryAt"`
}

// FromBalance creates response DTO from a balance.
func FromBalance(b entity.Balance) BalanceResponse {
	resp := BalanceResponse{
		Item:        FromItemRef(b.ItemRef),
		WarehouseID: b.WarehouseID.String(),
		CurrentQty:  b.CurrentQty,
		AvgCost:     b.AvgCost.String(),
		TotalValue:  b.TotalValue().String(),
		LastEntryAt: b.LastEntryAt,
	}
	if !id.IsNil(b.BinID) {
		resp.BinID = b.BinID.String()
	}
	return resp
}

// BalanceListResponse wraps balance collections.
type BalanceListResponse struct {
	Items []BalanceResponse `json:"items"`
}

// FromBalances maps a slice of balances.
func FromBalances(balances []entity.Balance) BalanceListResponse {
	items := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		items[i] = FromBalance(b)
	}
	return BalanceListResponse{Items: items}
}

// TransferResponse is the posted transfer pair.
type TransferResponse struct {
	Reference string              `json:"reference"`
	OutEntry  LedgerEntryResponse `json:"outEntry"`
	InEntry   LedgerEntryResponse `json:"inEntry"`
}

// FromTransferResult creates response DTO from a transfer result.
func FromTransferResult(res *ledger.TransferResult) TransferResponse {
	return TransferResponse{
		Reference: res.Reference,
		OutEntry:  FromLedgerEntry(res.OutEntry),
		InEntry:   FromLedgerEntry(res.InEntry),
	}
}

// TurnoverResponse is the receipt/issue totals report.
type TurnoverResponse struct {
	FromDate   time.Time      `json:"fromDate"`
	ToDate     time.Time      `json:"toDate"`
	OpeningQty types.Quantity `json:"openingQty"`
	InQty      types.Quantity `json:"inQty"`
	OutQty     types.Quantity `json:"outQty"`
	ClosingQty types.Quantity `json:"closingQty"`
	InValue    string         `json:"inValue"`
	OutValue   string         `json:"outValue"`
}

// FromTurnover creates response DTO from a turnover aggregate.
func FromTurnover(t ledger.Turnover, from, to time.Time) TurnoverResponse {
	return TurnoverResponse{
		FromDate:   from,
		ToDate:     to,
		OpeningQty: t.OpeningQty,
		InQty:      t.InQty,
		OutQty:     t.OutQty,
		ClosingQty: t.ClosingQty,
		InValue:    t.InValue.String(),
		OutValue:   t.OutValue.String(),
	}
}

// ValuationRowResponse is one line of the stock valuation report.
type ValuationRowResponse struct {
	Item        ItemRefResponse `json:"item"`
	WarehouseID string          `json:"warehouseId"`
	BinID       string          `json:"binId,omitempty"`
	Qty         types.Quantity  `json:"qty"`
	AvgCost     string          `json:"avgCost"`
	TotalValue  string          `json:"totalValue"`
}

// ValuationResponse is the stock valuation report.
type ValuationResponse struct {
	Rows       []ValuationRowResponse `json:"rows"`
	TotalValue string                 `json:"totalValue"`
}

// FromValuation creates response DTO from valuation rows.
func FromValuation(rows []ledger.ValuationRow) ValuationResponse {
	resp := ValuationResponse{Rows: make([]ValuationRowResponse, len(rows))}
	total := types.Zero()
	for i, row := range rows {
		resp.Rows[i] = ValuationRowResponse{
			Item:        FromItemRef(row.Item),
			WarehouseID: row.WarehouseID.String(),
			Qty:         row.Qty,
			AvgCost:     row.AvgCost.String(),
			TotalValue:  row.TotalValue.String(),
		}
		if !id.IsNil(row.BinID) {
			resp.Rows[i].BinID = row.BinID.String()
		}
		total = total.Add(row.TotalValue)
	}
	resp.TotalValue = total.String()
	return resp
}
