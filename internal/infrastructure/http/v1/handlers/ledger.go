package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves posting operations and ledger queries.
type LedgerHandler struct {
	*BaseHandler
	poster    *ledger.Poster
	projector *ledger.Projector
	transfers *ledger.TransferCoordinator
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(
	base *BaseHandler,
	poster *ledger.Poster,
	projector *ledger.Projector,
	transfers *ledger.TransferCoordinator,
) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		poster:      poster,
		projector:   projector,
		transfers:   transfers,
	}
}

// Receive handles POST /ledger/receive
func (h *LedgerHandler) Receive(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var req dto.PostEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entryReq, err := req.ToEntryRequest()
	if err != nil {
		h.Error(c, err)
		return
	}
	if req.UnitCost == nil {
		h.Error(c, apperror.NewValidation("unit cost is required for receipts").
			WithDetail("field", "unitCost"))
		return
	}

	entry, err := h.poster.Receive(c.Request.Context(), companyID, entryReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromLedgerEntry(*entry)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Issue handles POST /ledger/issue
func (h *LedgerHandler) Issue(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var req dto.PostEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entryReq, err := req.ToEntryRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	entry, err := h.poster.Issue(c.Request.Context(), companyID, entryReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromLedgerEntry(*entry)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// AdjustIn handles POST /ledger/adjust-in
func (h *LedgerHandler) AdjustIn(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var req dto.PostEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entryReq, err := req.ToEntryRequest()
	if err != nil {
		h.Error(c, err)
		return
	}
	if req.UnitCost == nil {
		h.Error(c, apperror.NewValidation("unit cost is required for inbound adjustments").
			WithDetail("field", "unitCost"))
		return
	}

	entry, err := h.poster.AdjustIn(c.Request.Context(), companyID, entryReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromLedgerEntry(*entry)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// AdjustOut handles POST /ledger/adjust-out
func (h *LedgerHandler) AdjustOut(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var req dto.PostEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entryReq, err := req.ToEntryRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	entry, err := h.poster.AdjustOut(c.Request.Context(), companyID, entryReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromLedgerEntry(*entry)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Transfer handles POST /ledger/transfer
func (h *LedgerHandler) Transfer(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	transferReq, err := req.ToTransferRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.transfers.Transfer(c.Request.Context(), companyID, transferReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromTransferResult(result)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// GetBalances handles GET /ledger/balances
func (h *LedgerHandler) GetBalances(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	warehouseIDStr := c.Query("warehouseId")
	if warehouseIDStr == "" {
		// Item-scoped view across warehouses.
		item, ok := h.parseItemQuery(c, true)
		if !ok {
			return
		}

		balances, err := h.projector.GetItemBalances(ctx, companyID, *item)
		if err != nil {
			h.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromBalances(balances))
		return
	}

	warehouseID, err := id.Parse(warehouseIDStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	filter := ledger.BalanceFilter{
		ExcludeZero: c.Query("excludeZero") != "false",
	}
	if classStr := c.Query("class"); classStr != "" {
		class := entity.LedgerClass(classStr)
		filter.Class = &class
	}

	balances, err := h.projector.GetWarehouseBalances(ctx, companyID, warehouseID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromBalances(balances))
}

// GetAvailability handles GET /ledger/availability
// Returns the summed quantity of one item across all locations.
func (h *LedgerHandler) GetAvailability(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	item, ok := h.parseItemQuery(c, true)
	if !ok {
		return
	}

	balance, err := h.projector.GetItemAvailability(c.Request.Context(), companyID, *item)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item":     dto.FromItemRef(*item),
		"quantity": balance.CurrentQty,
		"avgCost":  balance.AvgCost.String(),
	})
}

// GetHistory handles GET /ledger/history
func (h *LedgerHandler) GetHistory(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	filter := ledger.HistoryFilter{
		CompanyID: companyID,
		Limit:     h.ParseIntQuery(c, "limit", 100),
		Offset:    h.ParseIntQuery(c, "offset", 0),
	}

	item, ok := h.parseItemQuery(c, false)
	if !ok {
		return
	}
	filter.Item = item

	if whStr := c.Query("warehouseId"); whStr != "" {
		parsed, err := id.Parse(whStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid warehouseId format"))
			return
		}
		filter.WarehouseID = &parsed
	}

	if typeStr := c.Query("entryType"); typeStr != "" {
		entryType := entity.EntryType(typeStr)
		if !entryType.Valid() {
			h.Error(c, apperror.NewValidation("unknown entry type").
				WithDetail("entryType", typeStr))
			return
		}
		filter.EntryType = &entryType
	}

	if fromStr := c.Query("fromDate"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid fromDate format, expected RFC3339"))
			return
		}
		filter.FromDate = &parsed
	}

	if toStr := c.Query("toDate"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid toDate format, expected RFC3339"))
			return
		}
		filter.ToDate = &parsed
	}

	entries, err := h.projector.GetHistory(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromLedgerEntries(entries))
}

// GetTurnover handles GET /ledger/turnover
func (h *LedgerHandler) GetTurnover(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	fromStr := c.Query("fromDate")
	toStr := c.Query("toDate")
	if fromStr == "" || toStr == "" {
		h.Error(c, apperror.NewValidation("fromDate and toDate are required"))
		return
	}

	fromDate, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid fromDate format, expected RFC3339"))
		return
	}
	toDate, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid toDate format, expected RFC3339"))
		return
	}

	filter := ledger.TurnoverFilter{
		CompanyID: companyID,
		FromDate:  fromDate,
		ToDate:    toDate,
	}

	item, ok := h.parseItemQuery(c, false)
	if !ok {
		return
	}
	filter.Item = item

	if whStr := c.Query("warehouseId"); whStr != "" {
		parsed, err := id.Parse(whStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid warehouseId format"))
			return
		}
		filter.WarehouseID = &parsed
	}

	turnover, err := h.projector.GetTurnover(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTurnover(turnover, fromDate, toDate))
}

// GetValuation handles GET /ledger/valuation
func (h *LedgerHandler) GetValuation(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var warehouseID *id.ID
	if whStr := c.Query("warehouseId"); whStr != "" {
		parsed, err := id.Parse(whStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid warehouseId format"))
			return
		}
		warehouseID = &parsed
	}

	rows, err := h.projector.GetValuation(c.Request.Context(), companyID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromValuation(rows))
}

// Rebuild handles POST /ledger/rebuild
// Replays the entry log for one balance key and rewrites the projection.
func (h *LedgerHandler) Rebuild(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var req struct {
		Item        dto.ItemRefRequest `json:"item" binding:"required"`
		WarehouseID string             `json:"warehouseId" binding:"required"`
		BinID       string             `json:"binId"`
	}
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := req.Item.ToRef()
	if err != nil {
		h.Error(c, err)
		return
	}

	warehouseID, err := id.Parse(req.WarehouseID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	key := ledger.BalanceKey{
		CompanyID:   companyID,
		Item:        item,
		WarehouseID: warehouseID,
	}
	if req.BinID != "" {
		if key.BinID, err = id.Parse(req.BinID); err != nil {
			h.Error(c, apperror.NewValidation("invalid binId format"))
			return
		}
	}

	balance, err := h.projector.Rebuild(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromBalance(balance))
}

// parseItemQuery reads itemKind/itemId/stage query params. With required
// set, reports a validation error when the item is absent.
func (h *LedgerHandler) parseItemQuery(c *gin.Context, required bool) (*entity.ItemRef, bool) {
	itemIDStr := c.Query("itemId")
	if itemIDStr == "" {
		if required {
			h.Error(c, apperror.NewValidation("itemId is required"))
			return nil, false
		}
		return nil, true
	}

	itemID, err := id.Parse(itemIDStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid itemId format"))
		return nil, false
	}

	kind := c.DefaultQuery("itemKind", string(entity.ItemMaterial))
	stage := 0
	if stageStr := c.Query("stage"); stageStr != "" {
		if stage, err = strconv.Atoi(stageStr); err != nil {
			h.Error(c, apperror.NewValidation("invalid stage format"))
			return nil, false
		}
	}

	item := entity.ItemRef{ItemKind: entity.ItemKind(kind), ItemID: itemID, Stage: stage}
	if err := item.Validate(); err != nil {
		h.Error(c, err)
		return nil, false
	}
	return &item, true
}
