package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/apperror"
	appctx "kardex/internal/core/context"
	"kardex/internal/core/id"
	"kardex/internal/domain"
	"kardex/internal/domain/documents/opname"
	"kardex/internal/infrastructure/http/v1/dto"
)

// OpnameHandler serves the stock count document lifecycle:
// draft → counting → completed → posted.
type OpnameHandler struct {
	*BaseDocumentHandler[*opname.Opname, dto.CreateOpnameRequest, dto.UpdateOpnameRequest]
	service *opname.Service
}

// NewOpnameHandler creates an opname handler.
func NewOpnameHandler(base *BaseHandler, service *opname.Service) *OpnameHandler {
	config := BaseDocumentHandlerConfig[
		*opname.Opname,
		dto.CreateOpnameRequest,
		dto.UpdateOpnameRequest,
	]{
		Service:    service,
		EntityName: "opname",

		MapCreateDTO: func(ctx context.Context, req dto.CreateOpnameRequest) (*opname.Opname, error) {
			companyID := appctx.GetCompanyID(ctx)
			if id.IsNil(companyID) {
				return nil, apperror.NewValidation("company is required").
					WithDetail("header", "X-Company-ID")
			}
			return req.ToEntity(companyID)
		},

		MapUpdateDTO: func(req dto.UpdateOpnameRequest, existing *opname.Opname) *opname.Opname {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(doc *opname.Opname) any {
			return dto.FromOpname(doc)
		},
	}

	return &OpnameHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, config),
		service:             service,
	}
}

// List handles GET /opnames
func (h *OpnameHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := opname.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.DefaultQuery("orderBy", "date DESC"),
		},
	}

	if companyID := appctx.GetCompanyID(ctx); !id.IsNil(companyID) {
		filter.CompanyID = &companyID
	}

	if whStr := c.Query("warehouseId"); whStr != "" {
		parsed, err := id.Parse(whStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid warehouseId format"))
			return
		}
		filter.WarehouseID = &parsed
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := opname.Status(statusStr)
		filter.Status = &status
	}

	if postedStr := c.Query("posted"); postedStr != "" {
		posted := postedStr == "true"
		filter.Posted = &posted
	}

	if fromStr := c.Query("fromDate"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if toStr := c.Query("toDate"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromOpname(doc)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// PrepareSheet handles POST /opnames/:id/prepare-sheet
// Snapshots every non-zero balance of the warehouse into count lines.
func (h *OpnameHandler) PrepareSheet(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.PrepareSheet(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromOpname(doc)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// AddLine handles POST /opnames/:id/lines
func (h *OpnameHandler) AddLine(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AddOpnameLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToLineInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.AddLine(c.Request.Context(), docID, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromOpname(doc)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// StartCounting handles POST /opnames/:id/start-counting
func (h *OpnameHandler) StartCounting(c *gin.Context) {
	h.transition(c, h.service.StartCounting)
}

// Complete handles POST /opnames/:id/complete
func (h *OpnameHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Cancel handles POST /opnames/:id/cancel
func (h *OpnameHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// CountLine handles PUT /opnames/:id/lines/:lineNo/count
func (h *OpnameHandler) CountLine(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	lineNo, err := strconv.Atoi(c.Param("lineNo"))
	if err != nil || lineNo <= 0 {
		h.Error(c, apperror.NewValidation("invalid line number"))
		return
	}

	var req dto.CountLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdatePhysicalCount(c.Request.Context(), docID, lineNo, req.PhysicalQty, req.ReasonCode); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromOpname(doc)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// GetComparison handles GET /opnames/:id/comparison
func (h *OpnameHandler) GetComparison(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	result, err := h.service.GetComparison(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromComparison(result))
}

// transition runs a status transition and returns the updated document.
func (h *OpnameHandler) transition(c *gin.Context, fn func(ctx context.Context, docID id.ID) error) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := fn(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromOpname(doc)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}
