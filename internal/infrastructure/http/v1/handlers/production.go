package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kardex/internal/domain/production"
	"kardex/internal/infrastructure/http/v1/dto"
)

// ProductionHandler serves production stage completions with backflush
// component consumption.
type ProductionHandler struct {
	*BaseHandler
	coordinator *production.Coordinator
}

// NewProductionHandler creates a production handler.
func NewProductionHandler(base *BaseHandler, coordinator *production.Coordinator) *ProductionHandler {
	return &ProductionHandler{
		BaseHandler: base,
		coordinator: coordinator,
	}
}

// CompleteStage handles POST /production/complete-stage
// Issues BOM components and stocks the output at the consumed value per
// unit, all in one transaction.
func (h *ProductionHandler) CompleteStage(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var req dto.CompleteStageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	completion, err := req.ToStageCompletion()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.coordinator.CompleteStage(c.Request.Context(), companyID, completion)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromStageResult(result)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}
