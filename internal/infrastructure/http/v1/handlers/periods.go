package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/periods"
	"kardex/internal/infrastructure/http/v1/dto"
)

// PeriodHandler serves the accounting period gate: open periods accept
// postings, closed ones reject them. Closing requires no unposted
// completed documents dated inside the period.
type PeriodHandler struct {
	*BaseHandler
	service *periods.Service
}

// NewPeriodHandler creates a period handler.
func NewPeriodHandler(base *BaseHandler, service *periods.Service) *PeriodHandler {
	return &PeriodHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /periods
func (h *PeriodHandler) List(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), companyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromPeriods(items))
}

// Get handles GET /periods/:id
func (h *PeriodHandler) Get(c *gin.Context) {
	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	period, err := h.service.GetByID(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromPeriod(period))
}

// Create handles POST /periods
func (h *PeriodHandler) Create(c *gin.Context) {
	companyID, ok := h.GetCompanyID(c)
	if !ok {
		return
	}

	var req dto.CreatePeriodRequest
	if !h.BindJSON(c, &req) {
		return
	}

	period := req.ToEntity(companyID)
	if err := h.service.Create(c.Request.Context(), period); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromPeriod(period)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Close handles POST /periods/:id/close
func (h *PeriodHandler) Close(c *gin.Context) {
	h.transition(c, h.service.Close)
}

// Reopen handles POST /periods/:id/reopen
func (h *PeriodHandler) Reopen(c *gin.Context) {
	h.transition(c, h.service.Reopen)
}

func (h *PeriodHandler) transition(c *gin.Context, fn func(ctx context.Context, periodID id.ID) error) {
	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := fn(c.Request.Context(), periodID); err != nil {
		h.Error(c, err)
		return
	}

	period, err := h.service.GetByID(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromPeriod(period)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}
