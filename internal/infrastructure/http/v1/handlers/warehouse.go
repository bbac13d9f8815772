package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/apperror"
	appctx "kardex/internal/core/context"
	"kardex/internal/core/id"
	"kardex/internal/domain/catalogs/warehouse"
	"kardex/internal/infrastructure/http/v1/dto"
)

// WarehouseHandler serves warehouse CRUD plus bin management.
type WarehouseHandler struct {
	*CatalogHandler[*warehouse.Warehouse, dto.CreateWarehouseRequest, dto.UpdateWarehouseRequest]
	service *warehouse.Service
}

// NewWarehouseHandler creates a warehouse handler.
func NewWarehouseHandler(base *BaseHandler, service *warehouse.Service) *WarehouseHandler {
	config := CatalogHandlerConfig[
		*warehouse.Warehouse,
		dto.CreateWarehouseRequest,
		dto.UpdateWarehouseRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "warehouse",

		MapCreateDTO: func(ctx context.Context, req dto.CreateWarehouseRequest) (*warehouse.Warehouse, error) {
			companyID := appctx.GetCompanyID(ctx)
			if id.IsNil(companyID) {
				return nil, apperror.NewValidation("company is required").
					WithDetail("header", "X-Company-ID")
			}
			return req.ToEntity(companyID), nil
		},

		MapUpdateDTO: func(req dto.UpdateWarehouseRequest, existing *warehouse.Warehouse) (*warehouse.Warehouse, error) {
			req.ApplyTo(existing)
			return existing, nil
		},

		MapToDTO: func(wh *warehouse.Warehouse) any {
			return dto.FromWarehouse(wh)
		},
	}

	return &WarehouseHandler{
		CatalogHandler: NewCatalogHandler(base, config),
		service:        service,
	}
}

// AddBin handles POST /warehouses/:id/bins
func (h *WarehouseHandler) AddBin(c *gin.Context) {
	ctx := c.Request.Context()

	warehouseID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AddBinRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bin, err := h.service.AddBin(ctx, warehouseID, req.Code, req.Name)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromBin(bin)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}
