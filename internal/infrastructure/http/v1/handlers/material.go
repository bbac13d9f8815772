package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/apperror"
	appctx "kardex/internal/core/context"
	"kardex/internal/core/id"
	"kardex/internal/domain/catalogs/material"
	"kardex/internal/infrastructure/http/v1/dto"
)

// MaterialHandler serves material CRUD plus SKU and barcode lookup.
type MaterialHandler struct {
	*CatalogHandler[*material.Material, dto.CreateMaterialRequest, dto.UpdateMaterialRequest]
	service *material.Service
}

// NewMaterialHandler creates a material handler.
func NewMaterialHandler(base *BaseHandler, service *material.Service) *MaterialHandler {
	config := CatalogHandlerConfig[
		*material.Material,
		dto.CreateMaterialRequest,
		dto.UpdateMaterialRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "material",

		MapCreateDTO: func(ctx context.Context, req dto.CreateMaterialRequest) (*material.Material, error) {
			companyID := appctx.GetCompanyID(ctx)
			if id.IsNil(companyID) {
				return nil, apperror.NewValidation("company is required").
					WithDetail("header", "X-Company-ID")
			}
			return req.ToEntity(companyID)
		},

		MapUpdateDTO: func(req dto.UpdateMaterialRequest, existing *material.Material) (*material.Material, error) {
			if err := req.ApplyTo(existing); err != nil {
				return nil, err
			}
			return existing, nil
		},

		MapToDTO: func(m *material.Material) any {
			return dto.FromMaterial(m)
		},
	}

	return &MaterialHandler{
		CatalogHandler: NewCatalogHandler(base, config),
		service:        service,
	}
}

// GetBySKU handles GET /materials/by-sku/:sku
func (h *MaterialHandler) GetBySKU(c *gin.Context) {
	m, err := h.service.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromMaterial(m))
}

// GetByBarcode handles GET /materials/by-barcode/:barcode
func (h *MaterialHandler) GetByBarcode(c *gin.Context) {
	m, err := h.service.GetByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromMaterial(m))
}
