package handler

import (
	"io"
	"net/http"

	"subhlabh/internal/dto"
	"subhlabh/internal/middleware"
	"subhlabh/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.ProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.OwnerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List active products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param q        query string false "Name or category contains"
// @Param category query string false "Category"
// @Param type     query string false "product | service"
// @Param sort     query string false "name | price | stock | -created_at"
// @Param page     query int    false "Page (default 1)"
// @Success 200 {object} dto.ProductListResponse
// @Router /products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	var filter dto.ProductFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.OwnerID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export godoc
// @Summary Download the active catalog as CSV
// @Tags products
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /products/export [get]
func (h *ProductsHandler) Export(c *gin.Context) {
	sendCSV(c, "products.csv", func(w io.Writer) error {
		return h.svc.Export(c.Request.Context(), middleware.OwnerID(c), w)
	})
}

func (h *ProductsHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Detail(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), middleware.OwnerID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdjustStock godoc
// @Summary Manual stock correction
// @Description Adds delta (may be negative) to the stock of a physical product and records a stock movement.
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string                 true "Product id"
// @Param body body dto.AdjustStockRequest true "Correction"
// @Success 200 {object} dto.ProductResponse
// @Failure 400 {object} apierror.APIError
// @Router /products/{id}/adjust-stock [post]
func (h *ProductsHandler) AdjustStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), middleware.OwnerID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) LowStock(c *gin.Context) {
	resp, err := h.svc.LowStock(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Search godoc
// @Summary Product typeahead
// @Description Up to 20 active products matching q; empty q returns an empty list.
// @Tags search
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search text"
// @Success 200 {array} dto.ProductSearchResult
// @Router /api/products/search [get]
func (h *ProductsHandler) Search(c *gin.Context) {
	resp, err := h.svc.Search(c.Request.Context(), middleware.OwnerID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
