package handler

import (
	"fmt"
	"io"
	"net/http"

	"subhlabh/internal/dto"
	"subhlabh/internal/infra"
	"subhlabh/internal/middleware"
	"subhlabh/internal/service"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct{ svc service.BillingService }

func NewBillingHandler(svc service.BillingService) *BillingHandler { return &BillingHandler{svc: svc} }

// Checkout godoc
// @Summary      Complete a sale
// @Description  Atomic checkout: validates the cart, recomputes the offer discount, decrements stock and, for unpaid sales, adds the total to the customer's udhar.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.BillingRequest true "Cart"
// @Success      201  {object} dto.BillingResponse
// @Failure      400  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /billing [post]
func (h *BillingHandler) Checkout(c *gin.Context) {
	var req dto.BillingRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Checkout(c.Request.Context(), middleware.OwnerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// List godoc
// @Summary      List sales
// @Description  Paginated sales, newest first. Dates are inclusive and interpreted in the shop timezone.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        q              query string false "Sale id prefix, customer name/phone or product name"
// @Param        date_from      query string false "YYYY-MM-DD"
// @Param        date_to        query string false "YYYY-MM-DD"
// @Param        payment_method query string false "cash | upi | card | udhar"
// @Param        customer_id    query string false "Customer id"
// @Param        page           query int    false "Page (default 1)"
// @Param        format         query string false "json | csv (csv downloads every matching sale item)"
// @Success      200 {object} dto.SaleListResponse
// @Router       /sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	if filter.Format == "csv" {
		sendCSV(c, "sales.csv", func(w io.Writer) error {
			return h.svc.Export(c.Request.Context(), middleware.OwnerID(c), filter, w)
		})
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.OwnerID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SalesHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Delete a sale
// @Description  Restores stock of physical products and reverses the customer's ledger, all in one transaction.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Sale id"
// @Success      200 {object} dto.SuccessResponse
// @Failure      404 {object} apierror.APIError
// @Router       /sales/{id}/delete [post]
func (h *SalesHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: "Sale deleted"})
}

func (h *SalesHandler) Receipt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdf, err := h.svc.Receipt(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", infra.ReceiptFileName(id)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
