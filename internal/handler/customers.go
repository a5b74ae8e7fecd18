package handler

import (
	"net/http"
	"strings"

	"subhlabh/internal/apierror"
	"subhlabh/internal/dto"
	"subhlabh/internal/middleware"
	"subhlabh/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
)

type CustomersHandler struct {
	svc     service.CustomerService
	flashes sessions.Store
}

func NewCustomersHandler(svc service.CustomerService, flashes sessions.Store) *CustomersHandler {
	return &CustomersHandler{svc: svc, flashes: flashes}
}

func (h *CustomersHandler) Create(c *gin.Context) {
	var req dto.CustomerRequest
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

func (h *CustomersHandler) List(c *gin.Context) {
	var filter dto.CustomerFilter
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

// Get godoc
// @Summary Customer detail
// @Description Customer with recent sales, credit payments and pending flash messages.
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer id"
// @Success 200 {object} dto.CustomerDetailResponse
// @Failure 404 {object} apierror.APIError
// @Router /customers/{id} [get]
func (h *CustomersHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Detail(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp.Flashes = takeFlashes(c, h.flashes)
	c.JSON(http.StatusOK, resp)
}

func (h *CustomersHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CustomerRequest
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

func (h *CustomersHandler) Delete(c *gin.Context) {
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

// PayCredit godoc
// @Summary Record a credit (udhar) payment
// @Description JSON clients receive the new balance; form posts get a flash message and a 303 redirect to the customer page. Invalid amounts change nothing.
// @Tags customers
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param id   path string               true "Customer id"
// @Param body body dto.PayCreditRequest true "Amount"
// @Success 200 {object} dto.PayCreditResponse
// @Success 303
// @Failure 400 {object} apierror.APIError
// @Router /customers/{id}/pay-credit [post]
func (h *CustomersHandler) PayCredit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	owner := middleware.OwnerID(c)

	if wantsJSON(c) {
		var req dto.PayCreditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid amount"))
			return
		}
		resp, err := h.svc.PayCredit(c.Request.Context(), owner, id, req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	target := "/customers/" + id.String()
	amount, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("amount")))
	if err != nil {
		addFlash(c, h.flashes, "error", "Please enter a valid amount")
		c.Redirect(http.StatusSeeOther, target)
		return
	}
	resp, err := h.svc.PayCredit(c.Request.Context(), owner, id, amount)
	if err != nil {
		if apierror.IsKind(err, apierror.KindValidation) || apierror.IsKind(err, apierror.KindBusiness) {
			addFlash(c, h.flashes, "error", err.Error())
			c.Redirect(http.StatusSeeOther, target)
			return
		}
		respondError(c, err)
		return
	}
	addFlash(c, h.flashes, "success", resp.Message)
	c.Redirect(http.StatusSeeOther, target)
}

// Search godoc
// @Summary Customer typeahead
// @Description Up to 20 customers whose name or phone matches q; empty q returns an empty list.
// @Tags search
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search text"
// @Success 200 {array} dto.CustomerSearchResult
// @Router /api/customers/search [get]
func (h *CustomersHandler) Search(c *gin.Context) {
	resp, err := h.svc.Search(c.Request.Context(), middleware.OwnerID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
