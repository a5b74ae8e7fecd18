package handler

import (
	"net/http"

	"subhlabh/internal/dto"
	"subhlabh/internal/middleware"
	"subhlabh/internal/service"

	"github.com/gin-gonic/gin"
)

type OffersHandler struct{ svc service.OfferService }

func NewOffersHandler(svc service.OfferService) *OffersHandler { return &OffersHandler{svc: svc} }

func (h *OffersHandler) Create(c *gin.Context) {
	var req dto.OfferRequest
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

func (h *OffersHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Active godoc
// @Summary Offers valid right now
// @Tags offers
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.OfferResponse
// @Router /offers/active [get]
func (h *OffersHandler) Active(c *gin.Context) {
	resp, err := h.svc.Active(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OffersHandler) Get(c *gin.Context) {
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

func (h *OffersHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.OfferRequest
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

// Delete godoc
// @Summary Delete an offer
// @Description An offer already applied to sales is deactivated instead of deleted.
// @Tags offers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Offer id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apierror.APIError
// @Router /offers/{id} [delete]
func (h *OffersHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deactivated, err := h.svc.Delete(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "Offer deleted"
	if deactivated {
		msg = "Offer has been used in sales and was deactivated"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "deactivated": deactivated})
}

func (h *OffersHandler) Preview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.OfferPreviewRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Preview(c.Request.Context(), middleware.OwnerID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
