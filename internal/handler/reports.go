package handler

import (
	"io"
	"net/http"

	"subhlabh/internal/dto"
	"subhlabh/internal/middleware"
	"subhlabh/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct{ svc service.DashboardService }

func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Get godoc
// @Summary Dashboard metrics
// @Description Today's and this month's figures (cached per shop day) plus recent sales, low stock and top products.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler { return &ReportsHandler{svc: svc} }

// Build godoc
// @Summary Sales report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to   query string false "YYYY-MM-DD"
// @Param year      query int    false "Calendar year"
// @Param format    query string false "json | csv"
// @Param report    query string false "CSV section: daily | monthly | yearly | products | categories | customers | offers | comparison"
// @Success 200 {object} dto.ReportResponse
// @Failure 400 {object} apierror.APIError
// @Router /reports [get]
func (h *ReportsHandler) Build(c *gin.Context) {
	var filter dto.ReportFilter
	if !bindQuery(c, &filter) {
		return
	}
	if filter.Format == "csv" {
		section := filter.Report
		if section == "" {
			section = "monthly"
		}
		sendCSV(c, "report_"+section+".csv", func(w io.Writer) error {
			return h.svc.Export(c.Request.Context(), middleware.OwnerID(c), filter, w)
		})
		return
	}
	resp, err := h.svc.Build(c.Request.Context(), middleware.OwnerID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
