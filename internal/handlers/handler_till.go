package handlers

import (
	"fmt"
	"net/http"

	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/SscSPs/transfer_backoffice/internal/utils/spreadsheet"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// tillHandler handles HTTP requests related to exchange tills.
type tillHandler struct {
	tillService portssvc.TillSvcFacade
}

func newTillHandler(ts portssvc.TillSvcFacade) *tillHandler {
	return &tillHandler{tillService: ts}
}

// registerTillRoutes registers routes related to tills.
func registerTillRoutes(rg *gin.RouterGroup, tillService portssvc.TillSvcFacade) {
	h := newTillHandler(tillService)

	tills := rg.Group("/tills")
	{
		tills.POST("/resupply", h.resupply)
		tills.GET("/:agencyID", h.getTill)
		tills.POST("/:agencyID/purchases", h.purchase)
		tills.POST("/:agencyID/sales", h.sell)
		tills.POST("/:agencyID/adjustments", h.adjust)
		tills.GET("/:agencyID/operations", h.listOperations)
		tills.GET("/:agencyID/commissions", h.commissionReport)
		tills.GET("/:agencyID/commissions/export", h.exportCommissionReport)
	}
}

// getTill godoc
// @Summary Get a till
// @Description Balances, last effective rates and accumulated commissions; "central" is the central till
// @Tags tills
// @Produce json
// @Param agencyID path string true "Agency ID"
// @Success 200 {object} domain.Till
// @Failure 403 {object} map[string]string "Till of another agency"
// @Security BearerAuth
// @Router /tills/{agencyID} [get]
func (h *tillHandler) getTill(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	till, err := h.tillService.GetTill(c.Request.Context(), c.Param("agencyID"), actor)
	if err != nil {
		writeServiceError(c, err, "get till")
		return
	}
	c.JSON(http.StatusOK, till)
}

// purchase godoc
// @Summary Buy foreign currency into a till
// @Tags tills
// @Accept json
// @Produce json
// @Param agencyID path string true "Agency ID"
// @Param purchase body dto.PurchaseRequest true "Purchase"
// @Success 201 {object} dto.TillOperationResult
// @Failure 400 {object} map[string]string "Invalid purchase or insufficient balance"
// @Security BearerAuth
// @Router /tills/{agencyID}/purchases [post]
func (h *tillHandler) purchase(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	result, err := h.tillService.Purchase(c.Request.Context(), c.Param("agencyID"), req, actor)
	if err != nil {
		writeServiceError(c, err, "record purchase")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// sell godoc
// @Summary Sell foreign currency from a till
// @Tags tills
// @Accept json
// @Produce json
// @Param agencyID path string true "Agency ID"
// @Param sale body dto.SaleRequest true "Sale"
// @Success 201 {object} dto.TillOperationResult
// @Failure 400 {object} map[string]string "Invalid sale or insufficient balance"
// @Security BearerAuth
// @Router /tills/{agencyID}/sales [post]
func (h *tillHandler) sell(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	result, err := h.tillService.Sell(c.Request.Context(), c.Param("agencyID"), req, actor)
	if err != nil {
		writeServiceError(c, err, "record sale")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// adjust godoc
// @Summary Correct one till balance
// @Tags tills
// @Accept json
// @Produce json
// @Param agencyID path string true "Agency ID"
// @Param adjustment body dto.AdjustmentRequest true "Adjustment"
// @Success 201 {object} dto.TillOperationResult
// @Security BearerAuth
// @Router /tills/{agencyID}/adjustments [post]
func (h *tillHandler) adjust(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	result, err := h.tillService.Adjust(c.Request.Context(), c.Param("agencyID"), req, actor)
	if err != nil {
		writeServiceError(c, err, "adjust till")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// resupply godoc
// @Summary Resupply branches from the central till
// @Tags tills
// @Accept json
// @Produce json
// @Param resupply body dto.ResupplyRequest true "Branch amounts"
// @Success 201 {object} dto.ResupplyResult
// @Failure 400 {object} map[string]string "Central till cannot cover the totals"
// @Security BearerAuth
// @Router /tills/resupply [post]
func (h *tillHandler) resupply(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.ResupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	result, err := h.tillService.Resupply(c.Request.Context(), req, actor)
	if err != nil {
		writeServiceError(c, err, "resupply branches")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// listOperations godoc
// @Summary List till operations
// @Tags tills
// @Produce json
// @Param agencyID path string true "Agency ID"
// @Param type query string false "Operation type"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Param limit query int false "Page size" default(20)
// @Param nextToken query string false "Page token"
// @Success 200 {object} dto.ListTillOperationsResponse
// @Security BearerAuth
// @Router /tills/{agencyID}/operations [get]
func (h *tillHandler) listOperations(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var params dto.ListTillOperationsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err, "query parameters")
		return
	}

	resp, err := h.tillService.ListOperations(c.Request.Context(), c.Param("agencyID"), params, actor)
	if err != nil {
		writeServiceError(c, err, "list till operations")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindCommissionPeriod reads from/to; both must be present.
func bindCommissionPeriod(c *gin.Context) (dto.CommissionReportParams, bool) {
	var params dto.CommissionReportParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err, "query parameters")
		return params, false
	}
	if params.From.IsZero() || params.To.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: from and to are required (YYYY-MM-DD)"})
		return params, false
	}
	return params, true
}

// commissionReport godoc
// @Summary Commission report
// @Tags tills
// @Produce json
// @Param agencyID path string true "Agency ID"
// @Param from query string true "First day (YYYY-MM-DD)"
// @Param to query string true "Last day (YYYY-MM-DD)"
// @Success 200 {object} domain.CommissionReport
// @Security BearerAuth
// @Router /tills/{agencyID}/commissions [get]
func (h *tillHandler) commissionReport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	params, ok := bindCommissionPeriod(c)
	if !ok {
		return
	}

	report, err := h.tillService.CommissionReport(c.Request.Context(), c.Param("agencyID"), params, actor)
	if err != nil {
		writeServiceError(c, err, "build commission report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// exportCommissionReport godoc
// @Summary Commission report as a workbook
// @Tags tills
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param agencyID path string true "Agency ID"
// @Param from query string true "First day (YYYY-MM-DD)"
// @Param to query string true "Last day (YYYY-MM-DD)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /tills/{agencyID}/commissions/export [get]
func (h *tillHandler) exportCommissionReport(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	params, ok := bindCommissionPeriod(c)
	if !ok {
		return
	}

	report, err := h.tillService.CommissionReport(c.Request.Context(), c.Param("agencyID"), params, actor)
	if err != nil {
		writeServiceError(c, err, "build commission report")
		return
	}
	data, err := spreadsheet.CommissionWorkbook(*report)
	if err != nil {
		writeServiceError(c, err, "export commission report")
		return
	}

	filename := fmt.Sprintf("commissions_%s_%s_%s.xlsx", report.AgencyID, report.From.Format("20060102"), report.To.Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
