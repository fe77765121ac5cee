package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/gin-gonic/gin"
)

// expenseHandler handles HTTP requests related to expenses and cash excess.
type expenseHandler struct {
	expenseService portssvc.ExpenseSvcFacade
}

func newExpenseHandler(es portssvc.ExpenseSvcFacade) *expenseHandler {
	return &expenseHandler{expenseService: es}
}

// registerExpenseRoutes registers routes related to expenses.
func registerExpenseRoutes(rg *gin.RouterGroup, expenseService portssvc.ExpenseSvcFacade) {
	h := newExpenseHandler(expenseService)

	expenses := rg.Group("/expenses")
	{
		expenses.GET("", h.listExpenses)
		expenses.POST("", h.createExpense)
		expenses.GET("/:expenseID", h.getExpense)
		expenses.PUT("/:expenseID", h.updateExpense)
		expenses.DELETE("/:expenseID", h.deleteExpense)
		expenses.POST("/:expenseID/validate", h.validateExpense)
		expenses.POST("/:expenseID/bypass-approve", h.bypassApprove)
	}
	rg.GET("/cash-excess/cashiers", h.listCashiers)
}

// listExpenses godoc
// @Summary List expenses
// @Description Newest first; cashiers and agents only see their own requests
// @Tags expenses
// @Produce json
// @Param status query string false "Status filter"
// @Param agencyID query string false "Agency filter"
// @Param limit query int false "Page size" default(20)
// @Param nextToken query string false "Page token"
// @Success 200 {object} dto.ListExpensesResponse
// @Security BearerAuth
// @Router /expenses [get]
func (h *expenseHandler) listExpenses(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var params dto.ListExpensesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err, "query parameters")
		return
	}

	resp, err := h.expenseService.ListExpenses(c.Request.Context(), params, actor)
	if err != nil {
		writeServiceError(c, err, "list expenses")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// createExpense godoc
// @Summary File an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Param expense body dto.CreateExpenseRequest true "Expense"
// @Success 201 {object} domain.Expense
// @Failure 400 {object} map[string]string "Invalid input"
// @Security BearerAuth
// @Router /expenses [post]
func (h *expenseHandler) createExpense(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), req, actor)
	if err != nil {
		writeServiceError(c, err, "create expense")
		return
	}
	c.JSON(http.StatusCreated, expense)
}

// getExpense godoc
// @Summary Get an expense
// @Tags expenses
// @Produce json
// @Param expenseID path string true "Expense ID"
// @Success 200 {object} domain.Expense
// @Failure 404 {object} map[string]string "Expense not found"
// @Security BearerAuth
// @Router /expenses/{expenseID} [get]
func (h *expenseHandler) getExpense(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	expense, err := h.expenseService.GetExpense(c.Request.Context(), c.Param("expenseID"), actor)
	if err != nil {
		writeServiceError(c, err, "get expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// updateExpense godoc
// @Summary Edit an expense
// @Description Refused with 409 once the expense is final-approved
// @Tags expenses
// @Accept json
// @Produce json
// @Param expenseID path string true "Expense ID"
// @Param expense body dto.UpdateExpenseRequest true "Fields to change"
// @Success 200 {object} domain.Expense
// @Security BearerAuth
// @Router /expenses/{expenseID} [put]
func (h *expenseHandler) updateExpense(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), c.Param("expenseID"), req, actor)
	if err != nil {
		writeServiceError(c, err, "update expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// deleteExpense godoc
// @Summary Delete an expense
// @Tags expenses
// @Param expenseID path string true "Expense ID"
// @Success 204 "No Content"
// @Failure 409 {object} map[string]string "Expense is final-approved"
// @Security BearerAuth
// @Router /expenses/{expenseID} [delete]
func (h *expenseHandler) deleteExpense(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.expenseService.DeleteExpense(c.Request.Context(), c.Param("expenseID"), actor); err != nil {
		writeServiceError(c, err, "delete expense")
		return
	}
	c.Status(http.StatusNoContent)
}

// validateExpense godoc
// @Summary Approve or reject at one stage
// @Tags expenses
// @Accept json
// @Produce json
// @Param expenseID path string true "Expense ID"
// @Param decision body dto.ValidateExpenseRequest true "Decision"
// @Success 200 {object} domain.Expense
// @Failure 400 {object} map[string]string "Rejection reason missing"
// @Failure 403 {object} map[string]string "Role cannot act on this stage"
// @Failure 409 {object} map[string]string "Not allowed in current state"
// @Security BearerAuth
// @Router /expenses/{expenseID}/validate [post]
func (h *expenseHandler) validateExpense(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.ValidateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	expense, err := h.expenseService.ValidateExpense(c.Request.Context(), c.Param("expenseID"), req, actor)
	if err != nil {
		writeServiceError(c, err, "validate expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// bypassApprove godoc
// @Summary Director approval of a pending expense, skipping accounting
// @Tags expenses
// @Produce json
// @Param expenseID path string true "Expense ID"
// @Success 200 {object} domain.Expense
// @Security BearerAuth
// @Router /expenses/{expenseID}/bypass-approve [post]
func (h *expenseHandler) bypassApprove(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	expense, err := h.expenseService.BypassApprove(c.Request.Context(), c.Param("expenseID"), actor)
	if err != nil {
		writeServiceError(c, err, "approve expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// listCashiers godoc
// @Summary Cashiers with cash excess
// @Tags expenses
// @Produce json
// @Success 200 {array} domain.CashierExcess
// @Security BearerAuth
// @Router /cash-excess/cashiers [get]
func (h *expenseHandler) listCashiers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	cashiers, err := h.expenseService.ListCashiersWithExcess(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, err, "list cashiers")
		return
	}
	c.JSON(http.StatusOK, cashiers)
}
