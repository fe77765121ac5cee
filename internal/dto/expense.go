package dto

import (
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateExpenseRequest defines the data needed to file an expense.
type CreateExpenseRequest struct {
	Description       string          `json:"description" binding:"required"`
	Amount            decimal.Decimal `json:"amount" binding:"gt=0"`
	Category          string          `json:"category" binding:"required"`
	AgencyID          string          `json:"agencyID"`
	Comment           string          `json:"comment"`
	DeductFromExcess  bool            `json:"deductFromExcess"`
	DeductedCashierID string          `json:"deductedCashierID"`
}

// UpdateExpenseRequest defines the editable fields of an expense.
type UpdateExpenseRequest struct {
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount" binding:"omitempty,gte=0"`
	Category    *string          `json:"category"`
	AgencyID    *string          `json:"agencyID"`
	Comment     *string          `json:"comment"`
}

// ValidateExpenseRequest is one approval-stage decision.
type ValidateExpenseRequest struct {
	Approved        *bool                  `json:"approved" binding:"required"`
	Stage           domain.ValidationStage `json:"stage" binding:"required,oneof=accounting director"`
	RejectionReason string                 `json:"rejectionReason"`
}

// ListExpensesParams holds the query parameters of the expense listing.
type ListExpensesParams struct {
	Status    domain.ExpenseStatus `form:"status"`
	AgencyID  string               `form:"agencyID"`
	Limit     int                  `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken string               `form:"nextToken"`
}

// ListExpensesResponse is one page of expenses.
type ListExpensesResponse struct {
	Expenses  []domain.Expense `json:"expenses"`
	NextToken *string          `json:"nextToken,omitempty"`
}
