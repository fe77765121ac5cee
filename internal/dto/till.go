package dto

import (
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PurchaseRequest is the typed purchase command. DeductFrom carries the per-currency
// confirmation that the paying till may be debited.
type PurchaseRequest struct {
	PaidCurrency   domain.Currency          `json:"paidCurrency" binding:"required"`
	BoughtCurrency domain.Currency          `json:"boughtCurrency" binding:"required"`
	PaidAmount     decimal.Decimal          `json:"paidAmount" binding:"gt=0"`
	PurchaseRate   decimal.Decimal          `json:"purchaseRate" binding:"gt=0"`
	TransportFee   decimal.Decimal          `json:"transportFee" binding:"gte=0"`
	HandlingFee    decimal.Decimal          `json:"handlingFee" binding:"gte=0"`
	BanknoteFee    decimal.Decimal          `json:"banknoteFee" binding:"gte=0"`
	DeductFrom     map[domain.Currency]bool `json:"deductFrom"`
	Supplier       string                   `json:"supplier"`
}

// SaleRequest is the typed sale command. The received amount is always derived.
type SaleRequest struct {
	SoldCurrency     domain.Currency `json:"soldCurrency" binding:"required"`
	ReceivedCurrency domain.Currency `json:"receivedCurrency"`
	SoldAmount       decimal.Decimal `json:"soldAmount" binding:"gt=0"`
	DayRate          decimal.Decimal `json:"dayRate" binding:"gt=0"`
	Customer         string          `json:"customer"`
}

// AdjustmentRequest sets one currency balance of a till.
type AdjustmentRequest struct {
	Currency   domain.Currency `json:"currency" binding:"required"`
	NewBalance decimal.Decimal `json:"newBalance" binding:"gte=0"`
	Reason     string          `json:"reason"`
}

// ResupplyRequest moves cash from the central till to branches in one atomic call.
type ResupplyRequest struct {
	Branches []domain.ResupplyLine `json:"branches" binding:"required,min=1"`
}

// TillOperationResult returns the log entry and the till after the operation.
type TillOperationResult struct {
	Operation domain.TillOperation `json:"operation"`
	Till      domain.Till          `json:"till"`
}

// ResupplyResult returns the log entry and every till touched by a resupply.
type ResupplyResult struct {
	Operation domain.TillOperation `json:"operation"`
	Tills     []domain.Till        `json:"tills"`
}

// ListTillOperationsParams holds the query parameters of the operation log listing.
type ListTillOperationsParams struct {
	Type      domain.TillOperationType `form:"type"`
	From      *time.Time               `form:"from" time_format:"2006-01-02" time_utc:"1"`
	To        *time.Time               `form:"to" time_format:"2006-01-02" time_utc:"1"`
	Limit     int                      `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken string                   `form:"nextToken"`
}

// ListTillOperationsResponse is one page of the operation log.
type ListTillOperationsResponse struct {
	Operations []domain.TillOperation `json:"operations"`
	NextToken  *string                `json:"nextToken,omitempty"`
}

// CommissionReportParams selects the report period. Dates are inclusive days.
type CommissionReportParams struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02" time_utc:"1"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02" time_utc:"1"`
}
