package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is the row of the expenses table.
type Expense struct {
	ExpenseID         string          `db:"expense_id"`
	Description       string          `db:"description"`
	Amount            decimal.Decimal `db:"amount"`
	Category          string          `db:"category"`
	RequesterID       string          `db:"requester_id"`
	RequesterName     string          `db:"requester_name"`
	RequesterEmail    string          `db:"requester_email"`
	AgencyID          string          `db:"agency_id"`
	Comment           string          `db:"comment"`
	Status            string          `db:"status"`
	DeductFromExcess  bool            `db:"deduct_from_excess"`
	DeductedCashierID sql.NullString  `db:"deducted_cashier_id"`

	AccountingValidatedBy     sql.NullString `db:"accounting_validated_by"`
	AccountingValidatedAt     *time.Time     `db:"accounting_validated_at"`
	AccountingRejectionReason sql.NullString `db:"accounting_rejection_reason"`
	DirectorValidatedBy       sql.NullString `db:"director_validated_by"`
	DirectorValidatedAt       *time.Time     `db:"director_validated_at"`
	DirectorRejectionReason   sql.NullString `db:"director_rejection_reason"`
	AuditFields
}

// CashierExcess is the row of the cash_excess table.
type CashierExcess struct {
	CashierID     string          `db:"cashier_id"`
	CashierName   string          `db:"cashier_name"`
	AgencyID      string          `db:"agency_id"`
	Available     decimal.Decimal `db:"available"`
	LastUpdatedAt time.Time       `db:"last_updated_at"`
}
