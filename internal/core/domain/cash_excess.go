package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashierExcess is a cashier's surplus cash that can offset an expense.
type CashierExcess struct {
	CashierID     string          `json:"cashierID"`
	CashierName   string          `json:"cashierName"`
	AgencyID      string          `json:"agencyID"`
	Available     decimal.Decimal `json:"available"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// CashExcessEntry is one debit of a cashier's excess, tied to the expense it paid for.
type CashExcessEntry struct {
	EntryID   string          `json:"entryID"`
	CashierID string          `json:"cashierID"`
	ExpenseID string          `json:"expenseID"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
	CreatedBy string          `json:"createdBy"`
}
