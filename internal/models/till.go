package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TillBalance is one (agency, currency) row of the till_balances table.
type TillBalance struct {
	AgencyID          string          `db:"agency_id"`
	Currency          string          `db:"currency"`
	Balance           decimal.Decimal `db:"balance"`
	LastEffectiveRate decimal.Decimal `db:"last_effective_rate"`
	Commission        decimal.Decimal `db:"commission"`
	LastUpdatedAt     *time.Time      `db:"last_updated_at"`
	LastUpdatedBy     string          `db:"last_updated_by"`
}

// TillOperation is the row of the append-only till_operations table.
type TillOperation struct {
	OperationID      string    `db:"operation_id"`
	AgencyID         string    `db:"agency_id"`
	RelatedAgencyIDs []string  `db:"related_agency_ids"`
	Type             string    `db:"type"`
	Payload          []byte    `db:"payload"`
	Actor            string    `db:"actor"`
	CreatedAt        time.Time `db:"created_at"`
}
