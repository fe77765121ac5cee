package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Card is the row of the cards table.
type Card struct {
	CardID           string          `db:"card_id"`
	CID              string          `db:"cid"`
	Country          string          `db:"country"`
	Status           string          `db:"status"`
	MonthlyLimit     decimal.Decimal `db:"monthly_limit"`
	MonthlyUsed      decimal.Decimal `db:"monthly_used"`
	RechargeLimit    decimal.Decimal `db:"recharge_limit"`
	LastRechargeDate *time.Time      `db:"last_recharge_date"` // Nullable
	ExpirationDate   *time.Time      `db:"expiration_date"`    // Nullable
	AuditFields
}

// Distribution is the header row of a committed distribution.
type Distribution struct {
	DistributionID   string          `db:"distribution_id"`
	Country          string          `db:"country"`
	RequestedAmount  decimal.Decimal `db:"requested_amount"`
	TotalCapacity    decimal.Decimal `db:"total_capacity"`
	TotalDistributed decimal.Decimal `db:"total_distributed"`
	Remainder        decimal.Decimal `db:"remainder"`
	CardsUsed        int             `db:"cards_used"`
	FeePerCard       decimal.Decimal `db:"fee_per_card"`
	TotalFee         decimal.Decimal `db:"total_fee"`
	DeductFromVault  bool            `db:"deduct_from_vault"`
	AuditFields
}

// DistributionLine is one card credit of a distribution.
type DistributionLine struct {
	DistributionID    string          `db:"distribution_id"`
	LineNo            int             `db:"line_no"`
	CardID            string          `db:"card_id"`
	CID               string          `db:"cid"`
	CapacityBefore    decimal.Decimal `db:"capacity_before"`
	Credited          decimal.Decimal `db:"credited"`
	RemainingCapacity decimal.Decimal `db:"remaining_capacity"`
}
