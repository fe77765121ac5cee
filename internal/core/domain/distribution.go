package domain

import "github.com/shopspring/decimal"

// DistributionLine is the amount credited to one card by a distribution.
type DistributionLine struct {
	CardID            string          `json:"cardID"`
	CID               string          `json:"cid"`
	CapacityBefore    decimal.Decimal `json:"capacityBefore"`
	Credited          decimal.Decimal `json:"credited"`
	RemainingCapacity decimal.Decimal `json:"remainingCapacity"`
}

// DistributionPlan is the computed outcome of spreading an amount over selected cards.
type DistributionPlan struct {
	Country          string             `json:"country"`
	RequestedAmount  decimal.Decimal    `json:"requestedAmount"`
	TotalCapacity    decimal.Decimal    `json:"totalCapacity"`
	TotalDistributed decimal.Decimal    `json:"totalDistributed"`
	Remainder        decimal.Decimal    `json:"remainder"`
	CardsUsed        int                `json:"cardsUsed"`
	FeePerCard       decimal.Decimal    `json:"feePerCard"`
	TotalFee         decimal.Decimal    `json:"totalFee"`
	Lines            []DistributionLine `json:"lines"`
}

// Distribution is a committed plan, kept for receipts and card history.
type Distribution struct {
	DistributionID  string `json:"distributionID"`
	DeductFromVault bool   `json:"deductFromVault"`
	DistributionPlan
	AuditFields
}
