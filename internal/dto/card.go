package dto

import (
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateCardRequest defines the data needed to register a card manually.
type CreateCardRequest struct {
	CID            string          `json:"cid" binding:"required"`
	Country        string          `json:"country" binding:"required"`
	MonthlyLimit   decimal.Decimal `json:"monthlyLimit" binding:"gt=0"`
	MonthlyUsed    decimal.Decimal `json:"monthlyUsed" binding:"gte=0"`
	RechargeLimit  decimal.Decimal `json:"rechargeLimit" binding:"gt=0"`
	ExpirationDate *time.Time      `json:"expirationDate"`
}

// UpdateCardRequest defines the editable fields of a card.
// Use pointers to distinguish between zero-value updates and fields not provided.
type UpdateCardRequest struct {
	MonthlyLimit   *decimal.Decimal `json:"monthlyLimit" binding:"omitempty,gt=0"`
	MonthlyUsed    *decimal.Decimal `json:"monthlyUsed" binding:"omitempty,gte=0"`
	RechargeLimit  *decimal.Decimal `json:"rechargeLimit" binding:"omitempty,gt=0"`
	ExpirationDate *time.Time       `json:"expirationDate"`
}

// SetCardStatusRequest switches a card on or off.
type SetCardStatusRequest struct {
	Status domain.CardStatus `json:"status" binding:"required,oneof=ACTIVE INACTIVE"`
}

// RechargeCardRequest credits a single card.
type RechargeCardRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"gt=0"`
}

// ResetUsageRequest optionally restricts the monthly reset to one country.
type ResetUsageRequest struct {
	Country string `json:"country"`
}

// ResetUsageResponse reports how many cards were reset.
type ResetUsageResponse struct {
	CardsReset int64 `json:"cardsReset"`
}

// DistributionRequest is the typed command behind both preview and commit.
// SelectAll replaces CardIDs with every selectable card of the country.
type DistributionRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Country         string          `json:"country"`
	CardIDs         []string        `json:"cardIDs"`
	SelectAll       bool            `json:"selectAll"`
	DeductFromVault bool            `json:"deductFromVault"`
}

// CardResponse is a card enriched with its derived capacity and usage state.
type CardResponse struct {
	domain.Card
	AvailableCapacity decimal.Decimal       `json:"availableCapacity"`
	UsageState        domain.CardUsageState `json:"usageState"`
	Selectable        bool                  `json:"selectable"`
}

// ToCardResponse converts a domain.Card to CardResponse DTO
func ToCardResponse(c domain.Card) CardResponse {
	return CardResponse{
		Card:              c,
		AvailableCapacity: c.AvailableCapacity(),
		UsageState:        c.UsageState(),
		Selectable:        c.IsSelectable(),
	}
}

// ToCardResponses converts a slice of domain.Card to []CardResponse.
func ToCardResponses(cards []domain.Card) []CardResponse {
	responses := make([]CardResponse, len(cards))
	for i, c := range cards {
		responses[i] = ToCardResponse(c)
	}
	return responses
}

// ListCardsResponse wraps a card listing with the country totals used by the selection screen.
type ListCardsResponse struct {
	Cards         []CardResponse  `json:"cards"`
	TotalCapacity decimal.Decimal `json:"totalCapacity"`
}

// CardImportRow is one parsed line of an import file. Line is 1-based and counts the header.
type CardImportRow struct {
	Line           int
	CID            string
	Country        string
	MonthlyLimit   string
	MonthlyUsed    string
	RechargeLimit  string
	ExpirationDate string
	Status         string
}

// CardImportError reports why one line was skipped.
type CardImportError struct {
	Line    int    `json:"line"`
	CID     string `json:"cid,omitempty"`
	Message string `json:"message"`
}

// CardImportResult summarises an import.
type CardImportResult struct {
	Imported int               `json:"imported"`
	Skipped  int               `json:"skipped"`
	Errors   []CardImportError `json:"errors"`
}

// VaultResponse is the current vault balance.
type VaultResponse struct {
	Currency domain.Currency `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}
