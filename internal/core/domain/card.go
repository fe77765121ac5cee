package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the soft on/off flag of a prepaid card.
type CardStatus string

const (
	CardActive   CardStatus = "ACTIVE"
	CardInactive CardStatus = "INACTIVE"
)

// IsValid reports whether s is a known card status.
func (s CardStatus) IsValid() bool {
	return s == CardActive || s == CardInactive
}

// CardUsageState classifies a card by how much of its allowance is left.
type CardUsageState string

const (
	CardUsageAvailable CardUsageState = "AVAILABLE" // nothing used, capacity left
	CardUsagePartial   CardUsageState = "PARTIAL"   // something used, capacity left
	CardUsageExhausted CardUsageState = "EXHAUSTED" // no capacity left
)

// Card represents a prepaid card tied to one country.
type Card struct {
	CardID           string          `json:"cardID"` // Primary Key (UUID)
	CID              string          `json:"cid"`    // Display code printed on the card, unique
	Country          string          `json:"country"`
	Status           CardStatus      `json:"status"`
	MonthlyLimit     decimal.Decimal `json:"monthlyLimit"`
	MonthlyUsed      decimal.Decimal `json:"monthlyUsed"`
	RechargeLimit    decimal.Decimal `json:"rechargeLimit"` // Per-transaction ceiling
	LastRechargeDate *time.Time      `json:"lastRechargeDate,omitempty"`
	ExpirationDate   *time.Time      `json:"expirationDate,omitempty"`
	AuditFields
}

// AvailableCapacity is the most the card can absorb in one recharge or distribution:
// the smaller of the remaining monthly allowance and the recharge limit, never negative.
func (c Card) AvailableCapacity() decimal.Decimal {
	remaining := c.MonthlyLimit.Sub(c.MonthlyUsed)
	capacity := decimal.Min(remaining, c.RechargeLimit)
	if capacity.IsNegative() {
		return decimal.Zero
	}
	return capacity
}

// UsageState classifies the card for selection displays.
func (c Card) UsageState() CardUsageState {
	if !c.AvailableCapacity().IsPositive() {
		return CardUsageExhausted
	}
	if c.MonthlyUsed.IsPositive() {
		return CardUsagePartial
	}
	return CardUsageAvailable
}

// IsSelectable reports whether the card may be picked for a distribution.
func (c Card) IsSelectable() bool {
	return c.AvailableCapacity().IsPositive()
}

// IsActive reports whether the card is switched on.
func (c Card) IsActive() bool {
	return c.Status == CardActive
}

// CardFilter narrows card listings.
type CardFilter struct {
	Country string
	Status  CardStatus
	Limit   int
	Offset  int
}
