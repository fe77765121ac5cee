package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Currency is one of the four currencies a till holds.
type Currency string

const (
	CurrencyXOF Currency = "XOF" // local settlement currency
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

// LocalCurrency is the default settlement currency of sales.
const LocalCurrency = CurrencyXOF

// TillCurrencies lists the currencies every till carries, local first.
var TillCurrencies = []Currency{CurrencyXOF, CurrencyEUR, CurrencyUSD, CurrencyGBP}

// IsValid reports whether c is held by tills.
func (c Currency) IsValid() bool {
	for _, t := range TillCurrencies {
		if t == c {
			return true
		}
	}
	return false
}

// Precision is the number of decimal places amounts in c are shown with.
func (c Currency) Precision() int {
	if c == CurrencyXOF {
		return 0
	}
	return 2
}

// IsForeign reports whether c is one of the foreign currencies.
func (c Currency) IsForeign() bool {
	return c.IsValid() && c != LocalCurrency
}

// CentralAgencyID is the reserved agency id of the central till.
const CentralAgencyID = "central"

// Till is the per-agency cash pool, tracked per currency.
type Till struct {
	AgencyID           string                       `json:"agencyID"`
	Balances           map[Currency]decimal.Decimal `json:"balances"`
	LastEffectiveRates map[Currency]decimal.Decimal `json:"lastEffectiveRates"`
	Commissions        map[Currency]decimal.Decimal `json:"commissions"`
	LastUpdatedAt      time.Time                    `json:"lastUpdatedAt"`
	LastUpdatedBy      string                       `json:"lastUpdatedBy"`
}

// NewTill returns an empty till with every currency present at zero.
func NewTill(agencyID string) Till {
	t := Till{
		AgencyID:           agencyID,
		Balances:           make(map[Currency]decimal.Decimal, len(TillCurrencies)),
		LastEffectiveRates: make(map[Currency]decimal.Decimal, len(TillCurrencies)),
		Commissions:        make(map[Currency]decimal.Decimal, len(TillCurrencies)),
	}
	for _, c := range TillCurrencies {
		t.Balances[c] = decimal.Zero
		if c.IsForeign() {
			t.LastEffectiveRates[c] = decimal.Zero
			t.Commissions[c] = decimal.Zero
		}
	}
	return t
}

// IsCentral reports whether this is the central office till.
func (t Till) IsCentral() bool {
	return t.AgencyID == CentralAgencyID
}

// Balance returns the balance held in currency c.
func (t Till) Balance(c Currency) decimal.Decimal {
	return t.Balances[c]
}

// Credit adds amount to the balance of currency c.
func (t *Till) Credit(c Currency, amount decimal.Decimal) {
	t.Balances[c] = t.Balances[c].Add(amount)
}

// Debit removes amount from the balance of currency c, refusing to go negative.
func (t *Till) Debit(c Currency, amount decimal.Decimal) error {
	current := t.Balances[c]
	if current.LessThan(amount) {
		return fmt.Errorf("%w: insufficient %s balance in till %s: available %s, requested %s",
			apperrors.ErrValidation, c, t.AgencyID, current.String(), amount.String())
	}
	t.Balances[c] = current.Sub(amount)
	return nil
}

// Touch records who changed the till last.
func (t *Till) Touch(userID string, now time.Time) {
	t.LastUpdatedAt = now
	t.LastUpdatedBy = userID
}

// TillOperationType tags the payload of a till log entry.
type TillOperationType string

const (
	TillOpPurchase        TillOperationType = "purchase"
	TillOpSale            TillOperationType = "sale"
	TillOpAdjustment      TillOperationType = "adjustment"
	TillOpResupply        TillOperationType = "resupply"
	TillOpCounterPurchase TillOperationType = "counter_purchase"
	TillOpCounterSale     TillOperationType = "counter_sale"
)

// IsValid reports whether t is a known operation type.
func (t TillOperationType) IsValid() bool {
	switch t {
	case TillOpPurchase, TillOpSale, TillOpAdjustment, TillOpResupply, TillOpCounterPurchase, TillOpCounterSale:
		return true
	}
	return false
}

// TillOperation is one immutable entry of the till operation log.
type TillOperation struct {
	OperationID      string            `json:"operationID"`
	AgencyID         string            `json:"agencyID"`
	RelatedAgencyIDs []string          `json:"relatedAgencyIDs,omitempty"`
	Type             TillOperationType `json:"type"`
	Payload          json.RawMessage   `json:"payload"`
	Actor            string            `json:"actor"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// NewTillOperation encodes payload into a log entry.
func NewTillOperation(id, agencyID string, opType TillOperationType, payload any, actor string, now time.Time) (TillOperation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return TillOperation{}, fmt.Errorf("failed to encode %s payload: %w", opType, err)
	}
	return TillOperation{
		OperationID: id,
		AgencyID:    agencyID,
		Type:        opType,
		Payload:     raw,
		Actor:       actor,
		CreatedAt:   now,
	}, nil
}

// PurchasePayload is logged for purchase and counter_purchase entries.
type PurchasePayload struct {
	PaidCurrency          Currency        `json:"paidCurrency"`
	BoughtCurrency        Currency        `json:"boughtCurrency"`
	PaidAmount            decimal.Decimal `json:"paidAmount"`
	PurchaseRate          decimal.Decimal `json:"purchaseRate"`
	TransportFee          decimal.Decimal `json:"transportFee"`
	HandlingFee           decimal.Decimal `json:"handlingFee"`
	BanknoteFee           decimal.Decimal `json:"banknoteFee"`
	GrossBought           decimal.Decimal `json:"grossBought"`
	TotalAvailable        decimal.Decimal `json:"totalAvailable"`
	EffectiveRate         decimal.Decimal `json:"effectiveRate"`
	PreviousEffectiveRate decimal.Decimal `json:"previousEffectiveRate"`
	Supplier              string          `json:"supplier,omitempty"`
}

// SalePayload is logged for sale and counter_sale entries.
type SalePayload struct {
	SoldCurrency     Currency        `json:"soldCurrency"`
	ReceivedCurrency Currency        `json:"receivedCurrency"`
	SoldAmount       decimal.Decimal `json:"soldAmount"`
	DayRate          decimal.Decimal `json:"dayRate"`
	ReceivedAmount   decimal.Decimal `json:"receivedAmount"`
	BaselineRate     decimal.Decimal `json:"baselineRate"`
	BaselineFallback bool            `json:"baselineFallback"`
	Commission       decimal.Decimal `json:"commission"`
	Customer         string          `json:"customer,omitempty"`
}

// AdjustmentPayload is logged for manual balance corrections.
type AdjustmentPayload struct {
	Currency        Currency        `json:"currency"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	Reason          string          `json:"reason,omitempty"`
}

// ResupplyLine is what one branch received in a resupply.
type ResupplyLine struct {
	AgencyID string                       `json:"agencyID"`
	Amounts  map[Currency]decimal.Decimal `json:"amounts"`
}

// ResupplyPayload is logged on the central till for a branch resupply.
type ResupplyPayload struct {
	Branches []ResupplyLine               `json:"branches"`
	Totals   map[Currency]decimal.Decimal `json:"totals"`
}

// TillOperationFilter narrows operation log listings.
type TillOperationFilter struct {
	AgencyID        string
	Type            TillOperationType
	From            *time.Time
	To              *time.Time
	Limit           int
	CursorCreatedAt *time.Time
	CursorID        string
}

// CommissionReport sums sale commissions per currency over a period.
type CommissionReport struct {
	AgencyID    string                       `json:"agencyID"`
	From        time.Time                    `json:"from"`
	To          time.Time                    `json:"to"`
	Commissions map[Currency]decimal.Decimal `json:"commissions"`
	SalesCount  map[Currency]int             `json:"salesCount"`
}
