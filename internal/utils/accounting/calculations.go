package accounting

import (
	"fmt"
	"strings"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Scales of the stored till columns. Quotes are rounded to them once so the
// logged payload and the persisted balances carry the same figures.
const (
	AmountScale int32 = 6
	RateScale   int32 = 10
)

// PurchaseQuote is the pure result of a currency purchase computation.
type PurchaseQuote struct {
	GrossBought     decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalAvailable  decimal.Decimal
	EffectiveRate   decimal.Decimal
}

// QuotePurchase computes what a purchase really yields once transport, handling and
// banknote fees (all in the bought currency) are taken off.
func QuotePurchase(paidAmount, purchaseRate, transport, handling, banknote decimal.Decimal) (PurchaseQuote, error) {
	if !purchaseRate.IsPositive() {
		return PurchaseQuote{}, fmt.Errorf("%w: purchase rate must be positive", apperrors.ErrValidation)
	}
	if !paidAmount.IsPositive() {
		return PurchaseQuote{}, fmt.Errorf("%w: paid amount must be positive", apperrors.ErrValidation)
	}
	if transport.IsNegative() || handling.IsNegative() || banknote.IsNegative() {
		return PurchaseQuote{}, fmt.Errorf("%w: deductions cannot be negative", apperrors.ErrValidation)
	}

	gross := paidAmount.DivRound(purchaseRate, AmountScale)
	deductions := transport.Add(handling).Add(banknote)
	available := gross.Sub(deductions)
	if available.IsNegative() {
		available = decimal.Zero
	}

	effective := purchaseRate
	if available.IsPositive() {
		effective = paidAmount.DivRound(available, RateScale)
	}

	return PurchaseQuote{
		GrossBought:     gross,
		TotalDeductions: deductions,
		TotalAvailable:  available,
		EffectiveRate:   effective,
	}, nil
}

// SaleQuote is the pure result of a currency sale computation.
type SaleQuote struct {
	ReceivedAmount   decimal.Decimal
	BaselineRate     decimal.Decimal
	BaselineFallback bool
	Commission       decimal.Decimal
}

// QuoteSale prices a sale at the day rate and takes the commission as the spread over
// the last effective purchase rate. Without a known effective rate the day rate is the
// baseline, which yields no commission.
func QuoteSale(soldAmount, dayRate, lastEffectiveRate decimal.Decimal) (SaleQuote, error) {
	if !dayRate.IsPositive() {
		return SaleQuote{}, fmt.Errorf("%w: day rate must be positive", apperrors.ErrValidation)
	}
	if !soldAmount.IsPositive() {
		return SaleQuote{}, fmt.Errorf("%w: sold amount must be positive", apperrors.ErrValidation)
	}

	received := soldAmount.Mul(dayRate).Round(AmountScale)
	baseline := lastEffectiveRate
	fallback := false
	if !baseline.IsPositive() {
		baseline = dayRate
		fallback = true
	}

	commission := received.Sub(soldAmount.Mul(baseline)).Round(AmountScale)
	if commission.IsNegative() {
		commission = decimal.Zero
	}

	return SaleQuote{
		ReceivedAmount:   received,
		BaselineRate:     baseline,
		BaselineFallback: fallback,
		Commission:       commission,
	}, nil
}

// PurchaseInput is the validated command of a purchase. DeductFrom holds the per-currency
// confirmation that the paying till may be debited.
type PurchaseInput struct {
	PaidCurrency   domain.Currency
	BoughtCurrency domain.Currency
	PaidAmount     decimal.Decimal
	PurchaseRate   decimal.Decimal
	TransportFee   decimal.Decimal
	HandlingFee    decimal.Decimal
	BanknoteFee    decimal.Decimal
	DeductFrom     map[domain.Currency]bool
	Supplier       string
}

// ApplyPurchase mutates till for a purchase and returns the log payload.
// till is left untouched on error.
func ApplyPurchase(till *domain.Till, in PurchaseInput) (domain.PurchasePayload, error) {
	if !in.BoughtCurrency.IsForeign() {
		return domain.PurchasePayload{}, fmt.Errorf("%w: bought currency must be a foreign currency, got %q", apperrors.ErrValidation, in.BoughtCurrency)
	}
	if !in.PaidCurrency.IsValid() {
		return domain.PurchasePayload{}, fmt.Errorf("%w: unsupported paying currency %q", apperrors.ErrValidation, in.PaidCurrency)
	}
	if in.PaidCurrency == in.BoughtCurrency {
		return domain.PurchasePayload{}, fmt.Errorf("%w: paying and bought currency must differ", apperrors.ErrValidation)
	}
	if !in.DeductFrom[in.PaidCurrency] {
		return domain.PurchasePayload{}, fmt.Errorf("%w: deduction from the %s till must be confirmed", apperrors.ErrValidation, in.PaidCurrency)
	}

	quote, err := QuotePurchase(in.PaidAmount, in.PurchaseRate, in.TransportFee, in.HandlingFee, in.BanknoteFee)
	if err != nil {
		return domain.PurchasePayload{}, err
	}

	if err := till.Debit(in.PaidCurrency, in.PaidAmount); err != nil {
		return domain.PurchasePayload{}, err
	}
	till.Credit(in.BoughtCurrency, quote.TotalAvailable)
	previous := till.LastEffectiveRates[in.BoughtCurrency]
	till.LastEffectiveRates[in.BoughtCurrency] = quote.EffectiveRate

	return domain.PurchasePayload{
		PaidCurrency:          in.PaidCurrency,
		BoughtCurrency:        in.BoughtCurrency,
		PaidAmount:            in.PaidAmount,
		PurchaseRate:          in.PurchaseRate,
		TransportFee:          in.TransportFee,
		HandlingFee:           in.HandlingFee,
		BanknoteFee:           in.BanknoteFee,
		GrossBought:           quote.GrossBought,
		TotalAvailable:        quote.TotalAvailable,
		EffectiveRate:         quote.EffectiveRate,
		PreviousEffectiveRate: previous,
		Supplier:              in.Supplier,
	}, nil
}

// SaleInput is the validated command of a sale. An empty ReceivedCurrency means local currency.
type SaleInput struct {
	SoldCurrency     domain.Currency
	ReceivedCurrency domain.Currency
	SoldAmount       decimal.Decimal
	DayRate          decimal.Decimal
	Customer         string
}

// ApplySale mutates till for a sale and returns the log payload.
// Sales settle in local currency; other settlement currencies are refused.
func ApplySale(till *domain.Till, in SaleInput) (domain.SalePayload, error) {
	if !in.SoldCurrency.IsForeign() {
		return domain.SalePayload{}, fmt.Errorf("%w: sold currency must be a foreign currency, got %q", apperrors.ErrValidation, in.SoldCurrency)
	}
	received := in.ReceivedCurrency
	if received == "" {
		received = domain.LocalCurrency
	}
	if received != domain.LocalCurrency {
		return domain.SalePayload{}, fmt.Errorf("%w: settlement in %s is not supported, sales settle in %s", apperrors.ErrValidation, received, domain.LocalCurrency)
	}

	quote, err := QuoteSale(in.SoldAmount, in.DayRate, till.LastEffectiveRates[in.SoldCurrency])
	if err != nil {
		return domain.SalePayload{}, err
	}

	if err := till.Debit(in.SoldCurrency, in.SoldAmount); err != nil {
		return domain.SalePayload{}, err
	}
	till.Credit(received, quote.ReceivedAmount)
	till.Commissions[in.SoldCurrency] = till.Commissions[in.SoldCurrency].Add(quote.Commission)

	return domain.SalePayload{
		SoldCurrency:     in.SoldCurrency,
		ReceivedCurrency: received,
		SoldAmount:       in.SoldAmount,
		DayRate:          in.DayRate,
		ReceivedAmount:   quote.ReceivedAmount,
		BaselineRate:     quote.BaselineRate,
		BaselineFallback: quote.BaselineFallback,
		Commission:       quote.Commission,
		Customer:         in.Customer,
	}, nil
}

// ApplyAdjustment sets a till balance directly.
func ApplyAdjustment(till *domain.Till, currency domain.Currency, newBalance decimal.Decimal, reason string) (domain.AdjustmentPayload, error) {
	if !currency.IsValid() {
		return domain.AdjustmentPayload{}, fmt.Errorf("%w: unsupported currency %q", apperrors.ErrValidation, currency)
	}
	if newBalance.IsNegative() {
		return domain.AdjustmentPayload{}, fmt.Errorf("%w: balance cannot be negative", apperrors.ErrValidation)
	}

	previous := till.Balance(currency)
	till.Balances[currency] = newBalance
	return domain.AdjustmentPayload{
		Currency:        currency,
		PreviousBalance: previous,
		NewBalance:      newBalance,
		Reason:          strings.TrimSpace(reason),
	}, nil
}

// ResupplyTotals validates the branch lines and sums them per currency.
func ResupplyTotals(lines []domain.ResupplyLine) (map[domain.Currency]decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: at least one branch is required", apperrors.ErrValidation)
	}
	totals := make(map[domain.Currency]decimal.Decimal)
	for _, line := range lines {
		if line.AgencyID == "" || line.AgencyID == domain.CentralAgencyID {
			return nil, fmt.Errorf("%w: invalid branch %q", apperrors.ErrValidation, line.AgencyID)
		}
		positive := false
		for currency, amount := range line.Amounts {
			if !currency.IsValid() {
				return nil, fmt.Errorf("%w: unsupported currency %q for branch %s", apperrors.ErrValidation, currency, line.AgencyID)
			}
			if amount.IsNegative() {
				return nil, fmt.Errorf("%w: negative amount of %s for branch %s", apperrors.ErrValidation, currency, line.AgencyID)
			}
			if amount.IsPositive() {
				positive = true
			}
			totals[currency] = totals[currency].Add(amount)
		}
		if !positive {
			return nil, fmt.Errorf("%w: branch %s receives nothing", apperrors.ErrValidation, line.AgencyID)
		}
	}
	return totals, nil
}

// ApplyResupply moves cash from the central till to branch tills. Every currency total
// is checked against the central balance before anything is mutated.
func ApplyResupply(central *domain.Till, branches map[string]*domain.Till, lines []domain.ResupplyLine) (domain.ResupplyPayload, error) {
	if !central.IsCentral() {
		return domain.ResupplyPayload{}, fmt.Errorf("%w: resupply must come from the central till", apperrors.ErrValidation)
	}
	totals, err := ResupplyTotals(lines)
	if err != nil {
		return domain.ResupplyPayload{}, err
	}

	for _, currency := range domain.TillCurrencies {
		total, ok := totals[currency]
		if !ok {
			continue
		}
		if available := central.Balance(currency); available.LessThan(total) {
			return domain.ResupplyPayload{}, fmt.Errorf("%w: central %s balance %s cannot cover %s",
				apperrors.ErrValidation, currency, available.String(), total.String())
		}
	}
	for _, line := range lines {
		if _, ok := branches[line.AgencyID]; !ok {
			return domain.ResupplyPayload{}, fmt.Errorf("%w: till %s", apperrors.ErrNotFound, line.AgencyID)
		}
	}

	for _, line := range lines {
		branch := branches[line.AgencyID]
		for currency, amount := range line.Amounts {
			if err := central.Debit(currency, amount); err != nil {
				return domain.ResupplyPayload{}, err
			}
			branch.Credit(currency, amount)
		}
	}

	return domain.ResupplyPayload{Branches: lines, Totals: totals}, nil
}
