package utils

import (
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FormatWithCurrencyPrecision formats an amount with the correct precision for a given currency
// Example: amount 12.3456 with EUR (precision 2) returns "12.35"
// Example: amount 15000.4 with XOF (precision 0) returns "15000"
func FormatWithCurrencyPrecision(amount decimal.Decimal, currency domain.Currency) string {
	return amount.StringFixed(int32(currency.Precision()))
}

// FormatMoney formats an amount followed by its currency code, e.g. "15000 XOF".
func FormatMoney(amount decimal.Decimal, currency domain.Currency) string {
	return FormatWithCurrencyPrecision(amount, currency) + " " + string(currency)
}
