package utils

import (
	"testing"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatWithCurrencyPrecision(t *testing.T) {
	assert.Equal(t, "12.35", FormatWithCurrencyPrecision(decimal.RequireFromString("12.3456"), domain.CurrencyEUR))
	assert.Equal(t, "15000", FormatWithCurrencyPrecision(decimal.RequireFromString("15000.4"), domain.CurrencyXOF))
	assert.Equal(t, "7.00", FormatWithCurrencyPrecision(decimal.NewFromInt(7), domain.CurrencyUSD))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "658 XOF", FormatMoney(decimal.RequireFromString("657.957"), domain.CurrencyXOF))
}
