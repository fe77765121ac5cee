package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Country is a card-issuing country and its per-card fee.
type Country struct {
	Code    string          `json:"code" yaml:"code"`
	Name    string          `json:"name" yaml:"name"`
	CardFee decimal.Decimal `json:"cardFee" yaml:"card_fee"`
}

// ReferenceData is the fixed lookup data the rules depend on.
type ReferenceData struct {
	Countries         []Country `json:"countries" yaml:"countries"`
	ExpenseCategories []string  `json:"expenseCategories" yaml:"expense_categories"`
}

// FindCountry looks a country up by code, case-insensitively.
func (r ReferenceData) FindCountry(code string) (Country, bool) {
	for _, c := range r.Countries {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Country{}, false
}

// CardFee returns the per-card fee for a country, zero when the country is unknown.
func (r ReferenceData) CardFee(code string) decimal.Decimal {
	c, ok := r.FindCountry(code)
	if !ok {
		return decimal.Zero
	}
	return c.CardFee
}

// HasExpenseCategory reports whether category is one of the configured categories.
func (r ReferenceData) HasExpenseCategory(category string) bool {
	for _, c := range r.ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}
