package mapping

import (
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/SscSPs/transfer_backoffice/internal/models"
)

// ToModelTillBalances flattens a till into one row per currency
func ToModelTillBalances(t domain.Till) []models.TillBalance {
	rows := make([]models.TillBalance, 0, len(domain.TillCurrencies))
	updatedAt := t.LastUpdatedAt
	for _, c := range domain.TillCurrencies {
		rows = append(rows, models.TillBalance{
			AgencyID:          t.AgencyID,
			Currency:          string(c),
			Balance:           t.Balances[c],
			LastEffectiveRate: t.LastEffectiveRates[c],
			Commission:        t.Commissions[c],
			LastUpdatedAt:     &updatedAt,
			LastUpdatedBy:     t.LastUpdatedBy,
		})
	}
	return rows
}

// ToDomainTill folds the currency rows of one agency into a till.
// Currencies without a row stay at zero.
func ToDomainTill(agencyID string, rows []models.TillBalance) domain.Till {
	till := domain.NewTill(agencyID)
	for _, r := range rows {
		c := domain.Currency(r.Currency)
		if !c.IsValid() {
			continue
		}
		till.Balances[c] = r.Balance
		if c.IsForeign() {
			till.LastEffectiveRates[c] = r.LastEffectiveRate
			till.Commissions[c] = r.Commission
		}
		if r.LastUpdatedAt != nil && r.LastUpdatedAt.After(till.LastUpdatedAt) {
			till.LastUpdatedAt = *r.LastUpdatedAt
			till.LastUpdatedBy = r.LastUpdatedBy
		}
	}
	return till
}

// ToModelTillOperation converts a domain TillOperation to a model TillOperation
func ToModelTillOperation(d domain.TillOperation) models.TillOperation {
	related := d.RelatedAgencyIDs
	if related == nil {
		related = []string{}
	}
	return models.TillOperation{
		OperationID:      d.OperationID,
		AgencyID:         d.AgencyID,
		RelatedAgencyIDs: related,
		Type:             string(d.Type),
		Payload:          d.Payload,
		Actor:            d.Actor,
		CreatedAt:        d.CreatedAt,
	}
}

// ToDomainTillOperation converts a model TillOperation to a domain TillOperation
func ToDomainTillOperation(m models.TillOperation) domain.TillOperation {
	var related []string
	if len(m.RelatedAgencyIDs) > 0 {
		related = m.RelatedAgencyIDs
	}
	return domain.TillOperation{
		OperationID:      m.OperationID,
		AgencyID:         m.AgencyID,
		RelatedAgencyIDs: related,
		Type:             domain.TillOperationType(m.Type),
		Payload:          m.Payload,
		Actor:            m.Actor,
		CreatedAt:        m.CreatedAt,
	}
}
