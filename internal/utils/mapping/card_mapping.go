package mapping

import (
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/SscSPs/transfer_backoffice/internal/models"
)

// ToModelCard converts a domain Card to a model Card
func ToModelCard(d domain.Card) models.Card {
	return models.Card{
		CardID:           d.CardID,
		CID:              d.CID,
		Country:          d.Country,
		Status:           string(d.Status),
		MonthlyLimit:     d.MonthlyLimit,
		MonthlyUsed:      d.MonthlyUsed,
		RechargeLimit:    d.RechargeLimit,
		LastRechargeDate: d.LastRechargeDate,
		ExpirationDate:   d.ExpirationDate,
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainCard converts a model Card to a domain Card
func ToDomainCard(m models.Card) domain.Card {
	return domain.Card{
		CardID:           m.CardID,
		CID:              m.CID,
		Country:          m.Country,
		Status:           domain.CardStatus(m.Status),
		MonthlyLimit:     m.MonthlyLimit,
		MonthlyUsed:      m.MonthlyUsed,
		RechargeLimit:    m.RechargeLimit,
		LastRechargeDate: m.LastRechargeDate,
		ExpirationDate:   m.ExpirationDate,
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelDistribution splits a domain Distribution into its header and line rows
func ToModelDistribution(d domain.Distribution) (models.Distribution, []models.DistributionLine) {
	header := models.Distribution{
		DistributionID:   d.DistributionID,
		Country:          d.Country,
		RequestedAmount:  d.RequestedAmount,
		TotalCapacity:    d.TotalCapacity,
		TotalDistributed: d.TotalDistributed,
		Remainder:        d.Remainder,
		CardsUsed:        d.CardsUsed,
		FeePerCard:       d.FeePerCard,
		TotalFee:         d.TotalFee,
		DeductFromVault:  d.DeductFromVault,
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
	lines := make([]models.DistributionLine, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = models.DistributionLine{
			DistributionID:    d.DistributionID,
			LineNo:            i + 1,
			CardID:            l.CardID,
			CID:               l.CID,
			CapacityBefore:    l.CapacityBefore,
			Credited:          l.Credited,
			RemainingCapacity: l.RemainingCapacity,
		}
	}
	return header, lines
}

// ToDomainDistribution joins header and line rows, lines in line_no order
func ToDomainDistribution(m models.Distribution, lines []models.DistributionLine) domain.Distribution {
	d := domain.Distribution{
		DistributionID:  m.DistributionID,
		DeductFromVault: m.DeductFromVault,
		DistributionPlan: domain.DistributionPlan{
			Country:          m.Country,
			RequestedAmount:  m.RequestedAmount,
			TotalCapacity:    m.TotalCapacity,
			TotalDistributed: m.TotalDistributed,
			Remainder:        m.Remainder,
			CardsUsed:        m.CardsUsed,
			FeePerCard:       m.FeePerCard,
			TotalFee:         m.TotalFee,
			Lines:            make([]domain.DistributionLine, len(lines)),
		},
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
	for i, l := range lines {
		d.Lines[i] = domain.DistributionLine{
			CardID:            l.CardID,
			CID:               l.CID,
			CapacityBefore:    l.CapacityBefore,
			Credited:          l.Credited,
			RemainingCapacity: l.RemainingCapacity,
		}
	}
	return d
}
