package mapping

import (
	"database/sql"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/SscSPs/transfer_backoffice/internal/models"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ToModelExpense converts a domain Expense to a model Expense
func ToModelExpense(d domain.Expense) models.Expense {
	return models.Expense{
		ExpenseID:                 d.ExpenseID,
		Description:               d.Description,
		Amount:                    d.Amount,
		Category:                  d.Category,
		RequesterID:               d.RequesterID,
		RequesterName:             d.RequesterName,
		RequesterEmail:            d.RequesterMail,
		AgencyID:                  d.AgencyID,
		Comment:                   d.Comment,
		Status:                    string(d.Status),
		DeductFromExcess:          d.DeductFromExcess,
		DeductedCashierID:         nullString(d.DeductedCashierID),
		AccountingValidatedBy:     nullString(d.AccountingValidatedBy),
		AccountingValidatedAt:     d.AccountingValidatedAt,
		AccountingRejectionReason: nullString(d.AccountingRejectionReason),
		DirectorValidatedBy:       nullString(d.DirectorValidatedBy),
		DirectorValidatedAt:       d.DirectorValidatedAt,
		DirectorRejectionReason:   nullString(d.DirectorRejectionReason),
		AuditFields:               ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainExpense converts a model Expense to a domain Expense.
// Stored statuses are kept as written, legacy values included.
func ToDomainExpense(m models.Expense) domain.Expense {
	return domain.Expense{
		ExpenseID:                 m.ExpenseID,
		Description:               m.Description,
		Amount:                    m.Amount,
		Category:                  m.Category,
		RequesterID:               m.RequesterID,
		RequesterName:             m.RequesterName,
		RequesterMail:             m.RequesterEmail,
		AgencyID:                  m.AgencyID,
		Comment:                   m.Comment,
		Status:                    domain.ExpenseStatus(m.Status),
		DeductFromExcess:          m.DeductFromExcess,
		DeductedCashierID:         m.DeductedCashierID.String,
		AccountingValidatedBy:     m.AccountingValidatedBy.String,
		AccountingValidatedAt:     m.AccountingValidatedAt,
		AccountingRejectionReason: m.AccountingRejectionReason.String,
		DirectorValidatedBy:       m.DirectorValidatedBy.String,
		DirectorValidatedAt:       m.DirectorValidatedAt,
		DirectorRejectionReason:   m.DirectorRejectionReason.String,
		AuditFields:               ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainCashierExcess converts a model CashierExcess to a domain CashierExcess
func ToDomainCashierExcess(m models.CashierExcess) domain.CashierExcess {
	return domain.CashierExcess{
		CashierID:     m.CashierID,
		CashierName:   m.CashierName,
		AgencyID:      m.AgencyID,
		Available:     m.Available,
		LastUpdatedAt: m.LastUpdatedAt,
	}
}
